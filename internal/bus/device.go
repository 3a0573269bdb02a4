/*
yatgo: Yet Another Trader in Go
Copyright (C) 2022  Tim Möhlmann

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published
by the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package bus

import (
	"sync/atomic"
	"time"
)

// Event tokens consumed by a device's worker loop.
const (
	EventStop        = "stop"
	EventComStopped  = "com_stopped"
	EventNewIncoming = "new_incoming"
	EventNewOutgoing = "new_outgoing"
)

// tickTimeout bounds how long a worker loop blocks on its event queue
// before taking a tickless wake-up, used by HandlerCom/ClientCom to
// poll their WebSocket. Configurable via ETHER_FREQ.
var tickTimeout = 1 * time.Millisecond

// SetTickTimeout overrides the worker tick budget; exposed for tests
// that want faster (or slower, for determinism) loop cadence than the
// ETHER_FREQ default.
func SetTickTimeout(d time.Duration) {
	tickTimeout = d
}

// Device is implemented by Root and every Com. It owns an event queue
// and a sticky "active" flag: once Stop is called, the device winds
// down and further events besides wind-down are ignored.
type Device interface {
	AddEvent(event string)
	Stop()
	Active() bool
}

// device is the embeddable base every concrete Device wraps, holding
// the event queue and sticky active flag.
type device struct {
	events *Queue[string]
	active atomic.Bool
}

func newDevice() device {
	d := device{events: NewQueue[string](DefaultQueueSize)}
	d.active.Store(true)
	return d
}

func (d *device) AddEvent(event string) {
	d.events.Put(event)
}

func (d *device) Stop() {
	d.AddEvent(EventStop)
}

// Active reports whether the device has not yet wound down. Stop is
// sticky: once the worker loop observes EventStop it clears this, and
// it is never set again.
func (d *device) Active() bool {
	return d.active.Load()
}

func (d *device) deactivate() {
	d.active.Store(false)
}
