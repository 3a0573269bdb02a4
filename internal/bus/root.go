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
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/centbus/ether/internal/jsonx"
)

// Root multiplexes between the application-facing Send/Recv interface
// and any number of attached Com endpoints.
type Root struct {
	device

	mu       sync.Mutex
	coms     []Com
	incoming *Queue[Message]
	outgoing *Queue[Message]

	metrics *Metrics
}

// NewRoot creates a Root with no attached Coms. Call AddCom for each
// endpoint before Start.
func NewRoot() *Root {
	return &Root{
		device:   newDevice(),
		incoming: NewQueue[Message](DefaultQueueSize),
		outgoing: NewQueue[Message](DefaultQueueSize),
		metrics:  nopMetrics,
	}
}

// SetMetrics installs a Metrics sink; nil restores the no-op sink.
func (r *Root) SetMetrics(m *Metrics) {
	if m == nil {
		m = nopMetrics
	}
	r.metrics = m
}

// AddCom appends com to the roster. The caller is responsible for
// starting it (typically by launching Com.Start in its own goroutine).
func (r *Root) AddCom(c Com) {
	r.mu.Lock()
	r.coms = append(r.coms, c)
	n := len(r.coms)
	r.mu.Unlock()

	r.metrics.activeComs.Set(float64(n))
}

// Send enqueues (channel, value) on the outgoing queue and wakes the
// main loop for fan-out to every attached Com.
func (r *Root) Send(channel Channel, value jsonx.AST) {
	r.outgoing.Put(Message{Channel: channel, Value: value})
	r.AddEvent(EventNewOutgoing)
}

// Recv blocks until a message arrives on the incoming queue or timeout
// elapses.
func (r *Root) Recv(timeout time.Duration) (Message, error) {
	return r.incoming.Get(timeout)
}

// Start launches the Root's main loop in its own goroutine and returns
// immediately. The loop runs until ctx is done or Stop is called.
func (r *Root) Start(ctx context.Context, logger zerolog.Logger) {
	go r.mainLoop(ctx, logger)
}

func (r *Root) mainLoop(ctx context.Context, logger zerolog.Logger) {
	for r.Active() {
		select {
		case <-ctx.Done():
			r.handleStop(logger)
			return
		default:
		}

		event, err := r.events.Get(tickTimeout)
		if err != nil {
			continue
		}

		switch event {
		case EventStop:
			r.handleStop(logger)
			return
		case EventComStopped:
			r.removeInactive(logger)
		case EventNewIncoming:
			r.fetchIncoming()
		case EventNewOutgoing:
			r.pushOutgoing()
		}
	}
}

func (r *Root) handleStop(logger zerolog.Logger) {
	r.deactivate()

	r.mu.Lock()
	coms := append([]Com(nil), r.coms...)
	r.mu.Unlock()

	for _, c := range coms {
		c.AddEvent(EventStop)
	}

	logger.Debug().Msg("root stopped")
}

func (r *Root) removeInactive(logger zerolog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.coms[:0]
	for _, c := range r.coms {
		if !c.Active() {
			logger.Debug().Msg("removing stopped com")
			continue
		}
		kept = append(kept, c)
	}
	r.coms = kept
	r.metrics.activeComs.Set(float64(len(r.coms)))
}

func (r *Root) fetchIncoming() {
	r.mu.Lock()
	coms := append([]Com(nil), r.coms...)
	r.mu.Unlock()

	for _, c := range coms {
		msg, err := c.Incoming().Get(0)
		if err == nil {
			r.incoming.Put(msg)
			r.metrics.messagesRouted.Inc()
		}
	}
}

func (r *Root) pushOutgoing() {
	msg, err := r.outgoing.Get(tickTimeout)
	if err != nil {
		return
	}

	r.mu.Lock()
	coms := append([]Com(nil), r.coms...)
	r.mu.Unlock()

	for _, c := range coms {
		c.Outgoing().Put(msg)
		c.AddEvent(EventNewOutgoing)
	}
}
