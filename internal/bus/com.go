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

import "context"

// Com is implemented by every bus endpoint variant: ServerCom (a
// listening WebSocket server), HandlerCom (one accepted peer), and
// ClientCom (an outbound WebSocket connection). The Root drives a Com
// purely through Incoming/Outgoing and the Device contract.
type Com interface {
	Device

	// Incoming holds messages read off the wire, pending pickup by the
	// parent Root.
	Incoming() *Queue[Message]

	// Outgoing holds messages the parent Root has fanned out to this
	// Com, pending a write to the wire.
	Outgoing() *Queue[Message]

	// Start runs the Com's worker(s) until ctx is done or Stop is
	// called, whichever comes first. It returns once wind-down is
	// complete.
	Start(ctx context.Context) error
}

// com is the embeddable base every concrete Com wraps. parent is a
// plain pointer rather than a weak reference: Go has no ergonomic
// weak-pointer idiom pre-1.24's weak.Pointer, so ownership is instead
// enforced structurally — a Com is only ever reachable through
// Root.coms, and is dropped from there as soon as it reports
// com_stopped.
type com struct {
	device
	parent   *Root
	incoming *Queue[Message]
	outgoing *Queue[Message]
}

func newCom(parent *Root) com {
	return com{
		device:   newDevice(),
		parent:   parent,
		incoming: NewQueue[Message](DefaultQueueSize),
		outgoing: NewQueue[Message](DefaultQueueSize),
	}
}

func (c *com) Incoming() *Queue[Message] { return c.incoming }
func (c *com) Outgoing() *Queue[Message] { return c.outgoing }
