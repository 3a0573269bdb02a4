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

// LoopbackCom is an in-process connector for tests. A pair of
// LoopbackComs are wired together with NewLoopbackPair so that one's
// Outgoing feeds the other's Incoming directly, without a socket —
// letting RPC tests run without spinning up a real listener.
type LoopbackCom struct {
	com
	peer *LoopbackCom
}

// NewLoopbackPair creates two LoopbackComs, each attached to its own
// Root, wired so that messages sent by one arrive as incoming on the
// other.
func NewLoopbackPair(left, right *Root) (*LoopbackCom, *LoopbackCom) {
	a := &LoopbackCom{com: newCom(left)}
	b := &LoopbackCom{com: newCom(right)}
	a.peer = b
	b.peer = a
	return a, b
}

// Start pumps messages put on Outgoing into the peer's Incoming until
// ctx is done or Stop is called.
func (l *LoopbackCom) Start(ctx context.Context) error {
	defer l.close()

	for l.Active() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		event, err := l.events.Get(tickTimeout)
		if err != nil {
			continue
		}

		switch event {
		case EventStop:
			return nil
		case EventNewOutgoing:
			msg, err := l.outgoing.Get(0)
			if err == nil {
				l.peer.incoming.Put(msg)
				l.peer.parent.AddEvent(EventNewIncoming)
			}
		}
	}

	return nil
}

func (l *LoopbackCom) close() {
	l.deactivate()
	if l.parent != nil {
		l.parent.AddEvent(EventComStopped)
	}
}
