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
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/centbus/ether/internal/jsonx"
)

func init() {
	SetTickTimeout(time.Millisecond)
}

func newTestRoot(t *testing.T, ctx context.Context) *Root {
	t.Helper()
	r := NewRoot()
	r.Start(ctx, zerolog.New(zerolog.NewTestWriter(t)))
	return r
}

// TestLoopbackDelivery exercises the Root main loop end to end without
// a socket: application on roots A and B, wired A<->B via a
// LoopbackCom pair, exchanging a single message.
func TestLoopbackDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newTestRoot(t, ctx)
	b := newTestRoot(t, ctx)

	comA, comB := NewLoopbackPair(a, b)
	a.AddCom(comA)
	b.AddCom(comB)
	go comA.Start(ctx)
	go comB.Start(ctx)

	channel := NewChannel()
	payload, err := jsonx.Py.Load(map[string]any{"hello": "world"})
	if err != nil {
		t.Fatalf("Py.Load: %v", err)
	}

	a.Send(channel, payload)

	msg, err := b.Recv(2 * time.Second)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}

	got, err := jsonx.Py.Dump(msg.Value)
	if err != nil {
		t.Fatalf("Py.Dump: %v", err)
	}

	want := map[string]any{"hello": "world"}
	gotMap, ok := got.(map[string]any)
	if !ok || gotMap["hello"] != want["hello"] {
		t.Errorf("Recv() = %#v, want %#v", got, want)
	}
}

// TestFanOutThreePeers exercises the fan-out invariant: a message sent
// by the hub Root must reach peers B and C, each attached to the hub via
// its own loopback leg, carrying the channel it was sent on.
func TestFanOutThreePeers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := newTestRoot(t, ctx)
	peerB := newTestRoot(t, ctx)
	peerC := newTestRoot(t, ctx)

	comHubB, comB := NewLoopbackPair(hub, peerB)
	comHubC, comC := NewLoopbackPair(hub, peerC)
	hub.AddCom(comHubB)
	hub.AddCom(comHubC)
	peerB.AddCom(comB)
	peerC.AddCom(comC)
	go comHubB.Start(ctx)
	go comB.Start(ctx)
	go comHubC.Start(ctx)
	go comC.Start(ctx)

	channel := NewChannel()
	payload, _ := jsonx.Py.Load(map[string]any{"n": int64(1)})

	hub.Send(channel, payload)

	for name, peer := range map[string]*Root{"B": peerB, "C": peerC} {
		msg, err := peer.Recv(2 * time.Second)
		if err != nil {
			t.Fatalf("peer %s Recv: %v", name, err)
		}
		if msg.Channel != channel {
			t.Errorf("peer %s got channel %s, want %s", name, msg.Channel, channel)
		}
	}
}

func TestRootStopCascadesToComs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := newTestRoot(t, ctx)
	other := NewRoot()
	comA, comB := NewLoopbackPair(r, other)
	r.AddCom(comA)

	done := make(chan struct{})
	go func() {
		comA.Start(ctx)
		close(done)
	}()
	_ = comB

	r.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("com did not stop after root.Stop()")
	}
}
