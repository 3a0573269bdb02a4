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

package rpc

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/centbus/ether/internal/bus"
	"github.com/centbus/ether/internal/jsonx"
)

func newTestPair(t *testing.T, ctx context.Context, service string) (*Client, *Server) {
	t.Helper()

	clientRoot := bus.NewRoot()
	serverRoot := bus.NewRoot()
	clientRoot.Start(ctx, zerolog.New(zerolog.NewTestWriter(t)))
	serverRoot.Start(ctx, zerolog.New(zerolog.NewTestWriter(t)))

	comClient, comServer := bus.NewLoopbackPair(clientRoot, serverRoot)
	clientRoot.AddCom(comClient)
	serverRoot.AddCom(comServer)
	go comClient.Start(ctx)
	go comServer.Start(ctx)

	channel := bus.NewChannel()
	client := NewClient(clientRoot, channel, service, nil, zerolog.New(zerolog.NewTestWriter(t)))
	server := NewServer(serverRoot, channel, service, zerolog.New(zerolog.NewTestWriter(t)))

	return client, server
}

func dumpArg(t *testing.T, a jsonx.AST) any {
	t.Helper()
	v, err := jsonx.Py.Dump(a)
	if err != nil {
		t.Fatalf("Py.Dump: %v", err)
	}
	return v
}

func TestCallWithReturn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, server := newTestPair(t, ctx, "svc")
	server.Register("add", func(args map[string]jsonx.AST) ([]any, error) {
		a := dumpArg(t, args["a"]).(int64)
		b := dumpArg(t, args["b"]).(int64)
		return []any{a + b}, nil
	})
	go server.Start(ctx)

	ret, err := client.Call(ctx, "add", map[string]any{"a": int64(2), "b": int64(3)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	values, err := ret.Capture()
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(values) != 1 || values[0] != int64(5) {
		t.Errorf("Capture() = %v, want [5]", values)
	}
}

type boomError struct{}

func (boomError) Error() string         { return "bad" }
func (boomError) CallErrorName() string { return "ValueError" }

func TestCallRaises(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, server := newTestPair(t, ctx, "svc")
	server.Register("boom", func(args map[string]jsonx.AST) ([]any, error) {
		return nil, boomError{}
	})
	go server.Start(ctx)

	ret, err := client.Call(ctx, "boom", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	_, err = ret.Capture()
	if err == nil {
		t.Fatal("Capture() = nil error, want a CallError")
	}

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("Capture() error = %v, want *CallError", err)
	}
	if callErr.Name != "ValueError" || callErr.Message != "bad" {
		t.Errorf("CallError = %+v, want Name=ValueError Message=bad", callErr)
	}
}

func TestBatchedCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, server := newTestPair(t, ctx, "svc")
	server.Register("reset", func(args map[string]jsonx.AST) ([]any, error) {
		return nil, nil
	})
	server.Register("validate", func(args map[string]jsonx.AST) ([]any, error) {
		x := dumpArg(t, args["x"])
		return []any{true, x, x}, nil
	})
	go server.Start(ctx)

	if _, err := client.Call(ctx, "reset", nil, WithBuffer()); err != nil {
		t.Fatalf("buffered reset: %v", err)
	}
	if _, err := client.Call(ctx, "validate", map[string]any{"x": int64(0)}, WithBuffer()); err != nil {
		t.Fatalf("buffered validate(0): %v", err)
	}

	ret, err := client.Call(ctx, "validate", map[string]any{"x": int64(1)})
	if err != nil {
		t.Fatalf("flush validate(1): %v", err)
	}

	all, err := ret.All()
	if err != nil {
		t.Fatalf("All(): %v", err)
	}

	want := [][]any{
		{},
		{true, int64(0), int64(0)},
		{true, int64(1), int64(1)},
	}
	if len(all) != len(want) {
		t.Fatalf("All() = %v, want %v", all, want)
	}
	for i := range want {
		if !reflect.DeepEqual(all[i], want[i]) {
			t.Errorf("entry %d = %v, want %v", i, all[i], want[i])
		}
	}
}

func TestDuplicateSuppression(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverRoot := bus.NewRoot()
	serverRoot.Start(ctx, zerolog.New(zerolog.NewTestWriter(t)))
	channel := bus.NewChannel()
	server := NewServer(serverRoot, channel, "svc", zerolog.New(zerolog.NewTestWriter(t)))

	var calls int32
	server.Register("count", func(args map[string]jsonx.AST) ([]any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	})

	msgID := newMsgID()
	req := request{
		MsgID:   msgID,
		Service: "svc",
		NoRet:   true,
		Calls:   []call{{Func: "count", Args: map[string]jsonx.AST{}}},
	}
	msg := bus.Message{Channel: channel, Value: buildRequest(req)}

	server.handle(msg)
	server.handle(msg)

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("count invoked %d times, want 1", got)
	}
}

func TestAtLeastOnceResendObservesCachedReply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverRoot := bus.NewRoot()
	clientRoot := bus.NewRoot()
	serverRoot.Start(ctx, zerolog.New(zerolog.NewTestWriter(t)))
	clientRoot.Start(ctx, zerolog.New(zerolog.NewTestWriter(t)))

	comClient, comServer := bus.NewLoopbackPair(clientRoot, serverRoot)
	clientRoot.AddCom(comClient)
	serverRoot.AddCom(comServer)
	go comClient.Start(ctx)
	go comServer.Start(ctx)

	channel := bus.NewChannel()
	server := NewServer(serverRoot, channel, "svc", zerolog.New(zerolog.NewTestWriter(t)))

	var calls int32
	server.Register("count", func(args map[string]jsonx.AST) ([]any, error) {
		atomic.AddInt32(&calls, 1)
		return []any{"ok"}, nil
	})
	go server.Start(ctx)

	msgID := newMsgID()
	req := request{
		MsgID:   msgID,
		Service: "svc",
		NoRet:   false,
		Calls:   []call{{Func: "count", Args: map[string]jsonx.AST{}}},
	}

	clientRoot.Send(channel, buildRequest(req))
	first, err := clientRoot.Recv(2 * time.Second)
	if err != nil {
		t.Fatalf("first Recv: %v", err)
	}
	if _, err := parseReply(first.Value); err != nil {
		t.Fatalf("parseReply(first): %v", err)
	}

	// Resend the identical request, simulating the first reply having
	// been dropped in flight: the server must not re-execute, but must
	// still emit an observable reply.
	clientRoot.Send(channel, buildRequest(req))
	second, err := clientRoot.Recv(2 * time.Second)
	if err != nil {
		t.Fatalf("second Recv: %v", err)
	}
	rep, err := parseReply(second.Value)
	if err != nil {
		t.Fatalf("parseReply(second): %v", err)
	}
	if rep.MsgID != msgID {
		t.Errorf("resend reply msg_id mismatch")
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("count invoked %d times across resend, want 1", got)
	}
}
