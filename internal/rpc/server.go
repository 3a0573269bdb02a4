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
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/centbus/ether/internal/bus"
	"github.com/centbus/ether/internal/jsonx"
)

// Func is a registered remote procedure: args is the call's named
// argument map straight off the wire, and the returned slice is
// normalized into the reply's values list. Adapting a human-readable Go
// signature to this shape is the registrant's responsibility at
// registration time; RegisterTyped does this automatically for
// struct-shaped args.
type Func func(args map[string]jsonx.AST) ([]any, error)

// NamedError lets a registered Func's error carry a stable name into
// the reply's error_name slot, the closest Go analogue to Python's
// e.__class__.__name__. Errors that don't implement it fall back to
// their concrete type's name.
type NamedError interface {
	error
	CallErrorName() string
}

func errorName(err error) string {
	var named NamedError
	if errors.As(err, &named) {
		return named.CallErrorName()
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return "error"
	}
	return t.Name()
}

// Server owns a service name, a function registry, an embedded Root
// already wired to a relay-facing Com on the agreed channel, and a
// BoundSet for msg_id dedup.
type Server struct {
	*bus.Root

	service string
	channel bus.Channel
	logger  zerolog.Logger

	mu    sync.RWMutex
	funcs map[string]Func

	seen *bus.BoundSet

	cacheMu sync.Mutex
	cache   map[[16]byte]cachedReply
}

// cachedReply lets the server resend a previously computed reply for a
// duplicate msg_id without re-executing: a resend must never re-run the
// calls, but it still needs to produce a reply the client can observe,
// so the reply already computed for that msg_id is replayed instead.
type cachedReply struct {
	value jsonx.AST
	seen  time.Time
}

// NewServer builds a Server bound to an already-started Root. channel
// is the agreed fan-out group both client and server publish/subscribe
// on; Start reads every message the Root fans into its incoming queue
// and ignores any not addressed to this channel and service.
func NewServer(root *bus.Root, channel bus.Channel, service string, logger zerolog.Logger) *Server {
	return &Server{
		Root:    root,
		service: service,
		channel: channel,
		logger:  logger.With().Str("component", "rpc.Server").Str("service", service).Logger(),
		funcs:   make(map[string]Func),
		seen:    bus.NewBoundSet(bus.DefaultBoundSetTTL, bus.DefaultBoundSetSize),
	}
}

// Register adds fn to the registry under name. Registration is
// expected at program start, but Register itself is safe to call
// concurrently with Start.
func (s *Server) Register(name string, fn Func) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funcs[name] = fn
}

func (s *Server) lookup(name string) (Func, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn, ok := s.funcs[name]
	return fn, ok
}

// Start runs the validate/dispatch/reply loop until ctx is done. It
// never returns an error from the bus layer: transport and decode
// failures are logged and the offending message dropped.
func (s *Server) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg, err := s.Recv(time.Second)
		if err != nil {
			continue
		}

		s.handle(msg)
	}
}

func (s *Server) handle(msg bus.Message) {
	if msg.Channel != s.channel {
		return
	}

	req, err := parseRequest(msg.Value)
	if err != nil {
		s.logger.Debug().Err(err).Msg("dropping malformed call message")
		return
	}

	if req.Service != s.service {
		return
	}

	if s.seen.Check(req.MsgID) {
		s.logger.Debug().Msg("duplicate msg_id, resending cached reply without re-executing")
		s.resendCached(msg.Channel, req.MsgID)
		return
	}

	fns := make([]Func, len(req.Calls))
	for i, c := range req.Calls {
		fn, ok := s.lookup(c.Func)
		if !ok {
			s.logger.Debug().Str("func", c.Func).Msg("dropping call: function not registered")
			return
		}
		fns[i] = fn
	}

	rets := make([]ret, len(req.Calls))
	for i, c := range req.Calls {
		values, err := s.invoke(fns[i], c.Args)
		if err != nil {
			s.logger.Debug().Err(err).Str("func", c.Func).Msg("call raised")
			rets[i] = ret{Success: false, Values: []any{errorName(err), err.Error()}}
			continue
		}
		rets[i] = ret{Success: true, Values: values}
	}

	if req.NoRet {
		return
	}

	replyAST := buildReply(reply{MsgID: req.MsgID, Rets: rets})
	s.cacheReply(req.MsgID, replyAST)
	s.Send(msg.Channel, replyAST)
}

func (s *Server) cacheReply(msgID [16]byte, value jsonx.AST) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if s.cache == nil {
		s.cache = make(map[[16]byte]cachedReply)
	}
	s.cache[msgID] = cachedReply{value: value, seen: time.Now()}

	if len(s.cache) > bus.DefaultBoundSetSize {
		s.evictCacheLocked()
	}
}

func (s *Server) evictCacheLocked() {
	cutoff := time.Now().Add(-bus.DefaultBoundSetTTL)

	var stale [][16]byte
	for id, c := range s.cache {
		if c.seen.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(s.cache, id)
	}
}

func (s *Server) resendCached(channel bus.Channel, msgID [16]byte) {
	s.cacheMu.Lock()
	cached, ok := s.cache[msgID]
	s.cacheMu.Unlock()

	if !ok {
		return
	}
	s.Send(channel, cached.value)
}

// invoke calls fn, converting a panic into an error so a registrant's
// bug never takes the worker loop down with it.
func (s *Server) invoke(fn Func, args map[string]jsonx.AST) (values []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(args)
}
