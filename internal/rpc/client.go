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
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/ratelimit"

	"github.com/centbus/ether/internal/bus"
	"github.com/centbus/ether/internal/jsonx"
)

// replyWindow is how long exec() waits for a correlated reply before
// resending.
const replyWindow = 5 * time.Second

// recvPoll is the per-iteration recv timeout while exec() waits inside
// a single replyWindow, so ctx cancellation is noticed promptly instead
// of blocking for the full window.
const recvPoll = 1 * time.Second

// CallOption configures a single Client.Call invocation.
type CallOption func(*callOpts)

type callOpts struct {
	buffer bool
	noRet  bool
}

// WithBuffer defers the flush: Call appends to the buffered batch and
// returns an empty Ret immediately, without publishing anything.
func WithBuffer() CallOption {
	return func(o *callOpts) { o.buffer = true }
}

// WithNoRet marks the batch as fire-and-forget: the server is told not
// to reply, and exec() synthesizes a success Ret without waiting on the
// wire.
func WithNoRet() CallOption {
	return func(o *callOpts) { o.noRet = true }
}

// Client embeds a Root wired to a single Com on the agreed channel,
// plus the transient buffered batch and a rate limiter bounding the
// resend loop.
type Client struct {
	*bus.Root

	service string
	channel bus.Channel
	logger  zerolog.Logger
	resend  ratelimit.Limiter

	mu       sync.Mutex
	buffered *request
}

// NewClient builds a Client bound to an already-started Root. resend
// bounds how fast exec() may re-publish an unacknowledged batch; pass
// nil for unbounded resend attempts.
func NewClient(root *bus.Root, channel bus.Channel, service string, resend ratelimit.Limiter, logger zerolog.Logger) *Client {
	if resend == nil {
		resend = ratelimit.NewUnlimited()
	}

	return &Client{
		Root:    root,
		service: service,
		channel: channel,
		logger:  logger.With().Str("component", "rpc.Client").Str("service", service).Logger(),
		resend:  resend,
	}
}

// Call accumulates a named function invocation into the client's
// buffered batch and, unless WithBuffer is given, flushes it and waits
// for a correlated Ret.
func (c *Client) Call(ctx context.Context, fn string, args map[string]any, opts ...CallOption) (*Ret, error) {
	var o callOpts
	for _, opt := range opts {
		opt(&o)
	}

	callArgs, err := liftArgs(args)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.buffered == nil {
		c.buffered = &request{
			MsgID:   newMsgID(),
			Service: c.service,
			NoRet:   o.noRet,
			Calls:   nil,
		}
	} else {
		c.buffered.MsgID = newMsgID()
		c.buffered.Service = c.service
		c.buffered.NoRet = o.noRet
	}
	c.buffered.Calls = append(c.buffered.Calls, call{Func: fn, Args: callArgs})
	batch := *c.buffered
	c.mu.Unlock()

	if o.buffer {
		return emptyRet(), nil
	}

	c.mu.Lock()
	c.buffered = nil
	c.mu.Unlock()

	return c.exec(ctx, batch)
}

// exec publishes batch and, unless it is a no_ret batch, waits up to
// replyWindow for a correlated reply, resending on expiry until ctx is
// done. This gives at-least-once delivery; server-side duplicate
// suppression keeps resends idempotent.
func (c *Client) exec(ctx context.Context, batch request) (*Ret, error) {
	c.publish(batch)

	if batch.NoRet {
		rets := make([]ret, len(batch.Calls))
		for i := range rets {
			rets[i] = ret{Success: true}
		}
		return newRet(rets), nil
	}

	for {
		deadline := time.Now().Add(replyWindow)

		for time.Now().Before(deadline) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			msg, err := c.Recv(recvPoll)
			if err != nil {
				continue
			}

			rep, err := parseReply(msg.Value)
			if err != nil {
				c.logger.Debug().Err(err).Msg("dropping malformed reply")
				continue
			}

			if rep.MsgID != batch.MsgID {
				continue
			}

			return newRet(rep.Rets), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		took := make(chan struct{})
		go func() {
			c.resend.Take()
			close(took)
		}()
		select {
		case <-ctx.Done():
			return nil, ErrBackPressure
		case <-took:
		}

		c.logger.Debug().Msg("reply window elapsed, resending batch")
		c.publish(batch)
	}
}

func (c *Client) publish(batch request) {
	c.Send(c.channel, buildRequest(batch))
}

// newMsgID mints a fresh 16-byte call identifier. A Channel and a
// msg_id are both exactly 16 bytes, which is uuid.UUID's underlying
// representation, so both reuse it.
func newMsgID() [16]byte {
	return [16]byte(uuid.New())
}

// liftArgs converts a registrant-facing args map into the AST form the
// wire and parseRequest/buildRequest expect.
func liftArgs(args map[string]any) (map[string]jsonx.AST, error) {
	out := make(map[string]jsonx.AST, len(args))
	for k, v := range args {
		node, err := jsonx.Py.Load(v)
		if err != nil {
			return nil, err
		}
		out[k] = node
	}
	return out, nil
}
