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
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/centbus/ether/internal/jsonx"
)

// ClientCom dials a remote repeater and sends the channel as the first
// text frame, then runs the same send/receive loop as HandlerCom.
// Symmetric to HandlerCom's handshake.
type ClientCom struct {
	com
	uri     string
	channel Channel
	conn    *websocket.Conn
	logger  zerolog.Logger
}

// NewClientCom prepares a ClientCom for uri/channel. Dialing happens in
// Start, bounded by a sub-context timeout so a stalled handshake can't
// hang the caller indefinitely.
func NewClientCom(parent *Root, uri string, channel Channel, logger zerolog.Logger) *ClientCom {
	return &ClientCom{
		com:     newCom(parent),
		uri:     uri,
		channel: channel,
		logger:  logger,
	}
}

// Start dials the relay, sends the channel handshake, and runs the
// send/receive loop until ctx is done or Stop is called.
func (c *ClientCom) Start(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, c.uri, nil)
	if err != nil {
		c.logger.Err(err).Str("uri", c.uri).Msg("dial relay")
		return fmt.Errorf("bus: dial %s: %w", c.uri, err)
	}
	if resp != nil {
		defer resp.Body.Close()
	}
	c.conn = conn

	c.logger.Info().Str("uri", c.uri).Msg("connecting to ws_jsonx server")

	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(c.channel.String())); err != nil {
		_ = c.conn.Close()
		return fmt.Errorf("bus: channel handshake: %w", err)
	}

	defer c.close()

	for c.Active() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		event, err := c.events.Get(tickTimeout)
		if err != nil {
			c.recv()
			continue
		}

		switch event {
		case EventStop:
			return nil
		case EventNewOutgoing:
			c.send()
		}
	}

	return nil
}

func (c *ClientCom) send() {
	msg, err := c.outgoing.Get(0)
	if err != nil {
		return
	}
	if msg.Channel != c.channel {
		return
	}

	data, err := jsonx.JSONx.Dump(msg.Value)
	if err != nil {
		c.logger.Warn().Err(err).Msg("encode outgoing message")
		return
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Warn().Err(err).Str("channel", c.channel.String()).Msg("disconnect on send")
		c.Stop()
	}
}

func (c *ClientCom) recv() {
	_ = c.conn.SetReadDeadline(time.Now().Add(tickTimeout))

	msgType, data, err := c.conn.ReadMessage()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return
		}

		if websocket.IsUnexpectedCloseError(err) || errors.Is(err, websocket.ErrCloseSent) {
			c.logger.Debug().Str("channel", c.channel.String()).Msg("disconnect")
		}
		c.Stop()
		return
	}

	if msgType != websocket.TextMessage {
		c.logger.Warn().Str("channel", c.channel.String()).Msg("invalid_packet: non-text frame")
		return
	}

	ast, err := jsonx.JSONx.Load(data)
	if err != nil {
		c.logger.Warn().Err(err).Str("channel", c.channel.String()).Msg("invalid_packet")
		return
	}

	c.incoming.Put(Message{Channel: c.channel, Value: ast})
	c.parent.AddEvent(EventNewIncoming)
}

func (c *ClientCom) close() {
	c.deactivate()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	if c.parent != nil {
		c.parent.AddEvent(EventComStopped)
	}
}
