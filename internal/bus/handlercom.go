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
	"net"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/centbus/ether/internal/jsonx"
)

// HandlerCom is created per accepted peer by a ServerCom. It performs
// the channel handshake and then interleaves wire receive with
// queued-outgoing send, filtering sends to only the channel it was
// handshaked on.
type HandlerCom struct {
	com
	conn    *websocket.Conn
	channel Channel
	logger  zerolog.Logger
}

// NewHandlerCom wraps an already-upgraded *websocket.Conn. The caller
// (ServerCom) must still call Start.
func NewHandlerCom(parent *Root, conn *websocket.Conn, logger zerolog.Logger) *HandlerCom {
	return &HandlerCom{
		com:    newCom(parent),
		conn:   conn,
		logger: logger,
	}
}

// Start performs the handshake and, on success, runs the send/receive
// loop until the connection closes, Stop is called, or ctx is done.
func (h *HandlerCom) Start(ctx context.Context) error {
	defer h.close()

	if err := h.handshake(); err != nil {
		h.logger.Warn().Err(err).Msg("handshake failed")
		return err
	}

	h.logger.Info().Str("channel", h.channel.String()).Msg("auth")

	for h.Active() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		event, err := h.events.Get(tickTimeout)
		if err != nil {
			h.recv()
			continue
		}

		switch event {
		case EventStop:
			return nil
		case EventNewOutgoing:
			h.send()
		}
	}

	return nil
}

// ErrBinaryHandshake is returned by HandlerCom's handshake when the
// first frame from a newly accepted peer is binary instead of text:
// the channel handshake is always a text frame carrying the hex
// channel id.
var ErrBinaryHandshake = errors.New("bus: handshake frame must be text")

func (h *HandlerCom) handshake() error {
	msgType, data, err := h.conn.ReadMessage()
	if err != nil {
		return err
	}
	if msgType != websocket.TextMessage {
		return ErrBinaryHandshake
	}

	channel, err := ParseChannel(string(data))
	if err != nil {
		return err
	}

	h.channel = channel
	return nil
}

func (h *HandlerCom) send() {
	msg, err := h.outgoing.Get(0)
	if err != nil {
		return
	}
	if msg.Channel != h.channel {
		return
	}

	data, err := jsonx.JSONx.Dump(msg.Value)
	if err != nil {
		h.logger.Warn().Err(err).Msg("encode outgoing message")
		return
	}

	if err := h.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Warn().Err(err).Str("channel", h.channel.String()).Msg("disconnect on send")
		h.Stop()
	}
}

func (h *HandlerCom) recv() {
	_ = h.conn.SetReadDeadline(time.Now().Add(tickTimeout))

	msgType, data, err := h.conn.ReadMessage()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			// A tickless wake-up with nothing to read yet; normal.
			return
		}

		if websocket.IsUnexpectedCloseError(err) || errors.Is(err, websocket.ErrCloseSent) {
			h.logger.Debug().Str("channel", h.channel.String()).Msg("disconnect")
		}
		h.Stop()
		return
	}

	if msgType != websocket.TextMessage {
		h.logger.Warn().Str("channel", h.channel.String()).Msg("invalid_packet: non-text frame")
		return
	}

	ast, err := jsonx.JSONx.Load(data)
	if err != nil {
		h.logger.Warn().Err(err).Str("channel", h.channel.String()).Msg("invalid_packet")
		return
	}

	h.incoming.Put(Message{Channel: h.channel, Value: ast})
	h.parent.AddEvent(EventNewIncoming)
}

func (h *HandlerCom) close() {
	h.deactivate()
	_ = h.conn.Close()
	if h.parent != nil {
		h.parent.AddEvent(EventComStopped)
	}
}
