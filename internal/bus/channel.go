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

// Package bus implements the repeater's runtime: a Root multiplexing an
// application-facing send/receive interface across any number of Com
// endpoints (WebSocket server, WebSocket client, or in-process
// loopback).
package bus

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// Channel is the 16-byte fan-out group identifier exchanged as a
// 32-character lowercase hex string on the wire.
type Channel [16]byte

// BridgeChannel and BroadcastChannel are two reserved channel values.
// The repeater in this package treats them exactly like any other
// channel: plain per-channel fan-out, no special-cased
// broadcast-to-everyone behavior. Do not "fix" this into a
// cross-channel broadcast; no component currently needs it.
var (
	BridgeChannel    = Channel{}
	BroadcastChannel = Channel{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	}
)

// NewChannel generates a fresh random Channel.
func NewChannel() Channel {
	return Channel(uuid.New())
}

// ParseChannel decodes a 32-character lowercase hex string into a
// Channel. Any other length, or non-hex input, is an error — this is
// the handshake validation HandlerCom requires.
func ParseChannel(s string) (Channel, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Channel{}, fmt.Errorf("bus: invalid channel hex: %w", err)
	}
	if len(raw) != 16 {
		return Channel{}, fmt.Errorf("bus: invalid channel length %d, want 16", len(raw))
	}

	var c Channel
	copy(c[:], raw)
	return c, nil
}

// String renders the channel as a 32-character lowercase hex string.
func (c Channel) String() string {
	return hex.EncodeToString(c[:])
}
