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
	"errors"
	"fmt"
)

// CallError wraps a remote function's failure, surfaced by Ret.Capture.
// It mirrors a "{error_name} - {error_message}" exception text, but
// keeps the two parts addressable for callers that want to match on
// error_name with errors.As.
type CallError struct {
	Name    string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s - %s", e.Name, e.Message)
}

// ErrRetEmpty is the panic value raised by Ret.Capture on an empty Ret.
var ErrRetEmpty = errors.New("rpc: capture on empty Ret")

// ErrBackPressure is returned by Client.exec when ctx is cancelled
// while the resend rate limiter is holding the call back, so callers
// can distinguish "gave up waiting on the limiter" from "gave up
// waiting on a reply".
var ErrBackPressure = errors.New("rpc: back pressure, call would block past context deadline")
