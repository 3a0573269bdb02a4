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

// Ret is the ordered, consumable sequence of per-call results a Call
// returns.
type Ret struct {
	entries []ret
}

// Capture pops the head entry. On success it returns the call's values
// in order; on failure it returns a *CallError. Capture on an empty Ret
// panics with ErrRetEmpty: reading past the number of calls actually
// made is a programmer error, not a runtime condition to recover from.
func (r *Ret) Capture() ([]any, error) {
	if len(r.entries) == 0 {
		panic(ErrRetEmpty)
	}

	head := r.entries[0]
	r.entries = r.entries[1:]

	if !head.Success {
		name, msg := "error", ""
		if len(head.Values) > 0 {
			if s, ok := head.Values[0].(string); ok {
				name = s
			}
		}
		if len(head.Values) > 1 {
			if s, ok := head.Values[1].(string); ok {
				msg = s
			}
		}
		return nil, &CallError{Name: name, Message: msg}
	}

	return head.Values, nil
}

// All drains the Ret via repeated Capture, returning every call's
// values in order. It stops and returns the first error encountered,
// along with the results already captured.
func (r *Ret) All() ([][]any, error) {
	out := make([][]any, 0, len(r.entries))
	for len(r.entries) > 0 {
		values, err := r.Capture()
		if err != nil {
			return out, err
		}
		out = append(out, values)
	}
	return out, nil
}

// Len reports the number of entries remaining to capture.
func (r *Ret) Len() int {
	return len(r.entries)
}

func newRet(rets []ret) *Ret {
	return &Ret{entries: append([]ret(nil), rets...)}
}

func emptyRet() *Ret {
	return &Ret{}
}
