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

// Package jsonx implements the AST-based codec that carries arbitrary
// native values, including byte blobs and registered custom types, over
// plain JSON.
package jsonx

import (
	"errors"
	"fmt"
)

// DataException is returned whenever a value cannot be lifted into the
// AST, or an encoded AST cannot be rendered to or parsed from JSON.
type DataException struct {
	msg string
	err error
}

func (e *DataException) Error() string {
	if e.err != nil {
		return fmt.Sprintf("jsonx: %s: %v", e.msg, e.err)
	}
	return "jsonx: " + e.msg
}

func (e *DataException) Unwrap() error { return e.err }

func dataErr(msg string) error {
	return &DataException{msg: msg}
}

func dataErrf(msg string, err error) error {
	return &DataException{msg: msg, err: err}
}

// ErrInvalidRoot is returned by Dump when the AST about to be rendered is
// not a Map or Array at its root.
var ErrInvalidRoot = dataErr("root AST must be MAP or ARRAY")

// ErrUnknownEscape is returned by Load when an array uses the
// "__jsonx__" escape marker with an unrecognized second element.
var ErrUnknownEscape = dataErr("unknown __jsonx__ escape marker")

// ErrUnregisteredType is returned when Py.Load encounters a Go value
// whose type has no registered custom-type mapping.
var ErrUnregisteredType = dataErr("unregistered custom type")

// IsDataException reports whether err is, or wraps, a DataException.
func IsDataException(err error) bool {
	var de *DataException
	return errors.As(err, &de)
}
