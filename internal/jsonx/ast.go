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

package jsonx

// Kind tags the shape of a value carried by an AST node.
type Kind int

const (
	Null Kind = iota
	Bool
	Int
	Float
	Bytes
	String
	Array
	Map
	Custom
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "NULL"
	case Bool:
		return "BOOL"
	case Int:
		return "INT"
	case Float:
		return "FLOAT"
	case Bytes:
		return "BYTES"
	case String:
		return "STRING"
	case Array:
		return "ARRAY"
	case Map:
		return "MAP"
	case Custom:
		return "CUSTOM"
	default:
		return "UNKNOWN"
	}
}

// MapEntry is a single key/value pair of a Map-kind AST node. Keys are
// themselves AST nodes, not restricted to strings: the JSON encoding
// restricts the outermost object's keys to strings, but the AST does
// not.
type MapEntry struct {
	Key   AST
	Value AST
}

// AST is the tagged intermediate representation every value passes
// through on its way to, or from, the wire. For non-Custom kinds the
// payload lives in Scalar, Array or Entries depending on Kind; it is
// never itself an AST node. For Custom, Args[0] is a String-kind AST
// naming the registered type and Scalar holds the AST encoding of the
// raw datum.
type AST struct {
	Kind    Kind
	Scalar  any // Bool, Int (int64), Float (float64), Bytes ([]byte), String (string)
	Array   []AST
	Entries []MapEntry
	Args    []AST
}

// NewNull returns the sentinel NULL node.
func NewNull() AST { return AST{Kind: Null} }

// NewBool wraps a boolean scalar.
func NewBool(v bool) AST { return AST{Kind: Bool, Scalar: v} }

// NewInt wraps an integer scalar.
func NewInt(v int64) AST { return AST{Kind: Int, Scalar: v} }

// NewFloat wraps an IEEE-754 double scalar.
func NewFloat(v float64) AST { return AST{Kind: Float, Scalar: v} }

// NewBytes wraps a byte-string scalar.
func NewBytes(v []byte) AST { return AST{Kind: Bytes, Scalar: v} }

// NewString wraps a UTF-8 string scalar.
func NewString(v string) AST { return AST{Kind: String, Scalar: v} }

// NewArray wraps an ordered sequence of already-lifted nodes.
func NewArray(v []AST) AST { return AST{Kind: Array, Array: v} }

// NewMap wraps an ordered sequence of key/value node pairs.
func NewMap(entries []MapEntry) AST { return AST{Kind: Map, Entries: entries} }

// NewCustom wraps the raw encoding of a registered custom type.
func NewCustom(name string, payload AST) AST {
	return AST{Kind: Custom, Args: []AST{NewString(name)}, Scalar: payload}
}

// Bool returns the underlying bool; only valid when Kind == Bool.
func (a AST) Bool() bool { return a.Scalar.(bool) }

// Int returns the underlying int64; only valid when Kind == Int.
func (a AST) Int() int64 { return a.Scalar.(int64) }

// Float returns the underlying float64; only valid when Kind == Float.
func (a AST) Float() float64 { return a.Scalar.(float64) }

// BytesVal returns the underlying byte slice; only valid when Kind == Bytes.
func (a AST) BytesVal() []byte { return a.Scalar.([]byte) }

// Str returns the underlying string; only valid when Kind == String.
func (a AST) Str() string { return a.Scalar.(string) }

// CustomPayload returns the AST encoding of a Custom node's raw datum;
// only valid when Kind == Custom.
func (a AST) CustomPayload() AST { return a.Scalar.(AST) }

// CustomName returns the registered type name of a Custom node; only
// valid when Kind == Custom.
func (a AST) CustomName() string { return a.Args[0].Str() }

// MapGet looks up a value by a string key, for the common case of a
// Map whose keys are all String-kind nodes (true of every JSONx
// envelope produced by this package's own Dump path).
func (a AST) MapGet(key string) (AST, bool) {
	for _, e := range a.Entries {
		if e.Key.Kind == String && e.Key.Scalar == key {
			return e.Value, true
		}
	}
	return AST{}, false
}
