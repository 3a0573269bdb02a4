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

import (
	"reflect"
	"testing"
)

type point struct {
	X, Y int
}

func registerPoint(t *testing.T) {
	t.Helper()
	Register("point", point{},
		func(v any) (AST, error) {
			p := v.(point)
			return NewArray([]AST{NewInt(int64(p.X)), NewInt(int64(p.Y))}), nil
		},
		func(a AST) (any, error) {
			return point{X: int(a.Array[0].Int()), Y: int(a.Array[1].Int())}, nil
		},
	)
}

func TestRoundTrip(t *testing.T) {
	registerPoint(t)

	tests := []struct {
		name string
		in   any
	}{
		{"null", nil},
		{"bool", true},
		{"int", int64(42)},
		{"float", 3.5},
		{"bytes", []byte{0x00, 0x01, 0xff}},
		{"string", "hello"},
		{"array", []any{int64(1), "two", 3.0}},
		{"map", map[string]any{"a": int64(1), "b": "two"}},
		{"custom", point{X: 1, Y: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lifted, err := Py.Load(tt.in)
			if err != nil {
				t.Fatalf("Py.Load: %v", err)
			}

			loaded, err := JSONx.astLoad(JSONx.astDump(lifted))
			if err != nil {
				t.Fatalf("astLoad(astDump): %v", err)
			}

			got, err := Py.Dump(loaded)
			if err != nil {
				t.Fatalf("Py.Dump: %v", err)
			}

			if !reflect.DeepEqual(got, tt.in) {
				t.Errorf("round trip = %#v, want %#v", got, tt.in)
			}
		})
	}
}

func TestDumpLoadWireRoundTrip(t *testing.T) {
	m := map[string]any{
		"k":   []byte{0x00, 0x01, 0xff},
		"txt": "hello world",
		"n":   int64(7),
	}

	lifted, err := Py.Load(m)
	if err != nil {
		t.Fatalf("Py.Load: %v", err)
	}

	data, err := JSONx.Dump(lifted)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}

	loaded, err := JSONx.Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got, err := Py.Dump(loaded)
	if err != nil {
		t.Fatalf("Py.Dump: %v", err)
	}

	if !reflect.DeepEqual(got, m) {
		t.Errorf("wire round trip = %#v, want %#v", got, m)
	}
}

func TestBytesEscapeOnWire(t *testing.T) {
	m := map[string]any{"k": []byte{0x00, 0x01, 0xff}}

	lifted, err := Py.Load(m)
	if err != nil {
		t.Fatalf("Py.Load: %v", err)
	}

	data, err := JSONx.Dump(lifted)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}

	want := `{"k":["__jsonx__","bytes","0001ff"]}`
	if string(data) != want {
		t.Errorf("wire form = %s, want %s", data, want)
	}
}

func TestEscapeDistinctness(t *testing.T) {
	tests := []struct {
		name    string
		array   []any
		wantErr bool
	}{
		{"plain array", []any{int64(1), int64(2), int64(3)}, false},
		{"unrelated two-string array", []any{"__jsonx__", "nope"}, false},
		{"unknown marker", []any{"__jsonx__", "nope", "x"}, true},
		{"bytes escape", []any{"__jsonx__", "bytes", "0a"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ast, err := Py.Load(tt.array)
			if err != nil {
				t.Fatalf("Py.Load: %v", err)
			}

			_, err = JSONx.astLoad(ast)
			if (err != nil) != tt.wantErr {
				t.Errorf("astLoad() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDumpRejectsScalarRoot(t *testing.T) {
	ast, _ := Py.Load("hello")
	if _, err := JSONx.Dump(ast); err != ErrInvalidRoot {
		t.Errorf("Dump() error = %v, want ErrInvalidRoot", err)
	}
}
