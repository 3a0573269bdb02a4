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
	"bytes"
	"encoding/hex"
	"encoding/json"
)

const escapeMarker = "__jsonx__"

// JSONx renders an AST to, and parses it from, JSON text, applying the
// two-form "__jsonx__" escape for BYTES and CUSTOM nodes. It holds no
// state; see the package-level registry for custom type lookups.
var JSONx jsonx

type jsonx struct{}

// astDump lowers an AST so that BYTES and CUSTOM nodes are represented
// as plain ARRAYs carrying the "__jsonx__" escape, ready to pass through
// Py.Dump and encoding/json.
func (jsonx) astDump(x AST) AST {
	switch x.Kind {
	case Map:
		out := make([]MapEntry, len(x.Entries))
		for i, e := range x.Entries {
			out[i] = MapEntry{Key: JSONx.astDump(e.Key), Value: JSONx.astDump(e.Value)}
		}
		return NewMap(out)

	case Array:
		out := make([]AST, len(x.Array))
		for i, v := range x.Array {
			out[i] = JSONx.astDump(v)
		}
		return NewArray(out)

	case Bytes:
		return NewArray([]AST{
			NewString(escapeMarker),
			NewString("bytes"),
			NewString(hex.EncodeToString(x.BytesVal())),
		})

	case Custom:
		return NewArray([]AST{
			NewString(escapeMarker),
			NewString("custom"),
			x.Args[0],
			JSONx.astDump(x.CustomPayload()),
		})

	default:
		return x
	}
}

// Dump renders x as JSON text. x must be a MAP or ARRAY at its root.
func (jsonx) Dump(x AST) ([]byte, error) {
	lowered := JSONx.astDump(x)

	if lowered.Kind != Map && lowered.Kind != Array {
		return nil, ErrInvalidRoot
	}

	obj, err := Py.Dump(lowered)
	if err != nil {
		return nil, dataErrf("dump", err)
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return nil, dataErrf("marshal", err)
	}

	return data, nil
}

// astLoad intercepts the "__jsonx__" escape on ARRAYs and reconstructs
// BYTES/CUSTOM nodes; all other ARRAYs and MAPs recurse element-wise.
func (jsonx) astLoad(x AST) (AST, error) {
	switch x.Kind {
	case Map:
		out := make([]MapEntry, len(x.Entries))
		for i, e := range x.Entries {
			k, err := JSONx.astLoad(e.Key)
			if err != nil {
				return AST{}, err
			}
			v, err := JSONx.astLoad(e.Value)
			if err != nil {
				return AST{}, err
			}
			out[i] = MapEntry{Key: k, Value: v}
		}
		return NewMap(out), nil

	case Array:
		if len(x.Array) > 2 && x.Array[0].Kind == String && x.Array[0].Str() == escapeMarker {
			if x.Array[1].Kind != String {
				return AST{}, ErrUnknownEscape
			}
			switch x.Array[1].Str() {
			case "bytes":
				if x.Array[2].Kind != String {
					return AST{}, dataErr("bad bytes escape")
				}
				raw, err := hex.DecodeString(x.Array[2].Str())
				if err != nil {
					return AST{}, dataErrf("bad bytes escape", err)
				}
				return NewBytes(raw), nil
			case "custom":
				if len(x.Array) != 4 {
					return AST{}, dataErr("malformed custom escape")
				}
				payload, err := JSONx.astLoad(x.Array[3])
				if err != nil {
					return AST{}, err
				}
				return AST{Kind: Custom, Args: []AST{x.Array[2]}, Scalar: payload}, nil
			default:
				return AST{}, ErrUnknownEscape
			}
		}

		out := make([]AST, len(x.Array))
		for i, v := range x.Array {
			loaded, err := JSONx.astLoad(v)
			if err != nil {
				return AST{}, err
			}
			out[i] = loaded
		}
		return NewArray(out), nil

	default:
		return x, nil
	}
}

// Load parses JSON text into an AST, resolving "__jsonx__" escapes.
func (jsonx) Load(data []byte) (AST, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return AST{}, dataErrf("invalid JSON", err)
	}

	switch raw.(type) {
	case map[string]any, []any:
	default:
		return AST{}, dataErr("root must be an object or array")
	}

	ast, err := rawJSONToAST(raw)
	if err != nil {
		return AST{}, err
	}

	return JSONx.astLoad(ast)
}

// rawJSONToAST lifts the generic tree produced by encoding/json
// (decoded with UseNumber) into an unclean AST: numbers become Int or
// Float here, but "__jsonx__" escape arrays are still plain ARRAYs;
// astLoad resolves them.
func rawJSONToAST(x any) (AST, error) {
	switch v := x.(type) {
	case nil:
		return NewNull(), nil
	case bool:
		return NewBool(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return NewInt(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return AST{}, dataErrf("bad number literal", err)
		}
		return NewFloat(f), nil
	case string:
		return NewString(v), nil
	case []any:
		out := make([]AST, len(v))
		for i, item := range v {
			node, err := rawJSONToAST(item)
			if err != nil {
				return AST{}, err
			}
			out[i] = node
		}
		return NewArray(out), nil
	case map[string]any:
		entries := make([]MapEntry, 0, len(v))
		for k, val := range v {
			node, err := rawJSONToAST(val)
			if err != nil {
				return AST{}, err
			}
			entries = append(entries, MapEntry{Key: NewString(k), Value: node})
		}
		return NewMap(entries), nil
	default:
		return AST{}, dataErr("unsupported JSON value")
	}
}
