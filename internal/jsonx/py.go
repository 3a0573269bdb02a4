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

import "reflect"

// Py lifts native Go values into the AST and lowers them back. It
// holds no state.
var Py py

type py struct{}

// Load lifts x into an AST node. Maps and slices are walked
// recursively; any other concrete type is looked up in the custom-type
// registry.
func (py) Load(x any) (AST, error) {
	switch v := x.(type) {
	case nil:
		return NewNull(), nil
	case bool:
		return NewBool(v), nil
	case int:
		return NewInt(int64(v)), nil
	case int32:
		return NewInt(int64(v)), nil
	case int64:
		return NewInt(v), nil
	case float32:
		return NewFloat(float64(v)), nil
	case float64:
		return NewFloat(v), nil
	case []byte:
		return NewBytes(v), nil
	case string:
		return NewString(v), nil
	case []any:
		out := make([]AST, len(v))
		for i, item := range v {
			node, err := Py.Load(item)
			if err != nil {
				return AST{}, err
			}
			out[i] = node
		}
		return NewArray(out), nil
	case map[string]any:
		entries := make([]MapEntry, 0, len(v))
		for k, val := range v {
			kNode, err := Py.Load(k)
			if err != nil {
				return AST{}, err
			}
			vNode, err := Py.Load(val)
			if err != nil {
				return AST{}, err
			}
			entries = append(entries, MapEntry{Key: kNode, Value: vNode})
		}
		return NewMap(entries), nil
	default:
		return py{}.loadCustom(x)
	}
}

func (py) loadCustom(x any) (AST, error) {
	t := reflect.TypeOf(x)
	name, ok := defaultRegistry.nameOf(t)
	if !ok {
		return AST{}, dataErrf("", ErrUnregisteredType)
	}

	load, ok := defaultRegistry.loadFunc(name)
	if !ok {
		return AST{}, dataErr("load is not defined for " + name)
	}

	payload, err := load(x)
	if err != nil {
		return AST{}, err
	}

	return NewCustom(name, payload), nil
}

// Dump lowers an AST node back into a native Go value: nil, bool,
// int64, float64, []byte, string, []any, map[string]any, or whatever a
// registered custom type's DumpFunc returns.
func (py) Dump(a AST) (any, error) {
	switch a.Kind {
	case Null:
		return nil, nil
	case Bool:
		return a.Bool(), nil
	case Int:
		return a.Int(), nil
	case Float:
		return a.Float(), nil
	case Bytes:
		return a.BytesVal(), nil
	case String:
		return a.Str(), nil
	case Array:
		out := make([]any, len(a.Array))
		for i, item := range a.Array {
			v, err := Py.Dump(item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case Map:
		out := make(map[string]any, len(a.Entries))
		for _, e := range a.Entries {
			k, err := Py.Dump(e.Key)
			if err != nil {
				return nil, err
			}
			ks, ok := k.(string)
			if !ok {
				return nil, dataErr("map key dumped to non-string outside JSON round-trip")
			}
			v, err := Py.Dump(e.Value)
			if err != nil {
				return nil, err
			}
			out[ks] = v
		}
		return out, nil
	case Custom:
		name := a.CustomName()
		dump, ok := defaultRegistry.dumpFunc(name)
		if !ok {
			return nil, dataErr("dump is not defined for " + name)
		}
		return dump(a.CustomPayload())
	default:
		return nil, dataErr("unknown AST kind")
	}
}
