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
	"fmt"
	"net/url"
	"strconv"

	"github.com/gorilla/schema"

	"github.com/centbus/ether/internal/jsonx"
)

var typedDecoder = schema.NewDecoder()

func init() {
	typedDecoder.IgnoreUnknownKeys(true)
}

// RegisterTyped is sugar over Server.Register for a statically typed
// registrant. The incoming args map is flattened to url.Values and
// decoded into a T with gorilla/schema before fn runs, letting a
// function declare its argument shape as a struct instead of walking
// a map[string]jsonx.AST by hand.
func RegisterTyped[T any](s *Server, name string, fn func(T) ([]any, error)) {
	s.Register(name, func(args map[string]jsonx.AST) ([]any, error) {
		values := url.Values{}
		for k, v := range args {
			strs, err := flattenArg(v)
			if err != nil {
				return nil, fmt.Errorf("rpc: arg %q: %w", k, err)
			}
			values[k] = strs
		}

		var t T
		if err := typedDecoder.Decode(&t, values); err != nil {
			return nil, fmt.Errorf("rpc: decode args: %w", err)
		}

		return fn(t)
	})
}

// flattenArg renders a scalar or array AST node into the string form
// gorilla/schema's decoder expects from url.Values.
func flattenArg(a jsonx.AST) ([]string, error) {
	switch a.Kind {
	case jsonx.Bool:
		return []string{strconv.FormatBool(a.Bool())}, nil
	case jsonx.Int:
		return []string{strconv.FormatInt(a.Int(), 10)}, nil
	case jsonx.Float:
		return []string{strconv.FormatFloat(a.Float(), 'g', -1, 64)}, nil
	case jsonx.String:
		return []string{a.Str()}, nil
	case jsonx.Array:
		out := make([]string, 0, len(a.Array))
		for _, item := range a.Array {
			strs, err := flattenArg(item)
			if err != nil {
				return nil, err
			}
			out = append(out, strs...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("rpc: arg kind %s not supported by RegisterTyped", a.Kind)
	}
}
