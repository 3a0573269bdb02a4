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

	"github.com/centbus/ether/internal/jsonx"
)

// ErrMalformed is returned when an inbound AST does not shape up as a
// valid Call request or reply. The server and client both treat it as
// "silently drop", never propagating it to the application.
var ErrMalformed = errors.New("rpc: malformed call message")

// call is one [func_name, args_map] pair inside a request's calls list.
type call struct {
	Func string
	Args map[string]jsonx.AST
}

// request is the decoded shape of {msg_id, service, no_ret, calls}.
type request struct {
	MsgID   [16]byte
	Service string
	NoRet   bool
	Calls   []call
}

// ret is one [success, values] pair inside a reply's rets list.
type ret struct {
	Success bool
	Values  []any
}

// reply is the decoded shape of {msg_id, rets}.
type reply struct {
	MsgID [16]byte
	Rets  []ret
}

func astString(s string) jsonx.AST { return jsonx.NewString(s) }

func astBytes16(id [16]byte) jsonx.AST { return jsonx.NewBytes(id[:]) }

// buildRequest renders a request struct into the {msg_id, service,
// no_ret, calls} AST shape Root/Com traffic expects.
func buildRequest(r request) jsonx.AST {
	calls := make([]jsonx.AST, len(r.Calls))
	for i, c := range r.Calls {
		entries := make([]jsonx.MapEntry, 0, len(c.Args))
		for k, v := range c.Args {
			entries = append(entries, jsonx.MapEntry{Key: astString(k), Value: v})
		}
		calls[i] = jsonx.NewArray([]jsonx.AST{astString(c.Func), jsonx.NewMap(entries)})
	}

	return jsonx.NewMap([]jsonx.MapEntry{
		{Key: astString("msg_id"), Value: astBytes16(r.MsgID)},
		{Key: astString("service"), Value: astString(r.Service)},
		{Key: astString("no_ret"), Value: jsonx.NewBool(r.NoRet)},
		{Key: astString("calls"), Value: jsonx.NewArray(calls)},
	})
}

// parseRequest validates and decodes an inbound AST node into a
// request, checking field presence, types, and lengths. Any shape
// mismatch returns ErrMalformed, which callers must treat as a silent
// drop, never a protocol error reply.
func parseRequest(v jsonx.AST) (request, error) {
	if v.Kind != jsonx.Map {
		return request{}, ErrMalformed
	}

	msgIDNode, ok := v.MapGet("msg_id")
	if !ok || msgIDNode.Kind != jsonx.Bytes || len(msgIDNode.BytesVal()) != 16 {
		return request{}, ErrMalformed
	}

	serviceNode, ok := v.MapGet("service")
	if !ok || serviceNode.Kind != jsonx.String {
		return request{}, ErrMalformed
	}

	noRetNode, ok := v.MapGet("no_ret")
	if !ok || noRetNode.Kind != jsonx.Bool {
		return request{}, ErrMalformed
	}

	callsNode, ok := v.MapGet("calls")
	if !ok || callsNode.Kind != jsonx.Array {
		return request{}, ErrMalformed
	}

	calls := make([]call, len(callsNode.Array))
	for i, entry := range callsNode.Array {
		if entry.Kind != jsonx.Array || len(entry.Array) != 2 {
			return request{}, ErrMalformed
		}
		funcNode, argsNode := entry.Array[0], entry.Array[1]
		if funcNode.Kind != jsonx.String || argsNode.Kind != jsonx.Map {
			return request{}, ErrMalformed
		}

		args := make(map[string]jsonx.AST, len(argsNode.Entries))
		for _, e := range argsNode.Entries {
			if e.Key.Kind != jsonx.String {
				return request{}, ErrMalformed
			}
			args[e.Key.Str()] = e.Value
		}

		calls[i] = call{Func: funcNode.Str(), Args: args}
	}

	var msgID [16]byte
	copy(msgID[:], msgIDNode.BytesVal())

	return request{
		MsgID:   msgID,
		Service: serviceNode.Str(),
		NoRet:   noRetNode.Bool(),
		Calls:   calls,
	}, nil
}

// buildReply renders a reply struct into the {msg_id, rets} shape.
func buildReply(r reply) jsonx.AST {
	rets := make([]jsonx.AST, len(r.Rets))
	for i, ret := range r.Rets {
		values := make([]jsonx.AST, len(ret.Values))
		for j, v := range ret.Values {
			node, err := jsonx.Py.Load(v)
			if err != nil {
				// A value a registered Func returned that the codec
				// cannot lift is a registrant bug; surface it as a
				// string rather than silently dropping data.
				node = astString(err.Error())
			}
			values[j] = node
		}
		rets[i] = jsonx.NewArray([]jsonx.AST{jsonx.NewBool(ret.Success), jsonx.NewArray(values)})
	}

	return jsonx.NewMap([]jsonx.MapEntry{
		{Key: astString("msg_id"), Value: astBytes16(r.MsgID)},
		{Key: astString("rets"), Value: jsonx.NewArray(rets)},
	})
}

// parseReply is the client-side counterpart of parseRequest, validating
// {msg_id, rets} shape before correlation is attempted.
func parseReply(v jsonx.AST) (reply, error) {
	if v.Kind != jsonx.Map {
		return reply{}, ErrMalformed
	}

	msgIDNode, ok := v.MapGet("msg_id")
	if !ok || msgIDNode.Kind != jsonx.Bytes || len(msgIDNode.BytesVal()) != 16 {
		return reply{}, ErrMalformed
	}

	retsNode, ok := v.MapGet("rets")
	if !ok || retsNode.Kind != jsonx.Array {
		return reply{}, ErrMalformed
	}

	rets := make([]ret, len(retsNode.Array))
	for i, entry := range retsNode.Array {
		if entry.Kind != jsonx.Array || len(entry.Array) != 2 {
			return reply{}, ErrMalformed
		}
		successNode, valuesNode := entry.Array[0], entry.Array[1]
		if successNode.Kind != jsonx.Bool || valuesNode.Kind != jsonx.Array {
			return reply{}, ErrMalformed
		}

		values := make([]any, len(valuesNode.Array))
		for j, node := range valuesNode.Array {
			v, err := jsonx.Py.Dump(node)
			if err != nil {
				return reply{}, ErrMalformed
			}
			values[j] = v
		}

		rets[i] = ret{Success: successNode.Bool(), Values: values}
	}

	var msgID [16]byte
	copy(msgID[:], msgIDNode.BytesVal())

	return reply{MsgID: msgID, Rets: rets}, nil
}
