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

// Command callserver is an example Call-layer server: it attaches to a
// relay on a fixed channel and registers a handful of demo functions
// that callclient exercises.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/centbus/ether/internal/bus"
	"github.com/centbus/ether/internal/jsonx"
	"github.com/centbus/ether/internal/logging"
	"github.com/centbus/ether/internal/rpc"
)

const service = "demo"

func main() {
	relayURI := envOr("ETHER_RELAY_URI", "ws://127.0.0.1:14320")
	channel := parseOrDeriveChannel(os.Getenv("ETHER_CHANNEL"))

	base := logging.Init()
	base.Info().Str("channel", channel.String()).Str("relay", relayURI).Msg("starting call server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	root := bus.NewRoot()
	root.Start(ctx, logging.Component(base, "bus.Root"))

	com := bus.NewClientCom(root, relayURI, channel, logging.Component(base, "bus.ClientCom"))
	root.AddCom(com)
	go func() {
		if err := com.Start(ctx); err != nil {
			base.Fatal().Err(err).Msg("relay connection lost")
		}
	}()

	server := rpc.NewServer(root, channel, service, base)
	registerDemoFuncs(server)

	if err := server.Start(ctx); err != nil {
		base.Fatal().Err(err).Msg("call server stopped")
	}
}

func registerDemoFuncs(server *rpc.Server) {
	server.Register("echo", func(args map[string]jsonx.AST) ([]any, error) {
		v, ok := args["value"]
		if !ok {
			return nil, errMissingArg("value")
		}
		out, err := jsonx.Py.Dump(v)
		if err != nil {
			return nil, err
		}
		return []any{out}, nil
	})

	rpc.RegisterTyped(server, "add", func(args addArgs) ([]any, error) {
		return []any{args.A + args.B}, nil
	})
}

type addArgs struct {
	A int64 `schema:"a"`
	B int64 `schema:"b"`
}

type errMissingArg string

func (e errMissingArg) Error() string         { return "missing argument: " + string(e) }
func (e errMissingArg) CallErrorName() string { return "MissingArgument" }

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseOrDeriveChannel accepts a 32-char hex channel, or mints a fresh
// one for a standalone demo run when ETHER_CHANNEL is unset or does not
// parse as a channel.
func parseOrDeriveChannel(hex string) bus.Channel {
	if hex == "" {
		return bus.NewChannel()
	}
	c, err := bus.ParseChannel(hex)
	if err != nil {
		return bus.NewChannel()
	}
	return c
}
