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

// Command callclient is an example Call-layer client: it attaches to a
// relay on the channel callserver is listening on and issues a couple
// of demo calls.
package main

import (
	"context"
	"os"
	"time"

	"github.com/centbus/ether/internal/bus"
	"github.com/centbus/ether/internal/logging"
	"github.com/centbus/ether/internal/rpc"
)

const service = "demo"

func main() {
	relayURI := envOr("ETHER_RELAY_URI", "ws://127.0.0.1:14320")

	hexChannel := os.Getenv("ETHER_CHANNEL")
	if hexChannel == "" {
		os.Stderr.WriteString("callclient: ETHER_CHANNEL is required (copy it from callserver's startup log)\n")
		os.Exit(1)
	}
	channel, err := bus.ParseChannel(hexChannel)
	if err != nil {
		os.Stderr.WriteString("callclient: invalid ETHER_CHANNEL: " + err.Error() + "\n")
		os.Exit(1)
	}

	base := logging.Init()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	root := bus.NewRoot()
	root.Start(ctx, logging.Component(base, "bus.Root"))

	com := bus.NewClientCom(root, relayURI, channel, logging.Component(base, "bus.ClientCom"))
	root.AddCom(com)
	go com.Start(ctx)

	client := rpc.NewClient(root, channel, service, nil, base)

	ret, err := client.Call(ctx, "add", map[string]any{"a": int64(2), "b": int64(3)})
	if err != nil {
		base.Fatal().Err(err).Msg("add call failed")
	}
	values, err := ret.Capture()
	if err != nil {
		base.Fatal().Err(err).Msg("add call raised")
	}
	base.Info().Interface("result", values).Msg("add(2, 3)")

	ret, err = client.Call(ctx, "echo", map[string]any{"value": "hello"})
	if err != nil {
		base.Fatal().Err(err).Msg("echo call failed")
	}
	values, err = ret.Capture()
	if err != nil {
		base.Fatal().Err(err).Msg("echo call raised")
	}
	base.Info().Interface("result", values).Msg("echo(hello)")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
