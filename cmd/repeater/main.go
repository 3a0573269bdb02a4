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

// Command repeater binds a WebSocket relay endpoint: it accepts peer
// connections, reads the 32-char hex channel on handshake, and fans out
// whatever one peer on a channel sends to the peers on the same
// channel. The sending peer also receives its own message back.
package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/centbus/ether/internal/bus"
	"github.com/centbus/ether/internal/logging"
)

type config struct {
	addr        string
	metricsAddr string
	certFile    string
	keyFile     string
	freqHz      float64
	slowFreqHz  float64
}

func loadConfig() config {
	return config{
		addr:        ":" + envOr("ETHER_PORT", "14320"),
		metricsAddr: envOr("ETHER_METRICS_ADDR", ":9090"),
		certFile:    os.Getenv("ETHER_SSL_CERT"),
		keyFile:     os.Getenv("ETHER_SSL_KEY"),
		freqHz:      envFloat("ETHER_FREQ", 1000),
		slowFreqHz:  envFloat("ETHER_SLOW_FREQ", 1),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func (c config) tlsConfig() (*tls.Config, error) {
	if c.certFile == "" && c.keyFile == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(c.certFile, c.keyFile)
	if err != nil {
		return nil, err
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}

func main() {
	cfg := loadConfig()
	base := logging.Init()

	bus.SetTickTimeout(time.Duration(float64(time.Second) / cfg.freqHz))

	tlsConfig, err := cfg.tlsConfig()
	if err != nil {
		base.Fatal().Err(err).Msg("load TLS certificate")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		base.Info().Msg("shutting down")
		cancel()
	}()

	registry := prometheus.NewRegistry()
	metrics := bus.NewMetrics(registry)

	root := bus.NewRoot()
	root.SetMetrics(metrics)
	root.Start(ctx, logging.Component(base, "bus.Root"))

	server := bus.NewServerCom(root, cfg.addr, tlsConfig, nil, logging.Component(base, "bus.ServerCom"))
	root.AddCom(server)

	go func() {
		for ctx.Err() == nil {
			msg, err := root.Recv(time.Second)
			if err != nil {
				continue
			}
			root.Send(msg.Channel, msg.Value)
		}
	}()

	go serveMetrics(ctx, cfg.metricsAddr, registry, logging.Component(base, "metrics"))

	if err := server.Start(ctx); err != nil {
		base.Fatal().Err(err).Msg("relay stopped")
	}
}

func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	logger.Info().Str("addr", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn().Err(err).Msg("metrics server stopped")
	}
}
