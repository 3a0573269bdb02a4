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

package bus

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.uber.org/ratelimit"
)

// ServerCom binds a listening WebSocket endpoint and spawns a
// HandlerCom for each accepted connection, attaching it to the parent
// Root. ServerCom itself carries no per-peer state.
type ServerCom struct {
	com
	addr      string
	tlsConfig *tls.Config
	logger    zerolog.Logger
	accept    ratelimit.Limiter

	listener net.Listener
	server   *http.Server
	upgrader websocket.Upgrader
}

// NewServerCom prepares a ServerCom for addr (host:port); the listener
// is bound in Start. If tlsConfig is non-nil the
// listener serves wss:// instead of ws://. acceptLimit, if non-nil,
// throttles how fast new HandlerComs are created, guarding against a
// connection storm from a burst of simultaneous dialers.
func NewServerCom(parent *Root, addr string, tlsConfig *tls.Config, acceptLimit ratelimit.Limiter, logger zerolog.Logger) *ServerCom {
	if acceptLimit == nil {
		acceptLimit = ratelimit.NewUnlimited()
	}

	return &ServerCom{
		com:       newCom(parent),
		addr:      addr,
		tlsConfig: tlsConfig,
		logger:    logger,
		accept:    acceptLimit,
		upgrader:  websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
	}
}

// Start binds the listener and serves until ctx is done or Stop is
// called.
func (s *ServerCom) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}
	s.listener = ln

	scheme := "ws"
	if s.tlsConfig != nil {
		scheme = "wss"
	}
	s.logger.Info().Str("addr", s.addr).Msgf("initiated ws_jsonx server | %s://%s", scheme, s.addr)

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	s.server = &http.Server{Handler: mux}

	serveErr := make(chan error, 1)
	go func() { serveErr <- s.server.Serve(s.listener) }()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	for s.Active() {
		event, err := s.events.Get(tickTimeout)
		if err != nil {
			continue
		}
		if event == EventStop {
			break
		}
	}

	s.deactivate()
	_ = s.server.Close()
	s.parent.AddEvent(EventComStopped)

	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *ServerCom) handle(w http.ResponseWriter, r *http.Request) {
	s.accept.Take()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("upgrade failed")
		return
	}

	handler := NewHandlerCom(s.parent, conn, s.logger)
	s.parent.AddCom(handler)
	go func() {
		if err := handler.Start(context.Background()); err != nil {
			s.parent.metrics.handshakeFailure.Inc()
		}
	}()
}
