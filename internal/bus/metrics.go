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

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instruments a Root and its Coms report
// through.
type Metrics struct {
	messagesRouted   prometheus.Counter
	handshakeFailure prometheus.Counter
	activeComs       prometheus.Gauge
}

// NewMetrics registers a fresh set of bus instruments on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		messagesRouted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ether",
			Subsystem: "bus",
			Name:      "messages_routed_total",
			Help:      "Messages moved from a Com's incoming queue into the Root's incoming queue.",
		}),
		handshakeFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ether",
			Subsystem: "bus",
			Name:      "handshake_failures_total",
			Help:      "Peer connections dropped during channel handshake.",
		}),
		activeComs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ether",
			Subsystem: "bus",
			Name:      "active_coms",
			Help:      "Number of Com endpoints currently attached to the Root.",
		}),
	}

	reg.MustRegister(m.messagesRouted, m.handshakeFailure, m.activeComs)

	return m
}

// nopMetrics is installed on every Root by default, so instrumentation
// is opt-in via SetMetrics without nil checks scattered through the
// hot path.
var nopMetrics = &Metrics{
	messagesRouted:   prometheus.NewCounter(prometheus.CounterOpts{Name: "ether_bus_nop_messages"}),
	handshakeFailure: prometheus.NewCounter(prometheus.CounterOpts{Name: "ether_bus_nop_handshake"}),
	activeComs:       prometheus.NewGauge(prometheus.GaugeOpts{Name: "ether_bus_nop_active"}),
}
