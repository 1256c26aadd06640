// Copyright 2024 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rendezvous implements the directory server that game hosts register
// with and that players query to locate each other. Hosts advertise a system
// name together with the address they are reachable on and keep the record
// alive with heartbeats; players resolve names to addresses. The package
// combines the peer transport of rendezvous/transport with the record store
// of rendezvous/registry.
package rendezvous

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/starmapnet/starmap/pkg/log"
	"github.com/starmapnet/starmap/pkg/metrics/v2"
	"github.com/starmapnet/starmap/private/storage/cleaner"
	"github.com/starmapnet/starmap/rendezvous/registry"
	"github.com/starmapnet/starmap/rendezvous/transport"
)

// ServerMetrics instruments the event loop. Nil fields are ignored.
type ServerMetrics struct {
	PeersConnected metrics.Gauge
	SendErrors     metrics.Counter
	HandleDuration prometheus.Observer
	PayloadBytes   prometheus.Observer
}

// Server consumes peer events from the transport and applies them to the
// directory. All events are handled by a single goroutine, so message
// handling and the cleanup of disconnected peers are totally ordered.
type Server struct {
	// Transport accepts peer connections and delivers their messages.
	Transport *transport.Server
	// Handler interprets peer messages and builds the replies.
	Handler *Handler
	// Directory is the record store shared with the handler.
	Directory *registry.Directory
	// Metrics are the metrics of the event loop.
	Metrics ServerMetrics
}

// Run handles transport events until the context is cancelled. It always
// returns nil; transport failures surface through the Serve method of the
// transport instead.
func (s *Server) Run(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.Transport.Events():
			s.handleEvent(logger, ev)
		}
	}
}

func (s *Server) handleEvent(logger log.Logger, ev transport.Event) {
	switch ev.Kind {
	case transport.EventConnect:
		metrics.GaugeAdd(s.Metrics.PeersConnected, 1)
		logger.Debug("Peer connected", "peer", ev.Peer, "address", ev.Address)
	case transport.EventReceive:
		start := time.Now()
		reply := s.Handler.Handle(ev.Peer, ev.Address, ev.Payload, start)
		if o := s.Metrics.PayloadBytes; o != nil {
			o.Observe(float64(len(ev.Payload)))
		}
		if o := s.Metrics.HandleDuration; o != nil {
			o.Observe(time.Since(start).Seconds())
		}
		if reply == nil {
			return
		}
		if err := s.Transport.Send(ev.Peer, reply); err != nil {
			logger.Info("Failed to send reply", "peer", ev.Peer, "err", err)
			metrics.CounterInc(s.Metrics.SendErrors)
		}
	case transport.EventDisconnect:
		metrics.GaugeAdd(s.Metrics.PeersConnected, -1)
		if removed := s.Directory.RemoveAllOwnedBy(ev.Peer); removed > 0 {
			logger.Info("Removed systems of disconnected peer",
				"peer", ev.Peer, "address", ev.Address, "count", removed)
		} else {
			logger.Debug("Peer disconnected", "peer", ev.Peer, "address", ev.Address)
		}
	}
}

// NewReaper returns the periodic task that evicts records whose last
// advertisement or heartbeat lies further in the past than timeout.
func NewReaper(
	dir *registry.Directory,
	timeout time.Duration,
	m cleaner.Metrics,
) *cleaner.Cleaner {

	return cleaner.New(
		func(ctx context.Context) (int, error) {
			return dir.RemoveStale(time.Now(), timeout), nil
		},
		"rendezvous_directory",
		m,
	)
}
