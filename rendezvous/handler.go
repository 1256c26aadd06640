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

package rendezvous

import (
	"time"

	"github.com/starmapnet/starmap/pkg/log"
	"github.com/starmapnet/starmap/pkg/metrics/v2"
	"github.com/starmapnet/starmap/pkg/rendezvous/protocol"
	"github.com/starmapnet/starmap/rendezvous/registry"
	"github.com/starmapnet/starmap/rendezvous/transport"
)

// HandlerMetrics counts handled messages by command. Nil counters are
// ignored.
type HandlerMetrics struct {
	Advertises   metrics.Counter
	Finds        metrics.Counter
	Heartbeats   metrics.Counter
	Deadvertises metrics.Counter
	Lists        metrics.Counter
	Unknown      metrics.Counter
	Malformed    metrics.Counter
}

// Handler maps one peer message to a directory operation and builds the
// reply. It holds no state of its own; all state lives in the directory.
type Handler struct {
	// Directory is the table the handler operates on.
	Directory *registry.Directory
	// Timeout is the liveness cutoff applied to find queries. Hosts are
	// handed out only while their age is strictly below it.
	Timeout time.Duration
	// Metrics are the handler metrics.
	Metrics HandlerMetrics
}

// Handle processes a single message payload from the peer at address and
// returns the reply to send back. A nil reply means the protocol calls for
// silence.
//
// Malformed payloads without any command line are dropped without a reply.
// Unrecognized commands, including recognized ones that are missing their
// required argument, draw an error reply.
func (h *Handler) Handle(
	peer transport.PeerID,
	address string,
	payload []byte,
	now time.Time,
) []byte {

	req, err := protocol.ParseRequest(payload)
	if err != nil {
		log.Debug("Dropping malformed message", "peer", peer, "err", err)
		metrics.CounterInc(h.Metrics.Malformed)
		return nil
	}
	switch req.Kind {
	case protocol.KindAdvertise:
		metrics.CounterInc(h.Metrics.Advertises)
		replaced := h.Directory.Upsert(req.Name, peer, address, now)
		if replaced {
			log.Debug("Re-advertised system", "system", req.Name, "address", address)
		} else {
			log.Info("Advertised system", "system", req.Name, "address", address)
		}
		return protocol.AdvertiseAck(req.Name)
	case protocol.KindFind:
		metrics.CounterInc(h.Metrics.Finds)
		r, ok := h.Directory.Lookup(req.Name)
		if ok && now.Sub(r.LastSeen) < h.Timeout {
			return protocol.Found(r.Address)
		}
		return protocol.NotFound()
	case protocol.KindHeartbeat:
		metrics.CounterInc(h.Metrics.Heartbeats)
		// A heartbeat from anyone but the recorded host is ignored without
		// a reply, so third parties cannot probe who owns a name.
		if !h.Directory.Refresh(req.Name, address, now) {
			return nil
		}
		return protocol.HeartbeatAck()
	case protocol.KindDeadvertise:
		metrics.CounterInc(h.Metrics.Deadvertises)
		if !h.Directory.RemoveIfAddressMatches(req.Name, address) {
			return nil
		}
		log.Info("Deadvertised system", "system", req.Name, "address", address)
		return protocol.DeadvertiseAck()
	case protocol.KindList:
		metrics.CounterInc(h.Metrics.Lists)
		entries := h.Directory.Entries(now)
		systems := make([]protocol.SystemEntry, 0, len(entries))
		for _, e := range entries {
			systems = append(systems, protocol.SystemEntry{
				Name:    e.Name,
				Address: e.Address,
				Age:     int(e.Age.Seconds()),
			})
		}
		return protocol.ActiveSystems(systems)
	default:
		metrics.CounterInc(h.Metrics.Unknown)
		log.Debug("Unknown command", "peer", peer, "payload", string(payload))
		return protocol.UnknownCommand()
	}
}
