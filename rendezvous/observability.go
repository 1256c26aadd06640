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
	"encoding/json"
	"io"
	"net/http"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/starmapnet/starmap/pkg/metrics/v2"
	"github.com/starmapnet/starmap/pkg/private/prom"
	"github.com/starmapnet/starmap/pkg/private/serrors"
	"github.com/starmapnet/starmap/private/config"
	"github.com/starmapnet/starmap/private/env"
	"github.com/starmapnet/starmap/private/service"
	"github.com/starmapnet/starmap/private/storage/cleaner"
	"github.com/starmapnet/starmap/rendezvous/registry"
)

// InitTracer initializes the global tracer.
func InitTracer(tracing env.Tracing, id string) (io.Closer, error) {
	tracer, trCloser, err := tracing.NewTracer(id)
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	return trCloser, nil
}

// Metrics defines the metrics exposed by the rendezvous server.
type Metrics struct {
	// Handler instruments message handling, by command.
	Handler HandlerMetrics
	// Server instruments the event loop.
	Server ServerMetrics
	// Reaper instruments the record reaper.
	Reaper cleaner.Metrics
}

// NewMetrics registers the metrics of the rendezvous server and returns the
// handles the individual components are instrumented with. The record count
// of dir is sampled at scrape time.
func NewMetrics(dir *registry.Directory, opts ...metrics.Option) Metrics {
	auto := metrics.ApplyOptions(opts...).Auto()
	requests := auto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_requests_total",
			Help: "Total number of requests handled, by command.",
		},
		[]string{"command"},
	)
	reaperRuns := auto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rendezvous_reaper_runs_total",
			Help: "Total number of reaper runs.",
		},
		[]string{prom.LabelResult},
	)
	auto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "rendezvous_directory_records",
			Help: "Number of records in the directory, including records past " +
				"the liveness timeout.",
		},
		func() float64 { return float64(dir.Len()) },
	)
	return Metrics{
		Handler: HandlerMetrics{
			Advertises:   requests.With(prometheus.Labels{"command": "advertise"}),
			Finds:        requests.With(prometheus.Labels{"command": "find"}),
			Heartbeats:   requests.With(prometheus.Labels{"command": "heartbeat"}),
			Deadvertises: requests.With(prometheus.Labels{"command": "deadvertise"}),
			Lists:        requests.With(prometheus.Labels{"command": "list"}),
			Unknown:      requests.With(prometheus.Labels{"command": "unknown"}),
			Malformed: auto.NewCounter(prometheus.CounterOpts{
				Name: "rendezvous_malformed_messages_total",
				Help: "Total number of messages dropped because they could not be parsed.",
			}),
		},
		Server: ServerMetrics{
			PeersConnected: auto.NewGauge(prometheus.GaugeOpts{
				Name: "rendezvous_connected_peers",
				Help: "Number of currently connected peers.",
			}),
			SendErrors: auto.NewCounter(prometheus.CounterOpts{
				Name: "rendezvous_reply_send_errors_total",
				Help: "Total number of replies that could not be written back to the peer.",
			}),
			HandleDuration: auto.NewHistogram(prometheus.HistogramOpts{
				Name:    "rendezvous_handle_duration_seconds",
				Help:    "Time spent handling one peer message.",
				Buckets: prom.DefaultLatencyBuckets,
			}),
			PayloadBytes: auto.NewHistogram(prometheus.HistogramOpts{
				Name:    "rendezvous_received_payload_bytes",
				Help:    "Payload size of received peer messages.",
				Buckets: prom.DefaultSizeBuckets,
			}),
		},
		Reaper: cleaner.Metrics{
			RunsTotal: reaperRuns.With(
				prometheus.Labels{prom.LabelResult: prom.Success}),
			ErrorsTotal: reaperRuns.With(
				prometheus.Labels{prom.LabelResult: prom.ErrNotClassified}),
			DeletedTotal: auto.NewCounter(prometheus.CounterOpts{
				Name: "rendezvous_reaper_removed_records_total",
				Help: "Total number of records removed by the reaper.",
			}),
		},
	}
}

// RegisterHTTPEndpoints starts the HTTP endpoints that expose the metrics and
// additional information.
func RegisterHTTPEndpoints(
	elemId string,
	cfg config.Config,
	dir *registry.Directory,
) error {
	statusPages := service.StatusPages{
		"info":      service.NewInfoStatusPage(),
		"config":    service.NewConfigStatusPage(cfg),
		"log/level": service.NewLogLevelStatusPage(),
		"systems":   SystemsStatusPage(dir),
	}
	if err := statusPages.Register(http.DefaultServeMux, elemId); err != nil {
		return serrors.Wrap("registering status pages", err)
	}
	return nil
}

// SystemsStatusPage exposes the directory contents as JSON. Records past the
// liveness timeout are included, like in list replies.
func SystemsStatusPage(dir *registry.Directory) service.StatusPage {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		type System struct {
			Name       string `json:"name"`
			Address    string `json:"address"`
			AgeSeconds int    `json:"age_seconds"`
		}
		entries := dir.Entries(time.Now())
		rep := make([]System, 0, len(entries))
		for _, e := range entries {
			rep = append(rep, System{
				Name:       e.Name,
				Address:    e.Address,
				AgeSeconds: int(e.Age.Seconds()),
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		if err := enc.Encode(rep); err != nil {
			http.Error(w, "Unable to marshal response", http.StatusInternalServerError)
			return
		}
	}
	return service.StatusPage{
		Info:    "advertised systems",
		Handler: handler,
	}
}
