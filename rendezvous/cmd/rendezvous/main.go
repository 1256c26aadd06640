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

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starmapnet/starmap/pkg/log"
	"github.com/starmapnet/starmap/pkg/private/serrors"
	"github.com/starmapnet/starmap/private/app"
	"github.com/starmapnet/starmap/private/app/launcher"
	"github.com/starmapnet/starmap/private/periodic"
	"github.com/starmapnet/starmap/private/service"
	"github.com/starmapnet/starmap/rendezvous"
	"github.com/starmapnet/starmap/rendezvous/config"
	"github.com/starmapnet/starmap/rendezvous/registry"
	"github.com/starmapnet/starmap/rendezvous/transport"
)

var globalCfg config.Config

func main() {
	application := launcher.Application{
		ApplicationBase: launcher.ApplicationBase{
			TOMLConfig: &globalCfg,
			ShortName:  "Rendezvous Server",
			Main:       realMain,
		},
	}
	application.Run()
}

func realMain(ctx context.Context) error {
	closer, err := rendezvous.InitTracer(globalCfg.Tracing, globalCfg.General.ID)
	if err != nil {
		return serrors.Wrap("initializing tracer", err)
	}
	defer closer.Close()

	laddr, err := net.ResolveUDPAddr("udp", globalCfg.Rendezvous.Address)
	if err != nil {
		return serrors.Wrap("parsing listen address", err,
			"address", globalCfg.Rendezvous.Address)
	}
	tlsConfig, err := transport.GenerateTLSConfig()
	if err != nil {
		return serrors.Wrap("generating TLS config", err)
	}
	tr, err := transport.Listen(laddr, tlsConfig, nil)
	if err != nil {
		return serrors.Wrap("creating transport", err, "addr", laddr)
	}
	log.Info("Transport created", "addr", tr.LocalAddr())

	dir := registry.New()
	metrics := rendezvous.NewMetrics(dir)
	srv := &rendezvous.Server{
		Transport: tr,
		Handler: &rendezvous.Handler{
			Directory: dir,
			Timeout:   globalCfg.Rendezvous.HeartbeatTimeout.Duration,
			Metrics:   metrics.Handler,
		},
		Directory: dir,
		Metrics:   metrics.Server,
	}

	var cleanup app.Cleanup
	g, errCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer log.HandlePanic()
		return tr.Serve()
	})
	cleanup.Add(tr.Close)
	g.Go(func() error {
		defer log.HandlePanic()
		return srv.Run(errCtx)
	})

	reaper := periodic.Start(
		rendezvous.NewReaper(
			dir,
			globalCfg.Rendezvous.HeartbeatTimeout.Duration,
			metrics.Reaper,
		),
		globalCfg.Rendezvous.CleanupInterval.Duration,
		globalCfg.Rendezvous.CleanupInterval.Duration,
	)
	cleanup.Add(func() error { reaper.Stop(); return nil })

	// Initialise and start service management API endpoints.
	if globalCfg.API.Addr != "" {
		r := chi.NewRouter()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
		}))
		r.Get("/api/v1/info", service.NewInfoStatusPage().Handler)
		r.Get("/api/v1/config", service.NewConfigStatusPage(&globalCfg).Handler)
		r.HandleFunc("/api/v1/log/level", service.NewLogLevelStatusPage().Handler)
		r.Get("/api/v1/systems", rendezvous.SystemsStatusPage(dir).Handler)
		log.Info("Exposing API", "addr", globalCfg.API.Addr)
		mgmtServer := &http.Server{
			Addr:    globalCfg.API.Addr,
			Handler: r,
		}
		cleanup.Add(mgmtServer.Close)
		g.Go(func() error {
			defer log.HandlePanic()
			err := mgmtServer.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return serrors.Wrap("serving service management API", err)
			}
			return nil
		})
	}

	err = rendezvous.RegisterHTTPEndpoints(
		globalCfg.General.ID,
		&globalCfg,
		dir,
	)
	if err != nil {
		return err
	}

	g.Go(func() error {
		defer log.HandlePanic()
		return globalCfg.Metrics.ServePrometheus(errCtx)
	})
	g.Go(func() error {
		defer log.HandlePanic()
		<-errCtx.Done()
		return cleanup.Do()
	})
	return g.Wait()
}
