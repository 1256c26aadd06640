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
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/starmapnet/starmap/pkg/log"
	"github.com/starmapnet/starmap/pkg/private/serrors"
	"github.com/starmapnet/starmap/pkg/rendezvous"
	"github.com/starmapnet/starmap/private/app"
	"github.com/starmapnet/starmap/private/app/flag"
	"github.com/starmapnet/starmap/private/tracing"
)

func newAdvertise(pather CommandPather) *cobra.Command {
	var envFlags flag.Environment
	var flags struct {
		timeout  time.Duration
		interval time.Duration
		logLevel string
		tracer   string
	}

	var cmd = &cobra.Command{
		Use:     "advertise <system>",
		Short:   "Advertise a hosted system until interrupted",
		Aliases: []string{"host"},
		Args:    cobra.ExactArgs(1),
		Example: fmt.Sprintf(`  %[1]s advertise "sol"
  %[1]s advertise "sol" --heartbeat-interval 10s
  %[1]s advertise "sol" --local 192.0.2.10`, pather.CommandPath()),
		Long: `'advertise' registers a hosted system on the rendezvous server and keeps
the record alive with periodic heartbeats. The record names the address the
server observed for this connection; players resolve it with 'find' for as
long as the heartbeats keep arriving. On interrupt the record is removed
before the command exits.

The command fails if another host takes the system name over. It does not
fail on startup if the name is already advertised, advertising takes
existing records over instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := app.SetupLog(flags.logLevel); err != nil {
				return serrors.Wrap("setting up logging", err)
			}
			closer, err := setupTracer("advertise", flags.tracer)
			if err != nil {
				return serrors.Wrap("setting up tracing", err)
			}
			defer closer()

			cmd.SilenceUsage = true

			if err := envFlags.LoadExternalVars(); err != nil {
				return err
			}
			server := envFlags.Server()
			local := envFlags.Local()
			log.Debug("Resolved starmap environment flags",
				"server", server,
				"local", local,
			)

			span, traceCtx := tracing.CtxWith(context.Background(), "run")
			span.SetTag("system", name)
			defer span.Finish()

			ctx := app.WithSignal(traceCtx, os.Interrupt, syscall.SIGTERM)
			dialCtx, cancel := context.WithTimeout(ctx, flags.timeout)
			defer cancel()
			conn, err := rendezvous.DialFrom(dialCtx, local, server)
			if err != nil {
				return serrors.Wrap("connecting to rendezvous server", err)
			}
			defer conn.Close()

			fmt.Fprintf(cmd.OutOrStdout(),
				"Advertising %q on %s, stop with ^C\n", name, server)
			if err := conn.Host(ctx, name, flags.interval); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped advertising %q\n", name)
			return nil
		},
	}

	envFlags.Register(cmd.Flags())
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 5*time.Second,
		"Timeout for connecting to the server")
	cmd.Flags().DurationVar(&flags.interval, "heartbeat-interval",
		rendezvous.DefaultHeartbeatInterval, "Interval between heartbeats")
	cmd.Flags().StringVar(&flags.logLevel, "log.level", "", app.LogLevelUsage)
	cmd.Flags().StringVar(&flags.tracer, "tracing.agent", "", "Tracing agent address")
	return cmd
}
