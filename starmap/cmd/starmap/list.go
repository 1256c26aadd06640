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
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/starmapnet/starmap/pkg/log"
	"github.com/starmapnet/starmap/pkg/private/serrors"
	"github.com/starmapnet/starmap/private/app"
	"github.com/starmapnet/starmap/private/app/flag"
	"github.com/starmapnet/starmap/private/tracing"
	"github.com/starmapnet/starmap/starmap/systems"
)

func newList(pather CommandPather) *cobra.Command {
	var envFlags flag.Environment
	var flags struct {
		timeout  time.Duration
		logLevel string
		noColor  bool
		tracer   string
		format   string
	}

	var cmd = &cobra.Command{
		Use:     "list",
		Short:   "List the systems advertised on the rendezvous server",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		Example: fmt.Sprintf(`  %[1]s list
  %[1]s list --server 192.0.2.1:60939 --format json`, pather.CommandPath()),
		Long: `'list' shows all systems the rendezvous server knows about, including
systems whose host stopped heartbeating but that have not been cleaned
up yet. The age column reports the seconds since the last advertise or
heartbeat of the host.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.SetupLog(flags.logLevel); err != nil {
				return serrors.Wrap("setting up logging", err)
			}
			closer, err := setupTracer("list", flags.tracer)
			if err != nil {
				return serrors.Wrap("setting up tracing", err)
			}
			defer closer()
			printf, err := getPrintf(flags.format, cmd.OutOrStdout())
			if err != nil {
				return serrors.Wrap("get formatting", err)
			}

			cmd.SilenceUsage = true

			if err := envFlags.LoadExternalVars(); err != nil {
				return err
			}
			server := envFlags.Server()
			log.Debug("Resolved starmap environment flags", "server", server)

			span, traceCtx := tracing.CtxWith(context.Background(), "run")
			defer span.Finish()

			ctx, cancel := context.WithTimeout(traceCtx, flags.timeout)
			defer cancel()
			res, err := systems.List(ctx, systems.Config{Server: server})
			if err != nil {
				return err
			}

			switch flags.format {
			case "human":
				printf("Systems advertised on %s\n", server)
				res.Human(cmd.OutOrStdout(), !flags.noColor)
			case "json":
				return res.JSON(os.Stdout)
			case "yaml":
				enc := yaml.NewEncoder(os.Stdout)
				return enc.Encode(res)
			default:
				return serrors.New("output format not supported", "format", flags.format)
			}
			return nil
		},
	}

	envFlags.Register(cmd.Flags())
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 5*time.Second, "Timeout")
	cmd.Flags().StringVar(&flags.format, "format", "human",
		"Specify the output format (human|json|yaml)")
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	cmd.Flags().StringVar(&flags.logLevel, "log.level", "", app.LogLevelUsage)
	cmd.Flags().StringVar(&flags.tracer, "tracing.agent", "", "Tracing agent address")
	return cmd
}
