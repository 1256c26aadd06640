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

func newFind(pather CommandPather) *cobra.Command {
	var envFlags flag.Environment
	var flags struct {
		timeout  time.Duration
		logLevel string
		noColor  bool
		tracer   string
		format   string
	}

	var cmd = &cobra.Command{
		Use:     "find <system>",
		Short:   "Look up the address of an advertised system",
		Args:    cobra.ExactArgs(1),
		Example: fmt.Sprintf(`  %[1]s find "sol"
  %[1]s find "alpha centauri" --format json`, pather.CommandPath()),
		Long: `'find' asks the rendezvous server which address currently hosts the named
system. Only systems with a live record are returned, systems whose host
stopped heartbeating resolve to nothing.

If the system has no live host and machine readable output is not enabled,
'find' exits with the code 1. On other errors, 'find' exits with code 2.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := app.SetupLog(flags.logLevel); err != nil {
				return serrors.Wrap("setting up logging", err)
			}
			closer, err := setupTracer("find", flags.tracer)
			if err != nil {
				return serrors.Wrap("setting up tracing", err)
			}
			defer closer()
			if _, err := getPrintf(flags.format, cmd.OutOrStdout()); err != nil {
				return serrors.Wrap("get formatting", err)
			}

			cmd.SilenceUsage = true

			if err := envFlags.LoadExternalVars(); err != nil {
				return err
			}
			server := envFlags.Server()
			log.Debug("Resolved starmap environment flags", "server", server)

			span, traceCtx := tracing.CtxWith(context.Background(), "run")
			span.SetTag("system", name)
			defer span.Finish()

			ctx, cancel := context.WithTimeout(traceCtx, flags.timeout)
			defer cancel()
			res, err := systems.Find(ctx, systems.Config{Server: server}, name)
			if err != nil {
				return err
			}

			switch flags.format {
			case "human":
				res.Human(cmd.OutOrStdout(), !flags.noColor)
				if !res.Found {
					return app.WithExitCode(serrors.New("no live host"), 1)
				}
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
