// Copyright 2020 Anapaya Systems
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

// Package app provides helpers for command line applications.
package app

import (
	"context"
	"os"
	"os/signal"

	"github.com/starmapnet/starmap/pkg/log"
	"github.com/starmapnet/starmap/pkg/private/serrors"
)

// LogLevelUsage defines the usage text for the log.level flag.
const LogLevelUsage = "Console logging level verbosity (debug|info|error)"

// SetupLog sets up the console logging for a command line application. An
// empty level selects the default.
func SetupLog(level string) error {
	return log.Setup(log.Config{
		Console: log.ConsoleConfig{
			Level: level,
		},
	})
}

// WithSignal derives a child context that subscribes a signal handler for the
// provided signals. The returned context gets canceled if any of the
// subscribed signals is received.
func WithSignal(ctx context.Context, sig ...os.Signal) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	stop := make(chan os.Signal, len(sig))
	signal.Notify(stop, sig...)

	go func() {
		defer log.HandlePanic()
		defer signal.Stop(stop)
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}

// Cleanup defers a set of cleanup functions to be run when the application
// shuts down.
type Cleanup struct {
	funcs []func() error
}

// Add adds a cleanup function.
func (c *Cleanup) Add(f func() error) {
	c.funcs = append(c.funcs, f)
}

// Do runs the cleanup functions in reverse order of registration.
func (c *Cleanup) Do() error {
	var errs serrors.List
	for i := len(c.funcs) - 1; i >= 0; i-- {
		if err := c.funcs[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errs.ToError()
}
