// Copyright 2019 Anapaya Systems
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

package log

import (
	"fmt"
	"io"
	"strings"

	"github.com/starmapnet/starmap/private/config"
)

const (
	// DefaultConsoleLevel is the default log level for the console.
	DefaultConsoleLevel = "info"
	// DefaultStacktraceLevel is the default log level at which stack traces
	// are attached to entries.
	DefaultStacktraceLevel = "none"
)

// Config is the configuration for the logger.
type Config struct {
	// Console is the configuration for the console logging.
	Console ConsoleConfig `toml:"console,omitempty"`
}

// InitDefaults populates unset fields in cfg to their default values (if they
// have one).
func (c *Config) InitDefaults() {
	c.Console.InitDefaults()
}

// Validate validates that all values are parsable.
func (c *Config) Validate() error {
	return c.Console.validate()
}

// Sample writes the sample configuration to the dst writer.
func (c *Config) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteSample(dst, path, ctx, &c.Console)
}

// ConfigName returns the name this config should have in a struct embedding
// it.
func (c *Config) ConfigName() string {
	return "log"
}

// ConsoleConfig is the config for the console logger.
type ConsoleConfig struct {
	// Level of console logging (defaults to DefaultConsoleLevel).
	Level string `toml:"level,omitempty"`
	// Format of the console logging (human|json) (defaults to human).
	Format string `toml:"format,omitempty"`
	// StacktraceLevel sets from which level stacktraces are included in the
	// entry (defaults to DefaultStacktraceLevel).
	StacktraceLevel string `toml:"stacktrace_level,omitempty"`
}

// InitDefaults populates unset fields in cfg to their default values (if they
// have one).
func (c *ConsoleConfig) InitDefaults() {
	if c.Level == "" {
		c.Level = DefaultConsoleLevel
	}
	if c.Format == "" {
		c.Format = "human"
	}
	if c.StacktraceLevel == "" {
		c.StacktraceLevel = DefaultStacktraceLevel
	}
}

func (c *ConsoleConfig) validate() error {
	if _, err := parseLevel(c.Level); err != nil {
		return err
	}
	if c.StacktraceLevel != "none" && c.StacktraceLevel != "" {
		if _, err := parseLevel(c.StacktraceLevel); err != nil {
			return err
		}
	}
	switch strings.ToLower(c.Format) {
	case "human", "json":
	default:
		return fmt.Errorf("unsupported log format: %q", c.Format)
	}
	return nil
}

// Sample writes the sample console configuration to the dst writer.
func (c *ConsoleConfig) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, consoleConfigSample)
}

// ConfigName returns the name this config should have in a struct embedding
// it.
func (c *ConsoleConfig) ConfigName() string {
	return "console"
}

const consoleConfigSample = `
# Console logging level (debug|info|error) (default info)
level = "info"

# Console logging format (human|json) (default human)
format = "human"

# Level at which entries are logged with a stacktrace attached
# (debug|info|error|none) (default none)
stacktrace_level = "none"
`
