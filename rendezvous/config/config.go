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

// Package config contains the configuration of the rendezvous server.
package config

import (
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/starmapnet/starmap/pkg/log"
	"github.com/starmapnet/starmap/pkg/private/serrors"
	"github.com/starmapnet/starmap/pkg/private/util"
	"github.com/starmapnet/starmap/pkg/rendezvous"
	"github.com/starmapnet/starmap/private/config"
	"github.com/starmapnet/starmap/private/env"
	api "github.com/starmapnet/starmap/private/mgmtapi"
)

const (
	// DefaultHeartbeatTimeout is the time after which a system whose host
	// neither re-advertised nor sent a heartbeat stops being handed out to
	// players and becomes eligible for eviction.
	DefaultHeartbeatTimeout = 90 * time.Second
	// DefaultCleanupInterval is the default interval between directory sweeps
	// that evict expired records.
	DefaultCleanupInterval = 30 * time.Second
)

// EnvPort is the environment variable that overrides the default listen port.
// An explicitly configured address takes precedence over it.
const EnvPort = "STARMAP_RENDEZVOUS_PORT"

var _ config.Config = (*Config)(nil)

// Config is the rendezvous server configuration.
type Config struct {
	General    env.General `toml:"general,omitempty"`
	Logging    log.Config  `toml:"log,omitempty"`
	Metrics    env.Metrics `toml:"metrics,omitempty"`
	Tracing    env.Tracing `toml:"tracing,omitempty"`
	API        api.Config  `toml:"api,omitempty"`
	Rendezvous Rendezvous  `toml:"rendezvous,omitempty"`
}

// InitDefaults initializes the default values for all parts of the config.
func (cfg *Config) InitDefaults() {
	config.InitAll(
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.Tracing,
		&cfg.API,
		&cfg.Rendezvous,
	)
}

// Validate validates all parts of the config.
func (cfg *Config) Validate() error {
	return config.ValidateAll(
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.API,
		&cfg.Rendezvous,
	)
}

// Sample generates a sample config file for the rendezvous server.
func (cfg *Config) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteSample(dst, path, config.CtxMap{config.ID: idSample},
		&cfg.General,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.Tracing,
		&cfg.API,
		&cfg.Rendezvous,
	)
}

// ConfigName is the toml key of the rendezvous server configuration.
func (cfg *Config) ConfigName() string {
	return "rendezvous_config"
}

var _ config.Config = (*Rendezvous)(nil)

// Rendezvous holds the rendezvous server specific configuration.
type Rendezvous struct {
	// Address is the UDP address the server listens on for QUIC connections
	// from hosts and players. If it is empty, the server listens on the
	// default port on all interfaces.
	Address string `toml:"address,omitempty"`
	// HeartbeatTimeout is the time after which a system whose host neither
	// re-advertised nor sent a heartbeat is no longer handed out and is
	// evicted from the directory.
	HeartbeatTimeout util.DurWrap `toml:"heartbeat_timeout,omitempty"`
	// CleanupInterval is the interval between directory sweeps that evict
	// expired records.
	CleanupInterval util.DurWrap `toml:"cleanup_interval,omitempty"`
}

// InitDefaults fills unset values with their defaults. The default listen
// port is taken from the EnvPort environment variable if it holds a valid
// port number.
func (cfg *Rendezvous) InitDefaults() {
	if cfg.Address == "" {
		cfg.Address = net.JoinHostPort("", strconv.Itoa(defaultPort()))
	}
	if cfg.HeartbeatTimeout.Duration == 0 {
		cfg.HeartbeatTimeout.Duration = DefaultHeartbeatTimeout
	}
	if cfg.CleanupInterval.Duration == 0 {
		cfg.CleanupInterval.Duration = DefaultCleanupInterval
	}
}

// Validate validates the rendezvous server specific configuration.
func (cfg *Rendezvous) Validate() error {
	if _, err := net.ResolveUDPAddr("udp", cfg.Address); err != nil {
		return serrors.Wrap("parsing address", err)
	}
	if cfg.HeartbeatTimeout.Duration <= 0 {
		return serrors.New("heartbeat_timeout must be positive")
	}
	if cfg.CleanupInterval.Duration <= 0 {
		return serrors.New("cleanup_interval must be positive")
	}
	return nil
}

// Sample generates a sample for the rendezvous server specific configuration.
func (cfg *Rendezvous) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteString(dst, rendezvousSample)
}

// ConfigName is the toml key for the rendezvous server specific configuration.
func (cfg *Rendezvous) ConfigName() string {
	return "rendezvous"
}

func defaultPort() int {
	v := os.Getenv(EnvPort)
	if v == "" {
		return rendezvous.DefaultPort
	}
	p, err := strconv.Atoi(v)
	if err != nil || p < 1 || p > 65535 {
		return rendezvous.DefaultPort
	}
	return p
}
