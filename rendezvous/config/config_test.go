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

package config

import (
	"bytes"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"

	"github.com/starmapnet/starmap/pkg/log"
	"github.com/starmapnet/starmap/private/env/envtest"
	"github.com/starmapnet/starmap/private/mgmtapi/mgmtapitest"
)

func TestConfigSample(t *testing.T) {
	var sample bytes.Buffer
	var cfg Config
	cfg.Sample(&sample, nil, nil)

	InitTestConfig(&cfg)
	err := toml.NewDecoder(bytes.NewReader(sample.Bytes())).DisallowUnknownFields().Decode(&cfg)
	assert.NoError(t, err)
	CheckTestConfig(t, &cfg, idSample)
}

func InitTestConfig(cfg *Config) {
	envtest.InitTest(&cfg.General, &cfg.Metrics, &cfg.Tracing)
	mgmtapitest.InitConfig(&cfg.API)
	cfg.Logging.Console.Level = "garbage"
	cfg.Rendezvous.Address = "garbage"
	cfg.Rendezvous.HeartbeatTimeout.Duration = 0
	cfg.Rendezvous.CleanupInterval.Duration = 0
}

func CheckTestConfig(t *testing.T, cfg *Config, id string) {
	envtest.CheckTest(t, &cfg.General, &cfg.Metrics, &cfg.Tracing, id)
	mgmtapitest.CheckConfig(t, &cfg.API)
	assert.Equal(t, log.DefaultConsoleLevel, cfg.Logging.Console.Level)
	assert.Equal(t, ":60939", cfg.Rendezvous.Address)
	assert.Equal(t, DefaultHeartbeatTimeout, cfg.Rendezvous.HeartbeatTimeout.Duration)
	assert.Equal(t, DefaultCleanupInterval, cfg.Rendezvous.CleanupInterval.Duration)
}

func TestRendezvousInitDefaults(t *testing.T) {
	var cfg Rendezvous
	cfg.InitDefaults()
	assert.Equal(t, ":60939", cfg.Address)
	assert.Equal(t, DefaultHeartbeatTimeout, cfg.HeartbeatTimeout.Duration)
	assert.Equal(t, DefaultCleanupInterval, cfg.CleanupInterval.Duration)
	assert.NoError(t, cfg.Validate())
}

func TestRendezvousPortFromEnvironment(t *testing.T) {
	t.Setenv(EnvPort, "7777")
	var cfg Rendezvous
	cfg.InitDefaults()
	assert.Equal(t, ":7777", cfg.Address)
}

func TestRendezvousConfiguredAddressWins(t *testing.T) {
	t.Setenv(EnvPort, "7777")
	cfg := Rendezvous{Address: "127.0.0.1:8888"}
	cfg.InitDefaults()
	assert.Equal(t, "127.0.0.1:8888", cfg.Address)
}

func TestRendezvousBadPortEnvironment(t *testing.T) {
	t.Setenv(EnvPort, "not-a-port")
	var cfg Rendezvous
	cfg.InitDefaults()
	assert.Equal(t, ":60939", cfg.Address)
}

func TestRendezvousValidate(t *testing.T) {
	testCases := map[string]func(cfg *Rendezvous){
		"bad address": func(cfg *Rendezvous) {
			cfg.Address = "missing-a-port"
		},
		"zero heartbeat timeout": func(cfg *Rendezvous) {
			cfg.HeartbeatTimeout.Duration = 0
		},
		"zero cleanup interval": func(cfg *Rendezvous) {
			cfg.CleanupInterval.Duration = 0
		},
	}
	for name, tamper := range testCases {
		t.Run(name, func(t *testing.T) {
			var cfg Rendezvous
			cfg.InitDefaults()
			tamper(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
