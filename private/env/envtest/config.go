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

// Package envtest provides helpers to test the env configuration structs
// embedded in service configurations.
package envtest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starmapnet/starmap/private/env"
)

// InitTest initializes the given non-nil configs with garbage values to make
// sure that decoding a sample actually overwrites them.
func InitTest(general *env.General, metrics *env.Metrics, tracing *env.Tracing) {
	if general != nil {
		InitTestGeneral(general)
	}
	if metrics != nil {
		InitTestMetrics(metrics)
	}
	if tracing != nil {
		InitTestTracing(tracing)
	}
}

// CheckTest checks that the given non-nil configs contain the sample values.
func CheckTest(t *testing.T, general *env.General, metrics *env.Metrics,
	tracing *env.Tracing, id string) {

	if general != nil {
		CheckTestGeneral(t, general, id)
	}
	if metrics != nil {
		CheckTestMetrics(t, metrics)
	}
	if tracing != nil {
		CheckTestTracing(t, tracing)
	}
}

func InitTestGeneral(cfg *env.General) {
	cfg.ConfigDir = "garbage"
}

func CheckTestGeneral(t *testing.T, cfg *env.General, id string) {
	assert.Equal(t, id, cfg.ID)
	assert.Equal(t, "/etc/starmap", cfg.ConfigDir)
}

func InitTestMetrics(cfg *env.Metrics) {
	cfg.Prometheus = "garbage"
}

func CheckTestMetrics(t *testing.T, cfg *env.Metrics) {
	assert.Empty(t, cfg.Prometheus)
}

func InitTestTracing(cfg *env.Tracing) {
	cfg.Enabled = true
	cfg.Debug = true
	cfg.Agent = "garbage"
}

func CheckTestTracing(t *testing.T, cfg *env.Tracing) {
	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "localhost:6831", cfg.Agent)
}
