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

package rendezvous_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starmapnet/starmap/pkg/metrics/v2"
	"github.com/starmapnet/starmap/rendezvous"
	"github.com/starmapnet/starmap/rendezvous/registry"
)

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	dir := registry.New()
	m := rendezvous.NewMetrics(dir, metrics.WithRegistry(reg))

	m.Handler.Advertises.Add(1)
	m.Server.PeersConnected.Set(2)
	m.Reaper.RunsTotal.Add(3)

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 15, count)
}

func TestDirectoryRecordsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	dir := registry.New()
	rendezvous.NewMetrics(dir, metrics.WithRegistry(reg))

	dir.Upsert("sol", 1, "10.0.0.1:4433", time.Now())
	dir.Upsert("vega", 1, "10.0.0.1:4433", time.Now())

	want := `
# HELP rendezvous_directory_records Number of records in the directory, including records past the liveness timeout.
# TYPE rendezvous_directory_records gauge
rendezvous_directory_records 2
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(want),
		"rendezvous_directory_records")
	require.NoError(t, err)
}
