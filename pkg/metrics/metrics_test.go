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

package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starmapnet/starmap/pkg/metrics"
)

func TestTestCounterLabels(t *testing.T) {
	c := metrics.NewTestCounter()
	foo := c.With("result", "foo")
	bar := c.With("result", "bar")

	foo.Add(1)
	foo.Add(2)
	bar.Add(4)

	assert.Equal(t, float64(3), metrics.CounterValue(foo))
	assert.Equal(t, float64(4), metrics.CounterValue(bar))
	assert.Equal(t, float64(0), metrics.CounterValue(c))

	// Equal label values resolve to the same child.
	assert.Equal(t, float64(3), metrics.CounterValue(c.With("result", "foo")))
}

func TestTestCounterNegativePanics(t *testing.T) {
	c := metrics.NewTestCounter()
	assert.Panics(t, func() { c.Add(-1) })
}

func TestTestGauge(t *testing.T) {
	g := metrics.NewTestGauge()
	g.Set(42)
	assert.Equal(t, float64(42), metrics.GaugeValue(g))
	g.Add(-2)
	assert.Equal(t, float64(40), metrics.GaugeValue(g))

	sub := g.With("type", "stale")
	sub.Set(7)
	assert.Equal(t, float64(7), metrics.GaugeValue(g.With("type", "stale")))
	assert.Equal(t, float64(40), metrics.GaugeValue(g))
}

func TestNilSafeHelpers(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.CounterInc(nil)
		metrics.CounterAdd(nil, 2)
		metrics.GaugeSet(nil, 1)
		metrics.GaugeAdd(nil, 1)
		metrics.GaugeSetCurrentTime(nil)
		metrics.HistogramObserve(nil, 0.1)
	})
	assert.Nil(t, metrics.CounterWith(nil, "a", "b"))
	assert.Nil(t, metrics.GaugeWith(nil, "a", "b"))
	assert.Nil(t, metrics.HistogramWith(nil, "a", "b"))

	c := metrics.NewTestCounter()
	metrics.CounterInc(c)
	metrics.CounterAdd(c, 2)
	assert.Equal(t, float64(3), metrics.CounterValue(c))
}
