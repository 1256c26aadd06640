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

// Package metrics defines a generic interface to instrument code, decoupled
// from the metrics backend. Production code wires the interfaces to
// prometheus (see the NewProm constructors), tests use the Test
// implementations in this package.
package metrics

import (
	"strings"
	"sync"
	"time"
)

// Counter describes a metric that accumulates values monotonically.
type Counter interface {
	Add(delta float64)
	With(labelValues ...string) Counter
}

// Gauge describes a metric that takes specific values over time.
type Gauge interface {
	Set(value float64)
	Add(delta float64)
	With(labelValues ...string) Gauge
}

// Histogram describes a metric that takes repeated observations of the same
// kind of thing, and produces a statistical summary of those observations.
type Histogram interface {
	Observe(value float64)
	With(labelValues ...string) Histogram
}

// CounterInc increments the counter by one iff the counter is not nil.
func CounterInc(c Counter) {
	if c != nil {
		c.Add(1)
	}
}

// CounterAdd increments the counter by delta iff the counter is not nil.
func CounterAdd(c Counter, delta float64) {
	if c != nil {
		c.Add(delta)
	}
}

// CounterWith returns a counter with the labels applied iff the counter is
// not nil.
func CounterWith(c Counter, labelValues ...string) Counter {
	if c != nil {
		return c.With(labelValues...)
	}
	return nil
}

// GaugeSet sets the gauge to the value iff the gauge is not nil.
func GaugeSet(g Gauge, value float64) {
	if g != nil {
		g.Set(value)
	}
}

// GaugeAdd increments the gauge by delta iff the gauge is not nil.
func GaugeAdd(g Gauge, delta float64) {
	if g != nil {
		g.Add(delta)
	}
}

// GaugeSetCurrentTime sets the gauge to the current unix timestamp in epoch
// seconds iff the gauge is not nil.
func GaugeSetCurrentTime(g Gauge) {
	if g != nil {
		g.Set(float64(time.Now().UnixNano()) / 1e9)
	}
}

// GaugeWith returns a gauge with the labels applied iff the gauge is not nil.
func GaugeWith(g Gauge, labelValues ...string) Gauge {
	if g != nil {
		return g.With(labelValues...)
	}
	return nil
}

// HistogramObserve adds an observation iff the histogram is not nil.
func HistogramObserve(h Histogram, value float64) {
	if h != nil {
		h.Observe(value)
	}
}

// HistogramWith returns a histogram with the labels applied iff the histogram
// is not nil.
func HistogramWith(h Histogram, labelValues ...string) Histogram {
	if h != nil {
		return h.With(labelValues...)
	}
	return nil
}

// node represents the shared implementation of gauges and counters. A node
// keeps one child per label value combination, such that successive With
// calls with equal label values resolve to the same child. The mutex is
// shared by the whole tree.
type node struct {
	mtx      *sync.Mutex
	v        float64
	children map[string]*node
}

func newNode() *node {
	return &node{
		mtx:      &sync.Mutex{},
		children: make(map[string]*node),
	}
}

func (b *node) child(labelValues ...string) *node {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	key := strings.Join(labelValues, "\x00")
	c, ok := b.children[key]
	if !ok {
		c = &node{
			mtx:      b.mtx,
			children: make(map[string]*node),
		}
		b.children[key] = c
	}
	return c
}

func (b *node) add(delta float64, canBeNegative bool) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if !canBeNegative && delta < 0 {
		panic("counter increment value is < 0")
	}
	b.v += delta
}

func (b *node) set(v float64) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.v = v
}

func (b *node) value() float64 {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.v
}

// TestCounter implements a counter for use in tests.
type TestCounter struct {
	*node
}

// NewTestCounter creates a new counter for use in tests.
func NewTestCounter() *TestCounter {
	return &TestCounter{node: newNode()}
}

// Add increases the internal value of the counter by the specified delta.
func (c *TestCounter) Add(delta float64) {
	c.add(delta, false)
}

// With returns the child counter for the given label values. Equal label
// values map to the same child.
func (c *TestCounter) With(labelValues ...string) Counter {
	return &TestCounter{node: c.child(labelValues...)}
}

// CounterValue extracts the value out of a TestCounter. If the argument is
// not a *TestCounter, CounterValue will panic.
func CounterValue(c Counter) float64 {
	return c.(*TestCounter).value()
}

// TestGauge implements a gauge for use in tests.
type TestGauge struct {
	*node
}

// NewTestGauge creates a new gauge for use in tests.
func NewTestGauge() *TestGauge {
	return &TestGauge{node: newNode()}
}

// Set sets the internal value of the gauge to the specified value.
func (g *TestGauge) Set(v float64) {
	g.set(v)
}

// Add increases the internal value of the gauge by the specified delta. The
// value is allowed to go negative.
func (g *TestGauge) Add(delta float64) {
	g.add(delta, true)
}

// With returns the child gauge for the given label values. Equal label values
// map to the same child.
func (g *TestGauge) With(labelValues ...string) Gauge {
	return &TestGauge{node: g.child(labelValues...)}
}

// GaugeValue extracts the value out of a TestGauge. If the argument is not a
// *TestGauge, GaugeValue will panic.
func GaugeValue(g Gauge) float64 {
	return g.(*TestGauge).value()
}
