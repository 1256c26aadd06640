// Copyright 2026 Anapaya Systems
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

// Package metrics instruments code with prometheus metrics. Unlike the v1
// package, the interfaces carry no label state; prometheus types satisfy them
// directly, and labeled children are created up front via the Factory.
package metrics

// Counter describes an entity that accumulates values monotonically.
type Counter interface {
	Add(delta float64)
}

// Gauge describes an entity that can be set to arbitrary values.
type Gauge interface {
	Add(delta float64)
	Set(value float64)
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
