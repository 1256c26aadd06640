// Copyright 2018 Anapaya Systems
// Copyright 2020 Anapaya Systems, ETH Zurich
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

// Package periodic provides a mechanism to run tasks periodically.
package periodic

import (
	"context"
	"time"

	"github.com/starmapnet/starmap/pkg/log"
	"github.com/starmapnet/starmap/pkg/metrics"
)

// Event types for the event metric.
const (
	EventStop    = "stop"
	EventKill    = "kill"
	EventTrigger = "trigger"
)

// A Task that has to be periodically executed.
type Task interface {
	// Run executes the task once, it should return within the context's
	// timeout.
	Run(context.Context)
	// Name returns the tasks name, each successive call must return the same
	// value.
	Name() string
}

// Func implements the Task interface using a function pointer and a static
// name.
type Func struct {
	// Task is the function that is executed on every trigger.
	Task func(context.Context)
	// TaskName is the name that is returned on every Name call.
	TaskName string
}

// Run executes the task function.
func (f Func) Run(ctx context.Context) {
	f.Task(ctx)
}

// Name returns the task name.
func (f Func) Name() string {
	return f.TaskName
}

// Metrics is the set of metrics the runner exposes. Individual fields can be
// nil, in which case the corresponding metric is not reported.
type Metrics struct {
	// Events returns the counter for the given event type. The event types
	// are defined by the Event constants of this package.
	Events func(eventType string) metrics.Counter
	// Period reports the period of the task in seconds.
	Period metrics.Gauge
	// Runtime reports the duration of the most recent run in seconds.
	Runtime metrics.Gauge
	// StartTime reports the start of the most recent run as a unix timestamp.
	StartTime metrics.Gauge
}

// Start creates and starts a new Runner to run the given task periodically.
// The timeout is used for the context timeout of the task. The timeout can be
// larger than the period. That means if a task takes a long time it will be
// immediately retriggered.
func Start(task Task, period, timeout time.Duration) *Runner {
	return StartWithMetrics(task, nil, period, timeout)
}

// StartWithMetrics is like Start, but the runner additionally reports the
// given metrics.
func StartWithMetrics(task Task, m *Metrics, period, timeout time.Duration) *Runner {
	ctx, cancelF := context.WithCancel(context.Background())
	runner := &Runner{
		task:         task,
		ticker:       time.NewTicker(period),
		timeout:      timeout,
		stop:         make(chan struct{}),
		loopFinished: make(chan struct{}),
		ctx:          ctx,
		cancelF:      cancelF,
		trigger:      make(chan struct{}),
	}
	if m != nil {
		if m.Events != nil {
			runner.stopEvents = m.Events(EventStop)
			runner.killEvents = m.Events(EventKill)
			runner.triggerEvents = m.Events(EventTrigger)
		}
		runner.runtime = m.Runtime
		runner.startTime = m.StartTime
		metrics.GaugeSet(m.Period, period.Seconds())
	}
	go func() {
		defer log.HandlePanic()
		runner.runLoop()
	}()
	return runner
}

// Runner runs a task periodically.
type Runner struct {
	task         Task
	ticker       *time.Ticker
	timeout      time.Duration
	stop         chan struct{}
	loopFinished chan struct{}
	ctx          context.Context
	cancelF      context.CancelFunc
	trigger      chan struct{}

	stopEvents    metrics.Counter
	killEvents    metrics.Counter
	triggerEvents metrics.Counter
	runtime       metrics.Gauge
	startTime     metrics.Gauge
}

// Stop stops the periodic execution of the Runner. If the task is currently
// running this method will block until it is done.
func (r *Runner) Stop() {
	r.ticker.Stop()
	close(r.stop)
	<-r.loopFinished
	metrics.CounterInc(r.stopEvents)
}

// Kill is like Stop but it also cancels the context of the current running
// task.
func (r *Runner) Kill() {
	if r == nil {
		return
	}
	r.ticker.Stop()
	close(r.stop)
	r.cancelF()
	<-r.loopFinished
	metrics.CounterInc(r.killEvents)
}

// TriggerRun triggers the task to run now. This does not impact the normal
// periodicity of this task. That means if the period is 5m and TriggerRun is
// called after 2m, the next run is in 3m.
//
// The method blocks until either the triggered run was started or the runner
// was stopped, in which case the triggered run will not be executed.
func (r *Runner) TriggerRun() {
	select {
	// Either we were stopped or we can put something in the trigger channel.
	case <-r.stop:
	case r.trigger <- struct{}{}:
		metrics.CounterInc(r.triggerEvents)
	}
}

func (r *Runner) runLoop() {
	defer close(r.loopFinished)
	defer r.cancelF()
	for {
		select {
		case <-r.stop:
			return
		case <-r.ticker.C:
			r.onTick()
		case <-r.trigger:
			r.onTick()
		}
	}
}

func (r *Runner) onTick() {
	select {
	// Make sure that the stop case is evaluated first, so that when we kill
	// and both channels are ready we always go into stop first.
	case <-r.stop:
		return
	default:
		start := time.Now()
		// The start time is truncated to seconds to keep it comparable with
		// timestamps that are computed with integer division.
		metrics.GaugeSet(r.startTime, float64(start.UnixNano()/1e9))
		ctx, cancelF := context.WithTimeout(r.ctx, r.timeout)
		r.task.Run(ctx)
		cancelF()
		metrics.GaugeSet(r.runtime, time.Since(start).Seconds())
	}
}
