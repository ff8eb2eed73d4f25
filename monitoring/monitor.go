/*
 * MIT License
 *
 * Copyright (c) 2024-2026  Stage Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/atomic"

	"github.com/stage-rt/stage/errors"
	"github.com/stage-rt/stage/log"
)

const (
	// DefaultInterval is the default health check interval
	DefaultInterval = 30 * time.Second
	// DefaultThreshold is the default number of consecutive failed checks
	// before a child is reported to the failure handler.
	DefaultThreshold = 3
	// DefaultCheckTimeout is the default per-check timeout
	DefaultCheckTimeout = 5 * time.Second
)

// HealthMonitorOption defines the various options to apply to a HealthMonitor
type HealthMonitorOption func(*HealthMonitor)

// WithInterval sets the health check interval
func WithInterval(interval time.Duration) HealthMonitorOption {
	return func(m *HealthMonitor) {
		m.interval = interval
	}
}

// WithThreshold sets the number of consecutive failed checks that triggers
// the failure handler. Sensitivity is thus tunable: a single failed check
// never triggers a restart when the threshold is above one.
func WithThreshold(threshold int) HealthMonitorOption {
	return func(m *HealthMonitor) {
		m.threshold = threshold
	}
}

// WithCheckTimeout sets the per-check timeout
func WithCheckTimeout(timeout time.Duration) HealthMonitorOption {
	return func(m *HealthMonitor) {
		m.checkTimeout = timeout
	}
}

// WithMonitorLogger sets the monitor logger
func WithMonitorLogger(logger log.Logger) HealthMonitorOption {
	return func(m *HealthMonitor) {
		m.logger = logger
	}
}

// HealthMonitor periodically health-checks a set of watched components and
// reports threshold breaches to a failure handler. Checks are scheduled with
// a quartz scheduler; one sweep job visits every watched component.
type HealthMonitor struct {
	mu        sync.Mutex
	scheduler quartz.Scheduler
	targets   map[string]Checkable
	failures  map[string]int
	unhealthy mapset.Set[string]

	handler      FailureHandler
	interval     time.Duration
	threshold    int
	checkTimeout time.Duration

	started *atomic.Bool
	logger  log.Logger
}

// NewHealthMonitor creates an instance of HealthMonitor reporting to the
// given failure handler.
func NewHealthMonitor(handler FailureHandler, opts ...HealthMonitorOption) *HealthMonitor {
	scheduler, _ := quartz.NewStdScheduler()
	monitor := &HealthMonitor{
		scheduler:    scheduler,
		targets:      make(map[string]Checkable),
		failures:     make(map[string]int),
		unhealthy:    mapset.NewSet[string](),
		handler:      handler,
		interval:     DefaultInterval,
		threshold:    DefaultThreshold,
		checkTimeout: DefaultCheckTimeout,
		started:      atomic.NewBool(false),
		logger:       log.DiscardLogger,
	}
	for _, opt := range opts {
		opt(monitor)
	}
	return monitor
}

// Watch adds a component to the monitored set
func (m *HealthMonitor) Watch(target Checkable) {
	m.mu.Lock()
	m.targets[target.ID()] = target
	m.mu.Unlock()
}

// Unwatch removes a component from the monitored set
func (m *HealthMonitor) Unwatch(id string) {
	m.mu.Lock()
	delete(m.targets, id)
	delete(m.failures, id)
	m.mu.Unlock()
	m.unhealthy.Remove(id)
}

// Start begins the periodic health sweeps
func (m *HealthMonitor) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return errors.ErrAlreadyStarted
	}
	m.scheduler.Start(ctx)

	sweep := job.NewFunctionJob[bool](func(ctx context.Context) (bool, error) {
		m.sweep(ctx)
		return true, nil
	})
	detail := quartz.NewJobDetail(sweep, quartz.NewJobKey("health-sweep"))
	if err := m.scheduler.ScheduleJob(detail, quartz.NewSimpleTrigger(m.interval)); err != nil {
		m.started.Store(false)
		m.scheduler.Stop()
		return fmt.Errorf("failed to schedule health sweep: %w", err)
	}
	m.logger.Infof("health monitor started: interval=(%s) threshold=(%d)", m.interval, m.threshold)
	return nil
}

// Stop halts the periodic health sweeps and waits for any in-flight sweep
func (m *HealthMonitor) Stop(ctx context.Context) {
	if !m.started.CompareAndSwap(true, false) {
		return
	}
	m.scheduler.Stop()
	m.scheduler.Wait(ctx)
	m.logger.Info("health monitor stopped")
}

// Running returns true when the monitor is started
func (m *HealthMonitor) Running() bool {
	return m.started.Load()
}

// Unhealthy returns the identities currently failing their health checks
func (m *HealthMonitor) Unhealthy() []string {
	return m.unhealthy.ToSlice()
}

// sweep health-checks every watched component once. A component reaching the
// consecutive-failure threshold is reported to the failure handler and its
// counter reset, so that the next report requires a fresh run of failures.
func (m *HealthMonitor) sweep(ctx context.Context) {
	m.mu.Lock()
	targets := make([]Checkable, 0, len(m.targets))
	for _, target := range m.targets {
		targets = append(targets, target)
	}
	m.mu.Unlock()

	for _, target := range targets {
		checkCtx, cancel := context.WithTimeout(ctx, m.checkTimeout)
		health := target.HealthCheck(checkCtx)
		cancel()

		switch health.Status() {
		case Unhealthy:
			m.unhealthy.Add(target.ID())
			m.mu.Lock()
			m.failures[target.ID()]++
			count := m.failures[target.ID()]
			if count >= m.threshold {
				m.failures[target.ID()] = 0
			}
			m.mu.Unlock()

			if count >= m.threshold {
				cause := fmt.Errorf("health check failed %d consecutive times: %s", count, health.Reason())
				m.logger.Warnf("child=(%s) unhealthy: %v", target.ID(), cause)
				if err := m.handler.HandleFailure(ctx, target.ID(), cause); err != nil {
					m.logger.Errorf("failed to recover child=(%s): %v", target.ID(), err)
				}
			}
		case Healthy:
			m.mu.Lock()
			m.failures[target.ID()] = 0
			m.mu.Unlock()
			m.unhealthy.Remove(target.ID())
		case Unknown:
			// neither a failure nor a recovery; leave the counter untouched
		}
	}
}
