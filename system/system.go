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

// Package system assembles the runtime pieces into one facade: a root
// supervisor owning every spawned actor, a deadletter office shared by all
// brokers, a health monitor feeding the supervision path and a sampler that
// periodically observes mailbox depths.
package system

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/stage-rt/stage/broker"
	"github.com/stage-rt/stage/deadletter"
	"github.com/stage-rt/stage/errors"
	"github.com/stage-rt/stage/internal/ticker"
	"github.com/stage-rt/stage/log"
	"github.com/stage-rt/stage/monitoring"
	"github.com/stage-rt/stage/supervisor"
)

const defaultSampleInterval = 30 * time.Second

// Option configures a System before it is built
type Option func(*System)

// WithName sets the system name. The default is a generated one.
func WithName(name string) Option {
	return func(s *System) {
		s.name = name
	}
}

// WithLogger sets the system logger, shared by every component the system
// creates. The default discards.
func WithLogger(logger log.Logger) Option {
	return func(s *System) {
		s.logger = logger
	}
}

// WithSampleInterval sets how often mailbox depths are observed
func WithSampleInterval(interval time.Duration) Option {
	return func(s *System) {
		s.sampleInterval = interval
	}
}

// WithMeter enables per-actor otel instruments on the given meter
func WithMeter(meter metric.Meter) Option {
	return func(s *System) {
		s.meter = meter
	}
}

// WithRootStrategy sets the restart strategy of the root supervisor. The
// default is OneForOne.
func WithRootStrategy(strategy supervisor.StrategyKind) Option {
	return func(s *System) {
		s.rootStrategy = strategy
	}
}

// WithHealthMonitoring enables periodic health checks on every spawned actor,
// routing threshold breaches into the root supervisor's restart path.
func WithHealthMonitoring(opts ...monitoring.HealthMonitorOption) Option {
	return func(s *System) {
		s.healthOpts = opts
		s.healthEnabled = true
	}
}

// System owns the shared runtime infrastructure and the root of the
// supervision tree. Actors are attached with Spawn, brokers with NewBroker;
// stopping the system winds the whole tree down.
type System struct {
	name           string
	logger         log.Logger
	meter          metric.Meter
	rootStrategy   supervisor.StrategyKind
	sampleInterval time.Duration
	healthOpts     []monitoring.HealthMonitorOption
	healthEnabled  bool

	root    *supervisor.Node
	office  *deadletter.Office
	monitor *monitoring.HealthMonitor
	sampler *ticker.Ticker

	started     *atomic.Bool
	samplerDone chan struct{}

	mu          sync.Mutex
	services    []broker.Service
	depths      map[string]func() int
	instruments []*monitoring.Instruments
}

// New creates a System. Nothing runs until Start.
func New(opts ...Option) (*System, error) {
	s := &System{
		logger:         log.DiscardLogger,
		rootStrategy:   supervisor.OneForOne,
		sampleInterval: defaultSampleInterval,
		started:        atomic.NewBool(false),
		depths:         make(map[string]func() int),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.name == "" {
		s.name = "system-" + uuid.NewString()
	}

	s.office = deadletter.New(s.logger)
	root, err := supervisor.NewBuilder().
		WithID(s.name + "/root").
		WithStrategy(s.rootStrategy).
		WithLogger(s.logger).
		Build()
	if err != nil {
		return nil, err
	}
	s.root = root
	if s.healthEnabled {
		s.monitor = monitoring.NewHealthMonitor(root,
			append([]monitoring.HealthMonitorOption{monitoring.WithMonitorLogger(s.logger)}, s.healthOpts...)...)
	}
	s.sampler = ticker.New(s.sampleInterval)
	return s, nil
}

// Name returns the system name
func (s *System) Name() string {
	return s.name
}

// Logger returns the system logger
func (s *System) Logger() log.Logger {
	return s.logger
}

// Root returns the root supervisor node
func (s *System) Root() *supervisor.Node {
	return s.root
}

// Deadletters returns the shared deadletter office
func (s *System) Deadletters() *deadletter.Office {
	return s.office
}

// Running reports whether the system has been started and not yet stopped
func (s *System) Running() bool {
	return s.started.Load()
}

// Start brings the supervision tree up, begins health monitoring when
// enabled and starts the mailbox depth sampler.
func (s *System) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.ErrAlreadyStarted
	}
	if err := s.root.Start(ctx); err != nil {
		s.started.Store(false)
		return err
	}
	if s.monitor != nil {
		if err := s.monitor.Start(ctx); err != nil {
			s.started.Store(false)
			return err
		}
	}
	s.samplerDone = make(chan struct{})
	s.sampler.Start()
	go s.sampleLoop(s.samplerDone)

	s.logger.Infof("system=(%s) started", s.name)
	return nil
}

// Stop winds the system down: the supervision tree, the health monitor, the
// sampler, every registered broker and the deadletter office.
func (s *System) Stop(ctx context.Context) error {
	if !s.started.CompareAndSwap(true, false) {
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.root.Stop(groupCtx)
	})
	if s.monitor != nil {
		group.Go(func() error {
			s.monitor.Stop(groupCtx)
			return nil
		})
	}
	err := group.Wait()

	s.sampler.Stop()
	close(s.samplerDone)

	s.mu.Lock()
	services := s.services
	instruments := s.instruments
	s.mu.Unlock()
	for _, service := range services {
		service.Close()
	}
	for _, instrument := range instruments {
		if unregErr := instrument.Unregister(); unregErr != nil {
			s.logger.Warnf("system=(%s) failed to unregister instruments: %v", s.name, unregErr)
		}
	}
	s.office.Dispose()

	s.logger.Infof("system=(%s) stopped", s.name)
	return err
}

// sampleLoop logs mailbox depths on every sampler tick
func (s *System) sampleLoop(done chan struct{}) {
	for {
		select {
		case <-s.sampler.C:
			s.mu.Lock()
			for id, depth := range s.depths {
				s.logger.Debugf("system=(%s) actor=(%s) mailbox depth=(%d)", s.name, id, depth())
			}
			s.mu.Unlock()
		case <-done:
			return
		}
	}
}

func (s *System) registerService(service broker.Service) {
	s.mu.Lock()
	s.services = append(s.services, service)
	s.mu.Unlock()
}

func (s *System) trackMailbox(id string, depth func() int) {
	s.mu.Lock()
	s.depths[id] = depth
	s.mu.Unlock()
}

func (s *System) trackInstruments(instruments *monitoring.Instruments) {
	s.mu.Lock()
	s.instruments = append(s.instruments, instruments)
	s.mu.Unlock()
}

func (s *System) watch(target monitoring.Checkable) {
	if s.monitor != nil {
		s.monitor.Watch(target)
	}
}
