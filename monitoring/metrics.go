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
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
)

// ActorMetrics accumulates per-actor activity counters. All fields are
// atomic: the owning actor writes them from its processing loop while a
// monitoring task may read them concurrently, so no locking is needed on the
// hot path.
type ActorMetrics struct {
	messages        atomic.Int64
	failures        atomic.Int64
	lastActivity    atomic.Int64
	processingNanos atomic.Int64
}

// NewActorMetrics creates an instance of ActorMetrics
func NewActorMetrics() *ActorMetrics {
	return &ActorMetrics{}
}

// RecordMessage records one processed message and its processing duration
func (m *ActorMetrics) RecordMessage(duration time.Duration) {
	m.messages.Inc()
	m.processingNanos.Add(int64(duration))
	m.lastActivity.Store(time.Now().UnixNano())
}

// RecordFailure records one handler error
func (m *ActorMetrics) RecordFailure() {
	m.failures.Inc()
	m.lastActivity.Store(time.Now().UnixNano())
}

// Messages returns the cumulative number of processed messages
func (m *ActorMetrics) Messages() int64 {
	return m.messages.Load()
}

// Failures returns the cumulative number of handler errors
func (m *ActorMetrics) Failures() int64 {
	return m.failures.Load()
}

// LastActivity returns the time of the most recent recorded activity. The
// zero time is returned when nothing was ever recorded.
func (m *ActorMetrics) LastActivity() time.Time {
	nanos := m.lastActivity.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos).UTC()
}

// ProcessingTime returns the cumulative time spent inside the message handler
func (m *ActorMetrics) ProcessingTime() time.Duration {
	return time.Duration(m.processingNanos.Load())
}

// Instruments exports ActorMetrics through OpenTelemetry observable
// instruments so that an external meter can scrape them.
type Instruments struct {
	messages     metric.Int64ObservableCounter
	failures     metric.Int64ObservableCounter
	registration metric.Registration
}

// NewInstruments registers observable counters for the given metrics on the
// provided meter. The instruments observe the atomic counters on collection;
// nothing is recorded on the message path itself.
func NewInstruments(meter metric.Meter, name string, metrics *ActorMetrics) (*Instruments, error) {
	instruments := new(Instruments)
	var err error

	if instruments.messages, err = meter.Int64ObservableCounter(
		fmt.Sprintf("%s_messages_count", name),
		metric.WithDescription("Total number of messages processed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create messages instrument: %w", err)
	}

	if instruments.failures, err = meter.Int64ObservableCounter(
		fmt.Sprintf("%s_failures_count", name),
		metric.WithDescription("Total number of handler failures"),
	); err != nil {
		return nil, fmt.Errorf("failed to create failures instrument: %w", err)
	}

	instruments.registration, err = meter.RegisterCallback(
		func(_ context.Context, observer metric.Observer) error {
			observer.ObserveInt64(instruments.messages, metrics.Messages())
			observer.ObserveInt64(instruments.failures, metrics.Failures())
			return nil
		},
		instruments.messages,
		instruments.failures,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics callback: %w", err)
	}
	return instruments, nil
}

// Unregister stops the metrics collection callback
func (i *Instruments) Unregister() error {
	if i.registration == nil {
		return nil
	}
	return i.registration.Unregister()
}
