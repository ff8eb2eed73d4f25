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

package mailbox

import (
	"time"

	"go.uber.org/atomic"
)

// Metrics tracks cumulative mailbox activity. Counters are atomic because
// they may be read by a separate monitoring task while the owning actor's
// producers and consumer update them.
type Metrics struct {
	enqueued    atomic.Int64
	dequeued    atomic.Int64
	dropped     atomic.Int64
	lastEnqueue atomic.Int64
}

// NewMetrics creates an instance of Metrics
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Enqueued returns the cumulative number of envelopes accepted by the mailbox
func (m *Metrics) Enqueued() int64 {
	return m.enqueued.Load()
}

// Dequeued returns the cumulative number of envelopes consumed from the mailbox
func (m *Metrics) Dequeued() int64 {
	return m.dequeued.Load()
}

// Dropped returns the cumulative number of envelopes rejected or evicted by a
// backpressure strategy.
func (m *Metrics) Dropped() int64 {
	return m.dropped.Load()
}

// LastEnqueue returns the time of the most recent successful enqueue. The
// zero time is returned when nothing was ever enqueued.
func (m *Metrics) LastEnqueue() time.Time {
	nanos := m.lastEnqueue.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos).UTC()
}

func (m *Metrics) markEnqueued() {
	m.enqueued.Inc()
	m.lastEnqueue.Store(time.Now().UnixNano())
}

func (m *Metrics) markDequeued() {
	m.dequeued.Inc()
}

func (m *Metrics) markDropped() {
	m.dropped.Inc()
}
