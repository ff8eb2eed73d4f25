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
	"context"
	"sync"

	"github.com/stage-rt/stage/errors"
	"github.com/stage-rt/stage/message"
)

// Unbounded is a mailbox with unlimited buffering. Send never fails due to
// capacity; the risk is unbounded memory growth under sustained overload, so
// it is appropriate for low-volume control traffic.
//
// The buffer is a growable ring guarded by a mutex; a wakeup channel signals
// the single consumer. Workiva's blocking queues were considered and rejected
// here because their Get cannot observe context cancellation.
type Unbounded[M message.Message] struct {
	mu     sync.Mutex
	items  []*message.Envelope[M]
	head   int
	closed bool

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	metrics *Metrics
}

// enforce compilation error
var _ Mailbox[message.Message] = (*Unbounded[message.Message])(nil)

// NewUnbounded creates an instance of Unbounded
func NewUnbounded[M message.Message]() *Unbounded[M] {
	return &Unbounded[M]{
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		metrics: NewMetrics(),
	}
}

// Send enqueues the given envelope. It never suspends and only fails when the
// mailbox has been closed.
func (m *Unbounded[M]) Send(_ context.Context, envelope *message.Envelope[M]) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.ErrMailboxClosed
	}
	m.items = append(m.items, envelope)
	m.mu.Unlock()

	m.metrics.markEnqueued()
	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

// Recv dequeues the next envelope, suspending until one is available. After
// Close, buffered envelopes are drained before ErrMailboxClosed is reported.
func (m *Unbounded[M]) Recv(ctx context.Context) (*message.Envelope[M], error) {
	for {
		m.mu.Lock()
		if envelope := m.pop(); envelope != nil {
			m.mu.Unlock()
			m.metrics.markDequeued()
			return envelope, nil
		}
		if m.closed {
			m.mu.Unlock()
			return nil, errors.ErrMailboxClosed
		}
		m.mu.Unlock()

		select {
		case <-m.notify:
		case <-m.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// TryRecv dequeues the next envelope without suspending
func (m *Unbounded[M]) TryRecv() (*message.Envelope[M], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if envelope := m.pop(); envelope != nil {
		m.metrics.markDequeued()
		return envelope, nil
	}
	if m.closed {
		return nil, errors.ErrMailboxClosed
	}
	return nil, errors.ErrMailboxEmpty
}

// Close marks the mailbox closed and wakes any suspended receiver
func (m *Unbounded[M]) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.closeOnce.Do(func() {
		close(m.done)
	})
}

// Len returns a snapshot of the number of buffered envelopes
func (m *Unbounded[M]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items) - m.head
}

// Capacity returns 0: the mailbox is unbounded
func (m *Unbounded[M]) Capacity() int {
	return 0
}

// Metrics returns the cumulative mailbox counters
func (m *Unbounded[M]) Metrics() *Metrics {
	return m.metrics
}

// pop removes and returns the oldest buffered envelope. Callers must hold the
// mutex. The backing slice is compacted once the consumed prefix dominates it.
func (m *Unbounded[M]) pop() *message.Envelope[M] {
	if m.head >= len(m.items) {
		return nil
	}
	envelope := m.items[m.head]
	m.items[m.head] = nil
	m.head++
	if m.head > 64 && m.head*2 >= len(m.items) {
		m.items = append(m.items[:0], m.items[m.head:]...)
		m.head = 0
	}
	return envelope
}
