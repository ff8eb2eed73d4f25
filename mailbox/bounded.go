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

// BoundedOption defines the various options to apply to a Bounded mailbox
type BoundedOption[M message.Message] func(*Bounded[M])

// WithEvictionHandler sets a callback invoked with every envelope evicted by
// the DropOldest strategy. Delivery failures can thus be recorded (e.g. to a
// dead-letter office) instead of vanishing silently.
func WithEvictionHandler[M message.Message](handler func(*message.Envelope[M])) BoundedOption[M] {
	return func(m *Bounded[M]) {
		m.onEvict = handler
	}
}

// Bounded is a mailbox with fixed capacity. Behavior on a full mailbox is
// governed by the configured Strategy: Block suspends the sender, Drop rejects
// the new envelope with ErrMailboxFull, DropOldest evicts the oldest buffered
// envelope to admit the new one.
//
// The buffer is a Go channel so that Block sends and Recv compose with
// context cancellation. DropOldest eviction is serialized by a mutex.
type Bounded[M message.Message] struct {
	ch       chan *message.Envelope[M]
	strategy Strategy

	evictMu sync.Mutex
	onEvict func(*message.Envelope[M])

	done      chan struct{}
	closeOnce sync.Once

	metrics *Metrics
}

// enforce compilation error
var _ Mailbox[message.Message] = (*Bounded[message.Message])(nil)

// NewBounded creates a bounded mailbox with the given capacity and
// backpressure strategy. Capacity must be a positive integer.
func NewBounded[M message.Message](capacity int, strategy Strategy, opts ...BoundedOption[M]) *Bounded[M] {
	if capacity <= 0 {
		panic("mailbox capacity must be greater than zero")
	}
	mb := &Bounded[M]{
		ch:       make(chan *message.Envelope[M], capacity),
		strategy: strategy,
		done:     make(chan struct{}),
		metrics:  NewMetrics(),
	}
	for _, opt := range opts {
		opt(mb)
	}
	return mb
}

// Send enqueues the given envelope, applying the configured strategy when the
// mailbox is full. Under Block the call suspends until space frees, the
// context is canceled, or the mailbox is closed.
func (m *Bounded[M]) Send(ctx context.Context, envelope *message.Envelope[M]) error {
	if m.isClosed() {
		return errors.ErrMailboxClosed
	}

	switch m.strategy {
	case Block:
		select {
		case m.ch <- envelope:
			m.metrics.markEnqueued()
			return nil
		case <-m.done:
			return errors.ErrMailboxClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	case Drop:
		select {
		case m.ch <- envelope:
			m.metrics.markEnqueued()
			return nil
		default:
			m.metrics.markDropped()
			return errors.ErrMailboxFull
		}
	case DropOldest:
		m.evictMu.Lock()
		defer m.evictMu.Unlock()
		for {
			select {
			case m.ch <- envelope:
				m.metrics.markEnqueued()
				return nil
			default:
			}
			select {
			case oldest := <-m.ch:
				m.metrics.markDropped()
				if m.onEvict != nil {
					m.onEvict(oldest)
				}
			default:
			}
		}
	default:
		return errors.ErrMailboxFull
	}
}

// Recv dequeues the next envelope, suspending until one is available. After
// Close, buffered envelopes are drained before ErrMailboxClosed is reported.
func (m *Bounded[M]) Recv(ctx context.Context) (*message.Envelope[M], error) {
	select {
	case envelope := <-m.ch:
		m.metrics.markDequeued()
		return envelope, nil
	default:
	}

	select {
	case envelope := <-m.ch:
		m.metrics.markDequeued()
		return envelope, nil
	case <-m.done:
		// drain what was buffered before the close
		select {
		case envelope := <-m.ch:
			m.metrics.markDequeued()
			return envelope, nil
		default:
			return nil, errors.ErrMailboxClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryRecv dequeues the next envelope without suspending
func (m *Bounded[M]) TryRecv() (*message.Envelope[M], error) {
	select {
	case envelope := <-m.ch:
		m.metrics.markDequeued()
		return envelope, nil
	default:
		if m.isClosed() {
			return nil, errors.ErrMailboxClosed
		}
		return nil, errors.ErrMailboxEmpty
	}
}

// Close marks the mailbox closed and unblocks suspended senders and
// receivers. Buffered envelopes remain receivable.
func (m *Bounded[M]) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
}

// Len returns a snapshot of the number of buffered envelopes
func (m *Bounded[M]) Len() int {
	return len(m.ch)
}

// Capacity returns the fixed capacity of the mailbox
func (m *Bounded[M]) Capacity() int {
	return cap(m.ch)
}

// Metrics returns the cumulative mailbox counters
func (m *Bounded[M]) Metrics() *Metrics {
	return m.metrics
}

func (m *Bounded[M]) isClosed() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}
