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

// Package mailbox buffers envelopes between broker delivery and actor
// consumption, enforcing flow control when the buffer is bounded.
package mailbox

import (
	"context"

	"github.com/stage-rt/stage/message"
)

// Strategy defines the behavior of a bounded mailbox when it is full.
type Strategy int

const (
	// Block suspends the sender until space frees up, providing natural
	// upstream backpressure at the risk of sender stall.
	Block Strategy = iota
	// Drop discards the newly arriving envelope and notifies the sender of
	// the failure.
	Drop
	// DropOldest evicts the oldest buffered envelope to admit the new one.
	// Appropriate for status and telemetry streams where only the latest
	// value matters.
	DropOldest
)

// String returns the string representation of the strategy
func (s Strategy) String() string {
	switch s {
	case Block:
		return "Block"
	case Drop:
		return "Drop"
	case DropOldest:
		return "DropOldest"
	default:
		return ""
	}
}

// Mailbox defines the contract for an actor's message queue.
//
// Concurrency and ordering
//   - Implementations MUST be safe for multiple concurrent producers calling
//     Send. The actor runtime consumes from a single goroutine.
//   - FIFO ordering is preserved relative to a single producer.
//
// Blocking behavior
//   - Send may suspend under the Block strategy; it observes context
//     cancellation.
//   - Recv suspends the caller until an envelope is available or the mailbox
//     is closed. After Close, Recv drains the remaining buffered envelopes
//     before reporting ErrMailboxClosed.
//   - TryRecv never suspends and reports ErrMailboxEmpty when nothing is
//     queued.
type Mailbox[M message.Message] interface {
	// Send enqueues an envelope, applying the configured backpressure
	// strategy when the mailbox is bounded and full.
	Send(ctx context.Context, envelope *message.Envelope[M]) error
	// Recv dequeues the next envelope, suspending until one is available, the
	// context is canceled, or the mailbox is closed and drained.
	Recv(ctx context.Context) (*message.Envelope[M], error)
	// TryRecv dequeues the next envelope without suspending.
	TryRecv() (*message.Envelope[M], error)
	// Close marks the mailbox closed. Pending envelopes remain receivable;
	// subsequent sends fail with ErrMailboxClosed. Close is idempotent.
	Close()
	// Len returns a snapshot of the number of buffered envelopes.
	Len() int
	// Capacity returns the fixed capacity of the mailbox, or 0 when the
	// mailbox is unbounded.
	Capacity() int
	// Metrics returns the cumulative enqueue/dequeue counters.
	Metrics() *Metrics
}
