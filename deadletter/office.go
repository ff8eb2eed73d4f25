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

// Package deadletter records envelopes the broker could not deliver so that
// no message disappears silently. The office is an append-only buffer drained
// on demand by diagnostics or tests; it never blocks the publish path.
package deadletter

import (
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/stage-rt/stage/log"
)

// Letter describes one undeliverable envelope
type Letter struct {
	// SubscriberID is the identity of the subscriber the delivery targeted
	SubscriberID string
	// MessageID is the unique identifier of the envelope
	MessageID uuid.UUID
	// MessageType is the stable type identifier of the payload
	MessageType string
	// Reason is the delivery failure
	Reason error
	// Timestamp is the UTC time the letter was recorded
	Timestamp time.Time
}

// Office buffers dead letters until they are drained
type Office struct {
	letters *queue.Queue
	count   atomic.Int64
	logger  log.Logger
}

// New creates an instance of Office
func New(logger log.Logger) *Office {
	if logger == nil {
		logger = log.DiscardLogger
	}
	return &Office{
		letters: queue.New(16),
		logger:  logger,
	}
}

// Record appends a letter to the office. It never blocks and is a no-op once
// the office has been disposed.
func (o *Office) Record(letter Letter) {
	if o.letters.Disposed() {
		return
	}
	if letter.Timestamp.IsZero() {
		letter.Timestamp = time.Now().UTC()
	}
	if err := o.letters.Put(letter); err != nil {
		return
	}
	o.count.Inc()
	o.logger.Debugf("dead letter recorded: subscriber=(%s) type=(%s) reason=(%v)",
		letter.SubscriberID, letter.MessageType, letter.Reason)
}

// Drain returns the letters buffered at the time of invocation and clears
// them. Letters recorded concurrently with the call may not be included.
func (o *Office) Drain() []Letter {
	n := o.letters.Len()
	if n == 0 {
		return nil
	}
	items, err := o.letters.Get(n)
	if err != nil {
		return nil
	}
	letters := make([]Letter, 0, len(items))
	for _, item := range items {
		if letter, ok := item.(Letter); ok {
			letters = append(letters, letter)
		}
	}
	return letters
}

// Count returns the cumulative number of letters ever recorded
func (o *Office) Count() int64 {
	return o.count.Load()
}

// Size returns the number of letters currently buffered
func (o *Office) Size() int64 {
	return o.letters.Len()
}

// Dispose releases the underlying buffer. The office must not be used after
// Dispose returns.
func (o *Office) Dispose() {
	o.letters.Dispose()
}
