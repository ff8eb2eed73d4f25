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

package message

import (
	"time"

	"github.com/google/uuid"

	"github.com/stage-rt/stage/address"
)

// Envelope wraps a message with routing metadata: a generated unique
// identifier, a UTC creation timestamp, an optional sender and reply-to
// address, an optional correlation identifier and an optional time-to-live.
//
// An envelope is created at send time, consumed exactly once by the receiving
// actor and never mutated in transit.
type Envelope[M Message] struct {
	id            uuid.UUID
	payload       M
	sender        *address.Address
	replyTo       *address.Address
	correlationID uuid.UUID
	timestamp     time.Time
	priority      Priority
	ttl           time.Duration
}

// NewEnvelope wraps the given message into an envelope stamped with a fresh
// unique identifier and the current UTC time. Construction cannot fail.
func NewEnvelope[M Message](payload M) *Envelope[M] {
	return &Envelope[M]{
		id:        uuid.New(),
		payload:   payload,
		timestamp: time.Now().UTC(),
		priority:  PriorityOf(payload),
	}
}

// WithSender sets the sender address for reply capability
func (e *Envelope[M]) WithSender(sender *address.Address) *Envelope[M] {
	e.sender = sender
	return e
}

// WithReplyTo sets the reply-to address
func (e *Envelope[M]) WithReplyTo(replyTo *address.Address) *Envelope[M] {
	e.replyTo = replyTo
	return e
}

// WithCorrelationID sets the correlation identifier used for request/response
// tracking.
func (e *Envelope[M]) WithCorrelationID(id uuid.UUID) *Envelope[M] {
	e.correlationID = id
	return e
}

// WithTTL sets the time-to-live after which the envelope is considered
// expired. A zero ttl means the envelope never expires.
func (e *Envelope[M]) WithTTL(ttl time.Duration) *Envelope[M] {
	e.ttl = ttl
	return e
}

// ID returns the unique identifier of the envelope
func (e *Envelope[M]) ID() uuid.UUID {
	return e.id
}

// Payload returns the wrapped message
func (e *Envelope[M]) Payload() M {
	return e.payload
}

// Sender returns the sender address. It may be nil.
func (e *Envelope[M]) Sender() *address.Address {
	return e.sender
}

// ReplyTo returns the reply-to address. It may be nil.
func (e *Envelope[M]) ReplyTo() *address.Address {
	return e.replyTo
}

// CorrelationID returns the correlation identifier. It is uuid.Nil when unset.
func (e *Envelope[M]) CorrelationID() uuid.UUID {
	return e.correlationID
}

// Timestamp returns the UTC creation time of the envelope
func (e *Envelope[M]) Timestamp() time.Time {
	return e.timestamp
}

// Priority returns the priority extracted from the payload at creation time
func (e *Envelope[M]) Priority() Priority {
	return e.priority
}

// MessageType returns the stable type identifier of the payload
func (e *Envelope[M]) MessageType() string {
	return e.payload.MessageType()
}

// Expired reports whether the envelope has outlived its time-to-live.
// Envelopes without a ttl never expire.
func (e *Envelope[M]) Expired() bool {
	if e.ttl <= 0 {
		return false
	}
	return time.Since(e.timestamp) > e.ttl
}

// Clone returns a copy of the envelope sharing the same payload and metadata.
// Broadcast delivery clones the envelope once per subscriber.
func (e *Envelope[M]) Clone() *Envelope[M] {
	clone := *e
	return &clone
}
