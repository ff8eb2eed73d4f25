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

package actor

import (
	"context"
	"time"

	"go.uber.org/atomic"

	"github.com/stage-rt/stage/address"
	"github.com/stage-rt/stage/broker"
	"github.com/stage-rt/stage/log"
	"github.com/stage-rt/stage/message"
)

// Context is owned by one actor and carries its identity, activity counters
// and a shared handle to the broker. It is mutated only by the owning actor's
// processing loop; the timestamps and counter are atomic because a monitoring
// task may read them concurrently.
type Context[M message.Message] struct {
	addr      *address.Address
	createdAt time.Time

	lastMessageAt atomic.Int64
	processed     atomic.Int64

	broker broker.Broker[M]
	logger log.Logger
}

// NewContext creates an instance of Context for the given address. The broker
// handle is shared infrastructure, cloned into every actor context rather
// than owned by any single one.
func NewContext[M message.Message](addr *address.Address, bkr broker.Broker[M], logger log.Logger) *Context[M] {
	if logger == nil {
		logger = log.DiscardLogger
	}
	return &Context[M]{
		addr:      addr,
		createdAt: time.Now().UTC(),
		broker:    bkr,
		logger:    logger,
	}
}

// Address returns the address of the owning actor
func (c *Context[M]) Address() *address.Address {
	return c.addr
}

// CreatedAt returns the UTC creation time of the actor
func (c *Context[M]) CreatedAt() time.Time {
	return c.createdAt
}

// LastMessageAt returns the UTC time the actor last processed a message. The
// zero time is returned before the first message.
func (c *Context[M]) LastMessageAt() time.Time {
	nanos := c.lastMessageAt.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos).UTC()
}

// ProcessedCount returns the number of messages the actor has processed
func (c *Context[M]) ProcessedCount() int64 {
	return c.processed.Load()
}

// Broker returns the shared broker handle
func (c *Context[M]) Broker() broker.Broker[M] {
	return c.broker
}

// Logger returns the actor logger
func (c *Context[M]) Logger() log.Logger {
	return c.logger
}

// Publish wraps the given message into an envelope stamped with this actor as
// sender and publishes it through the broker.
func (c *Context[M]) Publish(ctx context.Context, msg M) error {
	return c.broker.Publish(ctx, message.NewEnvelope(msg).WithSender(c.addr))
}

// recordMessage updates the activity counters after one processed envelope
func (c *Context[M]) recordMessage() {
	c.processed.Inc()
	c.lastMessageAt.Store(time.Now().UnixNano())
}
