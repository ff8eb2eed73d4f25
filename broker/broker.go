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

// Package broker decouples message senders from receivers via
// publish/subscribe routing. The in-process implementation lives here; the
// Broker interface is the seam through which an external transport could be
// substituted without changing actor or supervisor code.
package broker

import (
	"context"

	"github.com/stage-rt/stage/address"
	"github.com/stage-rt/stage/mailbox"
	"github.com/stage-rt/stage/message"
)

// Broker routes envelopes from publishers to subscriber mailboxes.
type Broker[M message.Message] interface {
	Service

	// Publish broadcasts the envelope to every subscriber registered at the
	// time of the call, cloning it per subscriber. Delivery failures are
	// per-subscriber and never abort delivery to the remaining subscribers;
	// the returned error aggregates them.
	Publish(ctx context.Context, envelope *message.Envelope[M]) error
	// Subscribe registers a mailbox for the given identity and returns its
	// receiving end. Subscribing an identity that is already registered
	// replaces the previous registration and closes its mailbox.
	Subscribe(ctx context.Context, subscriber *address.Address, opts ...SubscribeOption[M]) (mailbox.Mailbox[M], error)
	// Unsubscribe removes the registration for the given identity and closes
	// its mailbox.
	Unsubscribe(subscriber *address.Address) error
}

// Service is the message-type-agnostic surface of a broker, used by the actor
// system for shutdown and observability.
type Service interface {
	// SubscriberCount returns the number of registered subscribers
	SubscriberCount() int
	// Close shuts the broker down and closes every subscriber mailbox
	Close()
}

// SubscribeOption configures the mailbox backing a subscription
type SubscribeOption[M message.Message] func(*subscribeConfig[M])

type subscribeConfig[M message.Message] struct {
	mailbox mailbox.Mailbox[M]
}

// WithBoundedMailbox backs the subscription with a bounded mailbox of the
// given capacity and backpressure strategy. The default is an unbounded
// mailbox.
func WithBoundedMailbox[M message.Message](capacity int, strategy mailbox.Strategy) SubscribeOption[M] {
	return func(config *subscribeConfig[M]) {
		config.mailbox = mailbox.NewBounded[M](capacity, strategy)
	}
}

// WithMailbox backs the subscription with the given mailbox
func WithMailbox[M message.Message](mb mailbox.Mailbox[M]) SubscribeOption[M] {
	return func(config *subscribeConfig[M]) {
		config.mailbox = mb
	}
}
