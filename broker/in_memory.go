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

package broker

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/stage-rt/stage/address"
	"github.com/stage-rt/stage/deadletter"
	"github.com/stage-rt/stage/errors"
	"github.com/stage-rt/stage/log"
	"github.com/stage-rt/stage/mailbox"
	"github.com/stage-rt/stage/message"
)

// Option defines the various options to apply to an InMemory broker
type Option[M message.Message] func(*InMemory[M])

// WithLogger sets the broker logger
func WithLogger[M message.Message](logger log.Logger) Option[M] {
	return func(b *InMemory[M]) {
		b.logger = logger
	}
}

// WithDeadletters sets the dead-letter office that records undeliverable
// envelopes.
func WithDeadletters[M message.Message](office *deadletter.Office) Option[M] {
	return func(b *InMemory[M]) {
		b.deadletters = office
	}
}

type registration[M message.Message] struct {
	subscriber *address.Address
	mailbox    mailbox.Mailbox[M]
}

// InMemory is the in-process Broker implementation.
//
// The subscriber registry is the one piece of state mutated by multiple
// concurrent callers and is guarded by a single mutex. This is an intentional
// contention point: registration and removal are rare compared to publish
// volume, and Publish only holds the lock long enough to snapshot the
// registry.
type InMemory[M message.Message] struct {
	mu     sync.Mutex
	subs   map[string]*registration[M]
	closed bool

	deadletters *deadletter.Office
	logger      log.Logger
}

// enforce compilation error
var _ Broker[message.Message] = (*InMemory[message.Message])(nil)

// NewInMemory creates an instance of InMemory
func NewInMemory[M message.Message](opts ...Option[M]) *InMemory[M] {
	broker := &InMemory[M]{
		subs:   make(map[string]*registration[M]),
		logger: log.DiscardLogger,
	}
	for _, opt := range opts {
		opt(broker)
	}
	return broker
}

// Publish broadcasts the envelope to every registered subscriber. The
// envelope is cloned per subscriber. Envelopes published from a single
// goroutine arrive at each subscriber in publish order; no ordering holds
// across subscribers or across publishers.
func (b *InMemory[M]) Publish(ctx context.Context, envelope *message.Envelope[M]) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.ErrBrokerClosed
	}
	snapshot := make([]*registration[M], 0, len(b.subs))
	for _, reg := range b.subs {
		snapshot = append(snapshot, reg)
	}
	b.mu.Unlock()

	var errs error
	for _, reg := range snapshot {
		if err := reg.mailbox.Send(ctx, envelope.Clone()); err != nil {
			errs = multierr.Append(errs, b.undeliverable(envelope, reg, err))
		}
	}
	return errs
}

// Subscribe registers a mailbox for the given identity and returns the
// receiving end. When the identity is already registered the previous
// registration is replaced and its mailbox closed, so that a restarted actor
// can re-subscribe under the same address without leaking the dead mailbox.
func (b *InMemory[M]) Subscribe(_ context.Context, subscriber *address.Address, opts ...SubscribeOption[M]) (mailbox.Mailbox[M], error) {
	config := &subscribeConfig[M]{}
	for _, opt := range opts {
		opt(config)
	}
	if config.mailbox == nil {
		config.mailbox = mailbox.NewUnbounded[M]()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.ErrBrokerClosed
	}

	key := subscriber.ID().String()
	if previous, ok := b.subs[key]; ok {
		b.logger.Warnf("replacing existing subscription for subscriber=(%s)", subscriber.String())
		previous.mailbox.Close()
	}
	b.subs[key] = &registration[M]{
		subscriber: subscriber,
		mailbox:    config.mailbox,
	}
	b.logger.Debugf("subscriber=(%s) registered", subscriber.String())
	return config.mailbox, nil
}

// Unsubscribe removes the registration for the given identity and closes its
// mailbox.
func (b *InMemory[M]) Unsubscribe(subscriber *address.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := subscriber.ID().String()
	reg, ok := b.subs[key]
	if !ok {
		return fmt.Errorf("subscriber=(%s): %w", subscriber.String(), errors.ErrSubscriberNotFound)
	}
	reg.mailbox.Close()
	delete(b.subs, key)
	b.logger.Debugf("subscriber=(%s) removed", subscriber.String())
	return nil
}

// SubscriberCount returns the number of registered subscribers
func (b *InMemory[M]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close shuts the broker down and closes every subscriber mailbox
func (b *InMemory[M]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, reg := range b.subs {
		reg.mailbox.Close()
	}
	b.subs = make(map[string]*registration[M])
}

// undeliverable wraps a per-subscriber delivery failure and records it to the
// dead-letter office when one is configured.
func (b *InMemory[M]) undeliverable(envelope *message.Envelope[M], reg *registration[M], cause error) error {
	wrapped := cause
	if stderrors.Is(cause, errors.ErrMailboxClosed) {
		// both sentinels stay in the chain: callers match on either
		wrapped = fmt.Errorf("%w: %w", errors.ErrChannelClosed, cause)
	}
	err := fmt.Errorf("delivery to subscriber=(%s) failed: %w", reg.subscriber.String(), wrapped)
	if b.deadletters != nil {
		b.deadletters.Record(deadletter.Letter{
			SubscriberID: reg.subscriber.String(),
			MessageID:    envelope.ID(),
			MessageType:  envelope.MessageType(),
			Reason:       wrapped,
		})
	}
	b.logger.Warnf("%v", err)
	return err
}
