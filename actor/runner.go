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
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/stage-rt/stage/address"
	"github.com/stage-rt/stage/broker"
	"github.com/stage-rt/stage/errors"
	"github.com/stage-rt/stage/log"
	"github.com/stage-rt/stage/mailbox"
	"github.com/stage-rt/stage/message"
	"github.com/stage-rt/stage/monitoring"
)

// Runner owns one actor and drives its strictly sequential message loop:
// subscribe, receive, process, repeat. No two invocations of the actor's
// Receive ever overlap, which is what lets actor state go unsynchronized.
type Runner[M message.Message] struct {
	mu sync.Mutex

	act       Actor[M]
	actorCtx  *Context[M]
	lifecycle *Lifecycle
	broker    broker.Broker[M]
	metrics   *monitoring.ActorMetrics
	logger    log.Logger

	subscribeOpts []broker.SubscribeOption[M]
	mailbox       mailbox.Mailbox[M]

	loopCancel context.CancelFunc
	loopDone   chan struct{}

	// halting suppresses the failure callback while a deliberate shutdown is
	// in progress, so a failure racing with Stop does not trigger recovery
	// for an actor that is already being taken down.
	halting atomic.Bool

	// onFailure is invoked by the loop goroutine after it has fully wound
	// down, so the owning supervisor can safely call back into Stop/Start.
	onFailure func(err error, directive Directive)
}

// RunnerOption configures a Runner
type RunnerOption[M message.Message] func(*Runner[M])

// WithLogger sets the runner logger. The default discards.
func WithLogger[M message.Message](logger log.Logger) RunnerOption[M] {
	return func(r *Runner[M]) {
		r.logger = logger
	}
}

// WithBoundedMailbox backs the runner's broker subscription with a bounded
// mailbox of the given capacity and backpressure strategy. The default is an
// unbounded mailbox.
func WithBoundedMailbox[M message.Message](capacity int, strategy mailbox.Strategy) RunnerOption[M] {
	return func(r *Runner[M]) {
		r.subscribeOpts = append(r.subscribeOpts, broker.WithBoundedMailbox[M](capacity, strategy))
	}
}

// WithMailbox backs the runner's broker subscription with the given mailbox
func WithMailbox[M message.Message](mb mailbox.Mailbox[M]) RunnerOption[M] {
	return func(r *Runner[M]) {
		r.subscribeOpts = append(r.subscribeOpts, broker.WithMailbox[M](mb))
	}
}

// NewRunner creates a Runner for the given actor and identity. The runner is
// inert until Start is called.
func NewRunner[M message.Message](act Actor[M], addr *address.Address, bkr broker.Broker[M], opts ...RunnerOption[M]) *Runner[M] {
	r := &Runner[M]{
		act:       act,
		lifecycle: NewLifecycle(),
		broker:    bkr,
		metrics:   monitoring.NewActorMetrics(),
		logger:    log.DiscardLogger,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.actorCtx = NewContext(addr, bkr, r.logger)
	return r
}

// Address returns the identity of the owned actor
func (r *Runner[M]) Address() *address.Address {
	return r.actorCtx.Address()
}

// Context returns the actor context
func (r *Runner[M]) Context() *Context[M] {
	return r.actorCtx
}

// Lifecycle returns the actor lifecycle
func (r *Runner[M]) Lifecycle() *Lifecycle {
	return r.lifecycle
}

// MailboxLen returns the current depth of the actor's mailbox. It is zero
// before the first start.
func (r *Runner[M]) MailboxLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mailbox == nil {
		return 0
	}
	return r.mailbox.Len()
}

// Metrics returns the per-actor activity counters
func (r *Runner[M]) Metrics() *monitoring.ActorMetrics {
	return r.metrics
}

// OnFailure registers the callback invoked when the message loop terminates
// abnormally. It must be set before Start.
func (r *Runner[M]) OnFailure(fn func(err error, directive Directive)) {
	r.onFailure = fn
}

// Start runs the pre-start hook, subscribes the actor to the broker and
// launches the message loop. Starting a terminal runner begins a restart
// cycle; starting a running one fails.
func (r *Runner[M]) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.lifecycle.State() {
	case Running, Stopping:
		return errors.ErrAlreadyStarted
	case Stopped, Failed:
		if err := r.lifecycle.BeginRestart(); err != nil {
			return err
		}
	}

	if preStarter, ok := r.act.(PreStarter[M]); ok {
		if err := preStarter.PreStart(ctx, r.actorCtx); err != nil {
			_ = r.lifecycle.TransitionTo(Failed)
			return fmt.Errorf("%w: %v", errors.ErrInitFailure, err)
		}
	}

	mb, err := r.broker.Subscribe(ctx, r.actorCtx.Address(), r.subscribeOpts...)
	if err != nil {
		_ = r.lifecycle.TransitionTo(Failed)
		return err
	}
	r.mailbox = mb

	if err := r.lifecycle.TransitionTo(Running); err != nil {
		return err
	}

	r.halting.Store(false)

	// the loop outlives the Start call; its context is canceled only by
	// Kill, never by the caller's deadline
	loopCtx, cancel := context.WithCancel(context.Background())
	r.loopCancel = cancel
	r.loopDone = make(chan struct{})
	go r.receiveLoop(loopCtx, mb, r.loopDone)

	r.logger.Infof("actor=(%s) started", r.actorCtx.Address())
	return nil
}

// Stop gracefully shuts the actor down: unsubscribes it from the broker,
// waits for the message loop to wind down within the context deadline, then
// runs the post-stop hook. Stopping an already-terminal runner only performs
// the post-stop cleanup.
func (r *Runner[M]) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.lifecycle.State()
	if state == Stopped {
		return nil
	}
	r.halting.Store(true)

	failed := state == Failed
	if !failed {
		if err := r.lifecycle.TransitionTo(Stopping); err != nil {
			return err
		}
	}

	// closing the mailbox lets the loop drain what was already enqueued
	// and then exit on its own
	if err := r.broker.Unsubscribe(r.actorCtx.Address()); err != nil {
		r.logger.Warnf("actor=(%s) unsubscribe on stop: %v", r.actorCtx.Address(), err)
	}

	if r.loopDone != nil {
		select {
		case <-r.loopDone:
		case <-ctx.Done():
			r.loopCancel()
			<-r.loopDone
		}
	}

	stopErr := r.runPostStop(ctx)

	// the loop may have failed while draining the last envelopes; a failure
	// observed during shutdown keeps the runner in Failed
	if !failed && r.lifecycle.State() != Failed {
		if err := r.lifecycle.TransitionTo(Stopped); err != nil {
			return err
		}
	}
	r.logger.Infof("actor=(%s) stopped", r.actorCtx.Address())
	return stopErr
}

// Kill brutally terminates the actor: pending mail is discarded and the
// post-stop hook does not run. The loop context is canceled and Kill waits
// for the loop to observe the cancellation, so an in-flight handler still
// runs to completion before the actor is marked stopped.
func (r *Runner[M]) Kill() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lifecycle.IsTerminal() {
		return
	}
	r.halting.Store(true)
	_ = r.lifecycle.TransitionTo(Stopping)
	if err := r.broker.Unsubscribe(r.actorCtx.Address()); err != nil {
		r.logger.Warnf("actor=(%s) unsubscribe on kill: %v", r.actorCtx.Address(), err)
	}
	if r.loopCancel != nil {
		r.loopCancel()
		<-r.loopDone
	}
	_ = r.lifecycle.TransitionTo(Stopped)
	r.logger.Infof("actor=(%s) killed", r.actorCtx.Address())
}

// receiveLoop drains the mailbox one envelope at a time until the mailbox
// closes, the loop context is canceled or the actor fails.
func (r *Runner[M]) receiveLoop(ctx context.Context, mb mailbox.Mailbox[M], done chan struct{}) {
	for {
		envelope, err := mb.Recv(ctx)
		if err != nil {
			// mailbox closed or context canceled: a normal wind-down
			close(done)
			return
		}
		if envelope.Expired() {
			r.logger.Debugf("actor=(%s) dropped expired message=(%s)", r.actorCtx.Address(), envelope.ID())
			continue
		}

		handlerErr := r.process(ctx, envelope)
		if handlerErr == nil {
			continue
		}

		directive := Restart
		if classifier, ok := r.act.(ErrorClassifier[M]); ok {
			directive = classifier.OnError(handlerErr, r.actorCtx)
		}
		r.metrics.RecordFailure()

		if directive == Resume {
			r.logger.Warnf("actor=(%s) resumed after error: %v", r.actorCtx.Address(), handlerErr)
			continue
		}

		_ = r.lifecycle.TransitionTo(Failed)
		r.logger.Errorf("actor=(%s) failed with directive=(%s): %v", r.actorCtx.Address(), directive, handlerErr)

		// unblock anyone waiting on the loop before handing control to the
		// supervisor, which may synchronously call Stop or Start on this
		// runner
		close(done)
		if r.onFailure != nil && !r.halting.Load() {
			r.onFailure(handlerErr, directive)
		}
		return
	}
}

// process invokes the actor's Receive on one envelope, converting panics into
// errors and recording activity.
func (r *Runner[M]) process(ctx context.Context, envelope *message.Envelope[M]) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = errors.NewPanicError(fmt.Errorf("%v", recovered))
		}
	}()

	started := time.Now()
	err = r.act.Receive(ctx, envelope, r.actorCtx)
	r.metrics.RecordMessage(time.Since(started))
	r.actorCtx.recordMessage()
	return err
}

// runPostStop invokes the actor's post-stop hook if it has one, recovering
// panics. It is safe to call even when the pre-start hook never completed.
func (r *Runner[M]) runPostStop(ctx context.Context) (err error) {
	postStopper, ok := r.act.(PostStopper[M])
	if !ok {
		return nil
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			err = errors.NewPanicError(fmt.Errorf("%v", recovered))
		}
	}()
	return postStopper.PostStop(ctx, r.actorCtx)
}
