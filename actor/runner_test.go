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
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/stage-rt/stage/address"
	"github.com/stage-rt/stage/broker"
	"github.com/stage-rt/stage/errors"
	"github.com/stage-rt/stage/message"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testMessage struct {
	body string
}

func (testMessage) MessageType() string {
	return "actor.test"
}

// recorderActor appends every received body in arrival order
type recorderActor struct {
	mu     sync.Mutex
	bodies []string
}

func (a *recorderActor) Receive(_ context.Context, envelope *message.Envelope[testMessage], _ *Context[testMessage]) error {
	a.mu.Lock()
	a.bodies = append(a.bodies, envelope.Payload().body)
	a.mu.Unlock()
	return nil
}

func (a *recorderActor) received() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.bodies))
	copy(out, a.bodies)
	return out
}

// faultyActor fails on a designated body and classifies the error with a
// fixed directive
type faultyActor struct {
	recorderActor
	failOn    string
	directive Directive
}

// plainFaultyActor fails without implementing error classification, so the
// runner falls back to the Restart directive
type plainFaultyActor struct {
	recorderActor
	failOn string
}

func (a *plainFaultyActor) Receive(ctx context.Context, envelope *message.Envelope[testMessage], actorCtx *Context[testMessage]) error {
	if envelope.Payload().body == a.failOn {
		return stderrors.New("boom")
	}
	return a.recorderActor.Receive(ctx, envelope, actorCtx)
}

func (a *faultyActor) Receive(ctx context.Context, envelope *message.Envelope[testMessage], actorCtx *Context[testMessage]) error {
	if envelope.Payload().body == a.failOn {
		return stderrors.New("boom")
	}
	return a.recorderActor.Receive(ctx, envelope, actorCtx)
}

func (a *faultyActor) OnError(_ error, _ *Context[testMessage]) Directive {
	return a.directive
}

// hookedActor tracks lifecycle hook invocations
type hookedActor struct {
	recorderActor
	preStartErr error
	preStarted  int
	postStopped int
	panicOnRecv bool
}

func (a *hookedActor) PreStart(_ context.Context, _ *Context[testMessage]) error {
	a.preStarted++
	return a.preStartErr
}

func (a *hookedActor) PostStop(_ context.Context, _ *Context[testMessage]) error {
	a.postStopped++
	return nil
}

func (a *hookedActor) Receive(ctx context.Context, envelope *message.Envelope[testMessage], actorCtx *Context[testMessage]) error {
	if a.panicOnRecv {
		panic("kaboom")
	}
	return a.recorderActor.Receive(ctx, envelope, actorCtx)
}

func publishBody(t *testing.T, bkr broker.Broker[testMessage], body string) {
	t.Helper()
	require.NoError(t, bkr.Publish(context.TODO(), message.NewEnvelope(testMessage{body: body})))
}

func TestRunner(t *testing.T) {
	t.Run("With sequential in-order processing", func(t *testing.T) {
		ctx := context.TODO()
		bkr := broker.NewInMemory[testMessage]()
		act := new(recorderActor)
		runner := NewRunner[testMessage](act, address.New("recorder"), bkr)
		require.NoError(t, runner.Start(ctx))
		assert.True(t, runner.Lifecycle().IsRunning())

		expected := []string{"one", "two", "three", "four", "five"}
		for _, body := range expected {
			publishBody(t, bkr, body)
		}

		require.Eventually(t, func() bool {
			return len(act.received()) == len(expected)
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, expected, act.received())
		assert.EqualValues(t, len(expected), runner.Context().ProcessedCount())
		assert.EqualValues(t, len(expected), runner.Metrics().Messages())
		assert.False(t, runner.Context().LastMessageAt().IsZero())

		require.NoError(t, runner.Stop(ctx))
		assert.Equal(t, Stopped, runner.Lifecycle().State())
		assert.Zero(t, bkr.SubscriberCount())
		bkr.Close()
	})
	t.Run("With resume directive keeping the actor alive", func(t *testing.T) {
		ctx := context.TODO()
		bkr := broker.NewInMemory[testMessage]()
		act := &faultyActor{failOn: "bad", directive: Resume}
		runner := NewRunner[testMessage](act, address.New("resumer"), bkr)
		require.NoError(t, runner.Start(ctx))

		publishBody(t, bkr, "first")
		publishBody(t, bkr, "bad")
		publishBody(t, bkr, "second")

		require.Eventually(t, func() bool {
			return len(act.received()) == 2
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, []string{"first", "second"}, act.received())
		assert.True(t, runner.Lifecycle().IsRunning())
		assert.EqualValues(t, 1, runner.Metrics().Failures())

		require.NoError(t, runner.Stop(ctx))
		bkr.Close()
	})
	t.Run("With restart as the default directive", func(t *testing.T) {
		ctx := context.TODO()
		bkr := broker.NewInMemory[testMessage]()
		act := &plainFaultyActor{failOn: "bad"}
		runner := NewRunner[testMessage](act, address.New("restarter"), bkr)

		type failure struct {
			err       error
			directive Directive
		}
		failures := make(chan failure, 1)
		runner.OnFailure(func(err error, directive Directive) {
			failures <- failure{err: err, directive: directive}
		})
		require.NoError(t, runner.Start(ctx))

		publishBody(t, bkr, "bad")
		select {
		case got := <-failures:
			assert.Equal(t, Restart, got.directive)
			assert.EqualError(t, got.err, "boom")
		case <-time.After(time.Second):
			t.Fatal("failure callback never invoked")
		}
		assert.Equal(t, Failed, runner.Lifecycle().State())

		// stopping a failed runner cleans up but keeps the Failed state
		require.NoError(t, runner.Stop(ctx))
		assert.Equal(t, Failed, runner.Lifecycle().State())

		// the supervisor restarts by calling Start again
		require.NoError(t, runner.Start(ctx))
		assert.True(t, runner.Lifecycle().IsRunning())
		assert.EqualValues(t, 1, runner.Lifecycle().RestartCount())

		publishBody(t, bkr, "good")
		require.Eventually(t, func() bool {
			return len(act.received()) == 1
		}, time.Second, 5*time.Millisecond)

		require.NoError(t, runner.Stop(ctx))
		bkr.Close()
	})
	t.Run("With panic converted into a panic error", func(t *testing.T) {
		ctx := context.TODO()
		bkr := broker.NewInMemory[testMessage]()
		act := &hookedActor{panicOnRecv: true}
		runner := NewRunner[testMessage](act, address.New("panicky"), bkr)

		failures := make(chan error, 1)
		runner.OnFailure(func(err error, _ Directive) {
			failures <- err
		})
		require.NoError(t, runner.Start(ctx))

		publishBody(t, bkr, "anything")
		select {
		case err := <-failures:
			var panicErr *errors.PanicError
			require.ErrorAs(t, err, &panicErr)
		case <-time.After(time.Second):
			t.Fatal("failure callback never invoked")
		}
		assert.Equal(t, Failed, runner.Lifecycle().State())
		require.NoError(t, runner.Stop(ctx))
		bkr.Close()
	})
	t.Run("With pre-start failure short-circuiting start", func(t *testing.T) {
		ctx := context.TODO()
		bkr := broker.NewInMemory[testMessage]()
		act := &hookedActor{preStartErr: stderrors.New("no database")}
		runner := NewRunner[testMessage](act, address.New("initfail"), bkr)

		err := runner.Start(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInitFailure)
		assert.Equal(t, Failed, runner.Lifecycle().State())
		assert.Equal(t, 1, act.preStarted)
		assert.Zero(t, bkr.SubscriberCount())
		bkr.Close()
	})
	t.Run("With lifecycle hooks on graceful stop", func(t *testing.T) {
		ctx := context.TODO()
		bkr := broker.NewInMemory[testMessage]()
		act := new(hookedActor)
		runner := NewRunner[testMessage](act, address.New("hooked"), bkr)
		require.NoError(t, runner.Start(ctx))
		assert.Equal(t, 1, act.preStarted)

		publishBody(t, bkr, "work")
		require.Eventually(t, func() bool {
			return len(act.received()) == 1
		}, time.Second, 5*time.Millisecond)

		require.NoError(t, runner.Stop(ctx))
		assert.Equal(t, 1, act.postStopped)
		// stopping again is a no-op
		require.NoError(t, runner.Stop(ctx))
		assert.Equal(t, 1, act.postStopped)
		bkr.Close()
	})
	t.Run("With brutal kill skipping the post-stop hook", func(t *testing.T) {
		ctx := context.TODO()
		bkr := broker.NewInMemory[testMessage]()
		act := new(hookedActor)
		runner := NewRunner[testMessage](act, address.New("victim"), bkr)
		require.NoError(t, runner.Start(ctx))

		runner.Kill()
		assert.Equal(t, Stopped, runner.Lifecycle().State())
		assert.Zero(t, act.postStopped)
		assert.Zero(t, bkr.SubscriberCount())
		bkr.Close()
	})
	t.Run("With double start rejected", func(t *testing.T) {
		ctx := context.TODO()
		bkr := broker.NewInMemory[testMessage]()
		runner := NewRunner[testMessage](new(recorderActor), address.New("dup"), bkr)
		require.NoError(t, runner.Start(ctx))
		assert.ErrorIs(t, runner.Start(ctx), errors.ErrAlreadyStarted)
		require.NoError(t, runner.Stop(ctx))
		bkr.Close()
	})
	t.Run("With expired messages dropped", func(t *testing.T) {
		ctx := context.TODO()
		bkr := broker.NewInMemory[testMessage]()
		act := new(recorderActor)
		runner := NewRunner[testMessage](act, address.New("ttl"), bkr)
		require.NoError(t, runner.Start(ctx))

		stale := message.NewEnvelope(testMessage{body: "stale"}).WithTTL(time.Nanosecond)
		time.Sleep(5 * time.Millisecond)
		require.NoError(t, bkr.Publish(ctx, stale))
		publishBody(t, bkr, "fresh")

		require.Eventually(t, func() bool {
			return len(act.received()) == 1
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, []string{"fresh"}, act.received())

		require.NoError(t, runner.Stop(ctx))
		bkr.Close()
	})
}
