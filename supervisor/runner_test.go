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

package supervisor

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stage-rt/stage/actor"
	"github.com/stage-rt/stage/address"
	"github.com/stage-rt/stage/broker"
	"github.com/stage-rt/stage/message"
)

type command struct {
	verb string
}

func (command) MessageType() string {
	return "supervisor.test.command"
}

// crashableActor fails on the "crash" verb and counts everything else
type crashableActor struct {
	directive actor.Directive
	handled   chan string
}

func newCrashableActor(directive actor.Directive) *crashableActor {
	return &crashableActor{directive: directive, handled: make(chan string, 16)}
}

func (a *crashableActor) Receive(_ context.Context, envelope *message.Envelope[command], _ *actor.Context[command]) error {
	verb := envelope.Payload().verb
	if verb == "crash" {
		return stderrors.New("crashed on command")
	}
	a.handled <- verb
	return nil
}

func (a *crashableActor) OnError(_ error, _ *actor.Context[command]) actor.Directive {
	return a.directive
}

func TestRunnerChild(t *testing.T) {
	t.Run("With automatic restart after a crash", func(t *testing.T) {
		ctx := context.TODO()
		bkr := broker.NewInMemory[command]()
		act := newCrashableActor(actor.Restart)
		runner := actor.NewRunner[command](act, address.New("worker"), bkr)

		node, err := NewBuilder().
			WithID("root").
			WithStrategy(OneForOne).
			WithMaxStartRetries(2).
			WithStartTimeout(50 * time.Millisecond).
			WithChild(ChildSpec{ID: "worker", Restart: Permanent, Shutdown: Graceful(time.Second)}, FromRunner(runner, ChildSpec{ID: "worker"})).
			Build()
		require.NoError(t, err)
		require.NoError(t, node.Start(ctx))
		assert.True(t, runner.Lifecycle().IsRunning())

		require.NoError(t, bkr.Publish(ctx, message.NewEnvelope(command{verb: "crash"})))
		require.Eventually(t, func() bool {
			return runner.Lifecycle().IsRunning() && runner.Lifecycle().RestartCount() == 1
		}, time.Second, 5*time.Millisecond)
		assert.EqualValues(t, 1, node.RestartCount("worker"))

		// the restarted incarnation keeps processing
		require.NoError(t, bkr.Publish(ctx, message.NewEnvelope(command{verb: "work"})))
		select {
		case verb := <-act.handled:
			assert.Equal(t, "work", verb)
		case <-time.After(time.Second):
			t.Fatal("restarted actor never processed a message")
		}

		require.NoError(t, node.Stop(ctx))
		assert.Equal(t, actor.Stopped, runner.Lifecycle().State())
		bkr.Close()
	})
	t.Run("With stop directive leaving the actor down", func(t *testing.T) {
		ctx := context.TODO()
		bkr := broker.NewInMemory[command]()
		act := newCrashableActor(actor.Stop)
		runner := actor.NewRunner[command](act, address.New("fragile"), bkr)

		node, err := NewBuilder().
			WithID("root").
			WithStrategy(OneForOne).
			WithChild(ChildSpec{ID: "fragile", Restart: Permanent, Shutdown: Graceful(time.Second)}, FromRunner(runner, ChildSpec{ID: "fragile"})).
			Build()
		require.NoError(t, err)
		require.NoError(t, node.Start(ctx))

		require.NoError(t, bkr.Publish(ctx, message.NewEnvelope(command{verb: "crash"})))
		require.Eventually(t, func() bool {
			return bkr.SubscriberCount() == 0
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, actor.Failed, runner.Lifecycle().State())
		assert.Zero(t, runner.Lifecycle().RestartCount())
		bkr.Close()
	})
	t.Run("With brutal shutdown policy killing the runner", func(t *testing.T) {
		ctx := context.TODO()
		bkr := broker.NewInMemory[command]()
		act := newCrashableActor(actor.Restart)
		runner := actor.NewRunner[command](act, address.New("expendable"), bkr)

		node, err := NewBuilder().
			WithID("root").
			WithStrategy(OneForOne).
			WithChild(ChildSpec{ID: "expendable", Restart: Permanent, Shutdown: Brutal()}, FromRunner(runner, ChildSpec{ID: "expendable", Shutdown: Brutal()})).
			Build()
		require.NoError(t, err)
		require.NoError(t, node.Start(ctx))
		require.NoError(t, node.Stop(ctx))
		assert.Equal(t, actor.Stopped, runner.Lifecycle().State())
		bkr.Close()
	})
	t.Run("With runner health reflecting the lifecycle", func(t *testing.T) {
		ctx := context.TODO()
		bkr := broker.NewInMemory[command]()
		runner := actor.NewRunner[command](newCrashableActor(actor.Restart), address.New("sensor"), bkr)
		child := FromRunner(runner, ChildSpec{ID: "sensor"})

		assert.Equal(t, "sensor", child.ID())
		// not started yet
		assert.False(t, child.HealthCheck(ctx).IsHealthy())

		require.NoError(t, child.Start(ctx))
		assert.True(t, child.HealthCheck(ctx).IsHealthy())

		require.NoError(t, child.Stop(ctx))
		assert.False(t, child.HealthCheck(ctx).IsHealthy())
		bkr.Close()
	})
}
