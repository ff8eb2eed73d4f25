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

package system

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/goleak"

	"github.com/stage-rt/stage/actor"
	"github.com/stage-rt/stage/errors"
	"github.com/stage-rt/stage/message"
	"github.com/stage-rt/stage/monitoring"
	"github.com/stage-rt/stage/supervisor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type greeting struct {
	text string
}

func (greeting) MessageType() string {
	return "system.test.greeting"
}

type echoActor struct {
	mu    sync.Mutex
	seen  []string
	ready chan struct{}
	once  sync.Once
}

func newEchoActor() *echoActor {
	return &echoActor{ready: make(chan struct{})}
}

func (a *echoActor) Receive(_ context.Context, envelope *message.Envelope[greeting], _ *actor.Context[greeting]) error {
	a.mu.Lock()
	a.seen = append(a.seen, envelope.Payload().text)
	a.mu.Unlock()
	a.once.Do(func() { close(a.ready) })
	return nil
}

func (a *echoActor) received() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.seen))
	copy(out, a.seen)
	return out
}

func TestSystem(t *testing.T) {
	t.Run("With end to end message flow", func(t *testing.T) {
		ctx := context.TODO()
		sys, err := New(WithName("testsys"), WithSampleInterval(10*time.Millisecond))
		require.NoError(t, err)
		assert.Equal(t, "testsys", sys.Name())

		bkr := NewBroker[greeting](sys)
		act := newEchoActor()
		runner, err := Spawn(ctx, sys, "echo", act, bkr,
			supervisor.ChildSpec{Restart: supervisor.Permanent, Shutdown: supervisor.Graceful(time.Second)})
		require.NoError(t, err)

		require.NoError(t, sys.Start(ctx))
		assert.True(t, sys.Running())
		assert.True(t, runner.Lifecycle().IsRunning())

		require.NoError(t, bkr.Publish(ctx, message.NewEnvelope(greeting{text: "hello"})))
		select {
		case <-act.ready:
		case <-time.After(time.Second):
			t.Fatal("message never processed")
		}
		assert.Equal(t, []string{"hello"}, act.received())

		require.NoError(t, sys.Stop(ctx))
		assert.False(t, sys.Running())
		assert.Equal(t, actor.Stopped, runner.Lifecycle().State())
		assert.Zero(t, bkr.SubscriberCount())
	})
	t.Run("With spawn after start bringing the actor up immediately", func(t *testing.T) {
		ctx := context.TODO()
		sys, err := New()
		require.NoError(t, err)
		require.NoError(t, sys.Start(ctx))

		bkr := NewBroker[greeting](sys)
		runner, err := Spawn(ctx, sys, "late", newEchoActor(), bkr,
			supervisor.ChildSpec{Restart: supervisor.Permanent, Shutdown: supervisor.Graceful(time.Second)})
		require.NoError(t, err)
		assert.True(t, runner.Lifecycle().IsRunning())

		require.NoError(t, sys.Stop(ctx))
	})
	t.Run("With duplicate spawn identity rejected", func(t *testing.T) {
		ctx := context.TODO()
		sys, err := New()
		require.NoError(t, err)
		bkr := NewBroker[greeting](sys)

		_, err = Spawn(ctx, sys, "twin", newEchoActor(), bkr, supervisor.ChildSpec{})
		require.NoError(t, err)
		_, err = Spawn(ctx, sys, "twin", newEchoActor(), bkr, supervisor.ChildSpec{})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrChildAlreadyExists)

		require.NoError(t, sys.Start(ctx))
		require.NoError(t, sys.Stop(ctx))
	})
	t.Run("With double start rejected", func(t *testing.T) {
		ctx := context.TODO()
		sys, err := New()
		require.NoError(t, err)
		require.NoError(t, sys.Start(ctx))
		assert.ErrorIs(t, sys.Start(ctx), errors.ErrAlreadyStarted)
		require.NoError(t, sys.Stop(ctx))
		// stopping twice is a no-op
		require.NoError(t, sys.Stop(ctx))
	})
	t.Run("With health monitoring and metrics enabled", func(t *testing.T) {
		ctx := context.TODO()
		sys, err := New(
			WithHealthMonitoring(monitoring.WithInterval(10*time.Millisecond), monitoring.WithThreshold(3)),
			WithMeter(noop.NewMeterProvider().Meter("test")),
		)
		require.NoError(t, err)

		bkr := NewBroker[greeting](sys)
		_, err = Spawn(ctx, sys, "watched", newEchoActor(), bkr,
			supervisor.ChildSpec{Restart: supervisor.Permanent, Shutdown: supervisor.Graceful(time.Second)})
		require.NoError(t, err)

		require.NoError(t, sys.Start(ctx))
		time.Sleep(50 * time.Millisecond)
		require.NoError(t, sys.Stop(ctx))
	})
}
