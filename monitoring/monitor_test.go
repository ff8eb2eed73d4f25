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

package monitoring

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTarget struct {
	mu     sync.Mutex
	id     string
	health Health
	checks int
}

func (f *fakeTarget) ID() string { return f.id }

func (f *fakeTarget) HealthCheck(context.Context) Health {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	return f.health
}

func (f *fakeTarget) setHealth(h Health) {
	f.mu.Lock()
	f.health = h
	f.mu.Unlock()
}

type recordingHandler struct {
	mu       sync.Mutex
	failures []string
}

func (r *recordingHandler) HandleFailure(_ context.Context, childID string, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, childID)
	return nil
}

func (r *recordingHandler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures)
}

func TestThresholdTriggersHandler(t *testing.T) {
	ctx := context.TODO()
	handler := &recordingHandler{}
	monitor := NewHealthMonitor(handler,
		WithInterval(10*time.Millisecond),
		WithThreshold(2),
		WithCheckTimeout(time.Second))

	target := &fakeTarget{id: "worker", health: Degraded("overloaded")}
	monitor.Watch(target)

	require.NoError(t, monitor.Start(ctx))
	defer monitor.Stop(ctx)

	// a single failed check is below the threshold; two trigger the handler
	require.Eventually(t, func() bool {
		return handler.count() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "worker", handler.failures[0])
	assert.Contains(t, monitor.Unhealthy(), "worker")
}

func TestHealthyResetsCounter(t *testing.T) {
	ctx := context.TODO()
	handler := &recordingHandler{}
	monitor := NewHealthMonitor(handler,
		WithInterval(10*time.Millisecond),
		WithThreshold(3))

	target := &fakeTarget{id: "worker", health: Degraded("slow")}
	monitor.Watch(target)

	require.NoError(t, monitor.Start(ctx))
	defer monitor.Stop(ctx)

	// let it fail twice, then recover before the threshold is reached
	require.Eventually(t, func() bool {
		target.mu.Lock()
		defer target.mu.Unlock()
		return target.checks >= 2
	}, 2*time.Second, 5*time.Millisecond)
	target.setHealth(Ok())

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, handler.count())
	assert.Empty(t, monitor.Unhealthy())
}

func TestUnknownIsNeutral(t *testing.T) {
	ctx := context.TODO()
	handler := &recordingHandler{}
	monitor := NewHealthMonitor(handler,
		WithInterval(10*time.Millisecond),
		WithThreshold(1))

	target := &fakeTarget{id: "worker", health: Indeterminate()}
	monitor.Watch(target)

	require.NoError(t, monitor.Start(ctx))
	defer monitor.Stop(ctx)

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, handler.count())
}

func TestUnwatch(t *testing.T) {
	ctx := context.TODO()
	handler := &recordingHandler{}
	monitor := NewHealthMonitor(handler, WithInterval(10*time.Millisecond), WithThreshold(1))

	target := &fakeTarget{id: "worker", health: Degraded("bad")}
	monitor.Watch(target)
	monitor.Unwatch("worker")

	require.NoError(t, monitor.Start(ctx))
	defer monitor.Stop(ctx)

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, handler.count())
}

func TestDoubleStart(t *testing.T) {
	ctx := context.TODO()
	monitor := NewHealthMonitor(&recordingHandler{}, WithInterval(time.Minute))
	require.NoError(t, monitor.Start(ctx))
	defer monitor.Stop(ctx)

	assert.Error(t, monitor.Start(ctx))
	assert.True(t, monitor.Running())
}

func TestHealthAccessors(t *testing.T) {
	assert.True(t, Ok().IsHealthy())
	assert.False(t, Ok().IsUnhealthy())
	assert.True(t, Degraded("x").IsUnhealthy())
	assert.Equal(t, "x", Degraded("x").Reason())
	assert.Equal(t, Unknown, Indeterminate().Status())
	assert.Equal(t, "Healthy", Healthy.String())
	assert.Equal(t, "Unhealthy", Unhealthy.String())
	assert.Equal(t, "Unknown", Unknown.String())
}
