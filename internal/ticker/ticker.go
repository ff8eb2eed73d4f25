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

// Package ticker provides a loss-tolerant ticker for periodic sampling: a
// tick that finds no ready receiver is dropped instead of backing up the
// sender, so a slow sampler never stalls the runtime.
package ticker

import (
	"sync"
	"time"
)

// Ticker delivers ticks on C at a fixed interval. Delivery is best-effort:
// when the receiver is not ready the tick is skipped.
type Ticker struct {
	// C receives the ticks
	C chan time.Time

	interval time.Duration
	mu       sync.Mutex
	running  bool
	done     chan struct{}
}

// New creates a Ticker with the given interval. It panics when the interval
// is not positive.
func New(interval time.Duration) *Ticker {
	if interval <= 0 {
		panic("ticker interval must be positive")
	}
	return &Ticker{
		C:        make(chan time.Time),
		interval: interval,
	}
}

// Start begins tick delivery. Starting a running ticker is a no-op.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.done = make(chan struct{})
	go t.loop(t.done)
}

// Stop halts tick delivery. No tick is delivered after Stop returns until
// Start is called again.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	close(t.done)
}

// Running reports whether the ticker is delivering ticks
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Ticker) loop(done chan struct{}) {
	source := time.NewTicker(t.interval)
	defer source.Stop()
	for {
		select {
		case tick := <-source.C:
			select {
			case t.C <- tick:
			default:
			}
		case <-done:
			return
		}
	}
}
