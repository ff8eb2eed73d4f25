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
	"fmt"
	"sync"
	"time"

	"github.com/stage-rt/stage/errors"
)

// State represents the lifecycle state of an actor incarnation
type State int

const (
	// Starting indicates the actor is initializing and not yet accepting
	// messages.
	Starting State = iota
	// Running indicates the actor is processing messages
	Running
	// Stopping indicates a supervisor-initiated shutdown is in progress
	Stopping
	// Stopped indicates the actor shut down cleanly. Terminal for the
	// current incarnation.
	Stopped
	// Failed indicates the actor terminated abnormally. Terminal for the
	// current incarnation.
	Failed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	case Stopped:
		return "Stopped"
	case Failed:
		return "Failed"
	default:
		return ""
	}
}

// transitions defines the legal lifecycle state machine. Terminal states
// re-enter Starting only through BeginRestart.
var transitions = map[State][]State{
	Starting: {Running, Stopping, Failed},
	Running:  {Stopping, Failed},
	Stopping: {Stopped, Failed},
	Stopped:  {},
	Failed:   {},
}

// Lifecycle tracks the state machine of one actor: the current state, the UTC
// time of the last transition and a restart counter. It is mutated
// exclusively by the supervision/execution loop owning the actor, never by
// the actor's own message-handling code.
type Lifecycle struct {
	mu             sync.Mutex
	state          State
	changedAt      time.Time
	restarts       uint32
	pendingRestart bool
}

// NewLifecycle creates a Lifecycle in the Starting state
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		state:     Starting,
		changedAt: time.Now().UTC(),
	}
}

// TransitionTo moves the lifecycle to the given state, failing when the
// transition is not part of the state machine. Reaching Running after
// BeginRestart completes the restart cycle and increments the restart
// counter exactly once.
func (l *Lifecycle) TransitionTo(next State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	allowed := false
	for _, candidate := range transitions[l.state] {
		if candidate == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, l.state, next)
	}

	l.state = next
	l.changedAt = time.Now().UTC()
	if next == Running && l.pendingRestart {
		l.restarts++
		l.pendingRestart = false
	}
	return nil
}

// BeginRestart re-enters Starting from a terminal state. Only a supervisor
// drives this transition; the restart counter is incremented once the
// incarnation reaches Running again.
func (l *Lifecycle) BeginRestart() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != Stopped && l.state != Failed {
		return fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, l.state, Starting)
	}
	l.state = Starting
	l.changedAt = time.Now().UTC()
	l.pendingRestart = true
	return nil
}

// State returns the current lifecycle state
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// LastTransition returns the UTC time of the last state change
func (l *Lifecycle) LastTransition() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.changedAt
}

// RestartCount returns the number of completed restart cycles. It never
// decreases.
func (l *Lifecycle) RestartCount() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.restarts
}

// IsTerminal returns true if and only if the state is Stopped or Failed
func (l *Lifecycle) IsTerminal() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == Stopped || l.state == Failed
}

// IsRunning returns true if and only if the state is Running
func (l *Lifecycle) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == Running
}
