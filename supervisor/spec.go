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

import "time"

// RestartPolicy decides whether a child is brought back after it terminates
type RestartPolicy int

const (
	// Permanent children are always restarted, whatever the exit reason
	Permanent RestartPolicy = iota
	// Transient children are restarted only after an abnormal termination
	Transient
	// Temporary children are never restarted
	Temporary
)

// String returns the string representation of the restart policy
func (p RestartPolicy) String() string {
	switch p {
	case Permanent:
		return "Permanent"
	case Transient:
		return "Transient"
	case Temporary:
		return "Temporary"
	default:
		return ""
	}
}

// ShouldRestart reports whether a child governed by this policy is restarted
// after terminating with the given cause. A nil cause means a normal exit.
func (p RestartPolicy) ShouldRestart(cause error) bool {
	switch p {
	case Permanent:
		return true
	case Transient:
		return cause != nil
	default:
		return false
	}
}

// ShutdownPolicy decides how a child is taken down: gracefully within a
// bounded wait, or brutally with no wait at all.
type ShutdownPolicy struct {
	brutal  bool
	timeout time.Duration
}

// Graceful returns a shutdown policy that lets the child finish its in-flight
// work within the given timeout before it is forced down. A zero timeout
// waits indefinitely.
func Graceful(timeout time.Duration) ShutdownPolicy {
	return ShutdownPolicy{timeout: timeout}
}

// Brutal returns a shutdown policy that terminates the child immediately,
// abandoning in-flight work.
func Brutal() ShutdownPolicy {
	return ShutdownPolicy{brutal: true}
}

// IsBrutal reports whether the policy terminates without waiting
func (p ShutdownPolicy) IsBrutal() bool {
	return p.brutal
}

// Timeout returns the graceful wait bound. It is meaningless for brutal
// policies.
func (p ShutdownPolicy) Timeout() time.Duration {
	return p.timeout
}

// ChildSpec describes how a supervisor manages one child: its identity, when
// to restart it, how to shut it down and whether its permanent failure is
// significant enough to take the supervisor down with it.
type ChildSpec struct {
	// ID uniquely identifies the child within its supervisor
	ID string
	// Restart decides whether the child comes back after terminating
	Restart RestartPolicy
	// Shutdown decides how the child is taken down
	Shutdown ShutdownPolicy
	// Significant marks a child whose unrecoverable failure escalates to the
	// parent supervisor instead of being absorbed.
	Significant bool
}
