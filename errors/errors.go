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

// Package errors defines the error values shared by the runtime packages.
//
// Errors fall into three groups mirroring the runtime layers: broker errors
// are always scoped to a single subscriber, mailbox errors report flow-control
// conditions, and supervisor errors identify which child and which phase of a
// restart cycle went wrong. All typed errors support errors.Is/errors.As.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrMailboxFull is returned by a bounded mailbox when a non-blocking
	// backpressure strategy rejects an incoming envelope.
	ErrMailboxFull = errors.New("mailbox is full")

	// ErrMailboxClosed is returned when sending to, or after draining, a
	// mailbox whose receiver is gone.
	ErrMailboxClosed = errors.New("mailbox is closed")

	// ErrMailboxEmpty is returned by a non-blocking receive when no envelope
	// is queued.
	ErrMailboxEmpty = errors.New("mailbox is empty")

	// ErrSubscriberNotFound is returned when the broker has no registration
	// for the given subscriber identity.
	ErrSubscriberNotFound = errors.New("subscriber not found")

	// ErrChannelClosed is returned when a subscriber channel is no longer
	// receivable. The failure is scoped to that subscriber and never aborts
	// delivery to the remaining ones.
	ErrChannelClosed = errors.New("subscriber channel is closed")

	// ErrBrokerClosed is returned when publishing or subscribing on a broker
	// that has been shut down.
	ErrBrokerClosed = errors.New("broker is closed")

	// ErrChildNotFound is returned by a supervision strategy when the failed
	// child identity is not part of the supervisor's child list.
	ErrChildNotFound = errors.New("child not found")

	// ErrChildAlreadyExists is returned when registering a child under an
	// identity that is already taken.
	ErrChildAlreadyExists = errors.New("child already exists")

	// ErrStrategyRequired is returned by the supervisor builder when Build is
	// invoked without a restart strategy.
	ErrStrategyRequired = errors.New("supervisor strategy is required")

	// ErrDead indicates that the actor is no longer alive or has been terminated.
	ErrDead = errors.New("actor is not alive")

	// ErrAlreadyStarted is returned when starting a component that is already
	// running.
	ErrAlreadyStarted = errors.New("already started")

	// ErrInitFailure is returned when the actor's PreStart hook fails during
	// initialization.
	ErrInitFailure = errors.New("pre-start failed")

	// ErrInvalidTransition is returned when an actor lifecycle transition is
	// not part of the state machine.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrEscalation is returned from a root supervisor when a failure was
	// escalated past the top of the supervision tree.
	ErrEscalation = errors.New("failure escalated past root supervisor")
)

// PanicError wraps a panic recovered from an actor's message handler so that
// it flows through the regular error classification path.
type PanicError struct {
	cause error
}

// NewPanicError creates an instance of PanicError
func NewPanicError(cause error) *PanicError {
	return &PanicError{cause: cause}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("message handler panicked: %v", e.cause)
}

func (e *PanicError) Unwrap() error {
	return e.cause
}

// ChildStartError reports that starting a given child failed during a
// supervision restart cycle. It carries the child identity and the underlying
// cause so that a failed start is never masked as a successful restart.
type ChildStartError struct {
	ChildID string
	Cause   error
}

// NewChildStartError creates an instance of ChildStartError
func NewChildStartError(childID string, cause error) *ChildStartError {
	return &ChildStartError{ChildID: childID, Cause: cause}
}

func (e *ChildStartError) Error() string {
	return fmt.Sprintf("failed to start child=(%s): %v", e.ChildID, e.Cause)
}

func (e *ChildStartError) Unwrap() error {
	return e.Cause
}

// ChildStopError reports that stopping a given child failed during shutdown or
// a supervision restart cycle.
type ChildStopError struct {
	ChildID string
	Cause   error
}

// NewChildStopError creates an instance of ChildStopError
func NewChildStopError(childID string, cause error) *ChildStopError {
	return &ChildStopError{ChildID: childID, Cause: cause}
}

func (e *ChildStopError) Error() string {
	return fmt.Sprintf("failed to stop child=(%s): %v", e.ChildID, e.Cause)
}

func (e *ChildStopError) Unwrap() error {
	return e.Cause
}
