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

// Package message defines the contract a value must satisfy to be routed by
// the runtime, and the envelope that carries it between actors.
package message

// Message is the minimal behavioral contract for a routable value.
//
// Implementations must be value-like: cheaply copyable (broadcast duplicates
// the envelope per subscriber) and safe to hand across goroutines. The type
// identifier is used for routing diagnostics and dead-letter records, never
// for dispatch.
type Message interface {
	// MessageType returns a stable identifier for the message type.
	MessageType() string
}

// Prioritized is optionally implemented by messages that want a non-default
// routing priority.
type Prioritized interface {
	Priority() Priority
}

// Priority defines the relative importance of a message for mailbox
// processing order.
type Priority int

const (
	// LowPriority is for background traffic that can be deferred.
	LowPriority Priority = iota
	// NormalPriority is the default priority for routine messages.
	NormalPriority
	// HighPriority is for time-sensitive messages.
	HighPriority
	// CriticalPriority is reserved for system-critical messages such as
	// shutdown signals and supervision commands.
	CriticalPriority
)

// String returns the string representation of the priority
func (p Priority) String() string {
	switch p {
	case LowPriority:
		return "Low"
	case NormalPriority:
		return "Normal"
	case HighPriority:
		return "High"
	case CriticalPriority:
		return "Critical"
	default:
		return ""
	}
}

// PriorityOf returns the priority of the given message, defaulting to
// NormalPriority when the message does not implement Prioritized.
func PriorityOf(msg Message) Priority {
	if prioritized, ok := msg.(Prioritized); ok {
		return prioritized.Priority()
	}
	return NormalPriority
}
