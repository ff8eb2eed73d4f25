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

// Package actor implements the behavior execution unit of the runtime: the
// Actor contract, its per-actor context, the lifecycle state machine and the
// Runner that drives a strictly sequential message loop.
package actor

import (
	"context"

	"github.com/stage-rt/stage/message"
)

// Actor encapsulates state and the policy for reacting to one message type.
//
// Receive is the only required operation; lifecycle hooks and error
// classification are opted into by additionally implementing PreStarter,
// PostStopper or ErrorClassifier.
type Actor[M message.Message] interface {
	// Receive processes exactly one message. It must not itself decide
	// recovery; returning an error delegates that decision to OnError.
	Receive(ctx context.Context, envelope *message.Envelope[M], actorCtx *Context[M]) error
}

// PreStarter is implemented by actors that need resource acquisition before
// accepting messages. A failure here moves the lifecycle directly to Failed
// without ever reaching Running.
type PreStarter[M message.Message] interface {
	PreStart(ctx context.Context, actorCtx *Context[M]) error
}

// PostStopper is implemented by actors that need to release resources during
// shutdown. PostStop runs on both graceful stop and post-failure cleanup and
// must be safe to invoke even if PreStart never completed.
type PostStopper[M message.Message] interface {
	PostStop(ctx context.Context, actorCtx *Context[M]) error
}

// ErrorClassifier is implemented by actors that want to decide how a handler
// error is recovered. Actors that do not implement it get the Restart
// directive for every error.
type ErrorClassifier[M message.Message] interface {
	OnError(err error, actorCtx *Context[M]) Directive
}

// Directive is the recovery decision an actor attaches to a handler error.
// It is decided by the actor itself and acted upon by the owning supervisor.
type Directive int

const (
	// Resume swallows the error and keeps the actor running
	Resume Directive = iota
	// Restart has the owning supervisor stop then start this actor
	Restart
	// Stop has the owning supervisor stop this actor without restarting it
	Stop
	// Escalate bubbles the failure to the parent supervisor
	Escalate
)

// String returns the string representation of the directive
func (d Directive) String() string {
	switch d {
	case Resume:
		return "Resume"
	case Restart:
		return "Restart"
	case Stop:
		return "Stop"
	case Escalate:
		return "Escalate"
	default:
		return ""
	}
}
