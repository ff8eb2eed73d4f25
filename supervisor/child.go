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

// Package supervisor implements hierarchical fault tolerance: supervisors own
// an ordered list of children, react to child failures with a restart
// strategy and escalate what they cannot handle to their parent. Supervisors
// nest, so a whole subtree is itself a child.
package supervisor

import (
	"context"

	"github.com/stage-rt/stage/monitoring"
)

// Child is anything a supervisor can own: an actor behind a Runner, a nested
// supervisor node or any resource with a start/stop lifecycle.
type Child interface {
	// ID returns the unique identity of the child within its supervisor
	ID() string
	// Start brings the child up. Starting an already-running child fails.
	Start(ctx context.Context) error
	// Stop winds the child down according to its shutdown policy
	Stop(ctx context.Context) error
	// HealthCheck reports the current health of the child
	HealthCheck(ctx context.Context) monitoring.Health
}
