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
	"fmt"

	"github.com/stage-rt/stage/actor"
	"github.com/stage-rt/stage/message"
	"github.com/stage-rt/stage/monitoring"
)

// runnerChild adapts an actor Runner to the Child contract, translating the
// child spec's shutdown policy into the runner's graceful/brutal termination
// paths.
type runnerChild[M message.Message] struct {
	runner *actor.Runner[M]
	spec   ChildSpec
}

// FromRunner adapts an actor Runner into a supervisable Child governed by the
// given spec. When the spec carries no identity, the actor's address is used.
func FromRunner[M message.Message](runner *actor.Runner[M], spec ChildSpec) Child {
	if spec.ID == "" {
		spec.ID = runner.Address().String()
	}
	return &runnerChild[M]{runner: runner, spec: spec}
}

func (c *runnerChild[M]) ID() string {
	return c.spec.ID
}

func (c *runnerChild[M]) Start(ctx context.Context) error {
	return c.runner.Start(ctx)
}

func (c *runnerChild[M]) Stop(ctx context.Context) error {
	if c.spec.Shutdown.IsBrutal() {
		c.runner.Kill()
		return nil
	}
	// the graceful wait bound is applied by the owning node
	return c.runner.Stop(ctx)
}

func (c *runnerChild[M]) HealthCheck(context.Context) monitoring.Health {
	switch c.runner.Lifecycle().State() {
	case actor.Running:
		return monitoring.Ok()
	case actor.Failed:
		return monitoring.Degraded(fmt.Sprintf("actor=(%s) is failed", c.runner.Address()))
	default:
		return monitoring.Indeterminate()
	}
}

// RestartCount returns the number of completed restart cycles of the
// underlying runner.
func (c *runnerChild[M]) RestartCount() uint32 {
	return c.runner.Lifecycle().RestartCount()
}

// bindSupervisor routes the runner's failure reports into the supervisor's
// directive handling. The callback runs on the runner's loop goroutine after
// the loop has fully wound down, so the supervisor may synchronously stop and
// start the runner from inside it.
func (c *runnerChild[M]) bindSupervisor(n *Node, childID string) {
	c.runner.OnFailure(func(err error, directive actor.Directive) {
		if handleErr := n.HandleDirective(context.Background(), childID, directive, err); handleErr != nil {
			n.logger.Errorf("supervisor=(%s) could not recover child=(%s): %v", n.id, childID, handleErr)
		}
	})
}
