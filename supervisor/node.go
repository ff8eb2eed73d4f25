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
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"go.uber.org/multierr"

	"github.com/stage-rt/stage/actor"
	"github.com/stage-rt/stage/errors"
	"github.com/stage-rt/stage/log"
	"github.com/stage-rt/stage/monitoring"
)

type entry struct {
	spec    ChildSpec
	child   Child
	running bool
}

// Node is one supervisor in the supervision tree: an ordered list of children
// plus the strategy applied when one of them fails. A Node is itself a Child,
// so nodes nest into trees, and it is a monitoring.FailureHandler, so health
// monitors route threshold breaches into the same restart path as hard
// failures.
//
// Strategy runs are serialized: one failure is fully handled before the next
// is looked at.
type Node struct {
	mu sync.Mutex

	id       string
	strategy StrategyKind
	entries  []*entry
	index    map[string]int
	parent   *Node
	logger   log.Logger
	halted   bool

	maxStartRetries int
	startTimeout    time.Duration
}

var _ Child = (*Node)(nil)
var _ monitoring.FailureHandler = (*Node)(nil)

// ID returns the identity of the supervisor
func (n *Node) ID() string {
	return n.id
}

// AddChild registers a child at the end of the supervision order. The
// registration order is the start order, and it is preserved across
// restarts.
func (n *Node) AddChild(spec ChildSpec, child Child) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := spec.ID
	if id == "" {
		id = child.ID()
	}
	spec.ID = id
	if _, ok := n.index[id]; ok {
		return fmt.Errorf("%w: id=(%s)", errors.ErrChildAlreadyExists, id)
	}

	if nested, ok := child.(*Node); ok {
		nested.setParent(n)
	}
	if binder, ok := child.(supervisable); ok {
		binder.bindSupervisor(n, id)
	}

	n.index[id] = len(n.entries)
	n.entries = append(n.entries, &entry{spec: spec, child: child})
	return nil
}

// Start brings every child up in registration order. A child that cannot be
// started within the retry budget surfaces as a ChildStartError; the
// remaining children are still started.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.halted = false
	var errs error
	for _, e := range n.entries {
		if err := n.startEntry(ctx, e); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Stop winds every child down in reverse registration order, so dependents
// stop before their dependencies. A stopped node refuses further failure
// handling: a crash racing the shutdown must not bring a child back up.
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.halted = true
	var errs error
	for i := len(n.entries) - 1; i >= 0; i-- {
		if err := n.stopEntry(ctx, n.entries[i]); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// HealthCheck aggregates the health of the subtree: unhealthy as soon as any
// child is unhealthy, unknown when no child is unhealthy but at least one is
// indeterminate.
func (n *Node) HealthCheck(ctx context.Context) monitoring.Health {
	n.mu.Lock()
	children := make([]*entry, len(n.entries))
	copy(children, n.entries)
	n.mu.Unlock()

	indeterminate := false
	for _, e := range children {
		health := e.child.HealthCheck(ctx)
		switch health.Status() {
		case monitoring.Unhealthy:
			return monitoring.Degraded(fmt.Sprintf("child=(%s): %s", e.spec.ID, health.Reason()))
		case monitoring.Unknown:
			indeterminate = true
		}
	}
	if indeterminate {
		return monitoring.Indeterminate()
	}
	return monitoring.Ok()
}

// HandleFailure applies the supervisor's strategy to the failure of the given
// child: the affected children are stopped in registration order, then
// restarted in registration order. Permanent start failures of a significant
// child escalate to the parent supervisor; at the root they surface to the
// caller.
func (n *Node) HandleFailure(ctx context.Context, childID string, cause error) error {
	errs, escalations := n.applyStrategy(ctx, childID, cause)
	for _, escalation := range escalations {
		errs = multierr.Append(errs, n.escalate(ctx, escalation))
	}
	return errs
}

// HandleDirective acts on the recovery decision an actor attached to its
// failure.
func (n *Node) HandleDirective(ctx context.Context, childID string, directive actor.Directive, cause error) error {
	switch directive {
	case actor.Resume:
		n.logger.Warnf("supervisor=(%s) resumed child=(%s): %v", n.id, childID, cause)
		return nil
	case actor.Stop:
		return n.stopChild(ctx, childID)
	case actor.Escalate:
		return n.escalate(ctx, cause)
	default:
		return n.HandleFailure(ctx, childID, cause)
	}
}

// RestartCount returns how many times the given child has been restarted by
// this supervisor. The zero value is returned for unknown children.
func (n *Node) RestartCount(childID string) uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if idx, ok := n.index[childID]; ok {
		if counter, ok := n.entries[idx].child.(restartCounter); ok {
			return counter.RestartCount()
		}
	}
	return 0
}

// ChildIDs returns the identities of the children in registration order
func (n *Node) ChildIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]string, 0, len(n.entries))
	for _, e := range n.entries {
		ids = append(ids, e.spec.ID)
	}
	return ids
}

func (n *Node) setParent(parent *Node) {
	n.mu.Lock()
	n.parent = parent
	n.mu.Unlock()
}

// applyStrategy runs the stop/start cycle under the node lock and returns the
// escalations to perform once the lock is released, so that a parent stopping
// this node back does not deadlock.
func (n *Node) applyStrategy(ctx context.Context, childID string, cause error) (error, []error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.halted {
		n.logger.Infof("supervisor=(%s) ignoring failure of child=(%s): supervisor stopped", n.id, childID)
		return nil, nil
	}
	idx, ok := n.index[childID]
	if !ok {
		return fmt.Errorf("%w: id=(%s)", errors.ErrChildNotFound, childID), nil
	}
	failed := n.entries[idx]
	n.logger.Warnf("supervisor=(%s) handling failure of child=(%s) with strategy=(%s): %v",
		n.id, childID, n.strategy, cause)

	var affected []*entry
	switch n.strategy {
	case OneForAll:
		affected = n.entries
	case RestForOne:
		affected = n.entries[idx:]
	default:
		affected = []*entry{failed}
	}

	var errs error
	for _, e := range affected {
		if err := n.stopEntry(ctx, e); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	var escalations []error
	for _, e := range affected {
		if e == failed && !e.spec.Restart.ShouldRestart(cause) {
			n.logger.Infof("supervisor=(%s) not restarting child=(%s): policy=(%s)",
				n.id, e.spec.ID, e.spec.Restart)
			// A significant child staying down is itself a failure of this
			// supervisor, so the parent gets to decide what happens next.
			if e.spec.Significant {
				escalations = append(escalations, cause)
			}
			continue
		}
		if err := n.startEntry(ctx, e); err != nil {
			errs = multierr.Append(errs, err)
			if e.spec.Significant {
				escalations = append(escalations, err)
			}
		}
	}
	return errs, escalations
}

// escalate hands the failure to the parent supervisor. At the root there is
// no parent left, so the failure surfaces to the caller instead of being
// swallowed.
func (n *Node) escalate(ctx context.Context, cause error) error {
	n.mu.Lock()
	parent := n.parent
	n.mu.Unlock()

	if parent == nil {
		return multierr.Append(errors.ErrEscalation, cause)
	}
	return parent.HandleFailure(ctx, n.id, cause)
}

func (n *Node) stopChild(ctx context.Context, childID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	idx, ok := n.index[childID]
	if !ok {
		return fmt.Errorf("%w: id=(%s)", errors.ErrChildNotFound, childID)
	}
	return n.stopEntry(ctx, n.entries[idx])
}

// startEntry starts one child with a capped retry budget. Exhausting the
// budget leaves the child down and reports a ChildStartError.
func (n *Node) startEntry(ctx context.Context, e *entry) error {
	if e.running {
		return nil
	}
	retrier := retry.NewRetrier(n.maxStartRetries, 100*time.Millisecond, n.startTimeout)
	if err := retrier.RunContext(ctx, e.child.Start); err != nil {
		n.logger.Errorf("supervisor=(%s) failed to start child=(%s): %v", n.id, e.spec.ID, err)
		return errors.NewChildStartError(e.spec.ID, err)
	}
	e.running = true
	n.logger.Infof("supervisor=(%s) started child=(%s)", n.id, e.spec.ID)
	return nil
}

// stopEntry stops one child, bounding the wait when the child's shutdown
// policy is graceful with a timeout. The child is considered down afterwards
// even when its stop reported an error.
func (n *Node) stopEntry(ctx context.Context, e *entry) error {
	if !e.running {
		return nil
	}
	e.running = false

	stopCtx := ctx
	if !e.spec.Shutdown.IsBrutal() && e.spec.Shutdown.Timeout() > 0 {
		var cancel context.CancelFunc
		stopCtx, cancel = context.WithTimeout(ctx, e.spec.Shutdown.Timeout())
		defer cancel()
	}
	if err := e.child.Stop(stopCtx); err != nil {
		n.logger.Errorf("supervisor=(%s) failed to stop child=(%s): %v", n.id, e.spec.ID, err)
		return errors.NewChildStopError(e.spec.ID, err)
	}
	n.logger.Infof("supervisor=(%s) stopped child=(%s)", n.id, e.spec.ID)
	return nil
}

// restartCounter is satisfied by children that track completed restart
// cycles, such as runner-backed children.
type restartCounter interface {
	RestartCount() uint32
}

// supervisable is satisfied by children that report their failures to the
// owning supervisor, such as runner-backed children.
type supervisable interface {
	bindSupervisor(n *Node, childID string)
}
