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

package system

import (
	"context"

	"github.com/stage-rt/stage/actor"
	"github.com/stage-rt/stage/address"
	"github.com/stage-rt/stage/broker"
	"github.com/stage-rt/stage/message"
	"github.com/stage-rt/stage/monitoring"
	"github.com/stage-rt/stage/supervisor"
)

// NewBroker creates an in-process broker for one message type, wired to the
// system logger and deadletter office, and registers it for shutdown with the
// system.
//
// Brokers are free functions rather than System methods because each broker
// is generic over its message type while the System is not.
func NewBroker[M message.Message](s *System, opts ...broker.Option[M]) broker.Broker[M] {
	defaults := []broker.Option[M]{
		broker.WithLogger[M](s.Logger()),
		broker.WithDeadletters[M](s.Deadletters()),
	}
	bkr := broker.NewInMemory[M](append(defaults, opts...)...)
	s.registerService(bkr)
	return bkr
}

// Spawn creates an actor under the root supervisor: the actor is wrapped in a
// Runner subscribed to the given broker, governed by the given child spec and
// watched by the health monitor when one is enabled. When the system is
// already running the actor starts immediately, otherwise it starts with the
// system.
func Spawn[M message.Message](ctx context.Context, s *System, name string, act actor.Actor[M], bkr broker.Broker[M], spec supervisor.ChildSpec, opts ...actor.RunnerOption[M]) (*actor.Runner[M], error) {
	if spec.ID == "" {
		spec.ID = name
	}

	runnerOpts := append([]actor.RunnerOption[M]{actor.WithLogger[M](s.Logger())}, opts...)
	runner := actor.NewRunner(act, address.New(name), bkr, runnerOpts...)
	child := supervisor.FromRunner(runner, spec)

	if err := s.Root().AddChild(spec, child); err != nil {
		return nil, err
	}
	if s.Running() {
		if err := s.Root().Start(ctx); err != nil {
			return nil, err
		}
	}

	s.trackMailbox(spec.ID, runner.MailboxLen)
	s.watch(child)
	if s.meter != nil {
		instruments, err := monitoring.NewInstruments(s.meter, name, runner.Metrics())
		if err != nil {
			return nil, err
		}
		s.trackInstruments(instruments)
	}
	return runner, nil
}
