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
	"time"

	"github.com/google/uuid"

	"github.com/stage-rt/stage/errors"
	"github.com/stage-rt/stage/log"
)

const (
	defaultMaxStartRetries = 3
	defaultStartTimeout    = 3 * time.Second
)

// Builder assembles a supervisor Node. It is pure accumulation: nothing is
// started or registered until Build.
type Builder struct {
	id              string
	strategy        StrategyKind
	strategySet     bool
	logger          log.Logger
	maxStartRetries int
	startTimeout    time.Duration
	pairs           []pair
}

type pair struct {
	spec  ChildSpec
	child Child
}

// NewBuilder creates a supervisor Builder
func NewBuilder() *Builder {
	return &Builder{
		logger:          log.DiscardLogger,
		maxStartRetries: defaultMaxStartRetries,
		startTimeout:    defaultStartTimeout,
	}
}

// WithID sets the supervisor identity. The default is a generated one.
func (b *Builder) WithID(id string) *Builder {
	b.id = id
	return b
}

// WithStrategy sets the restart strategy. A strategy is mandatory.
func (b *Builder) WithStrategy(strategy StrategyKind) *Builder {
	b.strategy = strategy
	b.strategySet = true
	return b
}

// WithChild appends a child to the supervision order
func (b *Builder) WithChild(spec ChildSpec, child Child) *Builder {
	b.pairs = append(b.pairs, pair{spec: spec, child: child})
	return b
}

// WithLogger sets the supervisor logger. The default discards.
func (b *Builder) WithLogger(logger log.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMaxStartRetries sets the retry budget for starting a child
func (b *Builder) WithMaxStartRetries(retries int) *Builder {
	b.maxStartRetries = retries
	return b
}

// WithStartTimeout caps the backoff between child start retries
func (b *Builder) WithStartTimeout(timeout time.Duration) *Builder {
	b.startTimeout = timeout
	return b
}

// Build validates the configuration and assembles the Node. It fails when no
// strategy was supplied or when two children share an identity.
func (b *Builder) Build() (*Node, error) {
	if !b.strategySet {
		return nil, errors.ErrStrategyRequired
	}
	id := b.id
	if id == "" {
		id = "supervisor-" + uuid.NewString()
	}
	node := &Node{
		id:              id,
		strategy:        b.strategy,
		index:           make(map[string]int, len(b.pairs)),
		logger:          b.logger,
		maxStartRetries: b.maxStartRetries,
		startTimeout:    b.startTimeout,
	}
	for _, p := range b.pairs {
		if err := node.AddChild(p.spec, p.child); err != nil {
			return nil, err
		}
	}
	return node, nil
}
