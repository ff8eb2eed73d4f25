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

// Package address defines the opaque identity used to route messages to an
// actor. An Address is assigned once at actor creation and never changes for
// the actor's lifetime.
package address

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

// Address uniquely identifies an actor within the runtime. It is comparable
// and hashable, and serves as the broker subscription key.
type Address struct {
	id   uuid.UUID
	name string
}

// New creates an Address with the given human-readable name and a fresh
// unique identifier.
func New(name string) *Address {
	return &Address{
		id:   uuid.New(),
		name: name,
	}
}

// Anonymous creates an Address without a human-readable name.
func Anonymous() *Address {
	return &Address{id: uuid.New()}
}

// ID returns the unique identifier of the address
func (a *Address) ID() uuid.UUID {
	return a.id
}

// Name returns the human-readable name of the address. It may be empty for
// anonymous addresses.
func (a *Address) Name() string {
	return a.name
}

// Equals compares two addresses by identifier
func (a *Address) Equals(other *Address) bool {
	if other == nil {
		return false
	}
	return a.id == other.id
}

// RoutingKey returns a stable 64-bit hash of the address identifier, suitable
// for consistent routing decisions.
func (a *Address) RoutingKey() uint64 {
	return xxh3.HashString(a.id.String())
}

// String returns the string representation of the address
func (a *Address) String() string {
	if a.name == "" {
		return a.id.String()
	}
	return fmt.Sprintf("%s/%s", a.name, a.id)
}
