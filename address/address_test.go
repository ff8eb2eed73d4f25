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

package address

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	addr := New("worker")
	assert.Equal(t, "worker", addr.Name())
	assert.NotEqual(t, uuid.Nil, addr.ID())
	assert.Contains(t, addr.String(), "worker/")
}

func TestAnonymous(t *testing.T) {
	addr := Anonymous()
	assert.Empty(t, addr.Name())
	assert.Equal(t, addr.ID().String(), addr.String())
}

func TestEquals(t *testing.T) {
	addr := New("worker")
	other := New("worker")
	assert.True(t, addr.Equals(addr))
	assert.False(t, addr.Equals(other))
	assert.False(t, addr.Equals(nil))
}

func TestRoutingKey(t *testing.T) {
	addr := New("worker")
	key := addr.RoutingKey()
	// stable across calls
	require.Equal(t, key, addr.RoutingKey())
	// distinct addresses hash to distinct keys
	assert.NotEqual(t, key, New("worker").RoutingKey())
}
