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

// Package monitoring proactively detects degradation instead of only reacting
// to hard failures: periodic health checks feed the supervision restart path,
// and lock-free counters expose actor activity without adding contention to
// the hot message path.
package monitoring

import "context"

// Status represents the outcome of a health check
type Status int

const (
	// Unknown indicates the health of the component could not be determined
	Unknown Status = iota
	// Healthy indicates the component is operating normally
	Healthy
	// Unhealthy indicates the component is degraded or failed
	Unhealthy
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case Healthy:
		return "Healthy"
	case Unhealthy:
		return "Unhealthy"
	case Unknown:
		return "Unknown"
	default:
		return ""
	}
}

// Health is the result of a health check: a status plus an optional reason
// when the component is unhealthy.
type Health struct {
	status Status
	reason string
}

// Ok returns a Healthy health result
func Ok() Health {
	return Health{status: Healthy}
}

// Degraded returns an Unhealthy health result carrying the given reason
func Degraded(reason string) Health {
	return Health{status: Unhealthy, reason: reason}
}

// Indeterminate returns an Unknown health result
func Indeterminate() Health {
	return Health{status: Unknown}
}

// Status returns the health status
func (h Health) Status() Status {
	return h.status
}

// Reason returns the degradation reason. It is empty unless the status is
// Unhealthy.
func (h Health) Reason() string {
	return h.reason
}

// IsHealthy returns true when the status is Healthy
func (h Health) IsHealthy() bool {
	return h.status == Healthy
}

// IsUnhealthy returns true when the status is Unhealthy
func (h Health) IsUnhealthy() bool {
	return h.status == Unhealthy
}

// Checkable is anything that can report its own health. Supervised children
// satisfy this contract.
type Checkable interface {
	// ID returns the identity of the component
	ID() string
	// HealthCheck reports the current health of the component
	HealthCheck(ctx context.Context) Health
}

// FailureHandler receives failures detected by the health monitor. The owning
// supervisor implements this contract, routing threshold breaches into the
// same restart path as handler errors.
type FailureHandler interface {
	HandleFailure(ctx context.Context, childID string, cause error) error
}
