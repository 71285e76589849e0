// Package health runs the environment checks behind "approvals doctor".
//
// Each Checker inspects one dependency of the client (configuration, the
// state directory, the approval server, the stored session) and reports a
// Status:
//
//	manager := health.NewManager()
//	manager.AddChecker(health.NewStateDirChecker(dir))
//	manager.AddChecker(health.NewServerChecker(client))
//
//	report := manager.Run(ctx)
//	if report.Status == health.StatusUnhealthy {
//	    ...
//	}
package health

import (
	"context"
	"time"
)

// Checker defines the interface for health checks.
type Checker interface {
	// Name returns the unique name of this health check, lowercase with
	// hyphens (e.g., "state-dir").
	Name() string

	// Check performs the health check. It must respect the context deadline.
	Check(ctx context.Context) *Result
}

// Status represents the health check status.
type Status string

const (
	// StatusHealthy indicates the checked component is fully operational.
	StatusHealthy Status = "healthy"

	// StatusDegraded indicates the client works with reduced functionality,
	// e.g. nobody is logged in yet.
	StatusDegraded Status = "degraded"

	// StatusUnhealthy indicates commands that need the component will fail.
	StatusUnhealthy Status = "unhealthy"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Result represents the result of a health check.
type Result struct {
	Status  Status         `json:"status" yaml:"status"`
	Message string         `json:"message" yaml:"message"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Latency time.Duration  `json:"latency" yaml:"latency"`
}

// NewResult creates a new health check result with the given status and message.
func NewResult(status Status, message string) *Result {
	return &Result{
		Status:  status,
		Message: message,
		Details: make(map[string]any),
	}
}

// WithDetail adds a detail to the result and returns the result for chaining.
func (r *Result) WithDetail(key string, value any) *Result {
	r.Details[key] = value
	return r
}

// WithLatency sets the latency and returns the result for chaining.
func (r *Result) WithLatency(latency time.Duration) *Result {
	r.Latency = latency
	return r
}

// Healthy creates a healthy result with the given message.
func Healthy(message string) *Result {
	return NewResult(StatusHealthy, message)
}

// Degraded creates a degraded result with the given message.
func Degraded(message string) *Result {
	return NewResult(StatusDegraded, message)
}

// Unhealthy creates an unhealthy result with the given message.
func Unhealthy(message string) *Result {
	return NewResult(StatusUnhealthy, message)
}
