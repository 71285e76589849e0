package health

import (
	"context"
	"sync"
	"time"
)

// DefaultTimeout bounds each check.
const DefaultTimeout = 5 * time.Second

// Manager coordinates health checks and aggregates results.
// It runs checks in parallel with timeouts and collects all results.
type Manager struct {
	checkers []Checker
	timeout  time.Duration
	mu       sync.RWMutex
}

// NewManager creates a new health check manager with the default timeout.
func NewManager() *Manager {
	return &Manager{
		checkers: make([]Checker, 0),
		timeout:  DefaultTimeout,
	}
}

// WithTimeout sets a custom timeout for health checks.
func (m *Manager) WithTimeout(timeout time.Duration) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	if timeout > 0 {
		m.timeout = timeout
	}
	return m
}

// AddChecker registers a new health checker. Reports list checkers in
// the order they were added.
func (m *Manager) AddChecker(checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, checker)
}

// Check runs all registered health checks in parallel and returns the
// results keyed by checker name.
func (m *Manager) Check(ctx context.Context) map[string]*Result {
	report := m.Run(ctx)
	return report.results()
}

// NamedResult is one line of a Report.
type NamedResult struct {
	Name   string `json:"name" yaml:"name"`
	Result `yaml:",inline"`
}

// Report is the outcome of Run.
type Report struct {
	Status Status        `json:"status" yaml:"status"`
	Checks []NamedResult `json:"checks" yaml:"checks"`
}

// Run executes every checker concurrently, each under its own timeout.
func (m *Manager) Run(ctx context.Context) Report {
	m.mu.RLock()
	checkers := make([]Checker, len(m.checkers))
	copy(checkers, m.checkers)
	timeout := m.timeout
	m.mu.RUnlock()

	checks := make([]NamedResult, len(checkers))
	var wg sync.WaitGroup
	for i, checker := range checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			result := c.Check(checkCtx)
			if result == nil {
				result = Unhealthy("check returned no result")
			}
			if result.Latency == 0 {
				result.Latency = time.Since(start)
			}
			checks[i] = NamedResult{Name: c.Name(), Result: *result}
		}(i, checker)
	}
	wg.Wait()

	report := Report{Checks: checks}
	report.Status = m.OverallStatus(report.results())
	return report
}

func (r Report) results() map[string]*Result {
	out := make(map[string]*Result, len(r.Checks))
	for i := range r.Checks {
		out[r.Checks[i].Name] = &r.Checks[i].Result
	}
	return out
}

// OverallStatus determines the overall health from individual results:
// unhealthy if any check is unhealthy, degraded if any is degraded,
// healthy otherwise.
func (m *Manager) OverallStatus(results map[string]*Result) Status {
	hasDegraded := false
	for _, result := range results {
		if result.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
		if result.Status == StatusDegraded {
			hasDegraded = true
		}
	}

	if hasDegraded {
		return StatusDegraded
	}

	return StatusHealthy
}

// CheckNames returns the names of all registered checkers.
func (m *Manager) CheckNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.checkers))
	for i, checker := range m.checkers {
		names[i] = checker.Name()
	}
	return names
}

// Count returns the number of registered checkers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.checkers)
}
