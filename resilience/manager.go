package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Manager coordinates retry and circuit-breaking protection across an
// evidence source's backend calls. One Manager is constructed per
// evidence.Source (S3Source, AzureSource, GCSSource); each names its own
// circuit breaker ("s3-evidence", "azure-evidence", "gcs-evidence") so a
// failing backend trips its own breaker without affecting the others.
type Manager struct {
	retryPolicy     *RetryPolicy
	circuitBreakers map[string]*CircuitBreaker
	retryExecutor   *RetryExecutor
	defaultBreaker  *CircuitBreaker
	mu              sync.RWMutex
}

// Option configures a Manager at construction.
type Option func(*Manager)

// New builds a Manager with DefaultRetryPolicy and a "default" circuit
// breaker, then applies opts.
func New(opts ...Option) *Manager {
	m := &Manager{
		retryPolicy:     DefaultRetryPolicy(),
		circuitBreakers: make(map[string]*CircuitBreaker),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.retryExecutor = NewRetryExecutor(m.retryPolicy)

	if m.defaultBreaker == nil {
		m.defaultBreaker = NewCircuitBreaker(CircuitBreakerConfig{
			Name:         "default",
			MaxFailures:  5,
			ResetTimeout: 60 * time.Second,
		})
	}

	return m
}

// WithRetryPolicy overrides the Manager's retry policy.
func WithRetryPolicy(policy *RetryPolicy) Option {
	return func(m *Manager) {
		m.retryPolicy = policy
	}
}

// WithCircuitBreaker registers a named breaker, e.g. for the evidence
// backend an evidence.Source will call ExecuteWithBreaker against.
func WithCircuitBreaker(name string, config CircuitBreakerConfig) Option {
	return func(m *Manager) {
		config.Name = name
		m.circuitBreakers[name] = NewCircuitBreaker(config)
	}
}

// WithDefaultCircuitBreaker replaces the Manager's fallback breaker, used
// whenever ExecuteWithBreaker is called with an unregistered name.
func WithDefaultCircuitBreaker(config CircuitBreakerConfig) Option {
	return func(m *Manager) {
		config.Name = "default"
		m.defaultBreaker = NewCircuitBreaker(config)
	}
}

// Execute runs fn through the default breaker and retry policy.
func (m *Manager) Execute(fn func() error) error {
	return m.ExecuteWithBreaker("default", fn)
}

// ExecuteWithBreaker runs fn through the named breaker (falling back to
// the default breaker if breakerName is unregistered), retrying fn on
// each breaker-permitted attempt per the Manager's retry policy. This is
// the call evidence.Source backends make around each ranged read, e.g.
// m.ExecuteWithBreaker("s3-evidence", func() error { ... }).
func (m *Manager) ExecuteWithBreaker(breakerName string, fn func() error) error {
	breaker := m.getBreaker(breakerName)

	return breaker.Execute(func() error {
		return m.retryExecutor.Execute(fn)
	})
}

// ExecuteWithContext is Execute with a context the retry loop can observe
// for cancellation between attempts.
func (m *Manager) ExecuteWithContext(ctx context.Context, fn func() error) error {
	return m.ExecuteWithBreakerAndContext(ctx, "default", fn)
}

// ExecuteWithBreakerAndContext is ExecuteWithBreaker with a context the
// retry loop can observe for cancellation between attempts.
func (m *Manager) ExecuteWithBreakerAndContext(ctx context.Context, breakerName string, fn func() error) error {
	breaker := m.getBreaker(breakerName)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return breaker.Execute(func() error {
		return m.retryPolicy.ExecuteWithContext(ctx, fn)
	})
}

func (m *Manager) getBreaker(name string) *CircuitBreaker {
	m.mu.RLock()
	breaker, exists := m.circuitBreakers[name]
	m.mu.RUnlock()

	if exists {
		return breaker
	}

	return m.defaultBreaker
}

// GetCircuitBreakerStats returns a snapshot of every breaker's counters,
// keyed by breaker name ("default" plus any registered evidence backend).
func (m *Manager) GetCircuitBreakerStats() map[string]CircuitBreakerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]CircuitBreakerStats)

	stats["default"] = m.defaultBreaker.GetStats()

	for name, breaker := range m.circuitBreakers {
		stats[name] = breaker.GetStats()
	}

	return stats
}

// GetRetryStats returns the Manager's running retry counters.
func (m *Manager) GetRetryStats() RetryStats {
	return m.retryExecutor.GetStats()
}

// ResetCircuitBreaker forces the named breaker back to Closed.
func (m *Manager) ResetCircuitBreaker(name string) {
	breaker := m.getBreaker(name)
	breaker.Reset()
}

// ResetAllCircuitBreakers forces every breaker, default and named, back
// to Closed.
func (m *Manager) ResetAllCircuitBreakers() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	m.defaultBreaker.Reset()

	for _, breaker := range m.circuitBreakers {
		breaker.Reset()
	}
}

// HealthCheck summarizes the state of every breaker and the retry
// executor, for a scan's periodic status reporting: an open breaker
// means a backend is currently refusing evidence reads.
func (m *Manager) HealthCheck() HealthReport {
	report := HealthReport{
		Timestamp: time.Now(),
		Healthy:   true,
	}

	stats := m.GetCircuitBreakerStats()
	for name, stat := range stats {
		if stat.State == StateOpen {
			report.Healthy = false
			report.Issues = append(report.Issues,
				fmt.Sprintf("evidence backend breaker %q is open", name))
		}

		if stat.TotalCalls > 100 && stat.SuccessRate() < 0.5 {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("evidence backend breaker %q has low success rate: %.2f%%",
					name, stat.SuccessRate()*100))
		}
	}

	retryStats := m.GetRetryStats()
	if retryStats.TotalAttempts > 0 {
		failureRate := float64(retryStats.FailedRetries) / float64(retryStats.TotalAttempts)
		if failureRate > 0.5 {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("high evidence read retry failure rate: %.2f%%", failureRate*100))
		}
	}

	report.CircuitBreakers = stats
	report.RetryStats = retryStats

	return report
}

// HealthReport is the result of a Manager.HealthCheck call.
type HealthReport struct {
	Timestamp       time.Time
	CircuitBreakers map[string]CircuitBreakerStats
	Issues          []string
	Warnings        []string
	RetryStats      RetryStats
	Healthy         bool
}

// BulkExecutor runs a batch of independent evidence reads concurrently,
// each protected by the owning Manager's breaker and retry policy, e.g.
// fetching the ranges for every carved hit in a chunk at once.
type BulkExecutor struct {
	manager        *Manager
	partialSuccess bool
	minSuccessRate float64
	maxConcurrency int
}

// NewBulkExecutor builds a BulkExecutor bound to m, capping concurrent
// reads at maxConcurrency (default 10 if non-positive).
func (m *Manager) NewBulkExecutor(partialSuccess bool, minSuccessRate float64, maxConcurrency int) *BulkExecutor {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}

	return &BulkExecutor{
		manager:        m,
		partialSuccess: partialSuccess,
		minSuccessRate: minSuccessRate,
		maxConcurrency: maxConcurrency,
	}
}

// Execute runs fn over every item with up to maxConcurrency in flight at
// once, each call going through the bound Manager's default breaker and
// retry policy.
func (be *BulkExecutor) Execute(items []interface{}, fn func(interface{}) error) ([]error, error) {
	errs := make([]error, len(items))
	successCount := 0

	sem := make(chan struct{}, be.maxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, itm interface{}) {
			defer wg.Done()
			defer func() { <-sem }()

			err := be.manager.Execute(func() error {
				return fn(itm)
			})

			mu.Lock()
			if err != nil {
				errs[idx] = err
			} else {
				successCount++
			}
			mu.Unlock()
		}(i, item)
	}

	wg.Wait()

	successRate := float64(successCount) / float64(len(items))

	if !be.partialSuccess && successCount < len(items) {
		return errs, fmt.Errorf("bulk evidence read failed: %d/%d succeeded", successCount, len(items))
	}

	if be.minSuccessRate > 0 && successRate < be.minSuccessRate {
		return errs, fmt.Errorf("success rate too low: %.2f%% < %.2f%%",
			successRate*100, be.minSuccessRate*100)
	}

	return errs, nil
}
