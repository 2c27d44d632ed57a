package health

import (
	"context"
	"sync"
	"time"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds one CheckAll pass across every checker.
	// Default: 10 seconds
	Timeout time.Duration
}

// Aggregator fans a health pass out over registered checkers and folds the
// results into an overall status.
type Aggregator struct {
	config AggregatorConfig

	mu       sync.RWMutex
	checkers []Checker
}

// NewAggregator creates an empty aggregator.
func NewAggregator(config AggregatorConfig) *Aggregator {
	// Apply defaults
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &Aggregator{config: config}
}

// Register adds a checker. Registering a checker with the name of an
// existing one replaces it.
func (a *Aggregator) Register(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, c := range a.checkers {
		if c.Name() == checker.Name() {
			a.checkers[i] = checker
			return
		}
	}
	a.checkers = append(a.checkers, checker)
}

// CheckAll runs every registered checker in parallel and returns the
// results keyed by checker name.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	checkers := append([]Checker(nil), a.checkers...)
	a.mu.RUnlock()

	results := make(map[string]Result, len(checkers))
	if len(checkers) == 0 {
		return results
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, checker := range checkers {
		wg.Add(1)
		go func(checker Checker) {
			defer wg.Done()
			result := runCheck(ctx, checker)
			mu.Lock()
			results[checker.Name()] = result
			mu.Unlock()
		}(checker)
	}
	wg.Wait()

	return results
}

// OverallStatus folds results into a single status. Any unhealthy result
// makes the set unhealthy; otherwise any degraded result makes it degraded.
func (a *Aggregator) OverallStatus(results map[string]Result) Status {
	overall := StatusHealthy
	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}

// runCheck runs one checker, guarding against checks that outlive ctx.
func runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	resultCh := make(chan Result, 1)

	go func() {
		result := checker.Check(ctx)
		result.Duration = time.Since(start)
		if result.Timestamp.IsZero() {
			result.Timestamp = start
		}
		resultCh <- result
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		return Result{
			Status:    StatusUnhealthy,
			Message:   "check timed out",
			Error:     ErrCheckTimeout,
			Duration:  time.Since(start),
			Timestamp: start,
		}
	}
}
