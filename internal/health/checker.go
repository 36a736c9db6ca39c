package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"memorial-service/internal/metrics"
)

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

type check struct {
	name string
	fn   CheckFunc
}

// Checker runs dependency checks and remembers their last outcome.
type Checker struct {
	checks  []check
	timeout time.Duration
	metrics *metrics.HealthMetrics
	logger  *slog.Logger

	mu       sync.RWMutex
	onChange []func(ready bool)
}

func NewChecker(m *metrics.HealthMetrics, logger *slog.Logger) *Checker {
	return &Checker{
		timeout: 2 * time.Second,
		metrics: m,
		logger:  logger,
	}
}

// Add registers a named dependency. Call before Run or Start.
func (c *Checker) Add(name string, fn CheckFunc) {
	c.checks = append(c.checks, check{name: name, fn: fn})
}

// OnChange subscribes to the aggregated readiness after every Run.
func (c *Checker) OnChange(fn func(ready bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Run executes every check once and returns the failures keyed by name.
func (c *Checker) Run(ctx context.Context) map[string]error {
	failures := make(map[string]error)
	for _, ch := range c.checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		start := time.Now()
		err := ch.fn(checkCtx)
		cancel()

		c.metrics.RecordDependencyCheck(ctx, ch.name, time.Since(start), err)
		if err != nil {
			failures[ch.name] = err
		}
	}

	c.mu.RLock()
	subscribers := c.onChange
	c.mu.RUnlock()
	for _, fn := range subscribers {
		fn(len(failures) == 0)
	}
	return failures
}

// Start runs the checks every interval until ctx is done.
func (c *Checker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for name, err := range c.Run(ctx) {
			c.logger.WarnContext(ctx, "dependency check failed", "dependency", name, "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
