package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Status is the outcome of one or more checks.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckFunc is a function that performs a health check
type CheckFunc func(ctx context.Context) error

// Check represents a single health check result
type Check struct {
	Name        string
	Status      Status
	Message     string
	Duration    time.Duration
	LastChecked time.Time
}

// Checker runs named checks and aggregates their outcome.
type Checker struct {
	mu          sync.RWMutex
	funcs       map[string]CheckFunc
	checks      map[string]*Check
	lastHealthy time.Time
}

// NewChecker creates a new health checker
func NewChecker() *Checker {
	return &Checker{
		funcs:       make(map[string]CheckFunc),
		checks:      make(map[string]*Check),
		lastHealthy: time.Now(),
	}
}

// Add registers a named check for RunAll.
func (c *Checker) Add(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs[name] = fn
}

// RunAll executes every registered check in name order and returns the overall status.
func (c *Checker) RunAll(ctx context.Context) Status {
	c.mu.RLock()
	names := make([]string, 0, len(c.funcs))
	for name := range c.funcs {
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)

	for _, name := range names {
		c.mu.RLock()
		fn := c.funcs[name]
		c.mu.RUnlock()
		c.RunCheck(ctx, name, fn)
	}
	return c.OverallStatus()
}

// RunCheck executes a health check and updates the status
func (c *Checker) RunCheck(ctx context.Context, name string, checkFunc CheckFunc) {
	status := StatusHealthy
	message := "OK"

	start := time.Now()
	if err := checkFunc(ctx); err != nil {
		status = StatusUnhealthy
		message = err.Error()
	}
	elapsed := time.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks[name] = &Check{
		Name:        name,
		Status:      status,
		Message:     message,
		Duration:    elapsed,
		LastChecked: time.Now(),
	}

	if c.isHealthy() {
		c.lastHealthy = time.Now()
	}
}

// OverallStatus returns the overall health status
func (c *Checker) OverallStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.checks) == 0 {
		return StatusHealthy
	}

	unhealthy := 0
	for _, check := range c.checks {
		if check.Status == StatusUnhealthy {
			unhealthy++
		}
	}

	switch {
	case unhealthy == 0:
		return StatusHealthy
	case unhealthy < len(c.checks):
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}

// Checks returns all check results sorted by name.
func (c *Checker) Checks() []Check {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Check, 0, len(c.checks))
	for _, check := range c.checks {
		out = append(out, *check)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LastHealthyTime returns the last time all checks were healthy
func (c *Checker) LastHealthyTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastHealthy
}

func (c *Checker) isHealthy() bool {
	for _, check := range c.checks {
		if check.Status != StatusHealthy {
			return false
		}
	}
	return true
}
