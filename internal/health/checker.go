// Package health aggregates component checks for the HTTP health endpoint.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

type HealthState string

const (
	HealthStateHealthy   HealthState = "healthy"
	HealthStateWarning   HealthState = "warning"
	HealthStateUnhealthy HealthState = "unhealthy"
)

// ComponentHealth is the result of a single check
type ComponentHealth struct {
	Name     string                 `json:"name"`
	Status   HealthState            `json:"status"`
	Message  string                 `json:"message"`
	Duration time.Duration          `json:"duration"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// HealthStatus is the aggregated result of every registered check
type HealthStatus struct {
	Overall    HealthState                `json:"overall"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version"`
	Uptime     time.Duration              `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
}

type HealthCheck interface {
	Name() string
	Check(ctx context.Context) ComponentHealth
}

// HealthChecker runs the registered checks on demand
type HealthChecker struct {
	logger  *logrus.Logger
	version string
	timeout time.Duration
	started time.Time

	checks []HealthCheck
	mutex  sync.RWMutex
}

// NewHealthChecker creates a checker. A zero timeout defaults to 5s.
func NewHealthChecker(logger *logrus.Logger, version string, timeout time.Duration) *HealthChecker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{
		logger:  logger,
		version: version,
		timeout: timeout,
		started: time.Now(),
	}
}

func (h *HealthChecker) RegisterCheck(check HealthCheck) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.checks = append(h.checks, check)
}

// Check runs every check in parallel and derives the overall state: any
// unhealthy component makes the whole service unhealthy, any warning degrades it.
func (h *HealthChecker) Check(ctx context.Context) *HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.mutex.RLock()
	checks := append([]HealthCheck(nil), h.checks...)
	h.mutex.RUnlock()

	results := make(chan ComponentHealth, len(checks))
	var wg sync.WaitGroup
	for _, check := range checks {
		wg.Add(1)
		go func(c HealthCheck) {
			defer wg.Done()
			start := time.Now()
			result := c.Check(ctx)
			result.Name = c.Name()
			result.Duration = time.Since(start)
			results <- result
		}(check)
	}
	wg.Wait()
	close(results)

	status := &HealthStatus{
		Overall:    HealthStateHealthy,
		Timestamp:  time.Now().UTC(),
		Version:    h.version,
		Uptime:     time.Since(h.started),
		Components: make(map[string]ComponentHealth, len(checks)),
	}

	var degraded []string
	for result := range results {
		status.Components[result.Name] = result
		switch result.Status {
		case HealthStateUnhealthy:
			status.Overall = HealthStateUnhealthy
			degraded = append(degraded, result.Name)
		case HealthStateWarning:
			if status.Overall == HealthStateHealthy {
				status.Overall = HealthStateWarning
			}
			degraded = append(degraded, result.Name)
		}
	}

	if len(degraded) > 0 {
		h.logger.WithFields(logrus.Fields{
			"overall_status": status.Overall,
			"components":     degraded,
		}).Warn("Health check completed with issues")
	}
	return status
}

// CatalogHealthCheck fails when no scales are loaded
type CatalogHealthCheck struct {
	Count func() int
}

func (c *CatalogHealthCheck) Name() string { return "catalog" }

func (c *CatalogHealthCheck) Check(context.Context) ComponentHealth {
	n := c.Count()
	if n == 0 {
		return ComponentHealth{Status: HealthStateUnhealthy, Message: "No pain scales loaded"}
	}
	return ComponentHealth{
		Status:   HealthStateHealthy,
		Message:  "Catalog loaded",
		Metadata: map[string]interface{}{"scales": n},
	}
}

// SessionsHealthCheck warns when the session store is full and older
// assessments are being evicted.
type SessionsHealthCheck struct {
	Active func() int
	Max    int
}

func (s *SessionsHealthCheck) Name() string { return "sessions" }

func (s *SessionsHealthCheck) Check(context.Context) ComponentHealth {
	active := s.Active()
	result := ComponentHealth{
		Status:   HealthStateHealthy,
		Message:  "Session capacity available",
		Metadata: map[string]interface{}{"active": active, "max": s.Max},
	}
	if s.Max > 0 && active >= s.Max {
		result.Status = HealthStateWarning
		result.Message = "Session store full, oldest assessments are evicted"
	}
	return result
}

// Pinger is implemented by caches backed by a remote store
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheHealthCheck pings a remote advisory cache. In-memory caches are always healthy.
type CacheHealthCheck struct {
	Cache interface{}
}

func (c *CacheHealthCheck) Name() string { return "advisory_cache" }

func (c *CacheHealthCheck) Check(ctx context.Context) ComponentHealth {
	pinger, ok := c.Cache.(Pinger)
	if !ok {
		return ComponentHealth{Status: HealthStateHealthy, Message: "In-memory cache"}
	}
	if err := pinger.Ping(ctx); err != nil {
		// The advisory degrades to uncached calls
		return ComponentHealth{Status: HealthStateWarning, Message: "Redis connection failed", Error: err.Error()}
	}
	return ComponentHealth{Status: HealthStateHealthy, Message: "Redis connection healthy"}
}

// BreakerState is implemented by circuit-breaking providers
type BreakerState interface {
	State() gobreaker.State
}

// CircuitBreakerHealthCheck reports the advisory breaker state
type CircuitBreakerHealthCheck struct {
	Breaker BreakerState
}

func (b *CircuitBreakerHealthCheck) Name() string { return "advisory" }

func (b *CircuitBreakerHealthCheck) Check(context.Context) ComponentHealth {
	state := b.Breaker.State()
	result := ComponentHealth{
		Status:   HealthStateHealthy,
		Message:  "Advisory provider reachable",
		Metadata: map[string]interface{}{"breaker": state.String()},
	}
	if state == gobreaker.StateOpen {
		result.Status = HealthStateWarning
		result.Message = "Advisory circuit breaker open"
	}
	return result
}
