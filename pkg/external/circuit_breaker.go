package external

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/vet-pain-mcp-server/internal/domain"
)

// ErrAdvisoryUnavailable is returned while the circuit breaker is open
var ErrAdvisoryUnavailable = errors.New("advisory service unavailable (circuit breaker open)")

// ResilientAdvisoryProvider wraps an advisory provider with a circuit breaker
type ResilientAdvisoryProvider struct {
	provider domain.AdvisoryProvider
	breaker  *gobreaker.CircuitBreaker
	logger   *logrus.Logger
}

// NewResilientAdvisoryProvider creates a circuit-breaking wrapper around provider
func NewResilientAdvisoryProvider(provider domain.AdvisoryProvider, config domain.CircuitBreakerConfig, logger *logrus.Logger) *ResilientAdvisoryProvider {
	if config.MaxRequests == 0 {
		config.MaxRequests = 3
	}
	if config.Interval == 0 {
		config.Interval = 30 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MinRequests == 0 {
		config.MinRequests = 3
	}
	if config.FailureRatio == 0 {
		config.FailureRatio = 0.6
	}

	r := &ResilientAdvisoryProvider{
		provider: provider,
		logger:   logger,
	}

	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "Advisory",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= config.MinRequests && failureRatio >= config.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			// cancellations are the caller's doing, not an upstream fault
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return r
}

// Model returns the wrapped provider's model
func (r *ResilientAdvisoryProvider) Model() string {
	return r.provider.Model()
}

// GenerateAdvisory calls the wrapped provider through the circuit breaker
func (r *ResilientAdvisoryProvider) GenerateAdvisory(ctx context.Context, prompt string) (string, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.provider.GenerateAdvisory(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", ErrAdvisoryUnavailable
		}
		return "", fmt.Errorf("advisory query failed: %w", err)
	}
	return result.(string), nil
}

// State returns the current circuit breaker state
func (r *ResilientAdvisoryProvider) State() gobreaker.State {
	return r.breaker.State()
}

// Counts returns the circuit breaker counters
func (r *ResilientAdvisoryProvider) Counts() gobreaker.Counts {
	return r.breaker.Counts()
}

var _ domain.AdvisoryProvider = (*ResilientAdvisoryProvider)(nil)

// NewAdvisoryProvider builds the Gemini client behind a circuit breaker.
// It returns a nil provider when the advisory is disabled or has no API key.
func NewAdvisoryProvider(config domain.AdvisoryConfig, logger *logrus.Logger) (domain.AdvisoryProvider, error) {
	if !config.Enabled || config.APIKey == "" {
		return nil, nil
	}

	client, err := NewGeminiClient(GeminiConfig{
		BaseURL:   config.BaseURL,
		APIKey:    config.APIKey,
		Model:     config.Model,
		Timeout:   config.Timeout,
		RateLimit: config.RateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	logger.WithField("model", client.Model()).Info("Advisory provider configured")
	return NewResilientAdvisoryProvider(client, config.CircuitBreaker, logger), nil
}
