package external

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vet-pain-mcp-server/internal/domain"
)

type stubProvider struct {
	calls int
	err   error
}

func (s *stubProvider) GenerateAdvisory(context.Context, string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "ok", nil
}

func (s *stubProvider) Model() string { return "stub" }

func TestResilientAdvisoryProvider_PassesThrough(t *testing.T) {
	logger, _ := test.NewNullLogger()
	provider := NewResilientAdvisoryProvider(&stubProvider{}, domain.CircuitBreakerConfig{}, logger)

	text, err := provider.GenerateAdvisory(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, "stub", provider.Model())
	assert.Equal(t, gobreaker.StateClosed, provider.State())
}

func TestResilientAdvisoryProvider_OpensAfterFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()
	stub := &stubProvider{err: errors.New("boom")}
	provider := NewResilientAdvisoryProvider(stub, domain.CircuitBreakerConfig{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  2,
		FailureRatio: 0.5,
	}, logger)

	for i := 0; i < 2; i++ {
		_, err := provider.GenerateAdvisory(context.Background(), "prompt")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	}

	assert.Equal(t, gobreaker.StateOpen, provider.State())

	_, err := provider.GenerateAdvisory(context.Background(), "prompt")
	assert.True(t, errors.Is(err, ErrAdvisoryUnavailable))
	assert.Equal(t, 2, stub.calls)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Circuit breaker state changed", hook.LastEntry().Message)
}

func TestResilientAdvisoryProvider_IgnoresCancellation(t *testing.T) {
	logger, _ := test.NewNullLogger()
	stub := &stubProvider{err: context.Canceled}
	provider := NewResilientAdvisoryProvider(stub, domain.CircuitBreakerConfig{MinRequests: 1, FailureRatio: 0.1}, logger)

	for i := 0; i < 3; i++ {
		_, err := provider.GenerateAdvisory(context.Background(), "prompt")
		assert.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateClosed, provider.State())
}

func TestNewAdvisoryProvider(t *testing.T) {
	logger, _ := test.NewNullLogger()

	tests := []struct {
		name    string
		config  domain.AdvisoryConfig
		wantNil bool
	}{
		{"disabled", domain.AdvisoryConfig{Enabled: false, APIKey: "key"}, true},
		{"missing key", domain.AdvisoryConfig{Enabled: true}, true},
		{"enabled", domain.AdvisoryConfig{Enabled: true, APIKey: "key", Model: "gemini-2.5-pro"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewAdvisoryProvider(tt.config, logger)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, provider)
				return
			}
			require.NotNil(t, provider)
			assert.Equal(t, "gemini-2.5-pro", provider.Model())
			_, ok := provider.(*ResilientAdvisoryProvider)
			assert.True(t, ok)
		})
	}
}
