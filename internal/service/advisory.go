package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vet-pain-mcp-server/internal/domain"
)

const advisoryPromptTemplate = `You are a senior veterinary pain specialist giving a concise second opinion to a colleague.
Do not use markdown.

Assessment:
- Species: %s
- Pain type: %s
- Scale used: %s
- Score: %s
- Standard interpretation: %s

Write 2-3 short paragraphs covering:
1. Clinical Analysis: what the score means for this patient.
2. Action Suggestions: practical next steps, including analgesic options and reassessment timing.
3. Important Reminders: limitations of the scale and factors the clinician should confirm.

Be direct and professional. Your commentary supports the clinician's decision and does not replace it.
Respond with a JSON object with the string fields "clinicalAnalysis", "actionSuggestions" and "importantReminders".`

// advisoryPayload is the structured answer requested from the model
type advisoryPayload struct {
	ClinicalAnalysis   string `json:"clinicalAnalysis"`
	ActionSuggestions  string `json:"actionSuggestions"`
	ImportantReminders string `json:"importantReminders"`
}

// AdvisoryService requests a second opinion on a finalized assessment.
// It is optional: without a provider every request fails with domain.ErrAdvisoryDisabled.
type AdvisoryService struct {
	logger   *logrus.Logger
	provider domain.AdvisoryProvider
	cache    domain.AdvisoryCache
	ttl      time.Duration
}

// NewAdvisoryService creates the advisory service. provider and cache may be nil.
func NewAdvisoryService(logger *logrus.Logger, provider domain.AdvisoryProvider, cache domain.AdvisoryCache, ttl time.Duration) *AdvisoryService {
	return &AdvisoryService{
		logger:   logger,
		provider: provider,
		cache:    cache,
		ttl:      ttl,
	}
}

// Enabled reports whether a provider is configured
func (s *AdvisoryService) Enabled() bool {
	return s.provider != nil
}

// Generate returns the commentary for a finalized assessment, serving repeated
// requests from the cache when one is configured.
func (s *AdvisoryService) Generate(ctx context.Context, req domain.AdvisoryRequest) (*domain.AdvisoryResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, domain.ErrAdvisoryDisabled
	}

	key := AdvisoryCacheKey(req)
	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.WithError(err).Warn("Advisory cache lookup failed")
		} else if found {
			out := *cached
			out.Cached = true
			return &out, nil
		}
	}

	start := time.Now()
	text, err := s.provider.GenerateAdvisory(ctx, BuildAdvisoryPrompt(req))
	if err != nil {
		s.logger.WithError(err).WithField("model", s.provider.Model()).Error("Advisory request failed")
		return nil, fmt.Errorf("advisory request failed: %w", err)
	}

	result := ParseAdvisory(text)
	result.Model = s.provider.Model()
	result.GeneratedAt = time.Now().UTC()

	s.logger.WithFields(logrus.Fields{
		"model":      result.Model,
		"structured": result.IsStructured(),
		"duration":   time.Since(start),
	}).Info("Advisory generated")

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.ttl); err != nil {
			s.logger.WithError(err).Warn("Failed to cache advisory")
		}
	}

	return result, nil
}

// BuildAdvisoryPrompt renders the request into the prompt sent to the model
func BuildAdvisoryPrompt(req domain.AdvisoryRequest) string {
	analysis := strings.TrimSpace(req.Analysis)
	if analysis == "" {
		analysis = "none"
	}
	return fmt.Sprintf(advisoryPromptTemplate,
		req.Species.DisplayName(), req.PainType.DisplayName(), req.ScaleName, req.Score, analysis)
}

// ParseAdvisory decodes the model's JSON answer. Anything that is not the expected
// object is kept verbatim as free text.
func ParseAdvisory(text string) *domain.AdvisoryResult {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var payload advisoryPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err == nil &&
		(payload.ClinicalAnalysis != "" || payload.ActionSuggestions != "") {
		return &domain.AdvisoryResult{
			ClinicalAnalysis:   strings.TrimSpace(payload.ClinicalAnalysis),
			ActionSuggestions:  strings.TrimSpace(payload.ActionSuggestions),
			ImportantReminders: strings.TrimSpace(payload.ImportantReminders),
		}
	}
	return &domain.AdvisoryResult{FreeText: strings.TrimSpace(text)}
}

// AdvisoryCacheKey fingerprints a request
func AdvisoryCacheKey(req domain.AdvisoryRequest) string {
	data := strings.Join([]string{
		string(req.Species), string(req.PainType), req.ScaleName, req.Score, strings.TrimSpace(req.Analysis),
	}, "|")
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("advisory:%x", hash[:16])
}

// AdvisoryErrorMessage renders a failed advisory request for the clinician
func AdvisoryErrorMessage(err error) string {
	return fmt.Sprintf("Error contacting the AI: %s. Check the API key and connection.", err)
}
