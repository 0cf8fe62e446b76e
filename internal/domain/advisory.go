package domain

import "time"

// AdvisoryRequest is the finalized assessment sent for a second opinion
type AdvisoryRequest struct {
	Species   Species  `json:"species"`
	PainType  PainType `json:"pain_type"`
	ScaleName string   `json:"scale_name"`
	Score     string   `json:"score"`
	Analysis  string   `json:"analysis"`
}

// Validate checks that the request carries everything the prompt needs
func (r *AdvisoryRequest) Validate() error {
	if !r.Species.IsValid() {
		return NewValidationError("species", "must be dog or cat", r.Species)
	}
	if !r.PainType.IsValid() {
		return NewValidationError("pain_type", "must be acute or chronic", r.PainType)
	}
	if r.ScaleName == "" {
		return NewValidationError("scale_name", "is required", r.ScaleName)
	}
	if r.Score == "" {
		return NewValidationError("score", "is required", r.Score)
	}
	return nil
}

// AdvisoryResult is the collaborator's commentary. When the upstream model does not
// return the structured form, only FreeText is set.
type AdvisoryResult struct {
	ClinicalAnalysis   string    `json:"clinical_analysis,omitempty"`
	ActionSuggestions  string    `json:"action_suggestions,omitempty"`
	ImportantReminders string    `json:"important_reminders,omitempty"`
	FreeText           string    `json:"free_text,omitempty"`
	Model              string    `json:"model,omitempty"`
	Cached             bool      `json:"cached"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// IsStructured reports whether the result carries the structured sections
func (r *AdvisoryResult) IsStructured() bool {
	return r.ClinicalAnalysis != "" || r.ActionSuggestions != ""
}
