// Package domain contains core entities and types for veterinary pain assessment:
// validated pain scales for dogs and cats, their aggregation policies, the drug and
// CRI reference tables, and the results produced from them.
//
// Reference: WSAVA Guidelines for the Recognition, Assessment and Treatment of Pain (2022).
// J Small Anim Pract. 63(2):E1-E74. doi: 10.1111/jsap.13566
package domain

import (
	"errors"
	"fmt"
)

// Species represents the patient species covered by the catalogs
type Species string

const (
	SpeciesDog Species = "dog"
	SpeciesCat Species = "cat"
)

// IsValid reports whether the species is known
func (s Species) IsValid() bool {
	return s == SpeciesDog || s == SpeciesCat
}

// String returns the species identifier
func (s Species) String() string {
	return string(s)
}

// DisplayName returns the human readable species name
func (s Species) DisplayName() string {
	switch s {
	case SpeciesDog:
		return "Dog"
	case SpeciesCat:
		return "Cat"
	default:
		return string(s)
	}
}

// PainType distinguishes acute from chronic assessment scales
type PainType string

const (
	PainAcute   PainType = "acute"
	PainChronic PainType = "chronic"
)

// IsValid reports whether the pain type is known
func (p PainType) IsValid() bool {
	return p == PainAcute || p == PainChronic
}

// DisplayName returns the human readable pain type
func (p PainType) DisplayName() string {
	switch p {
	case PainAcute:
		return "Acute"
	case PainChronic:
		return "Chronic"
	default:
		return string(p)
	}
}

// QuestionType represents how a question is answered
type QuestionType string

const (
	QuestionRadio  QuestionType = "radio"
	QuestionSlider QuestionType = "slider"
	QuestionText   QuestionType = "text"
	// QuestionCustom is a choice question rendered against a composite image.
	QuestionCustom QuestionType = "custom"
)

// IsValid reports whether the question type is known
func (q QuestionType) IsValid() bool {
	switch q {
	case QuestionRadio, QuestionSlider, QuestionText, QuestionCustom:
		return true
	}
	return false
}

// IsChoice reports whether the question is answered by picking an option
func (q QuestionType) IsChoice() bool {
	return q == QuestionRadio || q == QuestionCustom
}

// IsScored reports whether the answer to the question is numeric
func (q QuestionType) IsScored() bool {
	return q != QuestionText
}

// AggregationPolicy selects how a scale turns answers into a result
type AggregationPolicy string

const (
	// PolicySumThreshold sums all answers and compares against a fixed threshold (total >= threshold).
	PolicySumThreshold AggregationPolicy = "sum_threshold"
	// PolicyHolisticPick reads a single ordinal answer and compares against a cutoff (score >= cutoff).
	PolicyHolisticPick AggregationPolicy = "holistic_pick"
	// PolicyDualSubscaleAverage averages two question groups independently (either average >= threshold).
	PolicyDualSubscaleAverage AggregationPolicy = "dual_subscale_average"
	// PolicyBandedSum sums slider answers and maps the total to severity bands (total > threshold).
	PolicyBandedSum AggregationPolicy = "banded_sum"
	// PolicyActivityMean averages user-defined activity scores (mean < threshold).
	PolicyActivityMean AggregationPolicy = "activity_mean"
	// PolicyInformational scales carry no questions and never recommend intervention.
	PolicyInformational AggregationPolicy = "informational"
)

// IsValid reports whether the policy is known
func (p AggregationPolicy) IsValid() bool {
	switch p {
	case PolicySumThreshold, PolicyHolisticPick, PolicyDualSubscaleAverage,
		PolicyBandedSum, PolicyActivityMean, PolicyInformational:
		return true
	}
	return false
}

// Option is one selectable answer of a choice question
type Option struct {
	Score int    `json:"score" yaml:"score"`
	Text  string `json:"text" yaml:"text"`
	Image string `json:"image,omitempty" yaml:"image,omitempty"`
}

// Question is a single item of a pain scale
type Question struct {
	ID                string       `json:"id" yaml:"id"`
	Text              string       `json:"text" yaml:"text"`
	Type              QuestionType `json:"type" yaml:"type"`
	Options           []Option     `json:"options,omitempty" yaml:"options,omitempty"`
	Min               int          `json:"min,omitempty" yaml:"min,omitempty"`
	Max               int          `json:"max,omitempty" yaml:"max,omitempty"`
	Step              int          `json:"step,omitempty" yaml:"step,omitempty"`
	LabelMin          string       `json:"label_min,omitempty" yaml:"label_min,omitempty"`
	LabelMax          string       `json:"label_max,omitempty" yaml:"label_max,omitempty"`
	Category          string       `json:"category,omitempty" yaml:"category,omitempty"`
	CompositeImageURL string       `json:"composite_image_url,omitempty" yaml:"composite_image_url,omitempty"`
}

// ScoreBounds returns the lowest and highest score the question accepts
func (q *Question) ScoreBounds() (int, int) {
	if q.Type == QuestionSlider {
		return q.Min, q.Max
	}
	if len(q.Options) == 0 {
		return 0, 0
	}
	lo, hi := q.Options[0].Score, q.Options[0].Score
	for _, opt := range q.Options[1:] {
		if opt.Score < lo {
			lo = opt.Score
		}
		if opt.Score > hi {
			hi = opt.Score
		}
	}
	return lo, hi
}

// HasOption reports whether a choice question offers the given score
func (q *Question) HasOption(score int) bool {
	for _, opt := range q.Options {
		if opt.Score == score {
			return true
		}
	}
	return false
}

// ScaleDetails carries descriptive metadata about a scale's validation
type ScaleDetails struct {
	Origin      string `json:"origin" yaml:"origin"`
	Indications string `json:"indications" yaml:"indications"`
	Studies     string `json:"studies" yaml:"studies"`
	Quality     string `json:"quality" yaml:"quality"`
	Reliability string `json:"reliability,omitempty" yaml:"reliability,omitempty"`
	Accuracy    string `json:"accuracy,omitempty" yaml:"accuracy,omitempty"`
}

// Subscale is a named group of questions averaged together
type Subscale struct {
	Key         string   `json:"key" yaml:"key"`
	Label       string   `json:"label" yaml:"label"`
	QuestionIDs []string `json:"question_ids" yaml:"question_ids"`
}

// SeverityBand maps totals up to and including UpTo to a label.
// The last band of a scale has no upper bound and leaves UpTo nil.
type SeverityBand struct {
	Label string `json:"label" yaml:"label"`
	UpTo  *int   `json:"up_to,omitempty" yaml:"up_to,omitempty"`
}

// ActivitySlot pairs a free-text activity question with its capability slider
type ActivitySlot struct {
	LabelQuestionID string `json:"label_question_id" yaml:"label_question_id"`
	ScoreQuestionID string `json:"score_question_id" yaml:"score_question_id"`
}

// ScaleRule is the aggregation policy of a scale plus its fixed parameters
type ScaleRule struct {
	Policy AggregationPolicy `json:"policy" yaml:"policy"`
	// Threshold is the clinical cutoff; the comparison operator is fixed by the policy.
	Threshold  float64        `json:"threshold" yaml:"threshold"`
	MaxScore   int            `json:"max_score,omitempty" yaml:"max_score,omitempty"`
	ScoreLabel string         `json:"score_label,omitempty" yaml:"score_label,omitempty"`
	QuestionID string         `json:"question_id,omitempty" yaml:"question_id,omitempty"`
	Subscales  []Subscale     `json:"subscales,omitempty" yaml:"subscales,omitempty"`
	Bands      []SeverityBand `json:"bands,omitempty" yaml:"bands,omitempty"`
	Activities []ActivitySlot `json:"activities,omitempty" yaml:"activities,omitempty"`
	Analysis   string         `json:"analysis" yaml:"analysis"`
	// EmptyAnalysis is reported when an activity scale has no qualifying entries.
	EmptyAnalysis string `json:"empty_analysis,omitempty" yaml:"empty_analysis,omitempty"`
}

// Scale is a validated pain-assessment questionnaire
type Scale struct {
	ID                string        `json:"id" yaml:"id"`
	Name              string        `json:"name" yaml:"name"`
	Species           Species       `json:"species" yaml:"species"`
	PainType          PainType      `json:"pain_type" yaml:"pain_type"`
	Recommended       bool          `json:"recommended" yaml:"recommended"`
	Description       string        `json:"description" yaml:"description"`
	CompositeImageURL string        `json:"composite_image_url,omitempty" yaml:"composite_image_url,omitempty"`
	Details           *ScaleDetails `json:"details,omitempty" yaml:"details,omitempty"`
	Questions         []Question    `json:"questions" yaml:"questions"`
	Rule              ScaleRule     `json:"rule" yaml:"rule"`
}

// Question returns the question with the given id
func (s *Scale) Question(id string) (*Question, bool) {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i], true
		}
	}
	return nil, false
}

// QuestionIDs returns the ids of all questions in display order
func (s *Scale) QuestionIDs() []string {
	ids := make([]string, len(s.Questions))
	for i, q := range s.Questions {
		ids[i] = q.ID
	}
	return ids
}

// Validate checks that the scale's rule parameters are consistent with its questions
func (s *Scale) Validate() error {
	if s.ID == "" {
		return errors.New("scale id is required")
	}
	if !s.Species.IsValid() {
		return fmt.Errorf("scale %s: invalid species %q", s.ID, s.Species)
	}
	if !s.PainType.IsValid() {
		return fmt.Errorf("scale %s: invalid pain type %q", s.ID, s.PainType)
	}
	if !s.Rule.Policy.IsValid() {
		return fmt.Errorf("scale %s: unknown aggregation policy %q", s.ID, s.Rule.Policy)
	}

	seen := make(map[string]bool, len(s.Questions))
	for _, q := range s.Questions {
		if q.ID == "" {
			return fmt.Errorf("scale %s: question without id", s.ID)
		}
		if seen[q.ID] {
			return fmt.Errorf("scale %s: duplicate question id %s", s.ID, q.ID)
		}
		seen[q.ID] = true
		if !q.Type.IsValid() {
			return fmt.Errorf("scale %s: question %s has invalid type %q", s.ID, q.ID, q.Type)
		}
		if q.Type.IsChoice() && len(q.Options) == 0 {
			return fmt.Errorf("scale %s: choice question %s has no options", s.ID, q.ID)
		}
		if q.Type == QuestionSlider && q.Max <= q.Min {
			return fmt.Errorf("scale %s: slider %s has empty range", s.ID, q.ID)
		}
	}

	requireQuestion := func(id string) error {
		if !seen[id] {
			return fmt.Errorf("scale %s: rule references unknown question %s", s.ID, id)
		}
		return nil
	}

	switch s.Rule.Policy {
	case PolicySumThreshold:
		if s.Rule.MaxScore <= 0 {
			return fmt.Errorf("scale %s: sum policy requires max_score", s.ID)
		}
	case PolicyHolisticPick:
		if err := requireQuestion(s.Rule.QuestionID); err != nil {
			return err
		}
	case PolicyDualSubscaleAverage:
		if len(s.Rule.Subscales) != 2 {
			return fmt.Errorf("scale %s: dual subscale policy requires exactly two subscales", s.ID)
		}
		grouped := make(map[string]string)
		for _, sub := range s.Rule.Subscales {
			if len(sub.QuestionIDs) == 0 {
				return fmt.Errorf("scale %s: subscale %s has no questions", s.ID, sub.Key)
			}
			for _, id := range sub.QuestionIDs {
				if err := requireQuestion(id); err != nil {
					return err
				}
				if other, ok := grouped[id]; ok {
					return fmt.Errorf("scale %s: question %s is in subscales %s and %s", s.ID, id, other, sub.Key)
				}
				grouped[id] = sub.Key
			}
		}
	case PolicyBandedSum:
		for i, band := range s.Rule.Bands {
			last := i == len(s.Rule.Bands)-1
			if last != (band.UpTo == nil) {
				return fmt.Errorf("scale %s: only the last severity band may be open-ended", s.ID)
			}
			if i > 0 && !last && *band.UpTo <= *s.Rule.Bands[i-1].UpTo {
				return fmt.Errorf("scale %s: severity bands must be ascending", s.ID)
			}
		}
	case PolicyActivityMean:
		if len(s.Rule.Activities) == 0 {
			return fmt.Errorf("scale %s: activity policy requires at least one activity slot", s.ID)
		}
		for _, slot := range s.Rule.Activities {
			if err := requireQuestion(slot.LabelQuestionID); err != nil {
				return err
			}
			if err := requireQuestion(slot.ScoreQuestionID); err != nil {
				return err
			}
		}
	case PolicyInformational:
		if len(s.Questions) != 0 {
			return fmt.Errorf("scale %s: informational scales carry no questions", s.ID)
		}
	}

	return nil
}

// InterpretationResult is the outcome of interpreting a completed answer set
type InterpretationResult struct {
	ScaleID           string             `json:"scale_id"`
	Score             string             `json:"score"`
	Analysis          string             `json:"analysis"`
	NeedsIntervention bool               `json:"needs_intervention"`
	Band              string             `json:"band,omitempty"`
	Subscores         map[string]float64 `json:"subscores,omitempty"`
	NotApplicable     bool               `json:"not_applicable,omitempty"`
}
