package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vet-pain-mcp-server/internal/domain"
)

func TestInterpretationEngine_SumThreshold(t *testing.T) {
	c := newTestCatalog(t)
	engine := NewInterpretationEngine(newTestLogger())

	tests := []struct {
		name              string
		scaleID           string
		answers           domain.AnswerSet
		expectedScore     string
		needsIntervention bool
	}{
		{
			name:    "CMPS-SF just below threshold",
			scaleID: "cmps-sf",
			answers: numbers(map[string]float64{
				"glasgow_observation": 2, "glasgow_touch_neutral": 2, "glasgow_palpation": 0, "glasgow_demeanor": 0,
			}),
			expectedScore:     "4 / 18",
			needsIntervention: false,
		},
		{
			name:    "CMPS-SF at threshold",
			scaleID: "cmps-sf",
			answers: numbers(map[string]float64{
				"glasgow_observation": 2, "glasgow_touch_neutral": 2, "glasgow_palpation": 1, "glasgow_demeanor": 0,
			}),
			expectedScore:     "5 / 18",
			needsIntervention: true,
		},
		{
			name:    "UNESP-Botucatu below threshold",
			scaleID: "ucaps",
			answers: numbers(map[string]float64{
				"posture": 1, "activity": 1, "attitude": 1, "touch_response": 0,
			}),
			expectedScore:     "3 / 11",
			needsIntervention: false,
		},
		{
			name:    "UNESP-Botucatu at threshold",
			scaleID: "ucaps",
			answers: numbers(map[string]float64{
				"posture": 1, "activity": 1, "attitude": 1, "touch_response": 1,
			}),
			expectedScore:     "4 / 11",
			needsIntervention: true,
		},
		{
			name:              "Grimace maximum",
			scaleID:           "fgs",
			answers:           numbers(map[string]float64{"ears": 2, "eyes": 2, "muzzle": 2, "whiskers": 2, "head": 2}),
			expectedScore:     "10 / 10",
			needsIntervention: true,
		},
		{
			name:    "answers to unknown questions are ignored",
			scaleID: "fgs",
			answers: numbers(map[string]float64{
				"ears": 1, "eyes": 1, "muzzle": 1, "whiskers": 0, "head": 0, "stray": 50,
			}),
			expectedScore:     "3 / 10",
			needsIntervention: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Interpret(mustScale(t, c, tt.scaleID), tt.answers)
			require.NoError(t, err)
			assert.Equal(t, tt.scaleID, result.ScaleID)
			assert.Equal(t, tt.expectedScore, result.Score)
			assert.Equal(t, tt.needsIntervention, result.NeedsIntervention)
			assert.NotEmpty(t, result.Analysis)
			assert.False(t, result.NotApplicable)
		})
	}
}

func TestInterpretationEngine_HolisticPick(t *testing.T) {
	c := newTestCatalog(t)
	engine := NewInterpretationEngine(newTestLogger())

	tests := []struct {
		scaleID           string
		questionID        string
		score             float64
		expectedScore     string
		needsIntervention bool
	}{
		{"csu-cap", "holistic_score", 0, "0 / 4", false},
		{"csu-cap", "holistic_score", 1, "1 / 4", false},
		{"csu-cap", "holistic_score", 2, "2 / 4", true},
		{"csu-faps", "holistic_score_feline", 4, "4 / 4", true},
	}

	for _, tt := range tests {
		t.Run(tt.expectedScore, func(t *testing.T) {
			result, err := engine.Interpret(mustScale(t, c, tt.scaleID), numbers(map[string]float64{tt.questionID: tt.score}))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedScore, result.Score)
			assert.Equal(t, tt.needsIntervention, result.NeedsIntervention)
		})
	}
}

func TestInterpretationEngine_DualSubscaleAverage(t *testing.T) {
	c := newTestCatalog(t)
	engine := NewInterpretationEngine(newTestLogger())
	scale := mustScale(t, c, "cbpi")

	t.Run("severity at threshold triggers intervention", func(t *testing.T) {
		answers := filled(scale, 0)
		for _, id := range []string{"pain_worst", "pain_least", "pain_avg", "pain_now"} {
			answers[id] = domain.NumberAnswer(3)
		}

		result, err := engine.Interpret(scale, answers)
		require.NoError(t, err)
		assert.Equal(t, "Severity (PSS): 3.0 | Interference (PIS): 0.0", result.Score)
		assert.True(t, result.NeedsIntervention)
		assert.Equal(t, 3.0, result.Subscores["pss"])
		assert.Equal(t, 0.0, result.Subscores["pis"])
	})

	t.Run("interference alone triggers intervention", func(t *testing.T) {
		answers := filled(scale, 4)
		for _, id := range []string{"pain_worst", "pain_least", "pain_avg", "pain_now"} {
			answers[id] = domain.NumberAnswer(0)
		}

		result, err := engine.Interpret(scale, answers)
		require.NoError(t, err)
		assert.Equal(t, "Severity (PSS): 0.0 | Interference (PIS): 4.0", result.Score)
		assert.True(t, result.NeedsIntervention)
	})

	t.Run("both below threshold", func(t *testing.T) {
		answers := filled(scale, 2)
		answers["pain_worst"] = domain.NumberAnswer(5)

		result, err := engine.Interpret(scale, answers)
		require.NoError(t, err)
		assert.Equal(t, "Severity (PSS): 2.8 | Interference (PIS): 2.0", result.Score)
		assert.False(t, result.NeedsIntervention)
		assert.InDelta(t, 2.75, result.Subscores["pss"], 1e-9)
	})
}

func TestInterpretationEngine_BandedSum(t *testing.T) {
	c := newTestCatalog(t)
	engine := NewInterpretationEngine(newTestLogger())

	tests := []struct {
		name              string
		scaleID           string
		total             int
		expectedScore     string
		expectedBand      string
		needsIntervention bool
	}{
		{"HCPI at threshold", "hcpi", 10, "Total Score: 10 / 44", "", false},
		{"HCPI above threshold", "hcpi", 11, "Total Score: 11 / 44", "", true},
		{"LOAD normal", "load", 0, "Total Score: 0 / 52 (Normal)", "Normal", false},
		{"LOAD mild upper bound", "load", 10, "Total Score: 10 / 52 (Mild)", "Mild", false},
		{"LOAD moderate", "load", 11, "Total Score: 11 / 52 (Moderate)", "Moderate", true},
		{"LOAD severe", "load", 30, "Total Score: 30 / 52 (Severe)", "Severe", true},
		{"LOAD extreme", "load", 31, "Total Score: 31 / 52 (Extreme)", "Extreme", true},
		{"FMPI without maximum", "fmpi", 12, "Total Score: 12", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scale := mustScale(t, c, tt.scaleID)
			answers := filled(scale, 0)
			// spread the total over the sliders, four points at most each
			remaining := tt.total
			for _, q := range scale.Questions {
				v := remaining
				if v > q.Max {
					v = q.Max
				}
				answers[q.ID] = domain.NumberAnswer(float64(v))
				remaining -= v
			}
			require.Zero(t, remaining)

			result, err := engine.Interpret(scale, answers)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedScore, result.Score)
			assert.Equal(t, tt.expectedBand, result.Band)
			assert.Equal(t, tt.needsIntervention, result.NeedsIntervention)
		})
	}
}

func TestInterpretationEngine_ActivityMean(t *testing.T) {
	c := newTestCatalog(t)
	engine := NewInterpretationEngine(newTestLogger())
	scale := mustScale(t, c, "csom")

	t.Run("no qualifying activity", func(t *testing.T) {
		answers := NewAnswerSet(scale)

		result, err := engine.Interpret(scale, answers)
		require.NoError(t, err)
		assert.Equal(t, NotApplicableScore, result.Score)
		assert.True(t, result.NotApplicable)
		assert.False(t, result.NeedsIntervention)
		assert.Equal(t, "At least one activity must be defined and rated.", result.Analysis)
	})

	t.Run("single activity at full capability", func(t *testing.T) {
		answers := NewAnswerSet(scale)
		answers["activity_1_name"] = domain.TextAnswer("Climbing onto the sofa")
		answers["activity_1_score"] = domain.NumberAnswer(10)

		result, err := engine.Interpret(scale, answers)
		require.NoError(t, err)
		assert.Equal(t, "Average Capability: 10.0 / 10", result.Score)
		assert.False(t, result.NeedsIntervention)
		assert.Equal(t, 10.0, result.Subscores["mean"])
	})

	t.Run("low capability needs intervention", func(t *testing.T) {
		answers := NewAnswerSet(scale)
		answers["activity_1_name"] = domain.TextAnswer("Jumping")
		answers["activity_1_score"] = domain.NumberAnswer(4)
		answers["activity_2_name"] = domain.TextAnswer("Grooming")
		answers["activity_2_score"] = domain.NumberAnswer(7)

		result, err := engine.Interpret(scale, answers)
		require.NoError(t, err)
		assert.Equal(t, "Average Capability: 5.5 / 10", result.Score)
		assert.True(t, result.NeedsIntervention)
	})

	t.Run("unnamed slots are ignored", func(t *testing.T) {
		answers := NewAnswerSet(scale)
		answers["activity_1_name"] = domain.TextAnswer("Walking")
		answers["activity_1_score"] = domain.NumberAnswer(8)
		answers["activity_2_name"] = domain.TextAnswer("   ")
		answers["activity_2_score"] = domain.NumberAnswer(0)

		result, err := engine.Interpret(scale, answers)
		require.NoError(t, err)
		assert.Equal(t, "Average Capability: 8.0 / 10", result.Score)
		assert.False(t, result.NeedsIntervention)
	})
}

func TestInterpretationEngine_Informational(t *testing.T) {
	c := newTestCatalog(t)
	engine := NewInterpretationEngine(newTestLogger())

	result, err := engine.Interpret(mustScale(t, c, "umps"), domain.AnswerSet{})
	require.NoError(t, err)
	assert.Equal(t, NotApplicableScore, result.Score)
	assert.True(t, result.NotApplicable)
	assert.False(t, result.NeedsIntervention)
}

func TestInterpretationEngine_Idempotent(t *testing.T) {
	c := newTestCatalog(t)
	engine := NewInterpretationEngine(newTestLogger())
	scale := mustScale(t, c, "cbpi")
	answers := filled(scale, 3)

	first, err := engine.Interpret(scale, answers)
	require.NoError(t, err)
	second, err := engine.Interpret(scale, answers)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestInterpretationEngine_Errors(t *testing.T) {
	engine := NewInterpretationEngine(newTestLogger())

	_, err := engine.Interpret(nil, domain.AnswerSet{})
	assert.Error(t, err)

	_, err = engine.Interpret(&domain.Scale{ID: "x", Rule: domain.ScaleRule{Policy: "median"}}, domain.AnswerSet{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "median")

	assert.Len(t, engine.Policies(), 6)
}
