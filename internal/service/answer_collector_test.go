package service

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vet-pain-mcp-server/internal/domain"
)

func TestNewAnswerSet_SeedsSliders(t *testing.T) {
	c := newTestCatalog(t)

	cbpi := NewAnswerSet(mustScale(t, c, "cbpi"))
	assert.Len(t, cbpi, 10)
	v, ok := cbpi.Number("pain_worst")
	require.True(t, ok)
	assert.Equal(t, 0.0, v)

	cmps := NewAnswerSet(mustScale(t, c, "cmps-sf"))
	assert.Empty(t, cmps)
}

func TestMissingAnswers(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		name     string
		scaleID  string
		answers  func(scale *domain.Scale) domain.AnswerSet
		expected []string
	}{
		{
			name:     "radio questions start unanswered",
			scaleID:  "ucaps",
			answers:  NewAnswerSet,
			expected: []string{"posture", "activity", "attitude", "touch_response"},
		},
		{
			name:    "partial radio answers",
			scaleID: "ucaps",
			answers: func(*domain.Scale) domain.AnswerSet {
				return numbers(map[string]float64{"posture": 0, "activity": 2})
			},
			expected: []string{"attitude", "touch_response"},
		},
		{
			name:     "sliders are complete from the start",
			scaleID:  "hcpi",
			answers:  NewAnswerSet,
			expected: nil,
		},
		{
			name:     "informational scale is always complete",
			scaleID:  "umps",
			answers:  NewAnswerSet,
			expected: nil,
		},
		{
			name:     "activity scale requires the first activity name",
			scaleID:  "csom",
			answers:  NewAnswerSet,
			expected: []string{"activity_1_name"},
		},
		{
			name:    "blank activity name does not count",
			scaleID: "csom",
			answers: func(scale *domain.Scale) domain.AnswerSet {
				answers := NewAnswerSet(scale)
				answers["activity_1_name"] = domain.TextAnswer("  ")
				return answers
			},
			expected: []string{"activity_1_name"},
		},
		{
			name:    "first activity named",
			scaleID: "csom",
			answers: func(scale *domain.Scale) domain.AnswerSet {
				answers := NewAnswerSet(scale)
				answers["activity_1_name"] = domain.TextAnswer("Walking")
				return answers
			},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scale := mustScale(t, c, tt.scaleID)
			answers := tt.answers(scale)
			assert.Equal(t, tt.expected, MissingAnswers(scale, answers))
			assert.Equal(t, len(tt.expected) == 0, IsComplete(scale, answers))
		})
	}
}

func TestValidateAnswer(t *testing.T) {
	c := newTestCatalog(t)
	cmps := mustScale(t, c, "cmps-sf")
	cbpi := mustScale(t, c, "cbpi")
	csom := mustScale(t, c, "csom")

	radio, _ := cmps.Question("glasgow_palpation")
	slider, _ := cbpi.Question("pain_now")
	text, _ := csom.Question("activity_1_name")

	tests := []struct {
		name     string
		question *domain.Question
		answer   domain.Answer
		wantErr  bool
	}{
		{"radio option", radio, domain.NumberAnswer(5), false},
		{"radio score not offered", radio, domain.NumberAnswer(6), true},
		{"radio fractional score", radio, domain.NumberAnswer(1.5), true},
		{"radio text answer", radio, domain.TextAnswer("2"), true},
		{"slider lower bound", slider, domain.NumberAnswer(0), false},
		{"slider upper bound", slider, domain.NumberAnswer(10), false},
		{"slider above range", slider, domain.NumberAnswer(11), true},
		{"slider off step", slider, domain.NumberAnswer(2.5), true},
		{"slider infinity", slider, domain.NumberAnswer(math.Inf(1)), true},
		{"text answer", text, domain.TextAnswer("Playing fetch"), false},
		{"text question with number", text, domain.NumberAnswer(3), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAnswer(tt.question, tt.answer)
			if tt.wantErr {
				require.Error(t, err)
				var verr *domain.ValidationError
				assert.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.question.ID, verr.Field)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAnswers_UnknownQuestion(t *testing.T) {
	c := newTestCatalog(t)
	scale := mustScale(t, c, "fgs")

	err := ValidateAnswers(scale, numbers(map[string]float64{"ears": 1, "tail": 2}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tail")

	assert.NoError(t, ValidateAnswers(scale, numbers(map[string]float64{"ears": 1, "eyes": 2})))
}
