package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vet-pain-mcp-server/internal/domain"
)

// NotApplicableScore is the score reported when a scale yields no numeric result
const NotApplicableScore = "N/A"

// AggregationFunc turns an answer set into a result for one aggregation policy
type AggregationFunc func(scale *domain.Scale, answers domain.AnswerSet) *domain.InterpretationResult

// InterpretationEngine interprets answer sets using the aggregation policy each scale declares.
// Interpretation is a pure function of the scale and the answers.
type InterpretationEngine struct {
	logger   *logrus.Logger
	policies map[domain.AggregationPolicy]AggregationFunc
}

// NewInterpretationEngine creates an engine with every built-in aggregation policy registered
func NewInterpretationEngine(logger *logrus.Logger) *InterpretationEngine {
	engine := &InterpretationEngine{
		logger:   logger,
		policies: make(map[domain.AggregationPolicy]AggregationFunc),
	}

	engine.initializePolicies()

	return engine
}

func (e *InterpretationEngine) initializePolicies() {
	e.policies[domain.PolicySumThreshold] = sumThreshold
	e.policies[domain.PolicyHolisticPick] = holisticPick
	e.policies[domain.PolicyDualSubscaleAverage] = dualSubscaleAverage
	e.policies[domain.PolicyBandedSum] = bandedSum
	e.policies[domain.PolicyActivityMean] = activityMean
	e.policies[domain.PolicyInformational] = informational
}

// Interpret produces the score, analysis and intervention flag for a scale's answers.
// Answers to questions the scale does not declare are ignored.
func (e *InterpretationEngine) Interpret(scale *domain.Scale, answers domain.AnswerSet) (*domain.InterpretationResult, error) {
	if scale == nil {
		return nil, fmt.Errorf("scale is required")
	}

	policy, exists := e.policies[scale.Rule.Policy]
	if !exists {
		return nil, fmt.Errorf("scale %s: no implementation for aggregation policy %q", scale.ID, scale.Rule.Policy)
	}

	e.logger.WithFields(logrus.Fields{
		"scale_id": scale.ID,
		"policy":   scale.Rule.Policy,
		"answers":  len(answers),
	}).Debug("Interpreting answer set")

	result := policy(scale, answers)
	result.ScaleID = scale.ID

	e.logger.WithFields(logrus.Fields{
		"scale_id":           scale.ID,
		"score":              result.Score,
		"needs_intervention": result.NeedsIntervention,
	}).Info("Completed scale interpretation")

	return result, nil
}

// Policies returns the registered aggregation policies
func (e *InterpretationEngine) Policies() []domain.AggregationPolicy {
	out := make([]domain.AggregationPolicy, 0, len(e.policies))
	for p := range e.policies {
		out = append(out, p)
	}
	return out
}

// sumQuestions adds the numeric answers of the given questions; missing and text answers count as 0
func sumQuestions(answers domain.AnswerSet, ids []string) float64 {
	total := 0.0
	for _, id := range ids {
		if v, ok := answers.Number(id); ok {
			total += v
		}
	}
	return total
}

func meanQuestions(answers domain.AnswerSet, ids []string) float64 {
	if len(ids) == 0 {
		return 0
	}
	return sumQuestions(answers, ids) / float64(len(ids))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOneDecimal(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}

func sumThreshold(scale *domain.Scale, answers domain.AnswerSet) *domain.InterpretationResult {
	total := sumQuestions(answers, scale.QuestionIDs())
	return &domain.InterpretationResult{
		Score:             fmt.Sprintf("%s / %d", formatNumber(total), scale.Rule.MaxScore),
		Analysis:          scale.Rule.Analysis,
		NeedsIntervention: total >= scale.Rule.Threshold,
	}
}

func holisticPick(scale *domain.Scale, answers domain.AnswerSet) *domain.InterpretationResult {
	score, _ := answers.Number(scale.Rule.QuestionID)
	return &domain.InterpretationResult{
		Score:             fmt.Sprintf("%s / %d", formatNumber(score), scale.Rule.MaxScore),
		Analysis:          scale.Rule.Analysis,
		NeedsIntervention: score >= scale.Rule.Threshold,
	}
}

func dualSubscaleAverage(scale *domain.Scale, answers domain.AnswerSet) *domain.InterpretationResult {
	result := &domain.InterpretationResult{
		Analysis:  scale.Rule.Analysis,
		Subscores: make(map[string]float64, len(scale.Rule.Subscales)),
	}

	parts := make([]string, 0, len(scale.Rule.Subscales))
	for _, sub := range scale.Rule.Subscales {
		avg := meanQuestions(answers, sub.QuestionIDs)
		result.Subscores[sub.Key] = avg
		parts = append(parts, fmt.Sprintf("%s: %s", sub.Label, formatOneDecimal(avg)))
		if avg >= scale.Rule.Threshold {
			result.NeedsIntervention = true
		}
	}
	result.Score = strings.Join(parts, " | ")

	return result
}

func bandedSum(scale *domain.Scale, answers domain.AnswerSet) *domain.InterpretationResult {
	total := sumQuestions(answers, scale.QuestionIDs())
	band := severityBand(scale.Rule.Bands, total)

	var b strings.Builder
	if scale.Rule.ScoreLabel != "" {
		b.WriteString(scale.Rule.ScoreLabel)
		b.WriteString(": ")
	}
	b.WriteString(formatNumber(total))
	if scale.Rule.MaxScore > 0 {
		fmt.Fprintf(&b, " / %d", scale.Rule.MaxScore)
	}
	if band != "" {
		fmt.Fprintf(&b, " (%s)", band)
	}

	return &domain.InterpretationResult{
		Score:             b.String(),
		Analysis:          scale.Rule.Analysis,
		NeedsIntervention: total > scale.Rule.Threshold,
		Band:              band,
	}
}

// severityBand returns the label of the first band whose upper bound covers total
func severityBand(bands []domain.SeverityBand, total float64) string {
	for _, band := range bands {
		if band.UpTo == nil || total <= float64(*band.UpTo) {
			return band.Label
		}
	}
	return ""
}

func activityMean(scale *domain.Scale, answers domain.AnswerSet) *domain.InterpretationResult {
	var scores []float64
	for _, slot := range scale.Rule.Activities {
		if !answers.Defined(slot.LabelQuestionID) {
			continue
		}
		if _, isText := answers.Text(slot.LabelQuestionID); !isText {
			continue
		}
		if v, ok := answers.Number(slot.ScoreQuestionID); ok {
			scores = append(scores, v)
		}
	}

	if len(scores) == 0 {
		return &domain.InterpretationResult{
			Score:         NotApplicableScore,
			Analysis:      scale.Rule.EmptyAnalysis,
			NotApplicable: true,
		}
	}

	sum := 0.0
	for _, v := range scores {
		sum += v
	}
	mean := sum / float64(len(scores))

	score := formatOneDecimal(mean)
	if scale.Rule.ScoreLabel != "" {
		score = scale.Rule.ScoreLabel + ": " + score
	}
	if scale.Rule.MaxScore > 0 {
		score = fmt.Sprintf("%s / %d", score, scale.Rule.MaxScore)
	}

	return &domain.InterpretationResult{
		Score:             score,
		Analysis:          scale.Rule.Analysis,
		NeedsIntervention: mean < scale.Rule.Threshold,
		Subscores:         map[string]float64{"mean": mean},
	}
}

func informational(scale *domain.Scale, _ domain.AnswerSet) *domain.InterpretationResult {
	return &domain.InterpretationResult{
		Score:         NotApplicableScore,
		Analysis:      scale.Rule.Analysis,
		NotApplicable: true,
	}
}
