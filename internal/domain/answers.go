package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type answerKind uint8

const (
	answerNumber answerKind = iota + 1
	answerText
)

// Answer is a single response: a number for scored questions or a string for free text
type Answer struct {
	kind   answerKind
	number float64
	text   string
}

// NumberAnswer creates a numeric answer
func NumberAnswer(v float64) Answer {
	return Answer{kind: answerNumber, number: v}
}

// TextAnswer creates a free-text answer
func TextAnswer(s string) Answer {
	return Answer{kind: answerText, text: s}
}

// IsNumber reports whether the answer holds a number
func (a Answer) IsNumber() bool {
	return a.kind == answerNumber
}

// IsText reports whether the answer holds text
func (a Answer) IsText() bool {
	return a.kind == answerText
}

// Number returns the numeric value and whether the answer is numeric
func (a Answer) Number() (float64, bool) {
	return a.number, a.kind == answerNumber
}

// Text returns the text value and whether the answer is text
func (a Answer) Text() (string, bool) {
	return a.text, a.kind == answerText
}

// IsBlank reports whether the answer counts as not given: unset, NaN, or whitespace-only text
func (a Answer) IsBlank() bool {
	switch a.kind {
	case answerNumber:
		return math.IsNaN(a.number)
	case answerText:
		return strings.TrimSpace(a.text) == ""
	default:
		return true
	}
}

// String renders the answer for logs and CLI output
func (a Answer) String() string {
	switch a.kind {
	case answerNumber:
		return strconv.FormatFloat(a.number, 'f', -1, 64)
	case answerText:
		return a.text
	default:
		return ""
	}
}

// MarshalJSON encodes the answer as a JSON number or string
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case answerNumber:
		return json.Marshal(a.number)
	case answerText:
		return json.Marshal(a.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON number, string or null
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Answer{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("answer must be a number or a string: %w", err)
	}
	*a = NumberAnswer(n)
	return nil
}

// AnswerFromValue converts a decoded JSON value into an Answer
func AnswerFromValue(v interface{}) (Answer, error) {
	switch val := v.(type) {
	case nil:
		return Answer{}, nil
	case float64:
		return NumberAnswer(val), nil
	case float32:
		return NumberAnswer(float64(val)), nil
	case int:
		return NumberAnswer(float64(val)), nil
	case int64:
		return NumberAnswer(float64(val)), nil
	case json.Number:
		n, err := val.Float64()
		if err != nil {
			return Answer{}, fmt.Errorf("invalid numeric answer %q: %w", val, err)
		}
		return NumberAnswer(n), nil
	case string:
		return TextAnswer(val), nil
	default:
		return Answer{}, fmt.Errorf("unsupported answer type %T", v)
	}
}

// AnswerSet maps question ids to answers
type AnswerSet map[string]Answer

// AnswerSetFromMap converts loosely typed values (decoded JSON) into an AnswerSet
func AnswerSetFromMap(values map[string]interface{}) (AnswerSet, error) {
	answers := make(AnswerSet, len(values))
	for id, raw := range values {
		a, err := AnswerFromValue(raw)
		if err != nil {
			return nil, NewValidationError(id, err.Error(), raw)
		}
		if a.kind == 0 {
			continue
		}
		answers[id] = a
	}
	return answers, nil
}

// Number returns the numeric answer for a question, if present
func (s AnswerSet) Number(id string) (float64, bool) {
	a, ok := s[id]
	if !ok {
		return 0, false
	}
	n, isNum := a.Number()
	if !isNum || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

// Text returns the text answer for a question, if present
func (s AnswerSet) Text(id string) (string, bool) {
	a, ok := s[id]
	if !ok {
		return "", false
	}
	return a.Text()
}

// Defined reports whether a question has a non-blank answer
func (s AnswerSet) Defined(id string) bool {
	a, ok := s[id]
	return ok && !a.IsBlank()
}

// Clone returns an independent copy of the answer set
func (s AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
