package service

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/vet-pain-mcp-server/internal/catalog"
	"github.com/vet-pain-mcp-server/internal/domain"
)

func newTestLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load(newTestLogger())
	require.NoError(t, err)
	return c
}

func mustScale(t *testing.T, c domain.ScaleCatalog, id string) *domain.Scale {
	t.Helper()
	scale, err := c.Scale(id)
	require.NoError(t, err)
	return scale
}

func numbers(values map[string]float64) domain.AnswerSet {
	answers := make(domain.AnswerSet, len(values))
	for id, v := range values {
		answers[id] = domain.NumberAnswer(v)
	}
	return answers
}

// filled answers every question of the scale with the same value
func filled(scale *domain.Scale, v float64) domain.AnswerSet {
	answers := make(domain.AnswerSet, len(scale.Questions))
	for _, q := range scale.Questions {
		answers[q.ID] = domain.NumberAnswer(v)
	}
	return answers
}
