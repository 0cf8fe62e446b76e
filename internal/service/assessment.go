package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/vet-pain-mcp-server/internal/domain"
)

// IncompleteError reports the required questions still missing an answer
type IncompleteError struct {
	Missing []string
}

// Error implements the error interface
func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s: missing answers for %s", domain.ErrIncomplete, strings.Join(e.Missing, ", "))
}

// Unwrap lets errors.Is match domain.ErrIncomplete
func (e *IncompleteError) Unwrap() error {
	return domain.ErrIncomplete
}

// AssessmentSession holds the answers collected for one scale until they are submitted.
// Methods are safe for concurrent use.
type AssessmentSession struct {
	ID        string
	Scale     *domain.Scale
	CreatedAt time.Time

	mu        sync.RWMutex
	answers   domain.AnswerSet
	result    *domain.InterpretationResult
	updatedAt time.Time
}

// AssessmentSnapshot is a point-in-time copy of a session's state
type AssessmentSnapshot struct {
	ID        string                       `json:"id"`
	ScaleID   string                       `json:"scale_id"`
	Answers   domain.AnswerSet             `json:"answers"`
	Complete  bool                         `json:"complete"`
	Missing   []string                     `json:"missing,omitempty"`
	Result    *domain.InterpretationResult `json:"result,omitempty"`
	CreatedAt time.Time                    `json:"created_at"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

// NewAssessmentSession starts a session for the scale with sliders pre-seeded
func NewAssessmentSession(scale *domain.Scale) *AssessmentSession {
	now := time.Now().UTC()
	return &AssessmentSession{
		ID:        uuid.New().String(),
		Scale:     scale,
		CreatedAt: now,
		answers:   NewAnswerSet(scale),
		updatedAt: now,
	}
}

// SetAnswer records an answer after validating it against the question.
// Any previous result is discarded.
func (s *AssessmentSession) SetAnswer(questionID string, a domain.Answer) error {
	q, ok := s.Scale.Question(questionID)
	if !ok {
		return fmt.Errorf("%w: %s in scale %s", domain.ErrQuestionNotFound, questionID, s.Scale.ID)
	}
	if err := ValidateAnswer(q, a); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[questionID] = a
	s.result = nil
	s.updatedAt = time.Now().UTC()
	return nil
}

// ClearAnswer removes an answer. Sliders fall back to their minimum.
func (s *AssessmentSession) ClearAnswer(questionID string) error {
	q, ok := s.Scale.Question(questionID)
	if !ok {
		return fmt.Errorf("%w: %s in scale %s", domain.ErrQuestionNotFound, questionID, s.Scale.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if q.Type == domain.QuestionSlider {
		s.answers[questionID] = domain.NumberAnswer(float64(q.Min))
	} else {
		delete(s.answers, questionID)
	}
	s.result = nil
	s.updatedAt = time.Now().UTC()
	return nil
}

// Reset discards every answer and result and re-seeds the sliders
func (s *AssessmentSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = NewAnswerSet(s.Scale)
	s.result = nil
	s.updatedAt = time.Now().UTC()
}

// Answers returns a copy of the current answers
func (s *AssessmentSession) Answers() domain.AnswerSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.answers.Clone()
}

// IsComplete reports whether the session may be submitted
func (s *AssessmentSession) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return IsComplete(s.Scale, s.answers)
}

// Submit interprets the answers when they are complete. Incomplete sessions
// return an *IncompleteError and keep their answers.
func (s *AssessmentSession) Submit(engine *InterpretationEngine) (*domain.InterpretationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if missing := MissingAnswers(s.Scale, s.answers); len(missing) > 0 {
		return nil, &IncompleteError{Missing: missing}
	}

	result, err := engine.Interpret(s.Scale, s.answers)
	if err != nil {
		return nil, err
	}
	s.result = result
	s.updatedAt = time.Now().UTC()
	return result, nil
}

// Result returns the last submitted result, if any
func (s *AssessmentSession) Result() *domain.InterpretationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Snapshot returns a copy of the session's state
func (s *AssessmentSession) Snapshot() AssessmentSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	missing := MissingAnswers(s.Scale, s.answers)
	return AssessmentSnapshot{
		ID:        s.ID,
		ScaleID:   s.Scale.ID,
		Answers:   s.answers.Clone(),
		Complete:  len(missing) == 0,
		Missing:   missing,
		Result:    s.result,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.updatedAt,
	}
}

// AssessmentService creates and tracks assessment sessions in process memory.
// The least recently used session is evicted once the bound is reached.
type AssessmentService struct {
	logger   *logrus.Logger
	catalog  domain.ScaleCatalog
	engine   *InterpretationEngine
	sessions *lru.Cache[string, *AssessmentSession]
}

// NewAssessmentService creates an assessment service holding at most maxSessions sessions
func NewAssessmentService(logger *logrus.Logger, catalog domain.ScaleCatalog, engine *InterpretationEngine, maxSessions int) (*AssessmentService, error) {
	if maxSessions <= 0 {
		return nil, errors.New("max sessions must be positive")
	}

	svc := &AssessmentService{
		logger:  logger,
		catalog: catalog,
		engine:  engine,
	}

	sessions, err := lru.NewWithEvict[string, *AssessmentSession](maxSessions, svc.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	svc.sessions = sessions

	return svc, nil
}

func (a *AssessmentService) onEvict(id string, _ *AssessmentSession) {
	a.logger.WithField("session_id", id).Debug("Assessment session evicted")
}

// Start creates a session for the scale
func (a *AssessmentService) Start(scaleID string) (*AssessmentSession, error) {
	scale, err := a.catalog.Scale(scaleID)
	if err != nil {
		return nil, err
	}

	session := NewAssessmentSession(scale)
	a.sessions.Add(session.ID, session)

	a.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"scale_id":   scale.ID,
	}).Info("Assessment session started")

	return session, nil
}

// Get returns a live session
func (a *AssessmentService) Get(id string) (*AssessmentSession, error) {
	session, ok := a.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return session, nil
}

// SetAnswer records an answer in a session
func (a *AssessmentService) SetAnswer(id, questionID string, answer domain.Answer) (*AssessmentSession, error) {
	session, err := a.Get(id)
	if err != nil {
		return nil, err
	}
	if answer.IsBlank() && !answer.IsText() {
		return session, session.ClearAnswer(questionID)
	}
	return session, session.SetAnswer(questionID, answer)
}

// Submit interprets a session's answers
func (a *AssessmentService) Submit(id string) (*domain.InterpretationResult, error) {
	session, err := a.Get(id)
	if err != nil {
		return nil, err
	}

	result, err := session.Submit(a.engine)
	if err != nil {
		a.logger.WithError(err).WithField("session_id", id).Warn("Assessment submission rejected")
		return nil, err
	}
	return result, nil
}

// Discard removes a session
func (a *AssessmentService) Discard(id string) error {
	if !a.sessions.Remove(id) {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	a.logger.WithField("session_id", id).Info("Assessment session discarded")
	return nil
}

// Len returns the number of live sessions
func (a *AssessmentService) Len() int {
	return a.sessions.Len()
}

// Interpret validates and interprets a one-shot answer set without creating a session.
// The returned missing list is empty when the answers were complete.
func (a *AssessmentService) Interpret(scaleID string, answers domain.AnswerSet) (*domain.InterpretationResult, []string, error) {
	scale, err := a.catalog.Scale(scaleID)
	if err != nil {
		return nil, nil, err
	}
	if err := ValidateAnswers(scale, answers); err != nil {
		return nil, nil, err
	}

	merged := NewAnswerSet(scale)
	for id, v := range answers {
		if !v.IsBlank() {
			merged[id] = v
		}
	}

	if missing := MissingAnswers(scale, merged); len(missing) > 0 {
		return nil, missing, &IncompleteError{Missing: missing}
	}

	result, err := a.engine.Interpret(scale, merged)
	if err != nil {
		return nil, nil, err
	}
	return result, nil, nil
}
