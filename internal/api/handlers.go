package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vet-pain-mcp-server/internal/domain"
	"github.com/vet-pain-mcp-server/internal/middleware"
	"github.com/vet-pain-mcp-server/internal/service"
)

// ScaleSummary is the list view of a scale
type ScaleSummary struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Species       domain.Species  `json:"species"`
	PainType      domain.PainType `json:"pain_type"`
	Recommended   bool            `json:"recommended"`
	Description   string          `json:"description"`
	QuestionCount int             `json:"question_count"`
}

// InterpretRequest carries a one-shot answer set
type InterpretRequest struct {
	Answers map[string]interface{} `json:"answers"`
}

// InterpretResponse reports either the result or the missing answers
type InterpretResponse struct {
	Complete bool                         `json:"complete"`
	Missing  []string                     `json:"missing,omitempty"`
	Result   *domain.InterpretationResult `json:"result,omitempty"`
}

// StartAssessmentRequest selects the scale of a new session
type StartAssessmentRequest struct {
	ScaleID string `json:"scale_id" binding:"required"`
}

// SetAnswerRequest records one answer; a null value clears it
type SetAnswerRequest struct {
	QuestionID string        `json:"question_id" binding:"required"`
	Value      domain.Answer `json:"value"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   *domain.MCPError `json:"error"`
	Missing []string         `json:"missing,omitempty"`
	Reason  string           `json:"reason,omitempty"`
	Field   string           `json:"field,omitempty"`
}

func (s *Server) handleListScales(c *gin.Context) {
	species := domain.Species(c.Query("species"))
	if species != "" && !species.IsValid() {
		s.writeError(c, domain.NewValidationError("species", "must be dog or cat", species))
		return
	}
	painType := domain.PainType(c.Query("pain_type"))
	if painType != "" && !painType.IsValid() {
		s.writeError(c, domain.NewValidationError("pain_type", "must be acute or chronic", painType))
		return
	}

	scales := s.catalog.Scales(species, painType)
	out := make([]ScaleSummary, 0, len(scales))
	for _, scale := range scales {
		out = append(out, summarizeScale(scale))
	}
	c.JSON(http.StatusOK, gin.H{"scales": out})
}

func (s *Server) handleGetScale(c *gin.Context) {
	scale, err := s.catalog.Scale(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, scale)
}

func (s *Server) handleInterpretScale(c *gin.Context) {
	var req InterpretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}

	answers, err := domain.AnswerSetFromMap(req.Answers)
	if err != nil {
		s.writeError(c, err)
		return
	}

	result, missing, err := s.assessments.Interpret(c.Param("id"), answers)
	if err != nil && !errors.Is(err, domain.ErrIncomplete) {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, InterpretResponse{
		Complete: len(missing) == 0,
		Missing:  missing,
		Result:   result,
	})
}

func (s *Server) handleStartAssessment(c *gin.Context) {
	var req StartAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}

	session, err := s.assessments.Start(req.ScaleID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session.Snapshot())
}

func (s *Server) handleGetAssessment(c *gin.Context) {
	session, err := s.assessments.Get(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) handleSetAnswer(c *gin.Context) {
	var req SetAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}

	session, err := s.assessments.SetAnswer(c.Param("id"), req.QuestionID, req.Value)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) handleSubmitAssessment(c *gin.Context) {
	result, err := s.assessments.Submit(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleDiscardAssessment(c *gin.Context) {
	if err := s.assessments.Discard(c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListDrugs(c *gin.Context) {
	species := domain.Species(c.Query("species"))
	if species != "" && !species.IsValid() {
		s.writeError(c, domain.NewValidationError("species", "must be dog or cat", species))
		return
	}
	c.JSON(http.StatusOK, gin.H{"drugs": s.catalog.Drugs(species)})
}

func (s *Server) handleCalculateDose(c *gin.Context) {
	var req domain.DoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}

	result, err := s.doses.Calculate(req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListCRIDrugs(c *gin.Context) {
	species := domain.Species(c.Query("species"))
	if species != "" && !species.IsValid() {
		s.writeError(c, domain.NewValidationError("species", "must be dog or cat", species))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"drugs":    s.catalog.CRIDrugs(species),
		"defaults": s.catalog.CRIDefaults(),
	})
}

func (s *Server) handleCalculateCRI(c *gin.Context) {
	var input domain.CRIInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.writeBindError(c, err)
		return
	}

	result, err := s.cri.Calculate(service.ApplyCRIDefaults(s.catalog, input))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// bindOptionalJSON binds a request body that may be absent
func bindOptionalJSON(c *gin.Context, out interface{}) error {
	if err := c.ShouldBindJSON(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) handleStartDoseSession(c *gin.Context) {
	var update service.DoseSessionUpdate
	if err := bindOptionalJSON(c, &update); err != nil {
		s.writeBindError(c, err)
		return
	}

	id := s.calculators.StartDose().ID
	snap, err := s.calculators.UpdateDose(id, update)
	if err != nil {
		_ = s.calculators.DiscardDose(id)
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (s *Server) handleGetDoseSession(c *gin.Context) {
	snap, err := s.calculators.GetDose(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleUpdateDoseSession(c *gin.Context) {
	var update service.DoseSessionUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		s.writeBindError(c, err)
		return
	}

	snap, err := s.calculators.UpdateDose(c.Param("id"), update)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleCalculateDoseSession(c *gin.Context) {
	snap, err := s.calculators.CalculateDose(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleDiscardDoseSession(c *gin.Context) {
	if err := s.calculators.DiscardDose(c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStartCRISession(c *gin.Context) {
	var update service.CRISessionUpdate
	if err := bindOptionalJSON(c, &update); err != nil {
		s.writeBindError(c, err)
		return
	}

	id := s.calculators.StartCRI().ID
	snap, err := s.calculators.UpdateCRI(id, update)
	if err != nil {
		_ = s.calculators.DiscardCRI(id)
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (s *Server) handleGetCRISession(c *gin.Context) {
	snap, err := s.calculators.GetCRI(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleUpdateCRISession(c *gin.Context) {
	var update service.CRISessionUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		s.writeBindError(c, err)
		return
	}

	snap, err := s.calculators.UpdateCRI(c.Param("id"), update)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleCalculateCRISession(c *gin.Context) {
	snap, err := s.calculators.CalculateCRI(c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleDiscardCRISession(c *gin.Context) {
	if err := s.calculators.DiscardCRI(c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAdvisory(c *gin.Context) {
	var req domain.AdvisoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}

	result, err := s.advisory.Generate(c.Request.Context(), req)
	if err != nil {
		var valErr *domain.ValidationError
		if errors.Is(err, domain.ErrAdvisoryDisabled) || errors.As(err, &valErr) {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: domain.NewMCPError(domain.ErrExternalAPI, service.AdvisoryErrorMessage(err), "", correlationID(c)),
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// writeBindError reports a malformed request body
func (s *Server) writeBindError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		status = http.StatusRequestEntityTooLarge
	}
	c.JSON(status, ErrorResponse{
		Error: domain.NewMCPError(domain.ErrInvalidInput, "Invalid request body", err.Error(), correlationID(c)),
	})
}

// writeError maps a service error onto an HTTP status and error body
func (s *Server) writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	code := domain.ErrorCode(err)
	resp := ErrorResponse{Error: domain.NewMCPError(code, err.Error(), "", correlationID(c))}

	var status int
	switch code {
	case domain.ErrValidation, domain.ErrInvalidInput:
		status = http.StatusBadRequest
		var valErr *domain.ValidationError
		if errors.As(err, &valErr) {
			resp.Field = valErr.Field
		}
	case domain.ErrNotFound:
		status = http.StatusNotFound
	case domain.ErrIncompleteAnswers:
		status = http.StatusUnprocessableEntity
		var incomplete *service.IncompleteError
		if errors.As(err, &incomplete) {
			resp.Missing = incomplete.Missing
			resp.Error.Details = "missing answers: " + strings.Join(incomplete.Missing, ", ")
		}
	case domain.ErrCalculationRejected:
		status = http.StatusUnprocessableEntity
		var calcErr *domain.CalculationError
		if errors.As(err, &calcErr) {
			resp.Reason = calcErr.Reason
			resp.Error.Message = calcErr.Message
			resp.Error.Details = calcErr.Title
		}
	case domain.ErrServiceUnavailable:
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
		resp.Error.Message = "Internal server error"
	}

	c.JSON(status, resp)
}

func correlationID(c *gin.Context) string {
	return c.GetString(middleware.CorrelationIDKey)
}

func summarizeScale(scale *domain.Scale) ScaleSummary {
	return ScaleSummary{
		ID:            scale.ID,
		Name:          scale.Name,
		Species:       scale.Species,
		PainType:      scale.PainType,
		Recommended:   scale.Recommended,
		Description:   scale.Description,
		QuestionCount: len(scale.Questions),
	}
}
