package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vet-pain-mcp-server/internal/domain"
	"github.com/vet-pain-mcp-server/internal/service"
)

// ListScalesParams defines parameters for list_scales tool
type ListScalesParams struct {
	Species  string `json:"species,omitempty" jsonschema:"dog or cat"`
	PainType string `json:"pain_type,omitempty" jsonschema:"acute or chronic"`
}

// scaleSummary is the catalog listing entry for a scale
type scaleSummary struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Species     domain.Species  `json:"species"`
	PainType    domain.PainType `json:"pain_type"`
	Recommended bool            `json:"recommended"`
	Description string          `json:"description"`
}

func summarizeScale(scale *domain.Scale) scaleSummary {
	return scaleSummary{
		ID:          scale.ID,
		Name:        scale.Name,
		Species:     scale.Species,
		PainType:    scale.PainType,
		Recommended: scale.Recommended,
		Description: scale.Description,
	}
}

// GetScaleParams defines parameters for get_scale tool
type GetScaleParams struct {
	ScaleID string `json:"scale_id" jsonschema:"scale identifier such as cmps-sf or fgs"`
}

// InterpretScaleParams defines parameters for interpret_scale tool
type InterpretScaleParams struct {
	ScaleID string                 `json:"scale_id" jsonschema:"scale identifier"`
	Answers map[string]interface{} `json:"answers" jsonschema:"question id to answer value"`
}

// InterpretScaleResult defines the result structure for interpret_scale tool
type InterpretScaleResult struct {
	ScaleID  string                       `json:"scale_id"`
	Complete bool                         `json:"complete"`
	Missing  []string                     `json:"missing,omitempty"`
	Result   *domain.InterpretationResult `json:"result,omitempty"`
}

// ListDrugsParams defines parameters for list_drugs and list_cri_drugs tools
type ListDrugsParams struct {
	Species string `json:"species,omitempty" jsonschema:"dog or cat"`
}

// CalculateDoseParams defines parameters for calculate_dose tool
type CalculateDoseParams struct {
	Species        string   `json:"species,omitempty" jsonschema:"dog or cat"`
	WeightKg       float64  `json:"weight_kg" jsonschema:"patient weight in kilograms"`
	DrugID         string   `json:"drug_id" jsonschema:"drug identifier from list_drugs"`
	PresentationID string   `json:"presentation_id" jsonschema:"presentation identifier of the drug"`
	Dose           float64  `json:"dose,omitempty" jsonschema:"dose in mg/kg; the drug default when omitted"`
	AgeGroup       string   `json:"age_group,omitempty" jsonschema:"adult, senior, puppy_kitten or pregnant_lactating"`
	Comorbidities  []string `json:"comorbidities,omitempty" jsonschema:"any of liver, kidney, heart, gastro"`
}

// CalculateCRIParams defines parameters for calculate_cri tool
type CalculateCRIParams struct {
	Method                   string  `json:"method,omitempty" jsonschema:"bag or syringe"`
	DrugID                   string  `json:"drug_id,omitempty" jsonschema:"fentanyl, lidocaine or ketamine"`
	Species                  string  `json:"species,omitempty" jsonschema:"dog or cat"`
	WeightKg                 float64 `json:"weight_kg" jsonschema:"patient weight in kilograms"`
	FluidRateMlH             float64 `json:"fluid_rate_ml_h,omitempty" jsonschema:"maintenance fluid rate in ml/h for bag mode"`
	BagVolumeMl              float64 `json:"bag_volume_ml,omitempty" jsonschema:"fluid bag volume in ml"`
	SyringeVolumeMl          float64 `json:"syringe_volume_ml,omitempty" jsonschema:"syringe volume in ml"`
	DesiredConcentrationMgMl float64 `json:"desired_concentration_mg_ml,omitempty" jsonschema:"target concentration in the syringe in mg/ml"`
}

// RequestAdvisoryParams defines parameters for request_advisory tool
type RequestAdvisoryParams struct {
	Species   string `json:"species" jsonschema:"dog or cat"`
	PainType  string `json:"pain_type" jsonschema:"acute or chronic"`
	ScaleName string `json:"scale_name" jsonschema:"name of the scale used"`
	Score     string `json:"score" jsonschema:"score as reported by interpret_scale"`
	Analysis  string `json:"analysis,omitempty" jsonschema:"standard interpretation text"`
}

func (s *LiteServer) handleListScales(ctx context.Context, req *mcp.CallToolRequest, params ListScalesParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "list_scales").Info("Tool invoked")

	species := domain.Species(params.Species)
	if species != "" && !species.IsValid() {
		return s.createErrorResult("Invalid species", domain.NewValidationError("species", "must be dog or cat", params.Species)), nil, nil
	}
	painType := domain.PainType(params.PainType)
	if painType != "" && !painType.IsValid() {
		return s.createErrorResult("Invalid pain type", domain.NewValidationError("pain_type", "must be acute or chronic", params.PainType)), nil, nil
	}

	scales := s.catalog.Scales(species, painType)
	var b strings.Builder
	for _, scale := range scales {
		marker := ""
		if scale.Recommended {
			marker = " (recommended)"
		}
		fmt.Fprintf(&b, "- %s: %s [%s, %s]%s\n", scale.ID, scale.Name, scale.Species, scale.PainType, marker)
	}

	summaries := make([]scaleSummary, 0, len(scales))
	for _, scale := range scales {
		summaries = append(summaries, summarizeScale(scale))
	}
	return s.jsonResult(fmt.Sprintf("%d scales:\n%s", len(scales), b.String()), summaries)
}

func (s *LiteServer) handleGetScale(ctx context.Context, req *mcp.CallToolRequest, params GetScaleParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "get_scale").Info("Tool invoked")

	if params.ScaleID == "" {
		return s.createErrorResult("Missing required parameter", errors.New("scale_id is required")), nil, nil
	}
	scale, err := s.catalog.Scale(params.ScaleID)
	if err != nil {
		return s.createErrorResult("Scale lookup failed", err), nil, nil
	}
	return s.jsonResult(fmt.Sprintf("%s (%d questions, %s policy)", scale.Name, len(scale.Questions), scale.Rule.Policy), scale)
}

func (s *LiteServer) handleInterpretScale(ctx context.Context, req *mcp.CallToolRequest, params InterpretScaleParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "interpret_scale").Info("Tool invoked")

	if params.ScaleID == "" {
		return s.createErrorResult("Missing required parameter", errors.New("scale_id is required")), nil, nil
	}
	answers, err := domain.AnswerSetFromMap(params.Answers)
	if err != nil {
		return s.createErrorResult("Invalid answers", err), nil, nil
	}

	result, missing, err := s.assessments.Interpret(params.ScaleID, answers)
	if err != nil && !errors.Is(err, domain.ErrIncomplete) {
		return s.createErrorResult("Interpretation failed", err), nil, nil
	}

	out := InterpretScaleResult{
		ScaleID:  params.ScaleID,
		Complete: len(missing) == 0,
		Missing:  missing,
		Result:   result,
	}
	if !out.Complete {
		return s.jsonResult("Assessment incomplete. Missing answers: "+strings.Join(missing, ", "), out)
	}

	summary := fmt.Sprintf("Score: %s\nNeeds intervention: %t\n%s", result.Score, result.NeedsIntervention, result.Analysis)
	return s.jsonResult(summary, out)
}

func (s *LiteServer) handleListDrugs(ctx context.Context, req *mcp.CallToolRequest, params ListDrugsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "list_drugs").Info("Tool invoked")

	species := domain.Species(params.Species)
	if species != "" && !species.IsValid() {
		return s.createErrorResult("Invalid species", domain.NewValidationError("species", "must be dog or cat", params.Species)), nil, nil
	}

	drugs := s.catalog.Drugs(species)
	return s.jsonResult(fmt.Sprintf("%d drugs", len(drugs)), drugs)
}

func (s *LiteServer) handleCalculateDose(ctx context.Context, req *mcp.CallToolRequest, params CalculateDoseParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "calculate_dose").Info("Tool invoked")

	doseReq := domain.DoseRequest{
		Species:        domain.Species(params.Species),
		WeightKg:       params.WeightKg,
		DrugID:         params.DrugID,
		PresentationID: params.PresentationID,
		Dose:           params.Dose,
		AgeGroup:       domain.AgeGroup(params.AgeGroup),
	}
	for _, c := range params.Comorbidities {
		doseReq.Comorbidities = append(doseReq.Comorbidities, domain.Comorbidity(c))
	}

	result, err := s.doses.Calculate(doseReq)
	if err != nil {
		return s.createErrorResult("Dose calculation failed", err), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s\nTotal dose: %s mg\nAdminister: %s %s\n",
		result.DrugName, result.PresentationName, result.TotalMgDisplay, result.FinalAmountDisplay, result.FinalUnit)
	for _, w := range result.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}
	for _, note := range result.AdjustmentNotes {
		fmt.Fprintf(&b, "%s: %s\n", note.Title, note.Text)
	}
	return s.jsonResult(b.String(), result)
}

func (s *LiteServer) handleListCRIDrugs(ctx context.Context, req *mcp.CallToolRequest, params ListDrugsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "list_cri_drugs").Info("Tool invoked")

	species := domain.Species(params.Species)
	if species != "" && !species.IsValid() {
		return s.createErrorResult("Invalid species", domain.NewValidationError("species", "must be dog or cat", params.Species)), nil, nil
	}

	drugs := s.catalog.CRIDrugs(species)
	return s.jsonResult(fmt.Sprintf("%d CRI drugs", len(drugs)), map[string]interface{}{
		"drugs":    drugs,
		"defaults": s.catalog.CRIDefaults(),
	})
}

func (s *LiteServer) handleCalculateCRI(ctx context.Context, req *mcp.CallToolRequest, params CalculateCRIParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "calculate_cri").Info("Tool invoked")

	input := service.ApplyCRIDefaults(s.catalog, domain.CRIInput{
		Method:                   domain.DeliveryMethod(params.Method),
		DrugID:                   params.DrugID,
		Species:                  domain.Species(params.Species),
		WeightKg:                 params.WeightKg,
		FluidRateMlH:             params.FluidRateMlH,
		BagVolumeMl:              params.BagVolumeMl,
		SyringeVolumeMl:          params.SyringeVolumeMl,
		DesiredConcentrationMgMl: params.DesiredConcentrationMgMl,
	})

	result, err := s.cri.Calculate(input)
	if err != nil {
		var calcErr *domain.CalculationError
		if errors.As(err, &calcErr) {
			return s.createErrorResult("CRI preparation rejected", calcErr), nil, nil
		}
		return s.createErrorResult("CRI calculation failed", err), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s CRI (%s), %.2f mg/h\n", result.DrugName, result.Method, result.DoseMgPerHour)
	for _, line := range result.Instructions {
		fmt.Fprintf(&b, "%s\n", line)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}
	for _, n := range result.Notes {
		fmt.Fprintf(&b, "Note: %s\n", n)
	}
	return s.jsonResult(b.String(), result)
}

func (s *LiteServer) handleRequestAdvisory(ctx context.Context, req *mcp.CallToolRequest, params RequestAdvisoryParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "request_advisory").Info("Tool invoked")

	result, err := s.advisory.Generate(ctx, domain.AdvisoryRequest{
		Species:   domain.Species(params.Species),
		PainType:  domain.PainType(params.PainType),
		ScaleName: params.ScaleName,
		Score:     params.Score,
		Analysis:  params.Analysis,
	})
	if err != nil {
		var valErr *domain.ValidationError
		switch {
		case errors.Is(err, domain.ErrAdvisoryDisabled):
			return s.createErrorResult("AI advisory is not configured", errors.New("set GEMINI_API_KEY to enable it")), nil, nil
		case errors.As(err, &valErr):
			return s.createErrorResult("Invalid advisory request", err), nil, nil
		default:
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: service.AdvisoryErrorMessage(err)}},
				IsError: true,
			}, nil, nil
		}
	}

	var text string
	if result.IsStructured() {
		text = fmt.Sprintf("Clinical Analysis:\n%s\n\nAction Suggestions:\n%s", result.ClinicalAnalysis, result.ActionSuggestions)
		if result.ImportantReminders != "" {
			text += "\n\nImportant Reminders:\n" + result.ImportantReminders
		}
	} else {
		text = result.FreeText
	}
	return s.jsonResult(text, result)
}

// jsonResult returns a human readable summary followed by the JSON payload
func (s *LiteServer) jsonResult(summary string, payload interface{}) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return s.createErrorResult("Failed to encode result", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: strings.TrimSpace(summary)},
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

// createErrorResult creates a standardized error result for tool calls
func (s *LiteServer) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	s.logger.WithError(err).WithField("code", domain.ErrorCode(err)).Warn(message)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
