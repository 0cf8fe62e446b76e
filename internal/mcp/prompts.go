package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vet-pain-mcp-server/internal/domain"
)

// registerMCPPrompts adds the guided workflow prompts.
func (s *LiteServer) registerMCPPrompts() {
	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        "pain_assessment",
		Description: "Step-by-step guidance for scoring a patient with a validated pain scale",
		Arguments: []*mcp.PromptArgument{
			{Name: "species", Description: "dog or cat", Required: true},
			{Name: "pain_type", Description: "acute or chronic", Required: true},
		},
	}, s.handlePainAssessmentPrompt)

	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        "analgesic_plan",
		Description: "Guidance for turning an assessment into doses and infusions",
		Arguments: []*mcp.PromptArgument{
			{Name: "species", Description: "dog or cat", Required: true},
			{Name: "weight_kg", Description: "body weight in kg", Required: true},
			{Name: "score", Description: "score text from interpret_scale, if available"},
		},
	}, s.handleAnalgesicPlanPrompt)

	s.logger.WithField("prompt_count", 2).Debug("Registered MCP prompts")
}

func promptResult(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: text},
		}},
	}
}

func promptSpecies(args map[string]string) (domain.Species, error) {
	species := domain.Species(strings.ToLower(strings.TrimSpace(args["species"])))
	if !species.IsValid() {
		return "", domain.NewValidationError("species", "must be dog or cat", args["species"])
	}
	return species, nil
}

func (s *LiteServer) handlePainAssessmentPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := req.Params.Arguments
	species, err := promptSpecies(args)
	if err != nil {
		return nil, err
	}
	painType := domain.PainType(strings.ToLower(strings.TrimSpace(args["pain_type"])))
	if !painType.IsValid() {
		return nil, domain.NewValidationError("pain_type", "must be acute or chronic", args["pain_type"])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Assess %s pain in a %s.\n\nAvailable scales:\n", painType, species)
	for _, scale := range s.catalog.Scales(species, painType) {
		marker := ""
		if scale.Recommended {
			marker = " (recommended)"
		}
		fmt.Fprintf(&b, "- %s: %s%s\n", scale.ID, scale.Name, marker)
	}
	b.WriteString(`
Workflow:
1. Pick a scale (prefer the recommended one) and call get_scale to read its questions and options.
2. Ask the clinician each question in order. Record the option score, slider value or text for every question.
3. Call interpret_scale with all answers. If it reports missing answers, ask for those before scoring again.
4. Report the score, the analysis and whether analgesic intervention is indicated.
5. Optionally call request_advisory with the result for an AI second opinion.
`)

	return promptResult("Pain assessment workflow", b.String()), nil
}

func (s *LiteServer) handleAnalgesicPlanPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := req.Params.Arguments
	species, err := promptSpecies(args)
	if err != nil {
		return nil, err
	}
	weight, err := strconv.ParseFloat(strings.TrimSpace(args["weight_kg"]), 64)
	if err != nil || weight <= 0 {
		return nil, domain.NewValidationError("weight_kg", "must be a positive number of kilograms", args["weight_kg"])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Plan analgesia for a %g kg %s.\n", weight, species)
	if score := strings.TrimSpace(args["score"]); score != "" {
		fmt.Fprintf(&b, "Latest pain score: %s\n", score)
	}

	b.WriteString("\nDrugs indicated for this species:\n")
	for _, d := range s.catalog.Drugs(species) {
		fmt.Fprintf(&b, "- %s: %s (%g-%g %s)\n", d.ID, d.Name, d.DoseRange.Min, d.DoseRange.Max, d.DoseRange.Unit)
	}
	b.WriteString("\nCRI drugs:\n")
	for _, d := range s.catalog.CRIDrugs(species) {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", d.ID, d.Name, d.DoseRangeLabel)
	}
	b.WriteString(`
Workflow:
1. Choose a drug and presentation with list_drugs, then call calculate_dose with the patient's age group and comorbidities.
2. Read every adjustment note and warning back to the clinician.
3. For continuous analgesia call calculate_cri with method bag or syringe and follow the preparation instructions.
4. Doses are decision support only. The prescribing veterinarian confirms every amount.
`)

	return promptResult("Analgesic planning workflow", b.String()), nil
}
