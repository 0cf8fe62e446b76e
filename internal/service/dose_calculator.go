package service

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vet-pain-mcp-server/internal/domain"
)

// Final amount units
const (
	UnitTablet  = "tablet"
	UnitTablets = "tablets"
	UnitMl      = "ml"
)

// DoseCalculator converts a mg/kg dose into the deliverable quantity of a presentation
type DoseCalculator struct {
	logger  *logrus.Logger
	catalog domain.DrugCatalog
}

// NewDoseCalculator creates a dose calculator backed by the drug catalog
func NewDoseCalculator(logger *logrus.Logger, catalog domain.DrugCatalog) *DoseCalculator {
	return &DoseCalculator{
		logger:  logger,
		catalog: catalog,
	}
}

// Calculate computes the total mg and the amount of the presentation to administer.
// A zero dose selects the drug's default dose. Invalid weight, drug or presentation
// yields a nil result and an error; no partial result is ever returned.
func (c *DoseCalculator) Calculate(req domain.DoseRequest) (*domain.DoseResult, error) {
	if math.IsNaN(req.WeightKg) || math.IsInf(req.WeightKg, 0) || req.WeightKg <= 0 {
		return nil, domain.NewValidationError("weight_kg", "must be a positive number of kilograms", req.WeightKg)
	}
	if req.DrugID == "" {
		return nil, domain.NewValidationError("drug_id", "is required", req.DrugID)
	}

	drug, err := c.catalog.Drug(req.DrugID)
	if err != nil {
		return nil, err
	}
	if req.Species != "" && !drug.AppliesTo(req.Species) {
		return nil, domain.NewValidationError("drug_id", fmt.Sprintf("%s is not indicated for %s", drug.Name, req.Species), req.DrugID)
	}

	presentation, err := selectPresentation(drug, req.PresentationID)
	if err != nil {
		return nil, err
	}

	dose := req.Dose
	if dose == 0 {
		dose = drug.DoseRange.Default
	}
	if math.IsNaN(dose) || math.IsInf(dose, 0) || dose < 0 {
		return nil, domain.NewValidationError("dose", "must be a positive number", req.Dose)
	}
	if req.AgeGroup != "" && !req.AgeGroup.IsValid() {
		return nil, domain.NewValidationError("age_group", "unknown age group", req.AgeGroup)
	}
	for _, cm := range req.Comorbidities {
		if !cm.IsValid() {
			return nil, domain.NewValidationError("comorbidities", "unknown comorbidity", cm)
		}
	}

	totalMg := decimal.NewFromFloat(req.WeightKg).Mul(decimal.NewFromFloat(dose))
	strength := decimal.NewFromFloat(presentation.Concentration.Value)

	var amount decimal.Decimal
	var unit string
	switch presentation.Concentration.Unit {
	case domain.UnitMgPerTablet:
		amount = totalMg.Div(strength)
		unit = UnitTablet
		if amount.GreaterThan(decimal.NewFromInt(1)) {
			unit = UnitTablets
		}
	default:
		mgPerMl, _ := presentation.Concentration.MgPerMl()
		amount = totalMg.Div(decimal.NewFromFloat(mgPerMl))
		unit = UnitMl
	}

	result := &domain.DoseResult{
		DrugID:              drug.ID,
		DrugName:            drug.Name,
		PresentationID:      presentation.ID,
		PresentationName:    presentation.Name,
		WeightKg:            req.WeightKg,
		Dose:                dose,
		DoseUnit:            drug.DoseRange.Unit,
		TotalMg:             totalMg.Round(2).InexactFloat64(),
		TotalMgDisplay:      totalMg.StringFixed(2),
		FinalAmount:         amount.Round(2).InexactFloat64(),
		FinalAmountDisplay:  amount.StringFixed(2),
		FinalUnit:           unit,
		AdjustmentNotes:     AdjustmentNotes(drug, req.AgeGroup, req.Comorbidities),
		AdministrationNotes: drug.AdministrationNotes,
	}

	if !drug.DoseRange.Contains(dose) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Selected dose %s %s is outside the recommended range %s-%s %s",
			formatNumber(dose), drug.DoseRange.Unit,
			formatNumber(drug.DoseRange.Min), formatNumber(drug.DoseRange.Max), drug.DoseRange.Unit))
	}

	c.logger.WithFields(logrus.Fields{
		"drug_id":         drug.ID,
		"presentation_id": presentation.ID,
		"weight_kg":       req.WeightKg,
		"dose":            dose,
		"total_mg":        result.TotalMgDisplay,
		"final_amount":    result.FinalAmountDisplay,
		"final_unit":      unit,
	}).Info("Dose calculated")

	return result, nil
}

func selectPresentation(drug *domain.Drug, id string) (*domain.Presentation, error) {
	if id == "" {
		return nil, domain.NewValidationError("presentation_id", "is required", id)
	}
	p, ok := drug.Presentation(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s for %s", domain.ErrPresentationNotFound, id, drug.ID)
	}
	return p, nil
}

// AdjustmentNotes collects the drug's advisory notes for the patient's age group and
// comorbidities. Adults never get an age note; comorbidities are reported in a fixed
// order and only when the drug carries a note for them.
func AdjustmentNotes(drug *domain.Drug, age domain.AgeGroup, comorbidities []domain.Comorbidity) []domain.AdjustmentNote {
	notes := []domain.AdjustmentNote{}
	if drug.AdjustmentFactors == nil {
		return notes
	}
	factors := *drug.AdjustmentFactors

	if age != "" && age != domain.AgeAdult {
		if text := factors.ForAgeGroup(age); text != "" {
			notes = append(notes, domain.AdjustmentNote{Title: age.NoteTitle(), Text: text})
		}
	}

	active := make(map[domain.Comorbidity]bool, len(comorbidities))
	for _, c := range comorbidities {
		active[c] = true
	}
	for _, c := range domain.ComorbidityOrder {
		if !active[c] {
			continue
		}
		if text := factors.ForComorbidity(c); text != "" {
			notes = append(notes, domain.AdjustmentNote{Title: c.NoteTitle(), Text: text})
		}
	}

	return notes
}
