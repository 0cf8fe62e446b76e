package service

import (
	"fmt"

	"github.com/vet-pain-mcp-server/internal/domain"
)

// DoseSession tracks the selections of an interactive dose calculation.
// Changing species clears the drug and presentation; selecting a drug seeds the
// default dose and the first presentation.
type DoseSession struct {
	calculator *DoseCalculator
	catalog    domain.DrugCatalog
	request    domain.DoseRequest
	result     *domain.DoseResult
}

// NewDoseSession starts an empty dose session
func NewDoseSession(calculator *DoseCalculator, catalog domain.DrugCatalog) *DoseSession {
	return &DoseSession{
		calculator: calculator,
		catalog:    catalog,
		request:    domain.DoseRequest{AgeGroup: domain.AgeAdult},
	}
}

// Request returns the current selections
func (s *DoseSession) Request() domain.DoseRequest {
	req := s.request
	req.Comorbidities = append([]domain.Comorbidity(nil), s.request.Comorbidities...)
	return req
}

// Result returns the last calculation result, if any
func (s *DoseSession) Result() *domain.DoseResult {
	return s.result
}

func (s *DoseSession) clone() *DoseSession {
	c := *s
	c.request.Comorbidities = append([]domain.Comorbidity(nil), s.request.Comorbidities...)
	return &c
}

// SetSpecies changes the species and clears the drug and presentation when it differs
func (s *DoseSession) SetSpecies(species domain.Species) error {
	if !species.IsValid() {
		return domain.NewValidationError("species", "must be dog or cat", species)
	}
	if species != s.request.Species {
		s.request.DrugID = ""
		s.request.PresentationID = ""
		s.request.Dose = 0
		s.result = nil
	}
	s.request.Species = species
	return nil
}

// SetWeight sets the patient weight in kg
func (s *DoseSession) SetWeight(kg float64) {
	s.request.WeightKg = kg
	s.result = nil
}

// SelectDrug picks a drug for the current species and seeds its default dose and first presentation
func (s *DoseSession) SelectDrug(drugID string) error {
	drug, err := s.catalog.Drug(drugID)
	if err != nil {
		return err
	}
	if s.request.Species != "" && !drug.AppliesTo(s.request.Species) {
		return domain.NewValidationError("drug_id", fmt.Sprintf("%s is not indicated for %s", drug.Name, s.request.Species), drugID)
	}

	s.request.DrugID = drug.ID
	s.request.Dose = drug.DoseRange.Default
	s.request.PresentationID = ""
	if len(drug.Presentations) > 0 {
		s.request.PresentationID = drug.Presentations[0].ID
	}
	s.result = nil
	return nil
}

// SelectPresentation picks one of the selected drug's presentations
func (s *DoseSession) SelectPresentation(presentationID string) error {
	if s.request.DrugID == "" {
		return domain.NewValidationError("drug_id", "select a drug first", "")
	}
	drug, err := s.catalog.Drug(s.request.DrugID)
	if err != nil {
		return err
	}
	if _, ok := drug.Presentation(presentationID); !ok {
		return fmt.Errorf("%w: %s for %s", domain.ErrPresentationNotFound, presentationID, drug.ID)
	}
	s.request.PresentationID = presentationID
	s.result = nil
	return nil
}

// SetDose overrides the selected dose
func (s *DoseSession) SetDose(dose float64) {
	s.request.Dose = dose
	s.result = nil
}

// SetAgeGroup sets the patient's age group
func (s *DoseSession) SetAgeGroup(age domain.AgeGroup) error {
	if !age.IsValid() {
		return domain.NewValidationError("age_group", "unknown age group", age)
	}
	s.request.AgeGroup = age
	s.result = nil
	return nil
}

// ToggleComorbidity switches a comorbidity flag on or off
func (s *DoseSession) ToggleComorbidity(c domain.Comorbidity, active bool) error {
	if !c.IsValid() {
		return domain.NewValidationError("comorbidities", "unknown comorbidity", c)
	}
	var kept []domain.Comorbidity
	for _, existing := range s.request.Comorbidities {
		if existing != c {
			kept = append(kept, existing)
		}
	}
	if active {
		kept = append(kept, c)
	}
	s.request.Comorbidities = kept
	s.result = nil
	return nil
}

// Calculate runs the dose calculation on the current selections and keeps the result
func (s *DoseSession) Calculate() (*domain.DoseResult, error) {
	result, err := s.calculator.Calculate(s.Request())
	s.result = result
	return result, err
}
