package service

import (
	"fmt"

	"github.com/vet-pain-mcp-server/internal/domain"
)

// CRISession tracks the inputs of an interactive CRI calculation.
// Switching method or drug discards the last result; in syringe mode it also
// reseeds the desired concentration with the drug's default.
type CRISession struct {
	calculator *CRICalculator
	catalog    domain.DrugCatalog
	defaults   domain.CRIDefaults

	input   domain.CRIInput
	result  *domain.CRIResult
	lastErr error
}

// NewCRISession starts a session from the catalog's CRI defaults
func NewCRISession(calculator *CRICalculator, catalog domain.DrugCatalog) *CRISession {
	defaults := catalog.CRIDefaults()
	s := &CRISession{
		calculator: calculator,
		catalog:    catalog,
		defaults:   defaults,
		input: domain.CRIInput{
			Method:          defaults.Method,
			DrugID:          defaults.DrugID,
			BagVolumeMl:     defaults.BagVolumeMl,
			SyringeVolumeMl: defaults.SyringeVolumeMl,
		},
	}
	if drug, err := catalog.CRIDrug(defaults.DrugID); err == nil {
		s.input.DesiredConcentrationMgMl = drug.DefaultTargetConcentrationMgMl
	}
	return s
}

// Input returns the current inputs
func (s *CRISession) Input() domain.CRIInput {
	return s.input
}

// Result returns the last successful result, if any
func (s *CRISession) Result() *domain.CRIResult {
	return s.result
}

// Err returns the reason the last calculation was rejected, if any
func (s *CRISession) Err() error {
	return s.lastErr
}

func (s *CRISession) clone() *CRISession {
	c := *s
	return &c
}

func (s *CRISession) invalidate() {
	s.result = nil
	s.lastErr = nil
}

func (s *CRISession) reseedConcentration() {
	if s.input.Method != domain.DeliverySyringe {
		return
	}
	if drug, err := s.catalog.CRIDrug(s.input.DrugID); err == nil {
		s.input.DesiredConcentrationMgMl = drug.DefaultTargetConcentrationMgMl
	}
}

// SetMethod switches between bag and syringe preparation
func (s *CRISession) SetMethod(method domain.DeliveryMethod) error {
	if !method.IsValid() {
		return domain.NewValidationError("method", "must be bag or syringe", method)
	}
	s.input.Method = method
	s.invalidate()
	s.reseedConcentration()
	return nil
}

// SelectDrug picks a CRI drug offered for the current species
func (s *CRISession) SelectDrug(drugID string) error {
	drug, err := s.catalog.CRIDrug(drugID)
	if err != nil {
		return err
	}
	if s.input.Species != "" && !drug.AppliesTo(s.input.Species) {
		return domain.NewValidationError("drug_id", fmt.Sprintf("%s CRI is not offered for %s", drug.Name, s.input.Species), drugID)
	}
	s.input.DrugID = drug.ID
	s.invalidate()
	s.reseedConcentration()
	return nil
}

// SetSpecies changes the species. A selected drug that is not offered for the new
// species is replaced by the default drug.
func (s *CRISession) SetSpecies(species domain.Species) error {
	if !species.IsValid() {
		return domain.NewValidationError("species", "must be dog or cat", species)
	}
	s.input.Species = species

	drug, err := s.catalog.CRIDrug(s.input.DrugID)
	if err == nil && drug.AppliesTo(species) {
		return nil
	}

	fallback := s.defaults.DrugID
	if d, err := s.catalog.CRIDrug(fallback); err != nil || !d.AppliesTo(species) {
		offered := s.catalog.CRIDrugs(species)
		if len(offered) == 0 {
			return fmt.Errorf("%w: none offered for %s", domain.ErrCRIDrugNotFound, species)
		}
		fallback = offered[0].ID
	}
	s.input.DrugID = fallback
	s.invalidate()
	s.reseedConcentration()
	return nil
}

// SetWeight sets the patient weight in kg
func (s *CRISession) SetWeight(kg float64) {
	s.input.WeightKg = kg
	s.invalidate()
}

// SetFluidRate sets the bag fluid rate in ml/h
func (s *CRISession) SetFluidRate(mlPerHour float64) {
	s.input.FluidRateMlH = mlPerHour
	s.invalidate()
}

// SetBagVolume picks one of the offered bag volumes
func (s *CRISession) SetBagVolume(ml float64) error {
	if !containsVolume(s.defaults.BagVolumesMl, ml) {
		return domain.NewValidationError("bag_volume_ml", fmt.Sprintf("must be one of %s", formatVolumes(s.defaults.BagVolumesMl)), ml)
	}
	s.input.BagVolumeMl = ml
	s.invalidate()
	return nil
}

// SetSyringeVolume picks one of the offered syringe volumes
func (s *CRISession) SetSyringeVolume(ml float64) error {
	if !containsVolume(s.defaults.SyringeVolumesMl, ml) {
		return domain.NewValidationError("syringe_volume_ml", fmt.Sprintf("must be one of %s", formatVolumes(s.defaults.SyringeVolumesMl)), ml)
	}
	s.input.SyringeVolumeMl = ml
	s.invalidate()
	return nil
}

// SetDesiredConcentration overrides the syringe concentration in mg/ml
func (s *CRISession) SetDesiredConcentration(mgPerMl float64) {
	s.input.DesiredConcentrationMgMl = mgPerMl
	s.invalidate()
}

// Calculate runs the calculation on the current inputs and keeps the outcome
func (s *CRISession) Calculate() (*domain.CRIResult, error) {
	result, err := s.calculator.Calculate(s.input)
	s.result = result
	s.lastErr = err
	return result, err
}

func containsVolume(volumes []float64, ml float64) bool {
	for _, v := range volumes {
		if v == ml {
			return true
		}
	}
	return false
}

func formatVolumes(volumes []float64) string {
	out := ""
	for i, v := range volumes {
		if i > 0 {
			out += ", "
		}
		out += formatNumber(v)
	}
	return out + " ml"
}

// ApplyCRIDefaults fills the unset fields of a one-shot CRI request from the
// catalog defaults and the selected drug's default target concentration.
func ApplyCRIDefaults(catalog domain.DrugCatalog, input domain.CRIInput) domain.CRIInput {
	defaults := catalog.CRIDefaults()
	if input.Method == "" {
		input.Method = defaults.Method
	}
	if input.DrugID == "" {
		input.DrugID = defaults.DrugID
	}
	if input.BagVolumeMl == 0 {
		input.BagVolumeMl = defaults.BagVolumeMl
	}
	if input.SyringeVolumeMl == 0 {
		input.SyringeVolumeMl = defaults.SyringeVolumeMl
	}
	if input.Method == domain.DeliverySyringe && input.DesiredConcentrationMgMl == 0 {
		if drug, err := catalog.CRIDrug(input.DrugID); err == nil {
			input.DesiredConcentrationMgMl = drug.DefaultTargetConcentrationMgMl
		}
	}
	return input
}
