package service

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/vet-pain-mcp-server/internal/domain"
)

// DoseSessionUpdate changes the selections of a dose session. Nil fields are left
// as they are. Fields apply in declaration order, so a species change runs before
// the drug selection it would otherwise clear.
type DoseSessionUpdate struct {
	Species        *domain.Species             `json:"species,omitempty"`
	DrugID         *string                     `json:"drug_id,omitempty"`
	PresentationID *string                     `json:"presentation_id,omitempty"`
	Dose           *float64                    `json:"dose,omitempty"`
	WeightKg       *float64                    `json:"weight_kg,omitempty"`
	AgeGroup       *domain.AgeGroup            `json:"age_group,omitempty"`
	Comorbidities  map[domain.Comorbidity]bool `json:"comorbidities,omitempty"`
}

// CRISessionUpdate changes the inputs of a CRI session. Nil fields are left as
// they are. A desired concentration applies after the method and drug, so it
// overrides the reseeded default.
type CRISessionUpdate struct {
	Species                  *domain.Species        `json:"species,omitempty"`
	Method                   *domain.DeliveryMethod `json:"method,omitempty"`
	DrugID                   *string                `json:"drug_id,omitempty"`
	WeightKg                 *float64               `json:"weight_kg,omitempty"`
	FluidRateMlH             *float64               `json:"fluid_rate_ml_h,omitempty"`
	BagVolumeMl              *float64               `json:"bag_volume_ml,omitempty"`
	SyringeVolumeMl          *float64               `json:"syringe_volume_ml,omitempty"`
	DesiredConcentrationMgMl *float64               `json:"desired_concentration_mg_ml,omitempty"`
}

// DoseSessionSnapshot is a point-in-time copy of a dose session
type DoseSessionSnapshot struct {
	ID      string             `json:"id"`
	Request domain.DoseRequest `json:"request"`
	Result  *domain.DoseResult `json:"result,omitempty"`
}

// CRISessionSnapshot is a point-in-time copy of a CRI session
type CRISessionSnapshot struct {
	ID     string            `json:"id"`
	Input  domain.CRIInput   `json:"input"`
	Result *domain.CRIResult `json:"result,omitempty"`
}

type doseEntry struct {
	mu      sync.Mutex
	session *DoseSession
}

type criEntry struct {
	mu      sync.Mutex
	session *CRISession
}

// CalculatorSessions keeps interactive dose and CRI sessions in process memory.
// Each kind is bounded separately and evicts its least recently used session.
type CalculatorSessions struct {
	logger  *logrus.Logger
	catalog domain.DrugCatalog
	doses   *DoseCalculator
	cri     *CRICalculator

	doseSessions *lru.Cache[string, *doseEntry]
	criSessions  *lru.Cache[string, *criEntry]
}

// NewCalculatorSessions creates a store holding at most maxSessions sessions of each kind
func NewCalculatorSessions(logger *logrus.Logger, catalog domain.DrugCatalog, doses *DoseCalculator, cri *CRICalculator, maxSessions int) (*CalculatorSessions, error) {
	if maxSessions <= 0 {
		return nil, errors.New("max sessions must be positive")
	}

	c := &CalculatorSessions{
		logger:  logger,
		catalog: catalog,
		doses:   doses,
		cri:     cri,
	}

	var err error
	c.doseSessions, err = lru.NewWithEvict[string, *doseEntry](maxSessions, func(id string, _ *doseEntry) {
		logger.WithField("session_id", id).Debug("Dose session evicted")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dose session cache: %w", err)
	}
	c.criSessions, err = lru.NewWithEvict[string, *criEntry](maxSessions, func(id string, _ *criEntry) {
		logger.WithField("session_id", id).Debug("CRI session evicted")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create CRI session cache: %w", err)
	}

	return c, nil
}

// StartDose creates an empty dose session
func (c *CalculatorSessions) StartDose() DoseSessionSnapshot {
	id := uuid.New().String()
	entry := &doseEntry{session: NewDoseSession(c.doses, c.catalog)}
	c.doseSessions.Add(id, entry)

	c.logger.WithField("session_id", id).Info("Dose session started")
	return doseSnapshot(id, entry.session)
}

// GetDose returns the current state of a dose session
func (c *CalculatorSessions) GetDose(id string) (DoseSessionSnapshot, error) {
	entry, err := c.doseEntry(id)
	if err != nil {
		return DoseSessionSnapshot{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return doseSnapshot(id, entry.session), nil
}

// UpdateDose applies an update to a dose session. A rejected update leaves the
// session unchanged.
func (c *CalculatorSessions) UpdateDose(id string, update DoseSessionUpdate) (DoseSessionSnapshot, error) {
	entry, err := c.doseEntry(id)
	if err != nil {
		return DoseSessionSnapshot{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	next := entry.session.clone()
	if err := applyDoseUpdate(next, update); err != nil {
		return DoseSessionSnapshot{}, err
	}
	entry.session = next
	return doseSnapshot(id, next), nil
}

// CalculateDose runs the calculation on a dose session's selections
func (c *CalculatorSessions) CalculateDose(id string) (DoseSessionSnapshot, error) {
	entry, err := c.doseEntry(id)
	if err != nil {
		return DoseSessionSnapshot{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if _, err := entry.session.Calculate(); err != nil {
		return DoseSessionSnapshot{}, err
	}
	return doseSnapshot(id, entry.session), nil
}

// DiscardDose removes a dose session
func (c *CalculatorSessions) DiscardDose(id string) error {
	if !c.doseSessions.Remove(id) {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return nil
}

// StartCRI creates a CRI session seeded with the catalog defaults
func (c *CalculatorSessions) StartCRI() CRISessionSnapshot {
	id := uuid.New().String()
	entry := &criEntry{session: NewCRISession(c.cri, c.catalog)}
	c.criSessions.Add(id, entry)

	c.logger.WithField("session_id", id).Info("CRI session started")
	return criSnapshot(id, entry.session)
}

// GetCRI returns the current state of a CRI session
func (c *CalculatorSessions) GetCRI(id string) (CRISessionSnapshot, error) {
	entry, err := c.criEntry(id)
	if err != nil {
		return CRISessionSnapshot{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return criSnapshot(id, entry.session), nil
}

// UpdateCRI applies an update to a CRI session. A rejected update leaves the
// session unchanged.
func (c *CalculatorSessions) UpdateCRI(id string, update CRISessionUpdate) (CRISessionSnapshot, error) {
	entry, err := c.criEntry(id)
	if err != nil {
		return CRISessionSnapshot{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	next := entry.session.clone()
	if err := applyCRIUpdate(next, update); err != nil {
		return CRISessionSnapshot{}, err
	}
	entry.session = next
	return criSnapshot(id, next), nil
}

// CalculateCRI runs the calculation on a CRI session's inputs
func (c *CalculatorSessions) CalculateCRI(id string) (CRISessionSnapshot, error) {
	entry, err := c.criEntry(id)
	if err != nil {
		return CRISessionSnapshot{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if _, err := entry.session.Calculate(); err != nil {
		return CRISessionSnapshot{}, err
	}
	return criSnapshot(id, entry.session), nil
}

// DiscardCRI removes a CRI session
func (c *CalculatorSessions) DiscardCRI(id string) error {
	if !c.criSessions.Remove(id) {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return nil
}

// Len returns the number of live dose and CRI sessions
func (c *CalculatorSessions) Len() int {
	return c.doseSessions.Len() + c.criSessions.Len()
}

func (c *CalculatorSessions) doseEntry(id string) (*doseEntry, error) {
	entry, ok := c.doseSessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return entry, nil
}

func (c *CalculatorSessions) criEntry(id string) (*criEntry, error) {
	entry, ok := c.criSessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return entry, nil
}

func applyDoseUpdate(s *DoseSession, u DoseSessionUpdate) error {
	if u.Species != nil {
		if err := s.SetSpecies(*u.Species); err != nil {
			return err
		}
	}
	if u.DrugID != nil {
		if err := s.SelectDrug(*u.DrugID); err != nil {
			return err
		}
	}
	if u.PresentationID != nil {
		if err := s.SelectPresentation(*u.PresentationID); err != nil {
			return err
		}
	}
	if u.Dose != nil {
		s.SetDose(*u.Dose)
	}
	if u.WeightKg != nil {
		s.SetWeight(*u.WeightKg)
	}
	if u.AgeGroup != nil {
		if err := s.SetAgeGroup(*u.AgeGroup); err != nil {
			return err
		}
	}

	// sorted so repeated updates build the same list
	comorbidities := make([]domain.Comorbidity, 0, len(u.Comorbidities))
	for c := range u.Comorbidities {
		comorbidities = append(comorbidities, c)
	}
	sort.Slice(comorbidities, func(i, j int) bool { return comorbidities[i] < comorbidities[j] })
	for _, c := range comorbidities {
		if err := s.ToggleComorbidity(c, u.Comorbidities[c]); err != nil {
			return err
		}
	}
	return nil
}

func applyCRIUpdate(s *CRISession, u CRISessionUpdate) error {
	if u.Species != nil {
		if err := s.SetSpecies(*u.Species); err != nil {
			return err
		}
	}
	if u.Method != nil {
		if err := s.SetMethod(*u.Method); err != nil {
			return err
		}
	}
	if u.DrugID != nil {
		if err := s.SelectDrug(*u.DrugID); err != nil {
			return err
		}
	}
	if u.WeightKg != nil {
		s.SetWeight(*u.WeightKg)
	}
	if u.FluidRateMlH != nil {
		s.SetFluidRate(*u.FluidRateMlH)
	}
	if u.BagVolumeMl != nil {
		if err := s.SetBagVolume(*u.BagVolumeMl); err != nil {
			return err
		}
	}
	if u.SyringeVolumeMl != nil {
		if err := s.SetSyringeVolume(*u.SyringeVolumeMl); err != nil {
			return err
		}
	}
	if u.DesiredConcentrationMgMl != nil {
		s.SetDesiredConcentration(*u.DesiredConcentrationMgMl)
	}
	return nil
}

func doseSnapshot(id string, s *DoseSession) DoseSessionSnapshot {
	return DoseSessionSnapshot{ID: id, Request: s.Request(), Result: s.Result()}
}

func criSnapshot(id string, s *CRISession) CRISessionSnapshot {
	return CRISessionSnapshot{ID: id, Input: s.Input(), Result: s.Result()}
}
