package domain

// ConcentrationUnit is the strength unit of a drug presentation
type ConcentrationUnit string

const (
	UnitMgPerMl     ConcentrationUnit = "mg/ml"
	UnitMgPerTablet ConcentrationUnit = "mg/tablet"
	UnitPercent     ConcentrationUnit = "%"
)

// IsValid reports whether the unit is known
func (u ConcentrationUnit) IsValid() bool {
	return u == UnitMgPerMl || u == UnitMgPerTablet || u == UnitPercent
}

// Concentration is the strength of a presentation
type Concentration struct {
	Value float64           `json:"value" yaml:"value"`
	Unit  ConcentrationUnit `json:"unit" yaml:"unit"`
}

// MgPerMl returns the concentration expressed in mg/ml. A 1% solution holds 10 mg/ml.
func (c Concentration) MgPerMl() (float64, bool) {
	switch c.Unit {
	case UnitMgPerMl:
		return c.Value, true
	case UnitPercent:
		return c.Value * 10, true
	default:
		return 0, false
	}
}

// Presentation is a commercially available form of a drug
type Presentation struct {
	ID            string        `json:"id" yaml:"id"`
	Name          string        `json:"name" yaml:"name"`
	Concentration Concentration `json:"concentration" yaml:"concentration"`
}

// DoseRange is the configured dose interval of a drug
type DoseRange struct {
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Default float64 `json:"default" yaml:"default"`
	Unit    string  `json:"unit" yaml:"unit"`
}

// Contains reports whether dose lies within [Min, Max]
func (r DoseRange) Contains(dose float64) bool {
	return dose >= r.Min && dose <= r.Max
}

// AgeGroup is the life stage of the patient
type AgeGroup string

const (
	AgeAdult             AgeGroup = "adult"
	AgeSenior            AgeGroup = "senior"
	AgePuppyKitten       AgeGroup = "puppy_kitten"
	AgePregnantLactating AgeGroup = "pregnant_lactating"
)

// IsValid reports whether the age group is known
func (a AgeGroup) IsValid() bool {
	switch a {
	case AgeAdult, AgeSenior, AgePuppyKitten, AgePregnantLactating:
		return true
	}
	return false
}

// NoteTitle returns the category label used for age-group adjustment notes
func (a AgeGroup) NoteTitle() string {
	switch a {
	case AgeSenior:
		return "Senior patient"
	case AgePuppyKitten:
		return "Puppy/kitten patient"
	case AgePregnantLactating:
		return "Pregnant/lactating patient"
	default:
		return "Adult patient"
	}
}

// Comorbidity is a concurrent condition that modulates drug safety advice
type Comorbidity string

const (
	ComorbidityLiver  Comorbidity = "liver"
	ComorbidityKidney Comorbidity = "kidney"
	ComorbidityHeart  Comorbidity = "heart"
	ComorbidityGastro Comorbidity = "gastro"
)

// ComorbidityOrder is the order in which comorbidity notes are reported
var ComorbidityOrder = []Comorbidity{ComorbidityLiver, ComorbidityKidney, ComorbidityHeart, ComorbidityGastro}

// IsValid reports whether the comorbidity is known
func (c Comorbidity) IsValid() bool {
	switch c {
	case ComorbidityLiver, ComorbidityKidney, ComorbidityHeart, ComorbidityGastro:
		return true
	}
	return false
}

// NoteTitle returns the category label used for comorbidity adjustment notes
func (c Comorbidity) NoteTitle() string {
	switch c {
	case ComorbidityLiver:
		return "Comorbidity: Hepatic disease"
	case ComorbidityKidney:
		return "Comorbidity: Renal disease"
	case ComorbidityHeart:
		return "Comorbidity: Cardiac disease"
	case ComorbidityGastro:
		return "Comorbidity: Gastrointestinal disease"
	default:
		return "Comorbidity: " + string(c)
	}
}

// AdjustmentFactors holds per-condition advisory notes for a drug
type AdjustmentFactors struct {
	Senior            string `json:"senior,omitempty" yaml:"senior,omitempty"`
	PuppyKitten       string `json:"puppy_kitten,omitempty" yaml:"puppy_kitten,omitempty"`
	PregnantLactating string `json:"pregnant_lactating,omitempty" yaml:"pregnant_lactating,omitempty"`
	Liver             string `json:"liver,omitempty" yaml:"liver,omitempty"`
	Kidney            string `json:"kidney,omitempty" yaml:"kidney,omitempty"`
	Heart             string `json:"heart,omitempty" yaml:"heart,omitempty"`
	Gastro            string `json:"gastro,omitempty" yaml:"gastro,omitempty"`
}

// ForAgeGroup returns the note for an age group; adults never carry one
func (f AdjustmentFactors) ForAgeGroup(a AgeGroup) string {
	switch a {
	case AgeSenior:
		return f.Senior
	case AgePuppyKitten:
		return f.PuppyKitten
	case AgePregnantLactating:
		return f.PregnantLactating
	default:
		return ""
	}
}

// ForComorbidity returns the note for a comorbidity
func (f AdjustmentFactors) ForComorbidity(c Comorbidity) string {
	switch c {
	case ComorbidityLiver:
		return f.Liver
	case ComorbidityKidney:
		return f.Kidney
	case ComorbidityHeart:
		return f.Heart
	case ComorbidityGastro:
		return f.Gastro
	default:
		return ""
	}
}

// Drug is an analgesic or adjuvant in the dosing catalog
type Drug struct {
	ID                  string             `json:"id" yaml:"id"`
	Name                string             `json:"name" yaml:"name"`
	Class               string             `json:"class,omitempty" yaml:"class,omitempty"`
	Species             []Species          `json:"species" yaml:"species"`
	DoseRange           DoseRange          `json:"dose_range" yaml:"dose_range"`
	Presentations       []Presentation     `json:"presentations" yaml:"presentations"`
	AdministrationNotes string             `json:"administration_notes" yaml:"administration_notes"`
	AdjustmentFactors   *AdjustmentFactors `json:"adjustment_factors,omitempty" yaml:"adjustment_factors,omitempty"`
}

// AppliesTo reports whether the drug is indicated for the species
func (d *Drug) AppliesTo(species Species) bool {
	for _, s := range d.Species {
		if s == species {
			return true
		}
	}
	return false
}

// Presentation returns the presentation with the given id
func (d *Drug) Presentation(id string) (*Presentation, bool) {
	for i := range d.Presentations {
		if d.Presentations[i].ID == id {
			return &d.Presentations[i], true
		}
	}
	return nil, false
}

// DoseRequest carries the inputs of a dose calculation
type DoseRequest struct {
	Species        Species       `json:"species,omitempty"`
	WeightKg       float64       `json:"weight_kg"`
	DrugID         string        `json:"drug_id"`
	PresentationID string        `json:"presentation_id,omitempty"`
	Dose           float64       `json:"dose,omitempty"`
	AgeGroup       AgeGroup      `json:"age_group,omitempty"`
	Comorbidities  []Comorbidity `json:"comorbidities,omitempty"`
}

// AdjustmentNote is a labelled advisory text attached to a dose result
type AdjustmentNote struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// DoseResult is the deliverable quantity for a dose calculation
type DoseResult struct {
	DrugID              string           `json:"drug_id"`
	DrugName            string           `json:"drug_name"`
	PresentationID      string           `json:"presentation_id"`
	PresentationName    string           `json:"presentation_name"`
	WeightKg            float64          `json:"weight_kg"`
	Dose                float64          `json:"dose"`
	DoseUnit            string           `json:"dose_unit"`
	TotalMg             float64          `json:"total_mg"`
	TotalMgDisplay      string           `json:"total_mg_display"`
	FinalAmount         float64          `json:"final_amount"`
	FinalAmountDisplay  string           `json:"final_amount_display"`
	FinalUnit           string           `json:"final_unit"`
	AdjustmentNotes     []AdjustmentNote `json:"adjustment_notes"`
	AdministrationNotes string           `json:"administration_notes"`
	Warnings            []string         `json:"warnings,omitempty"`
}
