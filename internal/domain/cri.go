package domain

// DeliveryMethod selects how a continuous rate infusion is prepared
type DeliveryMethod string

const (
	DeliveryBag     DeliveryMethod = "bag"
	DeliverySyringe DeliveryMethod = "syringe"
)

// IsValid reports whether the delivery method is known
func (m DeliveryMethod) IsValid() bool {
	return m == DeliveryBag || m == DeliverySyringe
}

// Infusion-rate limits outside of which a syringe preparation is flagged
const (
	MaxPracticalInfusionRateMlH = 50.0
	MinPracticalInfusionRateMlH = 0.1
)

// DoseRate is a CRI dose in µg/kg per unit of time
type DoseRate struct {
	McgPerKg float64 `json:"mcg_per_kg" yaml:"mcg_per_kg"`
	// Per is "min" or "h".
	Per string `json:"per" yaml:"per"`
}

// McgPerKgPerHour normalizes the dose rate to µg/kg/h
func (r DoseRate) McgPerKgPerHour() float64 {
	if r.Per == "h" {
		return r.McgPerKg
	}
	return r.McgPerKg * 60
}

// McgPerKgPerMin normalizes the dose rate to µg/kg/min
func (r DoseRate) McgPerKgPerMin() float64 {
	if r.Per == "h" {
		return r.McgPerKg / 60
	}
	return r.McgPerKg
}

// CRIDrug is an entry of the fixed CRI drug table
type CRIDrug struct {
	ID                             string    `json:"id" yaml:"id"`
	Name                           string    `json:"name" yaml:"name"`
	Species                        []Species `json:"species" yaml:"species"`
	Dose                           DoseRate  `json:"dose" yaml:"dose"`
	DoseRangeLabel                 string    `json:"dose_range_label" yaml:"dose_range_label"`
	SourceConcentrationMgMl        float64   `json:"source_concentration_mg_ml" yaml:"source_concentration_mg_ml"`
	ConcentrationLabel             string    `json:"concentration_label" yaml:"concentration_label"`
	DefaultTargetConcentrationMgMl float64   `json:"default_target_concentration_mg_ml" yaml:"default_target_concentration_mg_ml"`
}

// AppliesTo reports whether the CRI drug may be used for the species
func (d *CRIDrug) AppliesTo(species Species) bool {
	for _, s := range d.Species {
		if s == species {
			return true
		}
	}
	return false
}

// CRIDefaults holds the starting state and enumerated volumes of the CRI calculator
type CRIDefaults struct {
	Method           DeliveryMethod `json:"method" yaml:"method"`
	DrugID           string         `json:"drug_id" yaml:"drug_id"`
	BagVolumeMl      float64        `json:"bag_volume_ml" yaml:"bag_volume_ml"`
	SyringeVolumeMl  float64        `json:"syringe_volume_ml" yaml:"syringe_volume_ml"`
	BagVolumesMl     []float64      `json:"bag_volumes_ml" yaml:"bag_volumes_ml"`
	SyringeVolumesMl []float64      `json:"syringe_volumes_ml" yaml:"syringe_volumes_ml"`
}

// CRIInput carries the inputs of a CRI calculation
type CRIInput struct {
	Method                   DeliveryMethod `json:"method"`
	DrugID                   string         `json:"drug_id"`
	Species                  Species        `json:"species,omitempty"`
	WeightKg                 float64        `json:"weight_kg"`
	FluidRateMlH             float64        `json:"fluid_rate_ml_h,omitempty"`
	BagVolumeMl              float64        `json:"bag_volume_ml,omitempty"`
	SyringeVolumeMl          float64        `json:"syringe_volume_ml,omitempty"`
	DesiredConcentrationMgMl float64        `json:"desired_concentration_mg_ml,omitempty"`
}

// CRIResult is a successful CRI preparation plan
type CRIResult struct {
	Method        DeliveryMethod `json:"method"`
	DrugID        string         `json:"drug_id"`
	DrugName      string         `json:"drug_name"`
	WeightKg      float64        `json:"weight_kg"`
	DoseMgPerHour float64        `json:"dose_mg_per_hour"`

	// Bag mode
	BagVolumeMl               float64 `json:"bag_volume_ml,omitempty"`
	FluidRateMlH              float64 `json:"fluid_rate_ml_h,omitempty"`
	RequiredConcentrationMgMl float64 `json:"required_concentration_mg_ml,omitempty"`
	TotalMgToAdd              float64 `json:"total_mg_to_add"`
	VolumeToAddMl             float64 `json:"volume_to_add_ml,omitempty"`

	// Syringe mode
	SyringeVolumeMl          float64 `json:"syringe_volume_ml,omitempty"`
	DesiredConcentrationMgMl float64 `json:"desired_concentration_mg_ml,omitempty"`
	VolumeOfDrugMl           float64 `json:"volume_of_drug_ml,omitempty"`
	VolumeOfDiluentMl        float64 `json:"volume_of_diluent_ml,omitempty"`
	InfusionRateMlH          float64 `json:"infusion_rate_ml_h,omitempty"`

	Instructions []string `json:"instructions"`
	Warnings     []string `json:"warnings,omitempty"`
	Notes        []string `json:"notes,omitempty"`
}
