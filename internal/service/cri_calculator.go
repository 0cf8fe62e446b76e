package service

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vet-pain-mcp-server/internal/domain"
)

// CRI messages shown to the clinician
const (
	msgInvalidWeight          = "Please fill in the patient weight with a valid value."
	msgInvalidBagInput        = "Please fill in all fluid bag fields with valid values."
	msgBagVolumeExceeded      = "The volume of drug to add exceeds the bag volume. Check the values."
	msgInvalidSyringeInput    = "Please fill in the syringe volume and the desired concentration with valid values."
	titleInvalidConcentration = "Invalid Concentration!"
	msgNegativeDiluent        = "Error: the diluent volume is negative. The desired concentration is too high."

	noteNegligibleVolume = "This calculation assumes that the volume added to the bag is negligible relative to the total volume."

	warnRateTooHigh = "The calculated infusion rate is very high (>50 ml/h). The syringe will run out quickly. Consider using a more concentrated dilution."
	warnRateTooLow  = "The calculated infusion rate is very low (<0.1 ml/h) and may not be accurate on some pumps. Consider using a less concentrated (more dilute) dilution."
)

// CRICalculator plans constant rate infusions prepared in a fluid bag or a syringe
type CRICalculator struct {
	logger  *logrus.Logger
	catalog domain.DrugCatalog
}

// NewCRICalculator creates a CRI calculator backed by the CRI drug table
func NewCRICalculator(logger *logrus.Logger, catalog domain.DrugCatalog) *CRICalculator {
	return &CRICalculator{
		logger:  logger,
		catalog: catalog,
	}
}

// Calculate produces the preparation plan for the input. Infeasible or invalid inputs
// return a *domain.CalculationError explaining why and no result.
func (c *CRICalculator) Calculate(input domain.CRIInput) (*domain.CRIResult, error) {
	if !input.Method.IsValid() {
		return nil, domain.NewValidationError("method", "must be bag or syringe", input.Method)
	}

	drug, err := c.catalog.CRIDrug(input.DrugID)
	if err != nil {
		return nil, err
	}
	if input.Species != "" && !drug.AppliesTo(input.Species) {
		return nil, domain.NewValidationError("drug_id", fmt.Sprintf("%s CRI is not offered for %s", drug.Name, input.Species), input.DrugID)
	}

	if !positive(input.WeightKg) {
		return nil, c.reject(input, domain.NewCalculationError(domain.ReasonInvalidWeight, "", msgInvalidWeight))
	}

	// mg/h for the whole patient
	doseMgPerHour := decimal.NewFromFloat(drug.Dose.McgPerKgPerHour()).
		Div(decimal.NewFromInt(1000)).
		Mul(decimal.NewFromFloat(input.WeightKg))

	var result *domain.CRIResult
	var calcErr *domain.CalculationError
	if input.Method == domain.DeliveryBag {
		result, calcErr = planBag(drug, input, doseMgPerHour)
	} else {
		result, calcErr = planSyringe(drug, input, doseMgPerHour)
	}
	if calcErr != nil {
		return nil, c.reject(input, calcErr)
	}

	result.Method = input.Method
	result.DrugID = drug.ID
	result.DrugName = drug.Name
	result.WeightKg = input.WeightKg
	result.DoseMgPerHour = doseMgPerHour.Round(2).InexactFloat64()

	c.logger.WithFields(logrus.Fields{
		"method":           input.Method,
		"drug_id":          drug.ID,
		"weight_kg":        input.WeightKg,
		"dose_mg_per_hour": result.DoseMgPerHour,
		"warnings":         len(result.Warnings),
	}).Info("CRI calculated")

	return result, nil
}

func (c *CRICalculator) reject(input domain.CRIInput, err *domain.CalculationError) error {
	c.logger.WithFields(logrus.Fields{
		"method":  input.Method,
		"drug_id": input.DrugID,
		"reason":  err.Reason,
	}).Warn("CRI calculation rejected")
	return err
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func planBag(drug *domain.CRIDrug, input domain.CRIInput, doseMgPerHour decimal.Decimal) (*domain.CRIResult, *domain.CalculationError) {
	if !positive(input.FluidRateMlH) || !positive(input.BagVolumeMl) {
		return nil, domain.NewCalculationError(domain.ReasonInvalidBagInput, "", msgInvalidBagInput)
	}

	bagVolume := decimal.NewFromFloat(input.BagVolumeMl)
	requiredConcentration := doseMgPerHour.Div(decimal.NewFromFloat(input.FluidRateMlH))
	totalMgToAdd := requiredConcentration.Mul(bagVolume)
	volumeToAdd := totalMgToAdd.Div(decimal.NewFromFloat(drug.SourceConcentrationMgMl))

	if volumeToAdd.GreaterThan(bagVolume) {
		return nil, domain.NewCalculationError(domain.ReasonBagVolumeExceeded, "", msgBagVolumeExceeded)
	}

	return &domain.CRIResult{
		BagVolumeMl:               input.BagVolumeMl,
		FluidRateMlH:              input.FluidRateMlH,
		RequiredConcentrationMgMl: requiredConcentration.Round(3).InexactFloat64(),
		TotalMgToAdd:              totalMgToAdd.Round(2).InexactFloat64(),
		VolumeToAddMl:             volumeToAdd.Round(2).InexactFloat64(),
		Instructions: []string{
			fmt.Sprintf("Target concentration in the bag: %s mg/ml.", requiredConcentration.StringFixed(3)),
			fmt.Sprintf("Total drug required: %s mg for the %s ml bag.", totalMgToAdd.StringFixed(2), formatNumber(input.BagVolumeMl)),
			fmt.Sprintf("Add %s ml of %s to the fluid bag.", volumeToAdd.StringFixed(2), drug.Name),
		},
		Notes: []string{noteNegligibleVolume},
	}, nil
}

func planSyringe(drug *domain.CRIDrug, input domain.CRIInput, doseMgPerHour decimal.Decimal) (*domain.CRIResult, *domain.CalculationError) {
	if !positive(input.SyringeVolumeMl) || !positive(input.DesiredConcentrationMgMl) {
		return nil, domain.NewCalculationError(domain.ReasonInvalidSyringeInput, "", msgInvalidSyringeInput)
	}
	if input.DesiredConcentrationMgMl > drug.SourceConcentrationMgMl {
		return nil, domain.NewCalculationError(domain.ReasonInvalidConcentration, titleInvalidConcentration, fmt.Sprintf(
			"The desired concentration (%s mg/ml) cannot be greater than that of the source drug (%s mg/ml).",
			formatNumber(input.DesiredConcentrationMgMl), formatNumber(drug.SourceConcentrationMgMl)))
	}

	syringeVolume := decimal.NewFromFloat(input.SyringeVolumeMl)
	desired := decimal.NewFromFloat(input.DesiredConcentrationMgMl)
	totalMgToAdd := desired.Mul(syringeVolume)
	volumeOfDrug := totalMgToAdd.Div(decimal.NewFromFloat(drug.SourceConcentrationMgMl))
	volumeOfDiluent := syringeVolume.Sub(volumeOfDrug)

	if volumeOfDiluent.IsNegative() {
		return nil, domain.NewCalculationError(domain.ReasonNegativeDiluent, "", msgNegativeDiluent)
	}

	rate := doseMgPerHour.Div(desired)
	rateValue := rate.InexactFloat64()

	result := &domain.CRIResult{
		SyringeVolumeMl:          input.SyringeVolumeMl,
		DesiredConcentrationMgMl: input.DesiredConcentrationMgMl,
		TotalMgToAdd:             totalMgToAdd.Round(2).InexactFloat64(),
		VolumeOfDrugMl:           volumeOfDrug.Round(2).InexactFloat64(),
		VolumeOfDiluentMl:        volumeOfDiluent.Round(2).InexactFloat64(),
		InfusionRateMlH:          rate.Round(2).InexactFloat64(),
		Instructions: []string{
			fmt.Sprintf("Draw up %s ml of %s (from %s).", volumeOfDrug.StringFixed(2), drug.Name, drug.ConcentrationLabel),
			fmt.Sprintf("Make up with %s ml of diluent (e.g. 0.9%% NaCl) to a total volume of %s ml.", volumeOfDiluent.StringFixed(2), formatNumber(input.SyringeVolumeMl)),
			fmt.Sprintf("Set the infusion pump to %s ml/h.", rate.StringFixed(2)),
		},
	}

	if rateValue > domain.MaxPracticalInfusionRateMlH {
		result.Warnings = append(result.Warnings, warnRateTooHigh)
	} else if rateValue < domain.MinPracticalInfusionRateMlH {
		result.Warnings = append(result.Warnings, warnRateTooLow)
	}

	return result, nil
}
