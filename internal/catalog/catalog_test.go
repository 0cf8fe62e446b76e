package catalog

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vet-pain-mcp-server/internal/domain"
)

func loadEmbedded(t *testing.T) *Catalog {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	c, err := Load(logger)
	require.NoError(t, err)
	return c
}

func TestLoad_EmbeddedCatalog(t *testing.T) {
	c := loadEmbedded(t)

	assert.Len(t, c.AllScales(), 11)
	assert.Len(t, c.Drugs(""), 16)
	assert.Len(t, c.CRIDrugs(""), 3)
}

func TestLoadDir(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	t.Run("empty dir selects the embedded data", func(t *testing.T) {
		c, err := LoadDir(logger, "")
		require.NoError(t, err)
		assert.Len(t, c.AllScales(), 11)
	})

	t.Run("missing dir fails", func(t *testing.T) {
		_, err := LoadDir(logger, t.TempDir()+"/absent")
		assert.Error(t, err)
	})
}

func TestScales_FilterBySpeciesAndPainType(t *testing.T) {
	c := loadEmbedded(t)

	tests := []struct {
		species  domain.Species
		painType domain.PainType
		expected []string
	}{
		{domain.SpeciesDog, domain.PainAcute, []string{"cmps-sf", "csu-cap", "umps"}},
		{domain.SpeciesDog, domain.PainChronic, []string{"cbpi", "hcpi", "load"}},
		{domain.SpeciesCat, domain.PainAcute, []string{"ucaps", "fgs", "csu-faps"}},
		{domain.SpeciesCat, domain.PainChronic, []string{"fmpi", "csom"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.species)+"/"+string(tt.painType), func(t *testing.T) {
			var ids []string
			for _, s := range c.Scales(tt.species, tt.painType) {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestScale_PolicyParameters(t *testing.T) {
	c := loadEmbedded(t)

	tests := []struct {
		id        string
		policy    domain.AggregationPolicy
		threshold float64
		maxScore  int
	}{
		{"cmps-sf", domain.PolicySumThreshold, 5, 18},
		{"ucaps", domain.PolicySumThreshold, 4, 11},
		{"fgs", domain.PolicySumThreshold, 4, 10},
		{"csu-cap", domain.PolicyHolisticPick, 2, 4},
		{"csu-faps", domain.PolicyHolisticPick, 2, 4},
		{"cbpi", domain.PolicyDualSubscaleAverage, 3, 0},
		{"hcpi", domain.PolicyBandedSum, 10, 44},
		{"load", domain.PolicyBandedSum, 10, 52},
		{"fmpi", domain.PolicyBandedSum, 10, 0},
		{"csom", domain.PolicyActivityMean, 7, 10},
		{"umps", domain.PolicyInformational, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			s, err := c.Scale(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.policy, s.Rule.Policy)
			assert.Equal(t, tt.threshold, s.Rule.Threshold)
			assert.Equal(t, tt.maxScore, s.Rule.MaxScore)
			assert.NotEmpty(t, s.Rule.Analysis)
			assert.NotNil(t, s.Details)
		})
	}
}

func TestScale_MaxScoresMatchOptions(t *testing.T) {
	c := loadEmbedded(t)

	for _, id := range []string{"cmps-sf", "ucaps", "fgs"} {
		s, err := c.Scale(id)
		require.NoError(t, err)
		total := 0
		for _, q := range s.Questions {
			_, hi := q.ScoreBounds()
			total += hi
		}
		assert.Equal(t, s.Rule.MaxScore, total, id)
	}
}

func TestScale_NotFound(t *testing.T) {
	c := loadEmbedded(t)

	_, err := c.Scale("nope")
	assert.True(t, errors.Is(err, domain.ErrScaleNotFound))
}

func TestDrugs_FilterBySpecies(t *testing.T) {
	c := loadEmbedded(t)

	for _, d := range c.Drugs(domain.SpeciesCat) {
		assert.True(t, d.AppliesTo(domain.SpeciesCat), d.ID)
	}

	carprofen, err := c.Drug("carprofen_dog")
	require.NoError(t, err)
	assert.Equal(t, 4.4, carprofen.DoseRange.Default)
	assert.Equal(t, "carpro_25", carprofen.Presentations[0].ID)
	require.NotNil(t, carprofen.AdjustmentFactors)
	assert.NotEmpty(t, carprofen.AdjustmentFactors.Kidney)

	_, err = c.Drug("aspirin")
	assert.True(t, errors.Is(err, domain.ErrDrugNotFound))
}

func TestCRIDrugs(t *testing.T) {
	c := loadEmbedded(t)

	var catIDs []string
	for _, d := range c.CRIDrugs(domain.SpeciesCat) {
		catIDs = append(catIDs, d.ID)
	}
	assert.Equal(t, []string{"fentanyl", "ketamine"}, catIDs)
	assert.Len(t, c.CRIDrugs(domain.SpeciesDog), 3)

	lidocaine, err := c.CRIDrug("lidocaine")
	require.NoError(t, err)
	assert.Equal(t, 40.0, lidocaine.Dose.McgPerKgPerMin())
	assert.Equal(t, 20.0, lidocaine.SourceConcentrationMgMl)

	defaults := c.CRIDefaults()
	assert.Equal(t, domain.DeliveryBag, defaults.Method)
	assert.Equal(t, "fentanyl", defaults.DrugID)
	assert.Equal(t, 1000.0, defaults.BagVolumeMl)
	assert.Equal(t, 60.0, defaults.SyringeVolumeMl)
	assert.Equal(t, []float64{250, 500, 1000}, defaults.BagVolumesMl)

	defaults.BagVolumesMl[0] = 1
	assert.Equal(t, 250.0, c.CRIDefaults().BagVolumesMl[0])
}

func TestLoadFS_RejectsInvalidData(t *testing.T) {
	validDrugs := `
drugs:
  - id: x
    name: X
    species: [dog]
    dose_range: { min: 1, max: 2, default: 1, unit: mg/kg }
    presentations:
      - { id: p, name: P, concentration: { value: 10, unit: mg/ml } }
`
	validCRI := `
defaults: { method: bag, drug_id: f, bag_volume_ml: 500, syringe_volume_ml: 50, bag_volumes_ml: [500], syringe_volumes_ml: [50] }
drugs:
  - { id: f, name: F, species: [dog], dose: { mcg_per_kg: 5, per: h }, source_concentration_mg_ml: 0.05, default_target_concentration_mg_ml: 0.01 }
`
	validScales := `
scales:
  - id: s
    name: S
    species: dog
    pain_type: acute
    questions:
      - { id: q, text: Q, type: radio, options: [{ score: 0, text: a }, { score: 1, text: b }] }
    rule: { policy: sum_threshold, threshold: 1, max_score: 1, analysis: A }
`

	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{"valid", map[string]string{scalesFile: validScales, drugsFile: validDrugs, criFile: validCRI}, ""},
		{"missing file", map[string]string{scalesFile: validScales, drugsFile: validDrugs}, "cri.yaml"},
		{"bad yaml", map[string]string{scalesFile: "scales: [", drugsFile: validDrugs, criFile: validCRI}, "failed to parse"},
		{"bad policy", map[string]string{
			scalesFile: `scales: [{ id: s, species: dog, pain_type: acute, questions: [], rule: { policy: median } }]`,
			drugsFile:  validDrugs, criFile: validCRI,
		}, "unknown aggregation policy"},
		{"bad dose range", map[string]string{
			scalesFile: validScales,
			drugsFile: `
drugs:
  - { id: x, species: [dog], dose_range: { min: 2, max: 1, default: 1 }, presentations: [{ id: p, concentration: { value: 1, unit: mg/ml } }] }
`, criFile: validCRI,
		}, "inconsistent dose range"},
		{"default volume not offered", map[string]string{
			scalesFile: validScales, drugsFile: validDrugs,
			criFile: `
defaults: { method: bag, drug_id: f, bag_volume_ml: 1000, syringe_volume_ml: 50, bag_volumes_ml: [500], syringe_volumes_ml: [50] }
drugs:
  - { id: f, species: [dog], dose: { mcg_per_kg: 5, per: h }, source_concentration_mg_ml: 0.05, default_target_concentration_mg_ml: 0.01 }
`,
		}, "default bag volume"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{}
			for name, content := range tt.files {
				fsys[name] = &fstest.MapFile{Data: []byte(content)}
			}
			c, err := LoadFS(nil, fsys)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Len(t, c.AllScales(), 1)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
