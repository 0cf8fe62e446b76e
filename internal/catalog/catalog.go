// Package catalog loads the immutable reference data: pain scales, the dosing
// drug table and the CRI drug table. The data ships embedded in the binary and
// may be replaced by a directory holding files with the same names.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/vet-pain-mcp-server/internal/domain"
)

const (
	scalesFile = "scales.yaml"
	drugsFile  = "drugs.yaml"
	criFile    = "cri.yaml"
)

//go:embed data/*.yaml
var embedded embed.FS

type scalesDocument struct {
	Scales []*domain.Scale `yaml:"scales"`
}

type drugsDocument struct {
	Drugs []*domain.Drug `yaml:"drugs"`
}

type criDocument struct {
	Defaults domain.CRIDefaults `yaml:"defaults"`
	Drugs    []*domain.CRIDrug  `yaml:"drugs"`
}

// Catalog is the read-only registry of scales, drugs and CRI drugs.
// It is safe for concurrent use once loaded.
type Catalog struct {
	scales      []*domain.Scale
	scaleIndex  map[string]*domain.Scale
	drugs       []*domain.Drug
	drugIndex   map[string]*domain.Drug
	criDrugs    []*domain.CRIDrug
	criIndex    map[string]*domain.CRIDrug
	criDefaults domain.CRIDefaults
}

// Load reads the embedded catalog
func Load(logger *logrus.Logger) (*Catalog, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded catalog: %w", err)
	}
	return LoadFS(logger, sub)
}

// LoadDir reads the catalog from a directory on disk. An empty dir selects the embedded data.
func LoadDir(logger *logrus.Logger, dir string) (*Catalog, error) {
	if dir == "" {
		return Load(logger)
	}
	return LoadFS(logger, os.DirFS(dir))
}

// MustLoad reads the embedded catalog and panics when it is invalid
func MustLoad(logger *logrus.Logger) *Catalog {
	c, err := Load(logger)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFS reads and validates the three catalog files from fsys
func LoadFS(logger *logrus.Logger, fsys fs.FS) (*Catalog, error) {
	var scales scalesDocument
	if err := decodeFile(fsys, scalesFile, &scales); err != nil {
		return nil, err
	}
	var drugs drugsDocument
	if err := decodeFile(fsys, drugsFile, &drugs); err != nil {
		return nil, err
	}
	var cri criDocument
	if err := decodeFile(fsys, criFile, &cri); err != nil {
		return nil, err
	}

	c := &Catalog{
		scales:      scales.Scales,
		scaleIndex:  make(map[string]*domain.Scale, len(scales.Scales)),
		drugs:       drugs.Drugs,
		drugIndex:   make(map[string]*domain.Drug, len(drugs.Drugs)),
		criDrugs:    cri.Drugs,
		criIndex:    make(map[string]*domain.CRIDrug, len(cri.Drugs)),
		criDefaults: cri.Defaults,
	}

	if err := c.indexScales(); err != nil {
		return nil, err
	}
	if err := c.indexDrugs(); err != nil {
		return nil, err
	}
	if err := c.indexCRIDrugs(); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"scales":    len(c.scales),
			"drugs":     len(c.drugs),
			"cri_drugs": len(c.criDrugs),
		}).Debug("Catalog loaded")
	}

	return c, nil
}

func decodeFile(fsys fs.FS, name string, out interface{}) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read catalog file %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse catalog file %s: %w", name, err)
	}
	return nil
}

func (c *Catalog) indexScales() error {
	if len(c.scales) == 0 {
		return fmt.Errorf("scale catalog is empty")
	}
	for _, s := range c.scales {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("invalid scale catalog: %w", err)
		}
		if _, dup := c.scaleIndex[s.ID]; dup {
			return fmt.Errorf("invalid scale catalog: duplicate scale id %s", s.ID)
		}
		c.scaleIndex[s.ID] = s
	}
	return nil
}

func (c *Catalog) indexDrugs() error {
	if len(c.drugs) == 0 {
		return fmt.Errorf("drug catalog is empty")
	}
	for _, d := range c.drugs {
		if err := validateDrug(d); err != nil {
			return fmt.Errorf("invalid drug catalog: %w", err)
		}
		if _, dup := c.drugIndex[d.ID]; dup {
			return fmt.Errorf("invalid drug catalog: duplicate drug id %s", d.ID)
		}
		c.drugIndex[d.ID] = d
	}
	return nil
}

func (c *Catalog) indexCRIDrugs() error {
	if len(c.criDrugs) == 0 {
		return fmt.Errorf("CRI drug catalog is empty")
	}
	for _, d := range c.criDrugs {
		if err := validateCRIDrug(d); err != nil {
			return fmt.Errorf("invalid CRI catalog: %w", err)
		}
		if _, dup := c.criIndex[d.ID]; dup {
			return fmt.Errorf("invalid CRI catalog: duplicate drug id %s", d.ID)
		}
		c.criIndex[d.ID] = d
	}
	return validateCRIDefaults(c.criDefaults, c.criIndex)
}

func validateDrug(d *domain.Drug) error {
	if d.ID == "" {
		return fmt.Errorf("drug without id")
	}
	if len(d.Species) == 0 {
		return fmt.Errorf("drug %s: no species", d.ID)
	}
	for _, s := range d.Species {
		if !s.IsValid() {
			return fmt.Errorf("drug %s: invalid species %q", d.ID, s)
		}
	}
	r := d.DoseRange
	if r.Min <= 0 || r.Max < r.Min || r.Default < r.Min || r.Default > r.Max {
		return fmt.Errorf("drug %s: inconsistent dose range %v-%v (default %v)", d.ID, r.Min, r.Max, r.Default)
	}
	if len(d.Presentations) == 0 {
		return fmt.Errorf("drug %s: no presentations", d.ID)
	}
	seen := make(map[string]bool, len(d.Presentations))
	for _, p := range d.Presentations {
		if p.ID == "" || seen[p.ID] {
			return fmt.Errorf("drug %s: missing or duplicate presentation id %q", d.ID, p.ID)
		}
		seen[p.ID] = true
		if !p.Concentration.Unit.IsValid() {
			return fmt.Errorf("drug %s: presentation %s has unknown unit %q", d.ID, p.ID, p.Concentration.Unit)
		}
		if p.Concentration.Value <= 0 {
			return fmt.Errorf("drug %s: presentation %s has non-positive concentration", d.ID, p.ID)
		}
	}
	return nil
}

func validateCRIDrug(d *domain.CRIDrug) error {
	if d.ID == "" {
		return fmt.Errorf("CRI drug without id")
	}
	for _, s := range d.Species {
		if !s.IsValid() {
			return fmt.Errorf("CRI drug %s: invalid species %q", d.ID, s)
		}
	}
	if d.Dose.McgPerKg <= 0 || (d.Dose.Per != "min" && d.Dose.Per != "h") {
		return fmt.Errorf("CRI drug %s: invalid dose rate", d.ID)
	}
	if d.SourceConcentrationMgMl <= 0 {
		return fmt.Errorf("CRI drug %s: non-positive source concentration", d.ID)
	}
	if d.DefaultTargetConcentrationMgMl <= 0 || d.DefaultTargetConcentrationMgMl > d.SourceConcentrationMgMl {
		return fmt.Errorf("CRI drug %s: default target concentration must be within (0, source]", d.ID)
	}
	return nil
}

func validateCRIDefaults(d domain.CRIDefaults, drugs map[string]*domain.CRIDrug) error {
	if !d.Method.IsValid() {
		return fmt.Errorf("invalid CRI catalog: unknown default method %q", d.Method)
	}
	if _, ok := drugs[d.DrugID]; !ok {
		return fmt.Errorf("invalid CRI catalog: default drug %s not in table", d.DrugID)
	}
	if !containsVolume(d.BagVolumesMl, d.BagVolumeMl) {
		return fmt.Errorf("invalid CRI catalog: default bag volume %v not offered", d.BagVolumeMl)
	}
	if !containsVolume(d.SyringeVolumesMl, d.SyringeVolumeMl) {
		return fmt.Errorf("invalid CRI catalog: default syringe volume %v not offered", d.SyringeVolumeMl)
	}
	return nil
}

func containsVolume(options []float64, v float64) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

// Scale returns the scale with the given id
func (c *Catalog) Scale(id string) (*domain.Scale, error) {
	s, ok := c.scaleIndex[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrScaleNotFound, id)
	}
	return s, nil
}

// Scales returns the scales for a species and pain type in catalog order.
// An empty species or pain type matches every value.
func (c *Catalog) Scales(species domain.Species, painType domain.PainType) []*domain.Scale {
	out := make([]*domain.Scale, 0, len(c.scales))
	for _, s := range c.scales {
		if species != "" && s.Species != species {
			continue
		}
		if painType != "" && s.PainType != painType {
			continue
		}
		out = append(out, s)
	}
	return out
}

// AllScales returns every scale in catalog order
func (c *Catalog) AllScales() []*domain.Scale {
	out := make([]*domain.Scale, len(c.scales))
	copy(out, c.scales)
	return out
}

// Drug returns the drug with the given id
func (c *Catalog) Drug(id string) (*domain.Drug, error) {
	d, ok := c.drugIndex[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDrugNotFound, id)
	}
	return d, nil
}

// Drugs returns the drugs indicated for a species. An empty species returns all drugs.
func (c *Catalog) Drugs(species domain.Species) []*domain.Drug {
	out := make([]*domain.Drug, 0, len(c.drugs))
	for _, d := range c.drugs {
		if species == "" || d.AppliesTo(species) {
			out = append(out, d)
		}
	}
	return out
}

// CRIDrug returns the CRI drug with the given id
func (c *Catalog) CRIDrug(id string) (*domain.CRIDrug, error) {
	d, ok := c.criIndex[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCRIDrugNotFound, id)
	}
	return d, nil
}

// CRIDrugs returns the CRI drugs offered for a species. An empty species returns all of them.
func (c *Catalog) CRIDrugs(species domain.Species) []*domain.CRIDrug {
	out := make([]*domain.CRIDrug, 0, len(c.criDrugs))
	for _, d := range c.criDrugs {
		if species == "" || d.AppliesTo(species) {
			out = append(out, d)
		}
	}
	return out
}

// CRIDefaults returns the starting state of the CRI calculator
func (c *Catalog) CRIDefaults() domain.CRIDefaults {
	d := c.criDefaults
	d.BagVolumesMl = append([]float64(nil), d.BagVolumesMl...)
	d.SyringeVolumesMl = append([]float64(nil), d.SyringeVolumesMl...)
	return d
}

var (
	_ domain.ScaleCatalog = (*Catalog)(nil)
	_ domain.DrugCatalog  = (*Catalog)(nil)
)
