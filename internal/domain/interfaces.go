package domain

import (
	"context"
	"time"
)

// ScaleCatalog is the read-only registry of pain scales
type ScaleCatalog interface {
	Scale(id string) (*Scale, error)
	Scales(species Species, painType PainType) []*Scale
	AllScales() []*Scale
}

// DrugCatalog is the read-only registry of drugs and CRI drugs
type DrugCatalog interface {
	Drug(id string) (*Drug, error)
	Drugs(species Species) []*Drug
	CRIDrug(id string) (*CRIDrug, error)
	CRIDrugs(species Species) []*CRIDrug
	CRIDefaults() CRIDefaults
}

// AdvisoryProvider generates the raw second-opinion text for a prompt
type AdvisoryProvider interface {
	GenerateAdvisory(ctx context.Context, prompt string) (string, error)
	Model() string
}

// AdvisoryCache stores advisory results keyed by request fingerprint
type AdvisoryCache interface {
	Get(ctx context.Context, key string) (*AdvisoryResult, bool, error)
	Set(ctx context.Context, key string, result *AdvisoryResult, ttl time.Duration) error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetAdvisoryConfig() *AdvisoryConfig
	GetCacheConfig() *CacheConfig
	GetLoggingConfig() *LoggingConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
