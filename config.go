package seriesdb

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Instrument declares one logical series: which symbol to fetch, its quote
// currency, and fallback symbols tried in order when the primary returns
// nothing. The enumeration of instruments is externally supplied
// configuration, not engine logic.
type Instrument struct {
	Symbol    string   `yaml:"symbol" validate:"required"`
	Currency  string   `yaml:"currency" validate:"required,min=3,max=3"`
	Kind      string   `yaml:"kind" validate:"required,oneof=price valuation fx"`
	Fallbacks []string `yaml:"fallbacks"`
}

// Config holds the engine configuration: the store location, reference
// currencies, update tuning and the instrument declarations.
type Config struct {
	// StoreDir is the directory holding one series file per key.
	StoreDir string `yaml:"store_dir" validate:"required"`
	// References are the reference currencies conversion series target.
	References []string `yaml:"references" validate:"required,min=1,dive,min=3,max=3"`
	// LookbackDays tunes incremental updates; 0 means the built-in default.
	LookbackDays int `yaml:"lookback_days" validate:"gte=0"`
	// Strict enables the destructive strict-date cleanup rule.
	Strict bool `yaml:"strict"`
	// RiskFreeAnnual is the annual risk-free rate used by risk ratios.
	RiskFreeAnnual float64 `yaml:"risk_free_annual"`
	// Instruments maps a series key to its declaration.
	Instruments map[string]Instrument `yaml:"instruments" validate:"required,min=1,dive"`
}

// Environment overrides, applied after the file is read.
const (
	envLookback = "SERIESDB_LOOKBACK_DAYS"
	envStrict   = "SERIESDB_STRICT"
	envStoreDir = "SERIESDB_STORE_DIR"
)

// LoadConfig reads a YAML configuration file, applies environment overrides
// and validates the result. A configuration without instruments is the one
// fatal error of a run: there is nothing to process.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %q: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config %q: %w", path, err)
	}

	if v := os.Getenv(envStoreDir); v != "" {
		cfg.StoreDir = v
	}
	if v := os.Getenv(envLookback); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid %s=%q", envLookback, v)
		}
		cfg.LookbackDays = n
	}
	if v := os.Getenv(envStrict); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s=%q", envStrict, v)
		}
		cfg.Strict = b
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, ref := range c.References {
		if _, err := FieldForReference(ref); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}
	for key, inst := range c.Instruments {
		if _, err := ParseKind(inst.Kind); err != nil {
			return fmt.Errorf("instrument %q: %w", key, err)
		}
	}
	return nil
}

// Keys returns the configured instrument keys, order unspecified.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.Instruments))
	for k := range c.Instruments {
		keys = append(keys, k)
	}
	return keys
}
