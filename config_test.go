package seriesdb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleConfig = `
store_dir: /var/lib/seriesdb
references: [USD, KRW]
lookback_days: 7
risk_free_annual: 0.03
instruments:
  "005930.KS":
    symbol: 005930.KS
    currency: KRW
    kind: price
  "AAPL":
    symbol: AAPL
    currency: USD
    kind: price
    fallbacks: [AAPL.BAK]
  "AAPL.VAL":
    symbol: AAPL
    currency: USD
    kind: valuation
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.StoreDir != "/var/lib/seriesdb" {
		t.Errorf("StoreDir = %q", cfg.StoreDir)
	}
	if cfg.LookbackDays != 7 {
		t.Errorf("LookbackDays = %d, want 7", cfg.LookbackDays)
	}
	if cfg.RiskFreeAnnual != 0.03 {
		t.Errorf("RiskFreeAnnual = %v, want 0.03", cfg.RiskFreeAnnual)
	}
	if len(cfg.Instruments) != 3 {
		t.Fatalf("Instruments = %d, want 3", len(cfg.Instruments))
	}
	if got := cfg.Instruments["AAPL"].Fallbacks; len(got) != 1 || got[0] != "AAPL.BAK" {
		t.Errorf("Fallbacks = %v", got)
	}
	if len(cfg.Keys()) != 3 {
		t.Errorf("Keys = %v", cfg.Keys())
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SERIESDB_STORE_DIR", "/tmp/override")
	t.Setenv("SERIESDB_LOOKBACK_DAYS", "14")
	t.Setenv("SERIESDB_STRICT", "true")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.StoreDir != "/tmp/override" {
		t.Errorf("StoreDir = %q, want the env override", cfg.StoreDir)
	}
	if cfg.LookbackDays != 14 {
		t.Errorf("LookbackDays = %d, want 14", cfg.LookbackDays)
	}
	if !cfg.Strict {
		t.Error("Strict = false, want the env override")
	}
}

func TestLoadConfigBadEnv(t *testing.T) {
	t.Setenv("SERIESDB_LOOKBACK_DAYS", "minus two")
	if _, err := LoadConfig(writeConfig(t, sampleConfig)); err == nil {
		t.Error("want an error on a non-numeric lookback override")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name, content string
	}{
		{"not yaml", "store_dir: [unterminated"},
		{"no instruments", "store_dir: /x\nreferences: [USD]\ninstruments: {}\n"},
		{"bad currency", strings.Replace(sampleConfig, "currency: KRW", "currency: KOREAN WON", 1)},
		{"unmapped reference", strings.Replace(sampleConfig, "references: [USD, KRW]", "references: [USD, EUR]", 1)},
		{"bad kind", strings.Replace(sampleConfig, "kind: valuation", "kind: fundamentals", 1)},
		{"missing symbol", strings.Replace(sampleConfig, "symbol: AAPL\n", "", 1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tc.content)); err == nil {
				t.Error("want a validation error")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("want an error for a missing file")
	}
}
