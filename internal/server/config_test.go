package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tanakrit/coinquest/internal/engine"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coinquest.hcl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.hcl"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Address != "localhost" {
		t.Errorf("Address = %q, want localhost", cfg.Server.Address)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.Server.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestLoadConfig_ServerBlock(t *testing.T) {
	path := writeConfigFile(t, `
server {
  address     = "0.0.0.0"
  port        = 9000
  log_level   = "debug"
  gm_password = "letmein"
  state_file  = "/var/lib/coinquest/state.json"
  seed        = 42
}
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Address != "0.0.0.0" {
		t.Errorf("Address = %q, want 0.0.0.0", cfg.Server.Address)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.GMPassword != "letmein" {
		t.Errorf("GMPassword = %q, want letmein", cfg.Server.GMPassword)
	}
	if cfg.Server.StateFile != "/var/lib/coinquest/state.json" {
		t.Errorf("StateFile = %q", cfg.Server.StateFile)
	}
	if cfg.Server.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Server.Seed)
	}
	if got := cfg.GetAddress(); got != "0.0.0.0:9000" {
		t.Errorf("GetAddress() = %q, want 0.0.0.0:9000", got)
	}
}

func TestLoadConfig_PartialServerBlockFillsDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server {
  port = 9090
}
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Address != "localhost" {
		t.Errorf("Address = %q, want localhost", cfg.Server.Address)
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.Server.LogLevel)
	}
}

func TestLoadConfig_InvalidHCL(t *testing.T) {
	path := writeConfigFile(t, `server { port = `)

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error for malformed HCL")
	}
}

func TestConfig_Rules(t *testing.T) {
	path := writeConfigFile(t, `
game {
  base_income = 12
  short_ratio = 2
  max_rounds  = 8
}
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	rules := cfg.Rules()
	if rules.BaseIncome != 12 {
		t.Errorf("BaseIncome = %d, want 12", rules.BaseIncome)
	}
	if rules.ShortRatio != 2 {
		t.Errorf("ShortRatio = %d, want 2", rules.ShortRatio)
	}
	if rules.MaxRounds != 8 {
		t.Errorf("MaxRounds = %d, want 8", rules.MaxRounds)
	}

	// Unset fields keep the defaults
	defaults := engine.DefaultRules()
	if rules.FoodCost != defaults.FoodCost {
		t.Errorf("FoodCost = %d, want default %d", rules.FoodCost, defaults.FoodCost)
	}
	if rules.LongRatio != defaults.LongRatio {
		t.Errorf("LongRatio = %d, want default %d", rules.LongRatio, defaults.LongRatio)
	}
}

func TestConfig_RulesNoGameBlock(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Rules() != engine.DefaultRules() {
		t.Error("config without a game block should yield the default rules")
	}
}

func TestConfig_CatalogCustomEvents(t *testing.T) {
	path := writeConfigFile(t, `
event "tax-audit" {
  title       = "Tax Audit"
  description = "Lose 4 coins from long-term."
  kind        = "coin_change"
  category    = "long"
  value       = -4
  coverable   = true
}

event "bonus-payout" {
  title       = "Bonus Payout"
  description = "Receive 6 coins."
  kind        = "coin_change"
  category    = "total"
  value       = 6
}
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	catalog := cfg.Catalog()
	builtin := engine.DefaultCatalog().Len()
	if catalog.Len() != builtin+2 {
		t.Errorf("catalog size = %d, want %d", catalog.Len(), builtin+2)
	}

	var found *engine.Event
	for _, ev := range catalog.Events() {
		if ev.ID == "tax-audit" {
			e := ev
			found = &e
		}
	}
	if found == nil {
		t.Fatal("custom event tax-audit missing from catalog")
	}
	if found.Effect.Kind != engine.EffectCoinChange {
		t.Errorf("Effect.Kind = %v, want coin change", found.Effect.Kind)
	}
	if found.Effect.Category != engine.CategoryLong {
		t.Errorf("Effect.Category = %v, want long", found.Effect.Category)
	}
	if found.Effect.Value != -4 {
		t.Errorf("Effect.Value = %d, want -4", found.Effect.Value)
	}
	if !found.Effect.Coverable {
		t.Error("Effect.Coverable should be true")
	}
}

func TestConfig_CatalogBuiltinDisabled(t *testing.T) {
	path := writeConfigFile(t, `
game {
  builtin_events = false
}

event "only-card" {
  title       = "Only Card"
  description = "Receive 1 coin."
  kind        = "coin_change"
  category    = "total"
  value       = 1
}
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if got := cfg.Catalog().Len(); got != 1 {
		t.Errorf("catalog size = %d, want 1", got)
	}
}

func TestConfig_ValidateEmptyCatalog(t *testing.T) {
	path := writeConfigFile(t, `
game {
  builtin_events = false
}
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty catalog")
	}
}

func TestConfig_ValidateEventBlocks(t *testing.T) {
	tests := []struct {
		name  string
		event string
	}{
		{
			name: "unknown kind",
			event: `
event "bad" {
  title       = "Bad"
  description = "Bad."
  kind        = "mystery"
}`,
		},
		{
			name: "coin_change without category",
			event: `
event "bad" {
  title       = "Bad"
  description = "Bad."
  kind        = "coin_change"
  value       = -3
}`,
		},
		{
			name: "coin_change with zero value",
			event: `
event "bad" {
  title       = "Bad"
  description = "Bad."
  kind        = "coin_change"
  category    = "short"
}`,
		},
		{
			name: "rule_change with bad category",
			event: `
event "bad" {
  title       = "Bad"
  description = "Bad."
  kind        = "rule_change"
  category    = "total"
  new_ratio   = 2
}`,
		},
		{
			name: "rule_change without ratio",
			event: `
event "bad" {
  title       = "Bad"
  description = "Bad."
  kind        = "rule_change"
  category    = "short"
}`,
		},
		{
			name: "income_boost with negative value",
			event: `
event "bad" {
  title       = "Bad"
  description = "Bad."
  kind        = "income_boost"
  value       = -5
}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfigFile(t, tt.event))
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfig_ValidatePort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for out-of-range port")
	}
}
