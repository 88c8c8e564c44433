package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/tanakrit/coinquest/internal/engine"
)

// Config represents the complete server configuration
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Game   *GameSettings  `hcl:"game,block"`
	Events []EventConfig  `hcl:"event,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address    string `hcl:"address,optional"`
	Port       int    `hcl:"port,optional"`
	LogLevel   string `hcl:"log_level,optional"`
	GMPassword string `hcl:"gm_password,optional"`
	StateFile  string `hcl:"state_file,optional"`
	Seed       int64  `hcl:"seed,optional"`
}

// GameSettings tunes the settlement arithmetic
type GameSettings struct {
	BaseIncome     int  `hcl:"base_income,optional"`
	FoodCost       int  `hcl:"food_cost,optional"`
	ShortRatio     int  `hcl:"short_ratio,optional"`
	LongRatio      int  `hcl:"long_ratio,optional"`
	LongBonusRatio int  `hcl:"long_bonus_ratio,optional"`
	MaxRounds      int  `hcl:"max_rounds,optional"`
	BuiltinEvents  *bool `hcl:"builtin_events,optional"`
}

// EventConfig defines an additional event card for the catalog
type EventConfig struct {
	ID                string `hcl:"id,label"`
	Title             string `hcl:"title"`
	Description       string `hcl:"description"`
	Kind              string `hcl:"kind"`
	Category          string `hcl:"category,optional"`
	Value             int    `hcl:"value,optional"`
	NewRatio          int    `hcl:"new_ratio,optional"`
	ParticipantChoice bool   `hcl:"participant_choice,optional"`
	Coverable         bool   `hcl:"coverable,optional"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:    "localhost",
			Port:       8080,
			LogLevel:   "info",
			GMPassword: "password123",
		},
	}
}

// LoadConfig loads server configuration from an HCL file. A missing file
// yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Server.GMPassword == "" {
		config.Server.GMPassword = "password123"
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if err := c.Rules().Validate(); err != nil {
		return fmt.Errorf("invalid game settings: %w", err)
	}
	for _, ev := range c.Events {
		if _, err := ev.toEvent(); err != nil {
			return fmt.Errorf("event %s: %w", ev.ID, err)
		}
	}
	if c.Catalog().Len() == 0 {
		return fmt.Errorf("event catalog is empty: enable builtin events or define event blocks")
	}
	return nil
}

// Rules builds the engine rules from the game block, falling back to the
// defaults for anything unset
func (c *Config) Rules() engine.Rules {
	rules := engine.DefaultRules()
	g := c.Game
	if g == nil {
		return rules
	}
	if g.BaseIncome != 0 {
		rules.BaseIncome = g.BaseIncome
	}
	if g.FoodCost != 0 {
		rules.FoodCost = g.FoodCost
	}
	if g.ShortRatio != 0 {
		rules.ShortRatio = g.ShortRatio
	}
	if g.LongRatio != 0 {
		rules.LongRatio = g.LongRatio
	}
	if g.LongBonusRatio != 0 {
		rules.LongBonusRatio = g.LongBonusRatio
	}
	if g.MaxRounds != 0 {
		rules.MaxRounds = g.MaxRounds
	}
	return rules
}

// Catalog builds the event catalog: the builtin cards unless disabled, plus
// any event blocks. Invalid event blocks are skipped; Validate reports them.
func (c *Config) Catalog() *engine.Catalog {
	catalog := engine.NewCatalog(nil)
	if c.Game == nil || c.Game.BuiltinEvents == nil || *c.Game.BuiltinEvents {
		catalog = engine.DefaultCatalog()
	}
	for _, ev := range c.Events {
		event, err := ev.toEvent()
		if err != nil {
			continue
		}
		catalog.Add(event)
	}
	return catalog
}

// GetAddress returns the full listen address
func (c *Config) GetAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

func (ec EventConfig) toEvent() (engine.Event, error) {
	event := engine.Event{
		ID:          ec.ID,
		Title:       ec.Title,
		Description: ec.Description,
	}

	switch ec.Kind {
	case "coin_change":
		category := engine.Category(ec.Category)
		switch category {
		case engine.CategoryTotal, engine.CategoryShort, engine.CategoryLong, engine.CategoryEmergency:
		default:
			return event, fmt.Errorf("coin_change requires category total, short, long or emergency, got %q", ec.Category)
		}
		if ec.Value == 0 {
			return event, fmt.Errorf("coin_change requires a non-zero value")
		}
		event.Effect = engine.Effect{
			Kind:              engine.EffectCoinChange,
			Category:          category,
			Value:             ec.Value,
			ParticipantChoice: ec.ParticipantChoice,
			Coverable:         ec.Coverable,
		}
	case "rule_change":
		category := engine.Category(ec.Category)
		if category != engine.CategoryShort && category != engine.CategoryLong {
			return event, fmt.Errorf("rule_change requires category short or long, got %q", ec.Category)
		}
		if ec.NewRatio < 1 {
			return event, fmt.Errorf("rule_change requires new_ratio of at least 1")
		}
		event.Effect = engine.Effect{
			Kind:     engine.EffectRuleChange,
			Category: category,
			NewRatio: ec.NewRatio,
		}
	case "income_boost":
		if ec.Value <= 0 {
			return event, fmt.Errorf("income_boost requires a positive value")
		}
		event.Effect = engine.Effect{Kind: engine.EffectIncomeBoost, Value: ec.Value}
	case "waive_food_cost":
		event.Effect = engine.Effect{Kind: engine.EffectWaiveFoodCost}
	default:
		return event, fmt.Errorf("unknown event kind %q", ec.Kind)
	}

	return event, nil
}
