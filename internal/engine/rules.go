package engine

import "fmt"

// Rules holds the tunable arithmetic of the settlement algorithm. Ratios are
// the base values; a RULE_CHANGE event overrides them for one round only.
type Rules struct {
	BaseIncome     int // credited to every participant each round
	FoodCost       int // mandatory food/housing cost per round
	ShortRatio     int // every ShortRatio coins in short-term yields 1 income
	LongRatio      int // every LongRatio coins in long-term yields 1 income
	LongBonusRatio int // end-of-game bonus divisor on long-term principal
	MaxRounds      int // settlement of this round ends the game
}

// Leaderboard and name limits are fixed, not tunable.
const (
	maxNameLength   = 30
	leaderboardSize = 10
)

// DefaultRules returns the standard game rules
func DefaultRules() Rules {
	return Rules{
		BaseIncome:     10,
		FoodCost:       5,
		ShortRatio:     3,
		LongRatio:      4,
		LongBonusRatio: 2,
		MaxRounds:      5,
	}
}

// Validate checks the rules for values the settlement arithmetic cannot handle
func (r Rules) Validate() error {
	if r.ShortRatio <= 0 {
		return fmt.Errorf("short ratio must be positive, got %d", r.ShortRatio)
	}
	if r.LongRatio <= 0 {
		return fmt.Errorf("long ratio must be positive, got %d", r.LongRatio)
	}
	if r.LongBonusRatio <= 0 {
		return fmt.Errorf("long bonus ratio must be positive, got %d", r.LongBonusRatio)
	}
	if r.FoodCost < 0 {
		return fmt.Errorf("food cost must not be negative, got %d", r.FoodCost)
	}
	if r.MaxRounds < 1 {
		return fmt.Errorf("max rounds must be at least 1, got %d", r.MaxRounds)
	}
	return nil
}
