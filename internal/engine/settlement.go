package engine

import (
	"fmt"
	"sort"
)

// SummaryEntry is one line of a participant's round summary: a stable code
// and the amounts involved, plus pre-rendered text for display.
type SummaryEntry struct {
	Code     string   `json:"code"`
	Category Category `json:"category,omitempty"`
	Amount   int      `json:"amount,omitempty"`
	Text     string   `json:"text"`
}

// Summary entry codes, in the order settlement emits them.
const (
	SummaryDebtPaid        = "debt_paid"
	SummaryFoodCost        = "food_cost"
	SummaryFoodWaived      = "food_waived"
	SummaryFoodPaid        = "food_paid"
	SummaryFoodDebt        = "food_debt"
	SummaryFoodCredit      = "food_credit"
	SummaryInvested        = "invested"
	SummaryLiquidRemaining = "liquid_remaining"
	SummaryBaseIncome      = "base_income"
	SummaryIncomeShort     = "income_short"
	SummaryIncomeLong      = "income_long"
	SummaryIncomeBoost     = "income_boost"
	SummaryDebtPenalty     = "debt_penalty"
	SummaryNextIncome      = "next_income"
)

// settleRound runs the per-round settlement arithmetic for every participant
// and advances the phase: ROUND_END, or GAME_OVER once the round limit is
// reached.
func (e *Engine) settleRound(s *GameState) {
	shortRatio := e.rules.ShortRatio
	longRatio := e.rules.LongRatio
	if ev := s.CurrentEvent; ev != nil && ev.Effect.Kind == EffectRuleChange {
		switch ev.Effect.Category {
		case CategoryShort:
			shortRatio = ev.Effect.NewRatio
		case CategoryLong:
			longRatio = ev.Effect.NewRatio
		}
	}

	for _, p := range s.sortedPlayers() {
		e.settleParticipant(s, p, shortRatio, longRatio)
	}

	if s.CurrentRound >= e.rules.MaxRounds {
		e.finalize(s)
		return
	}
	s.Phase = PhaseRoundEnd
	e.logger.Info("Round settled", "round", s.CurrentRound)
}

func (e *Engine) settleParticipant(s *GameState, p *Participant, shortRatio, longRatio int) {
	p.LastRoundSummary = nil
	var summary []SummaryEntry

	// Last round's event debt is paid off first; the amount becomes a
	// one-time income penalty below.
	debtPaid := p.EventDebt
	if debtPaid > 0 {
		summary = append(summary, SummaryEntry{
			Code: SummaryDebtPaid, Amount: debtPaid,
			Text: fmt.Sprintf("Paid %d coins for previous event debt.", debtPaid),
		})
	}
	p.EventDebt = 0
	p.EventDebtLog = nil

	// Participants who never submitted sit the settlement out.
	if p.CurrentAllocation == nil {
		return
	}
	alloc := *p.CurrentAllocation
	liquid := p.LiquidCoins

	foodCost := e.rules.FoodCost
	if p.FoodCostWaived {
		foodCost = 0
	}
	p.FoodCostWaived = false
	if foodCost > 0 {
		summary = append(summary, SummaryEntry{
			Code: SummaryFoodCost, Category: CategoryFood, Amount: foodCost,
			Text: fmt.Sprintf("Food/housing cost this round: %d coins.", foodCost),
		})
	} else {
		summary = append(summary, SummaryEntry{
			Code: SummaryFoodWaived, Category: CategoryFood,
			Text: "Food/housing cost was waived this round!",
		})
	}

	// Pay what was allocated, up to what's affordable. The food balance
	// carries the difference forward as debt (positive) or credit (negative).
	foodPayment := drain(alloc.Food, &liquid)
	p.FoodBalance = p.FoodBalance + foodCost - foodPayment
	if foodPayment > 0 {
		summary = append(summary, SummaryEntry{
			Code: SummaryFoodPaid, Category: CategoryFood, Amount: foodPayment,
			Text: fmt.Sprintf("You paid %d coins for food/housing.", foodPayment),
		})
	}
	if p.FoodBalance > 0 {
		summary = append(summary, SummaryEntry{
			Code: SummaryFoodDebt, Category: CategoryFood, Amount: p.FoodBalance,
			Text: fmt.Sprintf("You have %d coins of food debt remaining.", p.FoodBalance),
		})
	} else if p.FoodBalance < 0 {
		summary = append(summary, SummaryEntry{
			Code: SummaryFoodCredit, Category: CategoryFood, Amount: -p.FoodBalance,
			Text: fmt.Sprintf("You have %d coins of food credit.", -p.FoodBalance),
		})
	}

	shortPayment := drain(alloc.Short, &liquid)
	p.Balances.Short += shortPayment
	longPayment := drain(alloc.Long, &liquid)
	p.Balances.Long += longPayment
	emergencyPayment := drain(alloc.Emergency, &liquid)
	p.Balances.Emergency += emergencyPayment

	// Whatever wasn't affordable stays liquid.
	p.LiquidCoins = liquid

	summary = append(summary,
		SummaryEntry{
			Code: SummaryInvested,
			Text: fmt.Sprintf("Added to short-term: %d, long-term: %d, emergency: %d.",
				shortPayment, longPayment, emergencyPayment),
		},
		SummaryEntry{
			Code: SummaryLiquidRemaining, Amount: p.LiquidCoins,
			Text: fmt.Sprintf("You have %d liquid coins remaining.", p.LiquidCoins),
		},
	)

	incomeFromShort := p.Balances.Short / shortRatio
	incomeFromLong := p.Balances.Long / longRatio
	incomeBoost := 0
	if ev := s.CurrentEvent; ev != nil && ev.Effect.Kind == EffectIncomeBoost {
		incomeBoost = ev.Effect.Value
		summary = append(summary, SummaryEntry{
			Code: SummaryIncomeBoost, Amount: incomeBoost,
			Text: fmt.Sprintf("Gained an income boost of %d from event: %s.", incomeBoost, ev.Title),
		})
	}

	// The whole food balance penalizes (or boosts) next income AND still
	// carries forward into next round's food payment. A credit therefore
	// counts twice. This mirrors the original game exactly; see DESIGN.md.
	p.NextIncome = e.rules.BaseIncome + incomeFromShort + incomeFromLong + incomeBoost - p.FoodBalance - debtPaid

	summary = append(summary,
		SummaryEntry{
			Code: SummaryBaseIncome, Amount: e.rules.BaseIncome,
			Text: fmt.Sprintf("Base income for next round: %d coins.", e.rules.BaseIncome),
		},
		SummaryEntry{
			Code: SummaryIncomeShort, Category: CategoryShort, Amount: incomeFromShort,
			Text: fmt.Sprintf("Income from short-term: %d coins.", incomeFromShort),
		},
		SummaryEntry{
			Code: SummaryIncomeLong, Category: CategoryLong, Amount: incomeFromLong,
			Text: fmt.Sprintf("Income from long-term: %d coins.", incomeFromLong),
		},
	)
	if p.FoodBalance > 0 {
		summary = append(summary, SummaryEntry{
			Code: SummaryDebtPenalty, Category: CategoryFood, Amount: p.FoodBalance,
			Text: fmt.Sprintf("Penalty from food debt: -%d coins.", p.FoodBalance),
		})
	}
	if debtPaid > 0 {
		summary = append(summary, SummaryEntry{
			Code: SummaryDebtPenalty, Amount: debtPaid,
			Text: fmt.Sprintf("Penalty from event debt: -%d coins.", debtPaid),
		})
	}
	summary = append(summary, SummaryEntry{
		Code: SummaryNextIncome, Amount: p.NextIncome,
		Text: fmt.Sprintf("Total income for next round: %d coins.", p.NextIncome),
	})

	if ev := s.CurrentEvent; ev != nil && ev.Effect.Kind == EffectWaiveFoodCost {
		p.FoodCostWaived = true
	}

	p.LastRoundSummary = summary
}

// finalize ends the game: invested balances flow back into liquid coins, the
// long-term bonus is applied, and the leaderboard is built. GAME_OVER is
// terminal and the leaderboard never changes afterwards.
func (e *Engine) finalize(s *GameState) {
	s.Phase = PhaseGameOver

	players := s.sortedPlayers()
	for _, p := range players {
		p.LiquidCoins += p.Balances.Total()
		p.LiquidCoins += p.Balances.Long / e.rules.LongBonusRatio
	}

	entries := make([]LeaderboardEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, LeaderboardEntry{Name: p.Name, TotalCoins: p.LiquidCoins})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalCoins > entries[j].TotalCoins
	})
	if len(entries) > leaderboardSize {
		entries = entries[:leaderboardSize]
	}
	s.Leaderboard = entries

	e.logger.Info("Game over", "rounds", s.CurrentRound, "players", len(players))
}

// drain removes up to requested coins from the liquid pool and returns the
// amount removed. A depleted (or negative) pool pays nothing.
func drain(requested int, liquid *int) int {
	if requested <= 0 || *liquid <= 0 {
		return 0
	}
	paid := requested
	if paid > *liquid {
		paid = *liquid
	}
	*liquid -= paid
	return paid
}
