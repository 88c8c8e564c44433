package engine

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/tanakrit/coinquest/internal/randutil"
)

// runRound submits the allocation for every participant, draws the event and
// ends the round through whichever phase the draw landed in
func runRound(t *testing.T, e *Engine, s *GameState, ids []string, alloc Allocation) {
	t.Helper()
	submitAll(t, e, s, ids, alloc)
	if err := e.DrawEvent(s); err != nil {
		t.Fatalf("DrawEvent failed: %v", err)
	}
	switch s.Phase {
	case PhaseEventDrawn:
		if err := e.EndRound(s); err != nil {
			t.Fatalf("EndRound failed: %v", err)
		}
	case PhaseEventResolution:
		if err := e.ForceEndRound(s); err != nil {
			t.Fatalf("ForceEndRound failed: %v", err)
		}
	default:
		t.Fatalf("unexpected phase %s after draw", s.Phase)
	}
}

func neutralEvent() Event {
	return Event{
		ID: "neutral", Title: "Interest Rate Change",
		Effect: Effect{Kind: EffectRuleChange, Category: CategoryShort, NewRatio: 3},
	}
}

func TestSettlement_BasicRound(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, neutralEvent())
	s := NewGameState()
	ids := startGame(t, e, s, "Alice")

	runRound(t, e, s, ids, Allocation{Food: 5, Short: 3, Long: 2})

	p := s.Players[ids[0]]
	if p.LiquidCoins != 0 {
		t.Errorf("LiquidCoins = %d, want 0", p.LiquidCoins)
	}
	if p.Balances != (Balances{Short: 3, Long: 2}) {
		t.Errorf("Balances = %+v, want {3 2 0}", p.Balances)
	}
	if p.FoodBalance != 0 {
		t.Errorf("FoodBalance = %d, want 0", p.FoodBalance)
	}
	// 10 base + 3/3 short + 2/4 long = 11
	if p.NextIncome != 11 {
		t.Errorf("NextIncome = %d, want 11", p.NextIncome)
	}
	if s.Phase != PhaseRoundEnd {
		t.Errorf("Phase = %s, want %s", s.Phase, PhaseRoundEnd)
	}
	if len(p.LastRoundSummary) == 0 {
		t.Error("expected a round summary")
	}
}

func TestSettlement_RuleChangeOverridesRatioForOneRound(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Event{
		ID: "ev", Title: "Interest Rate Change",
		Effect: Effect{Kind: EffectRuleChange, Category: CategoryShort, NewRatio: 4},
	})
	s := NewGameState()
	ids := startGame(t, e, s, "Alice")

	runRound(t, e, s, ids, Allocation{Food: 5, Short: 3, Long: 2})

	// 3 short at the overridden 4:1 ratio earns nothing.
	p := s.Players[ids[0]]
	if p.NextIncome != 10 {
		t.Errorf("NextIncome = %d, want 10 under the 4:1 override", p.NextIncome)
	}
}

func TestSettlement_FoodDebtPenalizesIncomeAndCarries(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, neutralEvent())
	s := NewGameState()
	ids := startGame(t, e, s, "Alice")

	// Nothing allocated to food: the 5-coin cost goes unpaid.
	runRound(t, e, s, ids, Allocation{Short: 10})

	p := s.Players[ids[0]]
	if p.FoodBalance != 5 {
		t.Errorf("FoodBalance = %d, want 5", p.FoodBalance)
	}
	// 10 base + 10/3 short - 5 food debt = 8
	if p.NextIncome != 8 {
		t.Errorf("NextIncome = %d, want 8", p.NextIncome)
	}
	if !hasSummaryCode(p.LastRoundSummary, SummaryFoodDebt) {
		t.Error("summary should report food debt")
	}
	if !hasSummaryCode(p.LastRoundSummary, SummaryDebtPenalty) {
		t.Error("summary should report the income penalty")
	}

	// The debt carries: next round, paying 10 to food clears 5 + 5... the
	// payment only covers what liquid affords.
	if err := e.StartRound(s); err != nil {
		t.Fatal(err)
	}
	if p.LiquidCoins != 8 {
		t.Fatalf("LiquidCoins = %d entering round 2, want 8", p.LiquidCoins)
	}
	runRound(t, e, s, ids, Allocation{Food: 8})
	// Paid 8 against balance 5 + cost 5: 2 debt remains.
	if p.FoodBalance != 2 {
		t.Errorf("FoodBalance = %d after round 2, want 2", p.FoodBalance)
	}
}

func TestSettlement_FoodCreditCountsTwice(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, neutralEvent())
	s := NewGameState()
	ids := startGame(t, e, s, "Alice")

	// Overpay food: 10 paid against a 5-coin cost leaves a 5-coin credit.
	runRound(t, e, s, ids, Allocation{Food: 10})

	p := s.Players[ids[0]]
	if p.FoodBalance != -5 {
		t.Errorf("FoodBalance = %d, want -5 (credit)", p.FoodBalance)
	}
	// The credit boosts next income: 10 - (-5) = 15.
	if p.NextIncome != 15 {
		t.Errorf("NextIncome = %d, want 15", p.NextIncome)
	}
	if !hasSummaryCode(p.LastRoundSummary, SummaryFoodCredit) {
		t.Error("summary should report food credit")
	}

	// And it still reduces next round's food bill: balance -5 + cost 5 = 0
	// before any payment.
	if err := e.StartRound(s); err != nil {
		t.Fatal(err)
	}
	runRound(t, e, s, ids, Allocation{Short: 15})
	if p.FoodBalance != 0 {
		t.Errorf("FoodBalance = %d after round 2, want 0", p.FoodBalance)
	}
}

func TestSettlement_EventDebtClearsWithPenalty(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, neutralEvent())
	s := NewGameState()
	ids := startGame(t, e, s, "Alice")
	p := s.Players[ids[0]]
	p.EventDebt = 3
	p.EventDebtLog = []string{"Incurred 3 debt from \"Scammed!\""}

	runRound(t, e, s, ids, Allocation{Food: 5, Short: 5})

	if p.EventDebt != 0 || p.EventDebtLog != nil {
		t.Errorf("event debt not cleared: %d, %v", p.EventDebt, p.EventDebtLog)
	}
	// 10 base + 5/3 short - 3 debt = 8
	if p.NextIncome != 8 {
		t.Errorf("NextIncome = %d, want 8", p.NextIncome)
	}
	if !hasSummaryCode(p.LastRoundSummary, SummaryDebtPaid) {
		t.Error("summary should report the debt payment")
	}
}

func TestSettlement_IncomeBoost(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Event{
		ID: "ev", Title: "Inheritance",
		Effect: Effect{Kind: EffectIncomeBoost, Value: 10},
	})
	s := NewGameState()
	ids := startGame(t, e, s, "Alice")

	runRound(t, e, s, ids, Allocation{Food: 5, Short: 5})

	p := s.Players[ids[0]]
	// 10 base + 5/3 short + 10 boost = 21
	if p.NextIncome != 21 {
		t.Errorf("NextIncome = %d, want 21", p.NextIncome)
	}
	if !hasSummaryCode(p.LastRoundSummary, SummaryIncomeBoost) {
		t.Error("summary should report the boost")
	}
}

func TestSettlement_FoodWaiverAppliesNextRound(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Event{
		ID: "ev", Title: "Free Food for a Year!",
		Effect: Effect{Kind: EffectWaiveFoodCost},
	})
	s := NewGameState()
	ids := startGame(t, e, s, "Alice")
	p := s.Players[ids[0]]

	// The waiver round itself still charges food.
	runRound(t, e, s, ids, Allocation{Food: 5, Short: 5})
	if p.FoodBalance != 0 {
		t.Fatalf("FoodBalance = %d in the waiver round, want 0", p.FoodBalance)
	}
	if !p.FoodCostWaived {
		t.Fatal("FoodCostWaived should be set for next round")
	}

	// Next round is free: nothing allocated to food, no debt.
	if err := e.StartRound(s); err != nil {
		t.Fatal(err)
	}
	budget := p.RoundBudget
	runRound(t, e, s, ids, Allocation{Short: budget})
	if p.FoodBalance != 0 {
		t.Errorf("FoodBalance = %d with waived cost, want 0", p.FoodBalance)
	}
	if p.FoodCostWaived {
		t.Error("waiver should be consumed after one round")
	}
	if !hasSummaryCode(p.LastRoundSummary, SummaryFoodWaived) {
		t.Error("summary should report the waiver")
	}
}

func TestSettlement_UnaffordableAllocationsStayLiquid(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Event{
		ID: "ev", Title: "Fire!",
		Effect: Effect{Kind: EffectCoinChange, Category: CategoryTotal, Value: -5, ParticipantChoice: true},
	})
	s := NewGameState()
	ids := startGame(t, e, s, "Alice")
	p := s.Players[ids[0]]

	submitAll(t, e, s, ids, Allocation{Food: 2, Short: 8})
	if err := e.DrawEvent(s); err != nil {
		t.Fatal(err)
	}
	// Forced default drains 5 off liquid: 5 left for a 10-coin plan.
	if err := e.ForceEndRound(s); err != nil {
		t.Fatal(err)
	}

	if p.FoodBalance != 3 {
		t.Errorf("FoodBalance = %d, want 3 (only 2 paid of the 5 cost)", p.FoodBalance)
	}
	if p.Balances.Short != 3 {
		t.Errorf("Short = %d, want the affordable 3 of the allocated 8", p.Balances.Short)
	}
	if p.LiquidCoins != 0 {
		t.Errorf("LiquidCoins = %d, want 0", p.LiquidCoins)
	}
	if p.Balances.Short < 0 || p.Balances.Long < 0 || p.Balances.Emergency < 0 {
		t.Errorf("category balances must never go negative: %+v", p.Balances)
	}
}

func TestSettlement_NegativeLiquidPaysNothing(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Event{
		ID: "ev", Title: "Fire!",
		Effect: Effect{Kind: EffectCoinChange, Category: CategoryTotal, Value: -15, ParticipantChoice: true},
	})
	s := NewGameState()
	ids := startGame(t, e, s, "Alice")
	p := s.Players[ids[0]]
	p.Balances = Balances{Short: 4}

	submitAll(t, e, s, ids, Allocation{Food: 5, Short: 5})
	if err := e.DrawEvent(s); err != nil {
		t.Fatal(err)
	}
	// Forced default: liquid 10 - 15 = -5.
	if err := e.ForceEndRound(s); err != nil {
		t.Fatal(err)
	}

	if p.Balances.Short != 4 {
		t.Errorf("Short = %d, a negative pool must not add or drain savings", p.Balances.Short)
	}
	if p.LiquidCoins != -5 {
		t.Errorf("LiquidCoins = %d, want -5 preserved", p.LiquidCoins)
	}
	if p.FoodBalance != 5 {
		t.Errorf("FoodBalance = %d, want the full unpaid cost", p.FoodBalance)
	}
}

func TestSettlement_GameOverAfterMaxRounds(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	rules.MaxRounds = 2
	e := New(rules, NewCatalog([]Event{neutralEvent()}), randutil.New(1), log.New(io.Discard))
	e.SetIDFunc(func() string { return "p1" })

	s := NewGameState()
	ids := startGame(t, e, s, "Alice")

	runRound(t, e, s, ids, Allocation{Food: 5, Short: 3, Long: 2})
	if s.Phase != PhaseRoundEnd {
		t.Fatalf("Phase = %s after round 1, want %s", s.Phase, PhaseRoundEnd)
	}

	if err := e.StartRound(s); err != nil {
		t.Fatal(err)
	}
	p := s.Players[ids[0]]
	budget := p.RoundBudget
	runRound(t, e, s, ids, Allocation{Food: 5, Long: budget - 5})

	if s.Phase != PhaseGameOver {
		t.Fatalf("Phase = %s after the final round, want %s", s.Phase, PhaseGameOver)
	}
	if len(s.Leaderboard) != 1 {
		t.Fatalf("Leaderboard has %d entries, want 1", len(s.Leaderboard))
	}
	// Final total: liquid + invested + long/2 bonus.
	wantTotal := p.LiquidCoins
	if s.Leaderboard[0].TotalCoins != wantTotal {
		t.Errorf("Leaderboard total = %d, want %d", s.Leaderboard[0].TotalCoins, wantTotal)
	}
}

func TestFinalize_LeaderboardOrderAndTruncation(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	s := NewGameState()

	names := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"}
	ids := make([]string, 0, len(names))
	for _, name := range names {
		ids = append(ids, join(t, e, s, name))
	}
	if err := e.AuthorizeGM(s); err != nil {
		t.Fatal(err)
	}
	for i, id := range ids {
		s.Players[id].LiquidCoins = i * 10
	}

	if err := e.EndGameEarly(s); err != nil {
		t.Fatalf("EndGameEarly failed: %v", err)
	}

	if len(s.Leaderboard) != 10 {
		t.Fatalf("Leaderboard has %d entries, want the top 10 of 12", len(s.Leaderboard))
	}
	if s.Leaderboard[0].Name != "L" || s.Leaderboard[0].TotalCoins != 110 {
		t.Errorf("Leaderboard[0] = %+v, want L with 110", s.Leaderboard[0])
	}
	for i := 1; i < len(s.Leaderboard); i++ {
		if s.Leaderboard[i].TotalCoins > s.Leaderboard[i-1].TotalCoins {
			t.Fatalf("Leaderboard not descending at %d: %+v", i, s.Leaderboard)
		}
	}
}

func hasSummaryCode(entries []SummaryEntry, code string) bool {
	for _, entry := range entries {
		if entry.Code == code {
			return true
		}
	}
	return false
}
