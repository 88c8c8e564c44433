package engine

import (
	"fmt"
)

// StartRound begins a new round. Legal only from WAITING_FOR_PLAYERS or
// ROUND_END with at least one participant. Each participant's pending income
// is credited to their liquid coins and becomes this round's allocation
// budget; all round-scoped fields are cleared.
func (e *Engine) StartRound(s *GameState) error {
	if !s.GMAuthorized {
		return ErrUnauthorized
	}
	if s.Phase != PhaseWaitingForPlayers && s.Phase != PhaseRoundEnd {
		return fmt.Errorf("%w: cannot start a round from %s", ErrInvalidPhase, s.Phase)
	}
	if len(s.Players) == 0 {
		return fmt.Errorf("%w: at least one participant is required", ErrValidation)
	}

	s.CurrentRound++
	s.Phase = PhaseAllocation
	s.CurrentEvent = nil

	for _, p := range s.Players {
		p.LiquidCoins += p.NextIncome
		p.RoundBudget = p.NextIncome
		p.CurrentAllocation = nil
		p.PendingAction = nil
		p.Adjustments = nil
		p.HasResolved = false
	}

	e.logger.Info("Round started", "round", s.CurrentRound, "players", len(s.Players))
	return nil
}

// SubmitAllocation records a participant's proposed split of this round's
// budget. The split must be non-negative and sum exactly to the budget.
// Allocation only records intent; coins move at settlement.
func (e *Engine) SubmitAllocation(s *GameState, id string, alloc Allocation) error {
	if s.Phase != PhaseAllocation {
		return fmt.Errorf("%w: allocations are only accepted during %s", ErrInvalidPhase, PhaseAllocation)
	}
	p, err := s.Participant(id)
	if err != nil {
		return err
	}
	if alloc.Food < 0 || alloc.Short < 0 || alloc.Long < 0 || alloc.Emergency < 0 {
		return fmt.Errorf("%w: allocation values must not be negative", ErrValidation)
	}
	if alloc.Total() != p.RoundBudget {
		return fmt.Errorf("%w: allocation must sum to %d, got %d", ErrValidation, p.RoundBudget, alloc.Total())
	}

	p.CurrentAllocation = &alloc
	p.HasResolved = true

	e.logger.Debug("Allocation submitted", "participant", p.Name, "total", alloc.Total())
	return nil
}

// DrawEvent draws an event card for the round. Legal only during ALLOCATION
// once every participant has submitted. Events that demand a decision put
// every participant on a pending action and move to EVENT_RESOLUTION;
// automatic events apply immediately and move to EVENT_DRAWN.
func (e *Engine) DrawEvent(s *GameState) error {
	if !s.GMAuthorized {
		return ErrUnauthorized
	}
	if s.Phase != PhaseAllocation {
		return fmt.Errorf("%w: cannot draw an event from %s", ErrInvalidPhase, s.Phase)
	}
	if !s.allAllocated() {
		return fmt.Errorf("%w: not every participant has submitted an allocation", ErrValidation)
	}

	ev := e.catalog.Draw(e.rng)
	s.CurrentEvent = &ev

	for _, p := range s.Players {
		p.HasResolved = false
		p.PendingAction = nil
		p.Adjustments = nil
	}

	effect := ev.Effect
	switch {
	case effect.Kind == EffectCoinChange && effect.ParticipantChoice:
		s.Phase = PhaseEventResolution
		amount := abs(effect.Value)
		for _, p := range s.Players {
			p.PendingAction = &PendingAction{Kind: ActionDistributeLoss, Amount: amount}
		}

	case effect.Kind == EffectCoinChange && effect.Coverable &&
		effect.Category != CategoryTotal && effect.Category != CategoryEmergency:
		s.Phase = PhaseEventResolution
		amount := abs(effect.Value)
		for _, p := range s.Players {
			p.PendingAction = &PendingAction{
				Kind:           ActionCoverLoss,
				Amount:         amount,
				TargetCategory: effect.Category,
			}
		}

	case effect.Kind == EffectCoinChange && effect.Value > 0:
		s.Phase = PhaseEventResolution
		for _, p := range s.Players {
			p.PendingAction = &PendingAction{Kind: ActionAllocateBonus, Amount: effect.Value}
		}

	default:
		// Automatic event: negative non-choice coin changes apply now, the
		// rest (rule change, income boost, food waiver) are picked up by
		// settlement.
		s.Phase = PhaseEventDrawn
		if effect.Kind == EffectCoinChange && effect.Value < 0 {
			e.applyAutomaticLoss(s, effect)
		}
	}

	e.logger.Info("Event drawn", "event", ev.Title, "kind", ev.Effect.Kind, "phase", s.Phase)
	return nil
}

// applyAutomaticLoss applies a negative coin change to every participant who
// has an allocation set, clamping at zero and recording the adjustment.
// CategoryTotal debits liquid coins; other categories debit the round
// allocation.
func (e *Engine) applyAutomaticLoss(s *GameState, effect Effect) {
	for _, p := range s.Players {
		if p.CurrentAllocation == nil {
			continue
		}
		if effect.Category == CategoryTotal {
			from := p.LiquidCoins
			to := from + effect.Value
			if to < 0 {
				to = 0
			}
			if from != to {
				p.LiquidCoins = to
				p.Adjustments = append(p.Adjustments, Adjustment{Category: CategoryTotal, From: from, To: to})
			}
			continue
		}
		from := p.CurrentAllocation.Get(effect.Category)
		to := from + effect.Value
		if to < 0 {
			to = 0
		}
		if from != to {
			p.CurrentAllocation.Set(effect.Category, to)
			p.Adjustments = append(p.Adjustments, Adjustment{Category: effect.Category, From: from, To: to})
		}
	}
}

// EndRound settles the round. Legal only from EVENT_DRAWN.
func (e *Engine) EndRound(s *GameState) error {
	if !s.GMAuthorized {
		return ErrUnauthorized
	}
	if s.Phase != PhaseEventDrawn {
		return fmt.Errorf("%w: cannot end the round from %s", ErrInvalidPhase, s.Phase)
	}
	e.settleRound(s)
	return nil
}

// ForceEndRound resolves every outstanding pending action with its default
// policy and then settles the round. Legal only from EVENT_RESOLUTION.
//
// The defaults are deliberately harsher than the participant-initiated
// paths: a distribute-loss comes straight off liquid coins (which may go
// negative), an uncovered specific loss is simply lost from the target
// category rather than tracked as debt, and an unclaimed bonus is forfeited.
func (e *Engine) ForceEndRound(s *GameState) error {
	if !s.GMAuthorized {
		return ErrUnauthorized
	}
	if s.Phase != PhaseEventResolution {
		return fmt.Errorf("%w: cannot force-end the round from %s", ErrInvalidPhase, s.Phase)
	}

	for _, p := range s.Players {
		if p.PendingAction == nil {
			continue
		}
		switch p.PendingAction.Kind {
		case ActionDistributeLoss:
			p.LiquidCoins -= p.PendingAction.Amount
		case ActionCoverLoss:
			p.Balances.Debit(p.PendingAction.TargetCategory, p.PendingAction.Amount)
		case ActionAllocateBonus:
			// Forfeited.
		}
		p.PendingAction = nil
		e.logger.Debug("Applied default resolution", "participant", p.Name)
	}

	e.settleRound(s)
	return nil
}

// EndGameEarly skips the remaining rounds and finalizes immediately
func (e *Engine) EndGameEarly(s *GameState) error {
	if !s.GMAuthorized {
		return ErrUnauthorized
	}
	if s.Phase == PhaseGameOver {
		return fmt.Errorf("%w: game is already over", ErrInvalidPhase)
	}
	e.finalize(s)
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
