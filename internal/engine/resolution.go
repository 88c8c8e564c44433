package engine

import (
	"fmt"
)

// LossSplit is a participant's proposed split of a loss or bonus across the
// three investment categories. Food is never a legal target.
type LossSplit struct {
	Short     int `json:"short"`
	Long      int `json:"long"`
	Emergency int `json:"emergency"`
}

// Total returns the sum of the split
func (l LossSplit) Total() int {
	return l.Short + l.Long + l.Emergency
}

func (l LossSplit) validate() error {
	if l.Short < 0 || l.Long < 0 || l.Emergency < 0 {
		return fmt.Errorf("%w: split values must not be negative", ErrValidation)
	}
	return nil
}

// ResolveDistributeLoss pays a distribute-loss event from the participant's
// investment balances, in the order short, long, emergency. Each category
// pays at most what it holds; partial payment is allowed and any shortfall
// becomes event debt.
func (e *Engine) ResolveDistributeLoss(s *GameState, id string, split LossSplit) error {
	p, err := e.pendingFor(s, id, ActionDistributeLoss)
	if err != nil {
		return err
	}
	if err := split.validate(); err != nil {
		return err
	}

	paid := p.Balances.Debit(CategoryShort, split.Short)
	paid += p.Balances.Debit(CategoryLong, split.Long)
	paid += p.Balances.Debit(CategoryEmergency, split.Emergency)

	e.settleShortfall(s, p, p.PendingAction.Amount-paid)
	e.completeResolution(s, p)
	return nil
}

// ResolveCoverLoss pays a cover-loss event from the target category and the
// emergency fund. Partial payment is allowed; any shortfall becomes event
// debt.
func (e *Engine) ResolveCoverLoss(s *GameState, id string, fromTarget, fromEmergency int) error {
	p, err := e.pendingFor(s, id, ActionCoverLoss)
	if err != nil {
		return err
	}
	if fromTarget < 0 || fromEmergency < 0 {
		return fmt.Errorf("%w: coverage values must not be negative", ErrValidation)
	}

	paid := p.Balances.Debit(p.PendingAction.TargetCategory, fromTarget)
	paid += p.Balances.Debit(CategoryEmergency, fromEmergency)

	e.settleShortfall(s, p, p.PendingAction.Amount-paid)
	e.completeResolution(s, p)
	return nil
}

// ResolveAllocateBonus banks a bonus event into the participant's investment
// balances. Unlike losses, the split must sum exactly to the bonus amount;
// anything else is rejected with no state change.
func (e *Engine) ResolveAllocateBonus(s *GameState, id string, split LossSplit) error {
	p, err := e.pendingFor(s, id, ActionAllocateBonus)
	if err != nil {
		return err
	}
	if err := split.validate(); err != nil {
		return err
	}
	if split.Total() != p.PendingAction.Amount {
		return fmt.Errorf("%w: bonus split must sum to exactly %d, got %d",
			ErrValidation, p.PendingAction.Amount, split.Total())
	}

	p.Balances.Credit(CategoryShort, split.Short)
	p.Balances.Credit(CategoryLong, split.Long)
	p.Balances.Credit(CategoryEmergency, split.Emergency)
	p.LiquidCoins += split.Total()

	e.completeResolution(s, p)
	return nil
}

// pendingFor validates the common preconditions of a resolution submission
// and returns the participant
func (e *Engine) pendingFor(s *GameState, id string, kind ActionKind) (*Participant, error) {
	if s.Phase != PhaseEventResolution {
		return nil, fmt.Errorf("%w: resolutions are only accepted during %s", ErrInvalidPhase, PhaseEventResolution)
	}
	p, err := s.Participant(id)
	if err != nil {
		return nil, err
	}
	if p.PendingAction == nil || p.PendingAction.Kind != kind {
		return nil, fmt.Errorf("%w: no pending %s action for this participant", ErrValidation, kind)
	}
	return p, nil
}

// settleShortfall routes the unpaid portion of a loss into event debt
func (e *Engine) settleShortfall(s *GameState, p *Participant, shortfall int) {
	if shortfall <= 0 {
		return
	}
	p.EventDebt += shortfall
	title := ""
	if s.CurrentEvent != nil {
		title = s.CurrentEvent.Title
	}
	p.EventDebtLog = append(p.EventDebtLog, fmt.Sprintf("Incurred %d debt from %q", shortfall, title))
	e.logger.Debug("Shortfall routed to event debt", "participant", p.Name, "shortfall", shortfall)
}

// completeResolution clears the pending action and auto-advances the phase
// once nobody owes a decision
func (e *Engine) completeResolution(s *GameState, p *Participant) {
	p.PendingAction = nil
	p.HasResolved = true
	if s.allResolved() {
		s.Phase = PhaseEventDrawn
		e.logger.Info("All participants resolved, event complete")
	}
}
