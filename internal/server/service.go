package server

import (
	"errors"

	"github.com/charmbracelet/log"

	"github.com/tanakrit/coinquest/internal/auth"
	"github.com/tanakrit/coinquest/internal/engine"
	"github.com/tanakrit/coinquest/internal/store"
)

// GameService exposes the engine's operations to the transport layer. Every
// operation maps 1:1 to a transactional transform against the store.
type GameService struct {
	store     *store.Store
	engine    *engine.Engine
	validator auth.Validator
	logger    *log.Logger
}

// NewGameService creates a game service
func NewGameService(st *store.Store, eng *engine.Engine, validator auth.Validator, logger *log.Logger) *GameService {
	return &GameService{
		store:     st,
		engine:    eng,
		validator: validator,
		logger:    logger.WithPrefix("service"),
	}
}

// Join creates a participant and returns its id
func (gs *GameService) Join(name string) (string, *engine.GameState, error) {
	var id string
	state, err := gs.store.Update(func(s *engine.GameState) error {
		var err error
		id, err = gs.engine.CreateParticipant(s, name)
		return err
	})
	return id, state, err
}

// Leave removes a participant from the waiting room
func (gs *GameService) Leave(id string) (*engine.GameState, error) {
	return gs.store.Update(func(s *engine.GameState) error {
		return gs.engine.RemoveParticipant(s, id)
	})
}

// GMLogin verifies the GM password and records the authorization
func (gs *GameService) GMLogin(password string) (*engine.GameState, error) {
	if err := gs.validator.Validate(password); err != nil {
		gs.logger.Warn("GM login rejected")
		return gs.store.Snapshot(), err
	}
	return gs.store.Update(func(s *engine.GameState) error {
		return gs.engine.AuthorizeGM(s)
	})
}

// StartRound begins a new round
func (gs *GameService) StartRound() (*engine.GameState, error) {
	return gs.store.Update(gs.engine.StartRound)
}

// SubmitAllocation records a participant's allocation for the round
func (gs *GameService) SubmitAllocation(id string, alloc engine.Allocation) (*engine.GameState, error) {
	return gs.store.Update(func(s *engine.GameState) error {
		return gs.engine.SubmitAllocation(s, id, alloc)
	})
}

// DrawEvent draws the round's event card
func (gs *GameService) DrawEvent() (*engine.GameState, error) {
	return gs.store.Update(gs.engine.DrawEvent)
}

// ResolveDistributeLoss submits a distribute-loss decision
func (gs *GameService) ResolveDistributeLoss(id string, split engine.LossSplit) (*engine.GameState, error) {
	return gs.store.Update(func(s *engine.GameState) error {
		return gs.engine.ResolveDistributeLoss(s, id, split)
	})
}

// ResolveCoverLoss submits a cover-loss decision
func (gs *GameService) ResolveCoverLoss(id string, fromTarget, fromEmergency int) (*engine.GameState, error) {
	return gs.store.Update(func(s *engine.GameState) error {
		return gs.engine.ResolveCoverLoss(s, id, fromTarget, fromEmergency)
	})
}

// ResolveAllocateBonus submits an allocate-bonus decision
func (gs *GameService) ResolveAllocateBonus(id string, split engine.LossSplit) (*engine.GameState, error) {
	return gs.store.Update(func(s *engine.GameState) error {
		return gs.engine.ResolveAllocateBonus(s, id, split)
	})
}

// EndRound settles the round
func (gs *GameService) EndRound() (*engine.GameState, error) {
	return gs.store.Update(gs.engine.EndRound)
}

// ForceEndRound default-resolves outstanding decisions and settles the round
func (gs *GameService) ForceEndRound() (*engine.GameState, error) {
	return gs.store.Update(gs.engine.ForceEndRound)
}

// EndGameEarly finalizes the game immediately
func (gs *GameService) EndGameEarly() (*engine.GameState, error) {
	return gs.store.Update(gs.engine.EndGameEarly)
}

// Reset discards the game state
func (gs *GameService) Reset() (*engine.GameState, error) {
	return gs.store.Update(gs.engine.Reset)
}

// AcknowledgeSummary clears a participant's round summary
func (gs *GameService) AcknowledgeSummary(id string) (*engine.GameState, error) {
	return gs.store.Update(func(s *engine.GameState) error {
		return gs.engine.AcknowledgeSummary(s, id)
	})
}

// GetState returns a read-only snapshot without taking the record lock
func (gs *GameService) GetState() *engine.GameState {
	return gs.store.Snapshot()
}

// ErrorCode classifies a domain error for the wire protocol
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrInvalidPhase):
		return "invalid_phase"
	case errors.Is(err, engine.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, engine.ErrNotFound):
		return "not_found"
	case errors.Is(err, engine.ErrValidation):
		return "validation_failed"
	case errors.Is(err, store.ErrBusy):
		return "busy"
	case errors.Is(err, auth.ErrInvalidPassword):
		return "invalid_password"
	default:
		return "internal_error"
	}
}
