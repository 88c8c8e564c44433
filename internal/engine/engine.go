// Package engine implements the game rules as pure transforms over a
// GameState. Every operation mutates the state it is handed and returns a
// domain error when the operation is illegal; callers run them inside the
// store's transactional primitive, which hands out a private clone and
// discards it on error.
package engine

import (
	"fmt"
	rand "math/rand/v2"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/tanakrit/coinquest/internal/playerid"
)

// Engine applies game operations to a GameState
type Engine struct {
	rules   Rules
	catalog *Catalog
	rng     *rand.Rand
	logger  *log.Logger
	newID   func() string
}

// New creates an engine with the given rules, event catalog and random source
func New(rules Rules, catalog *Catalog, rng *rand.Rand, logger *log.Logger) *Engine {
	return &Engine{
		rules:   rules,
		catalog: catalog,
		rng:     rng,
		logger:  logger.WithPrefix("engine"),
		newID:   playerid.Generate,
	}
}

// Rules returns the engine's rules
func (e *Engine) Rules() Rules {
	return e.rules
}

// SetIDFunc overrides participant id generation, for deterministic tests
func (e *Engine) SetIDFunc(fn func() string) {
	e.newID = fn
}

// CreateParticipant adds a new participant and returns its generated id.
// Participants can only join while the game is waiting for players. Names are
// limited to 30 characters and must be unique, compared case-insensitively.
func (e *Engine) CreateParticipant(s *GameState, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len([]rune(name)) > maxNameLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrValidation, maxNameLength)
	}
	if s.FindByName(name) != nil {
		return "", fmt.Errorf("%w: name %q is already taken", ErrValidation, name)
	}
	if s.Phase != PhaseWaitingForPlayers {
		return "", fmt.Errorf("%w: game has already started", ErrInvalidPhase)
	}

	id := e.newID()
	s.Players[id] = &Participant{
		ID:           id,
		Name:         name,
		NextIncome:   e.rules.BaseIncome,
		EventDebtLog: []string{},
	}

	e.logger.Info("Participant joined", "id", id, "name", name, "players", len(s.Players))
	return id, nil
}

// RemoveParticipant removes a participant. Only legal while waiting for
// players; once a round has started, identities are fixed for the game.
func (e *Engine) RemoveParticipant(s *GameState, id string) error {
	if s.Phase != PhaseWaitingForPlayers {
		return fmt.Errorf("%w: participants can only leave before the game starts", ErrInvalidPhase)
	}
	if _, err := s.Participant(id); err != nil {
		return err
	}
	delete(s.Players, id)
	e.logger.Info("Participant left", "id", id, "players", len(s.Players))
	return nil
}

// AuthorizeGM marks the GM as authorized. The password check happens at the
// transport layer; the engine only records the resulting authorization.
func (e *Engine) AuthorizeGM(s *GameState) error {
	s.GMAuthorized = true
	return nil
}

// AcknowledgeSummary clears a participant's last round summary
func (e *Engine) AcknowledgeSummary(s *GameState, id string) error {
	p, err := s.Participant(id)
	if err != nil {
		return err
	}
	p.LastRoundSummary = nil
	return nil
}

// Reset discards the game and reinitializes to the waiting phase at round
// zero. GM authorization is cleared along with everything else.
func (e *Engine) Reset(s *GameState) error {
	if !s.GMAuthorized {
		return ErrUnauthorized
	}
	*s = *NewGameState()
	e.logger.Info("Game reset")
	return nil
}
