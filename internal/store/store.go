// Package store holds the single shared game record and serializes every
// mutation through a transactional primitive: acquire the record lock, clone
// the committed state, run the transform on the clone, persist, release.
// Transactions are linearized; a transform always observes the result of
// every transform that committed before it started.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/tanakrit/coinquest/internal/engine"
	"github.com/tanakrit/coinquest/internal/fileutil"
)

// ErrBusy indicates the record lock could not be acquired within the retry
// budget. The transaction had no effect; callers are expected to retry.
var ErrBusy = errors.New("game state is busy")

const (
	lockRetries        = 5
	lockInitialBackoff = 25 * time.Millisecond
	lockMaxBackoff     = 250 * time.Millisecond

	stateFileMode = 0o644
)

// Store owns the game record. All writes go through Update; Snapshot serves
// lock-free reads from the last committed state.
type Store struct {
	lock   chan struct{} // holds a token while a transaction runs
	clock  quartz.Clock
	logger *log.Logger
	path   string // empty disables persistence

	mu       sync.RWMutex
	state    *engine.GameState
	onCommit func(*engine.GameState)
}

// New creates a store. If path is non-empty the store persists every
// committed state there as JSON and reloads it at startup; a missing or
// unreadable file falls back to a fresh game.
func New(path string, clock quartz.Clock, logger *log.Logger) *Store {
	if clock == nil {
		clock = quartz.NewReal()
	}
	s := &Store{
		lock:   make(chan struct{}, 1),
		clock:  clock,
		logger: logger.WithPrefix("store"),
		path:   path,
		state:  engine.NewGameState(),
	}
	if path != "" {
		s.load()
	}
	return s
}

// SetCommitHook registers a callback invoked with a copy of each committed
// state. Used by the transport layer to broadcast updates.
func (s *Store) SetCommitHook(fn func(*engine.GameState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCommit = fn
}

// Update runs a transform inside a transaction. The transform receives a
// private clone of the committed state; on success the clone is stamped,
// persisted and committed, on error it is discarded and the unchanged state
// is returned alongside the error. ErrBusy is returned if the record lock
// cannot be acquired within the retry budget.
func (s *Store) Update(fn func(*engine.GameState) error) (*engine.GameState, error) {
	if err := s.acquire(); err != nil {
		return s.Snapshot(), err
	}
	defer s.release()

	next := s.current().Clone()
	if err := fn(next); err != nil {
		return s.current().Clone(), err
	}

	next.LastModified = s.clock.Now()
	if err := s.persist(next); err != nil {
		return s.current().Clone(), err
	}

	s.mu.Lock()
	s.state = next
	hook := s.onCommit
	s.mu.Unlock()

	if hook != nil {
		hook(next.Clone())
	}
	return next.Clone(), nil
}

// Snapshot returns a copy of the last committed state without taking the
// record lock. Repeated snapshots between transactions are identical.
func (s *Store) Snapshot() *engine.GameState {
	return s.current().Clone()
}

func (s *Store) current() *engine.GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// acquire takes the record lock, retrying with increasing backoff. The
// clock is injected so tests can drive the backoff deterministically.
func (s *Store) acquire() error {
	backoff := lockInitialBackoff
	for attempt := 0; ; attempt++ {
		select {
		case s.lock <- struct{}{}:
			return nil
		default:
		}
		if attempt >= lockRetries {
			s.logger.Warn("Lock retry budget exhausted", "attempts", attempt)
			return fmt.Errorf("%w: lock not acquired after %d attempts", ErrBusy, attempt)
		}
		timer := s.clock.NewTimer(backoff)
		<-timer.C
		backoff *= 2
		if backoff > lockMaxBackoff {
			backoff = lockMaxBackoff
		}
	}
}

func (s *Store) release() {
	<-s.lock
}

// persist writes the state to the configured path atomically
func (s *Store) persist(state *engine.GameState) error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, stateFileMode); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}

// load replaces the in-memory state with the persisted one, if any
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read state file, starting fresh", "path", s.path, "error", err)
		}
		return
	}
	state := engine.NewGameState()
	if err := json.Unmarshal(data, state); err != nil {
		s.logger.Warn("Failed to decode state file, starting fresh", "path", s.path, "error", err)
		return
	}
	if state.Players == nil {
		state.Players = make(map[string]*engine.Participant)
	}
	s.state = state
	s.logger.Info("Loaded persisted state", "path", s.path, "phase", state.Phase, "round", state.CurrentRound)
}
