package store

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanakrit/coinquest/internal/engine"
)

func newTestStore(t *testing.T, path string, clock quartz.Clock) *Store {
	t.Helper()
	return New(path, clock, log.New(io.Discard))
}

func addPlayer(name string) func(*engine.GameState) error {
	return func(s *engine.GameState) error {
		s.Players[name] = &engine.Participant{ID: name, Name: name}
		return nil
	}
}

func TestStore_UpdateCommits(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	st := newTestStore(t, "", mock)

	state, err := st.Update(addPlayer("alice"))
	require.NoError(t, err)
	require.Contains(t, state.Players, "alice")
	assert.Equal(t, mock.Now(), state.LastModified, "commit should stamp the mock clock's time")

	snap := st.Snapshot()
	assert.Contains(t, snap.Players, "alice")
}

func TestStore_UpdateReturnsIsolatedClone(t *testing.T) {
	t.Parallel()

	st := newTestStore(t, "", nil)

	state, err := st.Update(addPlayer("alice"))
	require.NoError(t, err)

	// Mutating the returned clone must not leak into the store.
	state.Players["alice"].LiquidCoins = 999
	assert.Equal(t, 0, st.Snapshot().Players["alice"].LiquidCoins)
}

func TestStore_UpdateRollsBackOnError(t *testing.T) {
	t.Parallel()

	st := newTestStore(t, "", nil)
	_, err := st.Update(addPlayer("alice"))
	require.NoError(t, err)

	state, err := st.Update(func(s *engine.GameState) error {
		// Mutate before failing: none of it may survive.
		s.Players["bob"] = &engine.Participant{ID: "bob", Name: "bob"}
		s.CurrentRound = 42
		return engine.ErrValidation
	})
	require.ErrorIs(t, err, engine.ErrValidation)

	assert.NotContains(t, state.Players, "bob", "returned state must be the committed one")
	snap := st.Snapshot()
	assert.NotContains(t, snap.Players, "bob")
	assert.Equal(t, 0, snap.CurrentRound)
	assert.Contains(t, snap.Players, "alice", "earlier commits must survive")
}

func TestStore_SnapshotStableBetweenTransactions(t *testing.T) {
	t.Parallel()

	st := newTestStore(t, "", nil)
	_, err := st.Update(addPlayer("alice"))
	require.NoError(t, err)

	a := st.Snapshot()
	b := st.Snapshot()
	assert.Equal(t, a, b)
}

func TestStore_Persistence(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")

	st := newTestStore(t, path, nil)
	_, err := st.Update(addPlayer("alice"))
	require.NoError(t, err)
	_, err = st.Update(func(s *engine.GameState) error {
		s.CurrentRound = 3
		s.Phase = engine.PhaseRoundEnd
		return nil
	})
	require.NoError(t, err)

	// A new store over the same path resumes the committed state.
	st2 := newTestStore(t, path, nil)
	snap := st2.Snapshot()
	assert.Contains(t, snap.Players, "alice")
	assert.Equal(t, 3, snap.CurrentRound)
	assert.Equal(t, engine.PhaseRoundEnd, snap.Phase)
}

func TestStore_LoadMissingFileStartsFresh(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing.json")
	st := newTestStore(t, path, nil)

	snap := st.Snapshot()
	assert.Equal(t, engine.PhaseWaitingForPlayers, snap.Phase)
	assert.Empty(t, snap.Players)
}

func TestStore_LoadCorruptFileStartsFresh(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	st := newTestStore(t, path, nil)
	snap := st.Snapshot()
	assert.Equal(t, engine.PhaseWaitingForPlayers, snap.Phase)
	assert.Empty(t, snap.Players)
}

func TestStore_CommitHook(t *testing.T) {
	t.Parallel()

	st := newTestStore(t, "", nil)

	var got *engine.GameState
	st.SetCommitHook(func(s *engine.GameState) { got = s })

	_, err := st.Update(addPlayer("alice"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Contains(t, got.Players, "alice")

	// Failed transactions must not fire the hook.
	got = nil
	_, err = st.Update(func(*engine.GameState) error { return engine.ErrValidation })
	require.Error(t, err)
	assert.Nil(t, got)
}

func TestStore_BusyWhenLockHeld(t *testing.T) {
	t.Parallel()

	st := newTestStore(t, "", nil)

	entered := make(chan struct{})
	blocker := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := st.Update(func(*engine.GameState) error {
			close(entered)
			<-blocker
			return nil
		})
		assert.NoError(t, err)
	}()
	<-entered

	// Retries against the real clock exhaust in well under a second.
	_, err := st.Update(addPlayer("bob"))
	require.ErrorIs(t, err, ErrBusy)

	close(blocker)
	<-done

	// The lock is free again afterwards.
	_, err = st.Update(addPlayer("bob"))
	require.NoError(t, err)
}

func TestStore_ConcurrentUpdatesAllCommit(t *testing.T) {
	t.Parallel()

	st := newTestStore(t, "", nil)

	const n = 8
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = st.Update(addPlayer(names[i]))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "update %d", i)
	}
	assert.Len(t, st.Snapshot().Players, n)
}
