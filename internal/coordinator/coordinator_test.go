package coordinator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rehydrate/internal/config"
	"rehydrate/internal/invoker"
	"rehydrate/internal/platform"
	"rehydrate/internal/state"
)

// stubInvoker returns canned results instead of launching processes.
type stubInvoker struct {
	mu     sync.Mutex
	result invoker.Result
	calls  int
	lastOp config.Operation
}

func (s *stubInvoker) Invoke(_ context.Context, _ platform.ID, _ platform.Routine, op config.Operation) invoker.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastOp = op
	return s.result
}

func successResult() invoker.Result {
	code := 0
	return invoker.Result{Outcome: invoker.OutcomeSuccess, ExitCode: &code, Output: "ok", Duration: time.Millisecond}
}

func failedResult(code int) invoker.Result {
	return invoker.Result{Outcome: invoker.OutcomeFailed, ExitCode: &code, Output: "boom", Duration: time.Millisecond}
}

func errorResult() invoker.Result {
	return invoker.Result{Outcome: invoker.OutcomeError, Err: invoker.ErrTimeout, Duration: time.Millisecond}
}

var testManifest = platform.Manifest{Scripts: []platform.Routine{
	{Platform: "linux", ScriptPath: "rehydrate.sh"},
}}

func newTestCoordinator(t *testing.T, inv RoutineInvoker) (*Coordinator, *state.Store) {
	t.Helper()
	store := state.NewStore(filepath.Join(t.TempDir(), "state.json"))
	resolver := config.NewResolver(config.File{
		EnvironmentAliases: map[string]string{"prod": "production"},
	})
	c := New(store, resolver, testManifest, platform.Linux, inv, zerolog.Nop())
	return c, store
}

func TestRehydrate_FreshEnvironment(t *testing.T) {
	inv := &stubInvoker{result: successResult()}
	c, _ := newTestCoordinator(t, inv)

	verify := true
	res, err := c.Rehydrate(context.Background(), "development", config.Overrides{VerifyIntegrity: &verify})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.False(t, res.Skipped)
	assert.NoError(t, res.PersistErr)
	require.NotNil(t, res.Record)
	assert.Equal(t, state.RecordSuccess, res.Record.Status)
	assert.True(t, inv.lastOp.VerifyIntegrity)

	snap, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, state.StatusHydrated, snap.SystemStatus)
	assert.Equal(t, []string{"development"}, snap.ActiveEnvironments)
	assert.Equal(t, 1, snap.TotalRehydrations)
	assert.NotNil(t, snap.LastRehydration)
}

func TestRehydrate_GuardBlocksWithoutForce(t *testing.T) {
	inv := &stubInvoker{result: successResult()}
	c, _ := newTestCoordinator(t, inv)

	_, err := c.Rehydrate(context.Background(), "development", config.Overrides{})
	require.NoError(t, err)
	require.Equal(t, 1, inv.calls)

	res, err := c.Rehydrate(context.Background(), "development", config.Overrides{})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.True(t, res.Skipped)
	assert.Contains(t, res.Message, "force")
	assert.Nil(t, res.Record)
	assert.Equal(t, 1, inv.calls, "guard must not dispatch the routine")

	// Guard-blocked calls are not history failures.
	snap, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TotalRehydrations)
}

func TestRehydrate_ForceAlwaysDispatches(t *testing.T) {
	inv := &stubInvoker{result: successResult()}
	c, _ := newTestCoordinator(t, inv)

	_, err := c.Rehydrate(context.Background(), "development", config.Overrides{})
	require.NoError(t, err)

	res, err := c.Rehydrate(context.Background(), "development", config.Overrides{Force: true})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.False(t, res.Skipped)
	assert.Equal(t, 2, inv.calls)

	snap, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, 2, snap.TotalRehydrations)
	assert.Equal(t, []string{"development"}, snap.ActiveEnvironments, "no duplicate membership")
}

func TestRehydrate_ForcedFailureKeepsMembership(t *testing.T) {
	inv := &stubInvoker{result: successResult()}
	c, _ := newTestCoordinator(t, inv)

	_, err := c.Rehydrate(context.Background(), "development", config.Overrides{})
	require.NoError(t, err)

	inv.result = failedResult(1)
	res, err := c.Rehydrate(context.Background(), "development", config.Overrides{Force: true})
	require.NoError(t, err)

	assert.False(t, res.Success)
	require.NotNil(t, res.Record)
	assert.Equal(t, state.RecordFailed, res.Record.Status)

	// A failed forced re-run never demotes a hydrated environment.
	snap, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, []string{"development"}, snap.ActiveEnvironments)
	assert.Equal(t, state.StatusHydrated, snap.SystemStatus)
}

func TestRehydrate_RoutineReportedFailure(t *testing.T) {
	inv := &stubInvoker{result: failedResult(1)}
	c, _ := newTestCoordinator(t, inv)

	res, err := c.Rehydrate(context.Background(), "staging", config.Overrides{})
	require.NoError(t, err)

	assert.False(t, res.Success)
	require.NotNil(t, res.Record)
	assert.Equal(t, state.RecordFailed, res.Record.Status)
	require.NotNil(t, res.Record.ReturnCode)
	assert.Equal(t, 1, *res.Record.ReturnCode)

	snap, err := c.Status()
	require.NoError(t, err)
	assert.Empty(t, snap.ActiveEnvironments, "failed environment must not become active")
	assert.Equal(t, 1, snap.TotalRehydrations)
	assert.NotNil(t, snap.LastRehydration, "an attempt occurred, even though it failed")
	assert.Equal(t, state.StatusUninitialized, snap.SystemStatus)
}

func TestRehydrate_RoutineError(t *testing.T) {
	inv := &stubInvoker{result: errorResult()}
	c, _ := newTestCoordinator(t, inv)

	res, err := c.Rehydrate(context.Background(), "development", config.Overrides{})
	require.NoError(t, err)

	assert.False(t, res.Success)
	require.NotNil(t, res.Record)
	assert.Equal(t, state.RecordError, res.Record.Status)
	assert.Nil(t, res.Record.ReturnCode, "routine never reported a result")
	assert.Contains(t, res.Record.Output, invoker.ErrTimeout.Error())
}

func TestRehydrate_UnsupportedPlatform(t *testing.T) {
	inv := &stubInvoker{result: successResult()}
	store := state.NewStore(filepath.Join(t.TempDir(), "state.json"))
	c := New(store, config.NewResolver(config.File{}), platform.Manifest{}, platform.Unknown, inv, zerolog.Nop())

	res, err := c.Rehydrate(context.Background(), "development", config.Overrides{})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Zero(t, inv.calls)
	require.NotNil(t, res.Record)
	assert.Equal(t, state.RecordError, res.Record.Status)
	assert.Nil(t, res.Record.ReturnCode)

	// The error attempt is still durable history.
	snap, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TotalRehydrations)
	assert.Empty(t, snap.ActiveEnvironments)
}

func TestRehydrate_AliasTransparency(t *testing.T) {
	inv := &stubInvoker{result: successResult()}
	c, _ := newTestCoordinator(t, inv)

	res, err := c.Rehydrate(context.Background(), "prod", config.Overrides{})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "production", res.Record.Environment)

	// The canonical name and the alias hit the same guard.
	res, err = c.Rehydrate(context.Background(), "production", config.Overrides{})
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	res, err = c.Rehydrate(context.Background(), "prod", config.Overrides{})
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	snap, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, []string{"production"}, snap.ActiveEnvironments)
}

func TestRehydrate_UnknownEnvironmentTouchesNoState(t *testing.T) {
	inv := &stubInvoker{result: successResult()}
	statePath := filepath.Join(t.TempDir(), "state.json")
	store := state.NewStore(statePath)
	resolver := config.NewResolver(config.File{
		DefaultEnvironment: "broken",
		EnvironmentAliases: map[string]string{"broken": ""},
	})
	c := New(store, resolver, testManifest, platform.Linux, inv, zerolog.Nop())

	_, err := c.Rehydrate(context.Background(), "broken", config.Overrides{})
	assert.ErrorIs(t, err, config.ErrUnknownEnvironment)
	assert.Zero(t, inv.calls)

	_, statErr := os.Stat(statePath)
	assert.True(t, os.IsNotExist(statErr), "no state file may be created")
}

// failingStore persists nothing, simulating a full disk after the
// routine already ran.
type failingStore struct{}

func (failingStore) Load() (state.SystemState, error)  { return state.Initial(), nil }
func (failingStore) Save(state.SystemState) error      { return errors.New("disk full") }
func (failingStore) Reset() (state.SystemState, error) { return state.SystemState{}, errors.New("disk full") }

func TestRehydrate_PersistenceFailureIsIndependent(t *testing.T) {
	inv := &stubInvoker{result: successResult()}
	c := New(failingStore{}, config.NewResolver(config.File{}), testManifest, platform.Linux, inv, zerolog.Nop())

	res, err := c.Rehydrate(context.Background(), "development", config.Overrides{})
	require.NoError(t, err)

	// Two independent facts: the routine succeeded, recording it did not.
	assert.True(t, res.Success)
	require.Error(t, res.PersistErr)
	assert.Contains(t, res.PersistErr.Error(), "disk full")
}

func TestHistory_MostRecentFirst(t *testing.T) {
	inv := &stubInvoker{result: failedResult(1)}
	c, _ := newTestCoordinator(t, inv)

	// Failed attempts never hydrate, so the guard cannot interfere and
	// every call appends exactly one record.
	environments := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	for _, env := range environments {
		_, err := c.Rehydrate(context.Background(), env, config.Overrides{})
		require.NoError(t, err)
	}

	records, err := c.History(3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "j", records[0].Environment)
	assert.Equal(t, "i", records[1].Environment)
	assert.Equal(t, "h", records[2].Environment)

	// A limit beyond the history length returns everything.
	records, err = c.History(MaxHistory)
	require.NoError(t, err)
	assert.Len(t, records, len(environments))
}

func TestHistory_InvalidLimit(t *testing.T) {
	c, _ := newTestCoordinator(t, &stubInvoker{result: successResult()})

	for _, limit := range []int{0, -1, -10} {
		_, err := c.History(limit)
		assert.ErrorIs(t, err, ErrInvalidLimit, "limit %d", limit)
	}
}

func TestReset_RequiresConfirmation(t *testing.T) {
	inv := &stubInvoker{result: successResult()}
	c, store := newTestCoordinator(t, inv)

	_, err := c.Rehydrate(context.Background(), "development", config.Overrides{})
	require.NoError(t, err)
	before, err := store.Load()
	require.NoError(t, err)

	_, err = c.Reset(false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)

	after, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, before, after, "unconfirmed reset must change nothing")

	st, err := c.Reset(true)
	require.NoError(t, err)
	assert.Equal(t, state.Initial(), st)

	snap, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, state.StatusUninitialized, snap.SystemStatus)
	assert.Zero(t, snap.TotalRehydrations)
}

func TestRehydrate_Serialized(t *testing.T) {
	// Concurrent rehydrate calls for distinct environments must all
	// land in history: the run mutex serializes load-invoke-save.
	inv := &stubInvoker{result: failedResult(1)}
	c, _ := newTestCoordinator(t, inv)

	done := make(chan error, 4)
	for _, env := range []string{"a", "b", "c", "d"} {
		go func(env string) {
			_, err := c.Rehydrate(context.Background(), env, config.Overrides{})
			done <- err
		}(env)
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-done)
	}

	snap, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, 4, snap.TotalRehydrations)
}
