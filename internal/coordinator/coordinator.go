// Package coordinator orchestrates the end-to-end rehydration
// operation: idempotency guard, routine dispatch, state update, and
// history append. Status and history queries read the last-persisted
// state directly and never block on a running invocation.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"rehydrate/internal/config"
	"rehydrate/internal/invoker"
	"rehydrate/internal/platform"
	"rehydrate/internal/state"
)

// MaxHistory bounds an unbounded history query. Callers wanting "all"
// pass this as the limit.
const MaxHistory = 1000

var (
	// ErrConfirmationRequired is returned by Reset when the caller has
	// not explicitly confirmed the destructive operation.
	ErrConfirmationRequired = errors.New("reset requires explicit confirmation")
	// ErrInvalidLimit is returned for a non-positive history limit.
	ErrInvalidLimit = errors.New("history limit must be positive")
)

// StateStore is the persistence boundary the coordinator drives.
type StateStore interface {
	Load() (state.SystemState, error)
	Save(state.SystemState) error
	Reset() (state.SystemState, error)
}

// RoutineInvoker runs one external restoration routine to completion.
type RoutineInvoker interface {
	Invoke(ctx context.Context, id platform.ID, routine platform.Routine, op config.Operation) invoker.Result
}

// Coordinator sequences rehydration attempts against the durable state.
// Rehydrate calls are serialized in-process; cross-process callers are
// a documented hazard the deployment environment must avoid.
type Coordinator struct {
	store    StateStore
	resolver *config.Resolver
	manifest platform.Manifest
	platform platform.ID
	invoker  RoutineInvoker
	log      zerolog.Logger

	// runMu serializes the load-invoke-save cycle. Status and History
	// deliberately do not take it: reads return the last-persisted
	// state immediately, stale but consistent.
	runMu sync.Mutex

	// now is swappable for tests.
	now func() time.Time
}

// New wires a coordinator from its collaborators.
func New(store StateStore, resolver *config.Resolver, manifest platform.Manifest, id platform.ID, inv RoutineInvoker, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		resolver: resolver,
		manifest: manifest,
		platform: id,
		invoker:  inv,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RehydrationResult is the structured outcome of one Rehydrate call.
// Skipped distinguishes the already-hydrated guard, which is routine
// operational behavior, from a true failure.
type RehydrationResult struct {
	Success bool
	Skipped bool
	Message string
	// Record is the history entry this attempt appended; nil when the
	// guard prevented dispatch.
	Record *state.HistoryRecord
	// PersistErr reports a state-write failure independently of the
	// attempt's own outcome. The routine's result stands either way.
	PersistErr error
}

// Rehydrate performs one rehydration attempt for the requested
// environment. The environment passes through alias normalization
// before the guard check; an environment already hydrated is skipped
// unless forced. Exactly one history record is appended per dispatched
// routine; guard-blocked calls touch no state.
func (c *Coordinator) Rehydrate(ctx context.Context, environment string, ov config.Overrides) (RehydrationResult, error) {
	op, err := c.resolver.Resolve(environment, ov)
	if err != nil {
		return RehydrationResult{}, err
	}

	c.runMu.Lock()
	defer c.runMu.Unlock()

	st, err := c.store.Load()
	if err != nil {
		return RehydrationResult{}, err
	}

	log := c.log.With().
		Str("environment", op.Environment).
		Str("platform", string(c.platform)).
		Bool("verify", op.VerifyIntegrity).
		Logger()

	if st.IsActive(op.Environment) && !op.Force {
		log.Info().Msg("environment already hydrated, skipping (use --force to rehydrate anyway)")
		return RehydrationResult{
			Skipped: true,
			Message: fmt.Sprintf("environment %q is already hydrated; use force to rehydrate anyway", op.Environment),
		}, nil
	}

	now := c.now()
	rec := state.HistoryRecord{
		Timestamp:       now,
		Environment:     op.Environment,
		Platform:        string(c.platform),
		VerifyIntegrity: op.VerifyIntegrity,
	}

	routine, err := c.manifest.Resolve(c.platform)
	if err != nil {
		log.Error().Err(err).Msg("no restoration routine for this platform")
		rec.Status = state.RecordError
		rec.Output = err.Error()
		res := RehydrationResult{
			Message: err.Error(),
			Record:  &rec,
		}
		res.PersistErr = c.commit(&st, rec, false, now)
		return res, nil
	}

	log.Info().Str("script", routine.ScriptPath).Int("timeoutSeconds", op.TimeoutSeconds).
		Int("maxRetryAttempts", op.MaxRetryAttempts).Msg("dispatching restoration routine")

	inv := c.invoker.Invoke(ctx, c.platform, routine, op)

	rec.ReturnCode = inv.ExitCode
	rec.Output = inv.Output
	switch inv.Outcome {
	case invoker.OutcomeSuccess:
		rec.Status = state.RecordSuccess
	case invoker.OutcomeFailed:
		rec.Status = state.RecordFailed
	default:
		rec.Status = state.RecordError
		if inv.Err != nil {
			if rec.Output != "" {
				rec.Output += "\n"
			}
			rec.Output += inv.Err.Error()
		}
	}

	res := RehydrationResult{
		Success: inv.Outcome == invoker.OutcomeSuccess,
		Record:  &rec,
	}
	switch inv.Outcome {
	case invoker.OutcomeSuccess:
		res.Message = "rehydration completed"
		log.Info().Dur("duration", inv.Duration).Msg("rehydration completed successfully")
	case invoker.OutcomeFailed:
		res.Message = fmt.Sprintf("rehydration failed (exit code %d)", *inv.ExitCode)
		log.Warn().Dur("duration", inv.Duration).Int("exitCode", *inv.ExitCode).Msg("routine reported failure")
	default:
		res.Message = fmt.Sprintf("rehydration error: %v", inv.Err)
		log.Error().Err(inv.Err).Dur("duration", inv.Duration).Msg("routine never reported a result")
	}

	res.PersistErr = c.commit(&st, rec, res.Success, now)
	return res, nil
}

// commit appends the record, updates the active set and status, and
// persists. The active set only ever grows: a failed forced re-run of
// an already-hydrated environment does not demote it.
func (c *Coordinator) commit(st *state.SystemState, rec state.HistoryRecord, succeeded bool, now time.Time) error {
	st.History = append(st.History, rec)
	if succeeded {
		st.Activate(rec.Environment)
	}
	if len(st.ActiveEnvironments) > 0 {
		st.SystemStatus = state.StatusHydrated
	}
	st.LastRehydration = &now

	if err := c.store.Save(*st); err != nil {
		c.log.Error().Err(err).Msg("state persistence failed; attempt outcome stands but was not recorded")
		return fmt.Errorf("persisting state: %w", err)
	}
	return nil
}

// StatusSnapshot is a point-in-time view of the persisted state.
type StatusSnapshot struct {
	SystemStatus       state.Status
	ActiveEnvironments []string
	LastRehydration    *time.Time
	TotalRehydrations  int
}

// Status reads the last-persisted state. It never blocks on a running
// invocation.
func (c *Coordinator) Status() (StatusSnapshot, error) {
	st, err := c.store.Load()
	if err != nil {
		return StatusSnapshot{}, err
	}
	return StatusSnapshot{
		SystemStatus:       st.SystemStatus,
		ActiveEnvironments: st.ActiveEnvironments,
		LastRehydration:    st.LastRehydration,
		TotalRehydrations:  len(st.History),
	}, nil
}

// History returns up to limit records, most recent first. Limits above
// MaxHistory are capped; non-positive limits are rejected.
func (c *Coordinator) History(limit int) ([]state.HistoryRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if limit > MaxHistory {
		limit = MaxHistory
	}

	st, err := c.store.Load()
	if err != nil {
		return nil, err
	}

	n := len(st.History)
	if limit > n {
		limit = n
	}

	records := make([]state.HistoryRecord, limit)
	for i := 0; i < limit; i++ {
		records[i] = st.History[n-1-i]
	}
	return records, nil
}

// Reset clears all state back to initial values. The confirmed flag
// must be true; reset is the only operation that removes environments
// or history.
func (c *Coordinator) Reset(confirmed bool) (state.SystemState, error) {
	if !confirmed {
		return state.SystemState{}, ErrConfirmationRequired
	}

	c.runMu.Lock()
	defer c.runMu.Unlock()

	st, err := c.store.Reset()
	if err != nil {
		return state.SystemState{}, err
	}
	c.log.Info().Msg("global state reset")
	return st, nil
}
