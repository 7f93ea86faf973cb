// Package invoker runs the external restoration routine as a child
// process under a hard wall-clock timeout and classifies the outcome.
// The routine is a black box: its output is captured verbatim (up to a
// bound), never interpreted.
package invoker

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"rehydrate/internal/config"
	"rehydrate/internal/platform"
)

// MaxOutputBytes bounds captured routine output so history records
// cannot grow without limit.
const MaxOutputBytes = 32 * 1024

var (
	// ErrTimeout means the routine was forcibly terminated at the
	// wall-clock bound before reporting a result.
	ErrTimeout = errors.New("routine timed out")
	// ErrLaunch means the routine process could not be started at all.
	ErrLaunch = errors.New("routine could not be launched")
)

// Outcome classifies one invocation.
type Outcome string

const (
	// OutcomeSuccess: the routine ran and exited zero.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailed: the routine ran and made its own failure judgment
	// (non-zero exit).
	OutcomeFailed Outcome = "failed"
	// OutcomeError: the routine never reported a result, so no partial
	// side effects can be trusted.
	OutcomeError Outcome = "error"
)

// Result captures everything one invocation produced.
type Result struct {
	Outcome  Outcome
	ExitCode *int // nil when the routine never reported one
	Output   string
	Duration time.Duration
	Err      error // cause when Outcome is OutcomeError
}

// Exec invokes routines as local child processes.
type Exec struct {
	// BaseDir resolves relative script paths; empty means the current
	// working directory.
	BaseDir string
}

// Invoke runs the routine with the resolved operation parameters,
// enforcing op.TimeoutSeconds as a hard bound. It always returns a
// classified Result; process-level problems are folded into the
// classification rather than surfaced as a bare error.
func (e *Exec) Invoke(ctx context.Context, id platform.ID, routine platform.Routine, op config.Operation) Result {
	scriptPath := routine.ScriptPath
	if e.BaseDir != "" && !filepath.IsAbs(scriptPath) {
		scriptPath = filepath.Join(e.BaseDir, scriptPath)
	}

	if _, err := os.Stat(scriptPath); err != nil {
		return Result{Outcome: OutcomeError, Err: errors.Join(ErrLaunch, err)}
	}

	name, args := Command(id, scriptPath, op.Environment, op.VerifyIntegrity)

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(op.TimeoutSeconds)*time.Second)
	defer cancel()

	var buf boundedBuffer
	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	res := Result{Output: buf.String(), Duration: duration}

	if runCtx.Err() == context.DeadlineExceeded {
		res.Outcome = OutcomeError
		res.Err = ErrTimeout
		return res
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		code := 0
		res.Outcome = OutcomeSuccess
		res.ExitCode = &code
	case errors.As(err, &exitErr):
		code := exitErr.ExitCode()
		res.Outcome = OutcomeFailed
		res.ExitCode = &code
	default:
		res.Outcome = OutcomeError
		res.Err = errors.Join(ErrLaunch, err)
	}

	return res
}
