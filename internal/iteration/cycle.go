// Package iteration manages build/test/fix/verify cycles for gantry.
//
// This file implements the looping drivers: the full cycle and the generic
// bounded retry. All waiting goes through the injected clock.
package iteration

import (
	"context"

	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/domain"
	gerrors "github.com/mrz1836/gantry/internal/errors"
)

// CycleResult is the overall outcome of a full cycle.
type CycleResult struct {
	// IterationID is the iteration the cycle ran.
	IterationID string `json:"iteration_id"`

	// Success reports whether the cycle reached completion.
	Success bool `json:"success"`

	// Escalated reports that a budget ran out and the iteration escalated.
	Escalated bool `json:"escalated,omitempty"`

	// Phase is the phase the cycle ended in.
	Phase constants.IterationPhase `json:"phase"`

	// RetryCount and FixAttempts are the budgets consumed.
	RetryCount  int `json:"retry_count"`
	FixAttempts int `json:"fix_attempts"`

	// Failures are the unresolved failing items when the cycle did not
	// succeed.
	Failures []domain.Failure `json:"failures,omitempty"`
}

// RunFullCycle drives one complete Build→Test→(Fix→Verify)* pass within the
// configured budgets. Build failures retry after the configured delay (via
// the clock, never time.Sleep); test failures feed bounded fix/verify
// rounds. The iteration completes on the first passing test or verify.
// When a budget runs out the iteration escalates and the cycle returns
// ErrEscalated alongside the result. Context cancellation stops the cycle
// between callbacks and leaves the iteration RUNNING.
func (m *Manager) RunFullCycle(ctx context.Context, id string, callbacks domain.PhaseCallbacks) (*CycleResult, error) {
	if callbacks.Build == nil {
		return nil, gerrors.Wrap(gerrors.ErrEmptyValue, "build callback is required")
	}
	if callbacks.Test == nil {
		return nil, gerrors.Wrap(gerrors.ErrEmptyValue, "test callback is required")
	}
	verifyFn := callbacks.Verify
	if verifyFn == nil {
		verifyFn = callbacks.Test
	}

	for {
		res, err := m.RunBuildPhase(ctx, id, callbacks.Build)
		if err != nil {
			return nil, err
		}
		if res.Escalated {
			return m.cycleResult(id, false, true, res.Failures), m.escalatedError(id)
		}
		if res.Success {
			break
		}
		if err := m.waitRetry(ctx); err != nil {
			return nil, err
		}
	}

	testRes, err := m.RunTestPhase(ctx, id, callbacks.Test)
	if err != nil {
		return nil, err
	}
	if testRes.Success {
		if err := m.complete(id); err != nil {
			return nil, err
		}
		return m.cycleResult(id, true, false, nil), nil
	}

	if callbacks.Fix == nil {
		return nil, gerrors.Wrap(gerrors.ErrEmptyValue, "fix callback is required after test failures")
	}

	failures := testRes.Failures
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fixRes, err := m.RunFixPhase(ctx, id, callbacks.Fix, failures)
		if err != nil {
			return nil, err
		}
		if fixRes.Escalated {
			return m.cycleResult(id, false, true, failures), m.escalatedError(id)
		}

		verifyRes, err := m.RunVerifyPhase(ctx, id, verifyFn)
		if err != nil {
			return nil, err
		}
		if verifyRes.Success {
			if err := m.complete(id); err != nil {
				return nil, err
			}
			return m.cycleResult(id, true, false, nil), nil
		}
		if len(verifyRes.Failures) > 0 {
			failures = verifyRes.Failures
		}
	}
}

// RetryResult is the outcome of a generic bounded retry.
type RetryResult struct {
	// IterationID is the iteration the retry ran against.
	IterationID string `json:"iteration_id"`

	// Success reports whether an attempt eventually succeeded.
	Success bool `json:"success"`

	// Escalated reports that the retry budget ran out. Escalation is a
	// result, not an error.
	Escalated bool `json:"escalated,omitempty"`

	// Attempts is the total number of callback invocations.
	Attempts int `json:"attempts"`

	// Err carries the last callback error message, if any.
	Err string `json:"error,omitempty"`
}

// Retry runs the callback until it succeeds or the retry budget is
// exhausted. Each failed attempt stamps NextAttemptAt and waits for the
// retry delay through the injected clock. Running out of budget escalates
// the iteration and reports Escalated in the result rather than returning
// an error.
func (m *Manager) Retry(ctx context.Context, id string, fn domain.PhaseFunc) (*RetryResult, error) {
	iter, err := m.Iteration(id)
	if err != nil {
		return nil, err
	}
	if err := m.ensureRunning(iter); err != nil {
		return nil, err
	}

	out := &RetryResult{IterationID: id}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res := fn(ctx)
		out.Attempts++
		out.Err = res.Err

		if res.Success {
			out.Success = true
			iter.NextAttemptAt = nil
			return out, nil
		}

		if iter.RetryCount >= m.cfg.MaxRetries {
			if err := m.escalate(iter, "retry budget exhausted"); err != nil {
				return nil, err
			}
			out.Escalated = true
			return out, nil
		}

		iter.RetryCount++
		next := m.clock.Now().UTC().Add(m.cfg.RetryDelay)
		iter.NextAttemptAt = &next

		if err := m.waitRetry(ctx); err != nil {
			return nil, err
		}
	}
}

// waitRetry blocks until the retry delay elapses on the injected clock or
// the context is canceled.
func (m *Manager) waitRetry(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.clock.After(m.cfg.RetryDelay):
		return nil
	}
}

// complete transitions the iteration to COMPLETED.
func (m *Manager) complete(id string) error {
	iter, err := m.Iteration(id)
	if err != nil {
		return err
	}
	iter.NextAttemptAt = nil
	return Transition(iter, constants.IterationStatusCompleted, "cycle completed", m.clock.Now().UTC())
}

// cycleResult snapshots the iteration into a CycleResult.
func (m *Manager) cycleResult(id string, success, escalated bool, failures []domain.Failure) *CycleResult {
	iter, err := m.Iteration(id)
	if err != nil {
		return &CycleResult{IterationID: id, Success: success, Escalated: escalated, Failures: failures}
	}
	return &CycleResult{
		IterationID: id,
		Success:     success,
		Escalated:   escalated,
		Phase:       iter.Phase,
		RetryCount:  iter.RetryCount,
		FixAttempts: iter.FixAttempts,
		Failures:    failures,
	}
}

// escalatedError wraps ErrEscalated with the iteration id.
func (m *Manager) escalatedError(id string) error {
	return gerrors.Wrapf(gerrors.ErrEscalated, "iteration %s", id)
}
