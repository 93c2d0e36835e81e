// Package iteration manages build/test/fix/verify cycles for gantry.
//
// This file implements the single-attempt phase runners. Each call invokes
// its callback exactly once; looping and waiting belong to RunFullCycle and
// Retry.
package iteration

import (
	"context"
	"time"

	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/domain"
)

// PhaseResult is the outcome of one phase attempt.
type PhaseResult struct {
	// IterationID is the iteration the attempt belonged to.
	IterationID string `json:"iteration_id"`

	// Phase is the phase that ran.
	Phase constants.IterationPhase `json:"phase"`

	// Success reports whether the callback achieved its goal.
	Success bool `json:"success"`

	// Failures lists what went wrong when Success is false.
	Failures []domain.Failure `json:"failures,omitempty"`

	// Err carries the callback's infrastructure error message, if any.
	Err string `json:"error,omitempty"`

	// CanRetry reports whether budget remains for another attempt.
	CanRetry bool `json:"can_retry"`

	// NextAttemptAt is when the next attempt becomes eligible, set when a
	// failed attempt leaves retry budget.
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`

	// NeedsAnotherFix is set by verify failures that leave fix budget.
	NeedsAnotherFix bool `json:"needs_another_fix,omitempty"`

	// Escalated reports that this attempt exhausted its budget and the
	// iteration escalated instead of running or retrying.
	Escalated bool `json:"escalated,omitempty"`
}

// RunBuildPhase runs one attempt of the build callback. A failed attempt
// consumes retry budget: while budget remains the result carries CanRetry
// and a NextAttemptAt stamp; once the budget is exhausted the iteration
// escalates. Build failures never feed the fix loop.
func (m *Manager) RunBuildPhase(ctx context.Context, id string, buildFn domain.PhaseFunc) (*PhaseResult, error) {
	iter, err := m.Iteration(id)
	if err != nil {
		return nil, err
	}
	if err := m.ensureRunning(iter); err != nil {
		return nil, err
	}
	if err := m.enterPhase(iter, constants.IterationPhaseBuild); err != nil {
		return nil, err
	}

	res := buildFn(ctx)
	out := &PhaseResult{
		IterationID: id,
		Phase:       constants.IterationPhaseBuild,
		Success:     res.Success,
		Failures:    res.Failures,
		Err:         res.Err,
	}

	if res.Success {
		iter.NextAttemptAt = nil
		return out, nil
	}

	if iter.RetryCount >= m.cfg.MaxRetries {
		if err := m.escalate(iter, "build retry budget exhausted"); err != nil {
			return nil, err
		}
		out.Escalated = true
		return out, nil
	}

	iter.RetryCount++
	next := m.clock.Now().UTC().Add(m.cfg.RetryDelay)
	iter.NextAttemptAt = &next
	out.CanRetry = true
	out.NextAttemptAt = &next

	m.logger.Debug().
		Str("iteration_id", id).
		Int("retry_count", iter.RetryCount).
		Time("next_attempt_at", next).
		Msg("build phase failed")

	return out, nil
}

// RunTestPhase runs one attempt of the test callback. Failures carry the
// failing items for the fix loop; CanRetry reports whether fix budget
// remains. Test failures do not consume the retry budget.
func (m *Manager) RunTestPhase(ctx context.Context, id string, testFn domain.PhaseFunc) (*PhaseResult, error) {
	iter, err := m.Iteration(id)
	if err != nil {
		return nil, err
	}
	if err := m.ensureRunning(iter); err != nil {
		return nil, err
	}
	if err := m.enterPhase(iter, constants.IterationPhaseTest); err != nil {
		return nil, err
	}

	res := testFn(ctx)
	out := &PhaseResult{
		IterationID: id,
		Phase:       constants.IterationPhaseTest,
		Success:     res.Success,
		Failures:    res.Failures,
		Err:         res.Err,
	}

	if !res.Success {
		out.CanRetry = iter.FixAttempts < m.cfg.MaxFixAttempts
	}

	return out, nil
}

// RunFixPhase runs one fix attempt against the given failures. Each call
// consumes fix budget; once FixAttempts would exceed MaxFixAttempts the
// iteration escalates and the callback is not invoked.
func (m *Manager) RunFixPhase(ctx context.Context, id string, fixFn domain.FixFunc, failures []domain.Failure) (*PhaseResult, error) {
	iter, err := m.Iteration(id)
	if err != nil {
		return nil, err
	}
	if err := m.ensureRunning(iter); err != nil {
		return nil, err
	}

	out := &PhaseResult{
		IterationID: id,
		Phase:       constants.IterationPhaseFix,
	}

	if iter.FixAttempts >= m.cfg.MaxFixAttempts {
		if err := m.escalate(iter, "fix attempt budget exhausted"); err != nil {
			return nil, err
		}
		out.Escalated = true
		return out, nil
	}

	if err := m.enterPhase(iter, constants.IterationPhaseFix); err != nil {
		return nil, err
	}

	iter.FixAttempts++
	res := fixFn(ctx, failures)
	out.Success = res.Success
	out.Failures = res.Failures
	out.Err = res.Err
	out.CanRetry = iter.FixAttempts < m.cfg.MaxFixAttempts

	m.logger.Debug().
		Str("iteration_id", id).
		Int("fix_attempts", iter.FixAttempts).
		Bool("success", res.Success).
		Msg("fix phase ran")

	return out, nil
}

// RunVerifyPhase re-checks the work after a fix. Success moves the cycle
// toward completion; failure reports NeedsAnotherFix while fix budget
// remains.
func (m *Manager) RunVerifyPhase(ctx context.Context, id string, verifyFn domain.PhaseFunc) (*PhaseResult, error) {
	iter, err := m.Iteration(id)
	if err != nil {
		return nil, err
	}
	if err := m.ensureRunning(iter); err != nil {
		return nil, err
	}
	if err := m.enterPhase(iter, constants.IterationPhaseVerify); err != nil {
		return nil, err
	}

	res := verifyFn(ctx)
	out := &PhaseResult{
		IterationID: id,
		Phase:       constants.IterationPhaseVerify,
		Success:     res.Success,
		Failures:    res.Failures,
		Err:         res.Err,
	}

	if !res.Success {
		out.NeedsAnotherFix = iter.FixAttempts < m.cfg.MaxFixAttempts
	}

	return out, nil
}
