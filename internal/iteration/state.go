// Package iteration manages build/test/fix/verify cycles for gantry.
//
// This file implements the iteration state machine, which enforces valid
// status transitions and maintains an audit trail of all changes.
//
// Import rules:
//   - CAN import: internal/bus, internal/clock, internal/constants, internal/domain, internal/errors, std lib
//   - MUST NOT import: internal/planner, internal/coordinator, internal/cli
package iteration

import (
	"time"

	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/domain"
	gerrors "github.com/mrz1836/gantry/internal/errors"
)

// ValidTransitions defines all allowed status transitions in the iteration
// lifecycle. Format: from_status -> []to_statuses
//
// The state machine follows this flow:
//
//	Pending → Running, Failed (canceled before the first phase)
//	Running → Completed, Failed, Escalated
//
//nolint:gochecknoglobals // Exported for testing and read-only lookup table
var ValidTransitions = map[constants.IterationStatus][]constants.IterationStatus{
	constants.IterationStatusPending: {
		constants.IterationStatusRunning,
		constants.IterationStatusFailed,
	},
	constants.IterationStatusRunning: {
		constants.IterationStatusCompleted,
		constants.IterationStatusFailed,
		constants.IterationStatusEscalated,
	},
}

// phaseTransitions defines the allowed forward moves between cycle phases.
// Re-entering the current phase is always allowed (retries).
//
//nolint:gochecknoglobals // Read-only lookup table for phase validation
var phaseTransitions = map[constants.IterationPhase][]constants.IterationPhase{
	constants.IterationPhaseBuild:  {constants.IterationPhaseTest},
	constants.IterationPhaseTest:   {constants.IterationPhaseFix},
	constants.IterationPhaseFix:    {constants.IterationPhaseVerify},
	constants.IterationPhaseVerify: {constants.IterationPhaseFix},
}

// IsValidTransition checks if a status transition is allowed. Returns false
// for transitions from terminal states or to the same state.
func IsValidTransition(from, to constants.IterationStatus) bool {
	if from == to {
		return false
	}
	for _, target := range ValidTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// IsValidPhaseChange checks if a phase move is allowed. Staying in the
// current phase counts as valid.
func IsValidPhaseChange(from, to constants.IterationPhase) bool {
	if from == to {
		return true
	}
	for _, target := range phaseTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Transition validates and applies a status transition to the iteration.
// It records the transition in the iteration's history and stamps
// CompletedAt when the new status is terminal.
func Transition(iter *domain.Iteration, to constants.IterationStatus, reason string, now time.Time) error {
	from := iter.Status
	if !IsValidTransition(from, to) {
		return gerrors.Wrapf(gerrors.ErrInvalidTransition,
			"cannot transition from %s to %s", from, to)
	}

	iter.History = append(iter.History, domain.PhaseTransition{
		FromStatus: from,
		ToStatus:   to,
		Phase:      iter.Phase,
		Timestamp:  now,
		Reason:     reason,
	})
	iter.Status = to

	if iter.Terminal() {
		iter.CompletedAt = &now
	}

	return nil
}
