package domain

import (
	"time"

	"github.com/mrz1836/gantry/internal/constants"
)

// PhaseTransition records a single status change of an iteration, kept in
// the iteration's history for auditing and reporting.
type PhaseTransition struct {
	// FromStatus is the status before the transition.
	FromStatus constants.IterationStatus `json:"from_status"`

	// ToStatus is the status after the transition.
	ToStatus constants.IterationStatus `json:"to_status"`

	// Phase is the iteration phase active when the transition happened.
	Phase constants.IterationPhase `json:"phase"`

	// Timestamp is when the transition happened.
	Timestamp time.Time `json:"timestamp"`

	// Reason is an optional human-readable explanation.
	Reason string `json:"reason,omitempty"`
}

// Iteration is one build/test/fix/verify cycle over a plan. The manager
// owns the lifecycle: phases run through caller-provided callbacks, failures
// feed bounded retry counters, and exhausting a budget escalates the
// iteration instead of retrying forever.
//
// Example JSON representation:
//
//	{
//	    "id": "iter-4f3e2d1c",
//	    "plan_id": "plan-9c8d7e6f",
//	    "phase": "build",
//	    "status": "running",
//	    "retry_count": 0,
//	    "fix_attempts": 0,
//	    "escalation_level": 0,
//	    "created_at": "2026-03-01T10:05:00Z"
//	}
type Iteration struct {
	// ID is the unique identifier for the iteration.
	// Format: iter-XXXXXXXX
	ID string `json:"id"`

	// PlanID links the iteration to the plan it runs against.
	PlanID string `json:"plan_id"`

	// Phase is the cycle phase the iteration is currently in.
	Phase constants.IterationPhase `json:"phase"`

	// Status is the current lifecycle status.
	Status constants.IterationStatus `json:"status"`

	// RetryCount counts generic retries consumed against the retry budget.
	RetryCount int `json:"retry_count"`

	// FixAttempts counts fix/verify rounds consumed against the fix budget.
	FixAttempts int `json:"fix_attempts"`

	// EscalationLevel counts how many times the iteration escalated.
	EscalationLevel int `json:"escalation_level"`

	// NextAttemptAt is the earliest time the next retry attempt is
	// eligible, set when a failure schedules a delayed retry. Nil when no
	// retry is pending.
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`

	// CreatedAt is when the iteration was started.
	CreatedAt time.Time `json:"created_at"`

	// CompletedAt is when the iteration reached a terminal status.
	// Nil while the iteration is pending or running.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// History is the ordered list of status transitions.
	History []PhaseTransition `json:"history,omitempty"`
}

// Active reports whether the iteration is currently running.
func (i *Iteration) Active() bool {
	return i.Status == constants.IterationStatusRunning
}

// Terminal reports whether the iteration has finished, successfully or not.
func (i *Iteration) Terminal() bool {
	switch i.Status {
	case constants.IterationStatusCompleted,
		constants.IterationStatusFailed,
		constants.IterationStatusEscalated:
		return true
	default:
		return false
	}
}
