// Package iteration manages build/test/fix/verify cycles for gantry.
//
// This file implements the IterationManager, which owns iteration records,
// drives phases through caller-provided callbacks, and escalates instead of
// retrying forever once budgets are exhausted.
package iteration

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrz1836/gantry/internal/bus"
	"github.com/mrz1836/gantry/internal/clock"
	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/domain"
	gerrors "github.com/mrz1836/gantry/internal/errors"
)

// Config holds the budgets and delays for iteration cycles.
type Config struct {
	// MaxRetries is the generic retry budget: how many retries may follow
	// the initial attempt before escalation.
	MaxRetries int

	// MaxFixAttempts is how many fix/verify rounds may run before
	// escalation.
	MaxFixAttempts int

	// RetryDelay is the wait between retry attempts, evaluated through the
	// injected clock.
	RetryDelay time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     constants.DefaultMaxRetries,
		MaxFixAttempts: constants.DefaultMaxFixAttempts,
		RetryDelay:     constants.DefaultRetryDelay,
	}
}

// normalize applies defaults to the config.
func (c Config) normalize() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = constants.DefaultMaxRetries
	}
	if c.MaxFixAttempts <= 0 {
		c.MaxFixAttempts = constants.DefaultMaxFixAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = constants.DefaultRetryDelay
	}
	return c
}

// Manager owns iteration records and their lifecycle. Like the rest of the
// core it assumes a single writer; callers driving the same manager from
// multiple goroutines must serialize.
type Manager struct {
	cfg      Config
	clock    clock.Clock
	notifier bus.Notifier
	logger   zerolog.Logger

	iterations map[string]*domain.Iteration
	order      []string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source for transitions, retry stamps, and waits.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithNotifier sets the notifier that receives iteration lifecycle events.
func WithNotifier(n bus.Notifier) Option {
	return func(m *Manager) {
		m.notifier = n
	}
}

// New creates a manager with the given budgets.
func New(cfg Config, logger zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:        cfg.normalize(),
		clock:      clock.RealClock{},
		logger:     logger,
		iterations: make(map[string]*domain.Iteration),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartIteration creates a new iteration for the plan, in PENDING with the
// build phase ahead of it, and publishes iteration:started. The first phase
// run moves it to RUNNING.
func (m *Manager) StartIteration(planID string) *domain.Iteration {
	now := m.clock.Now().UTC()
	iter := &domain.Iteration{
		ID:        GenerateIterationID(),
		PlanID:    planID,
		Phase:     constants.IterationPhaseBuild,
		Status:    constants.IterationStatusPending,
		CreatedAt: now,
	}
	m.iterations[iter.ID] = iter
	m.order = append(m.order, iter.ID)

	m.logger.Info().
		Str("iteration_id", iter.ID).
		Str("plan_id", planID).
		Msg("iteration started")

	if m.notifier != nil {
		m.notifier.Publish(bus.Event{
			Topic:       bus.TopicIterationStarted,
			PlanID:      planID,
			IterationID: iter.ID,
			Timestamp:   now,
		})
	}

	return iter
}

// Iteration returns the iteration with the given id. Unknown ids fail with
// ErrIterationNotFound.
func (m *Manager) Iteration(id string) (*domain.Iteration, error) {
	iter, ok := m.iterations[id]
	if !ok {
		return nil, gerrors.Wrapf(gerrors.ErrIterationNotFound, "iteration %s", id)
	}
	return iter, nil
}

// ActiveIterations returns the iterations currently RUNNING for the plan,
// in creation order. PENDING iterations are not active.
func (m *Manager) ActiveIterations(planID string) []*domain.Iteration {
	var active []*domain.Iteration
	for _, id := range m.order {
		iter := m.iterations[id]
		if iter.PlanID == planID && iter.Active() {
			active = append(active, iter)
		}
	}
	return active
}

// CancelIteration force-fails the iteration regardless of remaining budget.
// Cancellation is cooperative: an in-flight callback is not aborted, only
// the recorded state changes. Canceling a terminal iteration fails with
// ErrInvalidTransition.
func (m *Manager) CancelIteration(id, reason string) error {
	iter, err := m.Iteration(id)
	if err != nil {
		return err
	}

	if err := Transition(iter, constants.IterationStatusFailed, reason, m.clock.Now().UTC()); err != nil {
		return err
	}

	m.logger.Warn().
		Str("iteration_id", id).
		Str("reason", reason).
		Msg("iteration canceled")

	return nil
}

// ensureRunning moves a PENDING iteration to RUNNING on its first phase run.
func (m *Manager) ensureRunning(iter *domain.Iteration) error {
	if iter.Status == constants.IterationStatusRunning {
		return nil
	}
	return Transition(iter, constants.IterationStatusRunning, "first phase run", m.clock.Now().UTC())
}

// enterPhase validates and records a phase move. Re-entering the current
// phase is a no-op.
func (m *Manager) enterPhase(iter *domain.Iteration, phase constants.IterationPhase) error {
	if iter.Phase == phase {
		return nil
	}
	if !IsValidPhaseChange(iter.Phase, phase) {
		return gerrors.Wrapf(gerrors.ErrInvalidTransition,
			"cannot move from %s phase to %s phase", iter.Phase, phase)
	}

	iter.History = append(iter.History, domain.PhaseTransition{
		FromStatus: iter.Status,
		ToStatus:   iter.Status,
		Phase:      phase,
		Timestamp:  m.clock.Now().UTC(),
		Reason:     "entered " + phase.String() + " phase",
	})
	iter.Phase = phase
	return nil
}

// escalate transitions the iteration to ESCALATED, bumps its escalation
// level, and publishes iteration:escalated.
func (m *Manager) escalate(iter *domain.Iteration, reason string) error {
	if err := Transition(iter, constants.IterationStatusEscalated, reason, m.clock.Now().UTC()); err != nil {
		return err
	}
	iter.EscalationLevel++
	iter.NextAttemptAt = nil

	m.logger.Warn().
		Str("iteration_id", iter.ID).
		Str("plan_id", iter.PlanID).
		Str("reason", reason).
		Int("escalation_level", iter.EscalationLevel).
		Msg("iteration escalated")

	if m.notifier != nil {
		m.notifier.Publish(bus.Event{
			Topic:       bus.TopicIterationEscalated,
			PlanID:      iter.PlanID,
			IterationID: iter.ID,
			Attempt:     iter.EscalationLevel,
			Reason:      reason,
			Timestamp:   m.clock.Now().UTC(),
		})
	}

	return nil
}

// GenerateIterationID generates a unique iteration identifier.
func GenerateIterationID() string {
	return "iter-" + uuid.New().String()[:8]
}
