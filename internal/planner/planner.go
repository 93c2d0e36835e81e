// Package planner builds validated execution plans for gantry.
//
// This file implements the ExecutionPlanner, which normalizes raw task
// definitions, validates the dependency graph, and produces layered
// execution groups with checkpoints at phase boundaries.
//
// Import rules:
//   - CAN import: internal/bus, internal/clock, internal/constants, internal/domain, internal/errors, std lib
//   - MUST NOT import: internal/coordinator, internal/iteration, internal/cli
package planner

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrz1836/gantry/internal/bus"
	"github.com/mrz1836/gantry/internal/clock"
	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/domain"
	gerrors "github.com/mrz1836/gantry/internal/errors"
)

// Options holds per-plan knobs for CreatePlan.
type Options struct {
	// MaxConcurrency caps the size of each execution group.
	// Zero or negative falls back to constants.DefaultMaxConcurrency.
	MaxConcurrency int

	// PlanID overrides the generated plan id when non-empty, so manifests
	// can produce stable, re-runnable plan ids.
	PlanID string
}

// normalize applies defaults to the options.
func (o Options) normalize() Options {
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = constants.DefaultMaxConcurrency
	}
	return o
}

// Planner turns raw task definitions into validated, ordered plans.
// It performs no I/O beyond publishing notifications.
type Planner struct {
	clock    clock.Clock
	notifier bus.Notifier
	logger   zerolog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithClock sets the time source used for CreatedAt and CompletedAt stamps.
func WithClock(c clock.Clock) Option {
	return func(p *Planner) {
		p.clock = c
	}
}

// WithNotifier sets the notifier that receives plan:created events.
func WithNotifier(n bus.Notifier) Option {
	return func(p *Planner) {
		p.notifier = n
	}
}

// New creates a planner with the given logger. By default it uses the real
// clock and publishes nothing.
func New(logger zerolog.Logger, opts ...Option) *Planner {
	p := &Planner{
		clock:  clock.RealClock{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CreatePlan normalizes the given tasks, validates their dependency graph,
// and produces a plan with layered execution groups and checkpoints.
//
// Normalization assigns missing IDs, applies priority/complexity defaults,
// parses the free-form category into a typed capability, and infers the plan
// phase from the capability when not explicit. Validation rejects duplicate
// IDs, unknown or self dependencies, and dependency cycles; cycle errors name
// the task IDs forming the cycle.
func (p *Planner) CreatePlan(tasks []domain.Task, opts Options) (*domain.Plan, error) {
	opts = opts.normalize()

	if len(tasks) == 0 {
		return nil, gerrors.ErrEmptyPlan
	}

	normalized, err := normalizeTasks(tasks)
	if err != nil {
		return nil, err
	}

	if err := validateDependencies(normalized); err != nil {
		return nil, err
	}

	if cycle := detectCycle(normalized); cycle != nil {
		return nil, cycleError(cycle)
	}

	groups := layerTasks(normalized, opts.MaxConcurrency)

	planID := opts.PlanID
	if planID == "" {
		planID = GeneratePlanID()
	}

	plan := &domain.Plan{
		ID:              planID,
		Tasks:           normalized,
		ExecutionGroups: groups,
		CreatedAt:       p.clock.Now().UTC(),
		SchemaVersion:   constants.PlanSchemaVersion,
	}
	plan.Checkpoints = buildCheckpoints(plan)

	p.logger.Info().
		Str("plan_id", plan.ID).
		Int("tasks", len(plan.Tasks)).
		Int("groups", len(plan.ExecutionGroups)).
		Int("checkpoints", len(plan.Checkpoints)).
		Msg("plan created")

	if p.notifier != nil {
		p.notifier.Publish(bus.Event{
			Topic:     bus.TopicPlanCreated,
			PlanID:    plan.ID,
			Timestamp: p.clock.Now().UTC(),
		})
	}

	return plan, nil
}

// UpdateTaskStatus mutates the status of one task in place. Moving to
// COMPLETED stamps CompletedAt from the planner's clock. The task keeps any
// earlier completion stamp when it leaves COMPLETED again; history belongs
// to the progress tracker.
func (p *Planner) UpdateTaskStatus(plan *domain.Plan, taskID string, status constants.TaskStatus) error {
	task := plan.Task(taskID)
	if task == nil {
		return gerrors.Wrapf(gerrors.ErrTaskNotFound, "task %s not in plan %s", taskID, plan.ID)
	}

	task.Status = status
	if status == constants.TaskStatusCompleted {
		now := p.clock.Now().UTC()
		task.CompletedAt = &now
	}

	p.logger.Debug().
		Str("plan_id", plan.ID).
		Str("task_id", taskID).
		Str("status", status.String()).
		Msg("task status updated")

	return nil
}

// NextTasks returns the tasks that are ready to dispatch: every dependency
// appears in completedIDs and the task itself is neither COMPLETED nor
// RUNNING. FAILED and SKIPPED tasks are returned so the caller can decide
// whether to re-dispatch them.
//
// NextTasks is a pure function of its inputs; it never mutates the plan.
func NextTasks(plan *domain.Plan, completedIDs []string) []*domain.Task {
	done := make(map[string]bool, len(completedIDs))
	for _, id := range completedIDs {
		done[id] = true
	}

	var ready []*domain.Task
	for _, task := range plan.Tasks {
		if task.Status == constants.TaskStatusCompleted || task.Status == constants.TaskStatusRunning {
			continue
		}
		satisfied := true
		for _, dep := range task.Dependencies {
			if !done[dep] {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, task)
		}
	}
	return ready
}

// GeneratePlanID generates a unique plan identifier.
func GeneratePlanID() string {
	return "plan-" + uuid.New().String()[:8]
}

// GenerateTaskID generates a unique task identifier.
func GenerateTaskID() string {
	return "task-" + uuid.New().String()[:8]
}

// generateCheckpointID generates a unique checkpoint identifier.
func generateCheckpointID() string {
	return "ckpt-" + uuid.New().String()[:8]
}

// buildCheckpoints inserts a phase-boundary checkpoint wherever consecutive
// groups belong to different plan phases, plus a final checkpoint after the
// last group. A group's phase is the earliest phase among its tasks.
func buildCheckpoints(plan *domain.Plan) []domain.Checkpoint {
	if len(plan.ExecutionGroups) == 0 {
		return nil
	}

	var checkpoints []domain.Checkpoint
	for i := 0; i < len(plan.ExecutionGroups)-1; i++ {
		current := groupPhase(plan, plan.ExecutionGroups[i])
		next := groupPhase(plan, plan.ExecutionGroups[i+1])
		if current != next {
			checkpoints = append(checkpoints, domain.Checkpoint{
				ID:         generateCheckpointID(),
				Type:       constants.CheckpointPhaseBoundary,
				AfterOrder: plan.ExecutionGroups[i].Order,
			})
		}
	}

	checkpoints = append(checkpoints, domain.Checkpoint{
		ID:         generateCheckpointID(),
		Type:       constants.CheckpointFinal,
		AfterOrder: plan.ExecutionGroups[len(plan.ExecutionGroups)-1].Order,
	})

	return checkpoints
}

// groupPhase returns the earliest plan phase among the group's tasks.
func groupPhase(plan *domain.Plan, group domain.ExecutionGroup) constants.PlanPhase {
	best := constants.PlanPhase("")
	bestOrd := -1
	for _, id := range group.TaskIDs {
		task := plan.Task(id)
		if task == nil {
			continue
		}
		if ord := task.Phase.Ordinal(); bestOrd == -1 || ord < bestOrd {
			best = task.Phase
			bestOrd = ord
		}
	}
	return best
}
