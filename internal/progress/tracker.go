// Package progress tracks weighted plan progress for gantry.
//
// This file implements the ProgressTracker: an authoritative per-task view
// kept independently of the Plan's own status fields, weighted completion
// percentages, completion velocity over a sliding window, and consecutive-
// failure blocker detection.
//
// Import rules:
//   - CAN import: internal/bus, internal/clock, internal/constants, internal/domain, internal/errors, std lib
//   - MUST NOT import: internal/planner, internal/coordinator, internal/cli
package progress

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/gantry/internal/bus"
	"github.com/mrz1836/gantry/internal/clock"
	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/domain"
	gerrors "github.com/mrz1836/gantry/internal/errors"
)

// Config holds configuration for the tracker.
type Config struct {
	// BlockerThreshold is how many consecutive failures flip the view to
	// BLOCKED. Zero or negative falls back to the default.
	BlockerThreshold int

	// VelocityWindow is the sliding window for the completion rate.
	// Zero or negative falls back to the default.
	VelocityWindow time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BlockerThreshold: constants.DefaultBlockerThreshold,
		VelocityWindow:   constants.DefaultVelocityWindow,
	}
}

// normalize applies defaults to the config.
func (c Config) normalize() Config {
	if c.BlockerThreshold <= 0 {
		c.BlockerThreshold = constants.DefaultBlockerThreshold
	}
	if c.VelocityWindow <= 0 {
		c.VelocityWindow = constants.DefaultVelocityWindow
	}
	return c
}

// entry is the tracker's own record of one task.
type entry struct {
	id     string
	name   string
	phase  constants.PlanPhase
	weight float64
	status constants.TaskStatus
}

// Tracker keeps the reporting view of a plan's execution. Its per-task
// statuses are independent of the Plan struct: InitializePlan resets every
// task to PENDING regardless of what the plan says, and afterward they move
// only through Mark* events or an explicit RestoreStatuses.
type Tracker struct {
	cfg      Config
	clock    clock.Clock
	notifier bus.Notifier
	logger   zerolog.Logger

	planID      string
	entries     []*entry
	byID        map[string]*entry
	completions []time.Time
	failStreak  int
	announced   bool
	activity    bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the time source used for velocity samples.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) {
		t.clock = c
	}
}

// WithNotifier sets the notifier that receives blocker:detected events.
func WithNotifier(n bus.Notifier) Option {
	return func(t *Tracker) {
		t.notifier = n
	}
}

// New creates a tracker with the given configuration.
func New(cfg Config, logger zerolog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		cfg:    cfg.normalize(),
		clock:  clock.RealClock{},
		logger: logger,
		byID:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// InitializePlan loads the plan into the tracker, computing total weight and
// resetting every task to PENDING in the tracker's own view regardless of
// what the plan says. The tracker is an independent record of the events it
// is told about, nothing more; callers resuming a stored plan re-apply prior
// outcomes with RestoreStatuses. Calling InitializePlan again discards all
// previous tracking state, including streaks and velocity samples.
func (t *Tracker) InitializePlan(plan *domain.Plan) {
	t.planID = plan.ID
	t.entries = make([]*entry, 0, len(plan.Tasks))
	t.byID = make(map[string]*entry, len(plan.Tasks))
	t.completions = nil
	t.failStreak = 0
	t.announced = false
	t.activity = false

	for _, task := range plan.Tasks {
		e := &entry{
			id:     task.ID,
			name:   task.Name,
			phase:  task.Phase,
			weight: task.Weight(),
			status: constants.TaskStatusPending,
		}
		t.entries = append(t.entries, e)
		t.byID[task.ID] = e
	}

	t.logger.Debug().
		Str("plan_id", plan.ID).
		Int("tasks", len(t.entries)).
		Msg("tracker initialized")
}

// RestoreStatuses copies the plan's current task statuses into the tracker
// view. Restored outcomes are history, not fresh events: they take no
// velocity samples, extend no failure streak, and publish nothing. Resumed
// runs and report views call this after InitializePlan so work finished in
// an earlier process still counts.
func (t *Tracker) RestoreStatuses(plan *domain.Plan) {
	for _, task := range plan.Tasks {
		e, ok := t.byID[task.ID]
		if !ok || task.Status == "" {
			continue
		}
		e.status = task.Status
		if task.Status != constants.TaskStatusPending {
			t.activity = true
		}
	}
}

// MarkTaskStarted records that work on the task began.
func (t *Tracker) MarkTaskStarted(taskID string) error {
	e, err := t.entry(taskID)
	if err != nil {
		return err
	}
	e.status = constants.TaskStatusRunning
	t.activity = true
	return nil
}

// MarkTaskCompleted records a successful finish: the task's weight counts
// toward progress, a velocity sample is taken, and any failure streak ends.
func (t *Tracker) MarkTaskCompleted(taskID string) error {
	e, err := t.entry(taskID)
	if err != nil {
		return err
	}
	e.status = constants.TaskStatusCompleted
	t.activity = true
	t.completions = append(t.completions, t.clock.Now())
	t.failStreak = 0
	t.announced = false
	return nil
}

// MarkTaskFailed records a failure and extends the consecutive-failure
// streak. Reaching the blocker threshold publishes blocker:detected once per
// streak; the view stays BLOCKED until a completion resets it.
func (t *Tracker) MarkTaskFailed(taskID string) error {
	e, err := t.entry(taskID)
	if err != nil {
		return err
	}
	e.status = constants.TaskStatusFailed
	t.activity = true
	t.failStreak++

	if t.failStreak >= t.cfg.BlockerThreshold && !t.announced {
		t.announced = true

		t.logger.Warn().
			Str("plan_id", t.planID).
			Str("task_id", taskID).
			Int("streak", t.failStreak).
			Msg("blocker detected")

		if t.notifier != nil {
			t.notifier.Publish(bus.Event{
				Topic:     bus.TopicBlockerDetected,
				PlanID:    t.planID,
				TaskID:    taskID,
				Attempt:   t.failStreak,
				Reason:    "consecutive task failures reached the blocker threshold",
				Timestamp: t.clock.Now(),
			})
		}
	}

	return nil
}

// MarkTaskSkipped records that the task was skipped. Skipping removes the
// task's weight from the effective total rather than counting it complete,
// and does not reset a failure streak.
func (t *Tracker) MarkTaskSkipped(taskID string) error {
	e, err := t.entry(taskID)
	if err != nil {
		return err
	}
	e.status = constants.TaskStatusSkipped
	t.activity = true
	return nil
}

// entry resolves a task id to the tracker's record.
func (t *Tracker) entry(taskID string) (*entry, error) {
	e, ok := t.byID[taskID]
	if !ok {
		return nil, gerrors.Wrapf(gerrors.ErrTaskNotFound, "task %s not tracked", taskID)
	}
	return e, nil
}

// Snapshot is the tracker's aggregate view at one moment.
type Snapshot struct {
	// PlanID is the tracked plan.
	PlanID string `json:"plan_id"`

	// Status is the derived overall status.
	Status constants.TrackerStatus `json:"status"`

	// TotalTasks is the number of tracked tasks.
	TotalTasks int `json:"total_tasks"`

	// Completed, InProgress, Failed, Skipped and Pending count tasks by
	// their tracked status.
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	Pending    int `json:"pending"`

	// Percentage is completed weight over the weight still in play (total
	// minus skipped), rounded to the nearest integer. It reads 100 exactly
	// when every task is completed or skipped, never earlier.
	Percentage int `json:"percentage"`

	// TotalWeight and CompletedWeight are the complexity sums behind
	// Percentage.
	TotalWeight     float64 `json:"total_weight"`
	CompletedWeight float64 `json:"completed_weight"`

	// TasksPerHour is the completion rate inside the velocity window.
	TasksPerHour float64 `json:"tasks_per_hour"`
}

// Progress computes the current aggregate snapshot.
func (t *Tracker) Progress() Snapshot {
	snap := Snapshot{
		PlanID:     t.planID,
		TotalTasks: len(t.entries),
	}

	var skippedWeight float64
	for _, e := range t.entries {
		snap.TotalWeight += e.weight
		switch e.status {
		case constants.TaskStatusCompleted:
			snap.Completed++
			snap.CompletedWeight += e.weight
		case constants.TaskStatusRunning:
			snap.InProgress++
		case constants.TaskStatusFailed:
			snap.Failed++
		case constants.TaskStatusSkipped:
			snap.Skipped++
			skippedWeight += e.weight
		default:
			snap.Pending++
		}
	}

	snap.Percentage = weightedPercentage(snap.CompletedWeight, snap.TotalWeight, skippedWeight,
		snap.TotalTasks-snap.Completed-snap.Skipped)
	snap.TasksPerHour = t.velocity()
	snap.Status = t.status(snap)

	return snap
}

// weightedPercentage computes the rounded completion percentage. Skipped
// weight leaves the denominator: skipping shrinks the plan instead of
// counting as progress, so the result reaches 100 exactly when every task
// is completed or skipped. remaining is the count of tasks in neither of
// those states; while it is non-zero, rounding is capped at 99.
func weightedPercentage(completedWeight, totalWeight, skippedWeight float64, remaining int) int {
	effective := totalWeight - skippedWeight
	if effective <= 0 {
		if remaining == 0 && totalWeight > 0 {
			return 100
		}
		return 0
	}
	pct := int(math.Round(completedWeight / effective * 100))
	if pct >= 100 && remaining > 0 {
		return 99
	}
	return pct
}

// status derives the overall tracker status from the counts.
func (t *Tracker) status(snap Snapshot) constants.TrackerStatus {
	if snap.TotalTasks > 0 && snap.Completed+snap.Skipped == snap.TotalTasks {
		return constants.TrackerStatusCompleted
	}
	if t.failStreak >= t.cfg.BlockerThreshold {
		return constants.TrackerStatusBlocked
	}
	if !t.activity {
		return constants.TrackerStatusNotStarted
	}
	return constants.TrackerStatusInProgress
}

// velocity computes completions per hour inside the sliding window.
func (t *Tracker) velocity() float64 {
	cutoff := t.clock.Now().Add(-t.cfg.VelocityWindow)
	count := 0
	for _, sample := range t.completions {
		if sample.After(cutoff) {
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return float64(count) / t.cfg.VelocityWindow.Hours()
}

// PhaseProgress is the per-phase completion breakdown.
type PhaseProgress struct {
	// Phase is the plan phase the row describes.
	Phase constants.PlanPhase `json:"phase"`

	// Total and Completed count the phase's tasks.
	Total     int `json:"total"`
	Completed int `json:"completed"`

	// Percentage is completed over non-skipped tasks, rounded to the
	// nearest integer, mirroring the plan-level percentage rule.
	Percentage int `json:"percentage"`
}

// ProgressByPhase breaks completion down per plan phase, in phase order.
// Phases with no tasks are omitted.
func (t *Tracker) ProgressByPhase() []PhaseProgress {
	totals := make(map[constants.PlanPhase]int)
	completed := make(map[constants.PlanPhase]int)
	skipped := make(map[constants.PlanPhase]int)
	for _, e := range t.entries {
		totals[e.phase]++
		switch e.status {
		case constants.TaskStatusCompleted:
			completed[e.phase]++
		case constants.TaskStatusSkipped:
			skipped[e.phase]++
		}
	}

	var out []PhaseProgress
	for _, phase := range constants.PlanPhases() {
		total := totals[phase]
		if total == 0 {
			continue
		}
		row := PhaseProgress{
			Phase:     phase,
			Total:     total,
			Completed: completed[phase],
		}
		row.Percentage = weightedPercentage(float64(row.Completed), float64(total), float64(skipped[phase]),
			total-row.Completed-skipped[phase])
		out = append(out, row)
	}
	return out
}
