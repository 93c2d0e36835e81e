// Package driver runs a plan end to end. It is the single writer the core
// packages assume: it dispatches one execution group at a time, runs the
// per-task work callbacks concurrently via errgroup, and serializes every
// planner, coordinator, and tracker mutation under its own mutex. It does
// not advance to the next group until every task in the current group is
// terminal.
package driver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/gantry/internal/clock"
	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/coordinator"
	"github.com/mrz1836/gantry/internal/domain"
	gerrors "github.com/mrz1836/gantry/internal/errors"
	"github.com/mrz1836/gantry/internal/logging"
	"github.com/mrz1836/gantry/internal/planner"
	"github.com/mrz1836/gantry/internal/progress"
)

// WorkFunc performs the work for one assigned task. Returning nil marks the
// task completed; returning an error marks it failed and consumes retry
// budget. The assignment identifies the agent working the task and carries
// the failure count from earlier attempts.
type WorkFunc func(ctx context.Context, task *domain.Task, assignment *domain.Assignment) error

// ConfirmFunc gates advancement past a phase-boundary checkpoint. Returning
// false halts the run; returning an error aborts it with that error.
type ConfirmFunc func(ctx context.Context, checkpoint domain.Checkpoint, snap progress.Snapshot) (bool, error)

// Config holds driving-loop settings.
type Config struct {
	// MaxRetries is the per-task retry budget after the initial attempt.
	MaxRetries int

	// RetryDelay is how long a failed task waits before its next attempt.
	RetryDelay time.Duration

	// AssignPoll is how often assignment is re-attempted while every
	// capable agent is busy.
	AssignPoll time.Duration

	// SkipFailed marks tasks that exhaust their retry budget SKIPPED so
	// the run can continue instead of halting. Dependents of a skipped
	// task still become eligible.
	SkipFailed bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries: constants.DefaultMaxRetries,
		RetryDelay: constants.DefaultRetryDelay,
		AssignPoll: constants.DefaultAssignPoll,
	}
}

// normalize applies defaults to the config.
func (c Config) normalize() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = constants.DefaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = constants.DefaultRetryDelay
	}
	if c.AssignPoll <= 0 {
		c.AssignPoll = constants.DefaultAssignPoll
	}
	return c
}

// RunResult summarizes a finished or halted plan run.
type RunResult struct {
	// PlanID identifies the plan that was run.
	PlanID string `json:"plan_id"`

	// Completed counts tasks that finished successfully.
	Completed int `json:"completed"`

	// Failed counts tasks left in the failed state.
	Failed int `json:"failed"`

	// Skipped counts tasks marked skipped after exhausting retries.
	Skipped int `json:"skipped"`

	// Halted is true when the run stopped before the final group.
	Halted bool `json:"halted"`

	// Reason explains the halt, empty for a full run.
	Reason string `json:"reason,omitempty"`

	// Duration is the wall-clock time of the run.
	Duration time.Duration `json:"duration"`
}

// Driver executes plans against a planner, coordinator, and tracker.
type Driver struct {
	planner *planner.Planner
	coord   *coordinator.Coordinator
	tracker *progress.Tracker
	cfg     Config
	clock   clock.Clock
	logger  zerolog.Logger
	confirm ConfirmFunc

	// mu serializes every core mutation; work callbacks run outside it.
	mu       sync.Mutex
	released chan struct{}
}

// Option configures a Driver.
type Option func(*Driver)

// WithClock replaces the wall clock, typically with a fake in tests.
func WithClock(c clock.Clock) Option {
	return func(d *Driver) {
		d.clock = c
	}
}

// WithConfirm installs a hook invoked at phase-boundary checkpoints before
// the run advances into the next phase.
func WithConfirm(fn ConfirmFunc) Option {
	return func(d *Driver) {
		d.confirm = fn
	}
}

// New creates a Driver around the given core components.
func New(p *planner.Planner, c *coordinator.Coordinator, tr *progress.Tracker, cfg Config, logger zerolog.Logger, opts ...Option) *Driver {
	d := &Driver{
		planner:  p,
		coord:    c,
		tracker:  tr,
		cfg:      cfg.normalize(),
		clock:    clock.RealClock{},
		logger:   logger,
		released: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes the plan group by group and returns a summary. The returned
// RunResult is non-nil whenever dispatch started, including on error, so
// callers can report partial progress after a halt.
func (d *Driver) Run(ctx context.Context, plan *domain.Plan, work WorkFunc) (*RunResult, error) {
	if plan == nil {
		return nil, gerrors.Wrap(gerrors.ErrEmptyValue, "plan is required")
	}
	if work == nil {
		return nil, gerrors.Wrap(gerrors.ErrEmptyValue, "work callback is required")
	}

	start := d.clock.Now()
	d.resetInterrupted(plan)
	d.tracker.InitializePlan(plan)
	d.tracker.RestoreStatuses(plan)

	d.logger.Info().
		Str("plan_id", plan.ID).
		Int("tasks", len(plan.Tasks)).
		Int("groups", len(plan.ExecutionGroups)).
		Msg("starting plan run")

	for _, group := range plan.ExecutionGroups {
		if err := ctx.Err(); err != nil {
			return d.result(plan, start, "run canceled"), err
		}

		if err := d.runGroup(ctx, plan, group, work); err != nil {
			d.logger.Warn().
				Str("plan_id", plan.ID).
				Int("group", group.Order).
				Err(err).
				Msg("plan run halted")
			return d.result(plan, start, err.Error()), err
		}

		for _, cp := range checkpointsAfter(plan, group.Order) {
			if err := d.pause(ctx, cp); err != nil {
				return d.result(plan, start, err.Error()), err
			}
		}
	}

	res := d.result(plan, start, "")
	d.logger.Info().
		Str("plan_id", plan.ID).
		Int("completed", res.Completed).
		Int("skipped", res.Skipped).
		Dur("duration", res.Duration).
		Msg("plan run finished")
	return res, nil
}

// resetInterrupted returns tasks stranded in the running state to pending.
// A crashed run can leave them marked running; the work never finished, so
// they run again.
func (d *Driver) resetInterrupted(plan *domain.Plan) {
	for _, task := range plan.Tasks {
		if task.Status == constants.TaskStatusRunning {
			_ = d.planner.UpdateTaskStatus(plan, task.ID, constants.TaskStatusPending)
		}
	}
}

// runGroup dispatches every ready task in the group concurrently and waits
// for all of them. The first task that fails beyond its budget cancels the
// rest of the group.
func (d *Driver) runGroup(ctx context.Context, plan *domain.Plan, group domain.ExecutionGroup, work WorkFunc) error {
	tasks := d.readyTasks(plan, group)
	if len(tasks) == 0 {
		return d.checkGroupTerminal(plan, group)
	}

	d.logger.Debug().
		Str("plan_id", plan.ID).
		Int("group", group.Order).
		Int("tasks", len(tasks)).
		Bool("parallel", group.CanRunInParallel).
		Msg("dispatching execution group")

	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			return d.runTask(gctx, plan, task, work)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return d.checkGroupTerminal(plan, group)
}

// readyTasks returns the group members currently eligible to run: schedule
// order satisfied, not already terminal.
func (d *Driver) readyTasks(plan *domain.Plan, group domain.ExecutionGroup) []*domain.Task {
	d.mu.Lock()
	defer d.mu.Unlock()

	ready := planner.NextTasks(plan, plan.CompletedIDs())
	members := make(map[string]struct{}, len(group.TaskIDs))
	for _, id := range group.TaskIDs {
		members[id] = struct{}{}
	}

	var tasks []*domain.Task
	for _, task := range ready {
		if _, ok := members[task.ID]; ok {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// checkGroupTerminal enforces that the run never advances past a group with
// unfinished tasks.
func (d *Driver) checkGroupTerminal(plan *domain.Plan, group domain.ExecutionGroup) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, task := range plan.GroupTasks(group) {
		if !task.Status.IsTerminal() {
			return gerrors.Wrapf(gerrors.ErrTaskFailed, "task %s in group %d did not reach a terminal state", task.ID, group.Order)
		}
	}
	return nil
}

// runTask drives one task through assignment, work, and retries until it is
// terminal or the run must halt.
func (d *Driver) runTask(ctx context.Context, plan *domain.Plan, task *domain.Task, work WorkFunc) error {
	for {
		assignment, err := d.acquire(ctx, plan, task)
		if err != nil {
			return err
		}

		workErr := work(ctx, task, assignment)

		if workErr == nil {
			d.mu.Lock()
			_ = d.coord.ReportTaskCompleted(task.ID)
			_ = d.planner.UpdateTaskStatus(plan, task.ID, constants.TaskStatusCompleted)
			_ = d.tracker.MarkTaskCompleted(task.ID)
			d.mu.Unlock()
			d.signalRelease()
			return nil
		}

		// Work callbacks run arbitrary commands whose error text can echo
		// credentials. Scrub once here so every downstream consumer (the
		// coordinator's failure reason, logs, the returned error) sees the
		// filtered form.
		reason := logging.FilterSensitiveValue(workErr.Error())

		d.mu.Lock()
		_ = d.coord.ReportTaskFailed(task.ID, reason)
		failures := d.coord.RetryCount(task.ID)
		_ = d.planner.UpdateTaskStatus(plan, task.ID, constants.TaskStatusFailed)
		_ = d.tracker.MarkTaskFailed(task.ID)
		d.mu.Unlock()
		d.signalRelease()

		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		if failures <= d.cfg.MaxRetries {
			d.logger.Debug().
				Str("task_id", task.ID).
				Int("failures", failures).
				Dur("retry_delay", d.cfg.RetryDelay).
				Msg("task failed, retrying after delay")
			if werr := d.waitRetry(ctx); werr != nil {
				return werr
			}
			continue
		}

		if d.cfg.SkipFailed {
			d.mu.Lock()
			_ = d.planner.UpdateTaskStatus(plan, task.ID, constants.TaskStatusSkipped)
			_ = d.tracker.MarkTaskSkipped(task.ID)
			d.mu.Unlock()
			d.logger.Warn().
				Str("task_id", task.ID).
				Int("failures", failures).
				Msg("task skipped after exhausting retries")
			return nil
		}

		return gerrors.Wrapf(gerrors.ErrTaskFailed, "task %s failed after %d attempts: %s", task.ID, failures, reason)
	}
}

// acquire assigns an agent to the task, waiting for a release when every
// capable agent is busy. It fails fast when no registered agent could ever
// serve the task.
func (d *Driver) acquire(ctx context.Context, plan *domain.Plan, task *domain.Task) (*domain.Assignment, error) {
	if !d.coord.CanServe(task) {
		return nil, gerrors.Wrapf(gerrors.ErrNoAvailableAgent, "no registered agent can serve task %s", task.ID)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		d.mu.Lock()
		assignment, err := d.coord.AssignTask(task)
		if err == nil {
			_ = d.planner.UpdateTaskStatus(plan, task.ID, constants.TaskStatusRunning)
			_ = d.tracker.MarkTaskStarted(task.ID)
			d.mu.Unlock()
			return assignment, nil
		}
		d.mu.Unlock()

		if !errors.Is(err, gerrors.ErrNoAvailableAgent) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-d.released:
		case <-d.clock.After(d.cfg.AssignPoll):
		}
	}
}

// pause handles a checkpoint between groups. Phase-boundary checkpoints run
// the confirm hook when one is installed; a declined confirm halts the run.
// Final checkpoints are informational.
func (d *Driver) pause(ctx context.Context, cp domain.Checkpoint) error {
	snap := d.snapshot()
	d.logger.Info().
		Str("checkpoint_id", cp.ID).
		Str("type", cp.Type.String()).
		Int("after_order", cp.AfterOrder).
		Int("completed", snap.Completed).
		Msg("checkpoint reached")

	if cp.Type != constants.CheckpointPhaseBoundary || d.confirm == nil {
		return nil
	}

	ok, err := d.confirm(ctx, cp, snap)
	if err != nil {
		return err
	}
	if !ok {
		return gerrors.Wrapf(gerrors.ErrOperationCanceled, "checkpoint %s declined", cp.ID)
	}
	return nil
}

// waitRetry blocks until the retry delay elapses or the context is canceled.
func (d *Driver) waitRetry(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.clock.After(d.cfg.RetryDelay):
		return nil
	}
}

// signalRelease wakes one goroutine waiting for an agent. The buffer of one
// makes the signal level-triggered; waiters also poll as a backstop.
func (d *Driver) signalRelease() {
	select {
	case d.released <- struct{}{}:
	default:
	}
}

func (d *Driver) snapshot() progress.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tracker.Progress()
}

func (d *Driver) result(plan *domain.Plan, start time.Time, reason string) *RunResult {
	snap := d.snapshot()
	return &RunResult{
		PlanID:    plan.ID,
		Completed: snap.Completed,
		Failed:    snap.Failed,
		Skipped:   snap.Skipped,
		Halted:    reason != "",
		Reason:    reason,
		Duration:  d.clock.Now().Sub(start),
	}
}

// checkpointsAfter returns the checkpoints attached to the given group
// order, in plan order.
func checkpointsAfter(plan *domain.Plan, order int) []domain.Checkpoint {
	var out []domain.Checkpoint
	for _, cp := range plan.Checkpoints {
		if cp.AfterOrder == order {
			out = append(out, cp)
		}
	}
	return out
}
