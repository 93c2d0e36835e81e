package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/gantry/internal/bus"
	"github.com/mrz1836/gantry/internal/clock"
	"github.com/mrz1836/gantry/internal/config"
	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/coordinator"
	"github.com/mrz1836/gantry/internal/ctxutil"
	"github.com/mrz1836/gantry/internal/domain"
	"github.com/mrz1836/gantry/internal/driver"
	gerrors "github.com/mrz1836/gantry/internal/errors"
	"github.com/mrz1836/gantry/internal/iteration"
	"github.com/mrz1836/gantry/internal/manifest"
	"github.com/mrz1836/gantry/internal/planner"
	"github.com/mrz1836/gantry/internal/progress"
	"github.com/mrz1836/gantry/internal/signal"
	"github.com/mrz1836/gantry/internal/store"
	"github.com/mrz1836/gantry/internal/tui"
	"github.com/mrz1836/gantry/internal/work"
)

// planIDArgPattern matches arguments naming a stored plan rather than a
// manifest file. It mirrors the id format the store accepts.
var planIDArgPattern = regexp.MustCompile(`^plan-[a-z0-9][a-z0-9_-]*$`)

// AddRunCommand adds the run command to the root command.
func AddRunCommand(parent *cobra.Command) {
	var interactive bool
	var skipFailed bool
	var taskDelay time.Duration
	var workDir string

	cmd := &cobra.Command{
		Use:   "run <plan-id|manifest>",
		Short: "Run a plan through the build, test and fix cycle",
		Long: `Run a stored plan, or plan and run a manifest in one step.

Tasks run group by group: independent tasks dispatch concurrently up to
the planned group size, each to an agent whose capabilities match. Tasks
with a command in the manifest execute it through the shell from the
--workdir directory; tasks without one simulate work for --task-delay.
A failed task retries after a delay until the engine's retry budget runs
out, then the run halts (or the task is skipped with --skip-failed).

The whole run is one build/test/fix iteration: a halted run consumes
iteration retry budget and re-drives the unfinished tasks, persistent
failures feed bounded fix passes, and an exhausted budget escalates to
the operator instead of looping forever.

When the argument is a manifest whose plan_id is already stored, the
stored plan resumes: completed tasks stay done and execution picks up at
the first unfinished one. If the manifest's task count changed, re-plan
with 'gantry plan --force' first.

Examples:
  gantry run tasks.yaml                # Plan (or resume) and run a manifest
  gantry run plan-a1b2c3d4             # Run a stored plan (simulated work)
  gantry run tasks.yaml --skip-failed  # Keep going past exhausted tasks
  gantry run tasks.yaml --interactive  # Confirm at phase boundaries`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), cmd, args[0], runOptions{
				interactive:   interactive,
				skipFailed:    skipFailed,
				skipFailedSet: cmd.Flags().Changed("skip-failed"),
				taskDelay:     taskDelay,
				workDir:       workDir,
			}, os.Stdout)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Confirm phase-boundary checkpoints before continuing")
	cmd.Flags().BoolVar(&skipFailed, "skip-failed", false, "Skip tasks that exhaust retries instead of halting")
	cmd.Flags().DurationVar(&taskDelay, "task-delay", 0, "Simulated work duration for tasks without a command")
	cmd.Flags().StringVar(&workDir, "workdir", ".", "Working directory for task commands")

	parent.AddCommand(cmd)
}

// runOptions contains all options for the run command.
type runOptions struct {
	output        string
	quiet         bool
	interactive   bool
	skipFailed    bool
	skipFailedSet bool
	taskDelay     time.Duration
	workDir       string
}

// runDeps contains the dependencies for the run command.
// Used for dependency injection in tests.
type runDeps struct {
	store   store.Store
	cfg     *config.Config
	runner  work.Runner
	clock   clock.Clock
	logger  zerolog.Logger
	confirm driver.ConfirmFunc
}

// runTarget is a resolved run input: the plan to drive, the shell commands
// keyed by task id, and the worker pool.
type runTarget struct {
	plan     *domain.Plan
	commands map[string]string
	agents   []domain.Agent
	resumed  bool
}

// runResponse is the JSON shape of the run outcome.
type runResponse struct {
	PlanID      string                   `json:"plan_id"`
	IterationID string                   `json:"iteration_id"`
	Success     bool                     `json:"success"`
	Escalated   bool                     `json:"escalated,omitempty"`
	Phase       constants.IterationPhase `json:"phase,omitempty"`
	RetryCount  int                      `json:"retry_count"`
	FixAttempts int                      `json:"fix_attempts"`
	Snapshot    progress.Snapshot        `json:"snapshot"`
	Run         *driver.RunResult        `json:"run,omitempty"`
	Failures    []domain.Failure         `json:"failures,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// runRun executes the run command with production dependencies.
func runRun(ctx context.Context, cmd *cobra.Command, target string, opts runOptions, w io.Writer) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	// Interrupts cancel the run so in-flight tasks stop at the next
	// cancellation point and the plan persists in its current state.
	sigHandler := signal.NewHandler(ctx)
	defer sigHandler.Stop()
	ctx = sigHandler.Context()

	opts.output = cmd.Flag("output").Value.String()
	opts.quiet = cmd.Flag("quiet").Value.String() == "true"

	// Respect NO_COLOR
	tui.CheckNoColor()

	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	deps := runDeps{
		store:  st,
		cfg:    cfg,
		runner: &work.ShellRunner{},
		clock:  clock.RealClock{},
		logger: GetLogger(),
	}
	if opts.interactive {
		deps.confirm = tui.ConfirmCheckpoint
	}

	return runRunWithDeps(ctx, w, target, opts, deps)
}

// runRunWithDeps executes the run command with injected dependencies.
// This enables testing with mock implementations.
func runRunWithDeps(ctx context.Context, w io.Writer, target string, opts runOptions, deps runDeps) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	out, err := tui.NewOutput(w, opts.output)
	if err != nil {
		return err
	}

	rt, err := resolveRunTarget(ctx, target, deps)
	if err != nil {
		return err
	}
	plan := rt.plan

	if !opts.quiet && opts.output != OutputJSON {
		verb := "Running"
		if rt.resumed {
			verb = "Resuming"
		}
		out.Info(fmt.Sprintf("%s plan %s: %d tasks in %d groups", verb, plan.ID, len(plan.Tasks), len(plan.ExecutionGroups)))
	}

	engine, err := assembleEngine(ctx, plan, rt.agents, opts, deps)
	if err != nil {
		return err
	}

	workFn := newWorkFunc(opts, deps, rt.commands)

	iter := engine.iterations.StartIteration(plan.ID)
	if saveErr := deps.store.SaveIteration(ctx, iter); saveErr != nil {
		deps.logger.Warn().Err(saveErr).Str("iteration_id", iter.ID).Msg("failed to persist iteration")
	}

	var lastRun *driver.RunResult
	drive := func(ctx context.Context) domain.CallbackResult {
		res, runErr := engine.driver.Run(ctx, plan, workFn)
		if res != nil {
			lastRun = res
		}
		return driveResult(plan, runErr)
	}

	cycle, cycleErr := engine.iterations.RunFullCycle(ctx, iter.ID, domain.PhaseCallbacks{
		Build: drive,
		Test: func(context.Context) domain.CallbackResult {
			return planHealthResult(plan)
		},
		Fix: func(ctx context.Context, _ []domain.Failure) domain.CallbackResult {
			return drive(ctx)
		},
	})

	// Persist final state even when the cycle failed; status and report
	// read from the store.
	persistCtx := context.WithoutCancel(ctx)
	if saveErr := deps.store.SaveIteration(persistCtx, iter); saveErr != nil {
		deps.logger.Warn().Err(saveErr).Str("iteration_id", iter.ID).Msg("failed to persist iteration")
	}
	if saveErr := deps.store.SavePlan(persistCtx, plan); saveErr != nil {
		deps.logger.Warn().Err(saveErr).Str("plan_id", plan.ID).Msg("failed to persist plan")
	}

	return renderRunOutcome(w, out, opts, engine, plan, iter.ID, lastRun, cycle, cycleErr)
}

// runEngine bundles the assembled core components of one run.
type runEngine struct {
	driver     *driver.Driver
	coord      *coordinator.Coordinator
	iterations *iteration.Manager
}

// assembleEngine wires the planner, coordinator, tracker, driver and
// iteration manager for one run, all sharing an event bus that persists the
// plan as task statuses change.
func assembleEngine(ctx context.Context, plan *domain.Plan, agents []domain.Agent, opts runOptions, deps runDeps) (*runEngine, error) {
	engineCfg := deps.cfg.Engine

	events := bus.New()
	// Task-status publishes happen while the driver holds its mutation
	// lock, so the handler always sees a consistent plan.
	events.SubscribeAll(func(e bus.Event) {
		switch e.Topic {
		case bus.TopicTaskAssigned, bus.TopicTaskCompleted, bus.TopicTaskFailed:
			if err := deps.store.SavePlan(ctx, plan); err != nil {
				deps.logger.Warn().Err(err).Str("plan_id", plan.ID).Msg("failed to persist plan snapshot")
			}
		default:
		}
	})

	coord, err := coordinator.New(coordinator.Config{
		Strategy: constants.StrategyName(engineCfg.Strategy),
	}, agents, deps.logger, coordinator.WithClock(deps.clock), coordinator.WithNotifier(events))
	if err != nil {
		return nil, err
	}

	tracker := progress.New(progress.Config{
		BlockerThreshold: deps.cfg.Tracking.BlockerThreshold,
		VelocityWindow:   deps.cfg.Tracking.VelocityWindow,
	}, deps.logger, progress.WithClock(deps.clock), progress.WithNotifier(events))

	plnr := planner.New(deps.logger, planner.WithClock(deps.clock), planner.WithNotifier(events))

	skipFailed := engineCfg.SkipFailed
	if opts.skipFailedSet {
		skipFailed = opts.skipFailed
	}

	driverOpts := []driver.Option{driver.WithClock(deps.clock)}
	if deps.confirm != nil {
		driverOpts = append(driverOpts, driver.WithConfirm(deps.confirm))
	}
	drv := driver.New(plnr, coord, tracker, driver.Config{
		MaxRetries: engineCfg.MaxRetries,
		RetryDelay: engineCfg.RetryDelay,
		AssignPoll: engineCfg.AssignPoll,
		SkipFailed: skipFailed,
	}, deps.logger, driverOpts...)

	iterations := iteration.New(iteration.Config{
		MaxRetries:     engineCfg.MaxRetries,
		MaxFixAttempts: engineCfg.MaxFixAttempts,
		RetryDelay:     engineCfg.RetryDelay,
	}, deps.logger, iteration.WithClock(deps.clock), iteration.WithNotifier(events))

	return &runEngine{driver: drv, coord: coord, iterations: iterations}, nil
}

// resolveRunTarget loads the plan named by a plan-id argument, or plans the
// given manifest.
func resolveRunTarget(ctx context.Context, target string, deps runDeps) (*runTarget, error) {
	if planIDArgPattern.MatchString(target) {
		plan, err := deps.store.LoadPlan(ctx, target)
		if err != nil {
			return nil, err
		}
		return &runTarget{
			plan:    plan,
			agents:  defaultAgentPool(deps.cfg.Engine.MaxConcurrency),
			resumed: true,
		}, nil
	}
	return resolveManifestTarget(ctx, target, deps)
}

// resolveManifestTarget plans a manifest, resuming the stored plan when the
// manifest pins an id that is already stored.
func resolveManifestTarget(ctx context.Context, path string, deps runDeps) (*runTarget, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}

	agents := m.AgentList()
	if len(agents) == 0 {
		agents = defaultAgentPool(resolveMaxConcurrency(0, m.MaxConcurrency, deps.cfg))
	}

	if m.PlanID != "" {
		plan, loadErr := deps.store.LoadPlan(ctx, m.PlanID)
		switch {
		case loadErr == nil:
			// Commands map to tasks by position, so the stored plan must
			// still line up with the manifest.
			if len(plan.Tasks) != len(m.Tasks) {
				return nil, gerrors.Wrapf(gerrors.ErrManifestInvalid,
					"stored plan %s has %d tasks but the manifest declares %d; run 'gantry plan %s --force' to re-plan",
					plan.ID, len(plan.Tasks), len(m.Tasks), path)
			}
			return &runTarget{
				plan:     plan,
				commands: commandsByTaskID(plan, m),
				agents:   agents,
				resumed:  true,
			}, nil
		case !errors.Is(loadErr, gerrors.ErrPlanNotFound):
			return nil, loadErr
		}
	}

	plan, err := planner.New(deps.logger, planner.WithClock(deps.clock)).CreatePlan(m.TaskList(), planner.Options{
		MaxConcurrency: resolveMaxConcurrency(0, m.MaxConcurrency, deps.cfg),
		PlanID:         m.PlanID,
	})
	if err != nil {
		return nil, err
	}
	if err := deps.store.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}

	return &runTarget{
		plan:     plan,
		commands: commandsByTaskID(plan, m),
		agents:   agents,
	}, nil
}

// commandsByTaskID rebinds the manifest's positional commands to planned
// task ids. Plan tasks keep manifest order, so index i belongs to task i.
func commandsByTaskID(plan *domain.Plan, m *manifest.Manifest) map[string]string {
	byIndex := m.Commands()
	if len(byIndex) == 0 {
		return nil
	}
	commands := make(map[string]string, len(byIndex))
	for i, command := range byIndex {
		if i < len(plan.Tasks) {
			commands[plan.Tasks[i].ID] = command
		}
	}
	return commands
}

// newWorkFunc builds the per-task work callback. Tasks with a manifest
// command execute it through the shell; the rest simulate work by waiting
// out the task delay.
func newWorkFunc(opts runOptions, deps runDeps, commands map[string]string) driver.WorkFunc {
	return func(ctx context.Context, task *domain.Task, _ *domain.Assignment) error {
		command, ok := commands[task.ID]
		if !ok {
			if opts.taskDelay <= 0 {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-deps.clock.After(opts.taskDelay):
				return nil
			}
		}

		_, stderr, exitCode, err := deps.runner.Run(ctx, opts.workDir, command)
		if err != nil {
			return fmt.Errorf("command failed with exit code %d: %s", exitCode, stderrTail(stderr))
		}
		return nil
	}
}

// stderrTailLimit bounds how much captured stderr a task failure carries
// into retry reasons and logs.
const stderrTailLimit = 300

// stderrTail returns the trailing portion of captured stderr, where shell
// failures usually state their actual cause.
func stderrTail(stderr string) string {
	if stderr == "" {
		return "(no stderr)"
	}
	if len(stderr) > stderrTailLimit {
		return "..." + stderr[len(stderr)-stderrTailLimit:]
	}
	return stderr
}

// driveResult converts one driver pass into a phase callback result.
func driveResult(plan *domain.Plan, runErr error) domain.CallbackResult {
	if runErr == nil {
		return domain.CallbackResult{Success: true}
	}
	return domain.CallbackResult{
		Success:  false,
		Failures: failedTasks(plan),
		Err:      runErr.Error(),
	}
}

// planHealthResult passes when every task reached a terminal state with no
// failures left behind.
func planHealthResult(plan *domain.Plan) domain.CallbackResult {
	failures := failedTasks(plan)
	if len(failures) > 0 {
		return domain.CallbackResult{Success: false, Failures: failures}
	}
	for _, task := range plan.Tasks {
		if !task.Status.IsTerminal() {
			return domain.CallbackResult{
				Success:  false,
				Failures: []domain.Failure{{Item: task.ID, Detail: "did not reach a terminal state"}},
			}
		}
	}
	return domain.CallbackResult{Success: true}
}

// failedTasks lists the plan's tasks currently in the failed state.
func failedTasks(plan *domain.Plan) []domain.Failure {
	var failures []domain.Failure
	for _, task := range plan.Tasks {
		if task.Status == constants.TaskStatusFailed {
			failures = append(failures, domain.Failure{Item: task.ID, Detail: task.Name})
		}
	}
	return failures
}

// renderRunOutcome reports the cycle result in the requested format. The
// cycle error is returned unchanged so the exit code reflects the outcome.
func renderRunOutcome(w io.Writer, out tui.Output, opts runOptions, engine *runEngine, plan *domain.Plan, iterationID string, lastRun *driver.RunResult, cycle *iteration.CycleResult, cycleErr error) error {
	snap := progress.SnapshotFromPlan(plan)

	if opts.output == OutputJSON {
		resp := runResponse{
			PlanID:      plan.ID,
			IterationID: iterationID,
			Snapshot:    snap,
			Run:         lastRun,
		}
		if cycle != nil {
			resp.Success = cycle.Success
			resp.Escalated = cycle.Escalated
			resp.Phase = cycle.Phase
			resp.RetryCount = cycle.RetryCount
			resp.FixAttempts = cycle.FixAttempts
			resp.Failures = cycle.Failures
		}
		if cycleErr != nil {
			resp.Error = cycleErr.Error()
		}
		if err := out.JSON(resp); err != nil {
			return err
		}
		return cycleErr
	}

	if !opts.quiet {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, tui.SummaryLine(snap, tui.BarWidthFor(tui.TerminalWidth())))
		_, _ = fmt.Fprintln(w)

		rows := taskRowsFromPlan(plan)
		for i := range rows {
			rows[i].Retries = engine.coord.RetryCount(rows[i].ID)
		}
		if err := tui.NewTaskTable(rows).Render(w); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w)
	}

	if cycleErr != nil {
		if cycle != nil {
			for _, failure := range cycle.Failures {
				out.Warning(fmt.Sprintf("%s: %s", failure.Item, failure.Detail))
			}
			if cycle.Escalated {
				out.Warning(fmt.Sprintf("Budgets exhausted in the %s phase after %d retries and %d fix attempts.",
					cycle.Phase, cycle.RetryCount, cycle.FixAttempts))
			}
		}
		return cycleErr
	}

	duration := time.Duration(0)
	if lastRun != nil {
		duration = lastRun.Duration.Round(time.Millisecond)
	}
	out.Success(fmt.Sprintf("Plan %s completed: %d done, %d skipped in %s", plan.ID, snap.Completed, snap.Skipped, duration))
	if snap.Skipped > 0 {
		out.Warning(fmt.Sprintf("%d tasks skipped after exhausting retries", snap.Skipped))
	}
	return nil
}
