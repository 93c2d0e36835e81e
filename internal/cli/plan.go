package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/gantry/internal/config"
	"github.com/mrz1836/gantry/internal/ctxutil"
	gerrors "github.com/mrz1836/gantry/internal/errors"
	"github.com/mrz1836/gantry/internal/manifest"
	"github.com/mrz1836/gantry/internal/planner"
	"github.com/mrz1836/gantry/internal/store"
	"github.com/mrz1836/gantry/internal/tui"
)

// AddPlanCommand adds the plan command to the root command.
func AddPlanCommand(parent *cobra.Command) {
	parent.AddCommand(newPlanCmd())
}

// planOptions contains all options for the plan command.
type planOptions struct {
	output         string
	quiet          bool
	maxConcurrency int
	force          bool
}

// planDeps contains the dependencies for the plan command.
// Used for dependency injection in tests.
type planDeps struct {
	store  store.Store
	cfg    *config.Config
	logger zerolog.Logger
}

// newPlanCmd creates the plan command.
func newPlanCmd() *cobra.Command {
	var maxConcurrency int
	var force bool

	cmd := &cobra.Command{
		Use:   "plan <manifest>",
		Short: "Create an execution plan from a task manifest",
		Long: `Build an execution plan from a YAML task manifest.

The planner validates the manifest, orders tasks by their dependencies,
packs independent tasks into parallel execution groups, and inserts a
checkpoint at every phase boundary. The plan is saved to the plan store;
nothing runs until 'gantry run'.

The task table shows:
  • ID      - Task identifier
  • NAME    - Task name from the manifest
  • STATUS  - Current task status with icon
  • PHASE   - Plan phase the task belongs to
  • GROUP   - Execution group order
  • RETRIES - Failures recorded so far

Concurrency precedence: --max-concurrency beats the manifest's
max_concurrency, which beats the configured engine default.

Examples:
  gantry plan tasks.yaml                      # Plan with defaults
  gantry plan tasks.yaml --max-concurrency 2  # Cap parallelism at 2
  gantry plan tasks.yaml --force              # Replace a stored plan with the same id
  gantry plan tasks.yaml --output json        # Emit the full plan as JSON`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), cmd, args[0], planOptions{
				maxConcurrency: maxConcurrency,
				force:          force,
			}, os.Stdout)
		},
	}

	cmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 0, "Maximum tasks per execution group (0 uses manifest or config)")
	cmd.Flags().BoolVar(&force, "force", false, "Replace a stored plan that has the same id")

	return cmd
}

// runPlan executes the plan command with production dependencies.
func runPlan(ctx context.Context, cmd *cobra.Command, manifestPath string, opts planOptions, w io.Writer) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

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

	return runPlanWithDeps(ctx, w, manifestPath, opts, planDeps{
		store:  st,
		cfg:    cfg,
		logger: GetLogger(),
	})
}

// runPlanWithDeps executes the plan command with injected dependencies.
// This enables testing with mock implementations.
func runPlanWithDeps(ctx context.Context, w io.Writer, manifestPath string, opts planOptions, deps planDeps) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	out, err := tui.NewOutput(w, opts.output)
	if err != nil {
		return err
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	// Pinned plan ids are stable across re-plans; refuse to silently
	// overwrite a stored plan unless forced.
	if m.PlanID != "" && !opts.force {
		if _, lookupErr := deps.store.LoadPlan(ctx, m.PlanID); lookupErr == nil {
			return gerrors.Wrapf(gerrors.ErrPlanExists, "plan %s already stored (use --force to replace)", m.PlanID)
		} else if !errors.Is(lookupErr, gerrors.ErrPlanNotFound) {
			return lookupErr
		}
	}

	// Forcing drops the stored plan first, so iteration history from the
	// replaced incarnation does not outlive it.
	if m.PlanID != "" && opts.force {
		if err := deps.store.DeletePlan(ctx, m.PlanID); err != nil && !errors.Is(err, gerrors.ErrPlanNotFound) {
			return gerrors.Wrapf(err, "failed to replace plan %s", m.PlanID)
		}
	}

	p := planner.New(deps.logger)
	plan, err := p.CreatePlan(m.TaskList(), planner.Options{
		MaxConcurrency: resolveMaxConcurrency(opts.maxConcurrency, m.MaxConcurrency, deps.cfg),
		PlanID:         m.PlanID,
	})
	if err != nil {
		return err
	}

	if err := deps.store.SavePlan(ctx, plan); err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}

	if opts.output == OutputJSON {
		return out.JSON(plan)
	}

	out.Success(fmt.Sprintf("Plan %s created: %d tasks in %d groups", plan.ID, len(plan.Tasks), len(plan.ExecutionGroups)))
	if len(plan.Checkpoints) > 0 {
		out.Info(fmt.Sprintf("%d checkpoints at phase boundaries", len(plan.Checkpoints)))
	}
	_, _ = fmt.Fprintln(w)

	table := tui.NewTaskTable(taskRowsFromPlan(plan))
	if err := table.Render(w); err != nil {
		return err
	}

	if !opts.quiet {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "Run: gantry run "+plan.ID)
	}

	return nil
}

// resolveMaxConcurrency applies the flag > manifest > config precedence.
func resolveMaxConcurrency(flagValue, manifestValue int, cfg *config.Config) int {
	if flagValue > 0 {
		return flagValue
	}
	if manifestValue > 0 {
		return manifestValue
	}
	return cfg.Engine.MaxConcurrency
}
