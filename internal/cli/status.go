package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrz1836/gantry/internal/ctxutil"
	"github.com/mrz1836/gantry/internal/domain"
	"github.com/mrz1836/gantry/internal/progress"
	"github.com/mrz1836/gantry/internal/store"
	"github.com/mrz1836/gantry/internal/tui"
)

// AddStatusCommand adds the status command to the root command.
func AddStatusCommand(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "status [plan-id]",
		Short: "Show stored plans or the progress of one plan",
		Long: `Display the plans in the store, or detailed progress for one plan.

Without arguments, every stored plan is listed newest first:
  • PLAN     - Plan identifier
  • STATUS   - Overall plan status derived from its tasks
  • PROGRESS - Weighted completion percentage
  • TASKS    - Completed over total task counts
  • CREATED  - When the plan was created

With a plan id, the weighted progress summary, the per-task table, and
the iteration history for that plan are shown.

Examples:
  gantry status                    # List all stored plans
  gantry status plan-a1b2c3d4      # Show one plan in detail
  gantry status --output json      # List plans as JSON`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planID := ""
			if len(args) > 0 {
				planID = args[0]
			}
			return runStatus(cmd.Context(), cmd, planID, os.Stdout)
		},
	}
	parent.AddCommand(cmd)
}

// statusOptions contains all options for the status command.
type statusOptions struct {
	output string
	quiet  bool
	planID string
}

// statusDeps contains the dependencies for the status command.
// Used for dependency injection in tests.
type statusDeps struct {
	store store.Store
}

// runStatus executes the status command with production dependencies.
func runStatus(ctx context.Context, cmd *cobra.Command, planID string, w io.Writer) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	opts := statusOptions{
		output: cmd.Flag("output").Value.String(),
		quiet:  cmd.Flag("quiet").Value.String() == "true",
		planID: planID,
	}

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

	return runStatusWithDeps(ctx, w, opts, statusDeps{store: st})
}

// runStatusWithDeps executes the status command with injected dependencies.
// This enables testing with mock implementations.
func runStatusWithDeps(ctx context.Context, w io.Writer, opts statusOptions, deps statusDeps) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if opts.planID != "" {
		return statusForPlan(ctx, w, opts, deps)
	}
	return statusForAllPlans(ctx, w, opts, deps)
}

// statusForAllPlans renders the plan list view.
func statusForAllPlans(ctx context.Context, w io.Writer, opts statusOptions, deps statusDeps) error {
	plans, err := deps.store.ListPlans(ctx)
	if err != nil {
		return fmt.Errorf("failed to list plans: %w", err)
	}

	if len(plans) == 0 {
		if opts.output == OutputJSON {
			_, _ = fmt.Fprintln(w, "[]")
		} else {
			_, _ = fmt.Fprintln(w, "No plans. Run 'gantry plan' to create one.")
		}
		return nil
	}

	out, err := tui.NewOutput(w, opts.output)
	if err != nil {
		return err
	}

	headers := []string{"PLAN", "STATUS", "PROGRESS", "TASKS", "CREATED"}
	rows := make([][]string, 0, len(plans))
	for _, plan := range plans {
		// Check for cancellation during iteration
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		snap := progress.SnapshotFromPlan(plan)
		rows = append(rows, []string{
			plan.ID,
			snap.Status.String(),
			fmt.Sprintf("%d%%", snap.Percentage),
			fmt.Sprintf("%d/%d", snap.Completed, snap.TotalTasks),
			tui.RelativeTime(plan.CreatedAt),
		})
	}

	out.Table(headers, rows)
	return nil
}

// planStatusResponse is the JSON shape of the single-plan status view.
type planStatusResponse struct {
	Plan       *domain.Plan        `json:"plan"`
	Snapshot   progress.Snapshot   `json:"snapshot"`
	Iterations []*domain.Iteration `json:"iterations,omitempty"`
}

// statusForPlan renders the single-plan detail view.
func statusForPlan(ctx context.Context, w io.Writer, opts statusOptions, deps statusDeps) error {
	plan, err := deps.store.LoadPlan(ctx, opts.planID)
	if err != nil {
		return err
	}

	iterations, err := deps.store.LoadIterations(ctx, opts.planID)
	if err != nil {
		return fmt.Errorf("failed to load iterations: %w", err)
	}

	snap := progress.SnapshotFromPlan(plan)

	if opts.output == OutputJSON {
		out, outErr := tui.NewOutput(w, opts.output)
		if outErr != nil {
			return outErr
		}
		return out.JSON(planStatusResponse{
			Plan:       plan,
			Snapshot:   snap,
			Iterations: iterations,
		})
	}

	if !opts.quiet {
		_, _ = fmt.Fprintln(w, tui.SummaryLine(snap, tui.BarWidthFor(tui.TerminalWidth())))
		_, _ = fmt.Fprintln(w)
	}

	table := tui.NewTaskTable(taskRowsFromPlan(plan))
	if err := table.Render(w); err != nil {
		return err
	}

	if !opts.quiet && len(iterations) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "Iterations:")
		for _, iter := range iterations {
			_, _ = fmt.Fprintln(w, "  "+iterationLine(iter))
		}
	}

	return nil
}

// iterationLine formats one line of iteration history.
func iterationLine(iter *domain.Iteration) string {
	line := fmt.Sprintf("%s  %s  phase=%s retries=%d fixes=%d",
		iter.ID, iter.Status, iter.Phase, iter.RetryCount, iter.FixAttempts)
	if iter.EscalationLevel > 0 {
		line += fmt.Sprintf(" escalation=%d", iter.EscalationLevel)
	}
	return line + "  " + tui.RelativeTime(iter.CreatedAt)
}
