package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/gantry/internal/config"
	"github.com/mrz1836/gantry/internal/ctxutil"
	"github.com/mrz1836/gantry/internal/progress"
	"github.com/mrz1836/gantry/internal/store"
	"github.com/mrz1836/gantry/internal/tui"
)

var (
	glamourRenderer     *glamour.TermRenderer //nolint:gochecknoglobals // cached renderer for performance
	glamourRendererOnce sync.Once             //nolint:gochecknoglobals // sync.Once for renderer initialization
)

// getGlamourRenderer returns a cached glamour renderer for markdown rendering.
// The renderer is initialized once and reused across all calls.
func getGlamourRenderer() *glamour.TermRenderer {
	glamourRendererOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err == nil {
			glamourRenderer = r
		}
	})
	return glamourRenderer
}

// AddReportCommand adds the report command to the root command.
func AddReportCommand(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "report <plan-id>",
		Short: "Render a progress report for a plan",
		Long: `Render a markdown progress report for a stored plan.

The report contains the headline completion numbers, a per-phase
breakdown table, and a task checklist. In a terminal the markdown is
styled; with --output json the raw markdown is included alongside the
snapshot and per-phase numbers.

Examples:
  gantry report plan-a1b2c3d4                # Styled report
  gantry report plan-a1b2c3d4 --output json  # Snapshot, phases and raw markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), cmd, args[0], os.Stdout)
		},
	}
	parent.AddCommand(cmd)
}

// reportOptions contains all options for the report command.
type reportOptions struct {
	output string
	quiet  bool
	planID string
}

// reportDeps contains the dependencies for the report command.
// Used for dependency injection in tests.
type reportDeps struct {
	store  store.Store
	cfg    *config.Config
	logger zerolog.Logger
}

// reportResponse is the JSON shape of the report view.
type reportResponse struct {
	PlanID   string                   `json:"plan_id"`
	Snapshot progress.Snapshot        `json:"snapshot"`
	Phases   []progress.PhaseProgress `json:"phases"`
	Markdown string                   `json:"markdown"`
}

// runReport executes the report command with production dependencies.
func runReport(ctx context.Context, cmd *cobra.Command, planID string, w io.Writer) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	opts := reportOptions{
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

	return runReportWithDeps(ctx, w, opts, reportDeps{
		store:  st,
		cfg:    cfg,
		logger: GetLogger(),
	})
}

// runReportWithDeps executes the report command with injected dependencies.
// This enables testing with mock implementations.
func runReportWithDeps(ctx context.Context, w io.Writer, opts reportOptions, deps reportDeps) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	plan, err := deps.store.LoadPlan(ctx, opts.planID)
	if err != nil {
		return err
	}

	tr := progress.New(progress.Config{
		BlockerThreshold: deps.cfg.Tracking.BlockerThreshold,
		VelocityWindow:   deps.cfg.Tracking.VelocityWindow,
	}, deps.logger)
	tr.InitializePlan(plan)
	tr.RestoreStatuses(plan)

	markdown := tr.Report()

	if opts.output == OutputJSON {
		out, outErr := tui.NewOutput(w, opts.output)
		if outErr != nil {
			return outErr
		}
		return out.JSON(reportResponse{
			PlanID:   plan.ID,
			Snapshot: tr.Progress(),
			Phases:   tr.ProgressByPhase(),
			Markdown: markdown,
		})
	}

	renderMarkdown(w, markdown)
	return nil
}

// renderMarkdown writes the report through the cached glamour renderer,
// falling back to the raw markdown when no renderer is available.
func renderMarkdown(w io.Writer, markdown string) {
	if renderer := getGlamourRenderer(); renderer != nil {
		if rendered, err := renderer.Render(markdown); err == nil {
			_, _ = fmt.Fprint(w, rendered)
			return
		}
	}
	_, _ = fmt.Fprint(w, markdown)
}
