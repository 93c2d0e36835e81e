package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mrz1836/gantry/internal/bus"
	"github.com/mrz1836/gantry/internal/clock"
	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/ctxutil"
	"github.com/mrz1836/gantry/internal/domain"
	gerrors "github.com/mrz1836/gantry/internal/errors"
	"github.com/mrz1836/gantry/internal/progress"
	"github.com/mrz1836/gantry/internal/store"
	"github.com/mrz1836/gantry/internal/tui"
)

// AddWatchCommand adds the watch command to the root command.
func AddWatchCommand(parent *cobra.Command) {
	var interval time.Duration
	var noBell bool
	var noEvents bool

	defaults := tui.DefaultWatchConfig()

	cmd := &cobra.Command{
		Use:   "watch [plan-id]",
		Short: "Watch a plan run in a live dashboard",
		Long: `Watch a plan's progress in a live full-screen dashboard.

The dashboard refreshes from the plan store on an interval, showing the
weighted progress summary, the task table sorted with active work first,
and a feed of recent task transitions. The terminal bell rings when a new
failure appears. Press q or Ctrl+C to leave; the run is not affected.

Without a plan id the most recently created plan is watched.

Watch is interactive only: use 'gantry status --output json' for
machine-readable polling.

Examples:
  gantry watch                      # Watch the newest plan
  gantry watch plan-a1b2c3d4        # Watch a specific plan
  gantry watch --interval 5s        # Refresh every 5 seconds
  gantry watch --no-bell            # Stay silent on failures`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planID := ""
			if len(args) > 0 {
				planID = args[0]
			}
			return runWatch(cmd.Context(), cmd, planID, watchOptions{
				interval: interval,
				noBell:   noBell,
				noEvents: noEvents,
			}, os.Stdout)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", defaults.Interval, "Refresh interval")
	cmd.Flags().BoolVar(&noBell, "no-bell", false, "Do not ring the terminal bell on new failures")
	cmd.Flags().BoolVar(&noEvents, "no-events", false, "Hide the recent-activity feed")

	parent.AddCommand(cmd)
}

// watchOptions contains all options for the watch command.
type watchOptions struct {
	output   string
	quiet    bool
	planID   string
	interval time.Duration
	noBell   bool
	noEvents bool
}

// watchDeps contains the dependencies for the watch command.
// Used for dependency injection in tests.
type watchDeps struct {
	store store.Store
	clock clock.Clock

	// runProgram runs the assembled dashboard model until the user quits.
	// Tests substitute a stub to exercise everything up to the TUI loop.
	runProgram func(model *tui.WatchModel) error
}

// runWatch executes the watch command with production dependencies.
func runWatch(ctx context.Context, cmd *cobra.Command, planID string, opts watchOptions, w io.Writer) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	opts.output = cmd.Flag("output").Value.String()
	opts.quiet = cmd.Flag("quiet").Value.String() == "true"
	opts.planID = planID

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

	return runWatchWithDeps(ctx, w, opts, watchDeps{
		store: st,
		clock: clock.RealClock{},
		runProgram: func(model *tui.WatchModel) error {
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithOutput(w))
			_, runErr := p.Run()
			return runErr
		},
	})
}

// runWatchWithDeps executes the watch command with injected dependencies.
// This enables testing with mock implementations.
func runWatchWithDeps(ctx context.Context, w io.Writer, opts watchOptions, deps watchDeps) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if opts.output == OutputJSON {
		return gerrors.Wrap(gerrors.ErrWatchModeJSONUnsupported, "use 'gantry status --output json' for machine-readable polling")
	}
	if opts.interval < constants.MinWatchInterval {
		return gerrors.Wrapf(gerrors.ErrWatchIntervalTooShort, "%s is below the %s minimum", opts.interval, constants.MinWatchInterval)
	}

	planID := opts.planID
	if planID == "" {
		plans, err := deps.store.ListPlans(ctx)
		if err != nil {
			return fmt.Errorf("failed to list plans: %w", err)
		}
		if len(plans) == 0 {
			_, _ = fmt.Fprintln(w, "No plans. Run 'gantry plan' to create one.")
			return nil
		}
		planID = plans[0].ID
	}

	// Fail before entering the alternate screen when the plan is missing.
	if _, err := deps.store.LoadPlan(ctx, planID); err != nil {
		return err
	}

	var feed *tui.EventFeed
	if !opts.noEvents {
		feed = tui.NewEventFeed(tui.DefaultFeedSize)
	}

	cfg := tui.WatchConfig{
		Interval:    opts.interval,
		BellEnabled: !opts.noBell,
		Quiet:       opts.quiet,
		ShowEvents:  !opts.noEvents,
	}

	model := tui.NewWatchModel(ctx, newWatchRefresh(deps, planID, feed), feed, cfg)
	return deps.runProgram(model)
}

// newWatchRefresh builds the per-frame refresh. It reloads the plan from the
// store and synthesizes feed events from task status transitions between
// consecutive frames; the first frame is the baseline and records nothing.
func newWatchRefresh(deps watchDeps, planID string, feed *tui.EventFeed) tui.RefreshFunc {
	var mu sync.Mutex
	prev := make(map[string]constants.TaskStatus)
	baseline := true

	return func(ctx context.Context) (tui.WatchData, error) {
		plan, err := deps.store.LoadPlan(ctx, planID)
		if err != nil {
			return tui.WatchData{}, err
		}

		mu.Lock()
		if feed != nil && !baseline {
			recordTransitions(feed, plan, prev, deps.clock.Now().UTC())
		}
		baseline = false
		for _, task := range plan.Tasks {
			prev[task.ID] = task.Status
		}
		mu.Unlock()

		return tui.WatchData{
			Snapshot: progress.SnapshotFromPlan(plan),
			Rows:     taskRowsFromPlan(plan),
		}, nil
	}
}

// recordTransitions appends one feed event per task whose status changed
// since the previous frame.
func recordTransitions(feed *tui.EventFeed, plan *domain.Plan, prev map[string]constants.TaskStatus, now time.Time) {
	for _, task := range plan.Tasks {
		if before, seen := prev[task.ID]; seen && before == task.Status {
			continue
		}
		topic, ok := topicForStatus(task.Status)
		if !ok {
			continue
		}
		feed.Record(bus.Event{
			Topic:     topic,
			PlanID:    plan.ID,
			TaskID:    task.ID,
			AgentID:   task.Agent,
			Timestamp: now,
		})
	}
}

// topicForStatus maps a task status to the feed topic announcing it.
// Pending and skipped states make no announcement.
func topicForStatus(status constants.TaskStatus) (bus.Topic, bool) {
	switch status {
	case constants.TaskStatusRunning:
		return bus.TopicTaskAssigned, true
	case constants.TaskStatusCompleted:
		return bus.TopicTaskCompleted, true
	case constants.TaskStatusFailed:
		return bus.TopicTaskFailed, true
	default:
		return "", false
	}
}
