package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/gantry/internal/config"
	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/coordinator"
	"github.com/mrz1836/gantry/internal/ctxutil"
	"github.com/mrz1836/gantry/internal/domain"
	"github.com/mrz1836/gantry/internal/manifest"
	"github.com/mrz1836/gantry/internal/planner"
	"github.com/mrz1836/gantry/internal/tui"
)

// AddAgentsCommand adds the agents command to the root command.
func AddAgentsCommand(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "agents <manifest>",
		Short: "Inspect the worker pool for a manifest",
		Long: `Show the agents a manifest declares, or the default pool used when it
declares none, and check that every task's capability is covered.

The agent table shows:
  • ID           - Agent identifier
  • CAPABILITIES - Capability tags the agent advertises
  • STATUS       - Current availability with icon

Tasks requiring a capability no agent advertises are reported: a run of
that manifest would halt as soon as such a task came up for assignment.

Examples:
  gantry agents tasks.yaml                # Show the pool and coverage
  gantry agents tasks.yaml --output json  # Emit the pool as JSON`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgents(cmd.Context(), cmd, args[0], os.Stdout)
		},
	}
	parent.AddCommand(cmd)
}

// agentsOptions contains all options for the agents command.
type agentsOptions struct {
	output string
	quiet  bool
}

// agentsDeps contains the dependencies for the agents command.
// Used for dependency injection in tests.
type agentsDeps struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// capabilityGap records a task whose capability no registered agent covers.
type capabilityGap struct {
	Task       string               `json:"task"`
	Capability constants.Capability `json:"capability"`
}

// agentsResponse is the JSON shape of the agents view.
type agentsResponse struct {
	Agents      []*domain.Agent `json:"agents"`
	DefaultPool bool            `json:"default_pool"`
	Gaps        []capabilityGap `json:"gaps,omitempty"`
}

// runAgents executes the agents command with production dependencies.
func runAgents(ctx context.Context, cmd *cobra.Command, manifestPath string, w io.Writer) error {
	// Check cancellation at entry
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	opts := agentsOptions{
		output: cmd.Flag("output").Value.String(),
		quiet:  cmd.Flag("quiet").Value.String() == "true",
	}

	// Respect NO_COLOR
	tui.CheckNoColor()

	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}

	return runAgentsWithDeps(ctx, w, manifestPath, opts, agentsDeps{
		cfg:    cfg,
		logger: GetLogger(),
	})
}

// runAgentsWithDeps executes the agents command with injected dependencies.
// This enables testing with mock implementations.
func runAgentsWithDeps(ctx context.Context, w io.Writer, manifestPath string, opts agentsOptions, deps agentsDeps) error {
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

	agents := m.AgentList()
	defaulted := len(agents) == 0
	if defaulted {
		agents = defaultAgentPool(resolveMaxConcurrency(0, m.MaxConcurrency, deps.cfg))
	}

	coord, err := coordinator.New(coordinator.Config{
		Strategy: constants.StrategyName(deps.cfg.Engine.Strategy),
	}, agents, deps.logger)
	if err != nil {
		return err
	}

	// Coverage is checked against planned tasks, not raw manifest entries:
	// planning derives each task's capability from its category and infers
	// the phase, both of which feed the match.
	plan, err := planner.New(deps.logger).CreatePlan(m.TaskList(), planner.Options{
		MaxConcurrency: resolveMaxConcurrency(0, m.MaxConcurrency, deps.cfg),
	})
	if err != nil {
		return err
	}

	gaps := capabilityGaps(coord, plan.Tasks)

	if opts.output == OutputJSON {
		return out.JSON(agentsResponse{
			Agents:      coord.Agents(),
			DefaultPool: defaulted,
			Gaps:        gaps,
		})
	}

	if defaulted && !opts.quiet {
		out.Info(fmt.Sprintf("Manifest declares no agents; using the default pool of %d.", len(agents)))
	}

	table := tui.NewAgentTable(agentRows(coord.Agents()))
	if err := table.Render(w); err != nil {
		return err
	}

	if len(gaps) > 0 {
		_, _ = fmt.Fprintln(w)
		for _, gap := range gaps {
			out.Warning(fmt.Sprintf("No agent covers capability %q required by task %q", gap.Capability, gap.Task))
		}
		return nil
	}

	if !opts.quiet {
		_, _ = fmt.Fprintln(w)
		out.Success("Every task capability is covered.")
	}

	return nil
}

// capabilityGaps reports the tasks the configured strategy could never
// assign with the registered pool.
func capabilityGaps(coord *coordinator.Coordinator, tasks []*domain.Task) []capabilityGap {
	var gaps []capabilityGap
	for _, task := range tasks {
		if coord.CanServe(task) {
			continue
		}
		gaps = append(gaps, capabilityGap{
			Task:       task.Name,
			Capability: task.Capability,
		})
	}
	return gaps
}
