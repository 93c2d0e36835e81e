package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrz1836/gantry/internal/config"
	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/domain"
	gerrors "github.com/mrz1836/gantry/internal/errors"
	"github.com/mrz1836/gantry/internal/store"
	"github.com/mrz1836/gantry/internal/tui"
)

// loadConfig resolves the effective configuration for a command. When the
// --config flag is set, the named file takes the project-config slot in the
// precedence chain; environment variables still override it.
func loadConfig(ctx context.Context, cmd *cobra.Command) (*config.Config, error) {
	if path := cmd.Flag("config").Value.String(); path != "" {
		cfg, err := config.LoadFromPaths(ctx, path, "")
		if err != nil {
			return nil, gerrors.Wrapf(err, "failed to load config from %s", path)
		}
		return cfg, nil
	}
	return config.Load(ctx)
}

// openStore opens the plan store rooted at the configured gantry home.
func openStore(cfg *config.Config) (store.Store, error) {
	st, err := store.NewFileStore(cfg.Store.Home)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to open plan store")
	}
	return st, nil
}

// taskRowsFromPlan flattens a plan into display rows. Group order comes from
// the plan's execution groups rather than the tasks themselves, so rows stay
// correct even after statuses change.
func taskRowsFromPlan(plan *domain.Plan) []tui.TaskRow {
	orders := groupOrders(plan)
	rows := make([]tui.TaskRow, 0, len(plan.Tasks))
	for _, task := range plan.Tasks {
		rows = append(rows, tui.TaskRow{
			ID:     task.ID,
			Name:   task.Name,
			Status: task.Status,
			Phase:  task.Phase,
			Group:  orders[task.ID],
		})
	}
	return rows
}

// groupOrders maps each task id to the order of the execution group that
// schedules it.
func groupOrders(plan *domain.Plan) map[string]int {
	orders := make(map[string]int, len(plan.Tasks))
	for _, group := range plan.ExecutionGroups {
		for _, id := range group.TaskIDs {
			orders[id] = group.Order
		}
	}
	return orders
}

// defaultAgentPool builds the worker pool used when a manifest declares no
// agents: one omni-capable agent per concurrency slot, so capability
// matching never starves a task.
func defaultAgentPool(size int) []domain.Agent {
	if size <= 0 {
		size = constants.DefaultMaxConcurrency
	}
	agents := make([]domain.Agent, 0, size)
	for i := range size {
		agents = append(agents, domain.Agent{
			ID:           fmt.Sprintf("agent-%d", i+1),
			Capabilities: constants.Capabilities(),
		})
	}
	return agents
}

// agentRows converts agents to display rows.
func agentRows(agents []*domain.Agent) []tui.AgentRow {
	rows := make([]tui.AgentRow, 0, len(agents))
	for _, agent := range agents {
		rows = append(rows, tui.AgentRow{
			ID:           agent.ID,
			Capabilities: agent.Capabilities,
			Status:       agent.Status,
		})
	}
	return rows
}
