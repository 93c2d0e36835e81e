// Package cli provides the command-line interface for gantry.
package cli

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/domain"
)

// TestTaskRowsFromPlan verifies plan tasks flatten into display rows with
// their execution-group order resolved.
func TestTaskRowsFromPlan(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, "plan-rows",
		domain.Task{ID: "schema", Name: "Create database schema", Category: "database"},
		domain.Task{ID: "api", Name: "Implement API endpoints", Category: "backend", Dependencies: []string{"schema"}},
		domain.Task{ID: "ui", Name: "Build dashboard page", Category: "frontend", Dependencies: []string{"schema"}},
	)
	plan.Tasks[0].Status = constants.TaskStatusCompleted

	rows := taskRowsFromPlan(plan)
	require.Len(t, rows, 3)

	assert.Equal(t, "schema", rows[0].ID)
	assert.Equal(t, "Create database schema", rows[0].Name)
	assert.Equal(t, constants.TaskStatusCompleted, rows[0].Status)
	assert.Equal(t, constants.PlanPhaseImplementation, rows[0].Phase)

	// The dependents land in the second execution group.
	assert.Equal(t, rows[0].Group+1, rows[1].Group)
	assert.Equal(t, rows[1].Group, rows[2].Group)
	assert.Equal(t, constants.TaskStatusPending, rows[1].Status)
}

// TestDefaultAgentPool verifies the fallback pool sizes and capabilities.
func TestDefaultAgentPool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		size     int
		expected int
	}{
		{name: "explicit size", size: 2, expected: 2},
		{name: "zero falls back to default", size: 0, expected: constants.DefaultMaxConcurrency},
		{name: "negative falls back to default", size: -3, expected: constants.DefaultMaxConcurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			agents := defaultAgentPool(tt.size)
			require.Len(t, agents, tt.expected)
			for i, agent := range agents {
				assert.Equal(t, fmt.Sprintf("agent-%d", i+1), agent.ID)
				assert.Equal(t, constants.Capabilities(), agent.Capabilities)
			}
		})
	}
}

// TestAgentRows verifies agents convert to display rows.
func TestAgentRows(t *testing.T) {
	t.Parallel()

	agents := []*domain.Agent{
		{
			ID:           "agent-db",
			Capabilities: []constants.Capability{constants.CapabilityDatabase},
			Status:       constants.AgentStatusAvailable,
		},
		{
			ID:           "agent-api",
			Capabilities: []constants.Capability{constants.CapabilityBackend, constants.CapabilityTesting},
			Status:       constants.AgentStatusBusy,
		},
	}

	rows := agentRows(agents)
	require.Len(t, rows, 2)
	assert.Equal(t, "agent-db", rows[0].ID)
	assert.Equal(t, constants.AgentStatusAvailable, rows[0].Status)
	assert.Equal(t, []constants.Capability{constants.CapabilityBackend, constants.CapabilityTesting}, rows[1].Capabilities)
	assert.Equal(t, constants.AgentStatusBusy, rows[1].Status)
}

// TestGroupOrders verifies group order lookup covers every scheduled task.
func TestGroupOrders(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, "plan-orders",
		domain.Task{ID: "a", Name: "Task A", Category: "backend"},
		domain.Task{ID: "b", Name: "Task B", Category: "backend", Dependencies: []string{"a"}},
	)

	orders := groupOrders(plan)
	require.Len(t, orders, 2)
	assert.Equal(t, orders["a"]+1, orders["b"])
}
