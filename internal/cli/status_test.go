package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/domain"
	gerrors "github.com/mrz1836/gantry/internal/errors"
	"github.com/mrz1836/gantry/internal/testutil"
)

// testStatusOpts creates statusOptions for tests.
func testStatusOpts(output string, quiet bool, planID string) statusOptions {
	return statusOptions{output: output, quiet: quiet, planID: planID}
}

// completePlan marks every task of a plan fixture completed.
func completePlan(plan *domain.Plan) *domain.Plan {
	for _, task := range plan.Tasks {
		task.Status = constants.TaskStatusCompleted
	}
	return plan
}

// TestStatusCommand_EmptyList tests the empty-store message.
func TestStatusCommand_EmptyList(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := runStatusWithDeps(context.Background(), &buf, testStatusOpts("text", false, ""), statusDeps{store: &mockPlanStore{}})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "No plans. Run 'gantry plan' to create one.")
}

// TestStatusCommand_EmptyListJSON tests empty state returns an empty JSON array.
func TestStatusCommand_EmptyListJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := runStatusWithDeps(context.Background(), &buf, testStatusOpts("json", false, ""), statusDeps{store: &mockPlanStore{}})
	require.NoError(t, err)

	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

// TestStatusCommand_ListPlans tests the plan list view.
func TestStatusCommand_ListPlans(t *testing.T) {
	t.Parallel()

	fresh := buildPlan(t, "plan-fresh",
		domain.Task{ID: "a", Name: "Task A"},
		domain.Task{ID: "b", Name: "Task B"},
	)
	done := completePlan(buildPlan(t, "plan-done",
		domain.Task{ID: "c", Name: "Task C"},
		domain.Task{ID: "d", Name: "Task D"},
	))
	mockStore := &mockPlanStore{plans: map[string]*domain.Plan{
		"plan-fresh": fresh,
		"plan-done":  done,
	}}

	var buf bytes.Buffer
	err := runStatusWithDeps(context.Background(), &buf, testStatusOpts("text", false, ""), statusDeps{store: mockStore})
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "PLAN")
	assert.Contains(t, output, "plan-fresh")
	assert.Contains(t, output, "not_started")
	assert.Contains(t, output, "0/2")
	assert.Contains(t, output, "plan-done")
	assert.Contains(t, output, "completed")
	assert.Contains(t, output, "100%")
	assert.Contains(t, output, "2/2")
}

// TestStatusCommand_ListError tests store failures while listing.
func TestStatusCommand_ListError(t *testing.T) {
	t.Parallel()

	mockStore := &mockPlanStore{listPlansErr: testutil.ErrMockStoreUnavailable}

	var buf bytes.Buffer
	err := runStatusWithDeps(context.Background(), &buf, testStatusOpts("text", false, ""), statusDeps{store: mockStore})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list plans")
}

// TestStatusCommand_PlanDetail tests the single-plan view.
func TestStatusCommand_PlanDetail(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, "plan-detail",
		domain.Task{ID: "schema", Name: "Create database schema", Category: "database"},
		domain.Task{ID: "api", Name: "Implement API endpoints", Category: "backend", Dependencies: []string{"schema"}},
	)
	plan.Tasks[0].Status = constants.TaskStatusCompleted
	plan.Tasks[1].Status = constants.TaskStatusRunning

	now := time.Now().UTC()
	mockStore := &mockPlanStore{
		plans: map[string]*domain.Plan{"plan-detail": plan},
		iterations: map[string][]*domain.Iteration{
			"plan-detail": {
				{
					ID:         "iter-11111111",
					PlanID:     "plan-detail",
					Phase:      constants.IterationPhaseBuild,
					Status:     constants.IterationStatusRunning,
					RetryCount: 1,
					CreatedAt:  now,
				},
			},
		},
	}

	var buf bytes.Buffer
	err := runStatusWithDeps(context.Background(), &buf, testStatusOpts("text", false, "plan-detail"), statusDeps{store: mockStore})
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "1/2 tasks", "summary line should show completion counts")
	assert.Contains(t, output, "1 running")
	assert.Contains(t, output, "Create database schema")
	assert.Contains(t, output, "Implement API endpoints")
	assert.Contains(t, output, "Iterations:")
	assert.Contains(t, output, "iter-11111111")
	assert.Contains(t, output, "retries=1")
}

// TestStatusCommand_PlanDetailEscalation tests the escalation marker in
// iteration history.
func TestStatusCommand_PlanDetailEscalation(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, "plan-stuck", domain.Task{ID: "a", Name: "Task A"})
	plan.Tasks[0].Status = constants.TaskStatusFailed

	mockStore := &mockPlanStore{
		plans: map[string]*domain.Plan{"plan-stuck": plan},
		iterations: map[string][]*domain.Iteration{
			"plan-stuck": {
				{
					ID:              "iter-22222222",
					PlanID:          "plan-stuck",
					Phase:           constants.IterationPhaseFix,
					Status:          constants.IterationStatusEscalated,
					RetryCount:      3,
					FixAttempts:     3,
					EscalationLevel: 1,
					CreatedAt:       time.Now().UTC(),
				},
			},
		},
	}

	var buf bytes.Buffer
	err := runStatusWithDeps(context.Background(), &buf, testStatusOpts("text", false, "plan-stuck"), statusDeps{store: mockStore})
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "1 failed")
	assert.Contains(t, output, "escalated")
	assert.Contains(t, output, "escalation=1")
	assert.Contains(t, output, "fixes=3")
}

// TestStatusCommand_PlanDetailJSON tests the JSON detail shape.
func TestStatusCommand_PlanDetailJSON(t *testing.T) {
	t.Parallel()

	plan := completePlan(buildPlan(t, "plan-json",
		domain.Task{ID: "a", Name: "Task A"},
		domain.Task{ID: "b", Name: "Task B", Dependencies: []string{"a"}},
	))
	mockStore := &mockPlanStore{
		plans: map[string]*domain.Plan{"plan-json": plan},
		iterations: map[string][]*domain.Iteration{
			"plan-json": {{ID: "iter-33333333", PlanID: "plan-json", Status: constants.IterationStatusCompleted}},
		},
	}

	var buf bytes.Buffer
	err := runStatusWithDeps(context.Background(), &buf, testStatusOpts("json", false, "plan-json"), statusDeps{store: mockStore})
	require.NoError(t, err)

	var resp planStatusResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), "output should be valid JSON")
	require.NotNil(t, resp.Plan)
	assert.Equal(t, "plan-json", resp.Plan.ID)
	assert.Equal(t, 2, resp.Snapshot.Completed)
	assert.Equal(t, 100, resp.Snapshot.Percentage)
	assert.Equal(t, constants.TrackerStatusCompleted, resp.Snapshot.Status)
	require.Len(t, resp.Iterations, 1)
	assert.Equal(t, "iter-33333333", resp.Iterations[0].ID)
}

// TestStatusCommand_PlanNotFound tests the unknown-plan error path.
func TestStatusCommand_PlanNotFound(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := runStatusWithDeps(context.Background(), &buf, testStatusOpts("text", false, "plan-missing"), statusDeps{store: &mockPlanStore{}})

	require.Error(t, err)
	assert.ErrorIs(t, err, gerrors.ErrPlanNotFound)
}

// TestStatusCommand_IterationsError tests iteration-load failures.
func TestStatusCommand_IterationsError(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, "plan-x", domain.Task{ID: "a", Name: "Task A"})
	mockStore := &mockPlanStore{
		plans:             map[string]*domain.Plan{"plan-x": plan},
		loadIterationsErr: testutil.ErrMockStoreUnavailable,
	}

	var buf bytes.Buffer
	err := runStatusWithDeps(context.Background(), &buf, testStatusOpts("text", false, "plan-x"), statusDeps{store: mockStore})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load iterations")
}

// TestStatusCommand_QuietMode tests that quiet mode keeps only the table.
func TestStatusCommand_QuietMode(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, "plan-quiet", domain.Task{ID: "a", Name: "Task A"})
	mockStore := &mockPlanStore{
		plans: map[string]*domain.Plan{"plan-quiet": plan},
		iterations: map[string][]*domain.Iteration{
			"plan-quiet": {{ID: "iter-44444444", PlanID: "plan-quiet"}},
		},
	}

	var buf bytes.Buffer
	err := runStatusWithDeps(context.Background(), &buf, testStatusOpts("text", true, "plan-quiet"), statusDeps{store: mockStore})
	require.NoError(t, err)

	output := buf.String()
	assert.NotContains(t, output, "Iterations:", "quiet mode should not show iteration history")
	assert.NotContains(t, output, "0/1 tasks", "quiet mode should not show the summary line")
	assert.Contains(t, output, "Task A", "quiet mode should still show the table")
}

// TestStatusCommand_ContextCancellation tests context cancellation handling.
func TestStatusCommand_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	var buf bytes.Buffer
	err := runStatusWithDeps(ctx, &buf, testStatusOpts("text", false, ""), statusDeps{store: &mockPlanStore{}})
	assert.ErrorIs(t, err, context.Canceled)
}

// TestAddStatusCommand tests that the status command is properly added to root.
func TestAddStatusCommand(t *testing.T) {
	t.Parallel()

	root := &cobra.Command{Use: "gantry"}
	AddStatusCommand(root)

	statusCmd, _, err := root.Find([]string{"status"})
	require.NoError(t, err)
	require.NotNil(t, statusCmd)
	assert.Equal(t, "status", statusCmd.Name())
}

// TestIterationLine tests the iteration history formatter.
func TestIterationLine(t *testing.T) {
	t.Parallel()

	iter := &domain.Iteration{
		ID:          "iter-55555555",
		Status:      constants.IterationStatusCompleted,
		Phase:       constants.IterationPhaseTest,
		RetryCount:  2,
		FixAttempts: 1,
		CreatedAt:   time.Now().UTC(),
	}

	line := iterationLine(iter)
	assert.Contains(t, line, "iter-55555555")
	assert.Contains(t, line, "completed")
	assert.Contains(t, line, "phase=test")
	assert.Contains(t, line, "retries=2")
	assert.Contains(t, line, "fixes=1")
	assert.NotContains(t, line, "escalation=", "no escalation marker at level zero")

	iter.EscalationLevel = 2
	assert.Contains(t, iterationLine(iter), "escalation=2")
}
