package progress_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/progress"
)

func TestSnapshotFromPlan(t *testing.T) {
	t.Run("fresh plan reads not started", func(t *testing.T) {
		snap := progress.SnapshotFromPlan(testPlan())

		assert.Equal(t, constants.TrackerStatusNotStarted, snap.Status)
		assert.Equal(t, 4, snap.TotalTasks)
		assert.Equal(t, 4, snap.Pending)
		assert.Equal(t, 0, snap.Percentage)
		assert.InDelta(t, 8.0, snap.TotalWeight, 0.0001)
		assert.Zero(t, snap.TasksPerHour)
	})

	t.Run("running tasks count as in progress", func(t *testing.T) {
		plan := testPlan()
		plan.Tasks[0].Status = constants.TaskStatusCompleted
		plan.Tasks[1].Status = constants.TaskStatusRunning

		snap := progress.SnapshotFromPlan(plan)

		assert.Equal(t, constants.TrackerStatusInProgress, snap.Status)
		assert.Equal(t, 1, snap.Completed)
		assert.Equal(t, 1, snap.InProgress)
		assert.Equal(t, 2, snap.Pending)
		// setup weighs 1 of the plan's total 8.
		assert.Equal(t, 13, snap.Percentage)
	})

	t.Run("all terminal reads completed", func(t *testing.T) {
		plan := testPlan()
		for _, task := range plan.Tasks {
			task.Status = constants.TaskStatusCompleted
		}
		plan.Tasks[3].Status = constants.TaskStatusSkipped

		snap := progress.SnapshotFromPlan(plan)

		assert.Equal(t, constants.TrackerStatusCompleted, snap.Status)
		assert.Equal(t, 3, snap.Completed)
		assert.Equal(t, 1, snap.Skipped)
		// Skipped weight leaves the denominator, so the rest completing
		// reads as 100%.
		assert.Equal(t, 100, snap.Percentage)
	})

	t.Run("failures with nothing in flight read blocked", func(t *testing.T) {
		plan := testPlan()
		plan.Tasks[0].Status = constants.TaskStatusCompleted
		plan.Tasks[1].Status = constants.TaskStatusFailed

		snap := progress.SnapshotFromPlan(plan)

		assert.Equal(t, constants.TrackerStatusBlocked, snap.Status)
		assert.Equal(t, 1, snap.Failed)
	})

	t.Run("failures beside running work stay in progress", func(t *testing.T) {
		plan := testPlan()
		plan.Tasks[1].Status = constants.TaskStatusFailed
		plan.Tasks[2].Status = constants.TaskStatusRunning

		snap := progress.SnapshotFromPlan(plan)

		assert.Equal(t, constants.TrackerStatusInProgress, snap.Status)
	})
}
