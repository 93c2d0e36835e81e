package progress

import (
	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/domain"
)

// SnapshotFromPlan derives an aggregate snapshot directly from a stored
// plan's task statuses, without a live tracker. Views over persisted plans
// (status, watch) use this. Unlike InitializePlan it counts RUNNING tasks as
// in progress, since the plan on disk is the only record of an active run.
// Velocity is always zero: completion times are not persisted.
func SnapshotFromPlan(plan *domain.Plan) Snapshot {
	snap := Snapshot{
		PlanID:     plan.ID,
		TotalTasks: len(plan.Tasks),
	}

	var skippedWeight float64
	for _, task := range plan.Tasks {
		weight := task.Weight()
		snap.TotalWeight += weight
		switch task.Status {
		case constants.TaskStatusCompleted:
			snap.Completed++
			snap.CompletedWeight += weight
		case constants.TaskStatusRunning:
			snap.InProgress++
		case constants.TaskStatusFailed:
			snap.Failed++
		case constants.TaskStatusSkipped:
			snap.Skipped++
			skippedWeight += weight
		default:
			snap.Pending++
		}
	}

	snap.Percentage = weightedPercentage(snap.CompletedWeight, snap.TotalWeight, skippedWeight,
		snap.TotalTasks-snap.Completed-snap.Skipped)
	snap.Status = planStatus(snap)

	return snap
}

// planStatus derives the overall status of a stored plan view. Failed tasks
// with nothing in flight read as blocked: a halted run needs attention
// before it can move again.
func planStatus(snap Snapshot) constants.TrackerStatus {
	switch {
	case snap.TotalTasks > 0 && snap.Completed+snap.Skipped == snap.TotalTasks:
		return constants.TrackerStatusCompleted
	case snap.Failed > 0 && snap.InProgress == 0:
		return constants.TrackerStatusBlocked
	case snap.Completed+snap.InProgress+snap.Failed+snap.Skipped == 0:
		return constants.TrackerStatusNotStarted
	default:
		return constants.TrackerStatusInProgress
	}
}
