package domain

import (
	"time"

	"github.com/mrz1836/gantry/internal/constants"
)

// ExecutionGroup is one layer of the topological order. Every task's
// dependencies belong to a group with a strictly smaller Order, and the
// group never exceeds the configured max concurrency.
type ExecutionGroup struct {
	// Order is the strictly increasing position of the group in the plan.
	Order int `json:"order"`

	// TaskIDs lists the tasks dispatchable together in this group.
	TaskIDs []string `json:"tasks"`

	// CanRunInParallel is true exactly when the group holds more than one task.
	CanRunInParallel bool `json:"can_run_in_parallel"`
}

// Checkpoint is a marker inserted at plan-phase boundaries and after the
// final group, used by external observers for reporting and gating.
type Checkpoint struct {
	// ID is the unique identifier for the checkpoint.
	// Format: ckpt-XXXXXXXX
	ID string `json:"id"`

	// Type records why the checkpoint exists (phase boundary or final).
	Type constants.CheckpointType `json:"type"`

	// AfterOrder is the execution-group order the checkpoint follows.
	AfterOrder int `json:"after_order"`
}

// Plan is the validated output of the planner: the normalized tasks, their
// layered execution groups, and the checkpoints between phases.
//
// A plan is created once and is structurally immutable afterward (no tasks
// are added or removed), but task statuses are mutated in place as the
// driving loop reports outcomes. The plan assumes a single writer; callers
// driving the same plan concurrently must serialize access themselves.
//
// Example JSON representation:
//
//	{
//	    "id": "plan-9c8d7e6f",
//	    "tasks": [...],
//	    "execution_groups": [{"order": 0, "tasks": ["t1", "t2"], "can_run_in_parallel": true}],
//	    "checkpoints": [{"id": "ckpt-1a2b3c4d", "type": "final", "after_order": 0}],
//	    "created_at": "2026-03-01T10:00:00Z",
//	    "schema_version": 1
//	}
type Plan struct {
	// ID is the unique identifier for the plan.
	// Format: plan-XXXXXXXX
	ID string `json:"id"`

	// Tasks is the ordered list of normalized tasks the plan owns.
	Tasks []*Task `json:"tasks"`

	// ExecutionGroups is the layered schedule, ordered by Order.
	ExecutionGroups []ExecutionGroup `json:"execution_groups"`

	// Checkpoints are the phase-boundary and final markers, ordered by AfterOrder.
	Checkpoints []Checkpoint `json:"checkpoints"`

	// CreatedAt is when the planner produced the plan.
	CreatedAt time.Time `json:"created_at"`

	// SchemaVersion indicates the version of the Plan struct schema.
	// This enables forward-compatible schema migrations.
	SchemaVersion int `json:"schema_version"`
}

// Task returns the task with the given id, or nil when the id is not part
// of the plan.
func (p *Plan) Task(id string) *Task {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// CompletedIDs returns the ids of every task whose status satisfies
// dependents (completed or skipped), in plan order.
func (p *Plan) CompletedIDs() []string {
	ids := make([]string, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		if t.Status.IsTerminal() {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// GroupTasks resolves the tasks of an execution group in group order.
// Unknown ids are skipped; a structurally valid plan has none.
func (p *Plan) GroupTasks(group ExecutionGroup) []*Task {
	tasks := make([]*Task, 0, len(group.TaskIDs))
	for _, id := range group.TaskIDs {
		if t := p.Task(id); t != nil {
			tasks = append(tasks, t)
		}
	}
	return tasks
}
