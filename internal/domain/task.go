// Package domain provides shared domain types for the gantry planning and
// orchestration engine. These types are used across all internal packages to
// ensure consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case per architecture requirements.
package domain

import (
	"time"

	"github.com/mrz1836/gantry/internal/constants"
)

// Task represents a single unit of work inside a plan.
// Tasks are submitted by callers in a partially filled form; the planner
// normalizes them (id, priority, complexity, capability, phase) before the
// plan is created. After that the containing Plan owns the task and mutates
// its status in place.
//
// Example JSON representation:
//
//	{
//	    "id": "task-7f3a2b1c",
//	    "name": "Implement session store",
//	    "category": "backend",
//	    "capability": "backend",
//	    "phase": "implementation",
//	    "priority": "high",
//	    "dependencies": ["task-0a1b2c3d"],
//	    "complexity": 3,
//	    "status": "pending"
//	}
type Task struct {
	// ID is the unique identifier for the task. Generated during
	// normalization when the caller does not supply one.
	ID string `json:"id"`

	// Name is a human-readable summary of what the task does.
	Name string `json:"name"`

	// Category is the caller's free-form tag. It is parsed exactly once
	// during normalization into the typed Capability below and kept for
	// display only; nothing downstream matches on it.
	Category string `json:"category,omitempty"`

	// Capability is the typed skill required to execute this task,
	// derived from Category (or CapabilityGeneral when nothing matches).
	Capability constants.Capability `json:"capability"`

	// Phase classifies where in the build lifecycle the task belongs.
	// Inferred from Capability when the caller leaves it empty.
	Phase constants.PlanPhase `json:"phase"`

	// Priority orders the task within its ready set. Defaults to medium.
	Priority constants.Priority `json:"priority"`

	// Dependencies lists the ids of tasks that must be completed or
	// skipped before this task becomes ready.
	Dependencies []string `json:"dependencies,omitempty"`

	// Complexity is the positive progress weight of the task. Defaults to 1.
	Complexity float64 `json:"complexity"`

	// Status represents the current state in the task lifecycle.
	Status constants.TaskStatus `json:"status"`

	// Agent is the id of the worker assigned to the task, empty when none.
	// A weak reference; the task never owns the agent.
	Agent string `json:"agent,omitempty"`

	// CompletedAt is when the task reached completed status (nil before).
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// DependsOn reports whether the task lists the given id as a dependency.
func (t *Task) DependsOn(id string) bool {
	for _, dep := range t.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}

// Weight returns the task's progress weight, falling back to the default
// for tasks that predate normalization.
func (t *Task) Weight() float64 {
	if t.Complexity > 0 {
		return t.Complexity
	}
	return constants.DefaultComplexity
}
