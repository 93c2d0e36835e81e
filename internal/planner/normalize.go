package planner

import (
	"strings"

	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/domain"
	gerrors "github.com/mrz1836/gantry/internal/errors"
)

// categoryCapabilities maps free-form category tags to typed capabilities.
// Lookup is case-insensitive; unmatched categories fall back to general.
//
//nolint:gochecknoglobals // Read-only lookup table for category parsing
var categoryCapabilities = map[string]constants.Capability{
	"setup":          constants.CapabilitySetup,
	"infra":          constants.CapabilitySetup,
	"infrastructure": constants.CapabilitySetup,
	"scaffold":       constants.CapabilitySetup,
	"backend":        constants.CapabilityBackend,
	"api":            constants.CapabilityBackend,
	"server":         constants.CapabilityBackend,
	"service":        constants.CapabilityBackend,
	"frontend":       constants.CapabilityFrontend,
	"ui":             constants.CapabilityFrontend,
	"web":            constants.CapabilityFrontend,
	"database":       constants.CapabilityDatabase,
	"db":             constants.CapabilityDatabase,
	"schema":         constants.CapabilityDatabase,
	"migration":      constants.CapabilityDatabase,
	"testing":        constants.CapabilityTesting,
	"test":           constants.CapabilityTesting,
	"qa":             constants.CapabilityTesting,
	"deploy":         constants.CapabilityDeploy,
	"deployment":     constants.CapabilityDeploy,
	"release":        constants.CapabilityDeploy,
	"ops":            constants.CapabilityDeploy,
}

// capabilityPhases maps capabilities to the plan phase they imply.
// Capabilities without an entry imply the implementation phase.
//
//nolint:gochecknoglobals // Read-only lookup table for phase inference
var capabilityPhases = map[constants.Capability]constants.PlanPhase{
	constants.CapabilitySetup:   constants.PlanPhaseSetup,
	constants.CapabilityTesting: constants.PlanPhaseTesting,
	constants.CapabilityDeploy:  constants.PlanPhaseDeployment,
}

// ParseCapability resolves a free-form category tag to a typed capability.
// Unknown or empty categories resolve to CapabilityGeneral.
func ParseCapability(category string) constants.Capability {
	if c, ok := categoryCapabilities[strings.ToLower(strings.TrimSpace(category))]; ok {
		return c
	}
	return constants.CapabilityGeneral
}

// InferPhase returns the plan phase a capability implies: setup work lands in
// SETUP, testing in TESTING, deployment in DEPLOYMENT, everything else in
// IMPLEMENTATION.
func InferPhase(c constants.Capability) constants.PlanPhase {
	if phase, ok := capabilityPhases[c]; ok {
		return phase
	}
	return constants.PlanPhaseImplementation
}

// normalizeTasks copies the input tasks and applies defaults: missing IDs are
// generated, priority defaults to medium, complexity to the default weight,
// status to pending, and the category is parsed into a capability which in
// turn fixes the phase when none was given. Duplicate IDs are rejected.
func normalizeTasks(tasks []domain.Task) ([]*domain.Task, error) {
	seen := make(map[string]bool, len(tasks))
	normalized := make([]*domain.Task, 0, len(tasks))

	for i := range tasks {
		task := tasks[i]

		if task.ID == "" {
			task.ID = GenerateTaskID()
		}
		if seen[task.ID] {
			return nil, gerrors.Wrapf(gerrors.ErrDuplicateTask, "task id %s", task.ID)
		}
		seen[task.ID] = true

		if task.Priority == "" {
			task.Priority = constants.PriorityMedium
		}
		if task.Complexity <= 0 {
			task.Complexity = constants.DefaultComplexity
		}
		if task.Status == "" {
			task.Status = constants.TaskStatusPending
		}
		if task.Capability == "" {
			task.Capability = ParseCapability(task.Category)
		}
		if task.Phase == "" {
			task.Phase = InferPhase(task.Capability)
		}

		// Copy dependencies so later plan mutations never alias caller slices.
		if len(task.Dependencies) > 0 {
			task.Dependencies = append([]string(nil), task.Dependencies...)
		}

		normalized = append(normalized, &task)
	}

	return normalized, nil
}

// validateDependencies rejects unknown and self references. Cycles are the
// graph layer's concern.
func validateDependencies(tasks []*domain.Task) error {
	ids := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		ids[task.ID] = true
	}

	for _, task := range tasks {
		for _, dep := range task.Dependencies {
			if dep == task.ID {
				return gerrors.Wrapf(gerrors.ErrInvalidDependency, "task %s depends on itself", task.ID)
			}
			if !ids[dep] {
				return gerrors.Wrapf(gerrors.ErrInvalidDependency, "task %s depends on unknown task %s", task.ID, dep)
			}
		}
	}

	return nil
}
