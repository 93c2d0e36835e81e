// Package errors provides centralized error handling for gantry.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrCircularDependency indicates the task dependency graph contains a
	// cycle. Plan creation fails fatally; the wrapped message names the
	// task ids on the cycle. Never retryable.
	ErrCircularDependency = errors.New("circular dependencies detected")

	// ErrInvalidDependency indicates a task depends on itself or on an id
	// that does not exist in the submitted task set.
	ErrInvalidDependency = errors.New("invalid task dependency")

	// ErrDuplicateTask indicates two submitted tasks share the same id.
	ErrDuplicateTask = errors.New("duplicate task id")

	// ErrEmptyPlan indicates plan creation was attempted with no tasks.
	ErrEmptyPlan = errors.New("plan contains no tasks")

	// ErrTaskNotFound indicates an operation referenced a task id that is
	// not part of the plan.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNoAvailableAgent indicates no available agent's capabilities
	// overlap the task's requirements. Recoverable: the caller retries
	// after an agent frees up; the coordinator never queues internally.
	ErrNoAvailableAgent = errors.New("no available agent")

	// ErrDuplicateAgent indicates two registered agents share the same id.
	ErrDuplicateAgent = errors.New("agent already registered")

	// ErrAgentNotFound indicates a lookup referenced an unregistered agent id.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrAssignmentNotFound indicates a completion or failure report
	// referenced a task with no active assignment.
	ErrAssignmentNotFound = errors.New("no active assignment for task")

	// ErrUnknownStrategy indicates an unrecognized assignment strategy name.
	ErrUnknownStrategy = errors.New("unknown assignment strategy")

	// ErrInvalidTransition indicates an attempt to make an invalid state transition.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrIterationNotFound indicates an operation referenced an unknown iteration id.
	ErrIterationNotFound = errors.New("iteration not found")

	// ErrEscalated indicates an iteration exhausted its retry or fix budgets
	// and requires external intervention. Terminal for the iteration.
	ErrEscalated = errors.New("iteration escalated")

	// ErrTaskFailed indicates a task exhausted its retry budget during a
	// plan run and was not skipped, halting the run.
	ErrTaskFailed = errors.New("task failed")

	// ErrPlanNotFound indicates the requested plan does not exist in the store.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrPlanExists indicates an attempt to save a new plan over an existing id.
	ErrPlanExists = errors.New("plan already exists")

	// ErrPlanCorrupted indicates a stored plan snapshot is unreadable.
	ErrPlanCorrupted = errors.New("plan state corrupted")

	// ErrLockTimeout indicates a file lock could not be acquired within the timeout period.
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrPathTraversal indicates an attempt to use path traversal in a filename.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrConfigNil indicates a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidEngine indicates an invalid engine configuration value.
	ErrConfigInvalidEngine = errors.New("invalid engine configuration")

	// ErrConfigInvalidTracking indicates an invalid tracking configuration value.
	ErrConfigInvalidTracking = errors.New("invalid tracking configuration")

	// ErrConfigInvalidStore indicates an invalid store configuration value.
	ErrConfigInvalidStore = errors.New("invalid store configuration")

	// ErrManifestFileMissing indicates the manifest file does not exist.
	ErrManifestFileMissing = errors.New("manifest file not found")

	// ErrManifestParseError indicates the manifest file has invalid YAML syntax.
	ErrManifestParseError = errors.New("manifest parse error")

	// ErrManifestInvalid indicates a manifest failed validation.
	ErrManifestInvalid = errors.New("invalid manifest")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrValueOutOfRange indicates that a value is outside the allowed range.
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrOperationCanceled indicates the user canceled an operation.
	ErrOperationCanceled = errors.New("operation canceled by user")

	// ErrInteractiveRequired indicates that interactive prompts are required but not available.
	ErrInteractiveRequired = errors.New("interactive prompt required")

	// ErrWatchIntervalTooShort indicates that the watch interval is below minimum.
	ErrWatchIntervalTooShort = errors.New("watch interval too short")

	// ErrWatchModeJSONUnsupported indicates that watch mode does not support JSON output.
	ErrWatchModeJSONUnsupported = errors.New("watch mode does not support JSON output")

	// ErrJSONErrorOutput indicates that an error has already been output as JSON.
	// This ensures a non-zero exit code while preventing duplicate error messages.
	// Commands should silence cobra's error printing when this is returned.
	ErrJSONErrorOutput = errors.New("error output as JSON")
)
