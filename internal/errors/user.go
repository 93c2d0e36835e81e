package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries is the pre-built mapping of sentinel errors to their user-facing messages.
// This single source of truth ensures UserMessage and Actionable stay in sync.
// Using a slice (not a map) because errors.Is() requires proper error chain traversal.
//
//nolint:gochecknoglobals // Pre-built mapping for efficiency
var errorInfoEntries = []errorEntry{
	// ===================
	// Planning
	// ===================
	{
		err: ErrCircularDependency,
		info: ErrorInfo{
			Message: "The task list contains circular dependencies and cannot be planned.",
			Action:  "Break the cycle listed in the error and resubmit the task list.",
		},
	},
	{
		err: ErrInvalidDependency,
		info: ErrorInfo{
			Message: "A task references a dependency that does not exist.",
			Action:  "Check the dependency ids in the manifest against the task ids.",
		},
	},
	{
		err: ErrDuplicateTask,
		info: ErrorInfo{
			Message: "Two tasks in the manifest share the same id.",
			Action:  "Give every task a unique id, or omit ids to have them generated.",
		},
	},
	{
		err: ErrEmptyPlan,
		info: ErrorInfo{
			Message: "The manifest contains no tasks to plan.",
			Action:  "Add at least one task to the manifest.",
		},
	},
	{
		err: ErrTaskNotFound,
		info: ErrorInfo{
			Message: "The specified task was not found in the plan.",
			Action:  "Run 'gantry status <plan-id>' to see the plan's tasks.",
		},
	},

	// ===================
	// Coordination
	// ===================
	{
		err: ErrNoAvailableAgent,
		info: ErrorInfo{
			Message: "No available agent matches the task's required capabilities.",
			Action:  "Register an agent with matching capabilities or wait for one to free up.",
		},
	},
	{
		err: ErrDuplicateAgent,
		info: ErrorInfo{
			Message: "Two agents in the registry share the same id.",
			Action:  "Give every agent a unique id in the manifest.",
		},
	},
	{
		err: ErrAgentNotFound,
		info: ErrorInfo{
			Message: "The specified agent is not registered.",
			Action:  "Run 'gantry agents' to see the registered agents.",
		},
	},
	{
		err: ErrAssignmentNotFound,
		info: ErrorInfo{
			Message: "The task has no active assignment to report against.",
			Action:  "Assign the task before reporting completion or failure.",
		},
	},
	{
		err: ErrUnknownStrategy,
		info: ErrorInfo{
			Message: "The configured assignment strategy is not recognized.",
			Action:  "Use 'capability_match' or 'round_robin' in the configuration.",
		},
	},

	// ===================
	// Iteration
	// ===================
	{
		err: ErrInvalidTransition,
		info: ErrorInfo{
			Message: "The iteration cannot transition to this state.",
			Action:  "Check the iteration status before driving another phase.",
		},
	},
	{
		err: ErrIterationNotFound,
		info: ErrorInfo{
			Message: "The specified iteration was not found.",
			Action:  "Check the iteration id against the plan's recorded iterations.",
		},
	},
	{
		err: ErrEscalated,
		info: ErrorInfo{
			Message: "The iteration exhausted its retry and fix budgets.",
			Action:  "Inspect the iteration history and resolve the failures manually.",
		},
	},

	// ===================
	// Store
	// ===================
	{
		err: ErrPlanNotFound,
		info: ErrorInfo{
			Message: "The specified plan was not found.",
			Action:  "Run 'gantry status' to see available plans.",
		},
	},
	{
		err: ErrPlanExists,
		info: ErrorInfo{
			Message: "A plan with this id already exists.",
			Action:  "Use a different manifest or delete the existing plan first.",
		},
	},
	{
		err: ErrPlanCorrupted,
		info: ErrorInfo{
			Message: "The stored plan snapshot is corrupted.",
			Action:  "Delete the plan directory under ~/.gantry/plans and re-plan.",
		},
	},
	{
		err: ErrLockTimeout,
		info: ErrorInfo{
			Message: "Could not acquire lock. Another process may be using the resource.",
			Action:  "Wait and try again, or check for stuck processes.",
		},
	},

	// ===================
	// Configuration & manifest
	// ===================
	{
		err: ErrConfigNil,
		info: ErrorInfo{
			Message: "Configuration is not loaded.",
			Action:  "Ensure the config file exists and is valid YAML.",
		},
	},
	{
		err: ErrConfigInvalidEngine,
		info: ErrorInfo{
			Message: "Invalid engine configuration.",
			Action:  "Check the 'engine' section of the config for invalid values.",
		},
	},
	{
		err: ErrConfigInvalidTracking,
		info: ErrorInfo{
			Message: "Invalid tracking configuration.",
			Action:  "Check the 'tracking' section of the config for invalid values.",
		},
	},
	{
		err: ErrConfigInvalidStore,
		info: ErrorInfo{
			Message: "Invalid store configuration.",
			Action:  "Check the 'store' section of the config for invalid values.",
		},
	},
	{
		err: ErrManifestFileMissing,
		info: ErrorInfo{
			Message: "The manifest file does not exist.",
			Action:  "Check the file path and ensure the manifest file exists.",
		},
	},
	{
		err: ErrManifestParseError,
		info: ErrorInfo{
			Message: "The manifest file has invalid YAML syntax.",
			Action:  "Check the manifest file for YAML syntax errors.",
		},
	},
	{
		err: ErrManifestInvalid,
		info: ErrorInfo{
			Message: "The manifest failed validation.",
			Action:  "Fix the issues reported in the error and retry.",
		},
	},

	// ===================
	// User interaction
	// ===================
	{
		err: ErrOperationCanceled,
		info: ErrorInfo{
			Message: "Operation was canceled.",
			Action:  "",
		},
	},
	{
		err: ErrInteractiveRequired,
		info: ErrorInfo{
			Message: "This operation requires an interactive terminal.",
			Action:  "Run in an interactive terminal, or drop the --interactive flag.",
		},
	},
	{
		err: ErrWatchIntervalTooShort,
		info: ErrorInfo{
			Message: "The watch refresh interval is below the minimum.",
			Action:  "Use an interval of at least one second.",
		},
	},
	{
		err: ErrWatchModeJSONUnsupported,
		info: ErrorInfo{
			Message: "Watch mode renders a live dashboard and cannot emit JSON.",
			Action:  "Use 'gantry status --output json' for machine-readable output.",
		},
	},
}

// errorInfoMap provides O(1) lookup for direct sentinel error matches.
// Built once from errorInfoEntries during package initialization.
//
//nolint:gochecknoglobals // Pre-built mapping for O(1) lookup performance
var errorInfoMap = buildErrorInfoMap()

// buildErrorInfoMap creates a map from the errorInfoEntries slice.
// This is called once during package init for O(1) direct lookups.
func buildErrorInfoMap() map[error]ErrorInfo {
	m := make(map[error]ErrorInfo, len(errorInfoEntries))
	for _, entry := range errorInfoEntries {
		m[entry.err] = entry.info
	}
	return m
}

// getErrorInfo looks up the ErrorInfo for a given error.
// It first tries O(1) direct map lookup for unwrapped sentinel errors,
// then falls back to errors.Is() traversal for wrapped errors.
// Returns an ErrorInfo with the original error message if not found.
func getErrorInfo(err error) ErrorInfo {
	// Fast path: O(1) lookup for direct sentinel errors
	if info, ok := errorInfoMap[err]; ok {
		return info
	}

	// Slow path: errors.Is() for wrapped errors
	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}

	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// This function maps sentinel errors to helpful, actionable messages
// that are suitable for display to end users.
//
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action the user can take to resolve or work around the issue.
//
// For errors that are not recoverable or have no clear action, the action
// string will be empty.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
