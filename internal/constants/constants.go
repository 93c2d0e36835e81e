// Package constants provides centralized constant values used throughout gantry.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// File names used by gantry for state persistence.
const (
	// PlanFileName is the name of the JSON file that stores a plan snapshot.
	PlanFileName = "plan.json"

	// IterationsFileName is the name of the JSON file that stores the
	// iterations recorded for a plan.
	IterationsFileName = "iterations.json"
)

// Directory names and paths used by gantry for organizing data.
const (
	// GantryHome is the hidden directory name where gantry stores all its data.
	// This directory is created in the user's home directory.
	GantryHome = ".gantry"

	// PlansDir is the directory name where plan snapshots are stored.
	PlansDir = "plans"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"
)

// Scheduling defaults for plan creation and the driving loop.
const (
	// DefaultMaxConcurrency caps the size of a single execution group.
	DefaultMaxConcurrency = 4

	// DefaultComplexity is the progress weight assigned to tasks that do
	// not declare one.
	DefaultComplexity = 1.0
)

// Retry and escalation budgets for the iteration state machine.
const (
	// DefaultMaxRetries is the retry budget for build attempts and the
	// generic bounded-retry helper before an iteration escalates.
	DefaultMaxRetries = 3

	// DefaultMaxFixAttempts is the number of fix/verify rounds allowed on
	// test failures before an iteration escalates.
	DefaultMaxFixAttempts = 3

	// DefaultRetryDelay is the inter-attempt delay, realized as a
	// next-eligible-attempt timestamp rather than a sleep.
	DefaultRetryDelay = 5 * time.Second

	// DefaultAssignPoll is how often the driving loop re-attempts agent
	// assignment while every capable agent is busy.
	DefaultAssignPoll = 200 * time.Millisecond
)

// Progress tracking defaults.
const (
	// DefaultBlockerThreshold is the number of consecutive task failures
	// that raises an advisory blocker.
	DefaultBlockerThreshold = 3

	// DefaultVelocityWindow is the sliding window over which task
	// completion velocity is computed.
	DefaultVelocityWindow = 1 * time.Hour
)

// Live dashboard settings.
const (
	// MinWatchInterval is the smallest refresh interval the watch command
	// accepts. Every refresh re-reads the plan from disk under the plan
	// lock, so faster refreshes would contend with the run writing it.
	MinWatchInterval = 500 * time.Millisecond
)

// Log file settings for the global CLI log.
const (
	// CLILogFileName is the name of the global CLI log file.
	CLILogFileName = "gantry.log"

	// LogMaxSizeMB is the size in megabytes at which the CLI log rotates.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated CLI log files to keep.
	LogMaxBackups = 3

	// LogMaxAgeDays is how many days rotated CLI log files are retained.
	LogMaxAgeDays = 28

	// LogCompress enables compression of rotated CLI log files.
	LogCompress = true
)

// Schema version constants for data migration support.
const (
	// PlanSchemaVersion is the current version of the plan JSON schema.
	// This enables forward-compatible schema migrations.
	PlanSchemaVersion = 1

	// ManifestSchemaVersion is the newest manifest schema gantry reads.
	ManifestSchemaVersion = 1
)
