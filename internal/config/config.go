// Package config provides configuration management for gantry with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (GANTRY_* prefix)
//  3. Project config (.gantry/config.yaml)
//  4. Global config (~/.gantry/config.yaml)
//  5. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import internal/domain or other internal packages.
package config

import "time"

// Config is the root configuration structure for gantry.
// It contains all configuration sections for the application.
type Config struct {
	// Engine contains limits for plan execution: concurrency, retry budgets
	// and scheduling delays.
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`

	// Tracking contains settings for progress tracking and blocker detection.
	Tracking TrackingConfig `yaml:"tracking" mapstructure:"tracking"`

	// Store contains settings for plan persistence.
	Store StoreConfig `yaml:"store" mapstructure:"store"`
}

// EngineConfig contains limits for plan execution.
// These values flow into the planner, coordinator, iteration manager and
// driver constructors.
type EngineConfig struct {
	// MaxConcurrency caps the size of each execution group, and therefore
	// how many tasks run at once.
	// Default: 4, must be at least 1
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`

	// MaxRetries is the number of times a failed task is redispatched during
	// a plan run before the run halts (or skips the task, with skip_failed).
	// Default: 3, zero disables retries
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`

	// MaxFixAttempts is the number of fix/verify rounds an iteration may
	// spend on a failing test phase before escalating.
	// Default: 3, must be at least 1
	MaxFixAttempts int `yaml:"max_fix_attempts" mapstructure:"max_fix_attempts"`

	// RetryDelay is how long the driver waits before redispatching a failed
	// task.
	// Default: 5s, must not be negative
	RetryDelay time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`

	// AssignPoll is how often the driver re-attempts agent assignment while
	// every capable agent is busy.
	// Default: 200ms, valid range: 10ms to 1m
	AssignPoll time.Duration `yaml:"assign_poll" mapstructure:"assign_poll"`

	// Strategy selects the agent assignment strategy:
	// "capability_match" or "round_robin".
	// Default: "capability_match"
	Strategy string `yaml:"strategy" mapstructure:"strategy"`

	// SkipFailed marks tasks that exhaust their retry budget as skipped
	// instead of halting the run.
	// Default: false
	SkipFailed bool `yaml:"skip_failed" mapstructure:"skip_failed"`
}

// TrackingConfig contains settings for progress tracking.
type TrackingConfig struct {
	// BlockerThreshold is the number of consecutive task failures that
	// raises a blocker signal.
	// Default: 3, must be at least 1
	BlockerThreshold int `yaml:"blocker_threshold" mapstructure:"blocker_threshold"`

	// VelocityWindow is the sliding window over which task completion
	// velocity is computed.
	// Default: 1h, must be positive
	VelocityWindow time.Duration `yaml:"velocity_window" mapstructure:"velocity_window"`
}

// StoreConfig contains settings for plan persistence.
type StoreConfig struct {
	// Home is the base directory for plan storage. Empty means ~/.gantry.
	// When set, it must be an absolute path so commands behave the same
	// from any working directory.
	Home string `yaml:"home" mapstructure:"home"`
}
