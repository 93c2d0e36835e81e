package config

import (
	"github.com/mrz1836/gantry/internal/constants"
)

// DefaultConfig returns a new Config with sensible default values.
// These defaults are used as the base layer that can be overridden by
// config files, environment variables, and CLI flags.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			// MaxConcurrency: 4 keeps execution groups small enough to
			// follow while still overlapping independent work.
			MaxConcurrency: constants.DefaultMaxConcurrency,

			// MaxRetries: 3 redispatches give transient failures room
			// to clear without retrying forever.
			MaxRetries: constants.DefaultMaxRetries,

			// MaxFixAttempts: 3 fix/verify rounds before an iteration
			// escalates.
			MaxFixAttempts: constants.DefaultMaxFixAttempts,

			// RetryDelay: 5 seconds between redispatches of a failed task.
			RetryDelay: constants.DefaultRetryDelay,

			// AssignPoll: how often to re-check for a free agent when all
			// capable agents are busy.
			AssignPoll: constants.DefaultAssignPoll,

			// Strategy: capability matching is the default; round_robin is
			// available for homogeneous agent pools.
			Strategy: constants.StrategyCapabilityMatch.String(),

			// SkipFailed: false halts the run when a task exhausts its
			// retries, which is the safer default.
			SkipFailed: false,
		},
		Tracking: TrackingConfig{
			// BlockerThreshold: 3 consecutive failures raise a blocker.
			BlockerThreshold: constants.DefaultBlockerThreshold,

			// VelocityWindow: completions within the last hour count
			// toward the velocity estimate.
			VelocityWindow: constants.DefaultVelocityWindow,
		},
		Store: StoreConfig{
			// Home: empty means use ~/.gantry.
			Home: "",
		},
	}
}
