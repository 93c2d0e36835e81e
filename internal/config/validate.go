package config

import (
	"path/filepath"
	"time"

	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/errors"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Validation rules:
//   - Engine max concurrency must be at least 1
//   - Engine max retries must not be negative
//   - Engine max fix attempts must be at least 1
//   - Engine retry delay must not be negative
//   - Engine assign poll must be between 10ms and 1 minute
//   - Engine strategy must be a recognized strategy name
//   - Tracking blocker threshold must be at least 1
//   - Tracking velocity window must be positive
//   - Store home, when set, must be an absolute path
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validateEngineConfig(&cfg.Engine); err != nil {
		return err
	}

	if err := validateTrackingConfig(&cfg.Tracking); err != nil {
		return err
	}

	if err := validateStoreConfig(&cfg.Store); err != nil {
		return err
	}

	return nil
}

// validateEngineConfig checks engine-specific configuration values.
func validateEngineConfig(cfg *EngineConfig) error {
	if cfg.MaxConcurrency < 1 {
		return errors.Wrapf(errors.ErrConfigInvalidEngine,
			"engine.max_concurrency must be at least 1, got %d", cfg.MaxConcurrency)
	}

	if cfg.MaxRetries < 0 {
		return errors.Wrapf(errors.ErrConfigInvalidEngine,
			"engine.max_retries cannot be negative, got %d", cfg.MaxRetries)
	}

	if cfg.MaxFixAttempts < 1 {
		return errors.Wrapf(errors.ErrConfigInvalidEngine,
			"engine.max_fix_attempts must be at least 1, got %d", cfg.MaxFixAttempts)
	}

	if cfg.RetryDelay < 0 {
		return errors.Wrapf(errors.ErrConfigInvalidEngine,
			"engine.retry_delay cannot be negative, got %s", cfg.RetryDelay)
	}

	minAssignPoll := 10 * time.Millisecond
	maxAssignPoll := 1 * time.Minute
	if cfg.AssignPoll < minAssignPoll || cfg.AssignPoll > maxAssignPoll {
		return errors.Wrapf(errors.ErrConfigInvalidEngine,
			"engine.assign_poll must be between %s and %s, got %s",
			minAssignPoll, maxAssignPoll, cfg.AssignPoll)
	}

	if !constants.StrategyName(cfg.Strategy).IsValid() {
		return errors.Wrapf(errors.ErrConfigInvalidEngine,
			"engine.strategy must be %q or %q, got %q",
			constants.StrategyCapabilityMatch, constants.StrategyRoundRobin, cfg.Strategy)
	}

	return nil
}

// validateTrackingConfig checks tracking-specific configuration values.
func validateTrackingConfig(cfg *TrackingConfig) error {
	if cfg.BlockerThreshold < 1 {
		return errors.Wrapf(errors.ErrConfigInvalidTracking,
			"tracking.blocker_threshold must be at least 1, got %d", cfg.BlockerThreshold)
	}

	if cfg.VelocityWindow <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidTracking,
			"tracking.velocity_window must be positive, got %s", cfg.VelocityWindow)
	}

	return nil
}

// validateStoreConfig checks store-specific configuration values.
func validateStoreConfig(cfg *StoreConfig) error {
	if cfg.Home != "" && !filepath.IsAbs(cfg.Home) {
		return errors.Wrapf(errors.ErrConfigInvalidStore,
			"store.home must be an absolute path, got %q", cfg.Home)
	}

	return nil
}
