package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mrz1836/gantry/internal/errors"
)

// newViperInstance creates a new Viper instance with standard gantry
// configuration. This includes environment variable prefix (GANTRY_), key
// replacer, and defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("GANTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// isConfigNotFoundError returns true if the error is a viper config file not
// found error. This helps consolidate the common pattern of checking for
// missing config files.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// unmarshalAndValidate unmarshals viper config into Config struct and validates it.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load reads configuration from all available sources with proper precedence.
// Configuration is loaded in the following order (highest precedence first):
//  1. Environment variables (GANTRY_* prefix)
//  2. Project config (.gantry/config.yaml)
//  3. Global config (~/.gantry/config.yaml)
//  4. Built-in defaults
//
// For CLI flag overrides, use LoadWithOverrides instead.
//
// The function returns an error only for actual configuration problems,
// not for missing config files (which are expected in many scenarios).
func Load(ctx context.Context) (*Config, error) {
	v := newViperInstance()

	// Load global config first (lower precedence)
	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}

	// Load project config (higher precedence, merges over global)
	if err := loadProjectConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	// Log loaded configuration for debugging
	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Int("engine.max_concurrency", cfg.Engine.MaxConcurrency).
		Int("engine.max_retries", cfg.Engine.MaxRetries).
		Dur("engine.retry_delay", cfg.Engine.RetryDelay).
		Dur("tracking.velocity_window", cfg.Tracking.VelocityWindow).
		Msg("configuration loaded and unmarshaled")

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &cfg, nil
}

// loadGlobalConfig attempts to load the global config file
// (~/.gantry/config.yaml). Returns nil if the file doesn't exist or the home
// directory cannot be determined.
func loadGlobalConfig(v *viper.Viper) error {
	globalConfigPath, ok := getGlobalConfigPathIfExists()
	if !ok {
		// Global config doesn't exist or home dir unavailable, skip silently
		return nil
	}

	v.SetConfigFile(globalConfigPath)
	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read global config file")
	}
	return nil
}

// getGlobalConfigPathIfExists returns the global config path if it exists.
// Returns empty string and false if the home directory cannot be determined
// or the config file does not exist.
func getGlobalConfigPathIfExists() (string, bool) {
	globalDir, err := GlobalConfigDir()
	if err != nil {
		return "", false
	}

	globalConfigPath := filepath.Join(globalDir, "config.yaml")
	if _, err := os.Stat(globalConfigPath); err != nil {
		return "", false
	}

	return globalConfigPath, true
}

// loadProjectConfig attempts to load the project config file
// (.gantry/config.yaml). Returns nil if the file doesn't exist.
func loadProjectConfig(v *viper.Viper) error {
	projectConfigPath := ProjectConfigPath()
	if !fileExists(projectConfigPath) {
		// Project config doesn't exist, skip silently
		return nil
	}

	v.SetConfigFile(projectConfigPath)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read project config file")
	}
	return nil
}

// fileExists returns true if the file at path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadWithOverrides loads configuration and applies CLI flag overrides.
// The overrides parameter contains values from CLI flags which have the
// highest precedence in the configuration hierarchy.
//
// Only non-zero values in overrides are applied. Zero values are ignored
// to allow partial overrides.
func LoadWithOverrides(ctx context.Context, overrides *Config) (*Config, error) {
	cfg, err := Load(ctx)
	if err != nil {
		return nil, err
	}

	if overrides != nil {
		applyOverrides(cfg, overrides)
	}

	// Re-validate after applying overrides
	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration after overrides")
	}

	return cfg, nil
}

// LoadFromPaths loads configuration from specific file paths for testing.
// This function allows precise control over which config files are loaded.
//
// projectConfigPath is the path to project-level config (higher priority).
// globalConfigPath is the path to global config (lower priority).
// Either path can be empty to skip that level.
func LoadFromPaths(_ context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	// Load global config first (lower precedence)
	if globalConfigPath != "" {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	// Load project config (higher precedence, merges over global)
	if projectConfigPath != "" {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return unmarshalAndValidate(v)
}

// setDefaults configures all default values on the Viper instance.
// These defaults match the values from DefaultConfig().
// IMPORTANT: Keys must match the YAML tag names exactly for proper mapping.
func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()

	// Engine defaults
	v.SetDefault("engine.max_concurrency", defaults.Engine.MaxConcurrency)
	v.SetDefault("engine.max_retries", defaults.Engine.MaxRetries)
	v.SetDefault("engine.max_fix_attempts", defaults.Engine.MaxFixAttempts)
	v.SetDefault("engine.retry_delay", defaults.Engine.RetryDelay.String())
	v.SetDefault("engine.assign_poll", defaults.Engine.AssignPoll.String())
	v.SetDefault("engine.strategy", defaults.Engine.Strategy)
	v.SetDefault("engine.skip_failed", defaults.Engine.SkipFailed)

	// Tracking defaults
	v.SetDefault("tracking.blocker_threshold", defaults.Tracking.BlockerThreshold)
	v.SetDefault("tracking.velocity_window", defaults.Tracking.VelocityWindow.String())

	// Store defaults
	v.SetDefault("store.home", defaults.Store.Home)
}

// applyOverrides merges non-zero override values into the config.
// Only non-zero values are applied to allow partial overrides.
//
// IMPORTANT: SkipFailed cannot be overridden to false and MaxRetries cannot
// be overridden to zero through this function, because Go's zero value makes
// "explicitly set" indistinguishable from "not set". CLI implementations
// should handle those flags separately:
//
//	if cmd.Flags().Changed("max-retries") {
//	    cfg.Engine.MaxRetries = maxRetriesFlag // Use flag value directly
//	}
func applyOverrides(cfg, overrides *Config) {
	// Engine overrides
	if overrides.Engine.MaxConcurrency > 0 {
		cfg.Engine.MaxConcurrency = overrides.Engine.MaxConcurrency
	}
	if overrides.Engine.MaxRetries > 0 {
		cfg.Engine.MaxRetries = overrides.Engine.MaxRetries
	}
	if overrides.Engine.MaxFixAttempts > 0 {
		cfg.Engine.MaxFixAttempts = overrides.Engine.MaxFixAttempts
	}
	if overrides.Engine.RetryDelay != 0 {
		cfg.Engine.RetryDelay = overrides.Engine.RetryDelay
	}
	if overrides.Engine.AssignPoll != 0 {
		cfg.Engine.AssignPoll = overrides.Engine.AssignPoll
	}
	if overrides.Engine.Strategy != "" {
		cfg.Engine.Strategy = overrides.Engine.Strategy
	}
	// SkipFailed is a bool - we can't distinguish false from unset,
	// so we don't override it here. Use explicit flag handling in CLI.

	// Tracking overrides
	if overrides.Tracking.BlockerThreshold > 0 {
		cfg.Tracking.BlockerThreshold = overrides.Tracking.BlockerThreshold
	}
	if overrides.Tracking.VelocityWindow != 0 {
		cfg.Tracking.VelocityWindow = overrides.Tracking.VelocityWindow
	}

	// Store overrides
	if overrides.Store.Home != "" {
		cfg.Store.Home = overrides.Store.Home
	}
}

// viperDecoderOption returns the decoder options for Viper unmarshal.
// This configures mapstructure to handle time.Duration conversion from strings.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}
