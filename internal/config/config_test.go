package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/gantry/internal/constants"
)

func TestDefaultConfig_ReturnsValidConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg, "DefaultConfig should not return nil")
	require.NoError(t, Validate(cfg), "defaults must pass validation")

	assert.Equal(t, constants.DefaultMaxConcurrency, cfg.Engine.MaxConcurrency)
	assert.Equal(t, constants.DefaultMaxRetries, cfg.Engine.MaxRetries)
	assert.Equal(t, constants.DefaultMaxFixAttempts, cfg.Engine.MaxFixAttempts)
	assert.Equal(t, constants.DefaultRetryDelay, cfg.Engine.RetryDelay)
	assert.Equal(t, constants.DefaultAssignPoll, cfg.Engine.AssignPoll)
	assert.Equal(t, constants.StrategyCapabilityMatch.String(), cfg.Engine.Strategy)
	assert.False(t, cfg.Engine.SkipFailed)
	assert.Equal(t, constants.DefaultBlockerThreshold, cfg.Tracking.BlockerThreshold)
	assert.Equal(t, constants.DefaultVelocityWindow, cfg.Tracking.VelocityWindow)
	assert.Empty(t, cfg.Store.Home)
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	original := DefaultConfig()
	original.Engine.MaxConcurrency = 8
	original.Engine.Strategy = constants.StrategyRoundRobin.String()
	original.Engine.RetryDelay = 30 * time.Second
	original.Tracking.BlockerThreshold = 5
	original.Store.Home = "/var/lib/gantry"

	data, err := yaml.Marshal(original)
	require.NoError(t, err)

	var decoded Config
	require.NoError(t, yaml.Unmarshal(data, &decoded))

	assert.Equal(t, *original, decoded)
}

func TestConfig_YAMLTagNames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Home = "/srv/gantry"

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	// Keys must stay snake_case so config files, viper defaults and env
	// var mapping agree.
	text := string(data)
	assert.Contains(t, text, "max_concurrency:")
	assert.Contains(t, text, "max_fix_attempts:")
	assert.Contains(t, text, "retry_delay:")
	assert.Contains(t, text, "assign_poll:")
	assert.Contains(t, text, "skip_failed:")
	assert.Contains(t, text, "blocker_threshold:")
	assert.Contains(t, text, "velocity_window:")
	assert.Contains(t, text, "home:")
}
