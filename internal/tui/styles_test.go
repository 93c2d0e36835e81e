package tui

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrz1836/gantry/internal/constants"
)

// TestSemanticColors_AllColorsExported verifies that all 5 semantic colors
// are exported with adaptive light/dark variants.
func TestSemanticColors_AllColorsExported(t *testing.T) {
	assert.Equal(t, "#0087AF", ColorPrimary.Light)
	assert.Equal(t, "#00D7FF", ColorPrimary.Dark)

	assert.Equal(t, "#008700", ColorSuccess.Light)
	assert.Equal(t, "#00FF87", ColorSuccess.Dark)

	assert.Equal(t, "#AF8700", ColorWarning.Light)
	assert.Equal(t, "#FFD700", ColorWarning.Dark)

	assert.Equal(t, "#AF0000", ColorError.Light)
	assert.Equal(t, "#FF5F5F", ColorError.Dark)

	assert.Equal(t, "#585858", ColorMuted.Light)
	assert.Equal(t, "#6C6C6C", ColorMuted.Dark)
}

func TestTaskStatusColors(t *testing.T) {
	colors := TaskStatusColors()

	statuses := []constants.TaskStatus{
		constants.TaskStatusPending,
		constants.TaskStatusRunning,
		constants.TaskStatusCompleted,
		constants.TaskStatusFailed,
		constants.TaskStatusSkipped,
	}

	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			color, ok := colors[status]
			assert.True(t, ok, "color should be defined for status %s", status)
			assert.NotEmpty(t, color.Light, "light color should be defined")
			assert.NotEmpty(t, color.Dark, "dark color should be defined")
		})
	}
}

func TestTrackerStatusColors(t *testing.T) {
	colors := TrackerStatusColors()

	statuses := []constants.TrackerStatus{
		constants.TrackerStatusNotStarted,
		constants.TrackerStatusInProgress,
		constants.TrackerStatusCompleted,
		constants.TrackerStatusBlocked,
	}

	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			color, ok := colors[status]
			assert.True(t, ok, "color should be defined for status %s", status)
			assert.NotEmpty(t, color.Light)
			assert.NotEmpty(t, color.Dark)
		})
	}
}

func TestTaskStatusIcon(t *testing.T) {
	tests := []struct {
		status       constants.TaskStatus
		expectedIcon string
	}{
		{constants.TaskStatusPending, "○"},   // Empty circle - waiting
		{constants.TaskStatusRunning, "●"},   // Filled circle - active
		{constants.TaskStatusCompleted, "✓"}, // Checkmark - success
		{constants.TaskStatusFailed, "✗"},    // X mark - failed
		{constants.TaskStatusSkipped, "⊘"},   // Slashed circle - skipped
	}

	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			icon := TaskStatusIcon(tc.status)
			assert.Equal(t, tc.expectedIcon, icon)
		})
	}
}

// TestTaskStatusIcon_UnknownStatus returns fallback for unknown status.
func TestTaskStatusIcon_UnknownStatus(t *testing.T) {
	icon := TaskStatusIcon(constants.TaskStatus("unknown"))
	assert.Equal(t, "?", icon)
}

func TestAgentStatusIcon(t *testing.T) {
	assert.Equal(t, "○", AgentStatusIcon(constants.AgentStatusAvailable))
	assert.Equal(t, "●", AgentStatusIcon(constants.AgentStatusBusy))
	assert.Equal(t, "?", AgentStatusIcon(constants.AgentStatus("unknown")))
}

// TestFormatStatusWithIcon verifies the icon + text redundancy pattern.
func TestFormatStatusWithIcon(t *testing.T) {
	result := FormatStatusWithIcon(constants.TaskStatusRunning, "running")
	assert.Contains(t, result, "●")
	assert.Contains(t, result, "running")

	result = FormatStatusWithIcon(constants.AgentStatusBusy, "busy")
	assert.Contains(t, result, "●")
	assert.Contains(t, result, "busy")

	// Statuses without an icon mapping fall back to "?".
	result = FormatStatusWithIcon(constants.TrackerStatusInProgress, "in_progress")
	assert.Contains(t, result, "?")
	assert.Contains(t, result, "in_progress")
}

func TestNewTableStyles(t *testing.T) {
	styles := NewTableStyles()
	assert.NotNil(t, styles)
}

func TestNewOutputStyles(t *testing.T) {
	styles := NewOutputStyles()
	assert.NotNil(t, styles)
}

// TestHasColorSupport verifies color support detection.
func TestHasColorSupport(t *testing.T) {
	// Save original env vars
	origNoColor := os.Getenv("NO_COLOR")
	origTerm := os.Getenv("TERM")
	defer func() {
		_ = os.Setenv("NO_COLOR", origNoColor)
		_ = os.Setenv("TERM", origTerm)
	}()

	t.Run("has color when NO_COLOR is unset", func(t *testing.T) {
		_ = os.Unsetenv("NO_COLOR")
		_ = os.Setenv("TERM", "xterm-256color")
		assert.True(t, HasColorSupport())
	})

	t.Run("no color when NO_COLOR is set", func(t *testing.T) {
		_ = os.Setenv("NO_COLOR", "1")
		_ = os.Setenv("TERM", "xterm-256color")
		assert.False(t, HasColorSupport())
	})

	t.Run("no color when TERM is dumb", func(t *testing.T) {
		_ = os.Unsetenv("NO_COLOR")
		_ = os.Setenv("TERM", "dumb")
		assert.False(t, HasColorSupport())
	})

	t.Run("no color when NO_COLOR is empty string", func(t *testing.T) {
		// The NO_COLOR convention treats any value, including the empty
		// string, as set.
		_ = os.Setenv("NO_COLOR", "")
		_ = os.Setenv("TERM", "xterm-256color")
		assert.False(t, HasColorSupport())
	})
}

// TestCheckNoColor verifies CheckNoColor handles env vars correctly.
func TestCheckNoColor(t *testing.T) {
	origNoColor := os.Getenv("NO_COLOR")
	origTerm := os.Getenv("TERM")
	defer func() {
		_ = os.Setenv("NO_COLOR", origNoColor)
		_ = os.Setenv("TERM", origTerm)
	}()

	t.Run("CheckNoColor is callable", func(_ *testing.T) {
		_ = os.Unsetenv("NO_COLOR")
		_ = os.Setenv("TERM", "xterm")
		CheckNoColor() // Should not panic
	})
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{"shorter than width", "abc", 10, "abc"},
		{"exact width", "abcde", 5, "abcde"},
		{"needs ellipsis", "abcdefgh", 5, "abcd…"},
		{"width one", "abcdefgh", 1, "a"},
		{"wide runes count double", "日本語", 4, "日…"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, truncate(tc.input, tc.width))
		})
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{"pads short text", "ab", 5, "ab   "},
		{"exact width unchanged", "abcde", 5, "abcde"},
		{"truncates long text", "abcdefgh", 5, "abcd…"},
		{"wide runes padded by display width", "日本", 6, "日本  "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, padRight(tc.input, tc.width))
		})
	}
}

// TestPadStyled verifies styled text pads by the width of its plain twin,
// so ANSI escape codes never count toward the column width.
func TestPadStyled(t *testing.T) {
	styled := "\x1b[1mok\x1b[0m"
	padded := padStyled(styled, "ok", 5)
	assert.Equal(t, styled+"   ", padded)

	// Already at width, no padding added.
	assert.Equal(t, styled, padStyled(styled, "okay!", 5))
}

func TestTerminalWidth_FallsBackWithoutTTY(t *testing.T) {
	// Test processes rarely have a TTY on stdout; either way the result
	// must be positive.
	assert.Positive(t, TerminalWidth())
}
