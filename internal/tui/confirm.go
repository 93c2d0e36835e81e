package tui

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/domain"
	gerrors "github.com/mrz1836/gantry/internal/errors"
	tracker "github.com/mrz1836/gantry/internal/progress"
)

// Terminal layout constants.
const (
	// TerminalEdgeMargin is the number of characters to leave between
	// form content and the terminal edge.
	TerminalEdgeMargin = 4

	// MinFormWidth is the minimum usable width for form content.
	MinFormWidth = 40
)

// FormConfig holds configuration for interactive prompts.
type FormConfig struct {
	// Width is the maximum width for the form. If 0, adapts to terminal width.
	Width int
	// Accessible enables accessible mode for screen readers.
	Accessible bool
	// ShowKeyHints controls whether key hints are displayed.
	ShowKeyHints bool
}

// FormOption is a functional option for configuring FormConfig.
type FormOption func(*FormConfig)

// WithFormWidth sets the form width.
func WithFormWidth(width int) FormOption {
	return func(c *FormConfig) {
		c.Width = width
	}
}

// WithFormAccessible enables or disables accessible mode.
func WithFormAccessible(enabled bool) FormOption {
	return func(c *FormConfig) {
		c.Accessible = enabled
	}
}

// WithFormKeyHints enables or disables key hints display.
func WithFormKeyHints(show bool) FormOption {
	return func(c *FormConfig) {
		c.ShowKeyHints = show
	}
}

// NewFormConfig creates a FormConfig with defaults. Accessible mode is
// detected from the ACCESSIBLE environment variable.
func NewFormConfig(opts ...FormOption) *FormConfig {
	_, accessible := os.LookupEnv("ACCESSIBLE")

	c := &FormConfig{
		Width:        DefaultTerminalWidth,
		Accessible:   accessible,
		ShowKeyHints: true,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// adaptWidth returns an appropriate form width based on terminal size.
// It respects the maxWidth constraint while adapting to narrower terminals.
func adaptWidth(maxWidth int) int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		if maxWidth <= 0 {
			return DefaultTerminalWidth
		}
		return maxWidth
	}

	availableWidth := width - TerminalEdgeMargin

	if maxWidth > 0 && maxWidth < availableWidth {
		return maxWidth
	}

	if availableWidth < MinFormWidth {
		return MinFormWidth
	}

	return availableWidth
}

// runForm creates and runs a form with the given field and config. It
// handles common setup (theme, width, accessibility) and error mapping.
// The errorContext parameter is used to wrap errors with descriptive
// context.
func runForm(field huh.Field, cfg *FormConfig, errorContext string) error {
	// Interactive prompts cannot run without a terminal. Failing with a
	// sentinel lets callers fall back to non-interactive behavior and
	// keeps tests from hanging on stdin.
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return gerrors.ErrInteractiveRequired
	}

	CheckNoColor()

	width := adaptWidth(cfg.Width)

	form := huh.NewForm(huh.NewGroup(field)).
		WithTheme(GantryTheme()).
		WithWidth(width).
		WithAccessible(cfg.Accessible).
		WithShowHelp(cfg.ShowKeyHints)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return gerrors.ErrOperationCanceled
		}
		return fmt.Errorf("%s: %w", errorContext, err)
	}

	return nil
}

// GantryTheme returns a Huh theme mapped onto the gantry color palette.
// Uses AdaptiveColor for proper light/dark terminal support.
func GantryTheme() *huh.Theme {
	CheckNoColor()

	t := huh.ThemeBase()

	t.Focused.Base = t.Focused.Base.BorderForeground(ColorPrimary)
	t.Focused.Title = t.Focused.Title.Foreground(ColorPrimary)
	t.Focused.SelectSelector = t.Focused.SelectSelector.Foreground(ColorPrimary)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(ColorPrimary)
	t.Focused.TextInput.Cursor = t.Focused.TextInput.Cursor.Foreground(ColorPrimary)

	t.Focused.SelectedPrefix = t.Focused.SelectedPrefix.Foreground(ColorSuccess)

	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(ColorError)
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(ColorError)

	t.Blurred.Base = t.Blurred.Base.BorderForeground(ColorMuted)
	t.Blurred.Title = t.Blurred.Title.Foreground(ColorMuted)
	t.Focused.Description = t.Focused.Description.Foreground(ColorMuted)
	t.Help.Ellipsis = t.Help.Ellipsis.Foreground(ColorMuted)

	return t
}

// Confirm presents a yes/no confirmation prompt. Returns the user's choice,
// ErrOperationCanceled if the prompt was aborted, or ErrInteractiveRequired
// when stdin is not a terminal.
func Confirm(message string, defaultYes bool) (bool, error) {
	return ConfirmWithConfig(message, defaultYes, NewFormConfig())
}

// ConfirmWithConfig presents a confirmation prompt with custom configuration.
func ConfirmWithConfig(message string, defaultYes bool, cfg *FormConfig) (bool, error) {
	confirmed := defaultYes

	confirmField := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed)

	if err := runForm(confirmField, cfg, "confirm prompt failed"); err != nil {
		return false, err
	}

	return confirmed, nil
}

// CheckpointMessage builds the prompt text for a checkpoint pause from the
// checkpoint and the current progress snapshot.
func CheckpointMessage(cp domain.Checkpoint, snap tracker.Snapshot) string {
	switch cp.Type {
	case constants.CheckpointFinal:
		return fmt.Sprintf(
			"Final checkpoint: %d of %d tasks complete (%d%%). Finish the run?",
			snap.Completed, snap.TotalTasks, snap.Percentage,
		)
	default:
		return fmt.Sprintf(
			"Checkpoint after group %d: %d of %d tasks complete (%d%%). Continue to the next phase?",
			cp.AfterOrder, snap.Completed, snap.TotalTasks, snap.Percentage,
		)
	}
}

// ConfirmCheckpoint prompts the operator at a checkpoint pause and reports
// whether execution should continue. It satisfies the driver's confirm
// callback signature, so interactive runs can wire it in directly.
func ConfirmCheckpoint(ctx context.Context, cp domain.Checkpoint, snap tracker.Snapshot) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return Confirm(CheckpointMessage(cp, snap), true)
}
