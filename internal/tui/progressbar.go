package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"

	tracker "github.com/mrz1836/gantry/internal/progress"
)

// ProgressBar wraps the bubbles progress bar with gantry styling. Rendering
// is static (ViewAs); the watch model re-renders on every refresh instead
// of animating frames.
type ProgressBar struct {
	bar   progress.Model
	width int
}

// NewProgressBar creates a progress bar of the given width. Color terminals
// get the primary-blue gradient; NO_COLOR mode falls back to a solid fill.
func NewProgressBar(width int) *ProgressBar {
	var bar progress.Model
	if HasColorSupport() {
		bar = progress.New(
			progress.WithWidth(width),
			progress.WithScaledGradient("#0087AF", "#00D7FF"),
		)
	} else {
		bar = progress.New(
			progress.WithWidth(width),
			progress.WithSolidFill("#808080"),
		)
	}
	return &ProgressBar{bar: bar, width: width}
}

// Render returns the bar for the given completion ratio (0.0 to 1.0).
// Out-of-range values are clamped.
func (pb *ProgressBar) Render(percent float64) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 1 {
		percent = 1
	}
	return pb.bar.ViewAs(percent)
}

// Width returns the configured bar width.
func (pb *ProgressBar) Width() int {
	return pb.width
}

// SetWidth updates the bar width.
func (pb *ProgressBar) SetWidth(w int) {
	pb.width = w
	pb.bar.Width = w
}

// BarWidthFor picks a progress bar width appropriate for the terminal.
func BarWidthFor(terminalWidth int) int {
	switch {
	case terminalWidth < 80:
		return 20
	case terminalWidth < 120:
		return 40
	default:
		return 60
	}
}

// SummaryLine renders one line of plan progress: bar, weighted percentage
// and task counts, with the quieter counters appended only when non-zero.
func SummaryLine(snap tracker.Snapshot, barWidth int) string {
	bar := NewProgressBar(barWidth).Render(float64(snap.Percentage) / 100)
	line := fmt.Sprintf("%s %3d%%  %d/%d tasks", bar, snap.Percentage, snap.Completed, snap.TotalTasks)
	if snap.InProgress > 0 {
		line += fmt.Sprintf(" • %d running", snap.InProgress)
	}
	if snap.Failed > 0 {
		line += fmt.Sprintf(" • %d failed", snap.Failed)
	}
	if snap.Skipped > 0 {
		line += fmt.Sprintf(" • %d skipped", snap.Skipped)
	}
	if snap.TasksPerHour > 0 {
		line += fmt.Sprintf(" • %.1f tasks/h", snap.TasksPerHour)
	}
	return line
}
