// Package tui provides the terminal components behind gantry's status,
// watch and report surfaces.
//
// All colors are lipgloss.AdaptiveColor pairs so output stays readable on
// both light and dark terminals. Status displays keep triple redundancy
// (icon + color + text) so state remains distinguishable when color is
// unavailable. Commands that emit styled text should call CheckNoColor
// first; it honors the NO_COLOR convention and TERM=dumb.
package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/mrz1836/gantry/internal/constants"
)

//nolint:gochecknoglobals // Package-level style palette shared by all components
var (
	// ColorPrimary is blue, used for active states and headings.
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}

	// ColorSuccess is green, used for completed work.
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}

	// ColorWarning is yellow, used for skipped tasks and attention states.
	ColorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}

	// ColorError is red, used for failed tasks and blockers.
	ColorError = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}

	// ColorMuted is gray, used for pending work and secondary text.
	ColorMuted = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}

	// StyleBold applies bold formatting.
	StyleBold = lipgloss.NewStyle().Bold(true)

	// StyleDim applies faint formatting.
	StyleDim = lipgloss.NewStyle().Faint(true)

	// StyleTitle is the heading style for command output sections.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
)

// CheckNoColor disables color output when the environment asks for it.
// Call at the start of commands that emit styled text.
func CheckNoColor() {
	if !HasColorSupport() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// HasColorSupport reports whether the terminal should receive color.
// Returns false when NO_COLOR is set (any value, including empty) or when
// TERM=dumb, following https://no-color.org/.
func HasColorSupport() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// TaskStatusColors returns the semantic color for each task status.
func TaskStatusColors() map[constants.TaskStatus]lipgloss.AdaptiveColor {
	return map[constants.TaskStatus]lipgloss.AdaptiveColor{
		constants.TaskStatusPending:   ColorMuted,
		constants.TaskStatusRunning:   ColorPrimary,
		constants.TaskStatusCompleted: ColorSuccess,
		constants.TaskStatusFailed:    ColorError,
		constants.TaskStatusSkipped:   ColorWarning,
	}
}

// TaskStatusIcon returns the symbol shown next to a task status.
func TaskStatusIcon(status constants.TaskStatus) string {
	icons := map[constants.TaskStatus]string{
		constants.TaskStatusPending:   "○",
		constants.TaskStatusRunning:   "●",
		constants.TaskStatusCompleted: "✓",
		constants.TaskStatusFailed:    "✗",
		constants.TaskStatusSkipped:   "⊘",
	}
	if icon, ok := icons[status]; ok {
		return icon
	}
	return "?"
}

// AgentStatusIcon returns the symbol shown next to an agent status.
func AgentStatusIcon(status constants.AgentStatus) string {
	icons := map[constants.AgentStatus]string{
		constants.AgentStatusAvailable: "○",
		constants.AgentStatusBusy:      "●",
	}
	if icon, ok := icons[status]; ok {
		return icon
	}
	return "?"
}

// TrackerStatusColors returns the semantic color for each plan-level status.
func TrackerStatusColors() map[constants.TrackerStatus]lipgloss.AdaptiveColor {
	return map[constants.TrackerStatus]lipgloss.AdaptiveColor{
		constants.TrackerStatusNotStarted: ColorMuted,
		constants.TrackerStatusInProgress: ColorPrimary,
		constants.TrackerStatusCompleted:  ColorSuccess,
		constants.TrackerStatusBlocked:    ColorError,
	}
}

// Status is satisfied by the string-backed status enums in constants.
type Status interface {
	String() string
}

// FormatStatusWithIcon prefixes text with the status icon, keeping the
// icon + color + text redundancy. Color is applied by callers when
// rendering; this function contributes icon and text.
func FormatStatusWithIcon[S Status](status S, text string) string {
	var icon string
	switch s := any(status).(type) {
	case constants.TaskStatus:
		icon = TaskStatusIcon(s)
	case constants.AgentStatus:
		icon = AgentStatusIcon(s)
	default:
		icon = "?"
	}
	return icon + " " + text
}

// TableStyles holds lipgloss styles for table rendering.
type TableStyles struct {
	Header lipgloss.Style
	Cell   lipgloss.Style
	Dim    lipgloss.Style
}

// NewTableStyles creates styles for table rendering.
func NewTableStyles() *TableStyles {
	return &TableStyles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}),
		Cell: lipgloss.NewStyle(),
		Dim: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),
	}
}

// OutputStyles holds common message styles.
type OutputStyles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Dim     lipgloss.Style
}

// NewOutputStyles creates the common message styles.
func NewOutputStyles() *OutputStyles {
	return &OutputStyles{
		Success: lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(ColorError).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(ColorWarning),
		Info:    lipgloss.NewStyle().Foreground(ColorPrimary),
		Dim:     lipgloss.NewStyle().Foreground(ColorMuted),
	}
}

// NarrowTerminalWidth is the threshold below which tables abbreviate
// their headers.
const NarrowTerminalWidth = 80

// DefaultTerminalWidth is assumed when width detection fails.
const DefaultTerminalWidth = 80

// TerminalWidth returns the current terminal width, or
// DefaultTerminalWidth when detection fails (pipes, tests).
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	return width
}

// truncate shortens plain text to at most width display columns, ending in
// a single-column ellipsis when something was cut. Widths are measured
// with go-runewidth so East Asian wide characters count as two columns.
func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 1 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "…")
}

// padRight pads plain text to the target display width, truncating first
// when it is too long. Styled text must go through padStyled instead so
// ANSI escape codes do not count toward the width.
func padRight(s string, width int) string {
	s = truncate(s, width)
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// padStyled pads styled text based on the display width of its plain form.
func padStyled(styled, plain string, width int) string {
	w := runewidth.StringWidth(plain)
	if w >= width {
		return styled
	}
	return styled + strings.Repeat(" ", width-w)
}
