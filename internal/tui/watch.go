package tui

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrz1836/gantry/internal/constants"
	tracker "github.com/mrz1836/gantry/internal/progress"
)

// WatchConfig holds configuration for the live dashboard.
type WatchConfig struct {
	// Interval is the refresh interval.
	Interval time.Duration
	// BellEnabled rings the terminal bell when a new failure appears.
	BellEnabled bool
	// Quiet suppresses the title and footer lines.
	Quiet bool
	// ShowEvents renders the recent-activity feed below the table.
	ShowEvents bool
}

// DefaultWatchConfig returns the default watch configuration.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		Interval:    2 * time.Second,
		BellEnabled: true,
		Quiet:       false,
		ShowEvents:  true,
	}
}

// WatchData is one refresh worth of dashboard state.
type WatchData struct {
	Snapshot tracker.Snapshot
	Rows     []TaskRow
}

// RefreshFunc loads the current plan state for one frame.
type RefreshFunc func(ctx context.Context) (WatchData, error)

// WatchModel is the Bubble Tea model for the live dashboard. It implements
// tea.Model (Init, Update, View); every tick triggers a refresh through the
// injected RefreshFunc and the view re-renders from the returned data.
type WatchModel struct {
	data       WatchData
	lastUpdate time.Time
	config     WatchConfig
	// Terminal dimensions from the last WindowSizeMsg.
	width, height int
	quitting      bool
	// Error from the last refresh.
	err     error
	refresh RefreshFunc
	// feed is optional; when set and ShowEvents is on, recent run events
	// render below the table.
	feed *EventFeed
	// prevFailed is the failure count at the previous refresh, for bell
	// edge detection.
	prevFailed int
	// baseCtx is stored for use in async Bubble Tea commands. Storing a
	// context in a struct is generally discouraged, but Bubble Tea's
	// command model requires it for cancellation propagation.
	baseCtx context.Context //nolint:containedctx // Required for Bubble Tea async commands
}

// TickMsg signals time for a refresh.
type TickMsg time.Time

// RefreshMsg carries new data from a refresh operation.
type RefreshMsg struct {
	Data WatchData
	Err  error
}

// BellMsg signals that a bell was emitted.
type BellMsg struct{}

// NewWatchModel creates a watch model. The feed may be nil when no event
// bus is wired.
func NewWatchModel(ctx context.Context, refresh RefreshFunc, feed *EventFeed, cfg WatchConfig) *WatchModel {
	return &WatchModel{
		config:  cfg,
		width:   DefaultTerminalWidth,
		height:  24,
		refresh: refresh,
		feed:    feed,
		baseCtx: ctx,
	}
}

// Init starts the refresh timer and performs the initial load.
func (m *WatchModel) Init() tea.Cmd {
	return tea.Batch(m.load(), m.tick())
}

// Update handles messages and returns the updated model and any commands.
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		return m, m.load()

	case RefreshMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, m.tick()
		}
		m.data = msg.Data
		m.lastUpdate = time.Now()
		m.err = nil
		return m, tea.Batch(m.tick(), m.checkForBell())

	case BellMsg:
		// Bell already emitted in the command, nothing to update.
		return m, nil
	}

	return m, nil
}

// View renders the current state to a string.
func (m *WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	if !m.config.Quiet {
		title := "gantry watch"
		if m.data.Snapshot.PlanID != "" {
			title = "Watching " + m.data.Snapshot.PlanID
		}
		b.WriteString(StyleTitle.Render(title))
		b.WriteString("\n\n")
	}

	if m.err != nil {
		b.WriteString(fmt.Sprintf("Error: %v\n", m.err))
	}

	if len(m.data.Rows) == 0 {
		b.WriteString("No tasks. Run 'gantry plan' to create a plan.\n")
	} else {
		b.WriteString(SummaryLine(m.data.Snapshot, BarWidthFor(m.width)))
		b.WriteString("\n\n")
		table := NewTaskTable(m.data.Rows, WithTerminalWidth(m.width))
		_ = table.Render(&b)
	}

	if m.config.ShowEvents && m.feed != nil && m.feed.Len() > 0 {
		b.WriteString("\n")
		b.WriteString(StyleDim.Render("Recent activity"))
		b.WriteString("\n")
		for _, line := range m.feed.Lines(m.width) {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if !m.config.Quiet {
		b.WriteString("\n")
		b.WriteString(m.buildFooter())
	}

	if !m.lastUpdate.IsZero() {
		b.WriteString(fmt.Sprintf("\nLast updated: %s", m.lastUpdate.Format("15:04:05")))
	}
	b.WriteString("\nPress 'q' to quit")

	return b.String()
}

// Data returns the current dashboard state (useful for testing).
func (m *WatchModel) Data() WatchData {
	return m.data
}

// LastUpdate returns the last refresh timestamp.
func (m *WatchModel) LastUpdate() time.Time {
	return m.lastUpdate
}

// IsQuitting reports whether the model is shutting down.
func (m *WatchModel) IsQuitting() bool {
	return m.quitting
}

// Error returns the last refresh error.
func (m *WatchModel) Error() error {
	return m.err
}

// tick returns a command that sends a TickMsg after the configured interval.
func (m *WatchModel) tick() tea.Cmd {
	return tea.Tick(m.config.Interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// load fetches fresh plan state through the refresh callback.
func (m *WatchModel) load() tea.Cmd {
	return func() tea.Msg {
		ctx := m.baseCtx
		if ctx == nil {
			ctx = context.Background()
		}
		data, err := m.refresh(ctx)
		if err != nil {
			return RefreshMsg{Err: fmt.Errorf("failed to load plan state: %w", err)}
		}
		sortTaskRows(data.Rows)
		return RefreshMsg{Data: data}
	}
}

// sortTaskRows sorts rows so failures surface first, then running tasks.
// The sort is stable, so plan order is preserved within each band.
func sortTaskRows(rows []TaskRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return statusPriority(rows[i].Status) > statusPriority(rows[j].Status)
	})
}

// statusPriority returns the display priority for a task status. Higher
// values render first.
func statusPriority(status constants.TaskStatus) int {
	switch status {
	case constants.TaskStatusFailed:
		return 2
	case constants.TaskStatusRunning:
		return 1
	default:
		return 0
	}
}

// checkForBell rings the terminal bell when the failure count grew since
// the previous refresh. Suppressed in quiet mode.
func (m *WatchModel) checkForBell() tea.Cmd {
	if !m.config.BellEnabled || m.config.Quiet {
		return nil
	}
	failed := m.data.Snapshot.Failed
	grew := failed > m.prevFailed
	m.prevFailed = failed
	if grew {
		return emitBell()
	}
	return nil
}

// emitBell returns a command that emits a terminal bell.
func emitBell() tea.Cmd {
	return func() tea.Msg {
		_, _ = os.Stdout.WriteString("\a")
		return BellMsg{}
	}
}

// buildFooter creates the plan-status footer line.
func (m *WatchModel) buildFooter() string {
	snap := m.data.Snapshot
	color := TrackerStatusColors()[snap.Status]
	status := lipgloss.NewStyle().Foreground(color).Render(snap.Status.String())
	footer := "plan status: " + status
	if snap.Status == constants.TrackerStatusBlocked {
		footer += "  (repeated failures, inspect the failed tasks)"
	}
	return footer
}
