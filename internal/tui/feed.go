package tui

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/mrz1836/gantry/internal/bus"
)

// DefaultFeedSize is how many events the feed keeps when no size is given.
const DefaultFeedSize = 6

// EventFeed keeps the most recent run events for the watch dashboard.
// Record satisfies bus.Handler, so the feed can be subscribed directly:
//
//	feed := tui.NewEventFeed(0)
//	b.SubscribeAll(feed.Record)
//
// It is safe for concurrent use: the driver publishes from its worker
// goroutines while the watch model reads on every frame.
type EventFeed struct {
	mu     sync.Mutex
	max    int
	events []bus.Event
}

// NewEventFeed creates a feed holding at most maxEvents entries.
// Non-positive values fall back to DefaultFeedSize.
func NewEventFeed(maxEvents int) *EventFeed {
	if maxEvents <= 0 {
		maxEvents = DefaultFeedSize
	}
	return &EventFeed{
		max:    maxEvents,
		events: make([]bus.Event, 0, maxEvents),
	}
}

// Record appends an event, dropping the oldest entry once the feed is full.
func (f *EventFeed) Record(e bus.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, e)
	if len(f.events) > f.max {
		f.events = f.events[len(f.events)-f.max:]
	}
}

// Events returns a copy of the recorded events, oldest first.
func (f *EventFeed) Events() []bus.Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]bus.Event, len(f.events))
	copy(out, f.events)
	return out
}

// Len returns the number of recorded events.
func (f *EventFeed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// Lines renders the recorded events as display lines, oldest first, each
// truncated to the given width. Only the icon carries color, so width
// math on the plain text stays accurate.
func (f *EventFeed) Lines(width int) []string {
	events := f.Events()
	lines := make([]string, 0, len(events))
	for _, e := range events {
		icon, style, text := formatEvent(e)
		ts := e.Timestamp.Format("15:04:05")
		if width > 0 {
			// Budget for the "HH:MM:SS <icon> " prefix ahead of the text.
			budget := width - len(ts) - 3
			if budget < 1 {
				budget = 1
			}
			text = truncate(text, budget)
		}
		lines = append(lines, ts+" "+style.Render(icon)+" "+text)
	}
	return lines
}

// formatEvent maps an event to its icon, icon style and display text.
func formatEvent(e bus.Event) (string, lipgloss.Style, string) {
	primary := lipgloss.NewStyle().Foreground(ColorPrimary)
	success := lipgloss.NewStyle().Foreground(ColorSuccess)
	warning := lipgloss.NewStyle().Foreground(ColorWarning)
	failure := lipgloss.NewStyle().Foreground(ColorError)
	muted := lipgloss.NewStyle().Foreground(ColorMuted)

	switch e.Topic {
	case bus.TopicPlanCreated:
		return "●", primary, fmt.Sprintf("plan %s created", e.PlanID)
	case bus.TopicTaskAssigned:
		return "●", primary, fmt.Sprintf("task %s assigned to %s", e.TaskID, e.AgentID)
	case bus.TopicTaskCompleted:
		return "✓", success, fmt.Sprintf("task %s completed", e.TaskID)
	case bus.TopicTaskFailed:
		text := fmt.Sprintf("task %s failed (attempt %d)", e.TaskID, e.Attempt)
		if e.Reason != "" {
			text += ": " + e.Reason
		}
		return "✗", failure, text
	case bus.TopicBlockerDetected:
		return "⚠", warning, fmt.Sprintf("task %s flagged as blocker after %d failures", e.TaskID, e.Attempt)
	case bus.TopicIterationStarted:
		return "●", primary, fmt.Sprintf("iteration %s started", e.IterationID)
	case bus.TopicIterationEscalated:
		return "⚠", warning, fmt.Sprintf("iteration %s escalated", e.IterationID)
	default:
		return "·", muted, string(e.Topic)
	}
}
