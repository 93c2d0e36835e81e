package tui

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gantry/internal/bus"
)

func TestNewEventFeed(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, NewEventFeed(3).Len())
	// Non-positive sizes fall back to the default.
	feed := NewEventFeed(0)
	for i := range DefaultFeedSize + 2 {
		feed.Record(bus.Event{Topic: bus.TopicTaskCompleted, TaskID: fmt.Sprintf("task-%d", i)})
	}
	assert.Equal(t, DefaultFeedSize, feed.Len())
}

// TestEventFeed_Record_TrimsOldest tests the feed keeps only the newest
// events once full.
func TestEventFeed_Record_TrimsOldest(t *testing.T) {
	t.Parallel()

	feed := NewEventFeed(3)
	for i := 1; i <= 5; i++ {
		feed.Record(bus.Event{Topic: bus.TopicTaskCompleted, TaskID: fmt.Sprintf("task-%d", i)})
	}

	events := feed.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "task-3", events[0].TaskID, "oldest retained event")
	assert.Equal(t, "task-5", events[2].TaskID, "newest event last")
}

func TestEventFeed_Events_ReturnsCopy(t *testing.T) {
	t.Parallel()

	feed := NewEventFeed(3)
	feed.Record(bus.Event{Topic: bus.TopicTaskCompleted, TaskID: "task-1"})

	events := feed.Events()
	events[0].TaskID = "mutated"

	assert.Equal(t, "task-1", feed.Events()[0].TaskID)
}

// TestEventFeed_Lines tests timestamped line rendering.
func TestEventFeed_Lines(t *testing.T) {
	t.Parallel()

	feed := NewEventFeed(3)
	feed.Record(bus.Event{
		Topic:     bus.TopicTaskCompleted,
		TaskID:    "task-1",
		Timestamp: time.Date(2026, 7, 31, 14, 30, 45, 0, time.UTC),
	})

	lines := feed.Lines(80)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "14:30:45")
	assert.Contains(t, lines[0], "task task-1 completed")
}

// TestEventFeed_Lines_TruncatesNarrow tests event text truncation on
// narrow terminals.
func TestEventFeed_Lines_TruncatesNarrow(t *testing.T) {
	t.Parallel()

	feed := NewEventFeed(3)
	feed.Record(bus.Event{
		Topic:     bus.TopicTaskAssigned,
		TaskID:    "task-with-a-very-long-identifier",
		AgentID:   "agent-with-an-equally-long-identifier",
		Timestamp: time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC),
	})

	lines := feed.Lines(40)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "…", "long event text should be truncated")
	assert.Contains(t, lines[0], "09:00:00")
}

// TestFormatEvent covers the icon and text for every run topic.
func TestFormatEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		event    bus.Event
		wantIcon string
		wantText string
	}{
		{
			name:     "plan created",
			event:    bus.Event{Topic: bus.TopicPlanCreated, PlanID: "plan-1"},
			wantIcon: "●",
			wantText: "plan plan-1 created",
		},
		{
			name:     "task assigned",
			event:    bus.Event{Topic: bus.TopicTaskAssigned, TaskID: "task-1", AgentID: "agent-1"},
			wantIcon: "●",
			wantText: "task task-1 assigned to agent-1",
		},
		{
			name:     "task completed",
			event:    bus.Event{Topic: bus.TopicTaskCompleted, TaskID: "task-1"},
			wantIcon: "✓",
			wantText: "task task-1 completed",
		},
		{
			name:     "task failed with reason",
			event:    bus.Event{Topic: bus.TopicTaskFailed, TaskID: "task-1", Attempt: 2, Reason: "exit status 1"},
			wantIcon: "✗",
			wantText: "task task-1 failed (attempt 2): exit status 1",
		},
		{
			name:     "task failed without reason",
			event:    bus.Event{Topic: bus.TopicTaskFailed, TaskID: "task-1", Attempt: 1},
			wantIcon: "✗",
			wantText: "task task-1 failed (attempt 1)",
		},
		{
			name:     "blocker detected",
			event:    bus.Event{Topic: bus.TopicBlockerDetected, TaskID: "task-1", Attempt: 3},
			wantIcon: "⚠",
			wantText: "task task-1 flagged as blocker after 3 failures",
		},
		{
			name:     "iteration started",
			event:    bus.Event{Topic: bus.TopicIterationStarted, IterationID: "iter-1"},
			wantIcon: "●",
			wantText: "iteration iter-1 started",
		},
		{
			name:     "iteration escalated",
			event:    bus.Event{Topic: bus.TopicIterationEscalated, IterationID: "iter-1"},
			wantIcon: "⚠",
			wantText: "iteration iter-1 escalated",
		},
		{
			name:     "unknown topic falls back to topic name",
			event:    bus.Event{Topic: bus.Topic("custom.topic")},
			wantIcon: "·",
			wantText: "custom.topic",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			icon, _, text := formatEvent(tc.event)
			assert.Equal(t, tc.wantIcon, icon)
			assert.Equal(t, tc.wantText, text)
		})
	}
}

// TestEventFeed_ConcurrentRecord tests Record is safe under concurrent
// publishers, matching how the bus delivers events.
func TestEventFeed_ConcurrentRecord(t *testing.T) {
	t.Parallel()

	feed := NewEventFeed(DefaultFeedSize)

	var wg sync.WaitGroup
	for g := range 10 {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := range 10 {
				feed.Record(bus.Event{
					Topic:  bus.TopicTaskCompleted,
					TaskID: fmt.Sprintf("task-%d-%d", g, i),
				})
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, DefaultFeedSize, feed.Len())
	for _, line := range feed.Lines(120) {
		assert.True(t, strings.Contains(line, "completed"))
	}
}
