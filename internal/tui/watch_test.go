package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gantry/internal/bus"
	"github.com/mrz1836/gantry/internal/constants"
	tracker "github.com/mrz1836/gantry/internal/progress"
)

// stubRefresh returns a RefreshFunc serving fixed data or a fixed error.
func stubRefresh(data WatchData, err error) RefreshFunc {
	return func(_ context.Context) (WatchData, error) {
		if err != nil {
			return WatchData{}, err
		}
		return data, nil
	}
}

// TestNewWatchModel tests WatchModel initialization.
func TestNewWatchModel(t *testing.T) {
	t.Parallel()

	cfg := WatchConfig{
		Interval:    2 * time.Second,
		BellEnabled: true,
		Quiet:       false,
	}

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, cfg)

	assert.NotNil(t, model)
	assert.Equal(t, 2*time.Second, model.config.Interval)
	assert.True(t, model.config.BellEnabled)
	assert.False(t, model.config.Quiet)
	assert.False(t, model.quitting)
	assert.Equal(t, 80, model.width)  // Default width
	assert.Equal(t, 24, model.height) // Default height
}

// TestDefaultWatchConfig tests default config values.
func TestDefaultWatchConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultWatchConfig()

	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.True(t, cfg.BellEnabled)
	assert.False(t, cfg.Quiet)
	assert.True(t, cfg.ShowEvents)
}

// TestWatchModel_Init tests Init returns correct commands.
func TestWatchModel_Init(t *testing.T) {
	t.Parallel()

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, DefaultWatchConfig())

	cmd := model.Init()

	// Init should return a batch of commands (load + tick)
	assert.NotNil(t, cmd)
}

// TestWatchModel_Update_KeyQuit tests 'q' key quits.
func TestWatchModel_Update_KeyQuit(t *testing.T) {
	t.Parallel()

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, DefaultWatchConfig())

	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
	updatedModel, cmd := model.Update(msg)

	watchModel := updatedModel.(*WatchModel)
	assert.True(t, watchModel.quitting)
	assert.NotNil(t, cmd) // Should return tea.Quit
}

// TestWatchModel_Update_KeyCtrlC tests Ctrl+C quits.
func TestWatchModel_Update_KeyCtrlC(t *testing.T) {
	t.Parallel()

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, DefaultWatchConfig())

	msg := tea.KeyMsg{Type: tea.KeyCtrlC}
	updatedModel, cmd := model.Update(msg)

	watchModel := updatedModel.(*WatchModel)
	assert.True(t, watchModel.quitting)
	assert.NotNil(t, cmd) // Should return tea.Quit
}

// TestWatchModel_Update_WindowResize tests terminal resize handling.
func TestWatchModel_Update_WindowResize(t *testing.T) {
	t.Parallel()

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, DefaultWatchConfig())

	msg := tea.WindowSizeMsg{Width: 120, Height: 40}
	updatedModel, cmd := model.Update(msg)

	watchModel := updatedModel.(*WatchModel)
	assert.Equal(t, 120, watchModel.width)
	assert.Equal(t, 40, watchModel.height)
	assert.Nil(t, cmd) // No command on resize
}

// TestWatchModel_Update_TickMsg tests tick message handling.
func TestWatchModel_Update_TickMsg(t *testing.T) {
	t.Parallel()

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, DefaultWatchConfig())

	msg := TickMsg(time.Now())
	_, cmd := model.Update(msg)

	// TickMsg should trigger a load command
	assert.NotNil(t, cmd)
}

// TestWatchModel_Update_RefreshMsg tests refresh data handling.
func TestWatchModel_Update_RefreshMsg(t *testing.T) {
	t.Parallel()

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, DefaultWatchConfig())

	data := WatchData{
		Snapshot: tracker.Snapshot{PlanID: "plan-1", TotalTasks: 1, InProgress: 1},
		Rows:     []TaskRow{{ID: "task-1", Name: "build api", Status: constants.TaskStatusRunning}},
	}

	msg := RefreshMsg{Data: data}
	updatedModel, cmd := model.Update(msg)

	watchModel := updatedModel.(*WatchModel)
	assert.Len(t, watchModel.data.Rows, 1)
	assert.Equal(t, "plan-1", watchModel.data.Snapshot.PlanID)
	assert.False(t, watchModel.lastUpdate.IsZero())
	assert.NotNil(t, cmd) // Should return tick command
}

// TestWatchModel_Update_RefreshMsgError tests error handling in refresh.
func TestWatchModel_Update_RefreshMsgError(t *testing.T) {
	t.Parallel()

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, DefaultWatchConfig())

	msg := RefreshMsg{Err: assert.AnError}
	updatedModel, cmd := model.Update(msg)

	watchModel := updatedModel.(*WatchModel)
	require.Error(t, watchModel.err)
	assert.NotNil(t, cmd) // Should still return tick command
}

// TestWatchModel_Load tests the load command fetches and sorts rows.
func TestWatchModel_Load(t *testing.T) {
	t.Parallel()

	data := WatchData{
		Snapshot: tracker.Snapshot{PlanID: "plan-1", TotalTasks: 3},
		Rows: []TaskRow{
			{ID: "done", Status: constants.TaskStatusCompleted},
			{ID: "broken", Status: constants.TaskStatusFailed},
			{ID: "active", Status: constants.TaskStatusRunning},
		},
	}
	model := NewWatchModel(context.Background(), stubRefresh(data, nil), nil, DefaultWatchConfig())

	cmd := model.load()
	require.NotNil(t, cmd)

	msg := cmd()
	refreshMsg, ok := msg.(RefreshMsg)
	require.True(t, ok, "should return RefreshMsg")
	require.NoError(t, refreshMsg.Err)
	require.Len(t, refreshMsg.Data.Rows, 3)
	assert.Equal(t, "broken", refreshMsg.Data.Rows[0].ID, "failures sort first")
	assert.Equal(t, "active", refreshMsg.Data.Rows[1].ID)
	assert.Equal(t, "done", refreshMsg.Data.Rows[2].ID)
	assert.Equal(t, "plan-1", refreshMsg.Data.Snapshot.PlanID)
}

// TestWatchModel_LoadError tests the load command wraps refresh errors.
func TestWatchModel_LoadError(t *testing.T) {
	t.Parallel()

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, assert.AnError), nil, DefaultWatchConfig())

	cmd := model.load()
	require.NotNil(t, cmd)

	msg := cmd()
	refreshMsg, ok := msg.(RefreshMsg)
	require.True(t, ok, "should return RefreshMsg")
	require.Error(t, refreshMsg.Err)
	assert.Contains(t, refreshMsg.Err.Error(), "failed to load plan state")
}

// TestSortTaskRows tests that failures sort first, then running tasks, and
// order within each band is preserved.
func TestSortTaskRows(t *testing.T) {
	t.Parallel()

	rows := []TaskRow{
		{ID: "done-1", Status: constants.TaskStatusCompleted},
		{ID: "active-1", Status: constants.TaskStatusRunning},
		{ID: "broken-1", Status: constants.TaskStatusFailed},
		{ID: "pending-1", Status: constants.TaskStatusPending},
		{ID: "active-2", Status: constants.TaskStatusRunning},
	}

	sortTaskRows(rows)

	assert.Equal(t, "broken-1", rows[0].ID, "failed should be first")
	assert.Equal(t, "active-1", rows[1].ID, "running should follow")
	assert.Equal(t, "active-2", rows[2].ID, "running order preserved")
	assert.Equal(t, "done-1", rows[3].ID, "remaining order preserved")
	assert.Equal(t, "pending-1", rows[4].ID)
}

// TestStatusPriority tests the statusPriority helper.
func TestStatusPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   constants.TaskStatus
		expected int
	}{
		{constants.TaskStatusFailed, 2},
		{constants.TaskStatusRunning, 1},
		{constants.TaskStatusPending, 0},
		{constants.TaskStatusCompleted, 0},
		{constants.TaskStatusSkipped, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, statusPriority(tt.status))
		})
	}
}

// TestWatchModel_View_Empty tests view rendering with no tasks.
func TestWatchModel_View_Empty(t *testing.T) {
	t.Parallel()

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, DefaultWatchConfig())

	view := model.View()

	assert.Contains(t, view, "gantry watch")
	assert.Contains(t, view, "No tasks")
	assert.Contains(t, view, "gantry plan")
	assert.Contains(t, view, "Press 'q' to quit")
}

// TestWatchModel_View_Quitting tests view when quitting.
func TestWatchModel_View_Quitting(t *testing.T) {
	t.Parallel()

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, DefaultWatchConfig())
	model.quitting = true

	view := model.View()

	assert.Empty(t, view)
}

// TestWatchModel_View_WithData tests view rendering with plan data.
func TestWatchModel_View_WithData(t *testing.T) {
	t.Parallel()

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, DefaultWatchConfig())
	model.data = WatchData{
		Snapshot: tracker.Snapshot{
			PlanID:     "plan-1",
			Status:     constants.TrackerStatusInProgress,
			TotalTasks: 2,
			Completed:  1,
			InProgress: 1,
			Percentage: 50,
		},
		Rows: []TaskRow{
			{ID: "task-1", Name: "init repo", Status: constants.TaskStatusCompleted, Phase: constants.PlanPhaseSetup, Group: 1},
			{ID: "task-2", Name: "build api", Status: constants.TaskStatusRunning, Phase: constants.PlanPhaseImplementation, Group: 2},
		},
	}
	model.lastUpdate = time.Now()
	model.width = 120

	view := model.View()

	assert.Contains(t, view, "Watching plan-1")
	assert.Contains(t, view, "1/2 tasks")
	assert.Contains(t, view, "task-1")
	assert.Contains(t, view, "task-2")
	assert.Contains(t, view, "plan status:")
	assert.Contains(t, view, "Last updated:")
	assert.Contains(t, view, "Press 'q' to quit")
}

// TestWatchModel_View_Quiet tests view in quiet mode.
func TestWatchModel_View_Quiet(t *testing.T) {
	t.Parallel()

	cfg := WatchConfig{
		Interval:    2 * time.Second,
		BellEnabled: false,
		Quiet:       true,
	}
	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, cfg)
	model.data = WatchData{
		Snapshot: tracker.Snapshot{PlanID: "plan-1", TotalTasks: 1, InProgress: 1},
		Rows:     []TaskRow{{ID: "task-1", Name: "build api", Status: constants.TaskStatusRunning}},
	}
	model.lastUpdate = time.Now()

	view := model.View()

	// Quiet mode should NOT show title or footer
	assert.NotContains(t, view, "Watching")
	assert.NotContains(t, view, "plan status:")
	// But should still show quit hint and timestamp
	assert.Contains(t, view, "Press 'q' to quit")
	assert.Contains(t, view, "Last updated:")
}

// TestWatchModel_View_WithError tests view rendering with error.
func TestWatchModel_View_WithError(t *testing.T) {
	t.Parallel()

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, DefaultWatchConfig())
	model.err = assert.AnError

	view := model.View()

	assert.Contains(t, view, "Error:")
}

// TestWatchModel_View_WithEvents tests the recent-activity feed renders.
func TestWatchModel_View_WithEvents(t *testing.T) {
	t.Parallel()

	feed := NewEventFeed(DefaultFeedSize)
	feed.Record(bus.Event{Topic: bus.TopicTaskCompleted, PlanID: "plan-1", TaskID: "task-1", Timestamp: time.Now()})

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), feed, DefaultWatchConfig())
	model.data = WatchData{
		Snapshot: tracker.Snapshot{PlanID: "plan-1", TotalTasks: 1, Completed: 1, Percentage: 100},
		Rows:     []TaskRow{{ID: "task-1", Name: "init repo", Status: constants.TaskStatusCompleted}},
	}

	view := model.View()

	assert.Contains(t, view, "Recent activity")
	assert.Contains(t, view, "task-1 completed")
}

// TestWatchModel_View_EventsDisabled tests ShowEvents off hides the feed.
func TestWatchModel_View_EventsDisabled(t *testing.T) {
	t.Parallel()

	feed := NewEventFeed(DefaultFeedSize)
	feed.Record(bus.Event{Topic: bus.TopicTaskCompleted, TaskID: "task-1", Timestamp: time.Now()})

	cfg := DefaultWatchConfig()
	cfg.ShowEvents = false
	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), feed, cfg)

	view := model.View()

	assert.NotContains(t, view, "Recent activity")
}

// TestWatchModel_BellOnNewFailure tests bell when the failure count grows.
func TestWatchModel_BellOnNewFailure(t *testing.T) {
	t.Parallel()

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, DefaultWatchConfig())

	// No failures yet, no bell.
	cmd := model.checkForBell()
	assert.Nil(t, cmd, "should not bell without failures")

	// First failure appears.
	model.data.Snapshot.Failed = 1
	cmd = model.checkForBell()
	assert.NotNil(t, cmd, "should bell on new failure")

	// Same count again, no repeat bell.
	cmd = model.checkForBell()
	assert.Nil(t, cmd, "same failure count should not bell again")

	// Another failure appears.
	model.data.Snapshot.Failed = 2
	cmd = model.checkForBell()
	assert.NotNil(t, cmd, "should bell when the count grows again")
}

// TestWatchModel_BellDisabled tests bell disabled behavior.
func TestWatchModel_BellDisabled(t *testing.T) {
	t.Parallel()

	cfg := WatchConfig{
		Interval:    2 * time.Second,
		BellEnabled: false,
	}
	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, cfg)

	model.data.Snapshot.Failed = 1
	cmd := model.checkForBell()

	assert.Nil(t, cmd, "bell disabled should not emit")
}

// TestWatchModel_BellQuietModeSuppresses tests quiet mode suppresses bell.
func TestWatchModel_BellQuietModeSuppresses(t *testing.T) {
	t.Parallel()

	cfg := WatchConfig{
		Interval:    2 * time.Second,
		BellEnabled: true,
		Quiet:       true,
	}
	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, cfg)

	model.data.Snapshot.Failed = 1
	cmd := model.checkForBell()

	assert.Nil(t, cmd, "quiet mode should suppress bell even when bell is enabled")
}

// TestEmitBell tests the emitBell command.
func TestEmitBell(t *testing.T) {
	t.Parallel()

	cmd := emitBell()
	require.NotNil(t, cmd)

	msg := cmd()
	_, ok := msg.(BellMsg)
	assert.True(t, ok, "emitBell should return BellMsg")
}

// TestWatchModel_Accessors tests accessor methods.
func TestWatchModel_Accessors(t *testing.T) {
	t.Parallel()

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, DefaultWatchConfig())
	model.data = WatchData{
		Rows: []TaskRow{{ID: "task-1", Status: constants.TaskStatusRunning}},
	}
	model.lastUpdate = time.Now()
	model.err = assert.AnError

	assert.Len(t, model.Data().Rows, 1)
	assert.False(t, model.LastUpdate().IsZero())
	assert.False(t, model.IsQuitting())
	assert.Error(t, model.Error())
}

// TestWatchModel_ViewContainsTimestamp tests that view shows last update timestamp.
func TestWatchModel_ViewContainsTimestamp(t *testing.T) {
	t.Parallel()

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, DefaultWatchConfig())
	model.data = WatchData{
		Rows: []TaskRow{{ID: "task-1", Status: constants.TaskStatusRunning}},
	}

	testTime := time.Date(2026, 7, 31, 14, 30, 45, 0, time.UTC)
	model.lastUpdate = testTime

	view := model.View()

	assert.Contains(t, view, "Last updated: 14:30:45")
}

// TestWatchModel_NoTimestampBeforeFirstRefresh tests no timestamp before first refresh.
func TestWatchModel_NoTimestampBeforeFirstRefresh(t *testing.T) {
	t.Parallel()

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, DefaultWatchConfig())

	view := model.View()

	assert.NotContains(t, view, "Last updated:")
}

// TestWatchModel_MultipleRefreshes tests multiple refresh cycles.
func TestWatchModel_MultipleRefreshes(t *testing.T) {
	t.Parallel()

	model := NewWatchModel(context.Background(), stubRefresh(WatchData{}, nil), nil, DefaultWatchConfig())

	msg1 := RefreshMsg{Data: WatchData{Rows: []TaskRow{{ID: "task-1", Status: constants.TaskStatusRunning}}}}
	updatedModel1, _ := model.Update(msg1)
	watchModel1 := updatedModel1.(*WatchModel)

	firstUpdate := watchModel1.lastUpdate

	time.Sleep(10 * time.Millisecond)
	msg2 := RefreshMsg{Data: WatchData{Rows: []TaskRow{{ID: "task-1", Status: constants.TaskStatusCompleted}}}}
	updatedModel2, _ := watchModel1.Update(msg2)
	watchModel2 := updatedModel2.(*WatchModel)

	secondUpdate := watchModel2.lastUpdate

	assert.True(t, secondUpdate.After(firstUpdate), "second refresh should have later timestamp")
	assert.Equal(t, constants.TaskStatusCompleted, watchModel2.data.Rows[0].Status)
}
