package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/gantry/internal/bus"
	"github.com/mrz1836/gantry/internal/clock"
	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/domain"
	gerrors "github.com/mrz1836/gantry/internal/errors"
	"github.com/mrz1836/gantry/internal/tui"
)

// testWatchOpts creates watchOptions with a valid interval.
func testWatchOpts(planID string) watchOptions {
	return watchOptions{
		output:   "text",
		planID:   planID,
		interval: 2 * time.Second,
	}
}

// testWatchDeps creates watchDeps with a stub program runner that records
// the model instead of entering the TUI loop.
func testWatchDeps(st *mockPlanStore, ran *bool) watchDeps {
	return watchDeps{
		store: st,
		clock: clock.NewFake(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)),
		runProgram: func(model *tui.WatchModel) error {
			if ran != nil {
				*ran = true
			}
			if model == nil {
				return gerrors.ErrEmptyValue
			}
			return nil
		},
	}
}

// TestWatchCommand_JSONUnsupported tests that watch refuses JSON output.
func TestWatchCommand_JSONUnsupported(t *testing.T) {
	t.Parallel()

	opts := testWatchOpts("")
	opts.output = OutputJSON

	var buf bytes.Buffer
	err := runWatchWithDeps(context.Background(), &buf, opts, testWatchDeps(&mockPlanStore{}, nil))

	require.Error(t, err)
	assert.ErrorIs(t, err, gerrors.ErrWatchModeJSONUnsupported)
	assert.Contains(t, err.Error(), "gantry status --output json")
}

// TestWatchCommand_IntervalTooShort tests minimum interval validation.
func TestWatchCommand_IntervalTooShort(t *testing.T) {
	t.Parallel()

	opts := testWatchOpts("")
	opts.interval = 100 * time.Millisecond

	var buf bytes.Buffer
	err := runWatchWithDeps(context.Background(), &buf, opts, testWatchDeps(&mockPlanStore{}, nil))

	require.Error(t, err)
	assert.ErrorIs(t, err, gerrors.ErrWatchIntervalTooShort)
}

// TestWatchCommand_NoPlans tests the empty-store message.
func TestWatchCommand_NoPlans(t *testing.T) {
	t.Parallel()

	var ran bool
	var buf bytes.Buffer
	err := runWatchWithDeps(context.Background(), &buf, testWatchOpts(""), testWatchDeps(&mockPlanStore{}, &ran))

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No plans. Run 'gantry plan' to create one.")
	assert.False(t, ran, "the dashboard should not start without a plan")
}

// TestWatchCommand_PlanNotFound tests the pre-flight plan check.
func TestWatchCommand_PlanNotFound(t *testing.T) {
	t.Parallel()

	var ran bool
	var buf bytes.Buffer
	err := runWatchWithDeps(context.Background(), &buf, testWatchOpts("plan-missing"), testWatchDeps(&mockPlanStore{}, &ran))

	require.Error(t, err)
	assert.ErrorIs(t, err, gerrors.ErrPlanNotFound)
	assert.False(t, ran, "the dashboard should not start for a missing plan")
}

// TestWatchCommand_DefaultsToNewestPlan tests plan selection without an
// argument.
func TestWatchCommand_DefaultsToNewestPlan(t *testing.T) {
	t.Parallel()

	older := buildPlan(t, "plan-older", domain.Task{ID: "a", Name: "Task A"})
	older.CreatedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	newer := buildPlan(t, "plan-newer", domain.Task{ID: "b", Name: "Task B"})
	newer.CreatedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mockStore := &mockPlanStore{plans: map[string]*domain.Plan{
		"plan-older": older,
		"plan-newer": newer,
	}}

	var ran bool
	var buf bytes.Buffer
	err := runWatchWithDeps(context.Background(), &buf, testWatchOpts(""), testWatchDeps(mockStore, &ran))

	require.NoError(t, err)
	assert.True(t, ran, "the dashboard should start")
	loaded := mockStore.loadedPlanIDs()
	require.NotEmpty(t, loaded)
	assert.Equal(t, "plan-newer", loaded[0], "pre-flight should load the newest plan")
}

// TestWatchCommand_RunsProgram tests that a stored plan reaches the runner.
func TestWatchCommand_RunsProgram(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, "plan-watch", domain.Task{ID: "a", Name: "Task A"})
	mockStore := &mockPlanStore{plans: map[string]*domain.Plan{"plan-watch": plan}}

	var ran bool
	var buf bytes.Buffer
	err := runWatchWithDeps(context.Background(), &buf, testWatchOpts("plan-watch"), testWatchDeps(mockStore, &ran))

	require.NoError(t, err)
	assert.True(t, ran)
}

// TestWatchCommand_ContextCancellation tests context cancellation handling.
func TestWatchCommand_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	var buf bytes.Buffer
	err := runWatchWithDeps(ctx, &buf, testWatchOpts(""), testWatchDeps(&mockPlanStore{}, nil))
	assert.ErrorIs(t, err, context.Canceled)
}

// TestNewWatchRefresh_RecordsTransitions tests feed synthesis from status
// changes between frames.
func TestNewWatchRefresh_RecordsTransitions(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, "plan-live",
		domain.Task{ID: "a", Name: "Task A"},
		domain.Task{ID: "b", Name: "Task B"},
	)
	mockStore := &mockPlanStore{plans: map[string]*domain.Plan{"plan-live": plan}}
	deps := testWatchDeps(mockStore, nil)

	feed := tui.NewEventFeed(tui.DefaultFeedSize)
	refresh := newWatchRefresh(deps, "plan-live", feed)

	// The first frame is the baseline and records nothing.
	data, err := refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, data.Snapshot.TotalTasks)
	assert.Zero(t, feed.Len())

	plan.Tasks[0].Status = constants.TaskStatusRunning
	plan.Tasks[0].Agent = "agent-1"

	data, err = refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, data.Snapshot.InProgress)
	events := feed.Events()
	require.Len(t, events, 1)
	assert.Equal(t, bus.TopicTaskAssigned, events[0].Topic)
	assert.Equal(t, "a", events[0].TaskID)
	assert.Equal(t, "agent-1", events[0].AgentID)

	plan.Tasks[0].Status = constants.TaskStatusCompleted

	_, err = refresh(context.Background())
	require.NoError(t, err)
	events = feed.Events()
	require.Len(t, events, 2)
	assert.Equal(t, bus.TopicTaskCompleted, events[1].Topic)

	// An unchanged frame records nothing new.
	_, err = refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, feed.Len())
}

// TestNewWatchRefresh_FailureTopic tests the failed-task transition topic.
func TestNewWatchRefresh_FailureTopic(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, "plan-fail", domain.Task{ID: "a", Name: "Task A"})
	mockStore := &mockPlanStore{plans: map[string]*domain.Plan{"plan-fail": plan}}
	deps := testWatchDeps(mockStore, nil)

	feed := tui.NewEventFeed(tui.DefaultFeedSize)
	refresh := newWatchRefresh(deps, "plan-fail", feed)

	_, err := refresh(context.Background())
	require.NoError(t, err)

	plan.Tasks[0].Status = constants.TaskStatusFailed

	_, err = refresh(context.Background())
	require.NoError(t, err)
	events := feed.Events()
	require.Len(t, events, 1)
	assert.Equal(t, bus.TopicTaskFailed, events[0].Topic)
}

// TestNewWatchRefresh_NilFeed tests refreshing without an event feed.
func TestNewWatchRefresh_NilFeed(t *testing.T) {
	t.Parallel()

	plan := buildPlan(t, "plan-nofeed", domain.Task{ID: "a", Name: "Task A"})
	mockStore := &mockPlanStore{plans: map[string]*domain.Plan{"plan-nofeed": plan}}
	deps := testWatchDeps(mockStore, nil)

	refresh := newWatchRefresh(deps, "plan-nofeed", nil)

	_, err := refresh(context.Background())
	require.NoError(t, err)

	plan.Tasks[0].Status = constants.TaskStatusCompleted

	data, err := refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, data.Snapshot.Completed)
}

// TestNewWatchRefresh_LoadError tests store failures during refresh.
func TestNewWatchRefresh_LoadError(t *testing.T) {
	t.Parallel()

	mockStore := &mockPlanStore{loadPlanErr: gerrors.ErrPlanCorrupted}
	deps := testWatchDeps(mockStore, nil)

	refresh := newWatchRefresh(deps, "plan-x", nil)

	_, err := refresh(context.Background())
	assert.ErrorIs(t, err, gerrors.ErrPlanCorrupted)
}

// TestTopicForStatus tests the status-to-topic mapping.
func TestTopicForStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    constants.TaskStatus
		wantTopic bus.Topic
		wantOK    bool
	}{
		{constants.TaskStatusRunning, bus.TopicTaskAssigned, true},
		{constants.TaskStatusCompleted, bus.TopicTaskCompleted, true},
		{constants.TaskStatusFailed, bus.TopicTaskFailed, true},
		{constants.TaskStatusPending, "", false},
		{constants.TaskStatusSkipped, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()
			topic, ok := topicForStatus(tt.status)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantTopic, topic)
		})
	}
}

// TestAddWatchCommand tests that the watch command is properly added to root.
func TestAddWatchCommand(t *testing.T) {
	t.Parallel()

	root := &cobra.Command{Use: "gantry"}
	AddWatchCommand(root)

	watchCmd, _, err := root.Find([]string{"watch"})
	require.NoError(t, err)
	require.NotNil(t, watchCmd)
	assert.Equal(t, "watch", watchCmd.Name())

	intervalFlag := watchCmd.Flags().Lookup("interval")
	require.NotNil(t, intervalFlag, "--interval flag should exist")
	assert.Equal(t, "2s", intervalFlag.DefValue, "default interval should follow the watch defaults")

	require.NotNil(t, watchCmd.Flags().Lookup("no-bell"), "--no-bell flag should exist")
	require.NotNil(t, watchCmd.Flags().Lookup("no-events"), "--no-events flag should exist")
}
