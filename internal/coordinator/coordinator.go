// Package coordinator manages the agent registry and task assignments.
//
// This file implements the AgentCoordinator: an explicitly constructed
// registry of agents, pluggable assignment strategies, and the
// assignment/release lifecycle. There is no internal queueing: when no
// agent fits, assignment fails immediately and the caller retries later.
//
// Import rules:
//   - CAN import: internal/bus, internal/clock, internal/constants, internal/domain, internal/errors, std lib
//   - MUST NOT import: internal/planner, internal/iteration, internal/cli
package coordinator

import (
	"github.com/rs/zerolog"

	"github.com/mrz1836/gantry/internal/bus"
	"github.com/mrz1836/gantry/internal/clock"
	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/domain"
	gerrors "github.com/mrz1836/gantry/internal/errors"
)

// Config holds configuration for the coordinator.
type Config struct {
	// Strategy names the assignment strategy to use.
	// Defaults to capability matching.
	Strategy constants.StrategyName
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Strategy: constants.StrategyCapabilityMatch,
	}
}

// Coordinator owns the agent registry and live assignments. A fresh
// instance is a full reset: no assignments, no retry counters.
type Coordinator struct {
	agents      []*domain.Agent
	byID        map[string]*domain.Agent
	assignments map[string]*domain.Assignment
	retryCounts map[string]int
	strategy    Strategy
	clock       clock.Clock
	notifier    bus.Notifier
	logger      zerolog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithStrategy replaces the assignment strategy resolved from config.
// This is how callers plug in custom strategies.
func WithStrategy(s Strategy) Option {
	return func(c *Coordinator) {
		c.strategy = s
	}
}

// WithClock sets the time source used for assignment timestamps.
func WithClock(cl clock.Clock) Option {
	return func(c *Coordinator) {
		c.clock = cl
	}
}

// WithNotifier sets the notifier that receives assignment lifecycle events.
func WithNotifier(n bus.Notifier) Option {
	return func(c *Coordinator) {
		c.notifier = n
	}
}

// New creates a coordinator over the given agents. Agents register in slice
// order; that order breaks strategy ties. Registration normalizes missing
// statuses to AVAILABLE. Duplicate agent IDs fail with ErrDuplicateAgent,
// and an unknown strategy name fails with ErrUnknownStrategy.
func New(cfg Config, agents []domain.Agent, logger zerolog.Logger, opts ...Option) (*Coordinator, error) {
	if cfg.Strategy == "" {
		cfg.Strategy = constants.StrategyCapabilityMatch
	}

	c := &Coordinator{
		byID:        make(map[string]*domain.Agent, len(agents)),
		assignments: make(map[string]*domain.Assignment),
		retryCounts: make(map[string]int),
		clock:       clock.RealClock{},
		logger:      logger,
	}

	for i := range agents {
		agent := agents[i]
		if _, exists := c.byID[agent.ID]; exists {
			return nil, gerrors.Wrapf(gerrors.ErrDuplicateAgent, "agent id %s", agent.ID)
		}
		if agent.Status == "" {
			agent.Status = constants.AgentStatusAvailable
		}
		c.agents = append(c.agents, &agent)
		c.byID[agent.ID] = &agent
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.strategy == nil {
		strategy, err := strategyForName(cfg.Strategy)
		if err != nil {
			return nil, err
		}
		c.strategy = strategy
	}

	return c, nil
}

// AssignTask hands the task to the best available agent according to the
// strategy. On success the agent is marked BUSY, an Assignment is recorded
// (carrying the task's accumulated retry count), and task:assigned is
// published. When no available agent fits, it fails immediately with
// ErrNoAvailableAgent; there is no internal queue, so the caller decides
// when to try again.
func (c *Coordinator) AssignTask(task *domain.Task) (*domain.Assignment, error) {
	candidates := c.AvailableAgents()

	agent := c.strategy.Select(task, candidates)
	if agent == nil {
		return nil, gerrors.Wrapf(gerrors.ErrNoAvailableAgent, "task %s", task.ID)
	}

	agent.Status = constants.AgentStatusBusy
	task.Agent = agent.ID

	assignment := &domain.Assignment{
		TaskID:     task.ID,
		AgentID:    agent.ID,
		CreatedAt:  c.clock.Now().UTC(),
		RetryCount: c.retryCounts[task.ID],
	}
	c.assignments[task.ID] = assignment

	c.logger.Info().
		Str("task_id", task.ID).
		Str("agent_id", agent.ID).
		Str("strategy", string(c.strategy.Name())).
		Int("retry_count", assignment.RetryCount).
		Msg("task assigned")

	if c.notifier != nil {
		c.notifier.Publish(bus.Event{
			Topic:     bus.TopicTaskAssigned,
			TaskID:    task.ID,
			AgentID:   agent.ID,
			Attempt:   assignment.RetryCount,
			Timestamp: assignment.CreatedAt,
		})
	}

	return assignment, nil
}

// ReportTaskCompleted records a successful outcome for an assigned task:
// the agent returns to AVAILABLE, the assignment ends, and task:completed is
// published. Reporting an unassigned task fails with ErrAssignmentNotFound.
func (c *Coordinator) ReportTaskCompleted(taskID string) error {
	assignment, err := c.release(taskID)
	if err != nil {
		return err
	}

	c.logger.Info().
		Str("task_id", taskID).
		Str("agent_id", assignment.AgentID).
		Msg("task completed")

	if c.notifier != nil {
		c.notifier.Publish(bus.Event{
			Topic:     bus.TopicTaskCompleted,
			TaskID:    taskID,
			AgentID:   assignment.AgentID,
			Timestamp: c.clock.Now().UTC(),
		})
	}

	return nil
}

// ReportTaskFailed records a failed outcome: the agent returns to AVAILABLE,
// the assignment ends, the task's retry counter increments (surviving the
// assignment, so a later reassignment carries it), and task:failed is
// published with the failure reason. Reporting an unassigned task fails with
// ErrAssignmentNotFound.
func (c *Coordinator) ReportTaskFailed(taskID, reason string) error {
	assignment, err := c.release(taskID)
	if err != nil {
		return err
	}

	c.retryCounts[taskID]++

	c.logger.Warn().
		Str("task_id", taskID).
		Str("agent_id", assignment.AgentID).
		Str("reason", reason).
		Int("retry_count", c.retryCounts[taskID]).
		Msg("task failed")

	if c.notifier != nil {
		c.notifier.Publish(bus.Event{
			Topic:     bus.TopicTaskFailed,
			TaskID:    taskID,
			AgentID:   assignment.AgentID,
			Attempt:   c.retryCounts[taskID],
			Reason:    reason,
			Timestamp: c.clock.Now().UTC(),
		})
	}

	return nil
}

// release ends the live assignment for the task and frees its agent.
func (c *Coordinator) release(taskID string) (*domain.Assignment, error) {
	assignment, ok := c.assignments[taskID]
	if !ok {
		return nil, gerrors.Wrapf(gerrors.ErrAssignmentNotFound, "task %s", taskID)
	}
	delete(c.assignments, taskID)

	if agent, ok := c.byID[assignment.AgentID]; ok {
		agent.Status = constants.AgentStatusAvailable
	}

	return assignment, nil
}

// RetryCount returns how many failures have been reported for the task.
// The counter survives assignment boundaries.
func (c *Coordinator) RetryCount(taskID string) int {
	return c.retryCounts[taskID]
}

// Assignment returns the live assignment for the task, or nil when the task
// is not currently assigned.
func (c *Coordinator) Assignment(taskID string) *domain.Assignment {
	return c.assignments[taskID]
}

// CanServe reports whether the registry holds any agent, busy or not, that
// the configured strategy could ever pick for the task. A false result is
// permanent for the current registry; waiting for a release will not help.
func (c *Coordinator) CanServe(task *domain.Task) bool {
	return c.strategy.CanServe(task, c.agents)
}

// AvailableAgents returns the agents currently able to accept work, in
// registration order.
func (c *Coordinator) AvailableAgents() []*domain.Agent {
	var available []*domain.Agent
	for _, agent := range c.agents {
		if agent.Available() {
			available = append(available, agent)
		}
	}
	return available
}

// Agents returns the full registry in registration order, for diagnostics
// and status views.
func (c *Coordinator) Agents() []*domain.Agent {
	out := make([]*domain.Agent, len(c.agents))
	copy(out, c.agents)
	return out
}
