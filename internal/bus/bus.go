// Package bus provides typed in-process notifications for gantry.
//
// Components publish events after the triggering mutation has completed, and
// handlers run synchronously on the publishing goroutine. Handlers must not
// call back into the component that published the event.
//
// Import rules:
//   - CAN import: internal/constants, internal/domain, std lib
//   - MUST NOT import: internal/planner, internal/coordinator, internal/iteration, internal/cli
package bus

import (
	"sync"
	"time"
)

// Topic identifies the kind of event being published.
type Topic string

const (
	// TopicPlanCreated fires after a plan is successfully created.
	TopicPlanCreated Topic = "plan:created"

	// TopicTaskAssigned fires after a task is handed to an agent.
	TopicTaskAssigned Topic = "task:assigned"

	// TopicTaskCompleted fires after a task completion is recorded.
	TopicTaskCompleted Topic = "task:completed"

	// TopicTaskFailed fires after a task failure is recorded.
	TopicTaskFailed Topic = "task:failed"

	// TopicBlockerDetected fires when repeated failures mark a blocker.
	TopicBlockerDetected Topic = "blocker:detected"

	// TopicIterationStarted fires after an iteration starts running.
	TopicIterationStarted Topic = "iteration:started"

	// TopicIterationEscalated fires after an iteration escalates.
	TopicIterationEscalated Topic = "iteration:escalated"
)

// Event is a single notification. Identifier fields are set only when they
// apply to the topic; the publisher stamps Timestamp from its own clock.
type Event struct {
	// Topic is the kind of event.
	Topic Topic `json:"topic"`

	// PlanID is the plan the event concerns, when applicable.
	PlanID string `json:"plan_id,omitempty"`

	// TaskID is the task the event concerns, when applicable.
	TaskID string `json:"task_id,omitempty"`

	// AgentID is the agent the event concerns, when applicable.
	AgentID string `json:"agent_id,omitempty"`

	// IterationID is the iteration the event concerns, when applicable.
	IterationID string `json:"iteration_id,omitempty"`

	// Attempt carries a retry count or failure streak, when applicable.
	Attempt int `json:"attempt,omitempty"`

	// Reason is an optional human-readable explanation.
	Reason string `json:"reason,omitempty"`

	// Timestamp is when the event was published.
	Timestamp time.Time `json:"timestamp"`
}

// Handler consumes one event. Handlers run synchronously; a slow handler
// slows the publisher.
type Handler func(Event)

// Notifier is the publishing side of the bus. Components hold a Notifier so
// tests can substitute a Recorder.
type Notifier interface {
	Publish(Event)
}

// Bus dispatches events to subscribed handlers. Subscription is expected at
// setup time; publishing happens from the single goroutine mutating the core,
// so dispatch itself needs no ordering guarantees beyond subscribe order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]Handler
	all      []Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[Topic][]Handler),
	}
}

// Subscribe registers a handler for one topic. Handlers for a topic run in
// subscription order.
func (b *Bus) Subscribe(topic Topic, h Handler) {
	if b == nil || h == nil {
		return
	}
	b.mu.Lock()
	b.handlers[topic] = append(b.handlers[topic], h)
	b.mu.Unlock()
}

// SubscribeAll registers a handler for every topic. All-topic handlers run
// after topic-specific ones.
func (b *Bus) SubscribeAll(h Handler) {
	if b == nil || h == nil {
		return
	}
	b.mu.Lock()
	b.all = append(b.all, h)
	b.mu.Unlock()
}

// Publish dispatches the event synchronously to matching handlers. A nil bus
// drops the event, so components can treat the notifier as optional.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}

	b.mu.RLock()
	topical := b.handlers[e.Topic]
	all := b.all
	b.mu.RUnlock()

	for _, h := range topical {
		h(e)
	}
	for _, h := range all {
		h(e)
	}
}

var _ Notifier = (*Bus)(nil)
