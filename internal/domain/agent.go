package domain

import (
	"time"

	"github.com/mrz1836/gantry/internal/constants"
)

// Agent is a registered worker that can hold at most one assignment at a
// time. Agents advertise capability tags; assignment strategies match those
// tags against the capability a task requires.
//
// Example JSON representation:
//
//	{
//	    "id": "agent-tester",
//	    "capabilities": ["testing", "backend"],
//	    "status": "available"
//	}
type Agent struct {
	// ID is the caller-supplied unique identifier for the agent.
	ID string `json:"id"`

	// Capabilities are the tags the agent advertises, in registration order.
	Capabilities []constants.Capability `json:"capabilities"`

	// Status is the current availability of the agent.
	Status constants.AgentStatus `json:"status"`
}

// HasCapability reports whether the agent advertises the given tag.
func (a *Agent) HasCapability(c constants.Capability) bool {
	for _, have := range a.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// Available reports whether the agent can accept a new assignment.
func (a *Agent) Available() bool {
	return a.Status == constants.AgentStatusAvailable
}

// Assignment records a task handed to an agent. The coordinator keeps one
// live assignment per task; reporting the task completed or failed releases
// the agent and ends the assignment.
type Assignment struct {
	// TaskID is the task being worked.
	TaskID string `json:"task_id"`

	// AgentID is the agent working the task.
	AgentID string `json:"agent_id"`

	// CreatedAt is when the assignment was made.
	CreatedAt time.Time `json:"created_at"`

	// RetryCount is the number of failures reported for the task so far.
	// A fresh assignment starts at zero; reassignment after failure carries
	// the incremented count.
	RetryCount int `json:"retry_count"`
}
