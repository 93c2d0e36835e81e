package constants

// TaskStatus represents the state of a task within a plan.
// Status values use snake_case for JSON serialization compatibility.
type TaskStatus string

// Task status constants define the valid states a planned task can be in.
//
//	Pending → Running, Skipped
//	Running → Completed, Failed
//	Failed  → Running (re-dispatch), Skipped
const (
	// TaskStatusPending indicates a task is part of the plan but not yet dispatched.
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusRunning indicates a worker agent is actively executing the task.
	TaskStatusRunning TaskStatus = "running"

	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"

	// TaskStatusFailed indicates the task's work callback reported failure.
	// The task can be re-dispatched or explicitly skipped by the caller.
	TaskStatusFailed TaskStatus = "failed"

	// TaskStatusSkipped indicates the caller chose to bypass the task.
	// Skipped tasks satisfy their dependents the same way completed tasks do.
	TaskStatusSkipped TaskStatus = "skipped"
)

// String returns the string representation of the TaskStatus.
// This implements fmt.Stringer for convenient logging and debugging.
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal returns true when the status ends a task's active lifecycle
// for scheduling purposes (completed or skipped unblock dependents).
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusSkipped
}

// AgentStatus represents the availability of a worker agent in the registry.
type AgentStatus string

// Agent status constants.
const (
	// AgentStatusAvailable indicates the agent can accept an assignment.
	AgentStatusAvailable AgentStatus = "available"

	// AgentStatusBusy indicates the agent holds an active assignment.
	// An agent has at most one active assignment at a time.
	AgentStatusBusy AgentStatus = "busy"
)

// String returns the string representation of the AgentStatus.
func (s AgentStatus) String() string {
	return string(s)
}

// IterationStatus represents the state of an iteration in the
// Build → Test → Fix → Verify state machine.
type IterationStatus string

// Iteration status constants define the valid states an iteration can be in.
//
//	Pending   → Running, Failed
//	Running   → Completed, Failed, Escalated
//	Completed, Failed, Escalated are terminal.
const (
	// IterationStatusPending indicates the iteration was created but no
	// phase has run yet.
	IterationStatusPending IterationStatus = "pending"

	// IterationStatusRunning indicates a phase callback is being driven.
	IterationStatusRunning IterationStatus = "running"

	// IterationStatusCompleted indicates the cycle finished with passing tests.
	IterationStatusCompleted IterationStatus = "completed"

	// IterationStatusFailed indicates the iteration was canceled.
	IterationStatusFailed IterationStatus = "failed"

	// IterationStatusEscalated indicates retry or fix budgets were exhausted
	// and the iteration requires external intervention.
	IterationStatusEscalated IterationStatus = "escalated"
)

// String returns the string representation of the IterationStatus.
func (s IterationStatus) String() string {
	return string(s)
}

// IterationPhase identifies which phase of the cycle an iteration is driving.
type IterationPhase string

// Iteration phase constants.
const (
	// IterationPhaseBuild is the initial construction phase of a cycle.
	IterationPhaseBuild IterationPhase = "build"

	// IterationPhaseTest runs the external test callback against the build output.
	IterationPhaseTest IterationPhase = "test"

	// IterationPhaseFix invokes the external fix callback with test failures.
	IterationPhaseFix IterationPhase = "fix"

	// IterationPhaseVerify re-runs the test-equivalent callback after a fix.
	IterationPhaseVerify IterationPhase = "verify"
)

// String returns the string representation of the IterationPhase.
func (p IterationPhase) String() string {
	return string(p)
}

// PlanPhase classifies where in the overall build a task belongs.
// The planner groups checkpoint boundaries by transitions between phases.
type PlanPhase string

// Plan phase constants, in lifecycle order.
const (
	// PlanPhaseSetup covers environment preparation and scaffolding tasks.
	PlanPhaseSetup PlanPhase = "setup"

	// PlanPhaseImplementation covers the main construction tasks.
	PlanPhaseImplementation PlanPhase = "implementation"

	// PlanPhaseTesting covers test authoring and verification tasks.
	PlanPhaseTesting PlanPhase = "testing"

	// PlanPhaseDeployment covers release and delivery tasks.
	PlanPhaseDeployment PlanPhase = "deployment"
)

// String returns the string representation of the PlanPhase.
func (p PlanPhase) String() string {
	return string(p)
}

// IsValid checks if the phase is a known value.
func (p PlanPhase) IsValid() bool {
	switch p {
	case PlanPhaseSetup, PlanPhaseImplementation, PlanPhaseTesting, PlanPhaseDeployment:
		return true
	default:
		return false
	}
}

// Ordinal returns the lifecycle position of the phase, with setup first.
// Unknown phases sort after deployment.
func (p PlanPhase) Ordinal() int {
	switch p {
	case PlanPhaseSetup:
		return 0
	case PlanPhaseImplementation:
		return 1
	case PlanPhaseTesting:
		return 2
	case PlanPhaseDeployment:
		return 3
	default:
		return 4
	}
}

// PlanPhases returns all plan phases in lifecycle order.
// Used for stable iteration in reports and per-phase breakdowns.
func PlanPhases() []PlanPhase {
	return []PlanPhase{
		PlanPhaseSetup,
		PlanPhaseImplementation,
		PlanPhaseTesting,
		PlanPhaseDeployment,
	}
}

// Priority represents a task's scheduling priority within its ready set.
type Priority string

// Priority constants, lowest to highest.
const (
	// PriorityLow marks tasks that can wait behind everything else in a group.
	PriorityLow Priority = "low"

	// PriorityMedium is the default priority for normalized tasks.
	PriorityMedium Priority = "medium"

	// PriorityHigh marks tasks dispatched ahead of medium and low peers.
	PriorityHigh Priority = "high"

	// PriorityCritical marks tasks dispatched first within their ready set.
	PriorityCritical Priority = "critical"
)

// String returns the string representation of the Priority.
func (p Priority) String() string {
	return string(p)
}

// IsValid checks if the priority is a known value.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Rank returns the numeric weight used when ordering a ready set;
// higher ranks are dispatched first. Unknown priorities rank as medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 0
	default:
		return 1
	}
}

// Capability is an enumerated worker-agent skill tag. Task categories are
// parsed into capabilities exactly once during plan normalization so that
// matching is typed rather than string-compared downstream.
type Capability string

// Capability constants.
const (
	// CapabilitySetup covers environment preparation and scaffolding work.
	CapabilitySetup Capability = "setup"

	// CapabilityBackend covers server-side implementation work.
	CapabilityBackend Capability = "backend"

	// CapabilityFrontend covers client-side implementation work.
	CapabilityFrontend Capability = "frontend"

	// CapabilityDatabase covers schema and storage implementation work.
	CapabilityDatabase Capability = "database"

	// CapabilityTesting covers test authoring and verification work.
	CapabilityTesting Capability = "testing"

	// CapabilityDeploy covers release and delivery work.
	CapabilityDeploy Capability = "deploy"

	// CapabilityGeneral is the fallback for tasks whose category matches
	// no specific capability. Agents must advertise it like any other tag;
	// the default worker pool does.
	CapabilityGeneral Capability = "general"
)

// String returns the string representation of the Capability.
func (c Capability) String() string {
	return string(c)
}

// IsValid checks if the capability is a known value.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilitySetup, CapabilityBackend, CapabilityFrontend,
		CapabilityDatabase, CapabilityTesting, CapabilityDeploy, CapabilityGeneral:
		return true
	default:
		return false
	}
}

// Capabilities returns all known capabilities. Used to build default worker
// pools when a manifest declares none.
func Capabilities() []Capability {
	return []Capability{
		CapabilitySetup,
		CapabilityBackend,
		CapabilityFrontend,
		CapabilityDatabase,
		CapabilityTesting,
		CapabilityDeploy,
		CapabilityGeneral,
	}
}

// CheckpointType identifies why a checkpoint was inserted into a plan.
type CheckpointType string

// Checkpoint type constants.
const (
	// CheckpointPhaseBoundary marks a transition between plan phases.
	CheckpointPhaseBoundary CheckpointType = "phase_boundary"

	// CheckpointFinal marks the end of the plan after the last group.
	CheckpointFinal CheckpointType = "final"
)

// String returns the string representation of the CheckpointType.
func (t CheckpointType) String() string {
	return string(t)
}

// StrategyName identifies a pluggable assignment strategy.
type StrategyName string

// Assignment strategy constants.
const (
	// StrategyCapabilityMatch scores agents by capability overlap and picks
	// the highest score, breaking ties by registration order. Default.
	StrategyCapabilityMatch StrategyName = "capability_match"

	// StrategyRoundRobin rotates assignments through qualifying agents.
	StrategyRoundRobin StrategyName = "round_robin"
)

// String returns the string representation of the StrategyName.
func (s StrategyName) String() string {
	return string(s)
}

// IsValid returns true if the strategy name is a recognized value.
func (s StrategyName) IsValid() bool {
	switch s {
	case StrategyCapabilityMatch, StrategyRoundRobin:
		return true
	default:
		return false
	}
}

// TrackerStatus is the progress tracker's derived view of an entire plan.
type TrackerStatus string

// Tracker status constants.
const (
	// TrackerStatusNotStarted indicates no task activity has been recorded.
	TrackerStatusNotStarted TrackerStatus = "not_started"

	// TrackerStatusInProgress indicates at least one task has started and
	// the plan is not yet complete.
	TrackerStatusInProgress TrackerStatus = "in_progress"

	// TrackerStatusCompleted indicates every task is completed or skipped.
	TrackerStatusCompleted TrackerStatus = "completed"

	// TrackerStatusBlocked indicates the consecutive-failure threshold was
	// hit. Advisory only; the driving loop decides whether to stop.
	TrackerStatusBlocked TrackerStatus = "blocked"
)

// String returns the string representation of the TrackerStatus.
func (s TrackerStatus) String() string {
	return string(s)
}
