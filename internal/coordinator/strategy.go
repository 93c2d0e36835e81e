package coordinator

import (
	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/domain"
	gerrors "github.com/mrz1836/gantry/internal/errors"
)

// Strategy selects an agent for a task from the available candidates.
// Candidates arrive in registration order; returning nil means no candidate
// fits and the assignment fails.
type Strategy interface {
	// Name identifies the strategy in logs and configuration.
	Name() constants.StrategyName

	// Select picks one agent from candidates, or nil when none fits.
	Select(task *domain.Task, candidates []*domain.Agent) *domain.Agent

	// CanServe reports whether any candidate could ever serve the task,
	// ignoring availability. Callers use it to distinguish "all busy"
	// from "nobody qualifies" without mutating selection state.
	CanServe(task *domain.Task, candidates []*domain.Agent) bool
}

// strategyForName resolves a configured strategy name to an implementation.
func strategyForName(name constants.StrategyName) (Strategy, error) {
	switch name {
	case constants.StrategyCapabilityMatch:
		return &CapabilityMatch{}, nil
	case constants.StrategyRoundRobin:
		return &RoundRobin{}, nil
	default:
		return nil, gerrors.Wrapf(gerrors.ErrUnknownStrategy, "%s", name)
	}
}

// requiredCapabilities returns the tags a task needs covered: its own
// capability plus the capability its plan phase implies, deduplicated.
func requiredCapabilities(task *domain.Task) []constants.Capability {
	required := []constants.Capability{task.Capability}
	if implied, ok := phaseCapability(task.Phase); ok && implied != task.Capability {
		required = append(required, implied)
	}
	return required
}

// phaseCapability maps a plan phase to the capability it implies. The
// implementation phase implies nothing beyond the task's own capability.
func phaseCapability(phase constants.PlanPhase) (constants.Capability, bool) {
	switch phase {
	case constants.PlanPhaseSetup:
		return constants.CapabilitySetup, true
	case constants.PlanPhaseTesting:
		return constants.CapabilityTesting, true
	case constants.PlanPhaseDeployment:
		return constants.CapabilityDeploy, true
	default:
		return "", false
	}
}

// CapabilityMatch scores each candidate by how many of the task's required
// capabilities it covers and picks the highest score above zero. Ties break
// toward earlier registration.
type CapabilityMatch struct{}

// Name implements Strategy.
func (s *CapabilityMatch) Name() constants.StrategyName {
	return constants.StrategyCapabilityMatch
}

// Select implements Strategy.
func (s *CapabilityMatch) Select(task *domain.Task, candidates []*domain.Agent) *domain.Agent {
	required := requiredCapabilities(task)

	var best *domain.Agent
	bestScore := 0
	for _, agent := range candidates {
		score := 0
		for _, c := range required {
			if agent.HasCapability(c) {
				score++
			}
		}
		if score > bestScore {
			best = agent
			bestScore = score
		}
	}
	return best
}

// CanServe implements Strategy.
func (s *CapabilityMatch) CanServe(task *domain.Task, candidates []*domain.Agent) bool {
	required := requiredCapabilities(task)
	for _, agent := range candidates {
		for _, c := range required {
			if agent.HasCapability(c) {
				return true
			}
		}
	}
	return false
}

// RoundRobin rotates through available candidates regardless of capability,
// spreading work evenly. Useful for homogeneous agent pools.
type RoundRobin struct {
	next int
}

// Name implements Strategy.
func (s *RoundRobin) Name() constants.StrategyName {
	return constants.StrategyRoundRobin
}

// Select implements Strategy.
func (s *RoundRobin) Select(_ *domain.Task, candidates []*domain.Agent) *domain.Agent {
	if len(candidates) == 0 {
		return nil
	}
	agent := candidates[s.next%len(candidates)]
	s.next++
	return agent
}

// CanServe implements Strategy. Round-robin serves any task as long as at
// least one agent is registered.
func (s *RoundRobin) CanServe(_ *domain.Task, candidates []*domain.Agent) bool {
	return len(candidates) > 0
}

var (
	_ Strategy = (*CapabilityMatch)(nil)
	_ Strategy = (*RoundRobin)(nil)
)
