// Package manifest loads plan manifests: YAML documents declaring the tasks
// a plan should schedule and, optionally, the agents available to work them.
// A loaded manifest is validated structurally here; graph-level checks such
// as cycle detection belong to the planner.
package manifest

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/domain"
	gerrors "github.com/mrz1836/gantry/internal/errors"
)

const (
	// maxManifestSize is the maximum allowed size for a manifest file (1MB).
	maxManifestSize = 1024 * 1024
)

var (
	// planIDPattern matches the plan ID format accepted for pinned ids.
	planIDPattern = regexp.MustCompile(`^plan-[a-z0-9][a-z0-9_-]*$`)
	// taskIDPattern matches valid explicit task ids: starts with alphanumeric,
	// contains only alphanumeric, hyphens, underscores.
	taskIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

// Manifest is the parsed contents of a plan manifest file.
//
// Example:
//
//	id: plan-nightly
//	max_concurrency: 2
//	tasks:
//	  - id: schema
//	    name: Create database schema
//	    category: database
//	  - name: Implement API endpoints
//	    category: backend
//	    dependencies: [schema]
//	agents:
//	  - id: agent-db
//	    capabilities: [database, backend]
type Manifest struct {
	// SchemaVersion is the manifest schema revision. Zero means current.
	SchemaVersion int `yaml:"schema_version,omitempty"`

	// PlanID optionally pins the plan id, so re-running the same manifest
	// produces the same stored plan instead of a fresh one. Must match
	// plan-[a-z0-9][a-z0-9_-]* when set.
	PlanID string `yaml:"id,omitempty"`

	// MaxConcurrency caps the size of each execution group. Zero falls back
	// to the engine default.
	MaxConcurrency int `yaml:"max_concurrency,omitempty"`

	// Tasks are the work items to plan. At least one is required.
	Tasks []TaskEntry `yaml:"tasks"`

	// Agents optionally declares the worker pool alongside the tasks.
	Agents []AgentEntry `yaml:"agents,omitempty"`
}

// TaskEntry is one work item in a manifest.
type TaskEntry struct {
	// ID is the optional explicit task id. Tasks without one get a generated
	// id during planning, which also means no other entry can depend on them.
	ID string `yaml:"id,omitempty"`

	// Name is the human-readable summary of the task. Required.
	Name string `yaml:"name"`

	// Category is a free-form tag. Unrecognized values schedule as general
	// work, so it is not validated here.
	Category string `yaml:"category,omitempty"`

	// Phase optionally forces the plan phase instead of inferring it from
	// the category.
	Phase string `yaml:"phase,omitempty"`

	// Priority orders the task within its ready set. Defaults to medium.
	Priority string `yaml:"priority,omitempty"`

	// Dependencies reference the explicit ids of other entries in this
	// manifest that must finish first.
	Dependencies []string `yaml:"dependencies,omitempty"`

	// Complexity is the progress weight of the task. Zero means default.
	Complexity float64 `yaml:"complexity,omitempty"`

	// Command is the optional shell command the run command executes for
	// this task. Tasks without one are simulated. Commands stay in the
	// manifest layer; they never enter the planned task itself.
	Command string `yaml:"command,omitempty"`
}

// AgentEntry is one worker declaration in a manifest.
type AgentEntry struct {
	// ID is the unique identifier for the agent. Required.
	ID string `yaml:"id"`

	// Capabilities are the tags the agent advertises. At least one valid
	// capability is required.
	Capabilities []string `yaml:"capabilities"`
}

// Load reads and validates the manifest at path.
// It fails with ErrManifestFileMissing when the file does not exist,
// ErrManifestParseError when the YAML cannot be decoded, and
// ErrManifestInvalid when the contents fail validation.
func Load(path string) (*Manifest, error) {
	// Check file size before reading to prevent memory exhaustion
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", gerrors.ErrManifestFileMissing, path)
		}
		return nil, fmt.Errorf("failed to stat manifest: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", gerrors.ErrManifestFileMissing, path)
	}
	if info.Size() > maxManifestSize {
		return nil, fmt.Errorf("%w: file too large (%d > %d bytes)",
			gerrors.ErrManifestParseError, info.Size(), maxManifestSize)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the caller
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", gerrors.ErrManifestParseError, err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate performs full structural validation of the manifest.
// Dependency targets must be explicit ids declared in this manifest; cycle
// detection is left to the planner.
func (m *Manifest) Validate() error {
	if m.SchemaVersion > constants.ManifestSchemaVersion {
		return fmt.Errorf("%w: schema_version %d is newer than supported version %d",
			gerrors.ErrManifestInvalid, m.SchemaVersion, constants.ManifestSchemaVersion)
	}
	if len(m.Tasks) == 0 {
		return fmt.Errorf("%w: at least one task is required", gerrors.ErrManifestInvalid)
	}
	if m.PlanID != "" && !planIDPattern.MatchString(m.PlanID) {
		return fmt.Errorf("%w: id must match pattern plan-[a-z0-9][a-z0-9_-]*, got %q",
			gerrors.ErrManifestInvalid, m.PlanID)
	}
	if m.MaxConcurrency < 0 {
		return fmt.Errorf("%w: max_concurrency cannot be negative", gerrors.ErrManifestInvalid)
	}

	declared := make(map[string]bool, len(m.Tasks))
	for i := range m.Tasks {
		if err := m.Tasks[i].validate(i); err != nil {
			return err
		}
		id := m.Tasks[i].ID
		if id == "" {
			continue
		}
		if declared[id] {
			return fmt.Errorf("%w: duplicate task id %q", gerrors.ErrManifestInvalid, id)
		}
		declared[id] = true
	}

	for i := range m.Tasks {
		entry := &m.Tasks[i]
		for _, dep := range entry.Dependencies {
			if dep == entry.ID {
				return fmt.Errorf("%w: task %q depends on itself", gerrors.ErrManifestInvalid, entry.ID)
			}
			if !declared[dep] {
				return fmt.Errorf("%w: task %q depends on undeclared task %q",
					gerrors.ErrManifestInvalid, entry.ref(i), dep)
			}
		}
	}

	agentIDs := make(map[string]bool, len(m.Agents))
	for i := range m.Agents {
		if err := m.Agents[i].validate(i); err != nil {
			return err
		}
		if agentIDs[m.Agents[i].ID] {
			return fmt.Errorf("%w: duplicate agent id %q", gerrors.ErrManifestInvalid, m.Agents[i].ID)
		}
		agentIDs[m.Agents[i].ID] = true
	}

	return nil
}

// validate checks a single task entry. index identifies the entry in error
// messages when it has no explicit id.
func (t *TaskEntry) validate(index int) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: task %s has no name", gerrors.ErrManifestInvalid, t.ref(index))
	}
	if t.ID != "" && !taskIDPattern.MatchString(t.ID) {
		return fmt.Errorf("%w: task id %q must match pattern [a-z0-9][a-z0-9_-]*",
			gerrors.ErrManifestInvalid, t.ID)
	}
	if t.Phase != "" {
		phase := constants.PlanPhase(strings.ToLower(strings.TrimSpace(t.Phase)))
		if !phase.IsValid() {
			return fmt.Errorf("%w: task %s has unknown phase %q",
				gerrors.ErrManifestInvalid, t.ref(index), t.Phase)
		}
	}
	if t.Priority != "" {
		priority := constants.Priority(strings.ToLower(strings.TrimSpace(t.Priority)))
		if !priority.IsValid() {
			return fmt.Errorf("%w: task %s has unknown priority %q",
				gerrors.ErrManifestInvalid, t.ref(index), t.Priority)
		}
	}
	if t.Complexity < 0 {
		return fmt.Errorf("%w: task %s has negative complexity", gerrors.ErrManifestInvalid, t.ref(index))
	}
	return nil
}

// ref names the entry for error messages: its id when set, its position
// otherwise.
func (t *TaskEntry) ref(index int) string {
	if t.ID != "" {
		return fmt.Sprintf("%q", t.ID)
	}
	return fmt.Sprintf("#%d (%s)", index+1, strings.TrimSpace(t.Name))
}

// validate checks a single agent entry.
func (a *AgentEntry) validate(index int) error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: agent #%d has no id", gerrors.ErrManifestInvalid, index+1)
	}
	if len(a.Capabilities) == 0 {
		return fmt.Errorf("%w: agent %q declares no capabilities", gerrors.ErrManifestInvalid, a.ID)
	}
	for _, raw := range a.Capabilities {
		c := constants.Capability(strings.ToLower(strings.TrimSpace(raw)))
		if !c.IsValid() {
			return fmt.Errorf("%w: agent %q has unknown capability %q",
				gerrors.ErrManifestInvalid, a.ID, raw)
		}
	}
	return nil
}

// TaskList converts the manifest's task entries into planner input. Phase and
// priority are lowercased; empty values stay empty so planning applies its
// defaults.
func (m *Manifest) TaskList() []domain.Task {
	tasks := make([]domain.Task, 0, len(m.Tasks))
	for _, entry := range m.Tasks {
		tasks = append(tasks, domain.Task{
			ID:           entry.ID,
			Name:         strings.TrimSpace(entry.Name),
			Category:     entry.Category,
			Phase:        constants.PlanPhase(strings.ToLower(strings.TrimSpace(entry.Phase))),
			Priority:     constants.Priority(strings.ToLower(strings.TrimSpace(entry.Priority))),
			Dependencies: append([]string(nil), entry.Dependencies...),
			Complexity:   entry.Complexity,
		})
	}
	return tasks
}

// Commands maps the positional index of each task entry to its shell
// command. Planning preserves entry order, so index i here corresponds to
// the i-th planned task. Entries without a command are absent from the map.
func (m *Manifest) Commands() map[int]string {
	cmds := make(map[int]string)
	for i, entry := range m.Tasks {
		if cmd := strings.TrimSpace(entry.Command); cmd != "" {
			cmds[i] = cmd
		}
	}
	return cmds
}

// AgentList converts the manifest's agent entries for coordinator
// registration. Capability tags are lowercased and deduplicated.
func (m *Manifest) AgentList() []domain.Agent {
	if len(m.Agents) == 0 {
		return nil
	}

	agents := make([]domain.Agent, 0, len(m.Agents))
	for _, entry := range m.Agents {
		seen := make(map[constants.Capability]bool, len(entry.Capabilities))
		caps := make([]constants.Capability, 0, len(entry.Capabilities))
		for _, raw := range entry.Capabilities {
			c := constants.Capability(strings.ToLower(strings.TrimSpace(raw)))
			if seen[c] {
				continue
			}
			seen[c] = true
			caps = append(caps, c)
		}
		agents = append(agents, domain.Agent{
			ID:           strings.TrimSpace(entry.ID),
			Capabilities: caps,
		})
	}
	return agents
}
