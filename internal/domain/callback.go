package domain

import "context"

// Failure describes one item that went wrong during a phase callback, such
// as a failing test case or an unresolved fix.
type Failure struct {
	// Item names what failed (test name, file, task id).
	Item string `json:"item"`

	// Detail is an optional human-readable explanation.
	Detail string `json:"detail,omitempty"`
}

// CallbackResult is the outcome a phase callback reports back. Callbacks
// communicate failure through the result value, never by panicking: a
// non-success result with Failures or Err set is the expected failure path.
type CallbackResult struct {
	// Success reports whether the phase achieved its goal.
	Success bool `json:"success"`

	// Failures lists what went wrong when Success is false. A failed
	// result with an empty list is still a failure.
	Failures []Failure `json:"failures,omitempty"`

	// Err carries an infrastructure-level error message (tooling broke,
	// environment missing) as opposed to domain failures.
	Err string `json:"error,omitempty"`
}

// PhaseFunc executes one attempt of an iteration phase. Implementations
// honor ctx cancellation and report the outcome in the result.
type PhaseFunc func(ctx context.Context) CallbackResult

// FixFunc executes one fix attempt, given the failures to address.
type FixFunc func(ctx context.Context, failures []Failure) CallbackResult

// PhaseCallbacks bundles the callbacks an iteration cycle runs. Build and
// Test are required for a full cycle; Fix is required once the test phase
// reports failures. Verify defaults to Test when nil.
type PhaseCallbacks struct {
	Build  PhaseFunc
	Test   PhaseFunc
	Fix    FixFunc
	Verify PhaseFunc
}
