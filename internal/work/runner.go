// Package work executes the shell commands attached to plan tasks.
//
// SECURITY NOTE: The commands executed by this package come from plan
// manifests the user hands to the CLI. They are treated as trusted input
// because whoever writes the manifest already controls what runs, the same
// trust model as Makefiles, npm scripts, or CI/CD configurations.
// The sh -c invocation is intentional to support shell features (pipes,
// redirects, etc.) commonly used in task commands like
// "make build 2>&1 | tee build.log".
package work

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
)

// Runner defines the interface for executing task commands.
// This allows for testing by injecting mock implementations.
type Runner interface {
	// Run executes a shell command and returns its output.
	Run(ctx context.Context, workDir, command string) (stdout, stderr string, exitCode int, err error)
}

// LiveOutputRunner defines a runner that supports live output streaming.
type LiveOutputRunner interface {
	Runner
	// RunWithLiveOutput executes a command and streams output to the writer while also capturing it.
	RunWithLiveOutput(ctx context.Context, workDir, command string, liveOut io.Writer) (stdout, stderr string, exitCode int, err error)
}

// ShellRunner implements Runner and LiveOutputRunner using os/exec.
type ShellRunner struct{}

// Run executes a shell command using sh -c.
func (r *ShellRunner) Run(ctx context.Context, workDir, command string) (stdout, stderr string, exitCode int, err error) {
	return r.runCommand(ctx, workDir, command, nil)
}

// RunWithLiveOutput executes a command and streams output to liveOut while also capturing it.
func (r *ShellRunner) RunWithLiveOutput(ctx context.Context, workDir, command string, liveOut io.Writer) (stdout, stderr string, exitCode int, err error) {
	return r.runCommand(ctx, workDir, command, liveOut)
}

// runCommand executes a shell command with optional live output streaming.
// If liveOut is non-nil, output is streamed to it while also being captured.
func (r *ShellRunner) runCommand(ctx context.Context, workDir, command string, liveOut io.Writer) (stdout, stderr string, exitCode int, err error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = workDir

	var outBuf, errBuf bytes.Buffer
	if liveOut != nil {
		cmd.Stdout = io.MultiWriter(&outBuf, liveOut)
		cmd.Stderr = io.MultiWriter(&errBuf, liveOut)
	} else {
		cmd.Stdout = &outBuf
		cmd.Stderr = &errBuf
	}

	err = cmd.Run()
	stdout = outBuf.String()
	stderr = errBuf.String()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = 1
		}
	}

	return stdout, stderr, exitCode, err
}

// Ensure ShellRunner implements Runner and LiveOutputRunner.
var (
	_ Runner           = (*ShellRunner)(nil)
	_ LiveOutputRunner = (*ShellRunner)(nil)
)
