// Package exec provides an interface for command execution.
package exec

import (
	"context"
)

// CommandRunner defines the interface for running external commands.
// This abstraction allows mocking command execution in tests.
type CommandRunner interface {
	// Run executes a command and returns combined stdout/stderr output.
	// The working directory is set to workDir if non-empty.
	Run(ctx context.Context, workDir string, name string, args ...string) (output []byte, err error)

	// RunShell executes a shell command through "sh -c".
	// This is a convenience method for running complex shell commands.
	RunShell(ctx context.Context, workDir string, command string) (output []byte, err error)

	// Start launches a command without waiting for it to finish, returning a
	// handle to the running process. Used for long-lived auxiliary services.
	Start(ctx context.Context, workDir string, name string, args ...string) (Process, error)
}

// Process is a handle to a command started with Start.
type Process interface {
	// Pid returns the OS process id.
	Pid() int
	// Wait blocks until the process exits.
	Wait() error
	// Kill terminates the process.
	Kill() error
}
