// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
	"io"
)

// CommandResult represents the result of executing a shell command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true if the command exited with code 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// CommandCall records a command invocation.
type CommandCall struct {
	Command string
	Args    []string
}

// CommandRunner executes shell commands and captures their output.
type CommandRunner interface {
	Run(ctx context.Context, command string, args ...string) (CommandResult, error)
}

// Streams wires a command's standard streams. Nil members are left
// unconnected.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// StreamRunner executes commands attached to caller-provided streams, for
// database dumps, restores and interactive shells.
type StreamRunner interface {
	Stream(ctx context.Context, streams Streams, command string, args ...string) (int, error)
}
