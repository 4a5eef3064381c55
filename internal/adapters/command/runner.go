// Package command provides command execution adapters.
package command

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/felixgeelhaar/berth/internal/ports"
)

// RealRunner executes actual processes on the host.
type RealRunner struct {
	// Dir is the working directory for every command; empty means the
	// current directory.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
}

// NewRealRunner creates a new RealRunner rooted at dir.
func NewRealRunner(dir string) *RealRunner {
	return &RealRunner{Dir: dir}
}

// Run executes a command and captures its output. A non-zero exit is
// reported through the result, not as an error.
func (r *RealRunner) Run(ctx context.Context, command string, args ...string) (ports.CommandResult, error) {
	cmd := r.command(ctx, command, args)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	code, err := exitCode(cmd.Run())
	return ports.CommandResult{
		ExitCode: code,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, err
}

// Stream executes a command attached to the given streams and returns its
// exit code.
func (r *RealRunner) Stream(ctx context.Context, streams ports.Streams, command string, args ...string) (int, error) {
	cmd := r.command(ctx, command, args)
	cmd.Stdin = streams.Stdin
	cmd.Stdout = streams.Stdout
	cmd.Stderr = streams.Stderr

	return exitCode(cmd.Run())
}

func (r *RealRunner) command(ctx context.Context, command string, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	return cmd
}

func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

var (
	_ ports.CommandRunner = (*RealRunner)(nil)
	_ ports.StreamRunner  = (*RealRunner)(nil)
)
