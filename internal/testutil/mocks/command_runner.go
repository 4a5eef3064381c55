// Package mocks provides test doubles for the ports interfaces.
package mocks

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/felixgeelhaar/berth/internal/ports"
)

// CommandRunner is a thread-safe test double for ports.CommandRunner and
// ports.StreamRunner.
type CommandRunner struct {
	mu       sync.RWMutex
	results  map[string]ports.CommandResult
	errors   map[string]error
	calls    []ports.CommandCall
	stdin    []string
	allowAll bool
}

// NewCommandRunner creates a new CommandRunner mock.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{
		results: make(map[string]ports.CommandResult),
		errors:  make(map[string]error),
		calls:   make([]ports.CommandCall, 0),
	}
}

// AllowAll makes unregistered commands succeed with empty output instead of
// failing.
func (m *CommandRunner) AllowAll() *CommandRunner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowAll = true
	return m
}

// AddResult registers an expected command and its result.
func (m *CommandRunner) AddResult(command string, args []string, result ports.CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[buildKey(command, args)] = result
}

// AddError registers an expected command that should return an error.
func (m *CommandRunner) AddError(command string, args []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[buildKey(command, args)] = err
}

// Run executes a mock command.
func (m *CommandRunner) Run(_ context.Context, command string, args ...string) (ports.CommandResult, error) {
	m.record(command, args, "")
	return m.lookup(command, args)
}

// Stream executes a mock command: the registered Stdout is copied to
// streams.Stdout and anything read from streams.Stdin is recorded.
func (m *CommandRunner) Stream(_ context.Context, streams ports.Streams, command string, args ...string) (int, error) {
	var input string
	if streams.Stdin != nil {
		data, err := io.ReadAll(streams.Stdin)
		if err != nil {
			return -1, err
		}
		input = string(data)
	}
	m.record(command, args, input)

	result, err := m.lookup(command, args)
	if err != nil {
		return -1, err
	}
	if streams.Stdout != nil && result.Stdout != "" {
		_, _ = io.WriteString(streams.Stdout, result.Stdout)
	}
	if streams.Stderr != nil && result.Stderr != "" {
		_, _ = io.WriteString(streams.Stderr, result.Stderr)
	}
	return result.ExitCode, nil
}

func (m *CommandRunner) record(command string, args []string, input string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ports.CommandCall{
		Command: command,
		Args:    append([]string(nil), args...),
	})
	m.stdin = append(m.stdin, input)
}

func (m *CommandRunner) lookup(command string, args []string) (ports.CommandResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := buildKey(command, args)
	if err, ok := m.errors[key]; ok {
		return ports.CommandResult{}, err
	}
	if result, ok := m.results[key]; ok {
		return result, nil
	}
	if m.allowAll {
		return ports.CommandResult{}, nil
	}
	return ports.CommandResult{}, fmt.Errorf("no mock result for command: %s %v", command, args)
}

// Calls returns all recorded command invocations.
func (m *CommandRunner) Calls() []ports.CommandCall {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := make([]ports.CommandCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// Stdin returns the input consumed by each Stream call, in call order.
// Run calls record an empty string.
func (m *CommandRunner) Stdin() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.stdin))
	copy(out, m.stdin)
	return out
}

// Reset clears all registered results, errors, and recorded calls.
func (m *CommandRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = make(map[string]ports.CommandResult)
	m.errors = make(map[string]error)
	m.calls = make([]ports.CommandCall, 0)
	m.stdin = nil
}

func buildKey(command string, args []string) string {
	return command + ":" + strings.Join(args, ":")
}

var (
	_ ports.CommandRunner = (*CommandRunner)(nil)
	_ ports.StreamRunner  = (*CommandRunner)(nil)
)
