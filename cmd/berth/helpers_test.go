package main

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/berth/internal/adapters/logging"
	"github.com/felixgeelhaar/berth/internal/ports"
	"github.com/felixgeelhaar/berth/internal/testutil/mocks"
)

// newTestApp discovers plugins for root with a mock runner and a quiet
// logger.
func newTestApp(t *testing.T, root string, runner *mocks.CommandRunner) *app {
	t.Helper()
	a, err := newApp(context.Background(), appOptions{
		globalOptions: globalOptions{ProjectDir: root},
		Getenv:        func(string) string { return "" },
		Runner:        runner,
		LogOutput:     io.Discard,
	})
	require.NoError(t, err)
	return a
}

// composeArgs is the argv the orchestrator passes to docker for sub.
func composeArgs(a *app, sub ...string) []string {
	args := []string{"compose", "--project-name", a.project.Name, "--file", a.composeFile()}
	return append(args, sub...)
}

// dockerCalls returns the args of every recorded docker invocation.
func dockerCalls(runner *mocks.CommandRunner) [][]string {
	var calls [][]string
	for _, c := range runner.Calls() {
		if c.Command == "docker" {
			calls = append(calls, c.Args)
		}
	}
	return calls
}

// useApp makes a the application returned by currentApp for the test.
func useApp(t *testing.T, a *app) {
	t.Helper()
	setApp(a, nil)
	t.Cleanup(func() { setApp(nil, nil) })
}

func newBufferLogger(w io.Writer) ports.Logger {
	return logging.NewConsoleLogger(
		logging.WithOutput(w),
		logging.WithLevel(ports.LevelDebug),
		logging.WithTimestamp(false))
}
