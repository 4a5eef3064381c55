package compose

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/berth/internal/ports"
	"github.com/felixgeelhaar/berth/internal/testutil/mocks"
)

func TestOrchestrator_Commands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		call func(o *Orchestrator) error
		args []string
	}{
		{"up", func(o *Orchestrator) error { return o.Up(context.Background()) },
			[]string{"compose", "--project-name", "shop", "--file", "a.yml", "--file", "b.yml", "up", "--detach", "--remove-orphans"}},
		{"stop", func(o *Orchestrator) error { return o.Stop(context.Background()) },
			[]string{"compose", "--project-name", "shop", "--file", "a.yml", "--file", "b.yml", "stop"}},
		{"build", func(o *Orchestrator) error { return o.Build(context.Background()) },
			[]string{"compose", "--project-name", "shop", "--file", "a.yml", "--file", "b.yml", "build", "--pull"}},
		{"down", func(o *Orchestrator) error { return o.Down(context.Background(), false) },
			[]string{"compose", "--project-name", "shop", "--file", "a.yml", "--file", "b.yml", "down", "--remove-orphans"}},
		{"down volumes", func(o *Orchestrator) error { return o.Down(context.Background(), true) },
			[]string{"compose", "--project-name", "shop", "--file", "a.yml", "--file", "b.yml", "down", "--remove-orphans", "--volumes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runner := mocks.NewCommandRunner().AllowAll()
			o := New(runner, WithProjectName("shop"), WithFiles("a.yml", "b.yml"))
			require.NoError(t, tt.call(o))

			calls := runner.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, "docker", calls[0].Command)
			assert.Equal(t, tt.args, calls[0].Args)
		})
	}
}

func TestOrchestrator_FailureCarriesStderr(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("podman", []string{"compose", "stop"}, ports.CommandResult{ExitCode: 1, Stderr: "no such project\n"})

	err := New(runner, WithBinary("podman")).Stop(context.Background())
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 1, cmdErr.ExitCode)
	assert.Contains(t, err.Error(), "no such project")

	runner.AddError("podman", []string{"compose", "build", "--pull"}, errors.New("not found"))
	err = New(runner, WithBinary("podman")).Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to run docker compose")
}

func TestOrchestrator_Exec(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("docker", []string{"compose", "exec", "-T", "mysql", "mysqldump", "shop"},
		ports.CommandResult{Stdout: "-- dump\n"})
	runner.AddResult("docker", []string{"compose", "exec", "-T", "mysql", "false"},
		ports.CommandResult{ExitCode: 2})

	o := New(runner)
	out := &bytes.Buffer{}
	streams := ports.Streams{Stdin: strings.NewReader(""), Stdout: out}
	require.NoError(t, o.Exec(context.Background(), "mysql", streams, "mysqldump", "shop"))
	assert.Equal(t, "-- dump\n", out.String())

	err := o.Exec(context.Background(), "mysql", streams, "false")
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 2, cmdErr.ExitCode)
}

type runOnly struct{ ports.CommandRunner }

func TestOrchestrator_ExecNeedsStreamRunner(t *testing.T) {
	t.Parallel()

	o := New(runOnly{mocks.NewCommandRunner()})
	assert.Error(t, o.Exec(context.Background(), "mysql", ports.Streams{}, "true"))
}

func TestOrchestrator_PS(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult("docker", []string{"compose", "ps", "--all", "--format", "json"}, ports.CommandResult{
		Stdout: `{"Name":"shop-mysql-1","Service":"mysql","State":"running","Health":"healthy","Status":"Up 2 minutes"}
{"Name":"shop-redis-1","Service":"redis","State":"exited","Status":"Exited (0)"}
`,
	})

	containers, err := New(runner).PS(context.Background())
	require.NoError(t, err)
	require.Len(t, containers, 2)
	assert.Equal(t, "mysql", containers[0].Service)
	assert.True(t, containers[0].Running())
	assert.Equal(t, "healthy", containers[0].Health)
	assert.False(t, containers[1].Running())
}

func TestParsePS_ArrayFormat(t *testing.T) {
	t.Parallel()

	containers := ParsePS(`[{"Name":"a-1","Service":"a","State":"running"},{"Name":"b-1","Service":"b","State":"created"}]`)
	require.Len(t, containers, 2)
	assert.Equal(t, "b", containers[1].Service)
	assert.Empty(t, ParsePS(""))
	assert.Empty(t, ParsePS("not json\n"))
}
