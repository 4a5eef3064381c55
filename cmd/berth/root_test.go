package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/berth/internal/domain/config"
)

func TestParseGlobalOptions(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want globalOptions
	}{
		{
			name: "no flags",
			args: []string{"plugin", "list"},
			want: globalOptions{},
		},
		{
			name: "project dir and verbose",
			args: []string{"--project-dir", "/srv/app", "plugin", "list", "-v"},
			want: globalOptions{ProjectDir: "/srv/app", Verbose: true},
		},
		{
			name: "config with command flags",
			args: []string{"start", "--wait", "--config=custom.yaml"},
			want: globalOptions{ConfigFile: "custom.yaml"},
		},
		{
			name: "unknown flags ignored",
			args: []string{"db", "dump", "mongodb", "--output=dump.gz", "--verbose"},
			want: globalOptions{Verbose: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseGlobalOptions(tt.args))
		})
	}
}

func TestFormatError_UserError(t *testing.T) {
	err := config.NewConfigNotFoundError("/srv/app/berth.yaml").WithUnderlying(errors.New("stat failed"))

	msg := formatError(err)
	assert.Contains(t, msg, "project configuration not found (at /srv/app/berth.yaml)")
	assert.Contains(t, msg, "Suggestion: Run 'berth init'")
	assert.NotContains(t, msg, "stat failed")
}

func TestFormatError_Verbose(t *testing.T) {
	old := verbose
	verbose = true
	t.Cleanup(func() { verbose = old })

	err := config.NewHookFailedError(errors.New("handler exploded"))
	assert.Contains(t, formatError(err), "Technical details: handler exploded")
}

func TestFormatError_PlainError(t *testing.T) {
	assert.Equal(t, "boom", formatError(errors.New("boom")))
}

func TestPrintErrorTo(t *testing.T) {
	var buf bytes.Buffer
	printErrorTo(&buf, errors.New("boom"))
	assert.Equal(t, "Error: boom\n", buf.String())
}

func TestRootCmd_Commands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"version", "init", "start", "stop", "rebuild", "destroy", "plugin", "services", "db"} {
		assert.True(t, names[want], want)
	}
	assert.True(t, rootCmd.SilenceErrors)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestVersionCmd(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, buf.String(), "berth "+version)
	assert.Contains(t, buf.String(), "commit: "+commit)
}

func TestCurrentApp_NotInitialized(t *testing.T) {
	setApp(nil, nil)
	_, err := currentApp()
	require.Error(t, err)
}

func TestCurrentApp_BootstrapError(t *testing.T) {
	want := config.NewConfigNotFoundError("custom.yaml")
	setApp(nil, want)
	t.Cleanup(func() { setApp(nil, nil) })

	_, err := currentApp()
	assert.Same(t, want, err)
}
