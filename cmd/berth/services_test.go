package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/berth/internal/domain/config"
	"github.com/felixgeelhaar/berth/internal/ports"
	"github.com/felixgeelhaar/berth/internal/testutil"
	"github.com/felixgeelhaar/berth/internal/testutil/mocks"
)

func TestRunServices(t *testing.T) {
	root := t.TempDir()
	testutil.WriteProjectConfig(t, root, `name: shop
services:
  mongodb:
    version: "6.0-jammy"
`)
	a := newTestApp(t, root, mocks.NewCommandRunner())

	var buf bytes.Buffer
	require.NoError(t, runServices(&buf, a))
	out := buf.String()
	assert.Contains(t, out, "mailpit")
	assert.Contains(t, out, "8025, 1025")
	assert.Contains(t, out, "meilisearch")
	assert.Contains(t, out, "http")
	assert.Contains(t, out, "mongodb")
	assert.Contains(t, out, "27017")
	assert.Contains(t, out, "6.0-jammy")
}

func TestRunServicesStatus(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	port := ln.Addr().(*net.TCPAddr).Port

	root := t.TempDir()
	testutil.WriteProjectConfig(t, root, fmt.Sprintf(`name: shop
plugins:
  mongodb:
    port: %d
services:
  meilisearch:
    enabled: false
`, port))
	runner := mocks.NewCommandRunner()
	a := newTestApp(t, root, runner)
	runner.AddResult("docker", composeArgs(a, "ps", "--all", "--format", "json"), ports.CommandResult{
		Stdout: `{"Name":"shop-mongodb-1","Service":"mongodb","State":"running","Health":"healthy","Status":"Up 2 minutes"}` + "\n",
	})

	var buf bytes.Buffer
	require.NoError(t, runServicesStatus(context.Background(), &buf, a))
	out := buf.String()
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "not created")
	assert.Contains(t, out, "disabled")
	assert.Contains(t, out, fmt.Sprint(port))
}

func TestRunServicesStatus_ComposeFailure(t *testing.T) {
	root := t.TempDir()
	testutil.WriteProjectConfig(t, root, "name: shop\n")
	runner := mocks.NewCommandRunner()
	a := newTestApp(t, root, runner)
	runner.AddResult("docker", composeArgs(a, "ps", "--all", "--format", "json"), ports.CommandResult{ExitCode: 1})

	err := runServicesStatus(context.Background(), &bytes.Buffer{}, a)
	assert.True(t, config.IsUserError(err, config.ErrCodeCommandFailed))
}

func TestRunServicesStatus_RequiresConfig(t *testing.T) {
	a := newTestApp(t, t.TempDir(), mocks.NewCommandRunner())

	err := runServicesStatus(context.Background(), &bytes.Buffer{}, a)
	assert.True(t, config.IsUserError(err, config.ErrCodeConfigNotFound))
}
