package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/berth/internal/domain/config"
	"github.com/felixgeelhaar/berth/internal/domain/plugin"
	"github.com/felixgeelhaar/berth/internal/testutil"
	"github.com/felixgeelhaar/berth/internal/testutil/mocks"
)

func TestPluginCmd_Subcommands(t *testing.T) {
	assert.Equal(t, "plugin", pluginCmd.Use)
	assert.Equal(t, "list", pluginListCmd.Use)
	assert.Contains(t, pluginListCmd.Aliases, "ls")
	assert.Equal(t, "info <name>", pluginInfoCmd.Use)
	assert.Equal(t, "config <name>", pluginConfigCmd.Use)
	assert.Equal(t, "templates", pluginTemplatesCmd.Use)
}

func TestPluginListCmd_UsesCurrentApp(t *testing.T) {
	useApp(t, newTestApp(t, t.TempDir(), mocks.NewCommandRunner()))

	var buf bytes.Buffer
	pluginListCmd.SetOut(&buf)
	t.Cleanup(func() { pluginListCmd.SetOut(nil) })

	require.NoError(t, pluginListCmd.RunE(pluginListCmd, nil))
	out := buf.String()
	for _, name := range []string{"mailpit", "meilisearch", "mongodb", "xdebug"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "bundled")
	assert.Contains(t, out, "services")
}

func TestRunPluginInfo(t *testing.T) {
	a := newTestApp(t, t.TempDir(), mocks.NewCommandRunner())

	var buf bytes.Buffer
	require.NoError(t, runPluginInfo(&buf, a, "xdebug"))
	out := buf.String()
	assert.Contains(t, out, "xdebug")
	assert.Contains(t, out, "builtin:xdebug")
	assert.Contains(t, out, "before:start (priority 10)")
	assert.Contains(t, out, "Commands:")

	buf.Reset()
	require.NoError(t, runPluginInfo(&buf, a, "mailpit"))
	assert.Contains(t, buf.String(), "php/sendmail.ini.tmpl")
}

func TestRunPluginInfo_NotFound(t *testing.T) {
	a := newTestApp(t, t.TempDir(), mocks.NewCommandRunner())

	err := runPluginInfo(&bytes.Buffer{}, a, "redis")
	assert.True(t, config.IsUserError(err, config.ErrCodePluginNotFound))
}

func TestRunPluginConfig_MasksSecrets(t *testing.T) {
	root := t.TempDir()
	testutil.WriteProjectConfig(t, root, `name: shop
plugins:
  mongodb:
    root_password: hunter2
`)
	a := newTestApp(t, root, mocks.NewCommandRunner())

	var buf bytes.Buffer
	require.NoError(t, runPluginConfig(&buf, a, "mongodb"))
	out := buf.String()
	assert.Contains(t, out, "root_password")
	assert.Contains(t, out, maskedValue)
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "27017")
	assert.Contains(t, out, "min 1")
}

func TestRunPluginConfig_Enum(t *testing.T) {
	a := newTestApp(t, t.TempDir(), mocks.NewCommandRunner())

	var buf bytes.Buffer
	require.NoError(t, runPluginConfig(&buf, a, "xdebug"))
	assert.Contains(t, buf.String(), "one of off|debug|coverage|profile")
}

func TestRunPluginTemplates(t *testing.T) {
	a := newTestApp(t, t.TempDir(), mocks.NewCommandRunner())

	var buf bytes.Buffer
	require.NoError(t, runPluginTemplates(&buf, a))
	out := buf.String()
	assert.Contains(t, out, "php/sendmail.ini.tmpl")
	assert.Contains(t, out, "builtin:mailpit/templates/sendmail.ini.tmpl")
	assert.Contains(t, out, "builtin:mongodb/templates")
}

func TestConstraints(t *testing.T) {
	a := newTestApp(t, t.TempDir(), mocks.NewCommandRunner())
	lp, err := a.plugins.Get("mailpit")
	require.NoError(t, err)

	f, ok := lp.Schema().Field("http_port")
	require.True(t, ok)
	assert.NotEqual(t, emptyCell, constraints(f))
}

func TestRunPluginList_PackagePlugin(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFixture(t, root, "installed.json", "vendor/composer/installed.json")
	testutil.WriteProjectFile(t, root, "vendor/acme/berth-redis/plugin.yaml",
		testutil.NewDeclarationBuilder("redis", "1.4.0").
			WithDescription("Redis cache").
			WithField("port", "integer", 6379, map[string]any{"min": 1}).
			ToYAML())
	a := newTestApp(t, root, mocks.NewCommandRunner())

	lp, err := a.plugins.Get("redis")
	require.NoError(t, err)
	assert.Equal(t, plugin.SourcePackage, lp.Source)
	assert.Equal(t, 6379, lp.Config.Int("port"))

	var buf bytes.Buffer
	require.NoError(t, runPluginList(&buf, a))
	assert.Contains(t, buf.String(), "Redis cache")
	assert.Contains(t, buf.String(), "package")
}
