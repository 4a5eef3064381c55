package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteProjectFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := WriteProjectFile(t, root, ".berth/php/xdebug.ini", "[xdebug]\n")

	assert.Equal(t, filepath.Join(root, ".berth", "php", "xdebug.ini"), path)
	AssertFileContains(t, path, "[xdebug]")
}

func TestWriteLocalPlugin(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := WriteLocalPlugin(t, root, "tools", "kind: berth-plugin\n")

	assert.Equal(t, filepath.Join(root, ".berth", "plugins", "tools", "plugin.yaml"), path)
	AssertFileExists(t, path)
	AssertFileNotExists(t, filepath.Join(root, "berth.yaml"))
}

func TestLoadFixture(t *testing.T) {
	t.Parallel()

	assert.Contains(t, string(LoadFixture(t, "berth.yaml")), "name: shop")
	assert.Contains(t, string(LoadFixture(t, "installed.json")), "berth-plugin")

	root := t.TempDir()
	path := WriteFixture(t, root, "installed.json", "vendor/composer/installed.json")
	AssertFileContains(t, path, "acme/berth-redis")
}

func TestProjectBuilder(t *testing.T) {
	t.Parallel()

	doc := NewProjectBuilder("shop").
		WithComposeFile("docker/compose.yml").
		WithService("mongodb", "version", "6").
		WithPlugin("xdebug", "mode", "debug").
		WithPlugin("xdebug", "client_port", 9009).
		ToYAML()

	AssertYAMLEquals(t, `
name: shop
compose_file: docker/compose.yml
services:
  mongodb:
    version: "6"
plugins:
  xdebug:
    mode: debug
    client_port: 9009
`, doc)
}

func TestDeclarationBuilder(t *testing.T) {
	t.Parallel()

	doc := NewDeclarationBuilder("tools", "0.1.0").
		WithDescription("project tools").
		WithRequires("berth >=0.1.0").
		WithField("port", "integer", 8080, map[string]any{"min": 1}).
		WithHook("before:start", 5, "make", "assets").
		WithCommand("lint", "Run the linter", "vendor/bin/phpcs").
		WithTemplate("php/php.ini.tmpl", "templates/php.ini.tmpl").
		ToYAML()

	AssertYAMLEquals(t, `
kind: berth-plugin
name: tools
version: 0.1.0
description: project tools
requires: ["berth >=0.1.0"]
config:
  - {name: port, type: integer, default: 8080, min: 1}
hooks:
  - {event: "before:start", priority: 5, run: [make, assets]}
commands:
  - {name: lint, short: Run the linter, run: [vendor/bin/phpcs]}
templates:
  php/php.ini.tmpl: templates/php.ini.tmpl
`, doc)
}

func TestDeclarationBuilder_WithKind(t *testing.T) {
	t.Parallel()

	doc := NewDeclarationBuilder("x", "1.0.0").WithKind("other").WithFactory("mailpit").ToYAML()
	assert.Contains(t, doc, "kind: other")
	assert.Contains(t, doc, "factory: mailpit")
}

func TestAssertErrorContains(t *testing.T) {
	t.Parallel()

	AssertErrorContains(t, errors.New("plugin \"x\" not found"), "not found")
}

func TestAssertFileNotExists_AfterRemove(t *testing.T) {
	t.Parallel()

	path := WriteProjectFile(t, t.TempDir(), "tmp.txt", "x")
	require.NoError(t, os.Remove(path))
	AssertFileNotExists(t, path)
}
