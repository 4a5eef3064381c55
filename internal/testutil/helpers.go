// Package testutil provides test helpers and utilities for berth tests.
package testutil

import (
	"embed"
	"os"
	"path"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

//go:embed fixtures/*
var fixturesFS embed.FS

// WriteProjectFile writes content to root/rel, creating parent directories.
func WriteProjectFile(t testing.TB, root, rel, content string) string {
	t.Helper()

	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755), "failed to create directory for %s", rel)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644), "failed to write %s", rel)

	return p
}

// WriteProjectConfig writes root/berth.yaml.
func WriteProjectConfig(t testing.TB, root, content string) string {
	t.Helper()
	return WriteProjectFile(t, root, "berth.yaml", content)
}

// WriteLocalPlugin writes a plugin declaration to root/.berth/plugins/<dir>/plugin.yaml.
func WriteLocalPlugin(t testing.TB, root, dir, content string) string {
	t.Helper()
	return WriteProjectFile(t, root, path.Join(".berth/plugins", dir, "plugin.yaml"), content)
}

// LoadFixture loads a fixture file from the embedded fixtures directory.
func LoadFixture(t testing.TB, name string) []byte {
	t.Helper()

	content, err := fixturesFS.ReadFile(path.Join("fixtures", name))
	require.NoError(t, err, "failed to load fixture: %s", name)

	return content
}

// WriteFixture copies a fixture to root/rel.
func WriteFixture(t testing.TB, root, name, rel string) string {
	t.Helper()
	return WriteProjectFile(t, root, rel, string(LoadFixture(t, name)))
}
