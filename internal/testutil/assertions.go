package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertFileExists fails unless a regular file exists at path.
func AssertFileExists(t testing.TB, path string, msgAndArgs ...any) {
	t.Helper()
	assert.FileExists(t, path, msgAndArgs...)
}

// AssertFileNotExists fails when anything exists at path.
func AssertFileNotExists(t testing.TB, path string, msgAndArgs ...any) {
	t.Helper()
	_, err := os.Lstat(path)
	assert.ErrorIs(t, err, os.ErrNotExist, msgAndArgs...)
}

// AssertFileContains reads path and checks it contains want. Generated
// files such as berth.yaml and xdebug.ini are checked this way.
func AssertFileContains(t testing.TB, path, want string, msgAndArgs ...any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "reading %s", path)
	assert.Contains(t, string(data), want, msgAndArgs...)
}

// AssertYAMLEquals compares two YAML documents by value.
func AssertYAMLEquals(t testing.TB, expected, actual string, msgAndArgs ...any) {
	t.Helper()
	assert.YAMLEq(t, expected, actual, msgAndArgs...)
}

// AssertErrorContains stops the test unless err is non-nil and its message
// contains want.
func AssertErrorContains(t testing.TB, err error, want string, msgAndArgs ...any) {
	t.Helper()
	require.ErrorContains(t, err, want, msgAndArgs...)
}
