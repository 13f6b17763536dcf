package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GoldenDir holds the golden files, relative to the test's package.
const GoldenDir = "testdata"

// Golden compares output against testdata/<name>.golden.
// With GOLDEN_UPDATE set the file is rewritten instead.
func Golden(t testing.TB, name string, got []byte) {
	t.Helper()
	path := filepath.Join(GoldenDir, name+".golden")

	if os.Getenv("GOLDEN_UPDATE") != "" {
		require.NoError(t, os.MkdirAll(GoldenDir, 0755))
		require.NoError(t, os.WriteFile(path, got, 0644))
		return
	}

	want, err := os.ReadFile(path)
	require.NoError(t, err, "golden file %s; got:\n%s", path, got)
	assert.Equal(t, string(want), string(got), "output mismatch for %s", name)
}

// GoldenString is Golden for a string.
func GoldenString(t testing.TB, name string, got string) {
	t.Helper()
	Golden(t, name, []byte(got))
}
