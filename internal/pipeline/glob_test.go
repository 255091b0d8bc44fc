package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(filepath.Base(path)), 0o644))
}

func TestExpandGlobs(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "export", "b.csv"))
	touch(t, filepath.Join(dir, "export", "a.csv"))
	touch(t, filepath.Join(dir, "export", "nested", "c.csv"))
	touch(t, filepath.Join(dir, "export", "layer.gpkg"))

	files, err := ExpandGlobs(dir, []string{"export/**/*.csv", "export/a.csv", filepath.Join(dir, "export", "*.gpkg")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "export", "a.csv"),
		filepath.Join(dir, "export", "b.csv"),
		filepath.Join(dir, "export", "layer.gpkg"),
		filepath.Join(dir, "export", "nested", "c.csv"),
	}, files)
}

func TestExpandGlobs_NoMatch(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.csv"))

	_, err := ExpandGlobs(dir, []string{"a.csv", "missing/*.csv"})
	assert.ErrorIs(t, err, ErrNoMatch)

	// directories are not artifacts
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.csv"), 0o755))
	_, err = ExpandGlobs(dir, []string{"dir.csv"})
	assert.ErrorIs(t, err, ErrNoMatch)
}
