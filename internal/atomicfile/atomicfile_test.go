package atomicfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_CreatesFileWithContent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "state.json")

	err := Write(target, []byte(`{"a":1}`), 0o644)

	require.NoError(t, err)
	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}

func TestWrite_CreatesMissingParentDirs(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "deep", "state.json")

	err := Write(target, []byte("x"), 0o644)

	require.NoError(t, err)
	_, err = os.Stat(target)
	assert.NoError(t, err)
}

func TestWrite_OverwritesExistingFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))

	err := Write(target, []byte("new"), 0o644)

	require.NoError(t, err)
	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestWrite_LeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "state.json")

	require.NoError(t, Write(target, []byte("x"), 0o644))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())
}
