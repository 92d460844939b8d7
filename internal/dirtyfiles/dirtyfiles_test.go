package dirtyfiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkChangedAndDrain(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "dirty.json"))
	s.MarkChanged("a.go")
	s.MarkChanged("b.go")
	s.MarkDeleted("c.go")

	changed, deleted := s.Drain()
	assert.ElementsMatch(t, []string{"a.go", "b.go"}, changed)
	assert.Equal(t, []string{"c.go"}, deleted)
	assert.True(t, s.IsEmpty())
}

func TestMarkChangedSupersedesDeleted(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "dirty.json"))
	s.MarkDeleted("a.go")
	s.MarkChanged("a.go")

	changed, deleted := s.Drain()
	assert.Equal(t, []string{"a.go"}, changed)
	assert.Empty(t, deleted)
}

func TestMarkDeletedSupersedesChanged(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "dirty.json"))
	s.MarkChanged("a.go")
	s.MarkDeleted("a.go")

	changed, deleted := s.Drain()
	assert.Empty(t, changed)
	assert.Equal(t, []string{"a.go"}, deleted)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dirty.json")
	s := New(path)
	s.MarkChanged("a.go")
	s.MarkDeleted("b.go")
	require.NoError(t, s.Save())

	s2 := New(path)
	require.NoError(t, s2.Load())
	changed, deleted := s2.Drain()
	assert.Equal(t, []string{"a.go"}, changed)
	assert.Equal(t, []string{"b.go"}, deleted)
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, s.Load())
	assert.True(t, s.IsEmpty())
}

func TestLoadCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dirty.json")
	s := New(path)
	s.MarkChanged("a.go")
	require.NoError(t, s.Save())

	require.NoError(t, writeBadJSON(path))
	s2 := New(path)
	require.NoError(t, s2.Load())
	assert.True(t, s2.IsEmpty())
}

func writeBadJSON(path string) error {
	return os.WriteFile(path, []byte("{not valid"), 0o644)
}
