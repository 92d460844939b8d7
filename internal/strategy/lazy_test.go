package strategy

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localmcp/codesearch/internal/dirtyfiles"
)

func newTestLazy(t *testing.T, indexers ...FileIndexer) (*Lazy, *dirtyfiles.Set) {
	t.Helper()
	set := dirtyfiles.New(filepath.Join(t.TempDir(), "dirty-files.json"))
	l := NewLazy(LazyConfig{
		Root:       t.TempDir(),
		Indexers:   indexers,
		DirtyFiles: set,
	})
	return l, set
}

func TestLazy_FlushAppliesDeletionsBeforeChanges(t *testing.T) {
	idx := &fakeIndexer{}
	l, set := newTestLazy(t, idx)

	set.MarkChanged("a.go")
	set.MarkDeleted("b.go")

	require.NoError(t, l.Flush(context.Background()))

	updated, removed := idx.snapshot()
	assert.Equal(t, []string{"a.go"}, updated)
	assert.Equal(t, []string{"b.go"}, removed)
	assert.True(t, set.IsEmpty())
}

func TestLazy_FlushWithNoPendingWorkIsNoOp(t *testing.T) {
	idx := &fakeIndexer{}
	l, _ := newTestLazy(t, idx)

	require.NoError(t, l.Flush(context.Background()))

	updated, removed := idx.snapshot()
	assert.Empty(t, updated)
	assert.Empty(t, removed)
}

func TestLazy_StatsReportsPendingCount(t *testing.T) {
	idx := &fakeIndexer{}
	l, set := newTestLazy(t, idx)

	set.MarkChanged("a.go")
	set.MarkChanged("c.go")

	assert.Equal(t, 2, l.Stats().PendingFiles)
}

func TestLazy_ChangeSupersedesPriorDelete(t *testing.T) {
	idx := &fakeIndexer{}
	l, set := newTestLazy(t, idx)

	set.MarkDeleted("a.go")
	set.MarkChanged("a.go")

	require.NoError(t, l.Flush(context.Background()))
	updated, removed := idx.snapshot()
	assert.Equal(t, []string{"a.go"}, updated)
	assert.Empty(t, removed)
}
