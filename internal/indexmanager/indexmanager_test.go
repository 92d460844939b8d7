package indexmanager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localmcp/codesearch/internal/chunk"
	"github.com/localmcp/codesearch/internal/embedder"
	"github.com/localmcp/codesearch/internal/fingerprint"
	"github.com/localmcp/codesearch/internal/lock"
	"github.com/localmcp/codesearch/internal/metadata"
	"github.com/localmcp/codesearch/internal/policy"
	"github.com/localmcp/codesearch/internal/vectorstore"
)

func allowAll(string) policy.Decision { return policy.Decision{Allow: true} }

func newTestManager(t *testing.T, root string) *Manager {
	t.Helper()
	dataDir := t.TempDir()

	store, err := vectorstore.Open(filepath.Join(dataDir, "code"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	fp := fingerprint.New(filepath.Join(dataDir, "fingerprints.json"))
	meta := metadata.New(filepath.Join(dataDir, "metadata.json"), root, time.Unix(0, 0))

	return New(Config{
		Root:         root,
		Table:        TableCode,
		ShouldIndex:  allowAll,
		Chunker:      chunk.NewCodeChunker(),
		Embedder:     embedder.NewStatic(8, "static-test"),
		Store:        store,
		Fingerprints: fp,
		Metadata:     meta,
		Lock:         lock.NewIndexingLock(),
		MaxFiles:     1000,
	})
}

func TestCreateFullIndexIndexesAllowedFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("func main() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte("func helper() {}\n"), 0o644))

	m := newTestManager(t, root)
	require.NoError(t, m.CreateFullIndex(context.Background(), nil))

	n, err := m.store.CountChunks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, m.fingerprints.Len())
}

func TestCreateFullIndexStampsContentHashMatchingFingerprint(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("func main() {}\n"), 0o644))

	m := newTestManager(t, root)
	require.NoError(t, m.CreateFullIndex(context.Background(), nil))

	wantHash, ok := m.fingerprints.Get("a.go")
	require.True(t, ok)

	files, err := m.store.GetIndexedFiles(context.Background(), 10)
	require.NoError(t, err)
	require.Contains(t, files, "a.go")

	results, err := m.store.Search(context.Background(), testQuery(t, m, "main"), 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, wantHash, r.ContentHash)
	}
}

func TestUpdateFileReplacesChunks(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("func main() {}\n"), 0o644))

	m := newTestManager(t, root)
	require.NoError(t, m.CreateFullIndex(context.Background(), nil))

	require.NoError(t, os.WriteFile(path, []byte("func main() {}\nfunc extra() {}\n"), 0o644))
	require.NoError(t, m.UpdateFile(context.Background(), "a.go"))

	results, err := m.store.Search(context.Background(), testQuery(t, m, "extra"), 10)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestUpdateFileExcludedRemovesChunks(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("func main() {}\n"), 0o644))

	m := newTestManager(t, root)
	require.NoError(t, m.CreateFullIndex(context.Background(), nil))

	m.shouldIndex = func(string) policy.Decision { return policy.Decision{Allow: false, Reason: "test"} }
	require.NoError(t, m.UpdateFile(context.Background(), "a.go"))

	n, err := m.store.CountChunks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, ok := fpGet(m, "a.go")
	assert.False(t, ok)
}

func TestRemoveFileDeletesChunksAndFingerprint(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("func main() {}\n"), 0o644))

	m := newTestManager(t, root)
	require.NoError(t, m.CreateFullIndex(context.Background(), nil))
	require.NoError(t, m.RemoveFile(context.Background(), "a.go"))

	n, err := m.store.CountChunks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func fpGet(m *Manager, path string) (string, bool) {
	return m.fingerprints.Get(path)
}

func testQuery(t *testing.T, m *Manager, text string) []float32 {
	t.Helper()
	vectors, errs := m.embed.EmbedBatch(context.Background(), []string{text}, embedder.DomainQuery)
	require.NoError(t, errs[0])
	return vectors[0]
}
