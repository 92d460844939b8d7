package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(dim int, seed float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = seed + float32(i)*0.001
	}
	return v
}

func TestInsertChunksNoopOnEmpty(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.InsertChunks(context.Background(), nil))
	n, err := s.CountChunks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestInsertAndSearchRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	err = s.InsertChunks(ctx, []Record{
		{Path: "a.go", Text: "func main() {}", Vector: vec(8, 1.0), StartLine: 1, EndLine: 1},
		{Path: "b.go", Text: "func helper() {}", Vector: vec(8, 5.0), StartLine: 1, EndLine: 1},
	})
	require.NoError(t, err)

	results, err := s.Search(ctx, vec(8, 1.0), 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a.go", results[0].Path)
	assert.Greater(t, results[0].Score, float32(0))
	assert.LessOrEqual(t, results[0].Score, float32(1))
}

func TestInsertChunksCarriesContentHash(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	const hash = "deadbeefcafef00d"
	require.NoError(t, s.InsertChunks(ctx, []Record{
		{Path: "a.go", Text: "func main() {}", Vector: vec(8, 1.0), StartLine: 1, EndLine: 1, ContentHash: hash},
		{Path: "a.go", Text: "func helper() {}", Vector: vec(8, 1.0), StartLine: 2, EndLine: 2, ContentHash: hash},
	}))

	results, err := s.Search(ctx, vec(8, 1.0), 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, hash, r.ContentHash, "every chunk of one file shares its content_hash")
	}
}

func TestSearchEmptyTableReturnsEmpty(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	results, err := s.Search(context.Background(), vec(8, 1.0), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchDimensionMismatch(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.InsertChunks(ctx, []Record{
		{Path: "a.go", Text: "x", Vector: vec(8, 1.0), StartLine: 1, EndLine: 1},
	}))

	_, err = s.Search(ctx, vec(4, 1.0), 5)
	assert.ErrorAs(t, err, &ErrDimensionMismatch{})
}

func TestDeleteByPathRemovesChunksAndReturnsCount(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.InsertChunks(ctx, []Record{
		{Path: "a.go", Text: "x", Vector: vec(8, 1.0), StartLine: 1, EndLine: 1},
		{Path: "a.go", Text: "y", Vector: vec(8, 1.0), StartLine: 2, EndLine: 2},
		{Path: "b.go", Text: "z", Vector: vec(8, 5.0), StartLine: 1, EndLine: 1},
	}))

	count, err := s.DeleteByPath(ctx, "a.go")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	n, err := s.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	files, err := s.GetIndexedFiles(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.go"}, files)
}

func TestGetIndexedFilesSortedAndPaginated(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	var records []Record
	for _, p := range []string{"c.go", "a.go", "b.go"} {
		records = append(records, Record{Path: p, Text: "x", Vector: vec(8, 1.0), StartLine: 1, EndLine: 1})
	}
	require.NoError(t, s.InsertChunks(ctx, records))

	files, err := s.GetIndexedFiles(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go"}, files)
}

func TestSearchByPathGlob(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.InsertChunks(ctx, []Record{
		{Path: "internal/foo/a.go", Text: "x", Vector: vec(8, 1.0), StartLine: 1, EndLine: 1},
		{Path: "internal/bar/b.go", Text: "x", Vector: vec(8, 1.0), StartLine: 1, EndLine: 1},
		{Path: "cmd/main.go", Text: "x", Vector: vec(8, 1.0), StartLine: 1, EndLine: 1},
	}))

	matches, err := s.SearchByPath(ctx, "internal/**/*.go", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"internal/foo/a.go", "internal/bar/b.go"}, matches)
}

func TestSearchByPathEscapesSpecialCharacters(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.InsertChunks(ctx, []Record{
		{Path: "weird_name%.go", Text: "x", Vector: vec(8, 1.0), StartLine: 1, EndLine: 1},
		{Path: "weirdXname%.go", Text: "x", Vector: vec(8, 1.0), StartLine: 1, EndLine: 1},
	}))

	matches, err := s.SearchByPath(ctx, "weird_name%.go", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"weird_name%.go"}, matches)
}

func TestPersistenceRoundTripAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.InsertChunks(ctx, []Record{
		{Path: "a.go", Text: "hello", Vector: vec(8, 1.0), StartLine: 1, EndLine: 1},
	}))
	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	n, err := s2.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := s2.Search(ctx, vec(8, 1.0), 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.go", results[0].Path)
}

func TestHasDataAndDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "table")
	s, err := Open(dir)
	require.NoError(t, err)

	ctx := context.Background()
	has, err := s.HasData(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.InsertChunks(ctx, []Record{
		{Path: "a.go", Text: "x", Vector: vec(8, 1.0), StartLine: 1, EndLine: 1},
	}))
	has, err = s.HasData(ctx)
	require.NoError(t, err)
	assert.True(t, has)

	size, err := s.GetStorageSize()
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))

	require.NoError(t, s.Close())
	require.NoError(t, s.Delete())
	_, statErr := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, statErr)
}
