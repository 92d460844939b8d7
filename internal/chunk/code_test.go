package chunk

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeChunkerSmallFile(t *testing.T) {
	c := NewCodeChunker()
	chunks, err := c.ChunkText("hello\nworld")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello\nworld", chunks[0].Text)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 2, chunks[0].EndLine)
}

func TestCodeChunkerStripsBlankLines(t *testing.T) {
	c := NewCodeChunker()
	chunks, err := c.ChunkText("\n\nfunc main() {}\n\n\n")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "func main() {}", chunks[0].Text)
	assert.Equal(t, 3, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine)
}

func TestCodeChunkerEmpty(t *testing.T) {
	c := NewCodeChunker()
	chunks, err := c.ChunkText("")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestCodeChunkerLargeFileProducesOverlappingChunks(t *testing.T) {
	c := NewCodeChunkerWithOptions(Options{MaxChars: 200, OverlapChars: 40})

	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("line number marker content here\n")
	}
	chunks, err := c.ChunkText(b.String())
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, ch := range chunks {
		assert.LessOrEqual(t, ch.StartLine, ch.EndLine, "chunk %d", i)
		assert.GreaterOrEqual(t, ch.StartLine, 1)
	}
	// adjacent chunks must overlap in line coverage
	for i := 1; i < len(chunks); i++ {
		assert.LessOrEqual(t, chunks[i].StartLine, chunks[i-1].EndLine+1)
	}
}

func TestCodeChunkerPrefersBlankLineBoundary(t *testing.T) {
	c := NewCodeChunkerWithOptions(Options{MaxChars: 50, OverlapChars: 5})
	text := strings.Repeat("x", 40) + "\n\n" + strings.Repeat("y", 40) + "\n"
	chunks, err := c.ChunkText(text)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, strings.Repeat("x", 40), chunks[0].Text)
}

func TestCodeChunkerHugeSingleLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "huge.txt")
	line := strings.Repeat("a", 10*1024*1024)
	require.NoError(t, os.WriteFile(path, []byte(line), 0o644))

	c := NewCodeChunker()
	chunks, err := c.ChunkFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 1)
	assert.Equal(t, 1, chunks[0].StartLine)
}

func TestCodeChunkerMissingFile(t *testing.T) {
	c := NewCodeChunker()
	_, err := c.ChunkFile("/nonexistent/path/does/not/exist.go")
	assert.Error(t, err)
}
