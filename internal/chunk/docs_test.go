package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocsChunkerMarkdownHeadings(t *testing.T) {
	c := NewDocsChunker()
	text := "# Title\nbody text\n\n## Sub\nsub body\n\n# Second\nsecond body\n"
	chunks, err := c.ChunkMarkdown(text)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Contains(t, chunks[0].Text, "# Title")
	assert.Contains(t, chunks[0].Text, "body text")
	assert.NotContains(t, chunks[0].Text, "Second")
	assert.Contains(t, chunks[1].Text, "## Sub")
	assert.Contains(t, chunks[2].Text, "# Second")
}

func TestDocsChunkerSingleSectionRoundTrip(t *testing.T) {
	c := NewDocsChunker()
	chunks, err := c.ChunkMarkdown("# Title\nbody")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 2, chunks[0].EndLine)
}

func TestDocsChunkerNonMarkdownParagraphs(t *testing.T) {
	c := NewDocsChunker()
	text := "first paragraph line one\nfirst paragraph line two\n\nsecond paragraph\n"
	chunks, err := c.ChunkText(text)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 1)
	assert.Contains(t, chunks[0].Text, "first paragraph")
}

func TestDocsChunkerEmpty(t *testing.T) {
	c := NewDocsChunker()
	chunks, err := c.ChunkMarkdown("")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestDocsChunkerNoHeadings(t *testing.T) {
	c := NewDocsChunker()
	chunks, err := c.ChunkMarkdown("just plain text\nwith no headings at all\n")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
}
