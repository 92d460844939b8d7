package chunk

import (
	"os"
	"regexp"
	"strings"

	"github.com/localmcp/codesearch/internal/mcperrors"
)

var headingPattern = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+(.+)$`)

// DocsChunker is the prose-optimized chunker: Markdown text is split on
// heading boundaries (a chunk is a heading plus its body
// up to the next sibling-or-higher heading); non-Markdown text is split
// on blank lines and packed into paragraphs up to the character budget.
// Overlap is minimal because prose tolerates boundary splits better than
// code.
type DocsChunker struct {
	opts Options
}

// NewDocsChunker returns a DocsChunker with the default character budget.
func NewDocsChunker() *DocsChunker {
	return &DocsChunker{opts: DefaultDocsOptions()}
}

// NewDocsChunkerWithOptions returns a DocsChunker using a caller-supplied
// budget, falling back to defaults for zero fields.
func NewDocsChunkerWithOptions(opts Options) *DocsChunker {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultDocsOptions().MaxChars
	}
	if opts.OverlapChars < 0 {
		opts.OverlapChars = DefaultDocsOptions().OverlapChars
	}
	return &DocsChunker{opts: opts}
}

// ChunkFile reads path and chunks it, treating it as Markdown when its
// extension suggests prose structure (.md, .markdown, .mdx); everything
// else uses the blank-line paragraph packer.
func (c *DocsChunker) ChunkFile(path string) ([]Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mcperrors.Wrap(mcperrors.CodeReadError, "read docs file", err)
	}
	ext := strings.ToLower(path[strings.LastIndex(path, ".")+1:])
	if ext == "md" || ext == "markdown" || ext == "mdx" {
		return c.ChunkMarkdown(string(data))
	}
	return c.ChunkText(string(data))
}

// ChunkMarkdown splits text on heading boundaries. A chunk spans a heading
// line through the line before the next heading of equal or shallower
// depth, truncated to the character budget; content before the first
// heading is its own chunk.
func (c *DocsChunker) ChunkMarkdown(text string) ([]Chunk, error) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil, nil
	}

	type heading struct {
		line  int // 0-based index into lines
		level int
	}
	var headings []heading
	for i, l := range lines {
		if m := headingPattern.FindStringSubmatch(l); m != nil {
			headings = append(headings, heading{line: i, level: len(m[1])})
		}
	}

	var chunks []Chunk
	appendSection := func(startIdx, endIdx int) {
		chunks = append(chunks, c.packSection(lines, startIdx, endIdx)...)
	}

	if len(headings) == 0 {
		appendSection(0, len(lines))
		return chunks, nil
	}

	if headings[0].line > 0 {
		appendSection(0, headings[0].line)
	}

	for i, h := range headings {
		end := len(lines)
		for j := i + 1; j < len(headings); j++ {
			if headings[j].level <= h.level {
				end = headings[j].line
				break
			}
		}
		appendSection(h.line, end)
	}

	return chunks, nil
}

// packSection turns one heading section (or the leading frontmatter
// section) into one or more chunks, splitting further only if the section
// exceeds the character budget.
func (c *DocsChunker) packSection(lines []string, start, end int) []Chunk {
	section := lines[start:end]
	if len(section) == 0 {
		return nil
	}

	total := 0
	for _, l := range section {
		total += len(l) + 1
	}
	if total <= c.opts.MaxChars {
		recs := toLineRecs(section, start+1)
		if ch, ok := buildChunk(recs); ok {
			return []Chunk{ch}
		}
		return nil
	}

	return c.packParagraphs(section, start+1)
}

// ChunkText splits non-Markdown prose on blank lines, packing consecutive
// paragraphs until the character budget is reached (see packParagraphs),
// with a small one-sentence overlap between adjacent chunks.
func (c *DocsChunker) ChunkText(text string) ([]Chunk, error) {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil, nil
	}
	return c.packParagraphs(lines, 1), nil
}

// packParagraphs greedily accumulates lines into chunks. Once a chunk has
// reached MaxChars it is closed at the next blank line, so a chunk can
// exceed MaxChars by the rest of its last paragraph; a chunk that reaches
// twice MaxChars is closed at once. Each new chunk is seeded with the
// overlapSentence of the previous one.
func (c *DocsChunker) packParagraphs(lines []string, firstLineNum int) []Chunk {
	var chunks []Chunk
	var current []lineRec
	currentLen := 0
	lineNum := firstLineNum

	flush := func() {
		if ch, ok := buildChunk(current); ok {
			chunks = append(chunks, ch)
		}
		current = overlapSentence(current)
		currentLen = 0
		for _, l := range current {
			currentLen += len(l.text) + 1
		}
	}

	for _, l := range lines {
		isBlank := strings.TrimSpace(l) == ""
		if currentLen >= c.opts.MaxChars && isBlank {
			flush()
		}
		current = append(current, lineRec{text: l, num: lineNum})
		currentLen += len(l) + 1
		lineNum++

		if currentLen >= c.opts.MaxChars*2 {
			flush()
		}
	}
	if len(current) > 0 {
		if ch, ok := buildChunk(current); ok {
			chunks = append(chunks, ch)
		}
	}
	return chunks
}

// overlapSentence returns the text after the last ". " on the final line
// of the given lines, as a single-line carry-forward for the next chunk,
// or nil when that line contains no ". ". Prose overlap is intentionally
// minimal.
func overlapSentence(lines []lineRec) []lineRec {
	if len(lines) == 0 {
		return nil
	}
	last := lines[len(lines)-1]
	parts := strings.Split(last.text, ". ")
	if len(parts) <= 1 {
		return nil
	}
	sentence := parts[len(parts)-1]
	if strings.TrimSpace(sentence) == "" {
		return nil
	}
	return []lineRec{{text: sentence, num: last.num}}
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(normalized, "\n")
}

func toLineRecs(lines []string, firstLineNum int) []lineRec {
	recs := make([]lineRec, len(lines))
	for i, l := range lines {
		recs[i] = lineRec{text: l, num: firstLineNum + i}
	}
	return recs
}
