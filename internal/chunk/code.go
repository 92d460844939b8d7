package chunk

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/localmcp/codesearch/internal/mcperrors"
)

// lineRec is one buffered line awaiting assignment to a chunk, along with
// the running brace-balance depth immediately after it (used to prefer
// splitting on a balanced-brace boundary).
type lineRec struct {
	text      string
	num       int
	braceDiff int // running brace depth (opens - closes) up to and including this line
}

// CodeChunker splits source text into overlapping chunks on blank-line or
// balanced-brace boundaries where possible, falling back to hard line
// cuts. It streams its input so a single huge file is never held in
// memory all at once.
type CodeChunker struct {
	opts Options
}

// NewCodeChunker returns a CodeChunker with the default character budget.
func NewCodeChunker() *CodeChunker {
	return &CodeChunker{opts: DefaultCodeOptions()}
}

// NewCodeChunkerWithOptions returns a CodeChunker using a caller-supplied
// budget, falling back to defaults for zero fields.
func NewCodeChunkerWithOptions(opts Options) *CodeChunker {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultCodeOptions().MaxChars
	}
	if opts.OverlapChars < 0 || opts.OverlapChars >= opts.MaxChars {
		opts.OverlapChars = DefaultCodeOptions().OverlapChars
	}
	return &CodeChunker{opts: opts}
}

// ChunkText splits in-memory text into chunks.
func (c *CodeChunker) ChunkText(text string) ([]Chunk, error) {
	return c.chunkReader(strings.NewReader(text))
}

// ChunkFile streams path from disk, producing chunks without holding the
// whole file in memory. On any read error the underlying file is closed
// on every exit path and a read-error is returned.
func (c *CodeChunker) ChunkFile(path string) ([]Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mcperrors.Wrap(mcperrors.CodeReadError, "open file for chunking", err)
	}
	defer f.Close()

	chunks, err := c.chunkReader(f)
	if err != nil {
		return nil, mcperrors.Wrap(mcperrors.CodeReadError, "read file for chunking", err)
	}
	return chunks, nil
}

// searchWindowFraction is the trailing share of the character budget in
// which the chunker looks for a blank-line or brace-balanced split point
// before giving up and hard-cutting at the last line.
const searchWindowFraction = 0.3

func (c *CodeChunker) chunkReader(r io.Reader) ([]Chunk, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var (
		chunks  []Chunk
		buf     []lineRec
		bufLen  int
		lineNum int
		depth   int
	)

	flush := func(upto int) {
		if upto <= 0 {
			return
		}
		if ch, ok := buildChunk(buf[:upto]); ok {
			chunks = append(chunks, ch)
		}

		kept := overlapTail(buf[:upto], c.opts.OverlapChars)
		rest := append([]lineRec{}, kept...)
		rest = append(rest, buf[upto:]...)
		buf = rest
		bufLen = 0
		for _, l := range buf {
			bufLen += len(l.text) + 1
		}
	}

	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			lineNum++
			text := strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			d := braceDelta(text)
			depth += d
			buf = append(buf, lineRec{text: text, num: lineNum, braceDiff: depth})
			bufLen += len(text) + 1

			if bufLen >= c.opts.MaxChars {
				split := findSplit(buf, c.opts.MaxChars, searchWindowFraction)
				flush(split)
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
	}

	if len(buf) > 0 {
		if ch, ok := buildChunk(buf); ok {
			chunks = append(chunks, ch)
		}
	}

	return chunks, nil
}

// findSplit scans buf backward from its end, looking for a blank line or a
// line after which the running brace depth is zero (a "balanced"
// boundary). Only split points that leave the first chunk at least
// (1 - fraction) of maxChars long are considered, i.e. the search covers
// the trailing fraction of the budget. It returns the exclusive end index
// of the first chunk; falls back to len(buf) (hard line cut) if nothing
// suitable is found.
func findSplit(buf []lineRec, maxChars int, fraction float64) int {
	if len(buf) == 0 {
		return 0
	}
	minChunkChars := maxChars - int(float64(maxChars)*fraction)

	// end is the character length of buf[:i+1] at each step.
	end := 0
	for _, l := range buf {
		end += len(l.text) + 1
	}
	for i := len(buf) - 1; i >= 0; i-- {
		if end < minChunkChars {
			break
		}
		if i > 0 {
			if strings.TrimSpace(buf[i].text) == "" {
				return i + 1
			}
			if buf[i].braceDiff == 0 && i != len(buf)-1 {
				return i + 1
			}
		}
		end -= len(buf[i].text) + 1
	}
	return len(buf)
}

// braceDelta counts net brace/paren/bracket opens minus closes on a line,
// a cheap proxy for "balanced boundary" that doesn't require a real parser.
func braceDelta(line string) int {
	delta := 0
	for _, r := range line {
		switch r {
		case '{', '(', '[':
			delta++
		case '}', ')', ']':
			delta--
		}
	}
	return delta
}

// overlapTail returns the trailing lines of a flushed window whose total
// character count is <= overlapChars, for seeding the next chunk's lead-in.
func overlapTail(lines []lineRec, overlapChars int) []lineRec {
	if overlapChars <= 0 || len(lines) == 0 {
		return nil
	}
	total := 0
	start := len(lines)
	for i := len(lines) - 1; i >= 0; i-- {
		total += len(lines[i].text) + 1
		if total > overlapChars {
			break
		}
		start = i
	}
	return lines[start:]
}

// buildChunk strips leading/trailing blank lines from lines while
// preserving the accurate line span of the retained content. Returns
// ok=false if nothing but blank lines remain.
func buildChunk(lines []lineRec) (Chunk, bool) {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start].text) == "" {
		start++
	}
	end := len(lines) - 1
	for end >= start && strings.TrimSpace(lines[end].text) == "" {
		end--
	}
	if start > end {
		return Chunk{}, false
	}

	texts := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		texts = append(texts, lines[i].text)
	}

	return Chunk{
		Text:      strings.Join(texts, "\n"),
		StartLine: lines[start].num,
		EndLine:   lines[end].num,
	}, true
}
