// Package policy implements the indexing policy: the should_index decision
// that filters the hard deny list, user include/exclude globs, gitignore,
// size cap, and binary detection.
package policy

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/localmcp/codesearch/internal/config"
	"github.com/localmcp/codesearch/internal/gitignore"
)

// denyPrefixes are directory-name path segments that are never indexed,
// regardless of user configuration.
var denyPrefixes = []string{
	"node_modules", "vendor", "venv", ".venv", "__pycache__",
	".git", ".hg", ".svn",
	"dist", "build", "target", "out", "bin",
	".idea", ".vscode", ".vs",
	"coverage", ".nyc_output",
	".mcpsearch", ".mcp",
}

// denyGlobs are glob patterns matched against the full relative path,
// covering secrets and lock files that must never be indexed.
var denyGlobs = []string{
	"**/.env", "**/.env.*", "**/*.pem", "**/*.key", "**/*.pfx", "**/*.p12",
	"**/id_rsa", "**/id_rsa.*", "**/id_ed25519", "**/id_ed25519.*",
	"**/*.lock", "**/go.sum",
	"**/*.min.js", "**/*.min.css",
}

// binaryExtensions are extensions that are always treated as binary without
// sniffing content.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".webp": true, ".tiff": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".xz": true, ".7z": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".a": true, ".o": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wav": true, ".flac": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	".db": true, ".sqlite": true, ".sqlite3": true,
	".class": true, ".jar": true, ".pyc": true, ".wasm": true,
}

const sniffSize = 4096

// Policy decides whether a project-relative path should be indexed, for
// either the code table or the docs table.
type Policy struct {
	root    string
	cfg     *config.Config
	maxSize int64

	gitignoreCache *lru.Cache[string, *gitignore.Matcher]
	isGitRepo      bool

	mu          sync.Mutex
	rootMatcher *gitignore.Matcher
}

// New constructs a Policy for projectRoot using cfg. It eagerly loads the
// project-root .gitignore if respectGitignore is set and the project is a
// git checkout.
func New(projectRoot string, cfg *config.Config) (*Policy, error) {
	maxSize, err := ParseSize(cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}

	cache, err := lru.New[string, *gitignore.Matcher](256)
	if err != nil {
		return nil, err
	}

	p := &Policy{
		root:           projectRoot,
		cfg:            cfg,
		maxSize:        maxSize,
		gitignoreCache: cache,
	}

	if _, statErr := os.Stat(filepath.Join(projectRoot, ".git")); statErr == nil {
		p.isGitRepo = true
	}

	if cfg.RespectGitignore && p.isGitRepo {
		m := gitignore.New()
		_ = m.AddFromFile(filepath.Join(projectRoot, ".gitignore"), "")
		p.rootMatcher = m
	}

	return p, nil
}

// ParseSize parses a human-readable size like "1MB" or "512KB" into bytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 1 << 20, nil
	}
	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1 << 30
		s = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1 << 20
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1 << 10
		s = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}
	s = strings.TrimSpace(s)
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(n * float64(multiplier)), nil
}

// Decision carries the outcome of a policy check plus, on rejection, the
// reason a caller can surface for diagnostics.
type Decision struct {
	Allow  bool
	Reason string
}

func allow() Decision { return Decision{Allow: true} }

func reject(reason string) Decision { return Decision{Allow: false, Reason: reason} }

// ShouldIndexCode evaluates relativePath against the code table's policy.
func (p *Policy) ShouldIndexCode(relativePath string) Decision {
	return p.evaluate(relativePath, false)
}

// ShouldIndexDocs evaluates relativePath against the docs table's policy:
// it requires a doc-pattern match instead of the code include set. There
// is no separate check against source-code files: a code file that matches
// a doc pattern is accepted.
func (p *Policy) ShouldIndexDocs(relativePath string) Decision {
	return p.evaluate(relativePath, true)
}

func (p *Policy) evaluate(relativePath string, docs bool) Decision {
	relativePath = filepath.ToSlash(relativePath)

	if d := p.checkDenyList(relativePath); !d.Allow {
		return d
	}

	if d := p.checkUserExclude(relativePath); !d.Allow {
		return d
	}

	if docs {
		if !matchAny(relativePath, p.cfg.DocPatterns) {
			return reject("does not match doc patterns")
		}
	} else if len(p.cfg.Include) > 0 {
		if !matchAny(relativePath, p.cfg.Include) {
			return reject("does not match include patterns")
		}
	}

	if d := p.checkGitignore(relativePath); !d.Allow {
		return d
	}

	if d := p.checkSize(relativePath); !d.Allow {
		return d
	}

	if d := p.checkBinary(relativePath); !d.Allow {
		return d
	}

	return allow()
}

func (p *Policy) checkDenyList(relativePath string) Decision {
	parts := strings.Split(relativePath, "/")
	for _, part := range parts {
		for _, deny := range denyPrefixes {
			if part == deny {
				return reject("hard deny list: " + deny)
			}
		}
	}
	for _, g := range denyGlobs {
		if ok, _ := doublestar.Match(g, relativePath); ok {
			return reject("hard deny list: " + g)
		}
	}
	return allow()
}

func (p *Policy) checkUserExclude(relativePath string) Decision {
	if matchAny(relativePath, p.cfg.Exclude) {
		return reject("user exclude pattern")
	}
	return allow()
}

func (p *Policy) checkGitignore(relativePath string) Decision {
	if !p.cfg.RespectGitignore || !p.isGitRepo {
		return allow()
	}

	p.mu.Lock()
	matcher := p.rootMatcher
	p.mu.Unlock()
	if matcher == nil {
		return allow()
	}

	dir := filepath.Dir(relativePath)
	for d := dir; d != "." && d != "/" && d != ""; d = filepath.Dir(d) {
		nested := p.nestedMatcher(d)
		if nested != nil && nested.Match(relativePath, false) {
			return reject("gitignore")
		}
		if d == filepath.Dir(d) {
			break
		}
	}

	if matcher.Match(relativePath, false) {
		return reject("gitignore")
	}
	return allow()
}

// nestedMatcher returns the cached gitignore matcher for a nested directory,
// loading and caching it from disk on first use. Returns nil if the
// directory has no .gitignore.
func (p *Policy) nestedMatcher(relDir string) *gitignore.Matcher {
	if m, ok := p.gitignoreCache.Get(relDir); ok {
		return m
	}
	gitignorePath := filepath.Join(p.root, filepath.FromSlash(relDir), ".gitignore")
	if _, err := os.Stat(gitignorePath); err != nil {
		p.gitignoreCache.Add(relDir, nil)
		return nil
	}
	m := gitignore.New()
	_ = m.AddFromFile(gitignorePath, relDir)
	p.gitignoreCache.Add(relDir, m)
	return m
}

func (p *Policy) checkSize(relativePath string) Decision {
	info, err := os.Stat(filepath.Join(p.root, filepath.FromSlash(relativePath)))
	if err != nil {
		return allow()
	}
	if info.Size() > p.maxSize {
		return reject("exceeds max file size")
	}
	return allow()
}

func (p *Policy) checkBinary(relativePath string) Decision {
	ext := strings.ToLower(filepath.Ext(relativePath))
	if binaryExtensions[ext] {
		return reject("binary extension")
	}
	if IsBinaryContent(filepath.Join(p.root, filepath.FromSlash(relativePath))) {
		return reject("binary content")
	}
	return allow()
}

// IsBinaryContent sniffs the first sniffSize bytes of path and reports
// whether the content looks binary: a UTF-16 byte-order mark (FF FE or
// FE FF), a NUL byte, or a byte distribution with too many non-text
// control bytes.
func IsBinaryContent(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, sniffSize)
	n, _ := f.Read(buf)
	buf = buf[:n]
	if n == 0 {
		return false
	}

	if bytes.HasPrefix(buf, []byte{0xFF, 0xFE}) || bytes.HasPrefix(buf, []byte{0xFE, 0xFF}) {
		return true
	}

	if bytes.IndexByte(buf, 0) >= 0 {
		return true
	}

	if utf8.Valid(buf) {
		return false
	}

	nonText := 0
	for _, b := range buf {
		if b < 0x09 || (b > 0x0D && b < 0x20) {
			nonText++
		}
	}
	return float64(nonText)/float64(len(buf)) > 0.3
}

func matchAny(relativePath string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, relativePath); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, filepath.Base(relativePath)); ok {
			return true
		}
	}
	return false
}
