// Package gitignore implements gitignore pattern matching as documented at
// https://git-scm.com/docs/gitignore, used by the indexing policy's
// respectGitignore step.
package gitignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher holds parsed gitignore rules and matches candidate paths against
// them. Matching is delegated to doublestar's glob engine rather than a
// hand-rolled regex translation: gitignore's `*`/`**`/`?`/`[...]` syntax is
// doublestar's own, so a rule's pattern is a doublestar pattern directly
// (see internal/policy, which uses the same library for its include/exclude
// globs).
type Matcher struct {
	mu    sync.RWMutex
	rules []rule
}

// rule is one parsed line of a .gitignore file.
type rule struct {
	glob     string // doublestar pattern with any leading "/" stripped
	base     string // directory this rule is scoped to ("" for the project root)
	negation bool
	dirOnly  bool
	rooted   bool // pattern contained a path separator, so it anchors to base
}

// New creates an empty Matcher.
func New() *Matcher {
	return &Matcher{}
}

// AddPattern adds a gitignore pattern rooted at the project root.
func (m *Matcher) AddPattern(pattern string) {
	m.AddPatternWithBase(pattern, "")
}

// AddPatternWithBase adds a pattern that only applies under base, for
// patterns loaded from a nested .gitignore file.
func (m *Matcher) AddPatternWithBase(pattern, base string) {
	r, ok := parseLine(pattern, base)
	if !ok {
		return
	}
	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// AddFromFile loads every pattern line from the gitignore file at path,
// scoping them to base.
func (m *Matcher) AddFromFile(path, base string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("gitignore: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.AddPatternWithBase(scanner.Text(), base)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("gitignore: read %s: %w", path, err)
	}
	return nil
}

// parseLine turns one gitignore source line into a rule. ok is false for
// blank lines and comments, which contribute no rule.
func parseLine(line, base string) (rule, bool) {
	hadEscapedTrailingSpace := strings.HasSuffix(line, `\ `)
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	r := rule{base: base}

	switch {
	case strings.HasPrefix(line, `\#`), strings.HasPrefix(line, `\!`):
		line = line[1:]
	case strings.HasPrefix(line, "!"):
		r.negation = true
		line = line[1:]
	}

	if hadEscapedTrailingSpace && strings.HasSuffix(line, `\`) {
		line = strings.TrimSuffix(line, `\`) + " "
	}

	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if line == "" {
		return rule{}, false
	}

	if strings.HasPrefix(line, "/") {
		line = strings.TrimPrefix(line, "/")
		r.rooted = true
	} else if strings.Contains(line, "/") && !strings.HasPrefix(line, "**/") {
		// A slash anywhere but a leading "**/" anchors the pattern to base,
		// per gitignore's rule that only a pure basename pattern floats to
		// any depth. "**/" is itself the depth-agnostic marker and is left
		// for doublestar to interpret, not treated as anchoring.
		r.rooted = true
	}

	r.glob = line
	return r, true
}

// Match reports whether path (forward-slash, project-relative) should be
// ignored, applying rules in declaration order so a later negation can
// override an earlier match.
func (m *Matcher) Match(path string, isDir bool) bool {
	path = filepath.ToSlash(path)

	m.mu.RLock()
	defer m.mu.RUnlock()

	ignored := false
	for _, r := range m.rules {
		if r.matches(path, isDir) {
			ignored = !r.negation
		}
	}
	return ignored
}

// matches decides whether r applies to path, first narrowing path to r's
// base scope.
func (r rule) matches(path string, isDir bool) bool {
	rel := path
	if r.base != "" {
		switch {
		case path == r.base:
			rel = filepath.Base(path)
		case strings.HasPrefix(path, r.base+"/"):
			rel = strings.TrimPrefix(path, r.base+"/")
		default:
			return false
		}
	}

	if r.rooted {
		return r.matchRooted(rel, isDir)
	}
	return r.matchAnyDepth(rel, isDir)
}

// matchRooted matches a pattern anchored to the start of rel: the glob must
// consume rel in full, or (for a dirOnly pattern) consume a leading
// directory component, which ignores everything beneath it.
func (r rule) matchRooted(rel string, isDir bool) bool {
	if ok, _ := doublestar.Match(r.glob, rel); ok {
		if r.dirOnly {
			return isDir
		}
		return true
	}
	if !r.dirOnly {
		return false
	}
	segments := strings.Split(rel, "/")
	for i := 1; i < len(segments); i++ {
		ancestor := strings.Join(segments[:i], "/")
		if ok, _ := doublestar.Match(r.glob, ancestor); ok {
			return true
		}
	}
	return false
}

// matchAnyDepth matches an un-anchored pattern, which gitignore lets match
// starting at any path component. A pattern with no separator is tested
// against each individual segment (a basename match); a pattern containing
// "**/" is handed to matchRooted against every path suffix, since "**/"
// itself already encodes "any depth" within doublestar's own semantics.
func (r rule) matchAnyDepth(rel string, isDir bool) bool {
	if !strings.Contains(r.glob, "/") {
		return r.matchAnySegment(rel, isDir)
	}
	segments := strings.Split(rel, "/")
	for start := range segments {
		suffix := strings.Join(segments[start:], "/")
		if r.matchRooted(suffix, isDir) {
			return true
		}
	}
	return false
}

// matchAnySegment matches a slash-free pattern against each path component
// of rel in turn. A match on an interior component ignores everything
// beneath it regardless of dirOnly, since a matched directory's whole
// subtree is ignored; a match on the final component respects dirOnly.
func (r rule) matchAnySegment(rel string, isDir bool) bool {
	segments := strings.Split(rel, "/")
	for i, seg := range segments {
		ok, _ := doublestar.Match(r.glob, seg)
		if !ok {
			continue
		}
		if i < len(segments)-1 {
			return true
		}
		if r.dirOnly {
			return isDir
		}
		return true
	}
	return false
}
