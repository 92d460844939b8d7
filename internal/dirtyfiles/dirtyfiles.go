// Package dirtyfiles persists the lazy strategy's pending-work set
// (dirty-files.json), tracking both paths awaiting reindexing and paths
// awaiting removal.
package dirtyfiles

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/localmcp/codesearch/internal/atomicfile"
)

const schemaVersion = 1

// deletedPrefix marks a path as pending removal rather than reindex.
const deletedPrefix = "__deleted__:"

type onDisk struct {
	Version    int      `json:"version"`
	DirtyFiles []string `json:"dirtyFiles"`
}

// Set is the in-memory, persisted set of paths the lazy strategy has not
// yet flushed. A path is in exactly one of the pending or deleted subsets
// at a time.
type Set struct {
	path string

	mu      sync.Mutex
	pending map[string]struct{}
	deleted map[string]struct{}
}

// New returns an empty Set backed by path.
func New(path string) *Set {
	return &Set{
		path:    path,
		pending: make(map[string]struct{}),
		deleted: make(map[string]struct{}),
	}
}

// Load reads the set from disk. A missing or corrupt file starts empty.
func (s *Set) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var parsed onDisk
	if jsonErr := json.Unmarshal(data, &parsed); jsonErr != nil || parsed.Version != schemaVersion {
		return nil
	}

	s.pending = make(map[string]struct{})
	s.deleted = make(map[string]struct{})
	for _, entry := range parsed.DirtyFiles {
		if rel, ok := stripDeletedPrefix(entry); ok {
			s.deleted[rel] = struct{}{}
		} else {
			s.pending[entry] = struct{}{}
		}
	}
	return nil
}

// Save persists the set atomically.
func (s *Set) Save() error {
	s.mu.Lock()
	entries := make([]string, 0, len(s.pending)+len(s.deleted))
	for p := range s.pending {
		entries = append(entries, p)
	}
	for p := range s.deleted {
		entries = append(entries, deletedPrefix+p)
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(onDisk{Version: schemaVersion, DirtyFiles: entries}, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return atomicfile.Write(s.path, data, 0o644)
}

// MarkChanged records path as needing a reindex, clearing any pending
// deletion for the same path (a change supersedes a prior delete mark).
func (s *Set) MarkChanged(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deleted, path)
	s.pending[path] = struct{}{}
}

// MarkDeleted records path as needing removal, clearing any pending change
// for the same path.
func (s *Set) MarkDeleted(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, path)
	s.deleted[path] = struct{}{}
}

// Drain returns the current pending and deleted path sets and clears them.
// The caller is expected to process deletions before additions/changes
// and persist the now-empty set on success.
func (s *Set) Drain() (changed []string, deletedPaths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for p := range s.pending {
		changed = append(changed, p)
	}
	for p := range s.deleted {
		deletedPaths = append(deletedPaths, p)
	}
	s.pending = make(map[string]struct{})
	s.deleted = make(map[string]struct{})
	return changed, deletedPaths
}

// Len reports how many paths are pending (changed + deleted).
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) + len(s.deleted)
}

// IsEmpty reports whether there is no pending work.
func (s *Set) IsEmpty() bool {
	return s.Len() == 0
}

func stripDeletedPrefix(entry string) (string, bool) {
	if len(entry) >= len(deletedPrefix) && entry[:len(deletedPrefix)] == deletedPrefix {
		return entry[len(deletedPrefix):], true
	}
	return "", false
}
