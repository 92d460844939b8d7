// Package fingerprint implements the per-file content-hash store and the
// delta computation that drives incremental indexing.
package fingerprint

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/localmcp/codesearch/internal/atomicfile"
	"github.com/localmcp/codesearch/internal/pathutil"
)

// schemaVersion is bumped on breaking changes to the on-disk shape; a
// mismatch causes the store to begin empty.
const schemaVersion = 1

// onDisk is the JSON shape persisted to fingerprints.json /
// docs-fingerprints.json.
type onDisk struct {
	Version      int               `json:"version"`
	Fingerprints map[string]string `json:"fingerprints"`
}

// Store holds path -> content-hash fingerprints for one table (code or
// docs) and persists them via atomic write-temp-then-rename.
type Store struct {
	path string

	mu           sync.RWMutex
	fingerprints map[string]string
	dirty        bool
}

// New returns an empty Store backed by path.
func New(path string) *Store {
	return &Store{path: path, fingerprints: make(map[string]string)}
}

// Load reads the store from disk via atomic persistence. A missing file
// is not an error (fresh project); a corrupt file or a major version
// mismatch causes the store to begin empty, logging a warning.
func (s *Store) Load(logger *slog.Logger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.fingerprints = make(map[string]string)
		return nil
	}
	if err != nil {
		return err
	}

	var parsed onDisk
	if jsonErr := json.Unmarshal(data, &parsed); jsonErr != nil || parsed.Version != schemaVersion {
		if logger != nil {
			logger.Warn("fingerprint store corrupt or out of date, starting empty",
				"path", s.path, "error", jsonErr)
		}
		s.fingerprints = make(map[string]string)
		return nil
	}

	if parsed.Fingerprints == nil {
		parsed.Fingerprints = make(map[string]string)
	}
	s.fingerprints = parsed.Fingerprints
	return nil
}

// Save persists the store to disk atomically, pretty-printed with a
// trailing newline.
func (s *Store) Save() error {
	s.mu.RLock()
	payload := onDisk{Version: schemaVersion, Fingerprints: s.fingerprints}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := atomicfile.Write(s.path, data, 0o644); err != nil {
		return err
	}

	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// Get returns the stored hash for path and whether it was present.
func (s *Store) Get(path string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.fingerprints[path]
	return h, ok
}

// Keys returns every path currently tracked, i.e. the set of files whose
// chunks are in the vector table.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.fingerprints))
	for k := range s.fingerprints {
		keys = append(keys, k)
	}
	return keys
}

// Len reports how many files are tracked.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fingerprints)
}

// Dirty reports whether the in-memory map has unsaved changes.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Delta classifies files in currentFiles (project-relative paths) against
// the stored fingerprints: added (new path), modified (hash differs),
// unchanged (hash matches). Paths present in the store but absent from
// currentFiles are removed. A file that cannot be read is treated as
// added; its absence from disk is corrected by the next reconciliation.
func (s *Store) Delta(projectRoot string, currentFiles []string) Delta {
	s.mu.RLock()
	stored := make(map[string]string, len(s.fingerprints))
	for k, v := range s.fingerprints {
		stored[k] = v
	}
	s.mu.RUnlock()

	d := Delta{NewHashes: make(map[string]string)}
	seen := make(map[string]bool, len(currentFiles))

	for _, rel := range currentFiles {
		seen[rel] = true
		abs := joinProjectPath(projectRoot, rel)
		hash, err := pathutil.HashFile(abs)
		if err != nil {
			d.Added = append(d.Added, rel)
			continue
		}
		d.NewHashes[rel] = hash

		old, ok := stored[rel]
		if !ok {
			d.Added = append(d.Added, rel)
		} else if old != hash {
			d.Modified = append(d.Modified, rel)
		} else {
			d.Unchanged = append(d.Unchanged, rel)
		}
	}

	for rel := range stored {
		if !seen[rel] {
			d.Removed = append(d.Removed, rel)
		}
	}

	return d
}

// UpdateFromDelta applies a delta's removals, additions, and
// modifications atomically in memory. Callers must call Save to persist.
func (s *Store) UpdateFromDelta(d Delta) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rel := range d.Removed {
		delete(s.fingerprints, rel)
	}
	for _, rel := range d.Added {
		if h, ok := d.NewHashes[rel]; ok {
			s.fingerprints[rel] = h
		}
	}
	for _, rel := range d.Modified {
		if h, ok := d.NewHashes[rel]; ok {
			s.fingerprints[rel] = h
		}
	}
	s.dirty = true
}

// Clear empties the store in memory, used before rebuilding a fresh
// fingerprint map during a full reindex. Callers must call Save to persist.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fingerprints = make(map[string]string)
	s.dirty = true
}

// SetHash records a single file's content hash, used by single-file
// update_file/remove_file operations outside of a full delta.
func (s *Store) SetHash(path, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fingerprints[path] = hash
	s.dirty = true
}

// Remove deletes path's fingerprint, if present.
func (s *Store) Remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fingerprints, path)
	s.dirty = true
}

// Delta is the {added, modified, removed, unchanged} classification.
type Delta struct {
	Added     []string
	Modified  []string
	Removed   []string
	Unchanged []string
	NewHashes map[string]string
}

// IsEmpty reports whether the delta represents no work.
func (d Delta) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Removed) == 0
}

func joinProjectPath(root, rel string) string {
	if root == "" {
		return rel
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}
