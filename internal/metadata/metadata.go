// Package metadata persists metadata.json, the per-project record
// describing index provenance and state.
package metadata

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/localmcp/codesearch/internal/atomicfile"
)

// schemaVersion is the major.minor version written to metadata.json. A
// major-version mismatch on Load leaves the Store's existing record (the
// one New created for the project path) in place of the file's contents,
// so the caller rebuilds.
const schemaVersion = "1.0"

// State is the value of the IndexingState field.
type State string

const (
	StateComplete   State = "complete"
	StateInProgress State = "in_progress"
)

// Stats holds per-table aggregate counters.
type Stats struct {
	TotalFiles       int   `json:"totalFiles"`
	TotalChunks      int   `json:"totalChunks"`
	StorageSizeBytes int64 `json:"storageSizeBytes"`
}

// DocsStats holds the docs table's aggregate counters.
type DocsStats struct {
	TotalDocs            int   `json:"totalDocs"`
	TotalDocChunks       int   `json:"totalDocChunks"`
	DocsStorageSizeBytes int64 `json:"docsStorageSizeBytes"`
}

// ModelInfo records one embedder's identity for drift detection against
// the configured embedder.
type ModelInfo struct {
	Name string `json:"name"`
	Dim  int    `json:"dim"`
}

// EmbeddingModels is the embeddingModels{code,docs} record.
type EmbeddingModels struct {
	Code *ModelInfo `json:"code,omitempty"`
	Docs *ModelInfo `json:"docs,omitempty"`
}

// Record is the full metadata.json shape.
type Record struct {
	Version               string           `json:"version"`
	ProjectPath           string           `json:"projectPath"`
	CreatedAt             time.Time        `json:"createdAt"`
	LastFullIndex         *time.Time       `json:"lastFullIndex,omitempty"`
	LastIncrementalUpdate *time.Time       `json:"lastIncrementalUpdate,omitempty"`
	LastDocsIndex         *time.Time       `json:"lastDocsIndex,omitempty"`
	Stats                 Stats            `json:"stats"`
	DocsStats             *DocsStats       `json:"docsStats,omitempty"`
	EmbeddingModels       *EmbeddingModels `json:"embeddingModels,omitempty"`
	IndexingState         State            `json:"indexingState"`
}

// Store persists one project's Record atomically.
type Store struct {
	path string

	mu     sync.RWMutex
	record Record
}

// New returns a Store for a fresh project: ProjectPath set, CreatedAt set to
// now, IndexingState defaulted to "complete" (no index yet is not "in
// progress").
func New(path, projectPath string, now time.Time) *Store {
	return &Store{
		path: path,
		record: Record{
			Version:       schemaVersion,
			ProjectPath:   projectPath,
			CreatedAt:     now,
			IndexingState: StateComplete,
		},
	}
}

// Load reads path into the store. A missing file is not an error (the
// caller's zero-value/New record stands). A major-version mismatch resets
// to an empty record with the existing path.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var r Record
	if jsonErr := json.Unmarshal(data, &r); jsonErr != nil || majorVersion(r.Version) != majorVersion(schemaVersion) {
		return nil
	}
	s.record = r
	return nil
}

// Save persists the record atomically, pretty-printed with a trailing
// newline.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.record, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return atomicfile.Write(s.path, data, 0o644)
}

// Path returns the on-disk path this store persists to.
func (s *Store) Path() string { return s.path }

// Get returns a copy of the current record.
func (s *Store) Get() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record
}

// SetIndexingState updates the in-progress/complete flag: in_progress at
// the start of embedding, complete only after fingerprints are saved.
func (s *Store) SetIndexingState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.IndexingState = state
}

// RecordFullIndex updates the code table's stats and timestamps after a
// full index run. Model identity is merged field-by-field so recording
// one table's model never discards the other's.
func (s *Store) RecordFullIndex(now time.Time, stats Stats, models *EmbeddingModels) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.LastFullIndex = &now
	s.record.Stats = stats
	s.mergeModels(models)
}

// RecordIncrementalUpdate updates stats and the incremental-update
// timestamp after a file-level update.
func (s *Store) RecordIncrementalUpdate(now time.Time, stats Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.LastIncrementalUpdate = &now
	s.record.Stats = stats
}

// RecordDocsIndex updates docs stats and the docs-index timestamp.
func (s *Store) RecordDocsIndex(now time.Time, stats DocsStats, models *EmbeddingModels) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.LastDocsIndex = &now
	s.record.DocsStats = &stats
	s.mergeModels(models)
}

// RecordDocsIncrementalUpdate updates docs stats and the incremental
// timestamp after a docs file-level update.
func (s *Store) RecordDocsIncrementalUpdate(now time.Time, stats DocsStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.LastIncrementalUpdate = &now
	s.record.DocsStats = &stats
}

// mergeModels folds non-nil per-table model identities into the record.
// Caller must hold mu.
func (s *Store) mergeModels(models *EmbeddingModels) {
	if models == nil {
		return
	}
	if s.record.EmbeddingModels == nil {
		s.record.EmbeddingModels = &EmbeddingModels{}
	}
	if models.Code != nil {
		s.record.EmbeddingModels.Code = models.Code
	}
	if models.Docs != nil {
		s.record.EmbeddingModels.Docs = models.Docs
	}
}

func majorVersion(v string) string {
	for i, c := range v {
		if c == '.' {
			return v[:i]
		}
	}
	return v
}
