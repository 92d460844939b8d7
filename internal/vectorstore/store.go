package vectorstore

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver, no CGO

	"github.com/localmcp/codesearch/internal/atomicfile"
)

// Store is one content-addressed chunk table (either the code table or the
// docs table of a project). It pairs SQLite rows (path, text, line range)
// with an in-memory HNSW graph for nearest-neighbor search. The table's
// vector dimension is fixed by the first insert_chunks call and enforced
// on every subsequent insert and search.
type Store struct {
	dir  string
	lock *storeLock

	mu         sync.Mutex
	db         *sql.DB
	graph      *hnsw.Graph[uint64]
	dimension  int
	idMap      map[string]uint64
	keyMap     map[uint64]string
	nextKey    uint64
	tableReady bool
	closed     bool
}

type hnswMeta struct {
	IDMap     map[string]uint64
	NextKey   uint64
	Dimension int
}

// Open opens (creating if absent) the chunk table rooted at dir. dir
// holds chunks.db (SQLite), vectors.hnsw (graph export), and
// vectors.hnsw.meta (gob-encoded string<->key mappings).
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("vectorstore: create dir: %w", err)
	}

	lock, err := acquireStoreLock(dir)
	if err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "chunks.db")
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("vectorstore: open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			_ = lock.Release()
			return nil, fmt.Errorf("vectorstore: pragma: %w", err)
		}
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	s := &Store{
		dir:    dir,
		lock:   lock,
		db:     db,
		graph:  graph,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}

	if err := s.loadIfPresent(); err != nil {
		db.Close()
		_ = lock.Release()
		return nil, err
	}
	return s, nil
}

func (s *Store) indexPath() string { return filepath.Join(s.dir, "vectors.hnsw") }
func (s *Store) metaPath() string  { return filepath.Join(s.dir, "vectors.hnsw.meta") }

func (s *Store) loadIfPresent() error {
	metaFile, err := os.Open(s.metaPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("vectorstore: open meta: %w", err)
	}
	defer metaFile.Close()

	var m hnswMeta
	if err := gob.NewDecoder(metaFile).Decode(&m); err != nil {
		return fmt.Errorf("vectorstore: decode meta: %w", err)
	}
	s.idMap = m.IDMap
	s.nextKey = m.NextKey
	s.dimension = m.Dimension
	s.tableReady = m.Dimension > 0
	s.keyMap = make(map[uint64]string, len(s.idMap))
	for id, key := range s.idMap {
		s.keyMap[key] = id
	}

	idxFile, err := os.Open(s.indexPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("vectorstore: open index: %w", err)
	}
	defer idxFile.Close()

	if err := s.graph.Import(bufio.NewReader(idxFile)); err != nil {
		return fmt.Errorf("vectorstore: import graph: %w", err)
	}
	return nil
}

// persist saves the graph and ID mappings atomically. Caller must hold mu.
func (s *Store) persist() error {
	tmp := s.indexPath() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("vectorstore: create index temp: %w", err)
	}
	if err := s.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("vectorstore: export graph: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("vectorstore: close index temp: %w", err)
	}
	if err := os.Rename(tmp, s.indexPath()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("vectorstore: rename index: %w", err)
	}

	m := hnswMeta{IDMap: s.idMap, NextKey: s.nextKey, Dimension: s.dimension}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("vectorstore: encode meta: %w", err)
	}
	return atomicfile.Write(s.metaPath(), buf.Bytes(), 0o644)
}

// Clear removes every row and vector from the table in place, used before
// a full reindex rebuilds it from scratch. The table's established
// dimension is preserved so a subsequent InsertChunks need not redeclare it.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("vectorstore: store is closed")
	}
	if !s.tableReady {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("vectorstore: clear: %w", err)
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25
	s.graph = graph
	s.idMap = make(map[string]uint64)
	s.keyMap = make(map[uint64]string)
	s.nextKey = 0

	return s.persist()
}

// InsertChunks inserts records, creating the table on the first call using
// the dimension of records[0].Vector. A no-op for empty input.
func (s *Store) InsertChunks(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("vectorstore: store is closed")
	}

	if !s.tableReady {
		s.dimension = len(records[0].Vector)
		if err := s.createSchema(ctx); err != nil {
			return err
		}
		s.tableReady = true
	}

	for _, r := range records {
		if len(r.Vector) != s.dimension {
			return ErrDimensionMismatch{Expected: s.dimension, Got: len(r.Vector)}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vectorstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO chunks (id, path, text, start_line, end_line, content_hash) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("vectorstore: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		id := uuid.NewString()
		if _, err := stmt.ExecContext(ctx, id, r.Path, r.Text, r.StartLine, r.EndLine, r.ContentHash); err != nil {
			return fmt.Errorf("vectorstore: insert chunk: %w", err)
		}
		s.addVector(id, r.Vector)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vectorstore: commit: %w", err)
	}
	return s.persist()
}

func (s *Store) createSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	text TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	content_hash TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path);
`)
	if err != nil {
		return fmt.Errorf("vectorstore: create schema: %w", err)
	}
	return nil
}

// addVector replaces id's vector using lazy deletion: the old key is
// orphaned rather than deleted from the graph in place, and Search skips
// orphans on the way out.
func (s *Store) addVector(id string, vec []float32) {
	if existing, ok := s.idMap[id]; ok {
		delete(s.keyMap, existing)
		delete(s.idMap, id)
	}
	key := s.nextKey
	s.nextKey++
	cp := make([]float32, len(vec))
	copy(cp, vec)
	normalize(cp)
	s.graph.Add(hnsw.MakeNode(key, cp))
	s.idMap[id] = key
	s.keyMap[key] = id
}

// DeleteByPath removes every chunk recorded for path and returns the count
// removed.
func (s *Store) DeleteByPath(ctx context.Context, relativePath string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, fmt.Errorf("vectorstore: store is closed")
	}
	if !s.tableReady {
		return 0, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM chunks WHERE path = ?`, relativePath)
	if err != nil {
		return 0, fmt.Errorf("vectorstore: select for delete: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("vectorstore: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE path = ?`, relativePath)
	if err != nil {
		return 0, fmt.Errorf("vectorstore: delete: %w", err)
	}
	affected, _ := res.RowsAffected()

	for _, id := range ids {
		if key, ok := s.idMap[id]; ok {
			delete(s.keyMap, key)
			delete(s.idMap, id)
		}
	}
	if err := s.persist(); err != nil {
		return int(affected), err
	}
	return int(affected), nil
}

// CountChunks returns the total number of chunks in the table.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tableReady {
		return 0, nil
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("vectorstore: count chunks: %w", err)
	}
	return n, nil
}

// CountFiles returns the number of distinct paths with chunks.
func (s *Store) CountFiles(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tableReady {
		return 0, nil
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT path) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("vectorstore: count files: %w", err)
	}
	return n, nil
}

// GetIndexedFiles returns up to limit sorted, unique paths, fetching rows
// from SQLite in bounded pages rather than one unbounded query.
func (s *Store) GetIndexedFiles(ctx context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tableReady || limit <= 0 {
		return []string{}, nil
	}

	var paths []string
	last := ""
	for len(paths) < limit {
		pageSize := listPageSize
		if remaining := limit - len(paths); remaining < pageSize {
			pageSize = remaining
		}
		rows, err := s.db.QueryContext(ctx,
			`SELECT DISTINCT path FROM chunks WHERE path > ? ORDER BY path LIMIT ?`, last, pageSize)
		if err != nil {
			return nil, fmt.Errorf("vectorstore: list files: %w", err)
		}
		n := 0
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				rows.Close()
				return nil, fmt.Errorf("vectorstore: scan path: %w", err)
			}
			paths = append(paths, p)
			last = p
			n++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
	}
	return paths, nil
}

// Search returns the top_k nearest chunks to queryVector, scored via
// score = 1/(1+distance), sorted descending. Returns an empty slice if the
// table has never been created.
func (s *Store) Search(ctx context.Context, queryVector []float32, topK int) ([]SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tableReady {
		return []SearchResult{}, nil
	}
	if len(queryVector) != s.dimension {
		return nil, ErrDimensionMismatch{Expected: s.dimension, Got: len(queryVector)}
	}
	if topK <= 0 || s.graph.Len() == 0 {
		return []SearchResult{}, nil
	}

	query := make([]float32, len(queryVector))
	copy(query, queryVector)
	normalize(query)

	nodes := s.graph.Search(query, topK)

	type hit struct {
		id       string
		distance float32
	}
	hits := make([]hit, 0, len(nodes))
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			continue // lazily-deleted orphan
		}
		distance := s.graph.Distance(query, node.Value)
		hits = append(hits, hit{id: id, distance: distance})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })
	if len(hits) > topK {
		hits = hits[:topK]
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		var path, text, contentHash string
		var start, end int
		row := s.db.QueryRowContext(ctx, `SELECT path, text, start_line, end_line, content_hash FROM chunks WHERE id = ?`, h.id)
		if err := row.Scan(&path, &text, &start, &end, &contentHash); err != nil {
			continue // row deleted concurrently; skip rather than fail the whole search
		}
		results = append(results, SearchResult{
			Path:        path,
			Text:        text,
			Score:       1.0 / (1.0 + h.distance),
			StartLine:   start,
			EndLine:     end,
			ContentHash: contentHash,
		})
	}
	return results, nil
}

// SearchByPath returns up to limit sorted, unique paths matching the glob
// pattern, via a safely escaped SQL LIKE.
func (s *Store) SearchByPath(ctx context.Context, globPattern string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tableReady || limit <= 0 {
		return []string{}, nil
	}

	like, escape := globToLike(globPattern)

	var paths []string
	last := ""
	for len(paths) < limit {
		pageSize := listPageSize
		if remaining := limit - len(paths); remaining < pageSize {
			pageSize = remaining
		}
		query := fmt.Sprintf(`SELECT DISTINCT path FROM chunks WHERE path LIKE ? ESCAPE '%c' AND path > ? ORDER BY path LIMIT ?`, escape)
		rows, err := s.db.QueryContext(ctx, query, like, last, pageSize)
		if err != nil {
			return nil, fmt.Errorf("vectorstore: search by path: %w", err)
		}
		n := 0
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				rows.Close()
				return nil, fmt.Errorf("vectorstore: scan path: %w", err)
			}
			paths = append(paths, p)
			last = p
			n++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
	}
	return paths, nil
}

// HasData reports whether the table holds any chunks.
func (s *Store) HasData(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tableReady {
		return false, nil
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM chunks)`).Scan(&n); err != nil {
		return false, fmt.Errorf("vectorstore: has data: %w", err)
	}
	return n != 0, nil
}

// GetStorageSize returns the combined byte size of the table's on-disk
// files (SQLite DB + WAL + HNSW graph + HNSW metadata).
func (s *Store) GetStorageSize() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, name := range []string{"chunks.db", "chunks.db-wal", "chunks.db-shm", "vectors.hnsw", "vectors.hnsw.meta"} {
		info, err := os.Stat(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// Close releases the SQLite connection. Safe to call multiple times.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.db.Close()
	if lockErr := s.lock.Release(); lockErr != nil && err == nil {
		err = lockErr
	}
	return err
}

// Delete removes the table's entire directory from disk. Close must be
// called first by the caller that owns this Store's lifecycle.
func (s *Store) Delete() error {
	return os.RemoveAll(s.dir)
}

func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSq))
	for i := range v {
		v[i] *= inv
	}
}
