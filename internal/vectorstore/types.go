// Package vectorstore implements the content-addressed chunk tables that
// back semantic search: one table for code chunks, one for
// docs chunks, each pairing a SQLite row store with an in-process HNSW
// approximate-nearest-neighbor index.
package vectorstore

import "fmt"

// Record is a chunk ready to be inserted: its embedding vector plus enough
// provenance to reconstruct a search hit without re-reading the source
// file.
type Record struct {
	Path        string
	Text        string
	Vector      []float32
	StartLine   int
	EndLine     int
	ContentHash string
}

// SearchResult is one hit from Search.
type SearchResult struct {
	Path        string
	Text        string
	Score       float32
	StartLine   int
	EndLine     int
	ContentHash string
}

// ErrDimensionMismatch is returned when a query or insert vector's length
// disagrees with the table's established dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: table expects %d-dim vectors, got %d", e.Expected, e.Got)
}

// listPageSize bounds how many rows a single internal SQL query fetches
// while paginating GetIndexedFiles / SearchByPath.
const listPageSize = 500
