// Package mcperrors provides the structured error taxonomy shared by every
// layer of the indexer: index lifecycle, chunking, vector storage, and the
// tool surface.
package mcperrors

// Code identifies the kind of failure, independent of where it occurred.
type Code string

// Error code taxonomy, as named in the tool-surface error envelope.
const (
	CodeIndexNotFound      Code = "index-not-found"
	CodeDocsIndexNotFound  Code = "docs-index-not-found"
	CodeIndexExists        Code = "index-exists"
	CodeIndexCorrupt       Code = "index-corrupt"
	CodeIndexingInProgress Code = "indexing-in-progress"
	CodeInvalidQuery       Code = "invalid-query"
	CodeInvalidPattern     Code = "invalid-pattern"
	CodeFileNotFound       Code = "file-not-found"
	CodeFileExcluded       Code = "file-excluded"
	CodePathTraversal      Code = "path-traversal"
	CodeModelLoadFailed    Code = "model-load-failed"
	CodeDiskFull           Code = "disk-full"
	CodeDimensionMismatch  Code = "dimension-mismatch"
	CodeTimeout            Code = "timeout"
	CodeReadError          Code = "read-error"
	CodeInternal           Code = "internal"
)

// retryable reports whether an operation that failed with this code is
// generally worth retrying without any change in caller behavior.
func retryable(c Code) bool {
	switch c {
	case CodeTimeout, CodeDiskFull:
		return true
	default:
		return false
	}
}
