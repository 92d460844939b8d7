// Package pathutil provides the path-normalization and content-hashing
// primitives shared by the indexing pipeline. All stored paths are
// forward-slash-normalized and project-relative; platform separators are
// only reintroduced when a function actually touches the filesystem.
package pathutil

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// readChunkSize bounds how much of a file hash_file reads into memory at
// once, regardless of file size.
const readChunkSize = 64 * 1024

// maxPathLength is a conservative cross-platform path length cap (Windows'
// legacy MAX_PATH, which is the tightest limit among supported platforms).
const maxPathLength = 260

// Normalize converts a path to its forward-slash, storage-ready form.
func Normalize(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// ToRelative returns absolute's path relative to project, forward-slash
// normalized. Returns an error if absolute is not inside project.
func ToRelative(project, absolute string) (string, error) {
	rel, err := filepath.Rel(project, absolute)
	if err != nil {
		return "", err
	}
	return Normalize(rel), nil
}

// SafeJoin joins base and relative, refusing to cross base's boundary.
// It returns ok=false if relative is absolute, contains a ".." segment
// that escapes base, contains a null byte, or the resulting path exceeds
// maxPathLength.
func SafeJoin(base, relative string) (joined string, ok bool) {
	if relative == "" {
		return "", false
	}
	if strings.ContainsRune(relative, 0) {
		return "", false
	}
	if filepath.IsAbs(relative) {
		return "", false
	}
	cleanedBase := filepath.Clean(base)
	candidate := filepath.Join(cleanedBase, relative)

	rel, err := filepath.Rel(cleanedBase, candidate)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	if len(candidate) > maxPathLength {
		return "", false
	}
	return candidate, true
}

// HashProjectPath returns a stable hex64 (SHA-256) digest of a project's
// canonicalized root path, used to namespace on-disk index state.
func HashProjectPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha256.Sum256([]byte(Normalize(abs)))
	return hex.EncodeToString(sum[:])
}

// HashFile streams path in bounded chunks and returns a hex64 SHA-256
// digest of its exact byte content (line endings are not normalized, so
// the digest is stable across platforms only when the file's bytes are
// identical). Returns an error the caller should treat as a read error;
// policy on whether that counts as "added" or "error" lives with the
// caller.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, readChunkSize)
	r := bufio.NewReaderSize(f, readChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the hex64 SHA-256 digest of content already in memory,
// used where the caller has already read small amounts of text (e.g. a
// chunk's body) and hashing via a file round-trip would be wasteful.
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
