// Package atomicfile implements write-temp-then-rename persistence for the
// on-disk index artifacts (fingerprints, config, vector-store metadata).
// Every write lands fully formed or not at all; readers never observe a
// partially written file.
package atomicfile

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Write atomically replaces target's content with data. It creates
// target's parent directory if missing, writes to a uniquely named
// sibling temp file, then renames it over target. On any failure the
// temp file is removed and target is left untouched.
func Write(target string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("atomicfile: create dir %s: %w", dir, err)
	}

	tmp := tempName(target)
	if err := os.WriteFile(tmp, data, perm); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("atomicfile: write temp file: %w", err)
	}

	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("atomicfile: rename into place: %w", err)
	}
	return nil
}

// tempName produces <target>.tmp.<unix-nano>.<pid>.<random> so concurrent
// writers to the same target never collide on the temp path.
func tempName(target string) string {
	var suffix [4]byte
	_, _ = rand.Read(suffix[:])
	return fmt.Sprintf("%s.tmp.%d.%d.%s", target, time.Now().UnixNano(), os.Getpid(), hex.EncodeToString(suffix[:]))
}
