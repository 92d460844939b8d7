package vectorstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"
)

// staleLockAge is the conservative minimum age before a lock file is
// even considered for cleanup. Long indexing operations legitimately
// hold the lock far longer than that, so age alone is never sufficient
// grounds to remove it.
const staleLockAge = 10 * time.Minute

// storeLock is the on-disk advisory lock guarding one table's directory
// against concurrent opens from separate processes: a PID file for
// liveness checks paired with an OS file lock via gofrs/flock.
type storeLock struct {
	fl   *flock.Flock
	path string
}

// acquireStoreLock takes an exclusive lock on dir's lock file, first
// removing it if it qualifies as stale: older than staleLockAge AND its
// recorded owner process is no longer alive. A time-only heuristic is
// deliberately not used.
func acquireStoreLock(dir string) (*storeLock, error) {
	path := filepath.Join(dir, "store.lock")
	cleanupIfStale(path)

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("vectorstore: acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("vectorstore: %s is locked by another process", dir)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("vectorstore: write lock pid: %w", err)
	}
	return &storeLock{fl: fl, path: path}, nil
}

// Release unlocks and removes the lock file. Safe to call on a nil
// receiver so Close can be idempotent without a separate guard.
func (l *storeLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	err := l.fl.Unlock()
	_ = os.Remove(l.path)
	return err
}

func cleanupIfStale(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if time.Since(info.ModTime()) < staleLockAge {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		_ = os.Remove(path)
		return
	}
	if processAlive(pid) {
		return
	}
	_ = os.Remove(path)
}

// processAlive reports whether pid is running. On Unix, os.FindProcess
// always succeeds, so liveness is only confirmed by sending signal 0.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
