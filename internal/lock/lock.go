// Package lock provides the FIFO-fair mutex primitives that guard indexing
// operations: AsyncMutex is the building block, IndexingLock wraps it with
// the current-project bookkeeping the tool surface needs to report
// "indexing in progress" errors.
package lock

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// AsyncMutex is a FIFO-fair mutual-exclusion lock. Waiters are granted the
// lock in the order they called Acquire/TryAcquire, which semaphore.Weighted
// guarantees for a weight-1 semaphore.
type AsyncMutex struct {
	sem *semaphore.Weighted
}

// NewAsyncMutex returns an unlocked AsyncMutex.
func NewAsyncMutex() *AsyncMutex {
	return &AsyncMutex{sem: semaphore.NewWeighted(1)}
}

// TryAcquire acquires the lock without blocking, returning false if it is
// already held.
func (m *AsyncMutex) TryAcquire() bool {
	return m.sem.TryAcquire(1)
}

// Acquire blocks until the lock is held or timeout elapses, returning false
// in the latter case. A timeout of 0 blocks indefinitely.
func (m *AsyncMutex) Acquire(timeout time.Duration) bool {
	ctx := context.Background()
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return m.sem.Acquire(ctx, 1) == nil
}

// Release releases the lock. Releasing an unheld lock panics, matching
// semaphore.Weighted's own contract.
func (m *AsyncMutex) Release() {
	m.sem.Release(1)
}

// IndexingLock guards indexing operations (create, rebuild, integrity
// reconciliation, single-file update) for at most one project at a time.
// It never guards searches.
type IndexingLock struct {
	mu             sync.RWMutex
	asyncMu        *AsyncMutex
	currentProject string
}

// NewIndexingLock returns an unheld IndexingLock.
func NewIndexingLock() *IndexingLock {
	return &IndexingLock{asyncMu: NewAsyncMutex()}
}

// TryAcquire atomically checks that no indexing is in progress and claims
// the lock for projectPath in a single step. Returns false if any indexing
// operation already holds the lock, whatever its project; check-then-acquire
// is never used because it would race with a concurrent TryAcquire.
func (l *IndexingLock) TryAcquire(projectPath string) bool {
	if !l.asyncMu.TryAcquire() {
		return false
	}
	l.mu.Lock()
	l.currentProject = projectPath
	l.mu.Unlock()
	return true
}

// Release clears the current project and releases the underlying mutex.
func (l *IndexingLock) Release() {
	l.mu.Lock()
	l.currentProject = ""
	l.mu.Unlock()
	l.asyncMu.Release()
}

// CurrentProject reports which project currently holds the lock, or ""
// if the lock is free.
func (l *IndexingLock) CurrentProject() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.currentProject
}
