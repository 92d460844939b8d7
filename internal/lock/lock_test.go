package lock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncMutex_TryAcquireFailsWhenHeld(t *testing.T) {
	m := NewAsyncMutex()
	require.True(t, m.TryAcquire())

	assert.False(t, m.TryAcquire())

	m.Release()
	assert.True(t, m.TryAcquire())
}

func TestAsyncMutex_AcquireTimesOut(t *testing.T) {
	m := NewAsyncMutex()
	require.True(t, m.TryAcquire())

	got := m.Acquire(20 * time.Millisecond)
	assert.False(t, got)
}

func TestAsyncMutex_FIFOOrdering(t *testing.T) {
	m := NewAsyncMutex()
	require.True(t, m.TryAcquire())

	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 3; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			time.Sleep(time.Duration(i) * 5 * time.Millisecond)
			if m.Acquire(time.Second) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				m.Release()
			}
		}()
		time.Sleep(2 * time.Millisecond)
	}

	m.Release()
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestIndexingLock_TryAcquireSetsCurrentProject(t *testing.T) {
	l := NewIndexingLock()

	ok := l.TryAcquire("/proj/a")

	require.True(t, ok)
	assert.Equal(t, "/proj/a", l.CurrentProject())
}

func TestIndexingLock_TryAcquireFailsWhileHeld(t *testing.T) {
	l := NewIndexingLock()
	require.True(t, l.TryAcquire("/proj/a"))

	ok := l.TryAcquire("/proj/b")

	assert.False(t, ok)
	assert.Equal(t, "/proj/a", l.CurrentProject())
}

func TestIndexingLock_ReleaseClearsCurrentProject(t *testing.T) {
	l := NewIndexingLock()
	require.True(t, l.TryAcquire("/proj/a"))

	l.Release()

	assert.Equal(t, "", l.CurrentProject())
	assert.True(t, l.TryAcquire("/proj/b"))
}
