package watcher

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectOne(t *testing.T, window time.Duration) (*Debouncer, func() (Event, bool)) {
	t.Helper()
	var mu sync.Mutex
	var got []Event
	d := NewDebouncer(window, func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
	})
	return d, func() (Event, bool) {
		time.Sleep(window + 30*time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		if len(got) == 0 {
			return Event{}, false
		}
		return got[len(got)-1], true
	}
}

func TestDebouncerAddThenChangeCollapsesToAdd(t *testing.T) {
	d, wait := collectOne(t, 20*time.Millisecond)
	d.Add(Event{Op: OpAdd, Path: "a.go"})
	d.Add(Event{Op: OpChange, Path: "a.go"})
	ev, ok := wait()
	require.True(t, ok)
	assert.Equal(t, OpAdd, ev.Op)
}

func TestDebouncerAddThenUnlinkCancelsOut(t *testing.T) {
	d, wait := collectOne(t, 20*time.Millisecond)
	d.Add(Event{Op: OpAdd, Path: "a.go"})
	d.Add(Event{Op: OpUnlink, Path: "a.go"})
	_, ok := wait()
	assert.False(t, ok)
}

func TestDebouncerChangeThenUnlinkFiresUnlink(t *testing.T) {
	d, wait := collectOne(t, 20*time.Millisecond)
	d.Add(Event{Op: OpChange, Path: "a.go"})
	d.Add(Event{Op: OpUnlink, Path: "a.go"})
	ev, ok := wait()
	require.True(t, ok)
	assert.Equal(t, OpUnlink, ev.Op)
}

func TestDebouncerUnlinkThenAddFiresChange(t *testing.T) {
	d, wait := collectOne(t, 20*time.Millisecond)
	d.Add(Event{Op: OpUnlink, Path: "a.go"})
	d.Add(Event{Op: OpAdd, Path: "a.go"})
	ev, ok := wait()
	require.True(t, ok)
	assert.Equal(t, OpChange, ev.Op)
}

func TestDebouncerDistinctPathsFireIndependently(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]Op{}
	d := NewDebouncer(15*time.Millisecond, func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		seen[ev.Path] = ev.Op
	})
	d.Add(Event{Op: OpAdd, Path: "a.go"})
	d.Add(Event{Op: OpChange, Path: "b.go"})
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, OpAdd, seen["a.go"])
	assert.Equal(t, OpChange, seen["b.go"])
}

func TestDebouncerStopSuppressesFutureFires(t *testing.T) {
	var mu sync.Mutex
	fired := false
	d := NewDebouncer(15*time.Millisecond, func(Event) {
		mu.Lock()
		defer mu.Unlock()
		fired = true
	})
	d.Add(Event{Op: OpAdd, Path: "a.go"})
	d.Stop()
	time.Sleep(40 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, fired)
}
