package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid events for the same path within a quiet
// window. Coalescing rules:
//
//	add + change  = add      (file is still new)
//	add + unlink  = nothing  (file never really existed)
//	change + unlink = unlink (file is gone)
//	unlink + add  = change   (file was replaced)
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEvent
	timers  map[string]*time.Timer
	onFire  func(Event)
	stopped bool
}

type pendingEvent struct {
	event   Event
	firstOp Op
}

// NewDebouncer returns a Debouncer that calls onFire once per path, window
// after that path's events go quiet.
func NewDebouncer(window time.Duration, onFire func(Event)) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]*pendingEvent),
		timers:  make(map[string]*time.Timer),
		onFire:  onFire,
	}
}

// Add records ev, coalescing it with any pending event for the same path
// and resetting that path's quiet-window timer.
func (d *Debouncer) Add(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	path := ev.Path
	if existing, ok := d.pending[path]; ok {
		coalesced, keep := coalesce(existing.firstOp, ev.Op)
		if !keep {
			delete(d.pending, path)
			if t, ok := d.timers[path]; ok {
				t.Stop()
				delete(d.timers, path)
			}
			return
		}
		existing.event = Event{Op: coalesced, Path: path}
	} else {
		d.pending[path] = &pendingEvent{event: ev, firstOp: ev.Op}
	}

	if t, ok := d.timers[path]; ok {
		t.Stop()
	}
	d.timers[path] = time.AfterFunc(d.window, func() { d.fire(path) })
}

func (d *Debouncer) fire(path string) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	pe, ok := d.pending[path]
	delete(d.pending, path)
	delete(d.timers, path)
	d.mu.Unlock()

	if ok && d.onFire != nil {
		d.onFire(pe.event)
	}
}

// coalesce returns the effective op after merging first with next, and
// whether the pair survives (false means the events cancelled out).
func coalesce(first, next Op) (Op, bool) {
	switch first {
	case OpAdd:
		switch next {
		case OpUnlink:
			return "", false
		default:
			return OpAdd, true
		}
	case OpChange:
		switch next {
		case OpUnlink:
			return OpUnlink, true
		default:
			return OpChange, true
		}
	case OpUnlink:
		switch next {
		case OpAdd:
			return OpChange, true
		default:
			return OpUnlink, true
		}
	default:
		return next, true
	}
}

// PendingCount reports how many paths are waiting for their quiet window
// to elapse.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels all pending timers. Safe to call more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	for _, t := range d.timers {
		t.Stop()
	}
	d.pending = make(map[string]*pendingEvent)
	d.timers = make(map[string]*time.Timer)
}
