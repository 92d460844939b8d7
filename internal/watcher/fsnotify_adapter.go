package watcher

import "github.com/fsnotify/fsnotify"

type rawKind int

const (
	rawCreate rawKind = iota
	rawWrite
	rawRemove
	rawRename
)

type rawEvent struct {
	kind rawKind
	path string
}

// fsNotifier is the thin seam over fsnotify.Watcher.
type fsNotifier struct {
	w      *fsnotify.Watcher
	events chan rawEvent
	errors chan error
	done   chan struct{}
}

func newFSNotifier() (*fsNotifier, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	n := &fsNotifier{
		w:      w,
		events: make(chan rawEvent, 1000),
		errors: make(chan error, 16),
		done:   make(chan struct{}),
	}
	go n.pump()
	return n, nil
}

func (n *fsNotifier) pump() {
	defer close(n.events)
	defer close(n.errors)
	for {
		select {
		case ev, ok := <-n.w.Events:
			if !ok {
				return
			}
			kind, ok := translate(ev.Op)
			if !ok {
				continue
			}
			select {
			case n.events <- rawEvent{kind: kind, path: ev.Name}:
			case <-n.done:
				return
			}
		case err, ok := <-n.w.Errors:
			if !ok {
				return
			}
			select {
			case n.errors <- err:
			case <-n.done:
				return
			}
		case <-n.done:
			return
		}
	}
}

func translate(op fsnotify.Op) (rawKind, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return rawCreate, true
	case op&fsnotify.Write != 0:
		return rawWrite, true
	case op&fsnotify.Remove != 0:
		return rawRemove, true
	case op&fsnotify.Rename != 0:
		return rawRename, true
	default:
		return 0, false
	}
}

func (n *fsNotifier) Events() <-chan rawEvent { return n.events }
func (n *fsNotifier) Errors() <-chan error    { return n.errors }
func (n *fsNotifier) Add(path string) error   { return n.w.Add(path) }
func (n *fsNotifier) Close() error {
	close(n.done)
	return n.w.Close()
}
