package watcher

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestWatcher(t *testing.T, root string) (*Watcher, func()) {
	t.Helper()
	w, err := New(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Start(ctx)
	}()

	select {
	case <-w.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never became ready")
	}

	return w, func() {
		cancel()
		_ = w.Close()
		<-done
	}
}

func waitForEvent(t *testing.T, w *Watcher, path string, op Op) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-w.Events():
			if filepath.Clean(ev.Path) == filepath.Clean(path) && ev.Op == op {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event on %s", op, path)
		}
	}
}

func TestWatcherEmitsAddOnNewFile(t *testing.T) {
	root := t.TempDir()
	w, stop := startTestWatcher(t, root)
	defer stop()

	path := filepath.Join(root, "new.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0o644))
	waitForEvent(t, w, path, OpAdd)
}

func TestWatcherEmitsChangeOnWrite(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0o644))

	w, stop := startTestWatcher(t, root)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("package a\n\nfunc X(){}\n"), 0o644))
	waitForEvent(t, w, path, OpChange)
}

func TestWatcherEmitsUnlinkOnRemove(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0o644))

	w, stop := startTestWatcher(t, root)
	defer stop()

	require.NoError(t, os.Remove(path))
	waitForEvent(t, w, path, OpUnlink)
}

func TestWatcherNeverFollowsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}
	root := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "real.go")
	require.NoError(t, os.WriteFile(target, []byte("package a\n"), 0o644))

	link := filepath.Join(root, "link.go")
	require.NoError(t, os.Symlink(target, link))

	w, stop := startTestWatcher(t, root)
	defer stop()

	require.NoError(t, os.WriteFile(target, []byte("package a\n\nfunc Y(){}\n"), 0o644))

	select {
	case ev := <-w.Events():
		t.Fatalf("expected no event for symlinked target, got %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	root := t.TempDir()
	w, err := New(root)
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
