package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdown_RunsHandlersInLIFOOrder(t *testing.T) {
	r := New(nil)
	var mu sync.Mutex
	var order []string
	record := func(name string) Handler {
		return func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	r.Register("watcher", record("watcher"))
	r.Register("indexmanager", record("indexmanager"))
	r.Register("vectorstore", record("vectorstore"))

	r.Shutdown(context.Background())

	assert.Equal(t, []string{"vectorstore", "indexmanager", "watcher"}, order)
}

func TestShutdown_ContinuesPastHandlerError(t *testing.T) {
	r := New(nil)
	var ran []string
	r.Register("first", func(ctx context.Context) error {
		ran = append(ran, "first")
		return errors.New("boom")
	})
	r.Register("second", func(ctx context.Context) error {
		ran = append(ran, "second")
		return nil
	})

	r.Shutdown(context.Background())

	assert.Equal(t, []string{"second", "first"}, ran)
}

func TestShutdown_SecondCallIsNoOp(t *testing.T) {
	r := New(nil)
	calls := 0
	r.Register("h", func(ctx context.Context) error {
		calls++
		return nil
	})

	r.Shutdown(context.Background())
	r.Shutdown(context.Background())

	assert.Equal(t, 1, calls)
}

func TestRegistry_UnregisterSkipsHandler(t *testing.T) {
	r := New(nil)
	calls := 0
	unregister := r.Register("h", func(ctx context.Context) error {
		calls++
		return nil
	})
	unregister()

	r.Shutdown(context.Background())

	assert.Equal(t, 0, calls)
	require.Equal(t, 1, r.Len())
}
