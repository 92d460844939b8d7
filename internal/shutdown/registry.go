// Package shutdown implements the process-wide cleanup registry:
// handlers register in LIFO order (strategies stop first, then the index
// manager releases locks, then the vector store closes, then persistence
// saves dirty state) and run sequentially on shutdown.
package shutdown

import (
	"context"
	"log/slog"
	"sync"
)

// Handler is a cleanup action run during shutdown. It receives the
// shutdown context so a handler with its own I/O can honor a deadline.
type Handler func(ctx context.Context) error

// Registry records cleanup handlers in registration order and runs them
// LIFO on Shutdown.
type Registry struct {
	mu       sync.Mutex
	handlers []namedHandler
	done     bool
	logger   *slog.Logger
}

type namedHandler struct {
	name string
	fn   Handler
}

// New returns an empty Registry. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register appends fn under name, returning an Unregister func the caller
// invokes if the resource is released before shutdown runs (e.g. a
// strategy that stops normally rather than via the shutdown signal).
func (r *Registry) Register(name string, fn Handler) (unregister func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := len(r.handlers)
	r.handlers = append(r.handlers, namedHandler{name: name, fn: fn})
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if idx < len(r.handlers) && r.handlers[idx].name == name {
			r.handlers[idx].fn = nil
		}
	}
}

// Shutdown runs every still-registered handler in LIFO order, logging and
// continuing past individual failures so one broken handler cannot block
// the rest of the sequence. A second call after the first completes is
// logged and ignored; it never interrupts a sequence in flight.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		r.logger.Warn("shutdown already in progress or complete, ignoring duplicate signal")
		return
	}
	r.done = true
	handlers := make([]namedHandler, len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.Unlock()

	for i := len(handlers) - 1; i >= 0; i-- {
		h := handlers[i]
		if h.fn == nil {
			continue
		}
		if err := h.fn(ctx); err != nil {
			r.logger.Error("shutdown handler failed", slog.String("handler", h.name), slog.String("error", err.Error()))
		}
	}
}

// Len reports how many handlers are currently registered (including ones
// whose fn has been cleared by Unregister), for test assertions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}
