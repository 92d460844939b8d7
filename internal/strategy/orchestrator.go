package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Orchestrator owns whichever Strategy is currently active for a
// project, letting the tool surface switch strategies (e.g. reacting to
// a config change) without the caller needing to know how to stop the
// old one cleanly first.
type Orchestrator struct {
	mu      sync.Mutex
	current Strategy
	logger  *slog.Logger
}

// NewOrchestrator returns an Orchestrator with no active strategy.
func NewOrchestrator(logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{logger: logger}
}

// SetStrategy stops whatever strategy is currently active, then starts
// next. If next is nil, the orchestrator is left with no active
// strategy (equivalent to pausing all background indexing). Calling
// SetStrategy with a strategy of the same name as the one already
// active is a no-op: the running strategy is left untouched rather than
// being flushed and restarted.
func (o *Orchestrator) SetStrategy(ctx context.Context, next Strategy) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != nil && next != nil && o.current.Name() == next.Name() {
		return nil
	}

	if o.current != nil {
		if err := o.current.Flush(ctx); err != nil {
			o.logger.Warn("failed to flush previous strategy before switching",
				"strategy", o.current.Name(), "error", err)
		}
		if err := o.current.Stop(ctx); err != nil {
			o.logger.Warn("failed to cleanly stop previous strategy",
				"strategy", o.current.Name(), "error", err)
		}
		o.current = nil
	}
	if next == nil {
		return nil
	}
	if err := next.Start(ctx); err != nil {
		return fmt.Errorf("strategy: orchestrator: start %s: %w", next.Name(), err)
	}
	o.current = next
	return nil
}

// Flush forces the active strategy to apply any buffered work. It is a
// no-op if no strategy is active.
func (o *Orchestrator) Flush(ctx context.Context) error {
	o.mu.Lock()
	current := o.current
	o.mu.Unlock()
	if current == nil {
		return nil
	}
	return current.Flush(ctx)
}

// Stop halts the active strategy and clears it.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	current := o.current
	o.current = nil
	o.mu.Unlock()
	if current == nil {
		return nil
	}
	return current.Stop(ctx)
}

// Stats reports the active strategy's stats, or a zero-value Stats with
// Active=false if none is running.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	current := o.current
	o.mu.Unlock()
	if current == nil {
		return Stats{}
	}
	return current.Stats()
}

// Current returns the name of the active strategy, or "" if none.
func (o *Orchestrator) Current() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return ""
	}
	return o.current.Name()
}
