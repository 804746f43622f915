package hook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Registry holds ordered handler lists per event. It is an explicit
// instance owned by the assembler and passed by reference to collaborators
// that fire events; there is no package-level default.
//
// Thread-safe: registrations take a write lock, triggers a read lock.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Event][]Handler
	logger   *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger falls back to
// slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[Event][]Handler),
		logger:   logger,
	}
}

// Register appends a handler to the ordered list for an event. Registering
// the same handler twice yields two invocations per trigger; there is no
// deduplication.
func (r *Registry) Register(event Event, h Handler) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = append(r.handlers[event], h)
}

// HandlerCount returns the number of handlers registered for an event.
func (r *Registry) HandlerCount(event Event) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[event])
}

// Trigger invokes every handler registered for the event, in registration
// order, synchronously. A handler error does not stop the remaining
// handlers; all errors are logged, joined, and returned so the caller can
// surface them as a non-fatal warning.
func (r *Registry) Trigger(ctx context.Context, event Event, p Payload) error {
	r.mu.RLock()
	handlers := r.handlers[event]
	r.mu.RUnlock()

	var errs []error
	for i, h := range handlers {
		if err := h(ctx, p); err != nil {
			r.logger.Warn("hook: handler error",
				"event", string(event),
				"handler_index", i,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("hook %s[%d]: %w", event, i, err))
		}
	}
	return errors.Join(errs...)
}
