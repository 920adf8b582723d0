package workspace

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/1broseidon/yws/internal/platform"
)

// ErrHandler wraps failures raised by a handler hook.
var ErrHandler = errors.New("handler failed")

// Handler captures and restores app-specific window content that the
// daemon does not track, such as browser tabs.
type Handler interface {
	// Name keys the handler's payload in Window.HandlerData.
	Name() string
	// Capture returns nil when the window is not one the handler cares
	// about. Any other value must be JSON-encodable.
	Capture(ctx context.Context, win platform.Window) (any, error)
	// Restore receives the payload Capture produced, after a JSON round trip.
	Restore(ctx context.Context, payload any) error
}

// Registry holds handlers by name. Registering a name twice replaces the
// earlier handler and logs a warning.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   zerolog.Logger
}

// NewRegistry creates a registry and registers handlers in order.
func NewRegistry(logger zerolog.Logger, handlers ...Handler) *Registry {
	r := &Registry{
		handlers: make(map[string]Handler),
		logger:   logger.With().Str("component", "handlers").Logger(),
	}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

// Register inserts h, replacing any handler with the same name. It reports
// whether a handler was replaced.
func (r *Registry) Register(h Handler) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := h.Name()
	_, replaced := r.handlers[name]
	if replaced {
		r.logger.Warn().Str("handler", name).Msg("replacing previously registered handler")
	}
	r.handlers[name] = h
	return replaced
}

// Get returns the handler registered under name.
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns registered handler names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
