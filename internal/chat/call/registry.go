// Package call tracks per-peer call signaling handlers.
package call

import (
	"sync"

	"github.com/parleychat/parley/internal/chat"
	"go.uber.org/zap"
)

// Handler receives call signaling events for one peer.
type Handler func(chat.CallEvent)

// Registry maps peer ids to call handlers. At most one handler is active
// per peer; the last registration wins. The registry is cleared in full on
// disconnect so no handler survives a connection replacement.
type Registry struct {
	logger   *zap.Logger
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty call handler registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger:   logger.Named("chat.call"),
		handlers: make(map[string]Handler),
	}
}

// Register installs the handler for a peer, replacing any existing one.
func (r *Registry) Register(peerID string, fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[peerID] = fn
}

// Unregister removes the handler for a peer. Safe to call when absent.
func (r *Registry) Unregister(peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, peerID)
}

// Dispatch routes an inbound call event to the handler registered for its
// origin peer. Events for unregistered peers are dropped silently.
func (r *Registry) Dispatch(event chat.CallEvent) {
	r.mu.RLock()
	fn, ok := r.handlers[event.From]
	r.mu.RUnlock()

	if !ok {
		r.logger.Debug("no call handler registered for peer", zap.String("from", event.From))
		return
	}
	fn(event)
}

// Clear removes every registered handler.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[string]Handler)
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
