// Package notify routes outbound notifications to the channel named by a
// subject's notify key (e.g. "telegram:12345").
package notify

import (
	"fmt"
	"strings"
	"sync"
)

// Handler delivers a message to one channel. The key includes the prefix.
type Handler func(key, message string) error

// Registry routes messages to the handler matching the key's prefix.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler for keys starting with prefix.
func (r *Registry) Register(prefix string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[prefix] = handler
}

// Notify finds the handler matching the key prefix and calls it. Returns an
// error if no handler is registered for the prefix.
func (r *Registry) Notify(key, message string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for prefix, handler := range r.handlers {
		if strings.HasPrefix(key, prefix) {
			return handler(key, message)
		}
	}
	return fmt.Errorf("no notification handler for key: %s", key)
}
