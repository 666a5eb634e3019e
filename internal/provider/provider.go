// Package provider defines the search backend interface and the registry of
// named backends.
package provider

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/finetunelab/websearch/internal/models"
)

// Provider is a pluggable search backend. Search converts a normalized query
// into a bounded list of raw documents. Implementations enforce their own
// API result cap, honor ctx cancellation, and return an error only on
// transport/auth/config failure - an empty result set is not an error.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) (*models.ProviderResult, error)
}

// Registry holds named search backends in registration order. It is an
// explicit object constructed at process start and injected into the
// orchestrator, so tests can build isolated registries.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
	logger    *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		providers: make(map[string]Provider),
		logger:    logger,
	}
}

// Register adds a provider. A name collision overwrites the previous
// registration (last wins) and logs a warning.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; exists {
		r.logger.Warn("provider already registered, overwriting", zap.String("provider", name))
	} else {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
}

// Get returns the provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not registered", name)
	}
	return p, nil
}

// List returns all registered providers in registration order.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

// Names returns registered provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
