// Package login wires login attempts to their provider-specific exchangers.
//
// Exactly one exchanger runs per login attempt, selected by which provider
// originated the attempt:
//   - credentials: password grant against the backend token endpoint
//   - oauth: identity-assertion exchange against the backend OAuth-sync endpoint
package login

import (
	"sync"

	types "github.com/classdesk/session-gateway/internal/login/types"
)

// Registry maps providers to their exchangers.
type Registry struct {
	mu         sync.RWMutex
	exchangers map[types.Provider]types.Exchanger
}

// NewRegistry creates an empty exchanger registry.
func NewRegistry() *Registry {
	return &Registry{
		exchangers: make(map[types.Provider]types.Exchanger),
	}
}

// Register adds an exchanger for a provider.
func (r *Registry) Register(provider types.Provider, exchanger types.Exchanger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exchangers[provider] = exchanger
}

// Get returns the exchanger for a provider.
// Returns nil if no exchanger is registered.
func (r *Registry) Get(provider types.Provider) types.Exchanger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.exchangers[provider]
}

// ForAttempt returns the exchanger matching the attempt's provider.
func (r *Registry) ForAttempt(attempt types.Attempt) types.Exchanger {
	if attempt == nil {
		return nil
	}
	return r.Get(attempt.Provider())
}

// Providers returns all registered provider names.
func (r *Registry) Providers() []types.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]types.Provider, 0, len(r.exchangers))
	for p := range r.exchangers {
		providers = append(providers, p)
	}
	return providers
}
