package ai

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"lawchat/pkg/config"
)

// ProviderType is the LLM_PROVIDER value selecting a backend.
type ProviderType string

const (
	ProviderGoogle     ProviderType = "google"
	ProviderOpenRouter ProviderType = "openrouter"
)

// Factory builds a Provider from the server configuration.
type Factory func(cfg config.ServerConfig) (Provider, error)

// Registry maps provider types to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[ProviderType]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[ProviderType]Factory)}
}

// Register adds or replaces the factory for t.
func (r *Registry) Register(t ProviderType, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[t] = factory
}

// Types lists the registered provider types, sorted.
func (r *Registry) Types() []ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ProviderType, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// New builds the provider named by cfg.LLMProvider.
func (r *Registry) New(cfg config.ServerConfig) (Provider, error) {
	t := ProviderType(strings.ToLower(strings.TrimSpace(cfg.LLMProvider)))
	r.mu.RLock()
	factory, ok := r.factories[t]
	r.mu.RUnlock()
	if !ok {
		names := make([]string, 0)
		for _, known := range r.Types() {
			names = append(names, string(known))
		}
		return nil, fmt.Errorf("unknown LLM provider %q (available: %s)", cfg.LLMProvider, strings.Join(names, ", "))
	}
	p, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s provider: %w", t, err)
	}
	return p, nil
}

// DefaultRegistry holds the providers registered by pkg/ai/providers.
var DefaultRegistry = NewRegistry()

// Register adds a factory to DefaultRegistry.
func Register(t ProviderType, factory Factory) {
	DefaultRegistry.Register(t, factory)
}

// GetProviderFromConfig builds the provider named by LLM_PROVIDER.
func GetProviderFromConfig(cfg config.ServerConfig) (Provider, error) {
	return DefaultRegistry.New(cfg)
}
