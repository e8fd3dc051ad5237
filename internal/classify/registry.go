package classify

import (
	"fmt"
	"sort"
	"strings"
)

// KeywordProviderName selects keyword-only classification.
const KeywordProviderName = "keyword"

// Registry stores model providers and resolves a default provider.
type Registry struct {
	providers       map[string]Provider
	defaultProvider string
}

func NewRegistry(defaultProvider string) *Registry {
	return &Registry{
		providers:       make(map[string]Provider),
		defaultProvider: normalizeProviderName(defaultProvider),
	}
}

// NewRegistryFromSettings registers every hosted provider with the same
// settings. Only the selected one is ever called.
func NewRegistryFromSettings(defaultProvider string, settings ProviderSettings) *Registry {
	registry := NewRegistry(defaultProvider)
	_ = registry.Register(NewOpenAIProvider(settings))
	_ = registry.Register(NewAnthropicProvider(settings))
	return registry
}

func (r *Registry) Register(provider Provider) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if provider == nil {
		return fmt.Errorf("provider is nil")
	}
	name := normalizeProviderName(provider.Name())
	if name == "" {
		return fmt.Errorf("provider name is required")
	}
	r.providers[name] = provider
	return nil
}

// Provider resolves a provider by name. Empty names use the default.
func (r *Registry) Provider(name string) (Provider, error) {
	if r == nil {
		return nil, fmt.Errorf("registry is nil")
	}

	resolved := normalizeProviderName(name)
	if resolved == "" {
		resolved = r.defaultProvider
	}
	if provider, ok := r.providers[resolved]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("%w: %q (available: %s)", ErrNoProvider, resolved, strings.Join(r.ProviderNames(), ", "))
}

func (r *Registry) DefaultProvider() string {
	if r == nil {
		return ""
	}
	return r.defaultProvider
}

func (r *Registry) ProviderNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeProviderName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
