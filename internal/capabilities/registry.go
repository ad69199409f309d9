package capabilities

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry manages model profiles across providers, loaded from
// embedded YAML files at startup.
type Registry struct {
	providers map[string]*ProviderProfile
	mu        sync.RWMutex
}

// NewRegistry creates a registry and loads the embedded profile files.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		providers: make(map[string]*ProviderProfile),
	}

	if err := r.loadProviderFile("ollama"); err != nil {
		return nil, fmt.Errorf("failed to load ollama profile: %w", err)
	}

	return r, nil
}

// loadProviderFile loads a provider's profile YAML file
func (r *Registry) loadProviderFile(provider string) error {
	filename := fmt.Sprintf("config/%s.yaml", provider)
	data, err := configFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var profile ProviderProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}

	r.mu.Lock()
	r.providers[provider] = &profile
	r.mu.Unlock()

	return nil
}

// Profile returns the capability sheet for a provider.
func (r *Registry) Profile(provider string) (*ProviderProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
	return profile, nil
}
