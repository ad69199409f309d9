package capabilities

// ModelProfile describes one model exposed by a provider.
type ModelProfile struct {
	ID            string `yaml:"id" json:"id"`
	DisplayName   string `yaml:"display_name" json:"display_name"`
	ContextWindow int    `yaml:"context_window" json:"context_window"`
	// VectorSize is set for embedding models only.
	VectorSize int `yaml:"vector_size,omitempty" json:"vector_size,omitempty"`
}

// ProviderProfile is the full capability sheet for one provider: which
// model serves chat turns, which compresses history, and which embeds.
type ProviderProfile struct {
	Provider  string       `yaml:"provider" json:"provider"`
	Chat      ModelProfile `yaml:"chat" json:"chat"`
	Summary   ModelProfile `yaml:"summary" json:"summary"`
	Embedding ModelProfile `yaml:"embedding" json:"embedding"`
}
