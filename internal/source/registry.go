package source

import "sync"

// Registry holds the configured sources in registration order
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
	order   []string
}

// NewRegistry creates a new source registry
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]Source),
	}
}

// Register adds a source. Registering an existing ID replaces the source
// but keeps its position.
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sources[s.ID()]; !exists {
		r.order = append(r.order, s.ID())
	}
	r.sources[s.ID()] = s
}

// Get retrieves a source by ID
func (r *Registry) Get(id string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[id]
	return s, ok
}

// IDs returns the registered source IDs in order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]string, len(r.order))
	copy(result, r.order)
	return result
}

// GetAll returns all registered sources in order
func (r *Registry) GetAll() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Source, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.sources[id])
	}
	return result
}

// Infos describes every registered source
func (r *Registry) Infos() []Info {
	all := r.GetAll()
	result := make([]Info, len(all))
	for i, s := range all {
		result[i] = Info{ID: s.ID(), Kind: s.Kind()}
	}
	return result
}
