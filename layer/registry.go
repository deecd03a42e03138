package layer

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry holds the layers known to the application by name.
type Registry struct {
	mu     sync.RWMutex
	layers map[string]*Layer
	log    *zap.Logger
}

// NewRegistry returns an empty registry. A nil logger disables logging.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{layers: make(map[string]*Layer), log: log}
}

// Add registers l under its name, replacing any layer with the same name.
func (r *Registry) Add(l *Layer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layers[l.Name()] = l
}

// Layer returns the layer registered under name.
func (r *Registry) Layer(name string) (*Layer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.layers[name]
	return l, ok
}

// Names lists the registered layer names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.layers))
	for name := range r.layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads a layer file and registers it.
func (r *Registry) Load(path string) (*Layer, error) {
	l, err := Load(path)
	if err != nil {
		r.log.Warn("failed to load layer", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	r.Add(l)
	r.log.Info("layer loaded",
		zap.String("name", l.Name()),
		zap.Int("features", l.Len()),
		zap.Stringer("geometry", l.GeometryType()))
	return l, nil
}
