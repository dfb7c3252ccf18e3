// Package scene adapts serialized scene descriptions into the
// bvhcore.Scene/Geometry interfaces the builder walks. A format name maps
// to a Loader, so adding support for a new wire format never touches the
// builder.
package scene

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/lange-studios/gobvh/internal/bvhcore"
)

// Loader parses a scene description from r into a bvhcore.Scene.
type Loader interface {
	// Load parses scene data from r.
	Load(ctx context.Context, r io.Reader) (bvhcore.Scene, error)

	// Name returns the format name this loader registers under.
	Name() string
}

// Registry holds loaders keyed by format name ("json", ...).
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

// Register registers a loader under its own Name().
func (r *Registry) Register(l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[l.Name()] = l
}

// Get returns the loader registered for format, if any.
func (r *Registry) Get(format string) (Loader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loaders[format]
	return l, ok
}

// Load parses scene data in the given format using the registered loader.
func (r *Registry) Load(ctx context.Context, format string, reader io.Reader) (bvhcore.Scene, error) {
	l, ok := r.Get(format)
	if !ok {
		return nil, fmt.Errorf("scene: no loader registered for format %q", format)
	}
	return l.Load(ctx, reader)
}

// Formats returns every registered format name.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.loaders))
	for name := range r.loaders {
		out = append(out, name)
	}
	return out
}

// DefaultRegistry is the package-level registry pre-populated with the
// built-in loaders. Callers needing a custom set build their own Registry.
var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.Register(&JSONLoader{})
}

// Load loads a scene in the given format using DefaultRegistry.
func Load(ctx context.Context, format string, reader io.Reader) (bvhcore.Scene, error) {
	return DefaultRegistry.Load(ctx, format, reader)
}
