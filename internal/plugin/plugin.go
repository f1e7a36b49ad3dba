// Package plugin defines the inventory provider interface for idler.
package plugin

import (
	"context"
	"sync"

	"github.com/yairfalse/idler/pkg/resource"
)

// Query lists one kind of idle resource from a provider.
type Query struct {
	Type resource.Type
	Fn   func(ctx context.Context) ([]resource.Resource, error)
}

// Plugin is the interface every cloud provider must implement.
type Plugin interface {
	// Name returns the plugin identifier (e.g., "aws").
	Name() string

	// Region returns the region the plugin was configured for.
	Region() string

	// Queries returns the idle-resource queries in listing order.
	Queries() []Query

	// Delete removes a resource of the given type from the provider.
	Delete(ctx context.Context, typ resource.Type, id string) error
}

// Registry holds registered plugins.
var (
	registry = make(map[string]Plugin)
	mu       sync.RWMutex
)

// Register adds a plugin to the registry.
func Register(p Plugin) {
	mu.Lock()
	defer mu.Unlock()
	registry[p.Name()] = p
}

// Get returns a plugin by name.
func Get(name string) (Plugin, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[name]
	return p, ok
}

// Names returns all registered plugin names.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Clear removes all plugins from the registry. Used for testing.
func Clear() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[string]Plugin)
}
