package plugin

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"bytemomo/oarfish/internal/domain"
)

// ErrPluginNotFound is matched by NotFoundError.
var ErrPluginNotFound = errors.New("plugin not found")

// NotFoundError names the unknown plugin and the ones that do exist.
type NotFoundError struct {
	Name  string
	Known []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("plugin %q not found (available: %s)", e.Name, strings.Join(e.Known, ", "))
}

func (e *NotFoundError) Is(target error) bool { return target == ErrPluginNotFound }

// Factory instantiates a plugin.
type Factory func() (Plugin, error)

// Registry maps plugin names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Default is the registry populated by plugins.Init.
var Default = NewRegistry()

// Register stores the factory under name. Empty names and nil factories
// are ignored.
func (r *Registry) Register(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names lists registered plugins in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DescribeAll instantiates every plugin only to read its metadata. A plugin
// that fails or panics gets a descriptor carrying the error instead.
func (r *Registry) DescribeAll() map[string]domain.Descriptor {
	out := map[string]domain.Descriptor{}
	for _, name := range r.Names() {
		f, _ := r.Lookup(name)
		out[name] = describe(name, f)
	}
	return out
}

func describe(name string, f Factory) (desc domain.Descriptor) {
	defer func() {
		if rec := recover(); rec != nil {
			desc = domain.Descriptor{ID: name, Name: name, Category: domain.CategoryUnknown, Error: fmt.Sprintf("panic: %v", rec)}
		}
	}()

	p, err := f()
	if err != nil {
		return domain.Descriptor{ID: name, Name: name, Category: domain.CategoryUnknown, Error: err.Error()}
	}
	if p == nil {
		return domain.Descriptor{ID: name, Name: name, Category: domain.CategoryUnknown, Error: "factory returned no plugin"}
	}
	desc = p.Metadata()
	if desc.ID == "" {
		desc.ID = name
	}
	if desc.Category == "" {
		desc.Category = domain.CategoryUnknown
	}
	return desc
}

// Load instantiates the named plugin.
func (r *Registry) Load(name string) (Plugin, error) {
	f, ok := r.Lookup(name)
	if !ok {
		return nil, &NotFoundError{Name: name, Known: r.Names()}
	}
	p, err := f()
	if err != nil {
		return nil, fmt.Errorf("load plugin %q: %w", name, err)
	}
	if p == nil {
		return nil, fmt.Errorf("load plugin %q: factory returned no plugin", name)
	}
	return p, nil
}
