package core

import "sort"

// Size describes the dimensions of a raster.
type Size struct {
	W int
	H int
}

// Registry maps names to factories of type F.
type Registry[F any] struct {
	entries map[string]F
}

// Register adds a factory under the provided name. Empty names are ignored.
func (r *Registry[F]) Register(name string, f F) {
	if name == "" {
		return
	}
	if r.entries == nil {
		r.entries = map[string]F{}
	}
	r.entries[name] = f
}

// Lookup returns the factory registered under name.
func (r *Registry[F]) Lookup(name string) (F, bool) {
	f, ok := r.entries[name]
	return f, ok
}

// Names lists the registered names in sorted order.
func (r *Registry[F]) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
