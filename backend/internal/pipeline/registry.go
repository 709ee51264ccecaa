// Package pipeline implements the named transform registries that let
// embedding applications reshape accounts and content on their way into and
// out of the store. Write-side transforms are called builders, read-side
// transforms are called reducers; both share the Registry type.
package pipeline

import (
	"sort"
	"strings"
	"sync"

	"snap-backend/backend/internal/store"
)

// DefaultName is reserved: the transform registered under it runs first on
// every Run call, whether or not the caller asks for it. It may be
// re-registered to change baseline shaping globally.
const DefaultName = "default"

// Transform reshapes a record. Transforms receive the output of the previous
// transform in the chain and must return a record of the same entity kind.
type Transform func(store.Record) store.Record

// Registry holds the named transforms for one entity kind and direction.
// Registries are populated at startup and read during request handling; the
// lock makes late registration safe as well.
type Registry struct {
	mu         sync.RWMutex
	transforms map[string]Transform
}

// NewRegistry creates a registry whose "default" transform is the identity.
func NewRegistry() *Registry {
	return &Registry{
		transforms: map[string]Transform{
			DefaultName: func(rec store.Record) store.Record { return rec },
		},
	}
}

// Register adds fn under name, overwriting any existing transform with that
// name, including "default". It reports whether the registration was
// accepted: blank names, names with embedded whitespace, and nil transforms
// are rejected.
func (r *Registry) Register(name string, fn Transform) bool {
	if fn == nil || name == "" || strings.ContainsAny(name, " \t\n") {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transforms[name] = fn
	return true
}

// Keys returns the sorted names of all registered transforms.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.transforms))
	for name := range r.transforms {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}

// Run applies "default" followed by each named transform in order. Names
// with no registered transform are skipped; callers pass a wish list, not a
// strict contract. A second "default" in names runs the default transform
// again, matching its position in the list.
func (r *Registry) Run(rec store.Record, names []string) store.Record {
	if rec == nil {
		return nil
	}

	r.mu.RLock()
	chain := make([]Transform, 0, len(names)+1)
	chain = append(chain, r.transforms[DefaultName])
	for _, name := range names {
		if fn, ok := r.transforms[name]; ok {
			chain = append(chain, fn)
		}
	}
	r.mu.RUnlock()

	for _, fn := range chain {
		rec = fn(rec)
	}
	return rec
}
