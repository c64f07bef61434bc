package cache

import (
	"sync"
)

// Registry owns at most one shared Cache for a process.
//
// Lifecycle:
//   - Get creates the Cache on first use from the registry options followed by
//     the call options; later calls return the same instance and ignore options.
//   - Teardown destroys the Cache and forgets it.
//   - Get after Teardown creates a fresh Cache with the same resolution rules.
//
// Tests create their own Registry instead of sharing one.
type Registry struct {
	mu    sync.Mutex
	opts  []Option
	cache *Cache
}

// NewRegistry creates an empty registry whose caches are built with opts.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{opts: opts}
}

// Get returns the shared Cache, creating it if needed.
func (r *Registry) Get(opts ...Option) (*Cache, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cache != nil {
		return r.cache, nil
	}

	all := make([]Option, 0, len(r.opts)+len(opts))
	all = append(all, r.opts...)
	all = append(all, opts...)

	c, err := New(all...)
	if err != nil {
		return nil, err
	}
	r.cache = c
	return c, nil
}

// Active reports whether a Cache currently exists.
func (r *Registry) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache != nil
}

// Teardown destroys the shared Cache, if any. It is safe to call repeatedly.
func (r *Registry) Teardown() {
	r.mu.Lock()
	c := r.cache
	r.cache = nil
	r.mu.Unlock()

	if c != nil {
		c.Destroy()
	}
}
