package dedup

import "sync"

// Registry tracks top-up request IDs that have already been rendered to the
// admin, so the periodic notifier does not announce the same request twice.
//
// The set lives for the process lifetime only: after a restart every still
// pending request is announced once more, which is the intended recovery
// path. There is no eviction; pending-request volume is bounded by real
// transaction traffic.
type Registry struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		seen: make(map[string]struct{}),
	}
}

// MarkSeen records an ID and reports whether it was new.
func (r *Registry) MarkSeen(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[id]; ok {
		return false
	}
	r.seen[id] = struct{}{}
	return true
}

// Contains reports whether an ID has been marked.
func (r *Registry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.seen[id]
	return ok
}
