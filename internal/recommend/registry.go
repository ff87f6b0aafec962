package recommend

import "sync/atomic"

// Registry holds the single current serving model behind an atomic pointer.
// Readers never block each other or the writer; a publish is one pointer
// swap, so in-flight Score calls see either the fully-old or fully-new
// snapshot, never a torn one.
//
// Constructed once at process start and passed down explicitly; there is no
// package-level instance.
type Registry struct {
	current atomic.Pointer[Model]
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Current returns the serving model, or nil before the first publish.
func (r *Registry) Current() *Model {
	return r.current.Load()
}

// Publish atomically replaces the serving model. The previous snapshot
// becomes unreachable once in-flight readers drain.
func (r *Registry) Publish(m *Model) {
	r.current.Store(m)
}

// Score delegates to the current model; serves NeutralScore before any model
// has been published.
func (r *Registry) Score(userID, itemID string) float64 {
	return r.Current().Score(userID, itemID)
}
