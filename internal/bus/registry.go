package bus

import "sync"

type registry struct {
	mu   sync.RWMutex
	next int
	subs map[string]map[int]Handler
}

func newRegistry() *registry {
	return &registry{subs: make(map[string]map[int]Handler)}
}

func (r *registry) add(kind string, h Handler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	id := r.next
	if r.subs[kind] == nil {
		r.subs[kind] = make(map[int]Handler)
	}
	r.subs[kind][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.subs[kind], id)
		})
	}
}

func (r *registry) handlers(kind string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Handler, 0, len(r.subs[kind])+len(r.subs[Wildcard]))
	for _, h := range r.subs[kind] {
		out = append(out, h)
	}
	for _, h := range r.subs[Wildcard] {
		out = append(out, h)
	}
	return out
}

// dispatch runs handlers outside the lock so they may subscribe or publish.
func (r *registry) dispatch(env Envelope) int {
	hs := r.handlers(env.Kind)
	for _, h := range hs {
		h(env)
	}
	return len(hs)
}
