package cart

import "sync"

// Registry maps session ids to their carts.
type Registry struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

func NewRegistry() *Registry {
	return &Registry{carts: make(map[string]*Cart)}
}

// For returns the cart for sessionID, creating an empty one on first use.
func (r *Registry) For(sessionID string) *Cart {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[sessionID]
	if !ok {
		c = &Cart{}
		r.carts[sessionID] = c
	}
	return c
}

// Drop discards the cart for sessionID, as on logout.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.carts, sessionID)
	r.mu.Unlock()
}
