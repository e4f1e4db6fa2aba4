// Package broadcast fans reservation events out to connected stream clients.
package broadcast

import (
	"fmt"
	"log"
	"sync"

	"lab-reservation-backend/internal/apperr"
)

// DefaultMaxFailures is the number of consecutive failed deliveries after which
// a client is considered dead and removed.
const DefaultMaxFailures = 5

// DeliverFunc hands an envelope to one client. A non-nil error counts as a failure.
type DeliverFunc func(Envelope) error

type client struct {
	deliver  DeliverFunc
	failures int
	done     chan struct{}
}

// Registry maps client identifiers to delivery callbacks.
// One Registry is built at startup and shared by every stream handler.
type Registry struct {
	mu          sync.Mutex
	clients     map[string]*client
	maxFailures int
}

// NewRegistry creates an empty registry. maxFailures <= 0 selects DefaultMaxFailures.
func NewRegistry(maxFailures int) *Registry {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	return &Registry{
		clients:     make(map[string]*client),
		maxFailures: maxFailures,
	}
}

// AddClient registers deliver under id, replacing any previous registration
// and its failure count. The returned channel is closed once this registration
// is removed, replaced or evicted.
func (r *Registry) AddClient(id string, deliver DeliverFunc) <-chan struct{} {
	c := &client{deliver: deliver, done: make(chan struct{})}
	r.mu.Lock()
	if old, ok := r.clients[id]; ok {
		close(old.done)
	}
	r.clients[id] = c
	r.mu.Unlock()
	return c.done
}

// RemoveClient deregisters id. Unknown ids are ignored.
func (r *Registry) RemoveClient(id string) {
	r.mu.Lock()
	r.removeLocked(id)
	r.mu.Unlock()
}

func (r *Registry) removeLocked(id string) {
	if c, ok := r.clients[id]; ok {
		delete(r.clients, id)
		close(c.done)
	}
}

// Has reports whether id is currently registered.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.clients[id]
	return ok
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Broadcast delivers env to every registered client and returns how many
// deliveries succeeded. Callbacks run without the lock held, so they may call
// back into the registry.
func (r *Registry) Broadcast(env Envelope) int {
	r.mu.Lock()
	targets := make(map[string]*client, len(r.clients))
	for id, c := range r.clients {
		targets[id] = c
	}
	r.mu.Unlock()

	delivered := 0
	for id, c := range targets {
		if r.deliverTo(id, c, env) == nil {
			delivered++
		}
	}
	return delivered
}

// SendToClient delivers env to a single client.
func (r *Registry) SendToClient(id string, env Envelope) error {
	r.mu.Lock()
	c, ok := r.clients[id]
	r.mu.Unlock()
	if !ok {
		return apperr.NotFound("stream client %q", id)
	}
	return r.deliverTo(id, c, env)
}

func (r *Registry) deliverTo(id string, c *client, env Envelope) error {
	err := safeDeliver(c.deliver, env)
	r.record(id, c, err)
	if err != nil {
		return apperr.Transport("stream "+id, err)
	}
	return nil
}

// record updates the failure count of c, unless id has been re-registered
// or removed since c was read.
func (r *Registry) record(id string, c *client, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.clients[id]; !ok || current != c {
		return
	}
	if err == nil {
		c.failures = 0
		return
	}

	c.failures++
	log.Printf("Delivery to stream client %s failed (%d/%d): %v", id, c.failures, r.maxFailures, err)
	if c.failures >= r.maxFailures {
		r.removeLocked(id)
		log.Printf("Stream client %s removed after %d consecutive failures", id, c.failures)
	}
}

func safeDeliver(deliver DeliverFunc, env Envelope) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("delivery panicked: %v", p)
		}
	}()
	return deliver(env)
}
