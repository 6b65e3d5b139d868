package realtime

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
)

var ErrRegistryFull = errors.New("connection registry full")

// Registry is the authoritative set of open connections. The lock guards
// membership only and is never held while sending.
type Registry struct {
	mu    sync.RWMutex
	conns map[*Conn]struct{}
	max   int
	seq   atomic.Uint64
}

// NewRegistry returns a registry capped at max connections; max <= 0 means unbounded.
func NewRegistry(max int) *Registry {
	return &Registry{
		conns: make(map[*Conn]struct{}),
		max:   max,
	}
}

// NextID hands out connection ids in increasing order, starting at 1.
func (r *Registry) NextID() uint64 {
	return r.seq.Add(1)
}

// Register adds c and moves it to the open state. Registering the same conn twice
// is a no-op; a closed conn is refused.
func (r *Registry) Register(c *Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c]; ok {
		return nil
	}
	if c.State() == StateClosed {
		return ErrConnClosed
	}
	if r.max > 0 && len(r.conns) >= r.max {
		return ErrRegistryFull
	}
	c.markOpen()
	r.conns[c] = struct{}{}
	return nil
}

// Deregister removes c and reports whether it was present. Safe to call any number
// of times from any goroutine.
func (r *Registry) Deregister(c *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c]; !ok {
		return false
	}
	delete(r.conns, c)
	return true
}

// Snapshot returns a point-in-time copy of the membership ordered by conn id.
func (r *Registry) Snapshot() []*Conn {
	r.mu.RLock()
	out := make([]*Conn, 0, len(r.conns))
	for c := range r.conns {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (r *Registry) Contains(c *Conn) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[c]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll deregisters and closes every connection. Used on shutdown.
func (r *Registry) CloseAll() int {
	conns := r.Snapshot()
	for _, c := range conns {
		r.Deregister(c)
		_ = c.Close()
	}
	return len(conns)
}
