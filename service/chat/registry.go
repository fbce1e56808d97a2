package chat

import (
	"sort"
	"sync"
)

// Registry is the process-wide presence map: user -> conn_id -> client.
// A user is online iff it has at least one registered connection. The raw map
// never leaves the registry; callers get value snapshots.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Client

	// onChange fires after every mutation, outside the lock, with the updated
	// online set and the clients to notify. Optional.
	onChange func(online []string, conns []*Client)
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[string]*Client),
	}
}

// OnChange installs the broadcast hook. Call before the registry is shared.
func (r *Registry) OnChange(f func(online []string, conns []*Client)) {
	r.onChange = f
}

// Register adds a connection. Idempotent: re-adding the same (user, conn)
// pair leaves the registry unchanged.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	m := r.byUser[c.UserID]
	if m == nil {
		m = make(map[string]*Client)
		r.byUser[c.UserID] = m
	}
	if _, exists := m[c.ConnID]; exists {
		r.mu.Unlock()
		return
	}
	m[c.ConnID] = c
	online, conns := r.snapshotLocked()
	r.mu.Unlock()

	r.notify(online, conns)
}

// Unregister removes a connection; removing one that is absent is a no-op.
// The user goes offline when its last connection is removed.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	m := r.byUser[c.UserID]
	if m == nil {
		r.mu.Unlock()
		return
	}
	if _, exists := m[c.ConnID]; !exists {
		r.mu.Unlock()
		return
	}
	delete(m, c.ConnID)
	if len(m) == 0 {
		delete(r.byUser, c.UserID)
	}
	online, conns := r.snapshotLocked()
	r.mu.Unlock()

	r.notify(online, conns)
}

// Snapshot returns the sorted set of online user IDs as of call time.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	online, _ := r.snapshotLocked()
	return online
}

// Clients returns every registered connection.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, conns := r.snapshotLocked()
	return conns
}

// ListByUser returns all connections of one user.
func (r *Registry) ListByUser(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[userID]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

func (r *Registry) snapshotLocked() ([]string, []*Client) {
	online := make([]string, 0, len(r.byUser))
	var conns []*Client
	for user, m := range r.byUser {
		online = append(online, user)
		for _, c := range m {
			conns = append(conns, c)
		}
	}
	sort.Strings(online)
	return online, conns
}

func (r *Registry) notify(online []string, conns []*Client) {
	if r.onChange != nil {
		r.onChange(online, conns)
	}
}
