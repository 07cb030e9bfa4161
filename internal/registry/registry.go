package registry

import (
	"context"
	"sync"

	"github.com/park285/chess-live/pkg/wire"
)

// Conn is the slice of a transport connection the registry needs.
type Conn interface {
	ID() string
	Send(ctx context.Context, v any) error
}

// Registry tracks live connections and the identity bound to each. It is
// purely in-memory and rebuilt as clients reconnect after a restart. Its
// only consumer beyond bookkeeping is the invite relay, which needs "all
// open connections for user X" without scanning rooms.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*wire.Identity
	byUser map[int64]map[string]Conn
}

func New() *Registry {
	return &Registry{
		byConn: make(map[string]*wire.Identity),
		byUser: make(map[int64]map[string]Conn),
	}
}

// Bind records the connection and its optional identity. Re-binding the
// same connection replaces the previous identity.
func (r *Registry) Bind(c Conn, id *wire.Identity) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byConn[c.ID()]; ok && prev != nil {
		delete(r.byUser[prev.ID], c.ID())
	}
	r.byConn[c.ID()] = id
	if id != nil {
		set := r.byUser[id.ID]
		if set == nil {
			set = make(map[string]Conn)
			r.byUser[id.ID] = set
		}
		set[c.ID()] = c
	}
}

// Unbind removes all bookkeeping for the connection. Idempotent.
func (r *Registry) Unbind(c Conn) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byConn[c.ID()]
	if !ok {
		return
	}
	delete(r.byConn, c.ID())
	if id != nil {
		delete(r.byUser[id.ID], c.ID())
		if len(r.byUser[id.ID]) == 0 {
			delete(r.byUser, id.ID)
		}
	}
}

// ConnsByUser returns every open connection bound to the user.
func (r *Registry) ConnsByUser(userID int64) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byUser[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// Size reports the number of tracked connections.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
