package invite

import (
	"context"
	"sort"
	"sync"
)

// memstore is an in-memory Store used by tests and DB-less development.
type memstore struct {
	mu      sync.RWMutex
	invites map[string]*Invite
}

func NewMemoryStore() Store {
	return &memstore{invites: make(map[string]*Invite)}
}

func (m *memstore) Create(ctx context.Context, inv *Invite) error {
	if inv == nil {
		return ErrInvalidArgs
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inv
	m.invites[inv.ID] = &cp
	return nil
}

func (m *memstore) Get(ctx context.Context, id string) (*Invite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if inv, ok := m.invites[id]; ok {
		cp := *inv
		return &cp, nil
	}
	return nil, nil
}

func (m *memstore) Resolve(ctx context.Context, id string, status Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[id]
	if !ok || inv.Status != StatusPending {
		return false, nil
	}
	inv.Status = status
	return true, nil
}

func (m *memstore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.invites, id)
	m.mu.Unlock()
	return nil
}

func (m *memstore) PendingByUser(ctx context.Context, userID int64) ([]*Invite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Invite
	for _, inv := range m.invites {
		if inv.ToUserID == userID && inv.Status == StatusPending {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
