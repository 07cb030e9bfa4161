package room

import (
	"context"
	"sync"

	"github.com/park285/chess-live/pkg/wire"
	"go.uber.org/zap"
)

// Hub locates the coordinator for a room id, creating it lazily on first
// use. Every coordinator runs its own worker goroutine; no mutable state
// is shared between rooms, so the hub lock only guards the lookup table.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*Coordinator

	ctx     context.Context
	snaps   SnapshotStore
	settler Settler
	log     *zap.Logger
}

func NewHub(ctx context.Context, snaps SnapshotStore, settler Settler, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms:   make(map[string]*Coordinator),
		ctx:     ctx,
		snaps:   snaps,
		settler: settler,
		log:     log,
	}
}

// Join hands a connection to the coordinator for roomID, creating and
// rehydrating the room if this is the first reference to the id.
func (h *Hub) Join(roomID string, p Peer) {
	h.get(roomID, true).Join(p)
}

// Dispatch routes a frame to an existing room. Frames referencing an
// unknown room are silently ignored.
func (h *Hub) Dispatch(roomID string, p Peer, f *wire.ClientFrame) {
	if c := h.get(roomID, false); c != nil {
		c.Dispatch(p, f)
	}
}

// Leave removes the connection from the room, if it exists.
func (h *Hub) Leave(roomID string, p Peer) {
	if c := h.get(roomID, false); c != nil {
		c.Leave(p)
	}
}

// get never blocks on I/O under the lock: a new coordinator is published
// immediately and rehydrates on its own goroutine, so a slow snapshot read
// for one room cannot stall event routing for the others.
func (h *Hub) get(roomID string, create bool) *Coordinator {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.rooms[roomID]; ok {
		return c
	}
	if !create {
		return nil
	}
	c := newCoordinator(roomID, h.snaps, h.settler, h.log)
	h.rooms[roomID] = c
	go c.start(h.ctx)
	return c
}
