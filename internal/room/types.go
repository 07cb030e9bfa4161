package room

import (
	"context"
	"time"

	"github.com/park285/chess-live/pkg/wire"
)

// Phase is the lifecycle state of a room. FINISHED is terminal for a game
// instance only; the room id itself survives and reopens to WAITING when a
// seat empties.
type Phase string

const (
	PhaseEmpty    Phase = "EMPTY"
	PhaseWaiting  Phase = "WAITING"
	PhaseActive   Phase = "ACTIVE"
	PhaseFinished Phase = "FINISHED"
)

// Peer is a transport connection as seen by a room worker.
type Peer interface {
	ID() string
	Identity() *wire.Identity
	Send(ctx context.Context, v any) error
}

// Settler applies a finished game to persistent player records. Must be
// safe for concurrent calls from many room workers.
type Settler interface {
	Settle(ctx context.Context, roomID, gameID string, white, black *wire.Identity, result, winnerSeat, finalPosition string) error
}

// Snapshot is the durable view of a room, written after every
// state-changing event and read once when a coordinator is created.
// The position is an opaque token, never parsed here.
type Snapshot struct {
	RoomID    string         `json:"room_id"`
	Phase     Phase          `json:"phase"`
	Position  string         `json:"position,omitempty"`
	Started   bool           `json:"started"`
	GameID    string         `json:"game_id,omitempty"`
	White     *wire.Identity `json:"white,omitempty"`
	Black     *wire.Identity `json:"black,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SnapshotStore persists room snapshots. Save is called fire-and-forget
// relative to event processing; Load happens once per coordinator.
type SnapshotStore interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, roomID string) (*Snapshot, error)
}
