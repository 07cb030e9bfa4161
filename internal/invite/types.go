package invite

import (
	"context"
	"errors"
	"time"

	"github.com/park285/chess-live/pkg/wire"
)

var (
	ErrInvalidArgs    = errors.New("invalid arguments")
	ErrSelfInvite     = errors.New("cannot invite yourself")
	ErrInviteNotFound = errors.New("invite not found")
	ErrNotRecipient   = errors.New("invite belongs to another user")
	ErrInviteResolved = errors.New("invite already resolved")
)

// Status is the lifecycle of an invite. Accepted and declined are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// Invite is a challenge notification from one authenticated user to
// another, carrying the room id the recipient should join on acceptance.
type Invite struct {
	ID           string    `json:"id"`
	FromID       int64     `json:"from_id"`
	FromUsername string    `json:"from_username"`
	ToUserID     int64     `json:"to_user_id"`
	RoomID       string    `json:"room_id"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Wire converts the invite to its transport representation.
func (i *Invite) Wire() wire.Invite {
	return wire.Invite{
		ID:           i.ID,
		FromID:       i.FromID,
		FromUsername: i.FromUsername,
		RoomID:       i.RoomID,
		Status:       string(i.Status),
		CreatedAt:    i.CreatedAt,
	}
}

// Store persists invites so offline recipients can discover them later
// through the inbox endpoint.
type Store interface {
	Create(ctx context.Context, inv *Invite) error
	Get(ctx context.Context, id string) (*Invite, error)
	// Resolve transitions a pending invite to a terminal status. It reports
	// false when the invite is missing or no longer pending, which makes it
	// the arbiter between concurrent responses.
	Resolve(ctx context.Context, id string, status Status) (bool, error)
	Delete(ctx context.Context, id string) error
	PendingByUser(ctx context.Context, userID int64) ([]*Invite, error)
}
