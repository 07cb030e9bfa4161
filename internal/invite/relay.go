package invite

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chess-live/internal/registry"
	"github.com/park285/chess-live/pkg/wire"
	"go.uber.org/zap"
)

// Relay persists invites and pushes new_invite notifications to every
// currently-open connection of the recipient, independent of room
// membership. Delivery is best-effort: an offline recipient still finds
// the invite via the inbox endpoint when it reconnects.
type Relay struct {
	store Store
	reg   *registry.Registry
	log   *zap.Logger
}

func NewRelay(store Store, reg *registry.Registry, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{store: store, reg: reg, log: log}
}

// Send creates and persists an invite, then notifies the recipient's open
// connections.
func (r *Relay) Send(ctx context.Context, from wire.Identity, toUserID int64, roomID string) (*Invite, error) {
	if from.ID == 0 || toUserID == 0 || roomID == "" {
		return nil, ErrInvalidArgs
	}
	if from.ID == toUserID {
		return nil, ErrSelfInvite
	}
	inv := &Invite{
		ID:           uuid.NewString(),
		FromID:       from.ID,
		FromUsername: from.Username,
		ToUserID:     toUserID,
		RoomID:       roomID,
		Status:       StatusPending,
		CreatedAt:    time.Now(),
	}
	if err := r.store.Create(ctx, inv); err != nil {
		return nil, err
	}

	notified := 0
	for _, c := range r.reg.ConnsByUser(toUserID) {
		if err := c.Send(ctx, wire.NewInvite(inv.Wire())); err == nil {
			notified++
		}
	}
	r.log.Info("invite_sent",
		zap.String("invite_id", inv.ID),
		zap.Int64("from_id", from.ID),
		zap.Int64("to_user_id", toUserID),
		zap.String("room_id", roomID),
		zap.Int("notified_conns", notified),
	)
	return inv, nil
}

// Respond resolves an invite on behalf of its recipient. On acceptance the
// target room id is returned so the responder's client can join it; the
// original sender is not notified in real time and discovers the responder
// inside the room.
func (r *Relay) Respond(ctx context.Context, inviteID string, responder wire.Identity, accept bool) (string, error) {
	inv, err := r.store.Get(ctx, inviteID)
	if err != nil {
		return "", err
	}
	if inv == nil {
		return "", ErrInviteNotFound
	}
	if inv.ToUserID != responder.ID {
		return "", ErrNotRecipient
	}
	if inv.Status != StatusPending {
		return "", ErrInviteResolved
	}

	// The store's conditional transition decides between concurrent
	// responses; the pending check above is only a fast path.
	if !accept {
		ok, err := r.store.Resolve(ctx, inviteID, StatusDeclined)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", ErrInviteResolved
		}
		r.log.Info("invite_declined", zap.String("invite_id", inviteID), zap.Int64("responder", responder.ID))
		return "", nil
	}

	ok, err := r.store.Resolve(ctx, inviteID, StatusAccepted)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrInviteResolved
	}
	// Accepted invites are removed once the responder has the room id.
	if err := r.store.Delete(ctx, inviteID); err != nil {
		r.log.Warn("invite_delete_error", zap.String("invite_id", inviteID), zap.Error(err))
	}
	r.log.Info("invite_accepted", zap.String("invite_id", inviteID), zap.Int64("responder", responder.ID), zap.String("room_id", inv.RoomID))
	return inv.RoomID, nil
}

// Inbox returns the recipient's pending invites for poll-based catch-up.
func (r *Relay) Inbox(ctx context.Context, userID int64) ([]*Invite, error) {
	return r.store.PendingByUser(ctx, userID)
}
