package invite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Repository is the Postgres-backed invite store.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, inv *Invite) error {
	if inv == nil {
		return ErrInvalidArgs
	}
	const q = `
		INSERT INTO invites (id, from_id, from_username, to_user_id, room_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, q,
		inv.ID, inv.FromID, inv.FromUsername, inv.ToUserID, inv.RoomID, string(inv.Status), inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Invite, error) {
	const q = `
		SELECT id, from_id, from_username, to_user_id, room_id, status, created_at
		FROM invites
		WHERE id = $1`
	var inv Invite
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&inv.ID, &inv.FromID, &inv.FromUsername, &inv.ToUserID, &inv.RoomID, &inv.Status, &inv.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select invite: %w", err)
	}
	return &inv, nil
}

// Resolve only touches pending rows; the row count tells concurrent
// responders apart without a transaction.
func (r *Repository) Resolve(ctx context.Context, id string, status Status) (bool, error) {
	const q = `UPDATE invites SET status = $2 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, q, id, string(status))
	if err != nil {
		return false, fmt.Errorf("resolve invite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve invite: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM invites WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete invite: %w", err)
	}
	return nil
}

func (r *Repository) PendingByUser(ctx context.Context, userID int64) ([]*Invite, error) {
	const q = `
		SELECT id, from_id, from_username, to_user_id, room_id, status, created_at
		FROM invites
		WHERE to_user_id = $1 AND status = 'pending'
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("select pending invites: %w", err)
	}
	defer rows.Close()

	var out []*Invite
	for rows.Next() {
		var inv Invite
		if err := rows.Scan(&inv.ID, &inv.FromID, &inv.FromUsername, &inv.ToUserID, &inv.RoomID, &inv.Status, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		out = append(out, &inv)
	}
	return out, rows.Err()
}
