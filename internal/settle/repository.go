package settle

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/park285/chess-live/pkg/wire"
)

// Repository is the Postgres-backed settlement store.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) RecordFinishedGame(ctx context.Context, g *FinishedGame) (bool, error) {
	if g == nil {
		return false, ErrInvalidArgs
	}
	var whiteID, blackID sql.NullInt64
	var whiteName, blackName sql.NullString
	if g.White != nil {
		whiteID = sql.NullInt64{Int64: g.White.ID, Valid: true}
		whiteName = sql.NullString{String: g.White.Username, Valid: true}
	}
	if g.Black != nil {
		blackID = sql.NullInt64{Int64: g.Black.ID, Valid: true}
		blackName = sql.NullString{String: g.Black.Username, Valid: true}
	}

	const q = `
		INSERT INTO finished_games (
			game_id, room_id, white_id, white_name, black_id, black_name,
			result, winner_seat, final_position, finished_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (game_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, q,
		g.GameID, g.RoomID, whiteID, whiteName, blackID, blackName,
		g.Result, g.WinnerSeat, g.FinalPosition, g.FinishedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert finished game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert finished game: %w", err)
	}
	return n > 0, nil
}

// ApplyOutcome increments the player's counters in a single statement so
// concurrent settlement from other rooms can never lose an update.
func (r *Repository) ApplyOutcome(ctx context.Context, user wire.Identity, outcome Outcome, ratingDelta int) error {
	wins, losses, draws := 0, 0, 0
	switch outcome {
	case OutcomeWin:
		wins = 1
	case OutcomeLoss:
		losses = 1
	case OutcomeDraw:
		draws = 1
	default:
		return ErrInvalidArgs
	}

	const q = `
		INSERT INTO users (id, username, rating, games_played, wins, losses, draws)
		VALUES ($1, $2, 1200 + $3, 1, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			rating = users.rating + $3,
			games_played = users.games_played + 1,
			wins = users.wins + $4,
			losses = users.losses + $5,
			draws = users.draws + $6`
	_, err := r.db.ExecContext(ctx, q, user.ID, user.Username, ratingDelta, wins, losses, draws)
	if err != nil {
		return fmt.Errorf("apply outcome: %w", err)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, userID int64) (*PlayerStats, error) {
	const q = `
		SELECT id, username, rating, games_played, wins, losses, draws
		FROM users
		WHERE id = $1`
	var p PlayerStats
	err := r.db.QueryRowContext(ctx, q, userID).Scan(
		&p.ID, &p.Username, &p.Rating, &p.GamesPlayed, &p.Wins, &p.Losses, &p.Draws,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &p, nil
}
