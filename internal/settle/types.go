package settle

import (
	"context"
	"errors"
	"time"

	"github.com/park285/chess-live/pkg/wire"
)

var ErrInvalidArgs = errors.New("invalid arguments")

// Outcome is one player's side of a finished game.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

// FinishedGame is the durable record of one completed game instance. The
// game id is minted when the room goes ACTIVE, so repeated game_over
// reports for the same instance collapse onto one row.
type FinishedGame struct {
	GameID        string
	RoomID        string
	White         *wire.Identity
	Black         *wire.Identity
	Result        string
	WinnerSeat    string
	FinalPosition string
	FinishedAt    time.Time
}

// PlayerStats is the persistent counter row settlement maintains.
type PlayerStats struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Rating      int    `json:"rating"`
	GamesPlayed int    `json:"games_played"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	Draws       int    `json:"draws"`
}

// Store is the durable backend for settlement. ApplyOutcome must increment
// atomically: many room workers settle concurrently and read-modify-write
// would lose updates.
type Store interface {
	// RecordFinishedGame persists the game record. It returns false when the
	// game id was already recorded, which callers treat as "already settled".
	RecordFinishedGame(ctx context.Context, g *FinishedGame) (bool, error)
	ApplyOutcome(ctx context.Context, user wire.Identity, outcome Outcome, ratingDelta int) error
	GetUser(ctx context.Context, userID int64) (*PlayerStats, error)
}
