package settle

import (
	"context"
	"errors"
	"time"

	"github.com/park285/chess-live/pkg/wire"
	"go.uber.org/zap"
)

// Settler applies a finished game to persistent player records: one
// finished-game row plus counter updates for both seats. The finished-game
// insert doubles as the idempotency latch, so a duplicate game_over (both
// clients reporting the same termination, or a replay after restart) never
// double-increments a rating.
type Settler struct {
	store     Store
	winBonus  int
	drawBonus int
	log       *zap.Logger
}

func NewSettler(store Store, winBonus, drawBonus int, log *zap.Logger) *Settler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Settler{store: store, winBonus: winBonus, drawBonus: drawBonus, log: log}
}

// Settle records the game and updates both players' counters. Anonymous
// seats (local pass-and-play) have no persistent record and are skipped.
func (s *Settler) Settle(ctx context.Context, roomID, gameID string, white, black *wire.Identity, result, winnerSeat, finalPosition string) error {
	if roomID == "" || gameID == "" {
		return ErrInvalidArgs
	}
	rec := &FinishedGame{
		GameID:        gameID,
		RoomID:        roomID,
		White:         white,
		Black:         black,
		Result:        result,
		WinnerSeat:    winnerSeat,
		FinalPosition: finalPosition,
		FinishedAt:    time.Now(),
	}
	inserted, err := s.store.RecordFinishedGame(ctx, rec)
	if err != nil {
		return err
	}
	if !inserted {
		s.log.Info("settle_skipped_duplicate", zap.String("room_id", roomID), zap.String("game_id", gameID))
		return nil
	}

	// The game record above is the idempotency latch: a retry of the same
	// game id will be skipped as already settled. So a failed counter
	// update on one seat must not stop the other seat's update, and both
	// failures are logged loudly for reconciliation.
	whiteOutcome, blackOutcome := outcomes(winnerSeat)
	werr := s.apply(ctx, white, whiteOutcome)
	if werr != nil {
		s.log.Error("settle_outcome_error",
			zap.String("game_id", gameID), zap.String("seat", wire.SeatWhite), zap.Error(werr))
	}
	berr := s.apply(ctx, black, blackOutcome)
	if berr != nil {
		s.log.Error("settle_outcome_error",
			zap.String("game_id", gameID), zap.String("seat", wire.SeatBlack), zap.Error(berr))
	}
	if werr != nil || berr != nil {
		return errors.Join(werr, berr)
	}
	s.log.Info("settle_applied",
		zap.String("room_id", roomID),
		zap.String("game_id", gameID),
		zap.String("result", result),
		zap.String("winner_seat", winnerSeat),
	)
	return nil
}

func (s *Settler) apply(ctx context.Context, id *wire.Identity, outcome Outcome) error {
	if id == nil {
		return nil
	}
	delta := 0
	switch outcome {
	case OutcomeWin:
		delta = s.winBonus
	case OutcomeDraw:
		delta = s.drawBonus
	}
	return s.store.ApplyOutcome(ctx, *id, outcome, delta)
}

// outcomes maps the reported winner seat to per-side outcomes. Anything
// that is not a seat token is treated as a draw.
func outcomes(winnerSeat string) (white, black Outcome) {
	switch winnerSeat {
	case wire.SeatWhite:
		return OutcomeWin, OutcomeLoss
	case wire.SeatBlack:
		return OutcomeLoss, OutcomeWin
	default:
		return OutcomeDraw, OutcomeDraw
	}
}
