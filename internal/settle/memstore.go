package settle

import (
	"context"
	"sync"

	"github.com/park285/chess-live/pkg/wire"
)

// memstore is an in-memory Store used by tests and DB-less development.
type memstore struct {
	mu    sync.Mutex
	games map[string]*FinishedGame
	users map[int64]*PlayerStats
}

func NewMemoryStore() Store {
	return &memstore{
		games: make(map[string]*FinishedGame),
		users: make(map[int64]*PlayerStats),
	}
}

func (m *memstore) RecordFinishedGame(ctx context.Context, g *FinishedGame) (bool, error) {
	if g == nil {
		return false, ErrInvalidArgs
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.games[g.GameID]; exists {
		return false, nil
	}
	cp := *g
	m.games[g.GameID] = &cp
	return true, nil
}

func (m *memstore) ApplyOutcome(ctx context.Context, user wire.Identity, outcome Outcome, ratingDelta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.users[user.ID]
	if !ok {
		p = &PlayerStats{ID: user.ID, Username: user.Username, Rating: 1200}
		m.users[user.ID] = p
	}
	p.Rating += ratingDelta
	p.GamesPlayed++
	switch outcome {
	case OutcomeWin:
		p.Wins++
	case OutcomeLoss:
		p.Losses++
	case OutcomeDraw:
		p.Draws++
	default:
		return ErrInvalidArgs
	}
	return nil
}

func (m *memstore) GetUser(ctx context.Context, userID int64) (*PlayerStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.users[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}
