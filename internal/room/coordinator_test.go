package room

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	chess "github.com/corentings/chess/v2"
	"github.com/park285/chess-live/pkg/wire"
)

type fakePeer struct {
	id       string
	identity *wire.Identity

	mu     sync.Mutex
	events []any
	fail   bool
}

func newFakePeer(id string, identity *wire.Identity) *fakePeer {
	return &fakePeer{id: id, identity: identity}
}

func (p *fakePeer) ID() string                { return p.id }
func (p *fakePeer) Identity() *wire.Identity  { return p.identity }
func (p *fakePeer) Send(ctx context.Context, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return fmt.Errorf("peer gone")
	}
	p.events = append(p.events, v)
	return nil
}

func (p *fakePeer) recorded() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]any, len(p.events))
	copy(out, p.events)
	return out
}

func (p *fakePeer) roleEvent(t *testing.T) wire.RoleEvent {
	t.Helper()
	for _, ev := range p.recorded() {
		if r, ok := ev.(wire.RoleEvent); ok {
			return r
		}
	}
	t.Fatalf("peer %s received no role event", p.id)
	return wire.RoleEvent{}
}

func (p *fakePeer) startGameEvents() []wire.StartGameEvent {
	var out []wire.StartGameEvent
	for _, ev := range p.recorded() {
		if s, ok := ev.(wire.StartGameEvent); ok {
			out = append(out, s)
		}
	}
	return out
}

func (p *fakePeer) moveEvents() []wire.MoveEvent {
	var out []wire.MoveEvent
	for _, ev := range p.recorded() {
		if m, ok := ev.(wire.MoveEvent); ok {
			out = append(out, m)
		}
	}
	return out
}

type recordingSettler struct {
	mu    sync.Mutex
	calls []string // gameID per call
	done  chan struct{}
}

func newRecordingSettler() *recordingSettler {
	return &recordingSettler{done: make(chan struct{}, 8)}
}

func (s *recordingSettler) Settle(ctx context.Context, roomID, gameID string, white, black *wire.Identity, result, winnerSeat, finalPosition string) error {
	s.mu.Lock()
	s.calls = append(s.calls, gameID)
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

func (s *recordingSettler) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// positionAfter returns the FEN after the given SAN moves. The coordinator
// never parses it; tests just want a realistic opaque token.
func positionAfter(t *testing.T, sans ...string) string {
	t.Helper()
	g := chess.NewGame()
	for _, san := range sans {
		if err := g.PushNotationMove(san, chess.AlgebraicNotation{}, nil); err != nil {
			t.Fatalf("push move %q: %v", san, err)
		}
	}
	return g.FEN()
}

func testCoordinator(settler Settler) *Coordinator {
	return newCoordinator("room-1", nil, settler, nil)
}

func TestSeatAssignmentOrder(t *testing.T) {
	c := testCoordinator(nil)
	ctx := context.Background()

	a := newFakePeer("a", &wire.Identity{ID: 1, Username: "alice"})
	b := newFakePeer("b", &wire.Identity{ID: 2, Username: "bob"})
	s := newFakePeer("s", nil)

	c.handleJoin(ctx, a)
	if r := a.roleEvent(t); r.Role != wire.SeatWhite || !r.Waiting {
		t.Fatalf("first join: want white+waiting, got %+v", r)
	}
	if c.phase != PhaseWaiting {
		t.Fatalf("phase after first join = %s, want WAITING", c.phase)
	}

	c.handleJoin(ctx, b)
	if r := b.roleEvent(t); r.Role != wire.SeatBlack || r.Waiting {
		t.Fatalf("second join: want black not waiting, got %+v", r)
	}

	c.handleJoin(ctx, s)
	if r := s.roleEvent(t); r.Role != wire.RoleSpectator {
		t.Fatalf("third join: want spectator, got %+v", r)
	}

	// Spectator learns who already holds the seats.
	var infos []wire.PlayerInfoEvent
	for _, ev := range s.recorded() {
		if pi, ok := ev.(wire.PlayerInfoEvent); ok {
			infos = append(infos, pi)
		}
	}
	if len(infos) != 2 {
		t.Fatalf("spectator player_info count = %d, want 2", len(infos))
	}
}

func TestStartGameWhenSeatsFill(t *testing.T) {
	c := testCoordinator(nil)
	ctx := context.Background()

	a := newFakePeer("a", &wire.Identity{ID: 1, Username: "alice"})
	b := newFakePeer("b", &wire.Identity{ID: 2, Username: "bob"})

	c.handleJoin(ctx, a)
	if got := a.startGameEvents(); len(got) != 0 {
		t.Fatalf("start_game before both seats filled: %v", got)
	}

	c.handleJoin(ctx, b)
	if c.phase != PhaseActive {
		t.Fatalf("phase = %s, want ACTIVE", c.phase)
	}
	if c.gameID == "" {
		t.Fatalf("expected game instance id after start")
	}

	aStarts, bStarts := a.startGameEvents(), b.startGameEvents()
	if len(aStarts) != 1 || len(bStarts) != 1 {
		t.Fatalf("start_game counts = %d/%d, want 1/1", len(aStarts), len(bStarts))
	}
	if aStarts[0].Seat != wire.SeatWhite || bStarts[0].Seat != wire.SeatBlack {
		t.Fatalf("start_game seats = %q/%q, want w/b", aStarts[0].Seat, bStarts[0].Seat)
	}

	// Both identities are known, so both get opponent_info naming the other.
	var aOpp wire.OpponentInfoEvent
	for _, ev := range a.recorded() {
		if o, ok := ev.(wire.OpponentInfoEvent); ok {
			aOpp = o
		}
	}
	if aOpp.Username != "bob" {
		t.Fatalf("white's opponent_info = %+v, want bob", aOpp)
	}
}

func TestMoveFanoutExcludesSender(t *testing.T) {
	c := testCoordinator(nil)
	ctx := context.Background()

	a := newFakePeer("a", &wire.Identity{ID: 1, Username: "alice"})
	b := newFakePeer("b", &wire.Identity{ID: 2, Username: "bob"})
	s := newFakePeer("s", nil)
	c.handleJoin(ctx, a)
	c.handleJoin(ctx, b)
	c.handleJoin(ctx, s)

	p1 := positionAfter(t, "e4")
	c.handleFrame(ctx, a, &wire.ClientFrame{Type: wire.TypeMove, From: "e2", To: "e4", Position: p1})

	if got := a.moveEvents(); len(got) != 0 {
		t.Fatalf("sender received its own move: %v", got)
	}
	for _, p := range []*fakePeer{b, s} {
		moves := p.moveEvents()
		if len(moves) != 1 {
			t.Fatalf("peer %s move count = %d, want 1", p.id, len(moves))
		}
		if moves[0].From != "e2" || moves[0].To != "e4" || moves[0].Position != p1 {
			t.Fatalf("peer %s got move %+v", p.id, moves[0])
		}
	}
	if c.position != p1 {
		t.Fatalf("stored position = %q, want %q", c.position, p1)
	}
}

func TestSpectatorMoveIgnored(t *testing.T) {
	c := testCoordinator(nil)
	ctx := context.Background()

	a := newFakePeer("a", nil)
	b := newFakePeer("b", nil)
	s := newFakePeer("s", nil)
	c.handleJoin(ctx, a)
	c.handleJoin(ctx, b)
	c.handleJoin(ctx, s)

	c.handleFrame(ctx, s, &wire.ClientFrame{Type: wire.TypeMove, From: "e2", To: "e4", Position: "bogus"})
	if c.position != "" {
		t.Fatalf("spectator move mutated position: %q", c.position)
	}
	if got := a.moveEvents(); len(got) != 0 {
		t.Fatalf("spectator move was fanned out: %v", got)
	}
}

func TestSpectatorGameOverIgnored(t *testing.T) {
	settler := newRecordingSettler()
	c := testCoordinator(settler)
	ctx := context.Background()

	a := newFakePeer("a", &wire.Identity{ID: 1, Username: "alice"})
	b := newFakePeer("b", &wire.Identity{ID: 2, Username: "bob"})
	s := newFakePeer("s", nil)
	c.handleJoin(ctx, a)
	c.handleJoin(ctx, b)
	c.handleJoin(ctx, s)

	c.handleFrame(ctx, s, &wire.ClientFrame{Type: wire.TypeGameOver, Result: "checkmate", WinnerSeat: wire.SeatWhite})
	if c.phase != PhaseActive {
		t.Fatalf("spectator ended the game: phase = %s", c.phase)
	}
	select {
	case <-settler.done:
		t.Fatalf("spectator report reached settlement")
	case <-time.After(50 * time.Millisecond):
	}
	for _, p := range []*fakePeer{a, b} {
		for _, ev := range p.recorded() {
			if _, ok := ev.(wire.GameOverEvent); ok {
				t.Fatalf("peer %s received game_over from a spectator", p.id)
			}
		}
	}
}

func TestRehydrateCollapsesLivePhase(t *testing.T) {
	c := testCoordinator(nil)
	c.rehydrate(&Snapshot{
		RoomID:   "room-1",
		Phase:    PhaseActive,
		Started:  true,
		Position: "pos-token",
		GameID:   "g-1",
		White:    &wire.Identity{ID: 1, Username: "alice"},
	})
	if c.phase != PhaseWaiting || c.started {
		t.Fatalf("phase=%s started=%v, want WAITING/false after restart", c.phase, c.started)
	}
	if c.position != "pos-token" || c.gameID != "g-1" {
		t.Fatalf("state not restored: position=%q game_id=%q", c.position, c.gameID)
	}
	if c.white.identity == nil || c.white.identity.Username != "alice" {
		t.Fatalf("white identity not restored: %+v", c.white.identity)
	}
}

func TestRehydratePreservesFinishedPhase(t *testing.T) {
	c := testCoordinator(nil)
	c.rehydrate(&Snapshot{RoomID: "room-1", Phase: PhaseFinished, GameID: "g-1"})
	if c.phase != PhaseFinished {
		t.Fatalf("phase = %s, want FINISHED preserved", c.phase)
	}
}

func TestLateJoinerReceivesState(t *testing.T) {
	c := testCoordinator(nil)
	ctx := context.Background()

	a := newFakePeer("a", nil)
	b := newFakePeer("b", nil)
	c.handleJoin(ctx, a)
	c.handleJoin(ctx, b)

	p1 := positionAfter(t, "e4")
	c.handleFrame(ctx, a, &wire.ClientFrame{Type: wire.TypeMove, From: "e2", To: "e4", Position: p1})

	s := newFakePeer("s", nil)
	c.handleJoin(ctx, s)
	var states []wire.StateEvent
	for _, ev := range s.recorded() {
		if st, ok := ev.(wire.StateEvent); ok {
			states = append(states, st)
		}
	}
	if len(states) != 1 || states[0].Position != p1 {
		t.Fatalf("late joiner state = %v, want one state with %q", states, p1)
	}
}

func TestChatExcludesSenderDrawRespondIncludesSender(t *testing.T) {
	c := testCoordinator(nil)
	ctx := context.Background()

	a := newFakePeer("a", &wire.Identity{ID: 1, Username: "alice"})
	b := newFakePeer("b", &wire.Identity{ID: 2, Username: "bob"})
	c.handleJoin(ctx, a)
	c.handleJoin(ctx, b)

	c.handleFrame(ctx, a, &wire.ClientFrame{Type: wire.TypeChat, Text: "gl"})
	for _, ev := range a.recorded() {
		if _, ok := ev.(wire.ChatEvent); ok {
			t.Fatalf("chat relayed back to sender")
		}
	}
	found := false
	for _, ev := range b.recorded() {
		if ch, ok := ev.(wire.ChatEvent); ok {
			found = true
			if ch.Text != "gl" || ch.Sender != "alice" {
				t.Fatalf("chat = %+v", ch)
			}
		}
	}
	if !found {
		t.Fatalf("opponent received no chat")
	}

	c.handleFrame(ctx, b, &wire.ClientFrame{Type: wire.TypeDrawRespond, Accepted: true})
	for _, p := range []*fakePeer{a, b} {
		got := false
		for _, ev := range p.recorded() {
			if dr, ok := ev.(wire.DrawRespondEvent); ok && dr.Accepted {
				got = true
			}
		}
		if !got {
			t.Fatalf("peer %s missed draw_respond", p.id)
		}
	}
}

func TestSeatVacateReopensRoom(t *testing.T) {
	c := testCoordinator(nil)
	ctx := context.Background()

	a := newFakePeer("a", nil)
	b := newFakePeer("b", nil)
	c.handleJoin(ctx, a)
	c.handleJoin(ctx, b)
	if c.phase != PhaseActive {
		t.Fatalf("phase = %s, want ACTIVE", c.phase)
	}

	c.handleLeave(ctx, a)
	if c.phase != PhaseWaiting || c.started {
		t.Fatalf("after white left: phase=%s started=%v, want WAITING/false", c.phase, c.started)
	}

	// The vacated seat can be re-occupied and the game restarts.
	a2 := newFakePeer("a2", nil)
	c.handleJoin(ctx, a2)
	if r := a2.roleEvent(t); r.Role != wire.SeatWhite {
		t.Fatalf("rejoin role = %q, want white", r.Role)
	}
	if c.phase != PhaseActive {
		t.Fatalf("phase after reseat = %s, want ACTIVE", c.phase)
	}
	if got := b.startGameEvents(); len(got) != 2 {
		t.Fatalf("black start_game count = %d, want 2 (restart)", len(got))
	}
}

func TestDuplicateLeaveIsIdempotent(t *testing.T) {
	c := testCoordinator(nil)
	ctx := context.Background()

	a := newFakePeer("a", nil)
	b := newFakePeer("b", nil)
	c.handleJoin(ctx, a)
	c.handleJoin(ctx, b)

	c.handleLeave(ctx, a)
	statsBefore := len(b.recorded())
	c.handleLeave(ctx, a) // second cleanup must be a no-op
	if len(b.recorded()) != statsBefore {
		t.Fatalf("duplicate leave broadcast extra events")
	}
}

func TestGameOverSettlesExactlyOnce(t *testing.T) {
	settler := newRecordingSettler()
	c := testCoordinator(settler)
	ctx := context.Background()

	a := newFakePeer("a", &wire.Identity{ID: 1, Username: "alice"})
	b := newFakePeer("b", &wire.Identity{ID: 2, Username: "bob"})
	c.handleJoin(ctx, a)
	c.handleJoin(ctx, b)

	over := &wire.ClientFrame{Type: wire.TypeGameOver, Result: "checkmate", WinnerSeat: wire.SeatWhite}
	c.handleFrame(ctx, a, over)
	c.handleFrame(ctx, b, over) // both clients report the same termination

	select {
	case <-settler.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("settlement never ran")
	}
	// Give a mistaken second settlement a moment to show up.
	select {
	case <-settler.done:
		t.Fatalf("settled twice for one game instance")
	case <-time.After(50 * time.Millisecond):
	}
	if settler.callCount() != 1 {
		t.Fatalf("settle calls = %d, want 1", settler.callCount())
	}
	if c.phase != PhaseFinished {
		t.Fatalf("phase = %s, want FINISHED", c.phase)
	}

	// The opponent hears about it; the reporter does not get an echo.
	got := false
	for _, ev := range b.recorded() {
		if g, ok := ev.(wire.GameOverEvent); ok && g.Result == "checkmate" {
			got = true
		}
	}
	if !got {
		t.Fatalf("opponent missed game_over")
	}
}

func TestFailedSendDoesNotBlockOthers(t *testing.T) {
	c := testCoordinator(nil)
	ctx := context.Background()

	a := newFakePeer("a", nil)
	b := newFakePeer("b", nil)
	s := newFakePeer("s", nil)
	c.handleJoin(ctx, a)
	c.handleJoin(ctx, b)
	c.handleJoin(ctx, s)

	b.fail = true
	p1 := positionAfter(t, "e4")
	c.handleFrame(ctx, a, &wire.ClientFrame{Type: wire.TypeMove, From: "e2", To: "e4", Position: p1})
	if got := s.moveEvents(); len(got) != 1 {
		t.Fatalf("spectator move count = %d, want 1 despite peer failure", len(got))
	}
}

func TestStatsBroadcastOnMembershipChange(t *testing.T) {
	c := testCoordinator(nil)
	ctx := context.Background()

	a := newFakePeer("a", nil)
	b := newFakePeer("b", nil)
	c.handleJoin(ctx, a)
	c.handleJoin(ctx, b)

	var last wire.StatsEvent
	for _, ev := range a.recorded() {
		if st, ok := ev.(wire.StatsEvent); ok {
			last = st
		}
	}
	if last.ConnectionCount != 2 {
		t.Fatalf("stats count = %d, want 2", last.ConnectionCount)
	}

	c.handleLeave(ctx, b)
	for _, ev := range a.recorded() {
		if st, ok := ev.(wire.StatsEvent); ok {
			last = st
		}
	}
	if last.ConnectionCount != 1 {
		t.Fatalf("stats after leave = %d, want 1", last.ConnectionCount)
	}
}
