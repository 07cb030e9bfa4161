package room

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chess-live/pkg/wire"
	"go.uber.org/zap"
)

type eventKind int

const (
	evJoin eventKind = iota
	evFrame
	evLeave
)

type event struct {
	kind  eventKind
	peer  Peer
	frame *wire.ClientFrame
}

type seat struct {
	peer     Peer
	identity *wire.Identity
}

func (s *seat) occupied() bool { return s.peer != nil }

func (s *seat) holds(p Peer) bool { return s.peer != nil && s.peer.ID() == p.ID() }

// Coordinator owns a single room: seat assignment, the position snapshot,
// the phase, and fan-out to every connection in the room. All events are
// processed one at a time by the run loop, which keeps seat assignment and
// phase transitions race-free without locks. Moves and terminal results are
// client-reported and trusted as-is; rule enforcement lives in the clients'
// rules engine, not here.
type Coordinator struct {
	id     string
	events chan event

	phase      Phase
	started    bool
	position   string
	gameID     string
	white      seat
	black      seat
	spectators map[string]Peer

	snaps   SnapshotStore
	settler Settler
	log     *zap.Logger
}

func newCoordinator(id string, snaps SnapshotStore, settler Settler, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		id:         id,
		events:     make(chan event, 64),
		phase:      PhaseEmpty,
		spectators: make(map[string]Peer),
		snaps:      snaps,
		settler:    settler,
		log:        log,
	}
}

// rehydrate restores position, identities and terminal phase from a prior
// snapshot. Live connections never survive a restart, so the started flag
// is always cleared and non-terminal phases collapse to WAITING.
func (c *Coordinator) rehydrate(snap *Snapshot) {
	if snap == nil {
		return
	}
	c.position = snap.Position
	c.gameID = snap.GameID
	c.white.identity = snap.White
	c.black.identity = snap.Black
	if snap.Phase == PhaseFinished {
		c.phase = PhaseFinished
	} else if snap.Phase != "" && snap.Phase != PhaseEmpty {
		c.phase = PhaseWaiting
	}
}

// Join hands a connection to the room worker.
func (c *Coordinator) Join(p Peer) { c.events <- event{kind: evJoin, peer: p} }

// Leave removes a connection after its transport closed.
func (c *Coordinator) Leave(p Peer) { c.events <- event{kind: evLeave, peer: p} }

// Dispatch queues a client frame for serialized processing.
func (c *Coordinator) Dispatch(p Peer, f *wire.ClientFrame) {
	c.events <- event{kind: evFrame, peer: p, frame: f}
}

// start rehydrates from a prior snapshot and then consumes events. The
// load happens on the room's own goroutine so a slow read stalls only
// this room's queued events, never routing for other rooms.
func (c *Coordinator) start(ctx context.Context) {
	if c.snaps != nil {
		lctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		snap, err := c.snaps.Load(lctx, c.id)
		cancel()
		if err != nil {
			c.log.Warn("room_snapshot_load_error", zap.String("room_id", c.id), zap.Error(err))
		} else {
			c.rehydrate(snap)
		}
	}
	c.run(ctx)
}

func (c *Coordinator) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.events:
			switch ev.kind {
			case evJoin:
				c.handleJoin(ctx, ev.peer)
			case evFrame:
				c.handleFrame(ctx, ev.peer, ev.frame)
			case evLeave:
				c.handleLeave(ctx, ev.peer)
			}
		}
	}
}

func (c *Coordinator) handleJoin(ctx context.Context, p Peer) {
	var role string
	switch {
	case !c.white.occupied():
		c.white = seat{peer: p, identity: p.Identity()}
		role = wire.SeatWhite
	case !c.black.occupied():
		c.black = seat{peer: p, identity: p.Identity()}
		role = wire.SeatBlack
	default:
		c.spectators[p.ID()] = p
		role = wire.RoleSpectator
	}
	if c.phase == PhaseEmpty {
		c.phase = PhaseWaiting
	}

	waiting := false
	if role == wire.SeatWhite {
		waiting = !c.black.occupied()
	} else if role == wire.SeatBlack {
		waiting = !c.white.occupied()
	}

	c.send(ctx, p, wire.Role(role, waiting))
	if c.position != "" {
		c.send(ctx, p, wire.State(c.position))
	}
	if role == wire.RoleSpectator {
		if c.white.occupied() && c.white.identity != nil {
			c.send(ctx, p, wire.PlayerInfo(wire.SeatWhite, *c.white.identity))
		}
		if c.black.occupied() && c.black.identity != nil {
			c.send(ctx, p, wire.PlayerInfo(wire.SeatBlack, *c.black.identity))
		}
	}

	if c.white.occupied() && c.black.occupied() && !c.started {
		c.started = true
		c.phase = PhaseActive
		c.gameID = uuid.NewString()
		c.send(ctx, c.white.peer, wire.StartGame(wire.SeatWhite))
		c.send(ctx, c.black.peer, wire.StartGame(wire.SeatBlack))
		if c.white.identity != nil && c.black.identity != nil {
			c.send(ctx, c.white.peer, wire.OpponentInfo(*c.black.identity))
			c.send(ctx, c.black.peer, wire.OpponentInfo(*c.white.identity))
		}
		c.log.Info("room_start",
			zap.String("room_id", c.id),
			zap.String("game_id", c.gameID),
		)
	}

	c.log.Info("room_join", zap.String("room_id", c.id), zap.String("conn_id", p.ID()), zap.String("role", role))
	c.broadcastStats(ctx)
	c.persist()
}

func (c *Coordinator) handleFrame(ctx context.Context, p Peer, f *wire.ClientFrame) {
	if f == nil {
		return
	}
	switch f.Type {
	case wire.TypeJoin:
		// Connecting to the room endpoint already joined; duplicate join
		// frames are a no-op.
	case wire.TypeMove:
		if !c.holdsSeat(p) {
			return
		}
		c.position = f.Position
		c.fanout(ctx, p, wire.Move(f.From, f.To, f.Promotion, f.Position))
		c.persist()
	case wire.TypeChat:
		c.fanout(ctx, p, wire.Chat(f.Text, c.senderName(p, f)))
	case wire.TypeDrawRequest:
		c.fanout(ctx, p, wire.DrawRequest(c.senderName(p, f)))
	case wire.TypeDrawRespond:
		// The requester also learns the outcome, so the sender is included.
		c.broadcast(ctx, wire.DrawRespond(f.Accepted))
	case wire.TypeGameOver:
		c.handleGameOver(ctx, p, f)
	}
}

func (c *Coordinator) handleGameOver(ctx context.Context, p Peer, f *wire.ClientFrame) {
	// Only a seat holder may report a termination; a spectator must never
	// be able to touch persistent ratings.
	if !c.holdsSeat(p) {
		return
	}
	// Both seat-holders may independently report the same termination;
	// only the first one out of ACTIVE settles.
	if c.phase != PhaseActive {
		return
	}
	c.phase = PhaseFinished
	c.fanout(ctx, p, wire.GameOver(f.Result))
	c.log.Info("room_game_over",
		zap.String("room_id", c.id),
		zap.String("game_id", c.gameID),
		zap.String("result", f.Result),
		zap.String("winner_seat", f.WinnerSeat),
	)

	if c.settler != nil {
		gameID, result, winnerSeat, position := c.gameID, f.Result, f.WinnerSeat, c.position
		white, black := c.white.identity, c.black.identity
		go func() {
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := c.settler.Settle(sctx, c.id, gameID, white, black, result, winnerSeat, position); err != nil {
				c.log.Error("settle_error", zap.String("room_id", c.id), zap.String("game_id", gameID), zap.Error(err))
			}
		}()
	}
	c.persist()
}

func (c *Coordinator) handleLeave(ctx context.Context, p Peer) {
	switch {
	case c.white.holds(p):
		c.white = seat{}
		c.reopen()
	case c.black.holds(p):
		c.black = seat{}
		c.reopen()
	default:
		if _, ok := c.spectators[p.ID()]; !ok {
			return // cleanup already ran for this connection
		}
		delete(c.spectators, p.ID())
	}
	c.log.Info("room_leave", zap.String("room_id", c.id), zap.String("conn_id", p.ID()))
	c.broadcastStats(ctx)
	c.persist()
}

// reopen clears the started flag after a seat emptied so a new occupant
// can fill the vacated seat and trigger a fresh start.
func (c *Coordinator) reopen() {
	c.started = false
	if c.phase == PhaseActive || c.phase == PhaseFinished {
		c.phase = PhaseWaiting
	}
}

func (c *Coordinator) holdsSeat(p Peer) bool {
	return c.white.holds(p) || c.black.holds(p)
}

func (c *Coordinator) senderName(p Peer, f *wire.ClientFrame) string {
	if s := strings.TrimSpace(f.Sender); s != "" {
		return s
	}
	if id := p.Identity(); id != nil {
		return id.Username
	}
	return "anonymous"
}

// members snapshots the recipient list. Fan-out always iterates the
// snapshot, never the live collection, so a send failure that triggers
// cleanup cannot invalidate the iteration.
func (c *Coordinator) members() []Peer {
	out := make([]Peer, 0, 2+len(c.spectators))
	if c.white.occupied() {
		out = append(out, c.white.peer)
	}
	if c.black.occupied() {
		out = append(out, c.black.peer)
	}
	for _, p := range c.spectators {
		out = append(out, p)
	}
	return out
}

// fanout delivers v to every connection except the sender. A failed send
// to one peer never prevents delivery to the others.
func (c *Coordinator) fanout(ctx context.Context, exclude Peer, v any) {
	for _, p := range c.members() {
		if exclude != nil && p.ID() == exclude.ID() {
			continue
		}
		c.send(ctx, p, v)
	}
}

func (c *Coordinator) broadcast(ctx context.Context, v any) {
	for _, p := range c.members() {
		c.send(ctx, p, v)
	}
}

func (c *Coordinator) broadcastStats(ctx context.Context) {
	c.broadcast(ctx, wire.Stats(len(c.members())))
}

func (c *Coordinator) send(ctx context.Context, p Peer, v any) {
	if err := p.Send(ctx, v); err != nil {
		// Peer is gone or stalled; its own close path handles cleanup.
		c.log.Debug("room_send_failed", zap.String("room_id", c.id), zap.String("conn_id", p.ID()), zap.Error(err))
	}
}

// persist writes the snapshot fire-and-forget: the broadcast that depends
// on the new state is never delayed by the durable write.
func (c *Coordinator) persist() {
	if c.snaps == nil {
		return
	}
	snap := &Snapshot{
		RoomID:    c.id,
		Phase:     c.phase,
		Position:  c.position,
		Started:   c.started,
		GameID:    c.gameID,
		White:     c.white.identity,
		Black:     c.black.identity,
		UpdatedAt: time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.snaps.Save(ctx, snap); err != nil {
			c.log.Warn("room_snapshot_save_error", zap.String("room_id", c.id), zap.Error(err))
		}
	}()
}
