package matchmaking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chess-live/pkg/wire"
	"go.uber.org/zap"
)

// Peer is a matchmaking-scoped transport connection.
type Peer interface {
	ID() string
	Send(ctx context.Context, v any) error
	Closed() bool
}

// ticket is one pending find-opponent request.
type ticket struct {
	identity *wire.Identity
	peer     Peer
	issuedAt time.Time
}

type request struct {
	peer     Peer
	identity *wire.Identity
}

// Queue is the single global waiting list pairing find_match requests into
// freshly minted room ids. One worker goroutine consumes all requests and
// cancellations, so the ticket list needs no locking.
type Queue struct {
	requests chan request
	cancels  chan string
	tickets  []*ticket
	log      *zap.Logger
}

func NewQueue(log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{
		requests: make(chan request, 64),
		cancels:  make(chan string, 64),
		log:      log,
	}
}

// Request enqueues a find_match request for the worker.
func (q *Queue) Request(p Peer, id *wire.Identity) {
	q.requests <- request{peer: p, identity: id}
}

// CancelConn removes any ticket bound to the closed connection.
func (q *Queue) CancelConn(connID string) {
	q.cancels <- connID
}

// Run processes requests until the context is cancelled.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-q.requests:
			q.handleRequest(ctx, req)
		case connID := <-q.cancels:
			q.removeConn(connID)
		}
	}
}

func (q *Queue) handleRequest(ctx context.Context, req request) {
	// A requester already queued replaces its stored connection instead of
	// enqueuing a duplicate; this is what makes reconnects cheap.
	for _, t := range q.tickets {
		if sameRequester(t, req) {
			t.peer = req.peer
			q.log.Debug("match_ticket_refreshed", zap.String("conn_id", req.peer.ID()))
			return
		}
	}

	// Strict FIFO pop of the first viable ticket. Tickets whose connection
	// already closed are discarded, not allowed to block later ones.
	for len(q.tickets) > 0 {
		head := q.tickets[0]
		q.tickets = q.tickets[1:]
		if head.peer.Closed() {
			continue
		}
		roomID := "mm-" + uuid.NewString()
		q.log.Info("match_found",
			zap.String("room_id", roomID),
			zap.String("conn_a", head.peer.ID()),
			zap.String("conn_b", req.peer.ID()),
		)
		found := wire.MatchFound(roomID)
		if err := head.peer.Send(ctx, found); err != nil {
			q.log.Debug("match_notify_failed", zap.String("conn_id", head.peer.ID()), zap.Error(err))
		}
		if err := req.peer.Send(ctx, found); err != nil {
			q.log.Debug("match_notify_failed", zap.String("conn_id", req.peer.ID()), zap.Error(err))
		}
		return
	}

	q.tickets = append(q.tickets, &ticket{identity: req.identity, peer: req.peer, issuedAt: time.Now()})
	q.log.Debug("match_ticket_enqueued", zap.String("conn_id", req.peer.ID()))
}

func (q *Queue) removeConn(connID string) {
	kept := q.tickets[:0]
	for _, t := range q.tickets {
		if t.peer.ID() != connID {
			kept = append(kept, t)
		}
	}
	q.tickets = kept
}

// sameRequester matches by identity when the requester is authenticated,
// else by the connection itself.
func sameRequester(t *ticket, req request) bool {
	if t.identity != nil && req.identity != nil {
		return t.identity.ID == req.identity.ID
	}
	return t.peer.ID() == req.peer.ID()
}
