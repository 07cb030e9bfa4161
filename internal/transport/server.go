package transport

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/park285/chess-live/internal/invite"
	"github.com/park285/chess-live/internal/matchmaking"
	"github.com/park285/chess-live/internal/obslog"
	"github.com/park285/chess-live/internal/registry"
	"github.com/park285/chess-live/internal/room"
	"github.com/park285/chess-live/pkg/wire"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Server accepts client websockets and binds each one to its scope:
// a room id, the matchmaking channel, or the global notification channel.
// Identity comes from query params; credential verification is an external
// collaborator and the params are trusted as-is.
type Server struct {
	reg   *registry.Registry
	hub   *room.Hub
	queue *matchmaking.Queue
	relay *invite.Relay

	sendTimeout time.Duration
}

func NewServer(reg *registry.Registry, hub *room.Hub, queue *matchmaking.Queue, relay *invite.Relay, sendTimeout time.Duration) *Server {
	return &Server{reg: reg, hub: hub, queue: queue, relay: relay, sendTimeout: sendTimeout}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/rooms/", s.handleRoom)
	mux.HandleFunc("/ws/match", s.handleMatch)
	mux.HandleFunc("/ws/global", s.handleGlobal)
	return mux
}

func (s *Server) accept(w http.ResponseWriter, r *http.Request) (*Conn, bool) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		obslog.L().Debug("ws_accept_error", zap.String("path", r.URL.Path), zap.Error(err))
		return nil, false
	}
	c := newConn(ws, identityFromQuery(r), s.sendTimeout)
	s.reg.Bind(c, c.Identity())
	return c, true
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/ws/rooms/"))
	if roomID == "" || strings.Contains(roomID, "/") {
		http.NotFound(w, r)
		return
	}
	c, ok := s.accept(w, r)
	if !ok {
		return
	}
	defer s.cleanup(c)
	defer s.hub.Leave(roomID, c)

	// Opening a room-scoped connection is the join.
	s.hub.Join(roomID, c)

	for {
		f, err := c.readFrame(r.Context())
		if err != nil {
			return
		}
		// Frames naming a different room than the one this connection is
		// bound to reference an unknown room from its point of view.
		if f.RoomID != "" && f.RoomID != roomID {
			continue
		}
		s.hub.Dispatch(roomID, c, f)
	}
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	c, ok := s.accept(w, r)
	if !ok {
		return
	}
	defer s.cleanup(c)
	defer s.queue.CancelConn(c.ID())

	for {
		f, err := c.readFrame(r.Context())
		if err != nil {
			return
		}
		if f.Type != wire.TypeFindMatch {
			continue
		}
		id := c.Identity()
		if f.Identity != nil {
			id = f.Identity
		}
		s.queue.Request(c, id)
	}
}

func (s *Server) handleGlobal(w http.ResponseWriter, r *http.Request) {
	c, ok := s.accept(w, r)
	if !ok {
		return
	}
	defer s.cleanup(c)

	for {
		f, err := c.readFrame(r.Context())
		if err != nil {
			return
		}
		id := c.Identity()
		if id == nil {
			// Invites require an authenticated sender/responder.
			continue
		}
		switch f.Type {
		case wire.TypeInvite:
			if _, err := s.relay.Send(r.Context(), *id, f.ToUserID, f.RoomID); err != nil {
				obslog.L().Debug("invite_send_rejected", zap.Int64("from", id.ID), zap.Error(err))
			}
		case wire.TypeInviteRespond:
			roomID, err := s.relay.Respond(r.Context(), f.InviteID, *id, f.Accepted)
			if err != nil {
				obslog.L().Debug("invite_respond_rejected", zap.Int64("responder", id.ID), zap.Error(err))
				continue
			}
			_ = c.Send(r.Context(), wire.InviteResult(f.InviteID, f.Accepted, roomID))
		}
	}
}

// cleanup runs exactly once per connection regardless of why the read
// loop ended.
func (s *Server) cleanup(c *Conn) {
	s.reg.Unbind(c)
	c.close(websocket.StatusNormalClosure, "bye")
}

func identityFromQuery(r *http.Request) *wire.Identity {
	q := r.URL.Query()
	rawID := strings.TrimSpace(q.Get("user_id"))
	if rawID == "" {
		return nil
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &wire.Identity{ID: id, Username: strings.TrimSpace(q.Get("username"))}
}
