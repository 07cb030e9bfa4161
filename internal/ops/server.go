package ops

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/park285/chess-live/internal/invite"
	"github.com/park285/chess-live/internal/obslog"
	"github.com/park285/chess-live/internal/registry"
	"github.com/park285/chess-live/internal/settle"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Server is the small HTTP side-door next to the websocket transport:
// health probe, invite inbox poll for reconnecting clients, and a
// read-only view of the counters settlement maintains.
type Server struct {
	relay *invite.Relay
	stats settle.Store
	reg   *registry.Registry
}

func NewServer(relay *invite.Relay, stats settle.Store, reg *registry.Registry) *Server {
	return &Server{relay: relay, stats: stats, reg: reg}
}

// Serve blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &fasthttp.Server{
		Handler: s.route,
		Name:    "chess-live-ops",
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(addr) }()
	select {
	case <-ctx.Done():
		if err := srv.Shutdown(); err != nil {
			obslog.L().Warn("ops_shutdown_error", zap.Error(err))
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) route(c *fasthttp.RequestCtx) {
	switch string(c.Path()) {
	case "/healthz":
		s.health(c)
	case "/api/invites/inbox":
		s.inbox(c)
	case "/api/profiles":
		s.profile(c)
	default:
		c.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *Server) health(c *fasthttp.RequestCtx) {
	writeJSON(c, fasthttp.StatusOK, map[string]any{
		"status":      "ok",
		"connections": s.reg.Size(),
	})
}

func (s *Server) inbox(c *fasthttp.RequestCtx) {
	userID, ok := userIDArg(c)
	if !ok {
		return
	}
	invites, err := s.relay.Inbox(c, userID)
	if err != nil {
		obslog.L().Error("ops_inbox_error", zap.Int64("user_id", userID), zap.Error(err))
		c.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	out := make([]any, 0, len(invites))
	for _, inv := range invites {
		out = append(out, inv.Wire())
	}
	writeJSON(c, fasthttp.StatusOK, map[string]any{"invites": out})
}

func (s *Server) profile(c *fasthttp.RequestCtx) {
	userID, ok := userIDArg(c)
	if !ok {
		return
	}
	p, err := s.stats.GetUser(c, userID)
	if err != nil {
		obslog.L().Error("ops_profile_error", zap.Int64("user_id", userID), zap.Error(err))
		c.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	if p == nil {
		c.SetStatusCode(fasthttp.StatusNotFound)
		return
	}
	writeJSON(c, fasthttp.StatusOK, p)
}

func userIDArg(c *fasthttp.RequestCtx) (int64, bool) {
	raw := strings.TrimSpace(string(c.QueryArgs().Peek("user_id")))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.SetStatusCode(fasthttp.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(c *fasthttp.RequestCtx, status int, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	c.SetStatusCode(status)
	c.SetContentType("application/json; charset=utf-8")
	c.SetBody(raw)
}
