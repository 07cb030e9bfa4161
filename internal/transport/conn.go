package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chess-live/pkg/wire"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

var errConnClosed = errors.New("connection closed")

// Conn wraps one client websocket. Writes are serialized with a bounded
// deadline because room workers, the matchmaking worker, and the invite
// relay may all target the same socket concurrently.
type Conn struct {
	id       string
	ws       *websocket.Conn
	identity *wire.Identity

	sendTimeout time.Duration

	writeMu   sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, identity *wire.Identity, sendTimeout time.Duration) *Conn {
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	return &Conn{
		id:          uuid.NewString(),
		ws:          ws,
		identity:    identity,
		sendTimeout: sendTimeout,
		closed:      make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

// Identity returns the authenticated identity, or nil for anonymous
// connections.
func (c *Conn) Identity() *wire.Identity { return c.identity }

func (c *Conn) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Send writes one event frame. A failure affects only this connection;
// callers ignore the error and rely on the close path for cleanup.
func (c *Conn) Send(ctx context.Context, v any) error {
	if c.Closed() {
		return errConnClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	dctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, c.sendTimeout)
		defer cancel()
	}
	return wsjson.Write(dctx, c.ws, v)
}

// readFrame blocks for the next client frame. Malformed frames and
// unknown types are dropped without closing the connection; only a
// transport-level read error is fatal.
func (c *Conn) readFrame(ctx context.Context) (*wire.ClientFrame, error) {
	for {
		_, raw, err := c.ws.Read(ctx)
		if err != nil {
			return nil, err
		}
		f, err := wire.ParseFrame(raw)
		if err != nil {
			continue
		}
		return f, nil
	}
}

// close shuts the socket down exactly once.
func (c *Conn) close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.Close(code, reason)
	})
}
