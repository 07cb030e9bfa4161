package registry

import (
	"context"
	"testing"

	"github.com/park285/chess-live/pkg/wire"
)

type fakeConn struct{ id string }

func (c *fakeConn) ID() string                            { return c.id }
func (c *fakeConn) Send(ctx context.Context, v any) error { return nil }

func TestBindAndLookup(t *testing.T) {
	r := New()
	a := &fakeConn{id: "a"}
	b := &fakeConn{id: "b"}

	r.Bind(a, &wire.Identity{ID: 7, Username: "alice"})
	r.Bind(b, &wire.Identity{ID: 7, Username: "alice"}) // second device
	if got := len(r.ConnsByUser(7)); got != 2 {
		t.Fatalf("conns for user 7 = %d, want 2", got)
	}
	if r.Size() != 2 {
		t.Fatalf("size = %d, want 2", r.Size())
	}
}

func TestAnonymousBindTrackedButNotIndexed(t *testing.T) {
	r := New()
	r.Bind(&fakeConn{id: "x"}, nil)
	if r.Size() != 1 {
		t.Fatalf("size = %d, want 1", r.Size())
	}
	if got := r.ConnsByUser(0); got != nil {
		t.Fatalf("anonymous conn indexed by user: %v", got)
	}
}

func TestRebindReplacesIdentity(t *testing.T) {
	r := New()
	c := &fakeConn{id: "c"}
	r.Bind(c, &wire.Identity{ID: 1})
	r.Bind(c, &wire.Identity{ID: 2})

	if got := len(r.ConnsByUser(1)); got != 0 {
		t.Fatalf("stale identity still indexed: %d conns", got)
	}
	if got := len(r.ConnsByUser(2)); got != 1 {
		t.Fatalf("new identity not indexed: %d conns", got)
	}
	if r.Size() != 1 {
		t.Fatalf("size = %d, want 1", r.Size())
	}
}

func TestUnbindIdempotent(t *testing.T) {
	r := New()
	c := &fakeConn{id: "c"}
	r.Bind(c, &wire.Identity{ID: 9})
	r.Unbind(c)
	r.Unbind(c)

	if r.Size() != 0 {
		t.Fatalf("size = %d, want 0", r.Size())
	}
	if got := r.ConnsByUser(9); got != nil {
		t.Fatalf("unbound conn still indexed: %v", got)
	}
}
