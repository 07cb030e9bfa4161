package wire

// Identity is the authenticated user bound to a connection.
// A nil *Identity means the connection is anonymous.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}
