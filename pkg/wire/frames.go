package wire

import (
	"encoding/json"
	"errors"
	"strings"
)

// Client→coordinator frame types.
const (
	TypeJoin          = "join"
	TypeMove          = "move"
	TypeChat          = "chat"
	TypeDrawRequest   = "draw_request"
	TypeDrawRespond   = "draw_respond"
	TypeGameOver      = "game_over"
	TypeFindMatch     = "find_match"
	TypeInvite        = "invite"
	TypeInviteRespond = "invite_respond"
)

// Seat tokens as they appear on the wire.
const (
	SeatWhite     = "w"
	SeatBlack     = "b"
	RoleSpectator = "spectator"
)

var ErrMalformedFrame = errors.New("malformed frame")

// ClientFrame is the union of all client→coordinator messages. Fields not
// relevant to a given Type are left zero. The position token is opaque:
// the coordinator stores and relays it without parsing.
type ClientFrame struct {
	Type     string    `json:"type"`
	RoomID   string    `json:"room_id,omitempty"`
	Identity *Identity `json:"identity,omitempty"`

	// move
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Promotion string `json:"promotion,omitempty"`
	Position  string `json:"resulting_position,omitempty"`

	// chat
	Text   string `json:"text,omitempty"`
	Sender string `json:"sender,omitempty"`

	// draw_respond
	Accepted bool `json:"accepted,omitempty"`

	// game_over
	Result     string `json:"result,omitempty"`
	WinnerSeat string `json:"winner_seat,omitempty"`

	// invite / invite_respond
	ToUserID int64  `json:"to_user_id,omitempty"`
	InviteID string `json:"invite_id,omitempty"`
}

var knownTypes = map[string]struct{}{
	TypeJoin:          {},
	TypeMove:          {},
	TypeChat:          {},
	TypeDrawRequest:   {},
	TypeDrawRespond:   {},
	TypeGameOver:      {},
	TypeFindMatch:     {},
	TypeInvite:        {},
	TypeInviteRespond: {},
}

// ParseFrame decodes a raw frame. Malformed JSON and unrecognized types
// both return ErrMalformedFrame; callers drop the frame and keep the
// connection open.
func ParseFrame(raw []byte) (*ClientFrame, error) {
	var f ClientFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, ErrMalformedFrame
	}
	f.Type = strings.TrimSpace(f.Type)
	if _, ok := knownTypes[f.Type]; !ok {
		return nil, ErrMalformedFrame
	}
	return &f, nil
}
