package wire

import "time"

// Coordinator→client events. Each event carries its own type tag so
// clients can switch on a single discriminator field.

type RoleEvent struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Waiting bool   `json:"waiting"`
}

func Role(role string, waiting bool) RoleEvent {
	return RoleEvent{Type: "role", Role: role, Waiting: waiting}
}

type StateEvent struct {
	Type     string `json:"type"`
	Position string `json:"position"`
}

func State(position string) StateEvent {
	return StateEvent{Type: "state", Position: position}
}

type StatsEvent struct {
	Type            string `json:"type"`
	ConnectionCount int    `json:"connection_count"`
}

func Stats(count int) StatsEvent {
	return StatsEvent{Type: "stats", ConnectionCount: count}
}

type OpponentInfoEvent struct {
	Type     string `json:"type"`
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func OpponentInfo(id Identity) OpponentInfoEvent {
	return OpponentInfoEvent{Type: "opponent_info", ID: id.ID, Username: id.Username}
}

type PlayerInfoEvent struct {
	Type     string `json:"type"`
	Seat     string `json:"seat"`
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func PlayerInfo(seat string, id Identity) PlayerInfoEvent {
	return PlayerInfoEvent{Type: "player_info", Seat: seat, ID: id.ID, Username: id.Username}
}

type StartGameEvent struct {
	Type string `json:"type"`
	Seat string `json:"seat"`
}

func StartGame(seat string) StartGameEvent {
	return StartGameEvent{Type: "start_game", Seat: seat}
}

type MoveEvent struct {
	Type      string `json:"type"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	Position  string `json:"position"`
}

func Move(from, to, promotion, position string) MoveEvent {
	return MoveEvent{Type: "move", From: from, To: to, Promotion: promotion, Position: position}
}

type ChatEvent struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

func Chat(text, sender string) ChatEvent {
	return ChatEvent{Type: "chat", Text: text, Sender: sender}
}

type DrawRequestEvent struct {
	Type   string `json:"type"`
	Sender string `json:"sender"`
}

func DrawRequest(sender string) DrawRequestEvent {
	return DrawRequestEvent{Type: "draw_request", Sender: sender}
}

type DrawRespondEvent struct {
	Type     string `json:"type"`
	Accepted bool   `json:"accepted"`
}

func DrawRespond(accepted bool) DrawRespondEvent {
	return DrawRespondEvent{Type: "draw_respond", Accepted: accepted}
}

type GameOverEvent struct {
	Type   string `json:"type"`
	Result string `json:"result"`
}

func GameOver(result string) GameOverEvent {
	return GameOverEvent{Type: "game_over", Result: result}
}

type MatchFoundEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

func MatchFound(roomID string) MatchFoundEvent {
	return MatchFoundEvent{Type: "match_found", RoomID: roomID}
}

// Invite is the wire view of a challenge invitation.
type Invite struct {
	ID           string    `json:"id"`
	FromID       int64     `json:"from_id"`
	FromUsername string    `json:"from_username"`
	RoomID       string    `json:"room_id"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type NewInviteEvent struct {
	Type   string `json:"type"`
	Invite Invite `json:"invite"`
}

func NewInvite(inv Invite) NewInviteEvent {
	return NewInviteEvent{Type: "new_invite", Invite: inv}
}

type InviteResultEvent struct {
	Type     string `json:"type"`
	InviteID string `json:"invite_id"`
	Accepted bool   `json:"accepted"`
	RoomID   string `json:"room_id,omitempty"`
}

// InviteResult is sent back to the responder so its client can redirect
// to the room on acceptance.
func InviteResult(inviteID string, accepted bool, roomID string) InviteResultEvent {
	return InviteResultEvent{Type: "invite_result", InviteID: inviteID, Accepted: accepted, RoomID: roomID}
}
