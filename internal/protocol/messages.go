package protocol

import "github.com/tomz197/arcade/internal/input"

// Entity flags carried in EntityState.Flags.
const (
	FlagGrounded uint8 = 1 << iota
	FlagServing
	FlagHidden
	FlagStunned
)

// Options are the session creation presets chosen by the players.
type Options struct {
	Length string `json:"length,omitempty"` // short, normal, long
	Size   string `json:"size,omitempty"`   // small, normal, large
	Speed  string `json:"speed,omitempty"`  // slow, normal, fast
}

// Hello opens a websocket conversation.
type Hello struct {
	V    int    `json:"v"`
	Name string `json:"name"`
}

// Welcome answers Hello with the identity the server bound to the connection.
type Welcome struct {
	V      int    `json:"v"`
	User   string `json:"user"`
	TickHz int    `json:"tickHz"`
}

// ChallengeRequest asks To for a game.
type ChallengeRequest struct {
	To      string  `json:"to"`
	Game    string  `json:"game"`
	Options Options `json:"options"`
}

// QueueRequest enters the matchmaking queue.
type QueueRequest struct {
	Game    string  `json:"game"`
	Options Options `json:"options"`
}

// Ref names a challenge or a session by id.
type Ref struct {
	ID string `json:"id"`
}

// InputPayload carries one seat's control flags.
type InputPayload struct {
	Session string      `json:"session"`
	Flags   input.Flags `json:"flags"`
}

// EntityState is the wire form of one entity.
type EntityState struct {
	ID       int     `json:"id"`
	Kind     string  `json:"kind"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	DX       float64 `json:"dx"`
	DY       float64 `json:"dy"`
	W        float64 `json:"w"`
	H        float64 `json:"h"`
	Facing   int     `json:"facing,omitempty"`
	Rotation float64 `json:"rotation,omitempty"`
	Flags    uint8   `json:"flags,omitempty"`
}

// Has reports whether flag is set.
func (s EntityState) Has(flag uint8) bool { return s.Flags&flag != 0 }

// Snapshot is the per-tick state broadcast to both participants.
type Snapshot struct {
	Session  string         `json:"session"`
	Game     string         `json:"game"`
	Tick     int            `json:"tick"`
	Players  [2]string      `json:"players"`
	Entities []EntityState  `json:"entities"`
	Scores   map[string]int `json:"scores"`
	GameOver bool           `json:"gameOver,omitempty"`
	Winner   string         `json:"winner,omitempty"`
	Ragequit bool           `json:"ragequit,omitempty"`
	Aborted  bool           `json:"aborted,omitempty"`
	Fault    bool           `json:"fault,omitempty"`
}

// Event types carried in Event.Type.
const (
	EventChallengeIssued    = "challenge.issued"
	EventChallengeCancelled = "challenge.cancelled"
	EventChallengeDeclined  = "challenge.declined"
	EventChallengeExpired   = "challenge.expired"
	EventMatchFound         = "match.found"
	EventMatchCancelled     = "match.cancelled"
	EventGameGo             = "game.go"
	EventGameOver           = "game.over"
	EventServerShutdown     = "server.shutdown"
)

// Event is a lifecycle notification.
type Event struct {
	Type      string         `json:"type"`
	Challenge string         `json:"challenge,omitempty"`
	Session   string         `json:"session,omitempty"`
	Game      string         `json:"game,omitempty"`
	From      string         `json:"from,omitempty"`
	Players   [2]string      `json:"players,omitempty"`
	Winner    string         `json:"winner,omitempty"`
	Ragequit  bool           `json:"ragequit,omitempty"`
	Scores    map[string]int `json:"scores,omitempty"`
}

// Error codes carried in Error.Code.
const (
	CodeBadMessage     = "bad_message"
	CodeInvalidRequest = "invalid_request"
	CodeBusy           = "busy"
	CodeUnavailable    = "unavailable"
	CodeNotFound       = "not_found"
	CodeForbidden      = "forbidden"
	CodeInternal       = "internal"
)

// Error reports a rejected request to the connection that sent it.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
