// Package protocol defines the wire messages exchanged between clients and
// the server, and the codecs that frame them.
package protocol

// Version is the protocol version announced in hello/welcome.
const Version = 1

// Client -> server message types.
const (
	MsgHello            = "hello"
	MsgChallenge        = "challenge"
	MsgChallengeAccept  = "challenge.accept"
	MsgChallengeDecline = "challenge.decline"
	MsgChallengeCancel  = "challenge.cancel"
	MsgQueueJoin        = "queue.join"
	MsgQueueLeave       = "queue.leave"
	MsgMatchAccept      = "match.accept"
	MsgMatchDecline     = "match.decline"
	MsgRoomJoin         = "room.join"
	MsgRoomLeave        = "room.leave"
	MsgInput            = "input"
)

// Server -> client message types.
const (
	MsgWelcome = "welcome"
	MsgState   = "state"
	MsgEvent   = "event"
	MsgError   = "error"
)

// Envelope frames every message: a type tag and the still-encoded payload.
type Envelope struct {
	T string `json:"t"`
	P []byte `json:"-"`
}
