package client

import (
	"time"

	"github.com/tomz197/arcade/internal/input"
	"github.com/tomz197/arcade/internal/object"
	"github.com/tomz197/arcade/internal/protocol"
)

// Screen is the phase a client is in.
type Screen int

const (
	ScreenMenu     Screen = iota // Game and option selection
	ScreenName                   // Typing the name of an opponent
	ScreenQueue                  // Waiting in the matchmaking queue
	ScreenWaiting                // Waiting for the other side of a challenge or match
	ScreenPrompt                 // Incoming challenge or match to answer
	ScreenPlaying                // Active gameplay
	ScreenOver                   // Final result
	ScreenShutdown               // Server is shutting down
)

type menuItem int

const (
	itemGame menuItem = iota
	itemLength
	itemSize
	itemSpeed
	itemPlay
	itemChallenge
)

var (
	lengthChoices = []string{"normal", "short", "long"}
	sizeChoices   = []string{"normal", "small", "large"}
	speedChoices  = []string{"normal", "slow", "fast"}
)

// ClientState holds the per-connection UI state.
type ClientState struct {
	Screen     Screen
	prevScreen Screen
	Running    bool
	Input      input.Input

	// Menu
	cursor menuItem
	game   int // index into object.Types
	length int
	size   int
	speed  int
	name   []byte

	// Challenge or match awaiting an answer, or sent and awaiting one.
	prompt protocol.Event

	// Session
	session   string
	players   [2]string
	arena     object.Arena // local copy, overwritten by snapshots
	last      *protocol.Snapshot
	sentFlags input.Flags
	sentAt    time.Time

	over   protocol.Event
	overAt time.Time

	status      string
	statusErr   bool
	statusUntil time.Time

	shutdownTimer float64
	isInactive    bool
	wasInactive   bool
	delta         time.Duration
}

// NewClientState creates a client state on the menu screen.
func NewClientState() *ClientState {
	return &ClientState{Screen: ScreenMenu, prevScreen: -1, Running: true}
}

// GameType returns the game selected in the menu.
func (s *ClientState) GameType() object.Type { return object.Types[s.game] }

// Options returns the presets selected in the menu.
func (s *ClientState) Options() protocol.Options {
	return protocol.Options{
		Length: lengthChoices[s.length],
		Size:   sizeChoices[s.size],
		Speed:  speedChoices[s.speed],
	}
}

// cycle moves an index through n choices by step, wrapping around.
func cycle(i, n, step int) int {
	return ((i+step)%n + n) % n
}
