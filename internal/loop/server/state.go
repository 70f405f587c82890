package server

import (
	"errors"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/arcade/internal/input"
	"github.com/tomz197/arcade/internal/object"
	"github.com/tomz197/arcade/internal/physics"
	"github.com/tomz197/arcade/internal/protocol"
)

var (
	ErrUnknownSession = errors.New("unknown session")
	ErrNotParticipant = errors.New("not a participant")
	ErrDuplicate      = errors.New("session already running")
)

// Status is the lifecycle state of a Game.
type Status int32

const (
	StatusIdle Status = iota
	StatusRunning
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusEnded:
		return "ended"
	}
	return "unknown"
}

// Config describes one session to simulate.
type Config struct {
	Session  string
	Game     object.Type
	Players  [2]string
	Profile  physics.Profile
	TickTime time.Duration // zero means config.ServerTickTime
	Rand     *rand.Rand    // nil seeds from the global source
	Logger   *log.Logger
}

// Result is what a finished game reports to the session lifecycle.
type Result struct {
	Session  string
	Game     object.Type
	Players  [2]string
	Winner   string
	Ragequit bool
	Aborted  bool
	Scores   map[string]int
	Ticks    int
}

// Broadcaster delivers snapshots to the participants of a session.
type Broadcaster interface {
	Broadcast(to []string, snap *protocol.Snapshot)
}

// BroadcastFunc adapts a function to Broadcaster.
type BroadcastFunc func(to []string, snap *protocol.Snapshot)

func (f BroadcastFunc) Broadcast(to []string, snap *protocol.Snapshot) { f(to, snap) }

// Info summarizes a running game for listings.
type Info struct {
	Session string         `json:"session"`
	Game    object.Type    `json:"game"`
	Players [2]string      `json:"players"`
	Tick    int            `json:"tick"`
	Scores  map[string]int `json:"scores"`
	Status  string         `json:"status"`
}

// seatInput represents input from a specific seat.
type seatInput struct {
	seat  int
	flags input.Flags
}

type commandKind int

const (
	cmdForfeit commandKind = iota
	cmdStop
)

type command struct {
	kind commandKind
	seat int
}
