// Package config centralizes the fixed timing and sizing parameters.
package config

import "time"

// View resolution - the visible viewport in logical units.
// Actual rendering scales to fit terminal size.
const (
	ViewWidth  = 120 // Logical viewport width
	ViewHeight = 80  // Logical viewport height (in sub-pixels, so 40 terminal rows)
)

// Max render resolution in terminal cells. Larger terminals get a centered,
// bordered render area.
const (
	MaxTermWidth  = 180
	MaxTermHeight = 60
)

// Players
const (
	MaxPlayers        = 2  // Participants per session
	MaxUsernameLength = 16 // Maximum display length for player usernames
)

// Lobby
const (
	ChallengeTTL = 30 * time.Second
	ScanInterval = time.Second
)

// Client screens
const (
	ShutdownDisplaySeconds = 10.0 // Seconds to show shutdown message before auto-disconnect
	StatusDisplay          = 3 * time.Second
	InputResend            = 250 * time.Millisecond // Held controls are repeated at least this often
)

// Inactivity
const (
	InactivityWarnUser       = 90  // Seconds
	InactivityDisconnectUser = 120 // Seconds
)

// Client rendering
const (
	ClientTargetFPS       = 60
	ClientTargetFrameTime = time.Second / ClientTargetFPS
)

// Server tick rate
const (
	ServerTickRate = 60
	ServerTickTime = time.Second / ServerTickRate
)

// Game loop
const (
	MaxTickFaults   = 10 // Consecutive faulted ticks before a game is aborted
	InputBuffer     = 64
	GameOverLinger  = 5 * time.Second // How long the final screen stays up
	ShutdownTimeout = 5 * time.Second
)

// Network
const (
	SendBuffer       = 256 // Outbound messages queued per connection before dropping
	MaxMessageSize   = 64 << 10
	WriteWait        = 10 * time.Second
	PongWait         = 60 * time.Second
	PingPeriod       = 25 * time.Second
	HandshakeTimeout = 10 * time.Second
)
