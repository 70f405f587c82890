// Package client is the terminal front end: menus, matchmaking screens and
// the arena view, driven by the messages of one connection.
package client

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/arcade/internal/draw"
	"github.com/tomz197/arcade/internal/input"
	"github.com/tomz197/arcade/internal/loop/config"
	"github.com/tomz197/arcade/internal/network"
	"github.com/tomz197/arcade/internal/object"
	"github.com/tomz197/arcade/internal/protocol"
)

// Conn is the client's link to the server. *network.Local implements it.
type Conn interface {
	User() string
	Send(t string, payload any) error
	Messages() <-chan network.Message
	Close()
}

// seatController is implemented by connections where one keyboard drives
// both seats.
type seatController interface {
	Control(seat int, f input.Flags)
}

var challengeNotices = map[string]string{
	protocol.EventChallengeDeclined:  "challenge declined",
	protocol.EventChallengeCancelled: "challenge cancelled",
	protocol.EventChallengeExpired:   "challenge expired",
}

// Client handles rendering and input for a single connection.
type Client struct {
	conn         Conn
	state        *ClientState
	canvas       *draw.Canvas
	chunkWriter  *draw.ChunkWriter // Accumulates UI text for chunked output
	styles       draw.Styles
	writer       io.Writer
	inputStream  *input.Stream
	lastInput    time.Time
	termSizeFunc draw.TermSizeFunc
	logger       *log.Logger
	hotSeat      seatController
}

// ClientOptions configures the client.
type ClientOptions struct {
	TermSizeFunc draw.TermSizeFunc
	Logger       *log.Logger
}

// NewClient creates a client for conn reading keys from r and drawing to w.
func NewClient(conn Conn, r *bufio.Reader, w io.Writer, opts ClientOptions) *Client {
	termSizeFunc := opts.TermSizeFunc
	if termSizeFunc == nil {
		termSizeFunc = draw.DefaultTermSizeFunc
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	termWidth, termHeight, _ := termSizeFunc()
	renderWidth, renderHeight, offsetCol, offsetRow := clampTermSize(termWidth, termHeight)
	canvas := draw.NewScaledCanvas(renderWidth, renderHeight, config.ViewWidth, config.ViewHeight)
	canvas.SetOffset(offsetCol, offsetRow)

	c := &Client{
		conn:         conn,
		state:        NewClientState(),
		canvas:       canvas,
		chunkWriter:  draw.NewChunkWriter(w, offsetCol, offsetRow),
		styles:       draw.NewStyles(w),
		writer:       w,
		inputStream:  input.StartStream(r),
		lastInput:    time.Now(),
		termSizeFunc: termSizeFunc,
		logger:       logger.With("user", conn.User()),
	}
	c.hotSeat, _ = conn.(seatController)
	return c
}

// State exposes the client state, mainly for tests.
func (c *Client) State() *ClientState { return c.state }

// Run starts the client loop. Blocks until the user quits or the connection ends.
func (c *Client) Run() error {
	draw.HideCursor(c.writer)
	defer draw.ShowCursor(c.writer)
	draw.ClearScreen(c.writer)
	defer c.conn.Close()

	lastTime := time.Now()
	for c.state.Running {
		frameStart := time.Now()
		c.state.delta = frameStart.Sub(lastTime)
		lastTime = frameStart

		c.processInput()
		c.processMessages()
		c.updateScreen()
		c.update()

		if err := c.drawFrame(); err != nil {
			return err
		}

		elapsed := time.Since(frameStart)
		if elapsed < config.ClientTargetFrameTime {
			time.Sleep(config.ClientTargetFrameTime - elapsed)
		}
	}

	draw.ClearScreen(c.writer)
	return nil
}

// processInput reads input and applies the key presses of this frame.
func (c *Client) processInput() {
	c.state.Input = input.ReadInput(c.inputStream)
	if c.inputStream.Closed() {
		c.state.Running = false
	}

	if len(c.state.Input.Pressed) > 0 {
		c.lastInput = time.Now()
		c.state.isInactive = false
	} else if c.state.Screen != ScreenPlaying {
		idle := time.Since(c.lastInput).Seconds()
		if idle > config.InactivityDisconnectUser {
			c.state.Running = false
		} else if idle > config.InactivityWarnUser {
			c.state.isInactive = true
		}
	}

	for _, k := range decodeKeys(c.state.Input.Pressed) {
		c.handleKey(k)
	}
}

// processMessages drains the messages the server sent since the last frame.
func (c *Client) processMessages() {
	for {
		select {
		case m, ok := <-c.conn.Messages():
			if !ok {
				c.state.Running = false
				return
			}
			c.handleMessage(m)
		default:
			return
		}
	}
}

func (c *Client) handleMessage(m network.Message) {
	switch p := m.P.(type) {
	case protocol.Welcome:
		c.logger.Debug("welcomed", "tickHz", p.TickHz)
	case protocol.Error:
		c.setError(p.Message)
		switch c.state.Screen {
		case ScreenWaiting, ScreenQueue:
			c.toMenu()
		}
	case protocol.Event:
		c.handleEvent(p)
	case *protocol.Snapshot:
		c.applySnapshot(p)
	}
}

func (c *Client) handleEvent(ev protocol.Event) {
	me := c.conn.User()
	switch ev.Type {
	case protocol.EventChallengeIssued:
		c.state.prompt = ev
		if ev.From == me {
			c.state.Screen = ScreenWaiting
		} else {
			c.state.Screen = ScreenPrompt
		}
	case protocol.EventMatchFound:
		c.state.prompt = ev
		c.state.Screen = ScreenPrompt
	case protocol.EventChallengeDeclined, protocol.EventChallengeCancelled, protocol.EventChallengeExpired:
		if ev.Challenge != c.state.prompt.Challenge {
			return
		}
		c.setStatus(challengeNotices[ev.Type])
		c.toMenu()
	case protocol.EventMatchCancelled:
		if ev.Session != "" {
			if ev.Session == c.state.session {
				c.setStatus("match cancelled")
				c.toMenu()
			}
			return
		}
		if ev.Challenge != c.state.prompt.Challenge {
			return
		}
		// The opponent backed out; the server put us back in the queue.
		c.state.prompt = protocol.Event{}
		c.setStatus("opponent declined, back in the queue")
		c.state.Screen = ScreenQueue
	case protocol.EventGameGo:
		c.startSession(ev)
	case protocol.EventGameOver:
		if ev.Session == c.state.session {
			c.finishSession(ev)
		}
	case protocol.EventServerShutdown:
		c.state.Screen = ScreenShutdown
		c.state.shutdownTimer = config.ShutdownDisplaySeconds
	}
}

// startSession joins the room of a committed session and builds the local arena.
func (c *Client) startSession(ev protocol.Event) {
	arena, err := mirrorArena(ev.Game)
	c.state.arena = arena
	if err != nil {
		c.logger.Warn("cannot mirror arena", "game", ev.Game, "err", err)
	}
	c.state.session = ev.Session
	c.state.players = ev.Players
	c.state.last = nil
	c.state.over = protocol.Event{}
	c.state.sentFlags = input.Flags{}
	c.state.sentAt = time.Time{}
	input.ResetKeyInput(c.inputStream)
	c.send(protocol.MsgRoomJoin, protocol.Ref{ID: ev.Session})
	c.state.Screen = ScreenPlaying
}

// mirrorArena builds the local arena that snapshots are applied to. Only the
// entity set matters, so the default profile is enough.
func mirrorArena(game string) (object.Arena, error) {
	t, err := object.ParseType(game)
	if err != nil {
		return nil, err
	}
	profile, err := object.DefaultProfile(t)
	if err != nil {
		return nil, err
	}
	return object.NewArena(t, profile, rand.New(rand.NewSource(1)))
}

// applySnapshot overwrites the local arena with the authoritative state.
func (c *Client) applySnapshot(snap *protocol.Snapshot) {
	if snap.Session != c.state.session {
		return
	}
	c.state.last = snap
	if c.state.arena != nil {
		c.state.arena.World().Apply(snap.Entities)
	}
	if snap.GameOver && c.state.Screen == ScreenPlaying {
		c.finishSession(protocol.Event{
			Type:     protocol.EventGameOver,
			Session:  snap.Session,
			Game:     snap.Game,
			Players:  snap.Players,
			Winner:   snap.Winner,
			Ragequit: snap.Ragequit,
			Scores:   snap.Scores,
		})
	}
}

func (c *Client) finishSession(ev protocol.Event) {
	if c.state.Screen != ScreenOver {
		c.state.overAt = time.Now()
	}
	c.state.over = ev
	c.state.Screen = ScreenOver
}

func (c *Client) toMenu() {
	c.state.Screen = ScreenMenu
	c.state.prompt = protocol.Event{}
	c.state.session = ""
	c.state.arena = nil
	c.state.last = nil
}

func (c *Client) send(t string, payload any) {
	if err := c.conn.Send(t, payload); err != nil {
		c.logger.Error("send failed", "type", t, "err", err)
		c.setError(err.Error())
	}
}

func (c *Client) setStatus(msg string) {
	c.state.status = msg
	c.state.statusErr = false
	c.state.statusUntil = time.Now().Add(config.StatusDisplay)
}

func (c *Client) setError(msg string) {
	c.setStatus(msg)
	c.state.statusErr = true
}

// handleKey applies one key press to the current screen.
func (c *Client) handleKey(k key) {
	s := c.state
	switch s.Screen {
	case ScreenMenu:
		c.menuKey(k)
	case ScreenName:
		switch k.code {
		case keyEscape:
			s.Screen = ScreenMenu
		case keyBackspace:
			if len(s.name) > 0 {
				s.name = s.name[:len(s.name)-1]
			}
		case keyEnter:
			if len(s.name) == 0 {
				return
			}
			c.send(protocol.MsgChallenge, protocol.ChallengeRequest{
				To:      string(s.name),
				Game:    string(s.GameType()),
				Options: s.Options(),
			})
			s.Screen = ScreenWaiting
		case keyChar:
			if nameByte(k.ch) && len(s.name) < config.MaxUsernameLength {
				s.name = append(s.name, k.ch)
			}
		}
	case ScreenQueue:
		if k.code == keyEscape || k.ch == 'q' || k.ch == 'Q' {
			c.send(protocol.MsgQueueLeave, nil)
			c.toMenu()
		}
	case ScreenWaiting:
		if k.code == keyEscape || k.ch == 'q' || k.ch == 'Q' {
			c.withdraw()
		}
	case ScreenPrompt:
		switch {
		case k.code == keyEnter || k.ch == 'y' || k.ch == 'Y':
			c.answer(true)
		case k.code == keyEscape || k.ch == 'n' || k.ch == 'N':
			c.answer(false)
		}
	case ScreenPlaying:
		if k.code == keyEscape || k.ch == 'q' || k.ch == 'Q' {
			c.send(protocol.MsgRoomLeave, protocol.Ref{ID: s.session})
		}
	case ScreenOver:
		if k.nav() == keyEnter || k.code == keyEscape {
			c.toMenu()
		}
	case ScreenShutdown:
		if k.ch == 'q' || k.ch == 'Q' {
			s.Running = false
		}
	}
}

func (c *Client) menuKey(k key) {
	s := c.state
	last := itemChallenge
	if c.hotSeat != nil {
		last = itemPlay
	}
	switch k.nav() {
	case keyUp:
		s.cursor = menuItem(cycle(int(s.cursor), int(last)+1, -1))
	case keyDown:
		s.cursor = menuItem(cycle(int(s.cursor), int(last)+1, 1))
	case keyLeft, keyRight:
		step := 1
		if k.nav() == keyLeft {
			step = -1
		}
		switch s.cursor {
		case itemGame:
			s.game = cycle(s.game, len(object.Types), step)
		case itemLength:
			s.length = cycle(s.length, len(lengthChoices), step)
		case itemSize:
			s.size = cycle(s.size, len(sizeChoices), step)
		case itemSpeed:
			s.speed = cycle(s.speed, len(speedChoices), step)
		}
	case keyEnter:
		switch s.cursor {
		case itemPlay:
			c.send(protocol.MsgQueueJoin, protocol.QueueRequest{Game: string(s.GameType()), Options: s.Options()})
			if c.hotSeat == nil {
				s.Screen = ScreenQueue
			}
		case itemChallenge:
			s.name = s.name[:0]
			s.Screen = ScreenName
		}
	case keyEscape:
		s.Running = false
	case keyChar:
		if k.ch == 'q' || k.ch == 'Q' {
			s.Running = false
		}
	}
}

// withdraw takes back a sent challenge or an accepted match.
func (c *Client) withdraw() {
	p := c.state.prompt
	switch p.Type {
	case protocol.EventChallengeIssued:
		c.send(protocol.MsgChallengeCancel, protocol.Ref{ID: p.Challenge})
	case protocol.EventMatchFound:
		c.send(protocol.MsgMatchDecline, protocol.Ref{ID: p.Challenge})
	}
	c.toMenu()
}

// answer accepts or declines the prompted challenge or match.
func (c *Client) answer(accept bool) {
	p := c.state.prompt
	match := p.Type == protocol.EventMatchFound
	switch {
	case accept && match:
		c.send(protocol.MsgMatchAccept, protocol.Ref{ID: p.Challenge})
	case accept:
		c.send(protocol.MsgChallengeAccept, protocol.Ref{ID: p.Challenge})
	case match:
		c.send(protocol.MsgMatchDecline, protocol.Ref{ID: p.Challenge})
	default:
		c.send(protocol.MsgChallengeDecline, protocol.Ref{ID: p.Challenge})
	}
	if accept {
		c.state.Screen = ScreenWaiting
		return
	}
	c.toMenu()
}

// update advances the timers of the current screen.
func (c *Client) update() {
	s := c.state
	if s.status != "" && time.Now().After(s.statusUntil) {
		s.status = ""
	}
	switch s.Screen {
	case ScreenPlaying:
		c.sendControls()
	case ScreenOver:
		if time.Since(s.overAt) > config.GameOverLinger {
			c.toMenu()
		}
	case ScreenShutdown:
		s.shutdownTimer -= s.delta.Seconds()
		if s.shutdownTimer <= 0 {
			s.Running = false
		}
	}
}

// sendControls forwards the held keys. Changes go out at once, unchanged
// controls are repeated every InputResend.
func (c *Client) sendControls() {
	if c.hotSeat != nil {
		seats := c.inputStream.Seats(c.state.Input.Pressed)
		c.hotSeat.Control(0, seats[0])
		c.hotSeat.Control(1, seats[1])
		return
	}
	s := c.state
	flags := s.Input.Flags()
	if flags == s.sentFlags && time.Since(s.sentAt) < config.InputResend {
		return
	}
	s.sentFlags = flags
	s.sentAt = time.Now()
	c.send(protocol.MsgInput, protocol.InputPayload{Session: s.session, Flags: flags})
}

// updateScreen handles terminal resize, clamping to max render resolution.
// On actual size changes, clears the terminal to remove residual pixels
// outside the new canvas area.
func (c *Client) updateScreen() {
	termWidth, termHeight, err := c.termSizeFunc()
	if err != nil {
		return
	}
	renderWidth, renderHeight, offsetCol, offsetRow := clampTermSize(termWidth, termHeight)

	if renderWidth != c.canvas.TerminalWidth() || renderHeight != c.canvas.TerminalHeight() ||
		offsetCol != c.canvas.OffsetCol() || offsetRow != c.canvas.OffsetRow() {
		c.chunkWriter.ClearScreen()
		c.canvas.ForceRedraw()
	}

	c.canvas.Resize(renderWidth, renderHeight)
	c.canvas.SetOffset(offsetCol, offsetRow)
	c.chunkWriter.SetOffset(offsetCol, offsetRow)
}

// clampTermSize clamps terminal dimensions to the max render resolution and computes
// the centering offset for the render area.
func clampTermSize(termWidth, termHeight int) (renderWidth, renderHeight, offsetCol, offsetRow int) {
	renderWidth = min(termWidth, config.MaxTermWidth)
	renderHeight = min(termHeight, config.MaxTermHeight)
	offsetCol = (termWidth - renderWidth) / 2
	offsetRow = (termHeight - renderHeight) / 2
	return
}

func (s Screen) String() string {
	switch s {
	case ScreenMenu:
		return "menu"
	case ScreenName:
		return "name"
	case ScreenQueue:
		return "queue"
	case ScreenWaiting:
		return "waiting"
	case ScreenPrompt:
		return "prompt"
	case ScreenPlaying:
		return "playing"
	case ScreenOver:
		return "over"
	case ScreenShutdown:
		return "shutdown"
	}
	return fmt.Sprintf("screen(%d)", int(s))
}
