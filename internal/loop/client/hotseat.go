package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/tomz197/arcade/internal/input"
	"github.com/tomz197/arcade/internal/loop/config"
	"github.com/tomz197/arcade/internal/loop/server"
	"github.com/tomz197/arcade/internal/network"
	"github.com/tomz197/arcade/internal/object"
	"github.com/tomz197/arcade/internal/protocol"
)

// ErrUnsupported is returned for requests that need other players.
var ErrUnsupported = errors.New("not available in hot seat mode")

// HotSeat is an offline connection: one game at a time, both seats played
// from the same keyboard, no lobby.
type HotSeat struct {
	ctx      context.Context
	players  [2]string
	settings object.Overrider
	logger   *log.Logger
	out      chan network.Message

	mu      sync.Mutex
	seq     int
	pending *server.Config
	game    *server.Game

	done chan struct{}
	once sync.Once
}

// NewHotSeat creates an offline connection. Cancelling ctx aborts the
// running game. settings may be nil.
func NewHotSeat(ctx context.Context, settings object.Overrider, logger *log.Logger) *HotSeat {
	if logger == nil {
		logger = log.Default()
	}
	return &HotSeat{
		ctx:      ctx,
		players:  [2]string{"P1", "P2"},
		settings: settings,
		logger:   logger,
		out:      make(chan network.Message, config.SendBuffer),
		done:     make(chan struct{}),
	}
}

func (h *HotSeat) User() string { return h.players[0] }

func (h *HotSeat) Messages() <-chan network.Message { return h.out }

func (h *HotSeat) deliver(t string, payload any) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.out <- network.Message{T: t, P: payload}:
	default:
		h.logger.Warn("dropping message, client is not reading", "type", t)
	}
}

// Send handles a request of the client.
func (h *HotSeat) Send(t string, payload any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch t {
	case protocol.MsgQueueJoin:
		req, ok := payload.(protocol.QueueRequest)
		if !ok {
			return fmt.Errorf("queue.join: unexpected payload %T", payload)
		}
		return h.prepare(req)
	case protocol.MsgRoomJoin:
		ref, ok := payload.(protocol.Ref)
		if !ok || h.pending == nil || ref.ID != h.pending.Session {
			return fmt.Errorf("%w: %v", server.ErrUnknownSession, payload)
		}
		return h.start(*h.pending)
	case protocol.MsgRoomLeave:
		if h.game != nil {
			go h.game.Stop()
		}
		return nil
	case protocol.MsgInput:
		return nil
	}
	return fmt.Errorf("%s: %w", t, ErrUnsupported)
}

// prepare resolves the profile of a new game and announces it.
func (h *HotSeat) prepare(req protocol.QueueRequest) error {
	if h.game != nil && h.game.Status() != server.StatusEnded {
		return errors.New("a game is already running")
	}
	t, err := object.ParseType(req.Game)
	if err != nil {
		return err
	}
	profile, err := object.ResolveProfile(t, req.Options, h.settings)
	if err != nil {
		return err
	}
	h.seq++
	h.pending = &server.Config{
		Session: fmt.Sprintf("local-%d", h.seq),
		Game:    t,
		Players: h.players,
		Profile: profile,
		Logger:  h.logger,
	}
	h.deliver(protocol.MsgEvent, protocol.Event{
		Type:    protocol.EventGameGo,
		Session: h.pending.Session,
		Game:    string(t),
		Players: h.players,
	})
	return nil
}

func (h *HotSeat) start(cfg server.Config) error {
	out := server.BroadcastFunc(func(_ []string, snap *protocol.Snapshot) {
		h.deliver(protocol.MsgState, snap)
	})
	g, err := server.NewGame(cfg, out, func(r server.Result) {
		h.deliver(protocol.MsgEvent, protocol.Event{
			Type:     protocol.EventGameOver,
			Session:  r.Session,
			Game:     string(r.Game),
			Players:  r.Players,
			Winner:   r.Winner,
			Ragequit: r.Ragequit,
			Scores:   r.Scores,
		})
	})
	if err != nil {
		return err
	}
	h.pending = nil
	h.game = g
	g.Start(h.ctx)
	return nil
}

// Control sets the controls of one seat of the running game.
func (h *HotSeat) Control(seat int, f input.Flags) {
	h.mu.Lock()
	g := h.game
	h.mu.Unlock()
	if g == nil || seat < 0 || seat >= len(h.players) {
		return
	}
	g.SendInput(h.players[seat], f)
}

// Close aborts the running game.
func (h *HotSeat) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		g := h.game
		h.mu.Unlock()
		if g != nil && g.Status() != server.StatusEnded {
			g.Stop()
		}
		close(h.done)
	})
}
