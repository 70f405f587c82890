// Package network connects users to the lobby and the game server. The Hub
// routes client messages in and events and snapshots out; transports attach
// peers to it.
package network

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/tomz197/arcade/internal/lobby"
	"github.com/tomz197/arcade/internal/loop/config"
	"github.com/tomz197/arcade/internal/loop/server"
	"github.com/tomz197/arcade/internal/protocol"
)

var (
	ErrNameInvalid = errors.New("invalid name")
	ErrNameTaken   = errors.New("name already connected")
)

// Peer is one connected user as seen by the hub. Deliver must not block; it
// reports false when the message was dropped.
type Peer interface {
	Deliver(t string, payload any) bool
}

// Hub tracks connected peers by user name. It implements lobby.Notifier and
// server.Broadcaster.
type Hub struct {
	logger *log.Logger

	mu    sync.RWMutex
	peers map[string]Peer
	lobby *lobby.Service
	games *server.Server
}

// NewHub creates an empty hub. Bind must be called before messages are handled.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{logger: logger, peers: make(map[string]Peer)}
}

// Bind connects the hub to the services it dispatches to.
func (h *Hub) Bind(l *lobby.Service, g *server.Server) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lobby = l
	h.games = g
}

// ValidName reports whether name can be used as a user name.
func ValidName(name string) error {
	if name == "" || len(name) > config.MaxUsernameLength {
		return fmt.Errorf("%w: must be 1-%d bytes", ErrNameInvalid, config.MaxUsernameLength)
	}
	if strings.ContainsFunc(name, func(r rune) bool { return r <= ' ' || r == 0x7f }) {
		return fmt.Errorf("%w: no spaces or control characters", ErrNameInvalid)
	}
	return nil
}

// Attach registers p under user and greets it.
func (h *Hub) Attach(user string, p Peer) error {
	if err := ValidName(user); err != nil {
		return err
	}
	h.mu.Lock()
	if _, ok := h.peers[user]; ok {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNameTaken, user)
	}
	h.peers[user] = p
	h.mu.Unlock()

	h.logger.Info("user connected", "user", user)
	p.Deliver(protocol.MsgWelcome, protocol.Welcome{V: protocol.Version, User: user, TickHz: config.ServerTickRate})
	return nil
}

// Detach unregisters p and removes user from the lobby. A peer that was
// already replaced is ignored.
func (h *Hub) Detach(user string, p Peer) {
	h.mu.Lock()
	cur, ok := h.peers[user]
	if !ok || cur != p {
		h.mu.Unlock()
		return
	}
	delete(h.peers, user)
	l := h.lobby
	h.mu.Unlock()

	h.logger.Info("user disconnected", "user", user)
	if l != nil {
		l.Disconnect(user)
	}
}

func (h *Hub) peer(user string) (Peer, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.peers[user]
	return p, ok
}

// Online reports whether user is connected.
func (h *Hub) Online(user string) bool {
	_, ok := h.peer(user)
	return ok
}

// Users returns the number of connected users.
func (h *Hub) Users() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Notify delivers a lifecycle event to user.
func (h *Hub) Notify(user string, ev protocol.Event) {
	h.deliver(user, protocol.MsgEvent, ev)
}

// Shutdown tells every connected user that the server is going away.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	users := make([]string, 0, len(h.peers))
	for user := range h.peers {
		users = append(users, user)
	}
	h.mu.RUnlock()
	for _, user := range users {
		h.Notify(user, protocol.Event{Type: protocol.EventServerShutdown})
	}
}

// Broadcast delivers a snapshot to every connected user in to.
func (h *Hub) Broadcast(to []string, snap *protocol.Snapshot) {
	for _, user := range to {
		h.deliver(user, protocol.MsgState, snap)
	}
}

func (h *Hub) deliver(user, t string, payload any) {
	p, ok := h.peer(user)
	if !ok {
		return
	}
	if !p.Deliver(t, payload) {
		h.logger.Debug("message dropped", "user", user, "type", t)
	}
}

// Receive decodes one frame from user and handles it. Rejections are
// reported back to user as error messages.
func (h *Hub) Receive(user string, c protocol.Codec, frame []byte) {
	env, err := c.Decode(frame)
	if err != nil {
		h.reject(user, fmt.Errorf("%w: %v", errBadMessage, err))
		return
	}
	if err := h.dispatch(user, c, env); err != nil {
		h.reject(user, err)
	}
}

func (h *Hub) reject(user string, err error) {
	e := ErrorFor(err)
	if e.Code == protocol.CodeInternal {
		h.logger.Error("request failed", "user", user, "err", err)
	} else {
		h.logger.Debug("request rejected", "user", user, "code", e.Code, "err", err)
	}
	h.deliver(user, protocol.MsgError, e)
}

var errBadMessage = errors.New("bad message")

func decode[T any](c protocol.Codec, env protocol.Envelope) (T, error) {
	v, err := protocol.DecodePayload[T](c, env)
	if err != nil {
		return v, fmt.Errorf("%w: %s: %v", errBadMessage, env.T, err)
	}
	return v, nil
}

func (h *Hub) dispatch(user string, c protocol.Codec, env protocol.Envelope) error {
	h.mu.RLock()
	l, g := h.lobby, h.games
	h.mu.RUnlock()
	if l == nil || g == nil {
		return errors.New("hub not bound")
	}

	switch env.T {
	case protocol.MsgChallenge:
		req, err := decode[protocol.ChallengeRequest](c, env)
		if err != nil {
			return err
		}
		_, err = l.Challenge(user, req.To, req.Game, req.Options)
		return err
	case protocol.MsgQueueJoin:
		req, err := decode[protocol.QueueRequest](c, env)
		if err != nil {
			return err
		}
		return l.JoinQueue(user, req.Game, req.Options)
	case protocol.MsgQueueLeave:
		return l.LeaveQueue(user)
	case protocol.MsgInput:
		in, err := decode[protocol.InputPayload](c, env)
		if err != nil {
			return err
		}
		return g.Input(in.Session, user, in.Flags)
	case protocol.MsgHello:
		return fmt.Errorf("%w: already greeted", errBadMessage)
	}

	ref, err := decode[protocol.Ref](c, env)
	if err != nil {
		return err
	}
	switch env.T {
	case protocol.MsgChallengeAccept:
		_, err = l.AcceptChallenge(user, ref.ID)
	case protocol.MsgChallengeDecline:
		err = l.DeclineChallenge(user, ref.ID)
	case protocol.MsgChallengeCancel:
		err = l.CancelChallenge(user, ref.ID)
	case protocol.MsgMatchAccept:
		_, err = l.AcceptMatch(user, ref.ID)
	case protocol.MsgMatchDecline:
		err = l.DeclineMatch(user, ref.ID)
	case protocol.MsgRoomJoin:
		err = l.JoinRoom(ref.ID, user)
	case protocol.MsgRoomLeave:
		err = l.LeaveRoom(ref.ID, user)
	default:
		err = fmt.Errorf("%w: unknown type %q", errBadMessage, env.T)
	}
	return err
}

// ErrorFor maps an error to its wire form.
func ErrorFor(err error) protocol.Error {
	code := protocol.CodeInternal
	switch {
	case errors.Is(err, errBadMessage), errors.Is(err, ErrNameInvalid):
		code = protocol.CodeBadMessage
	case errors.Is(err, lobby.ErrInvalidRequest):
		code = protocol.CodeInvalidRequest
	case errors.Is(err, lobby.ErrBusy), errors.Is(err, ErrNameTaken):
		code = protocol.CodeBusy
	case errors.Is(err, lobby.ErrUnavailable):
		code = protocol.CodeUnavailable
	case errors.Is(err, lobby.ErrNotFound), errors.Is(err, server.ErrUnknownSession):
		code = protocol.CodeNotFound
	case errors.Is(err, lobby.ErrForbidden), errors.Is(err, server.ErrNotParticipant):
		code = protocol.CodeForbidden
	}
	return protocol.Error{Code: code, Message: err.Error()}
}
