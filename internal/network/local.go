package network

import (
	"sync"

	"github.com/tomz197/arcade/internal/loop/config"
	"github.com/tomz197/arcade/internal/protocol"
)

// Message is an outbound message as delivered to an in-process peer.
type Message struct {
	T string
	P any
}

// Local is an in-process connection, used by the SSH front end. Outbound
// messages arrive undecoded on Messages; requests go through the same
// decoding path as remote ones.
type Local struct {
	hub   *Hub
	user  string
	codec protocol.Codec
	out   chan Message
	done  chan struct{}
	once  sync.Once
}

// Connect attaches an in-process peer for user.
func (h *Hub) Connect(user string) (*Local, error) {
	l := &Local{
		hub:   h,
		user:  user,
		codec: protocol.JSONCodec{},
		out:   make(chan Message, config.SendBuffer),
		done:  make(chan struct{}),
	}
	if err := h.Attach(user, l); err != nil {
		return nil, err
	}
	return l, nil
}

// User returns the name the peer is attached under.
func (l *Local) User() string { return l.user }

// Messages returns the outbound message stream.
func (l *Local) Messages() <-chan Message { return l.out }

func (l *Local) Deliver(t string, payload any) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.out <- Message{T: t, P: payload}:
		return true
	default:
		return false
	}
}

// Send handles a request from the local user. Rejections arrive as error
// messages.
func (l *Local) Send(t string, payload any) error {
	frame, err := l.codec.Encode(t, payload)
	if err != nil {
		return err
	}
	l.hub.Receive(l.user, l.codec, frame)
	return nil
}

// Close detaches the peer and removes the user from the lobby.
func (l *Local) Close() {
	l.once.Do(func() {
		close(l.done)
		l.hub.Detach(l.user, l)
	})
}
