package lobby

import (
	"fmt"
	"time"

	"github.com/tomz197/arcade/internal/object"
	"github.com/tomz197/arcade/internal/protocol"
)

// ChallengeKind tells a direct challenge from a matchmaking proposal.
type ChallengeKind string

const (
	KindDirect ChallengeKind = "direct"
	KindMatch  ChallengeKind = "match"
)

// Challenge is a pending proposal waiting for acceptance. Direct challenges
// need the target's acceptance, matches need both players'.
type Challenge struct {
	ID       string
	Kind     ChallengeKind
	Game     object.Type
	Options  protocol.Options
	Players  [2]string // challenger first for direct challenges
	Accepted [2]bool
	Expires  time.Time

	entries [2]*entry // queue entries a match came from
}

func (c *Challenge) expired(now time.Time) bool { return !now.Before(c.Expires) }

func (c *Challenge) seat(user string) int {
	for i, p := range c.Players {
		if p == user {
			return i
		}
	}
	return -1
}

func (c *Challenge) event(typ string) protocol.Event {
	return protocol.Event{
		Type:      typ,
		Challenge: c.ID,
		Game:      string(c.Game),
		From:      c.Players[0],
		Players:   c.Players,
	}
}

// Challenge asks to for a game of the given type.
func (s *Service) Challenge(from, to, game string, opts protocol.Options) (*Challenge, error) {
	if from == "" || to == "" || from == to {
		return nil, fmt.Errorf("%w: cannot challenge yourself", ErrInvalidRequest)
	}
	t, err := s.checkGame(game, opts)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil && !s.notifier.Online(to) {
		return nil, fmt.Errorf("%w: %s is not connected", ErrUnavailable, to)
	}

	var out Challenge
	err = s.do(func(fx *effects) error {
		if _, busy := s.presentLocked(from); busy {
			return fmt.Errorf("%w: %s", ErrBusy, from)
		}
		if _, busy := s.presentLocked(to); busy {
			return fmt.Errorf("%w: %s", ErrBusy, to)
		}
		ch := &Challenge{
			ID:      s.newID(),
			Kind:    KindDirect,
			Game:    t,
			Options: opts,
			Players: [2]string{from, to},
			Expires: s.now().Add(s.ttl),
		}
		ch.Accepted[0] = true
		s.challenges[ch.ID] = ch
		s.presence[from] = presence{kind: inChallenge, id: ch.ID}
		s.presence[to] = presence{kind: inChallenge, id: ch.ID}
		s.notify(fx, to, ch.event(protocol.EventChallengeIssued))
		s.notify(fx, from, ch.event(protocol.EventChallengeIssued))
		out = *ch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// challengeLocked returns a live challenge of the given kind.
func (s *Service) challengeLocked(id string, kind ChallengeKind) (*Challenge, error) {
	ch, ok := s.challenges[id]
	if !ok || ch.Kind != kind || ch.expired(s.now()) {
		return nil, fmt.Errorf("%w: challenge %s", ErrNotFound, id)
	}
	return ch, nil
}

// dropLocked removes a challenge and frees both players.
func (s *Service) dropLocked(ch *Challenge) {
	delete(s.challenges, ch.ID)
	p := presence{kind: inChallenge, id: ch.ID}
	s.freeLocked(ch.Players[0], p)
	s.freeLocked(ch.Players[1], p)
}

// AcceptChallenge commits a direct challenge. Only the target may accept.
func (s *Service) AcceptChallenge(user, id string) (*Session, error) {
	var out *Session
	err := s.do(func(fx *effects) error {
		ch, err := s.challengeLocked(id, KindDirect)
		if err != nil {
			return err
		}
		if ch.Players[1] != user {
			return fmt.Errorf("%w: only %s can accept", ErrForbidden, ch.Players[1])
		}
		ch.Accepted[1] = true
		sess, err := s.commitLocked(fx, ch)
		if err != nil {
			return err
		}
		out = sess.clone()
		return nil
	})
	return out, err
}

// DeclineChallenge refuses a direct challenge. Only the target may decline.
func (s *Service) DeclineChallenge(user, id string) error {
	return s.do(func(fx *effects) error {
		ch, err := s.challengeLocked(id, KindDirect)
		if err != nil {
			return err
		}
		if ch.Players[1] != user {
			return fmt.Errorf("%w: only %s can decline", ErrForbidden, ch.Players[1])
		}
		s.dropLocked(ch)
		s.notify(fx, ch.Players[0], ch.event(protocol.EventChallengeDeclined))
		s.notify(fx, ch.Players[1], ch.event(protocol.EventChallengeDeclined))
		return nil
	})
}

// CancelChallenge withdraws a direct challenge. Only the challenger may cancel.
func (s *Service) CancelChallenge(user, id string) error {
	return s.do(func(fx *effects) error {
		ch, err := s.challengeLocked(id, KindDirect)
		if err != nil {
			return err
		}
		if ch.Players[0] != user {
			return fmt.Errorf("%w: only %s can cancel", ErrForbidden, ch.Players[0])
		}
		s.dropLocked(ch)
		s.notify(fx, ch.Players[0], ch.event(protocol.EventChallengeCancelled))
		s.notify(fx, ch.Players[1], ch.event(protocol.EventChallengeCancelled))
		return nil
	})
}

// AcceptMatch records the caller's acceptance of a match. The match commits
// once both players accepted; repeating an acceptance changes nothing.
func (s *Service) AcceptMatch(user, id string) (*Session, error) {
	var out *Session
	err := s.do(func(fx *effects) error {
		ch, err := s.challengeLocked(id, KindMatch)
		if err != nil {
			return err
		}
		seat := ch.seat(user)
		if seat < 0 {
			return fmt.Errorf("%w: not in match %s", ErrForbidden, id)
		}
		ch.Accepted[seat] = true
		if !ch.Accepted[0] || !ch.Accepted[1] {
			return nil
		}
		sess, err := s.commitLocked(fx, ch)
		if err != nil {
			return err
		}
		out = sess.clone()
		return nil
	})
	return out, err
}

// DeclineMatch cancels a match. The other player goes back to the head of
// the queue.
func (s *Service) DeclineMatch(user, id string) error {
	return s.do(func(fx *effects) error {
		ch, err := s.challengeLocked(id, KindMatch)
		if err != nil {
			return err
		}
		seat := ch.seat(user)
		if seat < 0 {
			return fmt.Errorf("%w: not in match %s", ErrForbidden, id)
		}
		s.dropLocked(ch)
		other := 1 - seat
		s.requeueLocked(ch.entries[other])
		s.notify(fx, ch.Players[0], ch.event(protocol.EventMatchCancelled))
		s.notify(fx, ch.Players[1], ch.event(protocol.EventMatchCancelled))
		return nil
	})
}

// Sweep removes expired challenges and notifies their players.
func (s *Service) Sweep() int {
	n := 0
	s.do(func(fx *effects) error {
		now := s.now()
		for _, ch := range s.challenges {
			if !ch.expired(now) {
				continue
			}
			s.dropLocked(ch)
			s.notify(fx, ch.Players[0], ch.event(protocol.EventChallengeExpired))
			s.notify(fx, ch.Players[1], ch.event(protocol.EventChallengeExpired))
			n++
		}
		return nil
	})
	return n
}
