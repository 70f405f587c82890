package lobby

import (
	"fmt"
	"slices"
	"time"

	"github.com/tomz197/arcade/internal/object"
	"github.com/tomz197/arcade/internal/protocol"
)

// entry is one user waiting in the matchmaking queue.
type entry struct {
	user    string
	game    object.Type
	options protocol.Options
	joined  time.Time
}

// JoinQueue puts user at the end of the matchmaking queue.
func (s *Service) JoinQueue(user, game string, opts protocol.Options) error {
	if user == "" {
		return fmt.Errorf("%w: empty user", ErrInvalidRequest)
	}
	t, err := s.checkGame(game, opts)
	if err != nil {
		return err
	}
	return s.do(func(fx *effects) error {
		if _, busy := s.presentLocked(user); busy {
			return fmt.Errorf("%w: %s", ErrBusy, user)
		}
		s.queue = append(s.queue, &entry{user: user, game: t, options: opts, joined: s.now()})
		s.presence[user] = presence{kind: inQueue}
		return nil
	})
}

// LeaveQueue removes user from the queue.
func (s *Service) LeaveQueue(user string) error {
	return s.do(func(fx *effects) error {
		if !s.unqueueLocked(user) {
			return fmt.Errorf("%w: %s is not queued", ErrNotFound, user)
		}
		return nil
	})
}

func (s *Service) unqueueLocked(user string) bool {
	i := slices.IndexFunc(s.queue, func(e *entry) bool { return e.user == user })
	if i < 0 {
		return false
	}
	s.queue = slices.Delete(s.queue, i, i+1)
	s.freeLocked(user, presence{kind: inQueue})
	return true
}

// requeueLocked puts a previously queued entry back in its original place.
func (s *Service) requeueLocked(e *entry) {
	if e == nil {
		return
	}
	if _, busy := s.presentLocked(e.user); busy {
		return
	}
	i, _ := slices.BinarySearchFunc(s.queue, e.joined, func(q *entry, t time.Time) int {
		return q.joined.Compare(t)
	})
	s.queue = slices.Insert(s.queue, i, e)
	s.presence[e.user] = presence{kind: inQueue}
}

// Scan pairs the longest-waiting entries that want the same game. Each pair
// becomes one match challenge both players have to accept. Returns the
// number of matches made.
func (s *Service) Scan() int {
	n := 0
	s.do(func(fx *effects) error {
		for i := 0; i < len(s.queue); i++ {
			first := s.queue[i]
			j := slices.IndexFunc(s.queue[i+1:], func(e *entry) bool { return e.game == first.game })
			if j < 0 {
				continue
			}
			second := s.queue[i+1+j]
			s.queue = slices.Delete(s.queue, i+1+j, i+2+j)
			s.queue = slices.Delete(s.queue, i, i+1)
			i--

			ch := &Challenge{
				ID:      s.newID(),
				Kind:    KindMatch,
				Game:    first.game,
				Options: first.options,
				Players: [2]string{first.user, second.user},
				Expires: s.now().Add(s.ttl),
				entries: [2]*entry{first, second},
			}
			s.challenges[ch.ID] = ch
			s.presence[first.user] = presence{kind: inChallenge, id: ch.ID}
			s.presence[second.user] = presence{kind: inChallenge, id: ch.ID}
			s.notify(fx, first.user, ch.event(protocol.EventMatchFound))
			s.notify(fx, second.user, ch.event(protocol.EventMatchFound))
			n++
		}
		return nil
	})
	return n
}
