package lobby

import (
	"errors"
	"fmt"
	"maps"

	"github.com/tomz197/arcade/internal/loop/config"
	"github.com/tomz197/arcade/internal/loop/server"
	"github.com/tomz197/arcade/internal/object"
	"github.com/tomz197/arcade/internal/protocol"
)

// commitLocked turns an accepted challenge into a pending session and tells
// both players to join its room.
func (s *Service) commitLocked(fx *effects, ch *Challenge) (*Session, error) {
	s.dropLocked(ch)
	profile, err := object.ResolveProfile(ch.Game, ch.Options, s.settings)
	if err != nil {
		s.cancelCommitLocked(fx, ch)
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	sess := &Session{
		ID:        s.newID(),
		Game:      ch.Game,
		Players:   ch.Players,
		Options:   ch.Options,
		Profile:   profile,
		Status:    StatusPending,
		CreatedAt: s.now(),
	}
	if err := s.store.Create(sess); err != nil {
		s.logger.Error("store create failed", "session", sess.ID, "err", err)
		s.cancelCommitLocked(fx, ch)
		return nil, err
	}
	s.sessions[sess.ID] = sess
	s.rooms[sess.ID] = make(map[string]bool, config.MaxPlayers)
	for _, p := range sess.Players {
		s.presence[p] = presence{kind: inSession, id: sess.ID}
	}
	ev := protocol.Event{Type: protocol.EventGameGo, Session: sess.ID, Game: string(sess.Game), Players: sess.Players}
	s.notify(fx, sess.Players[0], ev)
	s.notify(fx, sess.Players[1], ev)
	s.logger.Info("session created", "session", sess.ID, "game", sess.Game, "players", sess.Players)
	return sess, nil
}

// cancelCommitLocked tells both players of a challenge that could not become
// a session that it is gone.
func (s *Service) cancelCommitLocked(fx *effects, ch *Challenge) {
	s.notify(fx, ch.Players[0], ch.event(protocol.EventChallengeCancelled))
	s.notify(fx, ch.Players[1], ch.event(protocol.EventChallengeCancelled))
}

func (s *Service) sessionLocked(id, user string) (*Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	if !sess.Has(user) {
		return nil, fmt.Errorf("%w: not a player of %s", ErrForbidden, id)
	}
	return sess, nil
}

// JoinRoom adds user to the room of a pending session. The game starts once
// every player joined.
func (s *Service) JoinRoom(session, user string) error {
	return s.do(func(fx *effects) error {
		sess, err := s.sessionLocked(session, user)
		if err != nil {
			return err
		}
		room := s.rooms[session]
		room[user] = true
		if sess.Status != StatusPending || len(room) != config.MaxPlayers {
			return nil
		}
		sess.Status = StatusInProgress
		if err := s.store.Update(sess); err != nil {
			s.logger.Error("store update failed", "session", sess.ID, "err", err)
		}
		cfg := server.Config{
			Session: sess.ID,
			Game:    sess.Game,
			Players: sess.Players,
			Profile: sess.Profile,
		}
		*fx = append(*fx, func() { s.start(cfg) })
		return nil
	})
}

// start hands a session to the runner. A game that cannot start finishes as aborted.
func (s *Service) start(cfg server.Config) {
	if s.runner == nil {
		return
	}
	if err := s.runner.Start(cfg, s.Finish); err != nil {
		s.logger.Error("game failed to start", "session", cfg.Session, "err", err)
		s.Finish(server.Result{Session: cfg.Session, Game: cfg.Game, Players: cfg.Players, Aborted: true})
	}
}

// LeaveRoom takes user out of a session. A pending session is deleted and
// both players are freed; a running one is forfeited.
func (s *Service) LeaveRoom(session, user string) error {
	return s.do(func(fx *effects) error {
		sess, err := s.sessionLocked(session, user)
		if err != nil {
			return err
		}
		s.leaveLocked(fx, sess, user)
		return nil
	})
}

func (s *Service) leaveLocked(fx *effects, sess *Session, user string) {
	delete(s.rooms[sess.ID], user)
	switch sess.Status {
	case StatusPending:
		s.deleteLocked(sess)
		ev := protocol.Event{Type: protocol.EventMatchCancelled, Session: sess.ID, Game: string(sess.Game), Players: sess.Players}
		s.notify(fx, sess.Players[0], ev)
		s.notify(fx, sess.Players[1], ev)
	case StatusInProgress:
		*fx = append(*fx, func() {
			if s.runner == nil {
				return
			}
			if err := s.runner.Forfeit(sess.ID, user); err != nil && !errors.Is(err, server.ErrUnknownSession) {
				s.logger.Error("forfeit failed", "session", sess.ID, "user", user, "err", err)
			}
		})
	}
}

// deleteLocked drops a pending session and frees its players.
func (s *Service) deleteLocked(sess *Session) {
	delete(s.sessions, sess.ID)
	delete(s.rooms, sess.ID)
	if err := s.store.Delete(sess.ID); err != nil {
		s.logger.Error("store delete failed", "session", sess.ID, "err", err)
	}
	p := presence{kind: inSession, id: sess.ID}
	s.freeLocked(sess.Players[0], p)
	s.freeLocked(sess.Players[1], p)
}

// Disconnect removes user from whatever they belong to: the queue, a
// challenge or a session.
func (s *Service) Disconnect(user string) {
	s.do(func(fx *effects) error {
		p, ok := s.presentLocked(user)
		if !ok {
			return nil
		}
		switch p.kind {
		case inQueue:
			s.unqueueLocked(user)
		case inChallenge:
			ch := s.challenges[p.id]
			s.dropLocked(ch)
			typ := protocol.EventChallengeCancelled
			if ch.Kind == KindMatch {
				typ = protocol.EventMatchCancelled
				if seat := ch.seat(user); seat >= 0 {
					s.requeueLocked(ch.entries[1-seat])
				}
			}
			for _, other := range ch.Players {
				if other != user {
					s.notify(fx, other, ch.event(typ))
				}
			}
		case inSession:
			if sess, ok := s.sessions[p.id]; ok {
				s.leaveLocked(fx, sess, user)
			}
		}
		return nil
	})
}

// Finish records the result of a game and returns both players to the lobby.
func (s *Service) Finish(r server.Result) {
	s.do(func(fx *effects) error {
		sess, ok := s.sessions[r.Session]
		if !ok {
			s.logger.Warn("result for unknown session", "session", r.Session)
			return nil
		}
		sess.Status = StatusFinished
		sess.Winner = r.Winner
		sess.Ragequit = r.Ragequit
		sess.Aborted = r.Aborted
		sess.Scores = maps.Clone(r.Scores)
		sess.FinishedAt = s.now()
		if err := s.store.Update(sess); err != nil {
			s.logger.Error("store update failed", "session", sess.ID, "err", err)
		}
		delete(s.sessions, sess.ID)
		delete(s.rooms, sess.ID)
		p := presence{kind: inSession, id: sess.ID}
		for _, u := range sess.Players {
			s.freeLocked(u, p)
		}
		ev := protocol.Event{
			Type:     protocol.EventGameOver,
			Session:  sess.ID,
			Game:     string(sess.Game),
			Players:  sess.Players,
			Winner:   sess.Winner,
			Ragequit: sess.Ragequit,
			Scores:   sess.Scores,
		}
		s.notify(fx, sess.Players[0], ev)
		s.notify(fx, sess.Players[1], ev)
		s.logger.Info("session finished", "session", sess.ID, "winner", sess.Winner, "ragequit", sess.Ragequit, "aborted", sess.Aborted)
		return nil
	})
}
