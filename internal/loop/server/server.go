// Package server runs the authoritative game sessions.
package server

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/arcade/internal/input"
)

// Server keeps the registry of running games and routes inputs and
// commands to them.
type Server struct {
	ctx    context.Context
	out    Broadcaster
	logger *log.Logger

	mu    sync.RWMutex
	games map[string]*Game
}

// NewServer creates a game server. Cancelling ctx aborts every game.
func NewServer(ctx context.Context, out Broadcaster, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		ctx:    ctx,
		out:    out,
		logger: logger,
		games:  make(map[string]*Game),
	}
}

// Start creates and launches the game of cfg. onEnd is called once with the
// result after the game has left the registry.
func (s *Server) Start(cfg Config, onEnd func(Result)) error {
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}
	var g *Game
	g, err := NewGame(cfg, s.out, func(r Result) {
		s.mu.Lock()
		if s.games[r.Session] == g {
			delete(s.games, r.Session)
		}
		s.mu.Unlock()
		if onEnd != nil {
			onEnd(r)
		}
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.games[cfg.Session]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicate, cfg.Session)
	}
	s.games[cfg.Session] = g
	s.mu.Unlock()

	g.Start(s.ctx)
	return nil
}

func (s *Server) game(session string) (*Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[session]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, session)
	}
	return g, nil
}

// Game returns the running game of a session.
func (s *Server) Game(session string) (*Game, bool) {
	g, err := s.game(session)
	return g, err == nil
}

// Input sends the controls of user to a session.
func (s *Server) Input(session, user string, f input.Flags) error {
	g, err := s.game(session)
	if err != nil {
		return err
	}
	return g.SendInput(user, f)
}

// Forfeit ends a session in favour of the opponent of user.
func (s *Server) Forfeit(session, user string) error {
	g, err := s.game(session)
	if err != nil {
		return err
	}
	return g.Forfeit(user)
}

// Stop aborts a session.
func (s *Server) Stop(session string) error {
	g, err := s.game(session)
	if err != nil {
		return err
	}
	g.Stop()
	return nil
}

// List summarizes the running games, ordered by session id.
func (s *Server) List() []Info {
	s.mu.RLock()
	games := make([]*Game, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g)
	}
	s.mu.RUnlock()

	infos := make([]Info, 0, len(games))
	for _, g := range games {
		info := Info{
			Session: g.cfg.Session,
			Game:    g.cfg.Game,
			Players: g.cfg.Players,
			Status:  g.Status().String(),
		}
		if snap := g.Last(); snap != nil {
			info.Tick = snap.Tick
			info.Scores = snap.Scores
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Session < infos[j].Session })
	return infos
}

// Shutdown stops every running game and waits for them to end (up to the
// given timeout).
func (s *Server) Shutdown(timeout time.Duration) {
	s.mu.RLock()
	games := make([]*Game, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g)
	}
	s.mu.RUnlock()

	s.logger.Info("stopping games", "count", len(games))
	for _, g := range games {
		go g.Stop()
	}

	deadline := time.After(timeout)
	for _, g := range games {
		select {
		case <-g.Done():
		case <-deadline:
			s.logger.Warn("shutdown timed out")
			return
		}
	}
}
