// Package lobby turns idle users into running, then finished, game sessions:
// direct challenges, the matchmaking queue, room membership and the session
// records.
package lobby

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	uuid "github.com/satori/go.uuid"

	"github.com/tomz197/arcade/internal/loop/config"
	"github.com/tomz197/arcade/internal/loop/server"
	"github.com/tomz197/arcade/internal/object"
	"github.com/tomz197/arcade/internal/protocol"
)

// Runner runs the games of committed sessions.
type Runner interface {
	Start(cfg server.Config, onEnd func(server.Result)) error
	Forfeit(session, user string) error
}

// Notifier delivers lifecycle events to connected users.
type Notifier interface {
	Online(user string) bool
	Notify(user string, ev protocol.Event)
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Store        Store
	Runner       Runner
	Notifier     Notifier
	Overrider    object.Overrider
	Logger       *log.Logger
	ChallengeTTL time.Duration
	ScanInterval time.Duration
	Now          func() time.Time
	NewID        func() string
}

type presenceKind int

const (
	inQueue presenceKind = iota + 1
	inChallenge
	inSession
)

// presence is what a user currently belongs to.
type presence struct {
	kind presenceKind
	id   string // challenge or session id; empty for the queue
}

// Service is the session lifecycle. All state sits behind one mutex; side
// effects (notifications, starting and forfeiting games) are collected while
// locked and run after unlocking.
type Service struct {
	store    Store
	runner   Runner
	notifier Notifier
	settings object.Overrider
	logger   *log.Logger
	now      func() time.Time
	newID    func() string
	ttl      time.Duration
	interval time.Duration

	mu         sync.Mutex
	presence   map[string]presence
	queue      []*entry
	challenges map[string]*Challenge
	sessions   map[string]*Session // pending and in-progress
	rooms      map[string]map[string]bool
}

// New creates a lobby service.
func New(opts Options) *Service {
	s := &Service{
		store:      opts.Store,
		runner:     opts.Runner,
		notifier:   opts.Notifier,
		settings:   opts.Overrider,
		logger:     opts.Logger,
		now:        opts.Now,
		newID:      opts.NewID,
		ttl:        opts.ChallengeTTL,
		interval:   opts.ScanInterval,
		presence:   make(map[string]presence),
		challenges: make(map[string]*Challenge),
		sessions:   make(map[string]*Session),
		rooms:      make(map[string]map[string]bool),
	}
	if s.store == nil {
		s.store = NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewV4().String() }
	}
	if s.ttl <= 0 {
		s.ttl = config.ChallengeTTL
	}
	if s.interval <= 0 {
		s.interval = config.ScanInterval
	}
	return s
}

// effects are side effects collected under the lock.
type effects []func()

func (s *Service) notify(fx *effects, user string, ev protocol.Event) {
	if s.notifier == nil {
		return
	}
	*fx = append(*fx, func() { s.notifier.Notify(user, ev) })
}

// do runs fn under the lock and then its collected side effects.
func (s *Service) do(fn func(fx *effects) error) error {
	var fx effects
	s.mu.Lock()
	err := fn(&fx)
	s.mu.Unlock()
	for _, f := range fx {
		f()
	}
	return err
}

// presentLocked returns what user belongs to. Expired challenges count as absent.
func (s *Service) presentLocked(user string) (presence, bool) {
	p, ok := s.presence[user]
	if !ok {
		return p, false
	}
	if p.kind == inChallenge {
		ch, ok := s.challenges[p.id]
		if !ok || ch.expired(s.now()) {
			return presence{}, false
		}
	}
	return p, true
}

// freeLocked clears the presence of user if it still points at p.
func (s *Service) freeLocked(user string, p presence) {
	if cur, ok := s.presence[user]; ok && cur == p {
		delete(s.presence, user)
	}
}

// checkGame validates a game request and resolves its profile.
func (s *Service) checkGame(game string, opts protocol.Options) (object.Type, error) {
	t, err := object.ParseType(game)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if _, err := object.ResolveProfile(t, opts, s.settings); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return t, nil
}

// Run scans the queue and sweeps expired challenges every scan interval
// until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep()
			if n := s.Scan(); n > 0 {
				s.logger.Debug("matched players", "matches", n)
			}
		}
	}
}

// Stats counts the lobby population.
type Stats struct {
	Queued     int `json:"queued"`
	Challenges int `json:"challenges"`
	Pending    int `json:"pending"`
	Playing    int `json:"playing"`
}

// Stats returns the current population.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Queued: len(s.queue)}
	now := s.now()
	for _, ch := range s.challenges {
		if !ch.expired(now) {
			st.Challenges++
		}
	}
	for _, sess := range s.sessions {
		if sess.Status == StatusPending {
			st.Pending++
		} else {
			st.Playing++
		}
	}
	return st
}

// Sessions returns copies of the live (pending and in-progress) sessions.
func (s *Service) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.clone())
	}
	return out
}

// Session returns a live or stored session record.
func (s *Service) Session(id string) (*Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		sess = sess.clone()
	}
	s.mu.Unlock()
	if ok {
		return sess, nil
	}
	return s.store.Get(id)
}

// SessionOf returns the id of the session user plays in, if any.
func (s *Service) SessionOf(user string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.presentLocked(user)
	if !ok || p.kind != inSession {
		return "", false
	}
	return p.id, true
}
