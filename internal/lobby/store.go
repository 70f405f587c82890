package lobby

import (
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/tomz197/arcade/internal/object"
	"github.com/tomz197/arcade/internal/physics"
	"github.com/tomz197/arcade/internal/protocol"
)

// Status is the persisted state of a session.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusFinished   Status = "finished"
)

// Session is the record of one game between two players.
type Session struct {
	ID         string           `json:"id"`
	Game       object.Type      `json:"type"`
	Players    [2]string        `json:"players"`
	Options    protocol.Options `json:"options"`
	Profile    physics.Profile  `json:"-"`
	Status     Status           `json:"status"`
	Winner     string           `json:"winner,omitempty"`
	Ragequit   bool             `json:"ragequit"`
	Aborted    bool             `json:"aborted,omitempty"`
	Scores     map[string]int   `json:"scores,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
	FinishedAt time.Time        `json:"finishedAt,omitzero"`
}

// Has reports whether user plays in the session.
func (s *Session) Has(user string) bool {
	return s.Players[0] == user || s.Players[1] == user
}

// Opponent returns the other player of user.
func (s *Session) Opponent(user string) string {
	if s.Players[0] == user {
		return s.Players[1]
	}
	return s.Players[0]
}

func (s *Session) clone() *Session {
	c := *s
	c.Scores = maps.Clone(s.Scores)
	return &c
}

// Store persists session records.
type Store interface {
	Create(s *Session) error
	Get(id string) (*Session, error)
	Update(s *Session) error
	Delete(id string) error
	List() ([]*Session, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Create(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	m.sessions[s.ID] = s.clone()
	return nil
}

func (m *MemoryStore) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	return s.clone(), nil
}

func (m *MemoryStore) Update(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return fmt.Errorf("%w: session %s", ErrNotFound, s.ID)
	}
	m.sessions[s.ID] = s.clone()
	return nil
}

func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// List returns every record, oldest first.
func (m *MemoryStore) List() ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
