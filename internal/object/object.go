// Package object holds the game entities of the three arenas and the world
// container that updates them.
package object

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/tomz197/arcade/internal/physics"
	"github.com/tomz197/arcade/internal/protocol"
)

// Type identifies a game.
type Type string

const (
	TypePong   Type = "pong"
	TypeRunner Type = "runner"
	TypeVolley Type = "volley"
)

// Types lists every playable game.
var Types = []Type{TypePong, TypeRunner, TypeVolley}

// ParseType validates a game name.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown game %q", ErrInvalidOption, s)
}

// Spawner allows objects to spawn new objects during update.
type Spawner interface {
	Spawn(obj Object)
	NextID() int
}

// UpdateContext provides all the information an object needs during update.
type UpdateContext struct {
	Delta   time.Duration // wall time covered by one tick, drives Deferred timers
	Tick    int
	Profile *physics.Profile
	Spawner Spawner
	Rand    *rand.Rand
}

// Object is an updatable game entity with a wire representation.
type Object interface {
	ID() int
	Kind() string

	// Update advances the object by one tick. Returns true if the object should be removed.
	Update(ctx UpdateContext) (remove bool, err error)

	// State returns the wire form of the object.
	State() protocol.EntityState
	// SetState overwrites a non-authoritative copy from a snapshot.
	SetState(s protocol.EntityState)

	// Hitboxes returns the rectangles the object collides with. Hidden objects return none.
	Hitboxes() []physics.Rect
}

// Timed is implemented by objects owning Deferred actions.
type Timed interface {
	Timers() []*Deferred
}

// entity is the shared base of every object.
type entity struct {
	physics.Body
	id     int
	kind   string
	facing int
	flags  uint8
}

func newEntity(id int, kind string, x, y, w, h float64) entity {
	return entity{Body: physics.Body{X: x, Y: y, W: w, H: h}, id: id, kind: kind, facing: 1}
}

func (e *entity) ID() int { return e.id }

func (e *entity) Kind() string { return e.kind }

func (e *entity) State() protocol.EntityState {
	return protocol.EntityState{
		ID:     e.id,
		Kind:   e.kind,
		X:      e.X,
		Y:      e.Y,
		DX:     e.DX,
		DY:     e.DY,
		W:      e.W,
		H:      e.H,
		Facing: e.facing,
		Flags:  e.flags,
	}
}

func (e *entity) SetState(s protocol.EntityState) {
	e.X, e.Y, e.DX, e.DY, e.W, e.H = s.X, s.Y, s.DX, s.DY, s.W, s.H
	e.facing = s.Facing
	e.flags = s.Flags
}

func (e *entity) Hitboxes() []physics.Rect {
	if e.Hidden() {
		return nil
	}
	return []physics.Rect{e.Rect()}
}

// Hidden reports whether the entity is out of play.
func (e *entity) Hidden() bool { return e.flags&protocol.FlagHidden != 0 }

func (e *entity) setFlag(flag uint8, on bool) {
	if on {
		e.flags |= flag
	} else {
		e.flags &^= flag
	}
}

// Ghost mirrors an entity known only from snapshots, such as a transient the
// viewer never created itself.
type Ghost struct {
	entity
	rotation float64
}

// NewGhost creates a ghost from its wire state.
func NewGhost(s protocol.EntityState) *Ghost {
	g := &Ghost{}
	g.id, g.kind = s.ID, s.Kind
	g.SetState(s)
	return g
}

// Update is a no-op; ghosts only change through SetState.
func (g *Ghost) Update(UpdateContext) (bool, error) { return false, nil }

func (g *Ghost) State() protocol.EntityState {
	s := g.entity.State()
	s.Rotation = g.rotation
	return s
}

func (g *Ghost) SetState(s protocol.EntityState) {
	g.entity.SetState(s)
	g.rotation = s.Rotation
}
