package object

import (
	"fmt"
	"math/rand"

	"github.com/tomz197/arcade/internal/input"
	"github.com/tomz197/arcade/internal/physics"
)

// Seats is the number of participants of every arena.
const Seats = 2

// Arena is the entity set and rules of one game. Calls happen on the game
// goroutine in tick order: Control, Advance, Resolve.
type Arena interface {
	Type() Type
	World() *World
	Profile() physics.Profile

	// Control sets the latest input of a seat.
	Control(seat int, f input.Flags)
	// Advance updates every entity, runs due deferred actions and flushes spawns.
	Advance(ctx UpdateContext) error
	// Resolve applies collisions and reactions and returns the seats that scored.
	Resolve(ctx UpdateContext) []int
}

// NewArena builds the arena of a game from its bound profile.
func NewArena(t Type, p physics.Profile, rng *rand.Rand) (Arena, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	base := arena{kind: t, profile: p, world: NewWorld(), rng: rng}
	switch t {
	case TypePong:
		return newPong(base), nil
	case TypeRunner:
		return newRunner(base), nil
	case TypeVolley:
		return newVolley(base), nil
	}
	return nil, fmt.Errorf("%w: unknown game %q", ErrInvalidOption, t)
}

// arena carries what every game shares.
type arena struct {
	kind    Type
	profile physics.Profile
	world   *World
	rng     *rand.Rand
}

func (a *arena) Type() Type { return a.kind }

func (a *arena) World() *World { return a.world }

func (a *arena) Profile() physics.Profile { return a.profile }

// context binds the arena's profile, spawner and randomness to ctx.
func (a *arena) context(ctx UpdateContext) UpdateContext {
	ctx.Profile = &a.profile
	ctx.Spawner = a.world
	if ctx.Rand == nil {
		ctx.Rand = a.rng
	}
	return ctx
}

func validSeat(seat int) bool { return seat >= 0 && seat < Seats }

// walk applies the horizontal controls shared by runners and volley players:
// accelerate toward the pressed direction, decelerate otherwise, then friction
// and speed ceilings.
func walk(b *physics.Body, f input.Flags, grounded bool, p *physics.Profile) {
	switch {
	case f.Left && !f.Right:
		b.DX -= p.Accel
	case f.Right && !f.Left:
		b.DX += p.Accel
	default:
		if b.DX > 0 {
			b.DX = max(0, b.DX-p.Decel)
		} else if b.DX < 0 {
			b.DX = min(0, b.DX+p.Decel)
		}
	}
	if grounded {
		b.Friction(p.GroundFriction)
	} else {
		b.Friction(p.AirFriction)
	}
	b.ClampSpeed(p.MaxSpeedX, p.MaxSpeedY)
}
