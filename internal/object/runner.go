package object

import (
	"math"
	"time"

	"github.com/tomz197/arcade/internal/input"
	"github.com/tomz197/arcade/internal/physics"
	"github.com/tomz197/arcade/internal/protocol"
)

// Avatar is a runner player.
type Avatar struct {
	entity
	Seat     int
	SpawnX   float64
	SpawnY   float64
	control  input.Flags
	jumpHeld bool
	grounded bool
	launchY  float64
	respawn  Deferred
}

func (a *Avatar) Timers() []*Deferred { return []*Deferred{&a.respawn} }

// Grounded reports whether the avatar stood on a surface after the last resolve.
func (a *Avatar) Grounded() bool { return a.grounded }

func (a *Avatar) Update(ctx UpdateContext) (bool, error) {
	if a.respawn.Pending() {
		a.respawn.Advance(ctx.Delta)
		return false, nil
	}
	p := ctx.Profile

	walk(&a.Body, a.control, a.grounded, p)
	if a.control.Left != a.control.Right {
		a.facing = 1
		if a.control.Left {
			a.facing = -1
		}
	}

	if a.grounded {
		a.launchY = a.Y
	}
	if a.control.Jump && !a.jumpHeld && a.grounded {
		a.DY = -p.JumpImpulse
	}
	a.jumpHeld = a.control.Jump

	a.Fall(p.Gravity, 1)
	if ceiling := a.launchY - p.JumpHeight; p.JumpHeight > 0 && a.Y < ceiling {
		a.Y = ceiling
		a.DY = max(a.DY, 0)
	}
	a.grounded = false
	a.setFlag(protocol.FlagGrounded, false)

	if a.Left() < 0 {
		a.SetLeft(0)
		a.DX = 0
	} else if a.Right() > p.FieldWidth {
		a.SetRight(p.FieldWidth)
		a.DX = 0
	}
	if a.Top() > p.FieldHeight {
		a.knockOut(ctx)
	}
	return false, nil
}

// knockOut takes the avatar out of play until the respawn timer drops it back
// above its spawn point, standing on a safety net.
func (a *Avatar) knockOut(ctx UpdateContext) {
	if a.respawn.Pending() {
		return
	}
	a.DX, a.DY = 0, 0
	a.grounded = false
	a.setFlag(protocol.FlagGrounded, false)
	a.setFlag(protocol.FlagHidden, true)
	a.setFlag(protocol.FlagStunned, true)
	spawner, p := ctx.Spawner, ctx.Profile
	a.respawn.Start(p.RespawnDelay, func() {
		a.X, a.Y = a.SpawnX, a.SpawnY-4*a.H
		a.launchY = a.Y
		a.setFlag(protocol.FlagHidden, false)
		a.setFlag(protocol.FlagStunned, false)
		if spawner != nil {
			spawner.Spawn(newSafetyNet(spawner.NextID(), a, p.RespawnDelay))
		}
	})
}

// land puts the avatar on top of a surface moving horizontally by carry.
func (a *Avatar) land(top, carry float64) {
	a.SetBottom(top)
	a.DY = 0
	a.X += carry
	a.grounded = true
	a.setFlag(protocol.FlagGrounded, true)
}

// surface is anything an avatar can stand on.
type surface interface {
	Object
	Rect() physics.Rect
	carry() float64
}

// Platform is a static ledge.
type Platform struct {
	entity
}

func (p *Platform) Update(UpdateContext) (bool, error) { return false, nil }

func (p *Platform) carry() float64 { return 0 }

// MovingPlatform travels horizontally between MinX and MaxX, hanging at each
// end for the profile's hang delay.
type MovingPlatform struct {
	entity
	MinX, MaxX float64
	dir        float64
	hang       Deferred
}

func (m *MovingPlatform) Timers() []*Deferred { return []*Deferred{&m.hang} }

func (m *MovingPlatform) Update(ctx UpdateContext) (bool, error) {
	if m.hang.Pending() {
		m.DX = 0
		m.hang.Advance(ctx.Delta)
		return false, nil
	}
	m.DX = m.dir * ctx.Profile.PaddleSpeed
	m.Move()
	if m.X >= m.MaxX || m.X <= m.MinX {
		m.X = physics.Clamp(m.X, m.MinX, m.MaxX)
		m.dir = -m.dir
		m.hang.Start(ctx.Profile.HangDelay, nil)
	}
	return false, nil
}

func (m *MovingPlatform) carry() float64 { return m.DX }

// SafetyNet is a short-lived ledge under a respawned avatar.
type SafetyNet struct {
	entity
	life Deferred
}

func newSafetyNet(id int, a *Avatar, life time.Duration) *SafetyNet {
	n := &SafetyNet{entity: newEntity(id, "safety", a.X-a.W, a.Bottom(), a.W*3, 1)}
	n.life.Start(life, nil)
	return n
}

func (n *SafetyNet) Timers() []*Deferred { return []*Deferred{&n.life} }

func (n *SafetyNet) Update(ctx UpdateContext) (bool, error) {
	n.life.Advance(ctx.Delta)
	return !n.life.Pending(), nil
}

func (n *SafetyNet) carry() float64 { return 0 }

// Hazard is a head swinging on a tether from a fixed pivot. The tether
// segments collide as well as the head.
type Hazard struct {
	entity
	PivotX, PivotY float64
	Length         float64
	Amplitude      float64 // radians
	Speed          float64 // phase advance per tick
	Segments       int
	phase          float64
	angle          float64
}

func (h *Hazard) Update(UpdateContext) (bool, error) {
	h.phase += h.Speed
	h.place(h.Amplitude * math.Sin(h.phase))
	return false, nil
}

func (h *Hazard) place(angle float64) {
	oldX, oldY := h.X, h.Y
	h.angle = angle
	h.SetCenter(h.PivotX+h.Length*math.Sin(angle), h.PivotY+h.Length*math.Cos(angle))
	h.DX, h.DY = h.X-oldX, h.Y-oldY
}

func (h *Hazard) Hitboxes() []physics.Rect {
	boxes := make([]physics.Rect, 0, h.Segments+1)
	sin, cos := math.Sin(h.angle), math.Cos(h.angle)
	for i := 1; i <= h.Segments; i++ {
		d := h.Length * float64(i) / float64(h.Segments+1)
		boxes = append(boxes, physics.Rect{X: h.PivotX + d*sin - 0.5, Y: h.PivotY + d*cos - 0.5, W: 1, H: 1})
	}
	return append(boxes, h.Rect())
}

func (h *Hazard) State() protocol.EntityState {
	s := h.entity.State()
	s.Rotation = h.angle
	return s
}

func (h *Hazard) SetState(s protocol.EntityState) {
	h.entity.SetState(s)
	h.angle = s.Rotation
}

// Coin scores for the avatar that collects it and comes back elsewhere after
// the respawn delay.
type Coin struct {
	entity
	spots   [][2]float64
	respawn Deferred
}

func (c *Coin) Timers() []*Deferred { return []*Deferred{&c.respawn} }

func (c *Coin) Update(ctx UpdateContext) (bool, error) {
	c.respawn.Advance(ctx.Delta)
	return false, nil
}

func (c *Coin) collect(ctx UpdateContext) {
	c.setFlag(protocol.FlagHidden, true)
	rng := ctx.Rand
	c.respawn.Start(ctx.Profile.RespawnDelay, func() {
		spot := c.spots[rng.Intn(len(c.spots))]
		c.X, c.Y = spot[0], spot[1]
		c.setFlag(protocol.FlagHidden, false)
	})
}

type runner struct {
	arena
	avatars [Seats]*Avatar
	hazard  *Hazard
	coins   []*Coin
}

var (
	runnerLedges = []physics.Rect{
		{X: 0, Y: 74, W: 48, H: 6},
		{X: 72, Y: 74, W: 48, H: 6},
		{X: 8, Y: 54, W: 24, H: 3},
		{X: 88, Y: 54, W: 24, H: 3},
		{X: 44, Y: 36, W: 32, H: 3},
	}
	coinSpots = [][2]float64{{19, 48}, {99, 48}, {59, 30}, {10, 68}, {108, 68}, {59, 56}}
)

func newRunner(a arena) *runner {
	p := a.profile
	g := &runner{arena: a}
	w := g.world
	sx, sy := p.FieldWidth/FieldWidth, p.FieldHeight/FieldHeight

	for _, r := range runnerLedges {
		w.Add(&Platform{entity: newEntity(w.NextID(), "platform", r.X*sx, r.Y*sy, r.W*sx, r.H*sy)})
	}

	mp := &MovingPlatform{
		entity: newEntity(w.NextID(), "platform", 30*sx, 62*sy, p.PaddleWidth, p.PaddleHeight),
		MinX:   30 * sx,
		MaxX:   90*sx - p.PaddleWidth,
		dir:    1,
	}
	mp.hang.Start(p.HangDelay, nil)
	w.Add(mp)

	for seat := range g.avatars {
		x := 12 * sx
		if seat == 1 {
			x = p.FieldWidth - 12*sx - p.AvatarWidth
		}
		y := 74*sy - p.AvatarHeight
		av := &Avatar{
			entity: newEntity(w.NextID(), "avatar", x, y, p.AvatarWidth, p.AvatarHeight),
			Seat:   seat,
			SpawnX: x,
			SpawnY: y,
		}
		av.launchY = y
		if seat == 1 {
			av.facing = -1
		}
		g.avatars[seat] = av
		w.Add(av)
	}

	g.hazard = &Hazard{
		entity:    newEntity(w.NextID(), "hazard", 0, 0, p.BallSize, p.BallSize),
		PivotX:    p.FieldWidth / 2,
		PivotY:    0,
		Length:    30 * sy,
		Amplitude: 0.9,
		Speed:     0.04,
		Segments:  6,
	}
	g.hazard.place(0)
	w.Add(g.hazard)

	spots := make([][2]float64, len(coinSpots))
	for i, s := range coinSpots {
		spots[i] = [2]float64{s[0] * sx, s[1] * sy}
	}
	for i := 0; i < 2; i++ {
		c := &Coin{
			entity: newEntity(w.NextID(), "coin", spots[i][0], spots[i][1], 2, 2),
			spots:  spots,
		}
		g.coins = append(g.coins, c)
		w.Add(c)
	}
	return g
}

func (g *runner) Control(seat int, f input.Flags) {
	if validSeat(seat) {
		g.avatars[seat].control = f
	}
}

func (g *runner) Advance(ctx UpdateContext) error {
	return g.world.Update(g.context(ctx))
}

func (g *runner) Resolve(ctx UpdateContext) []int {
	ctx = g.context(ctx)
	tol := ctx.Profile.CornerTolerance

	var surfaces []surface
	for _, obj := range g.world.Objects {
		if s, ok := obj.(surface); ok {
			surfaces = append(surfaces, s)
		}
	}

	var scored []int
	for seat, av := range g.avatars {
		if av.Hidden() {
			continue
		}
		for _, s := range surfaces {
			r := s.Rect()
			side := physics.ResolveDirection(av.Rect(), r, tol)
			switch {
			case side == physics.SideNone:
			case side.IsBottom() && (av.DY >= 0 || !side.IsCorner()):
				av.land(r.Top(), s.carry())
			case side.IsTop() && (av.DY <= 0 || !side.IsCorner()):
				av.SetTop(r.Bottom())
				av.DY = max(av.DY, 0)
			case side.IsLeft():
				av.SetLeft(r.Right())
				av.DX = max(av.DX, 0)
			case side.IsRight():
				av.SetRight(r.Left())
				av.DX = min(av.DX, 0)
			}
		}

		if physics.Collides(av.Hitboxes(), g.hazard.Hitboxes()) {
			av.knockOut(ctx)
			continue
		}

		for _, c := range g.coins {
			if !c.Hidden() && physics.Intersects(av.Rect(), c.Rect()) {
				c.collect(ctx)
				scored = append(scored, seat)
			}
		}
	}
	return scored
}
