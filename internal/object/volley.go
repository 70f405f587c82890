package object

import (
	"math"

	"github.com/tomz197/arcade/internal/input"
	"github.com/tomz197/arcade/internal/physics"
	"github.com/tomz197/arcade/internal/protocol"
)

// touchCooldown is the number of ticks before the same player can touch the
// ball again.
const touchCooldown = 8

// Player is a volleyball player confined to its half of the court.
type Player struct {
	entity
	Seat       int
	MinX, MaxX float64
	control    input.Flags
	jumpHeld   bool
	grounded   bool
	launchY    float64
}

// Grounded reports whether the player stands on the floor.
func (pl *Player) Grounded() bool { return pl.grounded }

func (pl *Player) Update(ctx UpdateContext) (bool, error) {
	p := ctx.Profile
	walk(&pl.Body, pl.control, pl.grounded, p)
	if pl.control.Left != pl.control.Right {
		pl.facing = 1
		if pl.control.Left {
			pl.facing = -1
		}
	}

	if pl.grounded {
		pl.launchY = pl.Y
	}
	if pl.control.Jump && !pl.jumpHeld && pl.grounded {
		pl.DY = -p.JumpImpulse
		if ctx.Spawner != nil {
			ctx.Spawner.Spawn(newShadow(ctx.Spawner.NextID(), pl, p.FieldHeight))
		}
	}
	pl.jumpHeld = pl.control.Jump

	pl.Fall(p.Gravity, 1)
	if ceiling := pl.launchY - p.JumpHeight; p.JumpHeight > 0 && pl.Y < ceiling {
		pl.Y = ceiling
		pl.DY = max(pl.DY, 0)
	}

	pl.grounded = pl.Bottom() >= p.FieldHeight
	if pl.grounded {
		pl.SetBottom(p.FieldHeight)
		pl.DY = 0
	}
	pl.setFlag(protocol.FlagGrounded, pl.grounded)

	if pl.Left() < pl.MinX {
		pl.SetLeft(pl.MinX)
		pl.DX = 0
	} else if pl.Right() > pl.MaxX {
		pl.SetRight(pl.MaxX)
		pl.DX = 0
	}
	return false, nil
}

// Shadow marks the floor under an airborne player.
type Shadow struct {
	entity
	owner *Player
}

func newShadow(id int, owner *Player, floor float64) *Shadow {
	return &Shadow{entity: newEntity(id, "shadow", owner.X, floor-1, owner.W, 1), owner: owner}
}

func (s *Shadow) Update(UpdateContext) (bool, error) {
	if s.owner.grounded {
		return true, nil
	}
	s.X = s.owner.X
	return false, nil
}

func (s *Shadow) Hitboxes() []physics.Rect { return nil }

// Net splits the court.
type Net struct {
	entity
}

func (n *Net) Update(UpdateContext) (bool, error) { return false, nil }

// VolleyBall hangs above the serving player until the serve timer elapses
// or a player touches it, then falls under gravity.
type VolleyBall struct {
	entity
	Server    int
	serve     Deferred
	lastTouch int
	touchTick int
}

func (b *VolleyBall) Timers() []*Deferred { return []*Deferred{&b.serve} }

// Serving reports whether the ball is in the serving sub-state.
func (b *VolleyBall) Serving() bool { return b.serve.Pending() }

func (b *VolleyBall) Update(ctx UpdateContext) (bool, error) {
	if b.serve.Pending() {
		b.serve.Advance(ctx.Delta)
		b.setFlag(protocol.FlagServing, b.serve.Pending())
		return false, nil
	}
	p := ctx.Profile
	b.Fall(p.Gravity, 1)
	b.ClampSpeed(p.BallMaxSpeed, p.BallMaxSpeed)
	return false, nil
}

// reset hangs the ball above the server's half.
func (b *VolleyBall) reset(p *physics.Profile, server int) {
	x := p.FieldWidth / 4
	if server == 1 {
		x = p.FieldWidth * 3 / 4
	}
	b.Server = server
	b.SetCenter(x, p.FieldHeight-p.AvatarHeight-p.JumpHeight/2)
	b.DX, b.DY = 0, 0
	b.lastTouch = -1
	b.serve.Start(p.ServeDelay, nil)
	b.setFlag(protocol.FlagServing, true)
}

func (b *VolleyBall) touch(pl *Player, tick int, p *physics.Profile) {
	dx := b.CenterX() - pl.CenterX()
	dy := min(b.CenterY()-pl.CenterY(), -pl.H/2)
	n := physics.Distance(0, 0, dx, dy)
	b.DX = dx / n * p.HitSpeed
	b.DY = dy / n * p.HitSpeed
	b.SetBottom(min(b.Bottom(), pl.Top()))
	b.lastTouch = pl.Seat
	b.touchTick = tick
	b.serve.Cancel()
	b.setFlag(protocol.FlagServing, false)
}

type volley struct {
	arena
	players [Seats]*Player
	net     *Net
	ball    *VolleyBall
}

func newVolley(a arena) *volley {
	p := a.profile
	g := &volley{arena: a}
	w := g.world

	netX := (p.FieldWidth - p.NetWidth) / 2
	g.net = &Net{entity: newEntity(w.NextID(), "net", netX, p.FieldHeight-p.NetHeight, p.NetWidth, p.NetHeight)}
	w.Add(g.net)

	for seat := range g.players {
		pl := &Player{Seat: seat, MinX: 0, MaxX: netX}
		x := p.FieldWidth/4 - p.AvatarWidth/2
		if seat == 1 {
			pl.MinX, pl.MaxX = netX+p.NetWidth, p.FieldWidth
			x = p.FieldWidth*3/4 - p.AvatarWidth/2
		}
		pl.entity = newEntity(w.NextID(), "player", x, p.FieldHeight-p.AvatarHeight, p.AvatarWidth, p.AvatarHeight)
		pl.grounded = true
		pl.launchY = pl.Y
		if seat == 1 {
			pl.facing = -1
		}
		g.players[seat] = pl
		w.Add(pl)
	}

	g.ball = &VolleyBall{entity: newEntity(w.NextID(), "ball", 0, 0, p.BallSize, p.BallSize)}
	first := 0
	if p.ServeDirection < 0 {
		first = 1
	}
	g.ball.reset(&p, first)
	w.Add(g.ball)
	return g
}

func (g *volley) Control(seat int, f input.Flags) {
	if validSeat(seat) {
		g.players[seat].control = f
	}
}

func (g *volley) Advance(ctx UpdateContext) error {
	return g.world.Update(g.context(ctx))
}

func (g *volley) Resolve(ctx UpdateContext) []int {
	ctx = g.context(ctx)
	p := ctx.Profile
	b := g.ball

	for _, pl := range g.players {
		if b.lastTouch == pl.Seat && ctx.Tick-b.touchTick < touchCooldown {
			continue
		}
		if physics.Intersects(b.Rect(), pl.Rect()) {
			b.touch(pl, ctx.Tick, p)
		}
	}
	if b.Serving() {
		return nil
	}

	if b.Left() < 0 {
		b.SetLeft(0)
		b.DX = math.Abs(b.DX) * p.RestitutionX
	} else if b.Right() > p.FieldWidth {
		b.SetRight(p.FieldWidth)
		b.DX = -math.Abs(b.DX) * p.RestitutionX
	}
	if b.Top() < 0 {
		b.SetTop(0)
		b.DY = math.Abs(b.DY) * p.RestitutionY
	}

	net := g.net.Rect()
	if side := physics.ResolveDirection(b.Rect(), net, p.CornerTolerance); side != physics.SideNone {
		physics.Separate(&b.Body, net, side)
		if side.IsBottom() {
			b.DY = -math.Abs(b.DY) * p.RestitutionY
		}
		if side.IsTop() {
			b.DY = math.Abs(b.DY) * p.RestitutionY
		}
		if side.IsLeft() {
			b.DX = math.Abs(b.DX) * p.RestitutionX
		}
		if side.IsRight() {
			b.DX = -math.Abs(b.DX) * p.RestitutionX
		}
	}

	if b.Bottom() >= p.FieldHeight {
		scorer := 0
		if b.CenterX() < p.FieldWidth/2 {
			scorer = 1
		}
		b.reset(p, scorer)
		return []int{scorer}
	}
	return nil
}
