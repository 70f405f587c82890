package object

import (
	"math"

	"github.com/tomz197/arcade/internal/input"
	"github.com/tomz197/arcade/internal/physics"
	"github.com/tomz197/arcade/internal/protocol"
)

// Paddle is a pong player's bat. It moves vertically only.
type Paddle struct {
	entity
	Seat    int
	control input.Flags
}

func (p *Paddle) Update(ctx UpdateContext) (bool, error) {
	speed := ctx.Profile.PaddleSpeed
	switch {
	case p.control.Up && !p.control.Down:
		p.DY = -speed
	case p.control.Down && !p.control.Up:
		p.DY = speed
	default:
		p.DY = 0
	}
	p.Move()
	if p.Top() < 0 {
		p.SetTop(0)
	} else if p.Bottom() > ctx.Profile.FieldHeight {
		p.SetBottom(ctx.Profile.FieldHeight)
	}
	return false, nil
}

// Ball is the pong ball.
type Ball struct {
	entity
	Hits  int // paddle contacts since the last serve
	serve Deferred
	prevX float64
}

func (b *Ball) Timers() []*Deferred { return []*Deferred{&b.serve} }

// Serving reports whether the ball waits for its serve timer.
func (b *Ball) Serving() bool { return b.serve.Pending() }

func (b *Ball) Update(ctx UpdateContext) (bool, error) {
	b.prevX = b.X
	if b.serve.Pending() {
		b.serve.Advance(ctx.Delta)
		b.setFlag(protocol.FlagServing, b.serve.Pending())
		return false, nil
	}
	b.Move()
	return false, nil
}

// reset re-centres the ball at rest and schedules a serve toward dir
// (-1 left seat, +1 right seat).
func (b *Ball) reset(ctx UpdateContext, dir int) {
	p := ctx.Profile
	b.SetCenter(p.FieldWidth/2, p.FieldHeight/2)
	b.prevX = b.X
	b.DX, b.DY = 0, 0
	b.Hits = 0
	b.setFlag(protocol.FlagServing, true)
	rng := ctx.Rand
	b.serve.Start(p.ServeDelay, func() {
		b.DX = float64(dir) * p.BallSpeed
		b.DY = (rng.Float64()*2 - 1) * p.ServeSpread
		b.setFlag(protocol.FlagServing, false)
	})
}

type pong struct {
	arena
	paddles [Seats]*Paddle
	ball    *Ball
	started bool
}

func newPong(a arena) *pong {
	p := a.profile
	g := &pong{arena: a}
	margin := 4.0
	for seat := range g.paddles {
		x := margin
		if seat == 1 {
			x = p.FieldWidth - margin - p.PaddleWidth
		}
		g.paddles[seat] = &Paddle{
			entity: newEntity(g.world.NextID(), "paddle", x, (p.FieldHeight-p.PaddleHeight)/2, p.PaddleWidth, p.PaddleHeight),
			Seat:   seat,
		}
		if seat == 1 {
			g.paddles[seat].facing = -1
		}
		g.world.Add(g.paddles[seat])
	}
	g.ball = &Ball{entity: newEntity(g.world.NextID(), "ball", 0, 0, p.BallSize, p.BallSize)}
	g.world.Add(g.ball)
	return g
}

func (g *pong) Control(seat int, f input.Flags) {
	if validSeat(seat) {
		g.paddles[seat].control = f
	}
}

func (g *pong) Advance(ctx UpdateContext) error {
	ctx = g.context(ctx)
	if !g.started {
		g.started = true
		g.ball.reset(ctx, ctx.Profile.ServeDirection)
	}
	return g.world.Update(ctx)
}

func (g *pong) Resolve(ctx UpdateContext) []int {
	ctx = g.context(ctx)
	p := ctx.Profile
	b := g.ball

	if b.Top() < 0 {
		b.SetTop(0)
		b.DY = math.Abs(b.DY) * p.RestitutionY
	} else if b.Bottom() > p.FieldHeight {
		b.SetBottom(p.FieldHeight)
		b.DY = -math.Abs(b.DY) * p.RestitutionY
	}

	for seat, pad := range g.paddles {
		if !g.struck(pad) {
			continue
		}
		b.Hits++
		speed := p.BallSpeed + float64(b.Hits)*p.BallAccel
		if p.BallMaxSpeed > 0 {
			speed = min(speed, p.BallMaxSpeed)
		}
		if seat == 0 {
			b.DX = speed
			b.SetLeft(pad.Right())
		} else {
			b.DX = -speed
			b.SetRight(pad.Left())
		}
		b.DY += pad.DY * p.Spin
		b.ClampSpeed(0, p.BallMaxSpeed)
	}

	// A ball touching the edge is still in play; it scores once fully out.
	switch {
	case b.Right() <= 0:
		b.reset(ctx, -1)
		return []int{1}
	case b.Left() >= p.FieldWidth:
		b.reset(ctx, 1)
		return []int{0}
	}
	return nil
}

// struck reports whether the ball hits the paddle's inner face this tick while
// travelling toward it. A ball moving away never counts, so the sign of DX
// flips at most once per contact.
func (g *pong) struck(pad *Paddle) bool {
	b := g.ball
	if pad.Seat == 0 && b.DX >= 0 || pad.Seat == 1 && b.DX <= 0 {
		return false
	}
	if physics.Intersects(b.Rect(), pad.Rect()) {
		return true
	}
	if pad.W <= 0 || pad.H <= 0 {
		return false
	}
	// Swept test against the face for balls fast enough to skip over it.
	if b.Bottom() <= pad.Top() || b.Top() >= pad.Bottom() {
		return false
	}
	if pad.Seat == 0 {
		return b.prevX >= pad.Right() && b.Left() < pad.Right()
	}
	return b.prevX+b.W <= pad.Left() && b.Right() > pad.Left()
}
