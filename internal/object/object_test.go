package object

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/tomz197/arcade/internal/input"
	"github.com/tomz197/arcade/internal/physics"
	"github.com/tomz197/arcade/internal/protocol"
)

const testTick = time.Second / 60

func newTestArena(t *testing.T, kind Type) Arena {
	t.Helper()
	p, err := DefaultProfile(kind)
	if err != nil {
		t.Fatal(err)
	}
	a, err := NewArena(kind, p, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	return a
}

// step runs one full tick with the given delta and returns the scoring seats.
func step(t *testing.T, a Arena, tick int, dt time.Duration) []int {
	t.Helper()
	ctx := UpdateContext{Delta: dt, Tick: tick}
	if err := a.Advance(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
	return a.Resolve(ctx)
}

func TestDeferredStartReplacesPending(t *testing.T) {
	var d Deferred
	ran := ""
	d.Start(time.Second, func() { ran = "first" })
	d.Start(2*time.Second, func() { ran = "second" })
	if d.Advance(time.Second) {
		t.Fatal("replaced action fired at the old deadline")
	}
	if !d.Advance(time.Second) || ran != "second" {
		t.Fatalf("ran = %q, want second", ran)
	}
	if d.Pending() || d.Advance(time.Hour) {
		t.Fatal("action fired twice")
	}
}

func TestDeferredCancel(t *testing.T) {
	var d Deferred
	fired := false
	d.Start(time.Millisecond, func() { fired = true })
	d.Cancel()
	d.Advance(time.Second)
	if fired || d.Pending() {
		t.Fatal("cancelled action ran")
	}
}

func TestWorldCancelAll(t *testing.T) {
	a := newTestArena(t, TypeRunner)
	a.World().CancelAll()
	for _, obj := range a.World().Objects {
		if timed, ok := obj.(Timed); ok {
			for _, d := range timed.Timers() {
				if d.Pending() {
					t.Fatalf("%s %d still has a pending action", obj.Kind(), obj.ID())
				}
			}
		}
	}
}

func TestWorldApplyCreatesGhostsAndDropsMissing(t *testing.T) {
	w := NewWorld()
	w.Apply([]protocol.EntityState{
		{ID: 1, Kind: "ball", X: 3, Y: 4, W: 2, H: 2},
		{ID: 2, Kind: "hazard", Rotation: 0.5},
	})
	if len(w.Objects) != 2 {
		t.Fatalf("objects = %d", len(w.Objects))
	}
	if got := w.Find(2).State().Rotation; got != 0.5 {
		t.Fatalf("rotation = %v", got)
	}
	w.Apply([]protocol.EntityState{{ID: 1, Kind: "ball", X: 9}})
	if len(w.Objects) != 1 || w.Find(1).State().X != 9 {
		t.Fatalf("apply did not replace state: %+v", w.States())
	}
	if w.NextID() != 3 {
		t.Fatal("ids handed out after Apply must not collide")
	}
}

func TestPongSignFlipsOncePerContact(t *testing.T) {
	a := newTestArena(t, TypePong)
	g := a.(*pong)
	p := a.Profile()
	g.started = true
	b := g.ball
	b.SetCenter(8, p.FieldHeight/2)
	b.DX, b.DY = -p.BallSpeed, 0

	flips := 0
	prev := b.DX
	for i := 0; i < 20; i++ {
		step(t, a, i, testTick)
		if physics.Sign(b.DX) != physics.Sign(prev) {
			flips++
		}
		prev = b.DX
	}
	if flips != 1 {
		t.Fatalf("flips = %d, want 1", flips)
	}
	if want := p.BallSpeed + p.BallAccel; math.Abs(b.DX-want) > 1e-9 {
		t.Fatalf("|DX| after 1 hit = %v, want %v", b.DX, want)
	}

	// Second contact on the right paddle.
	b.SetCenter(p.FieldWidth-8, p.FieldHeight/2)
	b.DY = 0
	for i := 0; i < 20; i++ {
		step(t, a, 20+i, testTick)
	}
	if b.Hits != 2 {
		t.Fatalf("hits = %d, want 2", b.Hits)
	}
	if want := -(p.BallSpeed + 2*p.BallAccel); math.Abs(b.DX-want) > 1e-9 {
		t.Fatalf("DX after 2 hits = %v, want %v", b.DX, want)
	}
}

func TestPongSpeedCapped(t *testing.T) {
	a := newTestArena(t, TypePong)
	g := a.(*pong)
	p := a.Profile()
	g.started = true
	g.ball.Hits = 100
	g.ball.SetCenter(8, p.FieldHeight/2)
	g.ball.DX = -p.BallSpeed
	for i := 0; i < 10; i++ {
		step(t, a, i, testTick)
	}
	if g.ball.DX != p.BallMaxSpeed {
		t.Fatalf("DX = %v, want cap %v", g.ball.DX, p.BallMaxSpeed)
	}
}

func TestPongPaddleSpin(t *testing.T) {
	a := newTestArena(t, TypePong)
	g := a.(*pong)
	p := a.Profile()
	g.started = true
	g.ball.SetCenter(8, p.FieldHeight/2)
	g.ball.DX, g.ball.DY = -p.BallSpeed, 0
	a.Control(0, input.Flags{Down: true})
	for i := 0; i < 3; i++ {
		step(t, a, i, testTick)
	}
	if g.ball.DY <= 0 {
		t.Fatalf("DY = %v, want the paddle's downward spin", g.ball.DY)
	}
}

func TestPongServeScenario(t *testing.T) {
	a := newTestArena(t, TypePong)
	g := a.(*pong)
	p := a.Profile()

	// First serve follows the profile direction.
	step(t, a, 0, p.ServeDelay)
	if g.ball.DX != float64(p.ServeDirection)*p.BallSpeed {
		t.Fatalf("first serve DX = %v", g.ball.DX)
	}

	// Touching the left edge is still in play.
	g.ball.SetLeft(0)
	g.ball.DX, g.ball.DY = 0, 0
	if scored := a.Resolve(UpdateContext{Delta: testTick}); len(scored) != 0 {
		t.Fatalf("ball at x=0 scored for %v", scored)
	}

	// Fully past the left edge scores for the right seat.
	g.ball.SetRight(0)
	scored := a.Resolve(UpdateContext{Delta: testTick})
	if len(scored) != 1 || scored[0] != 1 {
		t.Fatalf("scored = %v, want [1]", scored)
	}
	if g.ball.DX != 0 || g.ball.DY != 0 || !g.ball.Serving() {
		t.Fatalf("ball not re-centred at rest: %+v", g.ball.Body)
	}
	if g.ball.CenterX() != p.FieldWidth/2 || g.ball.CenterY() != p.FieldHeight/2 {
		t.Fatalf("ball centre = (%v, %v)", g.ball.CenterX(), g.ball.CenterY())
	}

	// The serve timer launches toward the conceding left seat.
	elapsed := time.Duration(0)
	for tick := 1; g.ball.Serving(); tick++ {
		step(t, a, tick, testTick)
		elapsed += testTick
		if elapsed > 2*p.ServeDelay {
			t.Fatal("serve never launched")
		}
	}
	if elapsed < p.ServeDelay {
		t.Fatalf("served after %v, before the %v delay", elapsed, p.ServeDelay)
	}
	if g.ball.DX != -p.BallSpeed {
		t.Fatalf("serve DX = %v, want %v", g.ball.DX, -p.BallSpeed)
	}
	if math.Abs(g.ball.DY) > p.ServeSpread {
		t.Fatalf("serve DY = %v outside spread %v", g.ball.DY, p.ServeSpread)
	}
}

func TestRunnerCornerLanding(t *testing.T) {
	a := newTestArena(t, TypeRunner)
	g := a.(*runner)
	av := g.avatars[0]
	// Overhanging the right edge of the ledge at (8, 54, 24, 3):
	// bottom depth 1, left depth 1.5.
	av.X, av.Y = 30.5, 49
	av.DY = 2
	a.Resolve(UpdateContext{Delta: testTick})
	if !av.Grounded() || av.Bottom() != 54 || av.DY != 0 {
		t.Fatalf("avatar did not land on the corner: %+v grounded=%v", av.Body, av.Grounded())
	}
}

func TestRunnerLandsOnGround(t *testing.T) {
	a := newTestArena(t, TypeRunner)
	g := a.(*runner)
	av := g.avatars[0]
	av.X, av.Y = 20, 60
	for i := 0; i < 60; i++ {
		step(t, a, i, testTick)
	}
	if !av.Grounded() || av.Bottom() != 74 {
		t.Fatalf("avatar bottom = %v grounded=%v", av.Bottom(), av.Grounded())
	}
}

func TestRunnerJumpIsOneShotAndCapped(t *testing.T) {
	p, _ := DefaultProfile(TypeRunner)
	p.JumpHeight = 5
	ctx := UpdateContext{Delta: testTick, Profile: &p}
	av := &Avatar{entity: newEntity(1, "avatar", 10, 20, 4, 6)}
	av.grounded = true
	av.control.Jump = true

	av.Update(ctx)
	if av.DY >= 0 {
		t.Fatalf("no jump impulse: DY = %v", av.DY)
	}
	launch := 20.0
	minY := av.Y
	for i := 0; i < 20; i++ {
		av.Update(ctx)
		minY = min(minY, av.Y)
	}
	if minY < launch-p.JumpHeight-1e-9 {
		t.Fatalf("rose to %v, above the %v ceiling", minY, launch-p.JumpHeight)
	}

	// Holding jump across a landing does not jump again.
	av.DY = 0
	av.grounded = true
	av.Update(ctx)
	if av.DY < 0 {
		t.Fatal("held jump re-triggered")
	}
}

func TestRunnerHazardTetherKnocksOut(t *testing.T) {
	a := newTestArena(t, TypeRunner)
	g := a.(*runner)
	av := g.avatars[1]
	// Straddles a tether segment of the hazard hanging straight down.
	av.X, av.Y = g.hazard.PivotX-2, 10
	a.Resolve(UpdateContext{Delta: testTick})
	if !av.Hidden() {
		t.Fatal("tether segment did not knock the avatar out")
	}
}

func TestRunnerRespawnOnSafetyNet(t *testing.T) {
	a := newTestArena(t, TypeRunner)
	g := a.(*runner)
	p := a.Profile()
	av := g.avatars[0]
	av.Y = p.FieldHeight + 1

	step(t, a, 0, testTick)
	if !av.Hidden() {
		t.Fatal("falling out of the field did not knock out")
	}
	step(t, a, 1, p.RespawnDelay)
	if av.Hidden() {
		t.Fatal("avatar did not respawn")
	}
	nets := 0
	for _, obj := range a.World().Objects {
		if obj.Kind() == "safety" {
			nets++
		}
	}
	if nets != 1 {
		t.Fatalf("safety nets = %d, want 1", nets)
	}
	step(t, a, 2, p.RespawnDelay)
	for _, obj := range a.World().Objects {
		if obj.Kind() == "safety" {
			t.Fatal("safety net outlived its delay")
		}
	}
}

func TestRunnerCoinScores(t *testing.T) {
	a := newTestArena(t, TypeRunner)
	g := a.(*runner)
	coin := g.coins[0]
	g.avatars[0].X, g.avatars[0].Y = coin.X-1, coin.Y-2
	scored := a.Resolve(UpdateContext{Delta: testTick})
	if len(scored) != 1 || scored[0] != 0 {
		t.Fatalf("scored = %v, want [0]", scored)
	}
	if !coin.Hidden() || !coin.respawn.Pending() {
		t.Fatal("collected coin should hide until respawn")
	}
}

func TestMovingPlatformHangsThenMoves(t *testing.T) {
	a := newTestArena(t, TypeRunner)
	p := a.Profile()
	var mp *MovingPlatform
	for _, obj := range a.World().Objects {
		if m, ok := obj.(*MovingPlatform); ok {
			mp = m
		}
	}
	start := mp.X
	step(t, a, 0, p.HangDelay/2)
	if mp.X != start {
		t.Fatal("platform moved while hanging")
	}
	step(t, a, 1, p.HangDelay/2)
	step(t, a, 2, testTick)
	if mp.X != start+p.PaddleSpeed {
		t.Fatalf("x = %v, want %v", mp.X, start+p.PaddleSpeed)
	}
}

func TestVolleyServeHangsThenFalls(t *testing.T) {
	a := newTestArena(t, TypeVolley)
	g := a.(*volley)
	p := a.Profile()
	y := g.ball.Y
	step(t, a, 0, p.ServeDelay/2)
	if g.ball.Y != y || !g.ball.Serving() {
		t.Fatal("ball moved while serving")
	}
	step(t, a, 1, p.ServeDelay/2)
	step(t, a, 2, testTick)
	if g.ball.Serving() || g.ball.Y <= y {
		t.Fatalf("ball did not start falling: y=%v serving=%v", g.ball.Y, g.ball.Serving())
	}
}

func TestVolleyTouchEndsServe(t *testing.T) {
	a := newTestArena(t, TypeVolley)
	g := a.(*volley)
	pl := g.players[0]
	pl.SetCenter(g.ball.CenterX(), g.ball.Bottom()+pl.H/2-1)
	a.Resolve(UpdateContext{Delta: testTick, Tick: 1})
	if g.ball.Serving() {
		t.Fatal("touch did not end the serve")
	}
	if g.ball.DY >= 0 {
		t.Fatalf("DY = %v, want upward", g.ball.DY)
	}
}

func TestVolleyFloorScoresForOtherHalf(t *testing.T) {
	a := newTestArena(t, TypeVolley)
	g := a.(*volley)
	p := a.Profile()
	g.ball.serve.Cancel()
	g.ball.SetCenter(p.FieldWidth/8, p.FieldHeight-1)
	g.ball.DY = 1
	scored := a.Resolve(UpdateContext{Delta: testTick})
	if len(scored) != 1 || scored[0] != 1 {
		t.Fatalf("scored = %v, want [1]", scored)
	}
	if !g.ball.Serving() || g.ball.Server != 1 || g.ball.CenterX() != p.FieldWidth*3/4 {
		t.Fatalf("scorer must serve next: server=%d x=%v", g.ball.Server, g.ball.CenterX())
	}
}

func TestVolleyNetCornerBounce(t *testing.T) {
	a := newTestArena(t, TypeVolley)
	g := a.(*volley)
	net := g.net.Rect()
	g.ball.serve.Cancel()
	// Falling onto the net's top-left corner: bottom depth 1, right depth 1.5.
	g.ball.X = net.Left() - g.ball.W + 1.5
	g.ball.Y = net.Top() - g.ball.H + 1
	g.ball.DX, g.ball.DY = 1, 2
	a.Resolve(UpdateContext{Delta: testTick})
	if g.ball.DY >= 0 || g.ball.DX >= 0 {
		t.Fatalf("corner bounce should reflect both axes: dx=%v dy=%v", g.ball.DX, g.ball.DY)
	}
	if g.ball.Bottom() != net.Top() {
		t.Fatalf("ball bottom = %v, want net top %v", g.ball.Bottom(), net.Top())
	}
}

func TestVolleyPlayerCannotCrossNet(t *testing.T) {
	a := newTestArena(t, TypeVolley)
	g := a.(*volley)
	a.Control(0, input.Flags{Right: true})
	for i := 0; i < 200; i++ {
		step(t, a, i, testTick)
	}
	if g.players[0].Right() > g.net.Left() {
		t.Fatalf("player crossed the net: right=%v net=%v", g.players[0].Right(), g.net.Left())
	}
}

func TestVolleyShadowFollowsJump(t *testing.T) {
	a := newTestArena(t, TypeVolley)
	g := a.(*volley)
	shadows := func() int {
		n := 0
		for _, obj := range a.World().Objects {
			if obj.Kind() == "shadow" {
				n++
			}
		}
		return n
	}
	a.Control(1, input.Flags{Jump: true})
	step(t, a, 0, testTick)
	if shadows() != 1 {
		t.Fatal("jump did not spawn a shadow")
	}
	a.Control(1, input.Flags{})
	for i := 1; i < 200 && !g.players[1].Grounded(); i++ {
		step(t, a, i, testTick)
	}
	step(t, a, 201, testTick)
	if shadows() != 0 {
		t.Fatal("shadow outlived the jump")
	}
}

type fakeOverrider map[string]float64

func (f fakeOverrider) Override(game string, dst any) error {
	if v, ok := f[game]; ok {
		dst.(*physics.Profile).BallSpeed = v
	}
	return nil
}

func TestResolveProfile(t *testing.T) {
	for _, kind := range Types {
		if _, err := ResolveProfile(kind, protocol.Options{}, nil); err != nil {
			t.Fatalf("%s defaults invalid: %v", kind, err)
		}
	}

	p, err := ResolveProfile(TypePong, protocol.Options{Length: "short", Speed: "fast"}, fakeOverrider{"pong": 2})
	if err != nil {
		t.Fatal(err)
	}
	def, _ := DefaultProfile(TypePong)
	if p.BallSpeed != 2.5 {
		t.Fatalf("ball speed = %v, want override then preset", p.BallSpeed)
	}
	if p.MaxScore >= def.MaxScore {
		t.Fatalf("short match max score = %d", p.MaxScore)
	}

	if _, err := ResolveProfile(TypePong, protocol.Options{Size: "huge"}, nil); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("err = %v, want ErrInvalidOption", err)
	}
	if _, err := ResolveProfile("chess", protocol.Options{}, nil); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("err = %v, want ErrInvalidOption", err)
	}
	if _, err := ResolveProfile(TypePong, protocol.Options{}, fakeOverrider{"pong": -1}); !errors.Is(err, physics.ErrInvalidProfile) {
		t.Fatalf("err = %v, want ErrInvalidProfile", err)
	}
}

type overrideFunc func(p *physics.Profile)

func (f overrideFunc) Override(_ string, dst any) error {
	f(dst.(*physics.Profile))
	return nil
}

func TestResolveProfileRejectsFieldOverride(t *testing.T) {
	for _, kind := range Types {
		_, err := ResolveProfile(kind, protocol.Options{}, overrideFunc(func(p *physics.Profile) { p.FieldWidth = 200 }))
		if !errors.Is(err, physics.ErrInvalidProfile) {
			t.Fatalf("%s field_width override: err = %v, want ErrInvalidProfile", kind, err)
		}
		_, err = ResolveProfile(kind, protocol.Options{}, overrideFunc(func(p *physics.Profile) { p.FieldHeight = 60 }))
		if !errors.Is(err, physics.ErrInvalidProfile) {
			t.Fatalf("%s field_height override: err = %v, want ErrInvalidProfile", kind, err)
		}
	}
}
