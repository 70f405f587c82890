package server

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tomz197/arcade/internal/input"
	"github.com/tomz197/arcade/internal/loop/config"
	"github.com/tomz197/arcade/internal/object"
	"github.com/tomz197/arcade/internal/protocol"
)

// Game is the authoritative simulation of one session. It owns its arena and
// runs on its own goroutine; inputs and commands reach it over channels and
// are applied at the start of a tick.
type Game struct {
	cfg    Config
	arena  object.Arena
	out    Broadcaster
	onEnd  func(Result)
	logger *log.Logger
	rng    *rand.Rand

	inputs   chan seatInput
	commands chan command
	done     chan struct{}
	start    sync.Once

	status atomic.Int32
	last   atomic.Pointer[protocol.Snapshot]

	// Owned by the game goroutine.
	tick     int
	faults   int
	scores   [2]int
	winner   string
	ragequit bool
	aborted  bool
	result   Result
}

// NewGame builds the arena of cfg.Game from cfg.Profile. onEnd, if set, is
// called once from the game goroutine after the final snapshot.
func NewGame(cfg Config, out Broadcaster, onEnd func(Result)) (*Game, error) {
	if cfg.Players[0] == "" || cfg.Players[1] == "" || cfg.Players[0] == cfg.Players[1] {
		return nil, fmt.Errorf("session %s needs two distinct players", cfg.Session)
	}
	if cfg.TickTime <= 0 {
		cfg.TickTime = config.ServerTickTime
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	arena, err := object.NewArena(cfg.Game, cfg.Profile, rng)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = BroadcastFunc(func([]string, *protocol.Snapshot) {})
	}
	return &Game{
		cfg:      cfg,
		arena:    arena,
		out:      out,
		onEnd:    onEnd,
		logger:   cfg.Logger.With("session", cfg.Session, "game", cfg.Game),
		rng:      rng,
		inputs:   make(chan seatInput, config.InputBuffer),
		commands: make(chan command, 4),
		done:     make(chan struct{}),
	}, nil
}

// Start launches the tick loop. Cancelling ctx aborts the game.
func (g *Game) Start(ctx context.Context) {
	g.start.Do(func() {
		g.status.Store(int32(StatusRunning))
		g.logger.Info("game started", "players", g.cfg.Players)
		go g.run(ctx)
	})
}

// Status returns the lifecycle state.
func (g *Game) Status() Status { return Status(g.status.Load()) }

// Done is closed once the game has ended.
func (g *Game) Done() <-chan struct{} { return g.done }

// Result returns the outcome. Only meaningful after Done is closed.
func (g *Game) Result() Result {
	<-g.done
	return g.result
}

// Last returns the most recent snapshot, or nil before the first tick.
func (g *Game) Last() *protocol.Snapshot { return g.last.Load() }

// Seat returns the seat of user, or -1.
func (g *Game) Seat(user string) int {
	for i, p := range g.cfg.Players {
		if p == user {
			return i
		}
	}
	return -1
}

// SendInput records the latest controls of user. Inputs are dropped when the
// buffer is full or the game has ended.
func (g *Game) SendInput(user string, f input.Flags) error {
	seat := g.Seat(user)
	if seat < 0 {
		return ErrNotParticipant
	}
	if g.Status() == StatusEnded {
		return nil
	}
	select {
	case g.inputs <- seatInput{seat: seat, flags: f}:
	default:
		// Input channel full, drop input
	}
	return nil
}

// Forfeit ends a running game with the other player as winner.
func (g *Game) Forfeit(user string) error {
	seat := g.Seat(user)
	if seat < 0 {
		return ErrNotParticipant
	}
	g.send(command{kind: cmdForfeit, seat: seat})
	return nil
}

// Stop aborts the game without a winner and waits for it to end.
func (g *Game) Stop() {
	g.send(command{kind: cmdStop})
}

func (g *Game) send(c command) {
	ended := false
	g.start.Do(func() {
		// Never started: end it synchronously.
		g.status.Store(int32(StatusRunning))
		g.apply(c)
		ended = true
	})
	if ended {
		return
	}
	select {
	case g.commands <- c:
	case <-g.done:
		return
	}
	<-g.done
}

func (g *Game) run(ctx context.Context) {
	ticker := time.NewTicker(g.cfg.TickTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.aborted = true
			g.finish()
			return
		case c := <-g.commands:
			g.apply(c)
			return
		case <-ticker.C:
			if g.step() {
				return
			}
		}
	}
}

// apply ends the game for a forfeit or stop command.
func (g *Game) apply(c command) {
	switch c.kind {
	case cmdForfeit:
		g.winner = g.cfg.Players[1-c.seat]
		g.ragequit = true
		g.logger.Info("player forfeited", "user", g.cfg.Players[c.seat])
	case cmdStop:
		g.aborted = true
	}
	g.finish()
}

// step runs one tick: input, advance, resolve, terminal check, snapshot.
// Returns true once the game has ended.
func (g *Game) step() bool {
	// A forfeit that raced the ticker wins over the tick.
	select {
	case c := <-g.commands:
		g.apply(c)
		return true
	default:
	}

	g.collectInputs()
	g.tick++

	scored, fault := g.safeTick()
	if fault {
		g.faults++
	} else {
		g.faults = 0
	}
	for _, seat := range scored {
		g.scores[seat]++
	}

	if g.faults >= config.MaxTickFaults {
		g.logger.Error("too many faulted ticks, aborting", "faults", g.faults)
		g.aborted = true
		g.finish()
		return true
	}
	for _, seat := range scored {
		if g.scores[seat] >= g.cfg.Profile.MaxScore {
			g.winner = g.cfg.Players[seat]
			g.finish()
			return true
		}
	}

	snap := g.snapshot()
	snap.Fault = fault
	g.publish(snap)
	return false
}

// collectInputs applies the latest pending input of each seat.
func (g *Game) collectInputs() {
	for {
		select {
		case in := <-g.inputs:
			g.arena.Control(in.seat, in.flags)
		default:
			return
		}
	}
}

// safeTick advances and resolves the arena, recovering from panics.
func (g *Game) safeTick() (scored []int, fault bool) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("tick panicked", "tick", g.tick, "panic", r)
			scored, fault = nil, true
		}
	}()
	ctx := object.UpdateContext{Delta: g.cfg.TickTime, Tick: g.tick, Rand: g.rng}
	if err := g.arena.Advance(ctx); err != nil {
		g.logger.Error("advance failed", "tick", g.tick, "err", err)
		fault = true
	}
	scored = g.arena.Resolve(ctx)
	return scored, fault
}

// finish stops the simulation, emits the final snapshot and reports the result.
func (g *Game) finish() {
	g.status.Store(int32(StatusEnded))
	g.arena.World().CancelAll()

	snap := g.snapshot()
	snap.GameOver = true
	snap.Winner = g.winner
	snap.Ragequit = g.ragequit
	snap.Aborted = g.aborted
	g.publish(snap)

	g.result = Result{
		Session:  g.cfg.Session,
		Game:     g.cfg.Game,
		Players:  g.cfg.Players,
		Winner:   g.winner,
		Ragequit: g.ragequit,
		Aborted:  g.aborted,
		Scores:   snap.Scores,
		Ticks:    g.tick,
	}
	g.logger.Info("game over", "winner", g.winner, "ragequit", g.ragequit, "aborted", g.aborted, "ticks", g.tick)
	close(g.done)
	if g.onEnd != nil {
		g.onEnd(g.result)
	}
}

func (g *Game) snapshot() *protocol.Snapshot {
	return &protocol.Snapshot{
		Session:  g.cfg.Session,
		Game:     string(g.cfg.Game),
		Tick:     g.tick,
		Players:  g.cfg.Players,
		Entities: g.arena.World().States(),
		Scores: map[string]int{
			g.cfg.Players[0]: g.scores[0],
			g.cfg.Players[1]: g.scores[1],
		},
	}
}

func (g *Game) publish(snap *protocol.Snapshot) {
	g.last.Store(snap)
	g.out.Broadcast(g.cfg.Players[:], snap)
}
