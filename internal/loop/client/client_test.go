package client

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tomz197/arcade/internal/input"
	"github.com/tomz197/arcade/internal/loop/config"
	"github.com/tomz197/arcade/internal/network"
	"github.com/tomz197/arcade/internal/protocol"
)

type sent struct {
	t       string
	payload any
}

type fakeConn struct {
	user string
	out  chan network.Message
	sent []sent
}

func newFakeConn(user string) *fakeConn {
	return &fakeConn{user: user, out: make(chan network.Message, 16)}
}

func (f *fakeConn) User() string                     { return f.user }
func (f *fakeConn) Messages() <-chan network.Message { return f.out }
func (f *fakeConn) Close()                           {}

func (f *fakeConn) Send(t string, payload any) error {
	f.sent = append(f.sent, sent{t, payload})
	return nil
}

func (f *fakeConn) last(t *testing.T) sent {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("nothing sent")
	}
	return f.sent[len(f.sent)-1]
}

func newTestClient(conn Conn) *Client {
	return NewClient(conn, bufio.NewReader(strings.NewReader("")), &bytes.Buffer{}, ClientOptions{
		TermSizeFunc: func() (int, int, error) { return 100, 40, nil },
	})
}

func press(c *Client, s string) {
	for _, k := range decodeKeys([]byte(s)) {
		c.handleKey(k)
	}
}

func TestDecodeKeys(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []key
	}{
		{"arrows", "\x1b[A\x1b[D", []key{{code: keyUp}, {code: keyLeft}}},
		{"lone escape", "\x1b", []key{{code: keyEscape}}},
		{"escape then letter", "\x1bq", []key{{code: keyEscape}, {code: keyChar, ch: 'q'}}},
		{"enter and backspace", "\r\x7f\b", []key{{code: keyEnter}, {code: keyBackspace}, {code: keyBackspace}}},
		{"printable", "a1", []key{{code: keyChar, ch: 'a'}, {code: keyChar, ch: '1'}}},
		{"control bytes dropped", "\x01\x02", nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := decodeKeys([]byte(c.in))
			if len(got) != len(c.want) {
				t.Fatalf("decodeKeys(%q) = %v, want %v", c.in, got, c.want)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Fatalf("key %d = %v, want %v", i, got[i], c.want[i])
				}
			}
		})
	}
}

func TestMenuNavigation(t *testing.T) {
	c := newTestClient(newFakeConn("alice"))
	s := c.State()

	press(c, "w")
	if s.cursor != itemChallenge {
		t.Fatalf("cursor = %d, want wrap to challenge", s.cursor)
	}
	press(c, "s")
	if s.cursor != itemGame {
		t.Fatalf("cursor = %d, want game", s.cursor)
	}
	press(c, "d")
	if s.GameType() != "runner" {
		t.Fatalf("game = %s, want runner", s.GameType())
	}
	press(c, "\x1b[B\x1b[C")
	if got := s.Options().Length; got != "short" {
		t.Fatalf("length = %s, want short", got)
	}
	press(c, "q")
	if s.Running {
		t.Fatal("q on the menu should quit")
	}
}

func TestQueueJoinAndLeave(t *testing.T) {
	conn := newFakeConn("alice")
	c := newTestClient(conn)
	c.State().cursor = itemPlay

	press(c, "\r")
	if c.State().Screen != ScreenQueue {
		t.Fatalf("screen = %v, want queue", c.State().Screen)
	}
	req, ok := conn.last(t).payload.(protocol.QueueRequest)
	if !ok || req.Game != "pong" || req.Options.Length != "normal" {
		t.Fatalf("sent %+v", conn.last(t))
	}

	press(c, "\x1b")
	if c.State().Screen != ScreenMenu || conn.last(t).t != protocol.MsgQueueLeave {
		t.Fatalf("screen = %v, last = %+v", c.State().Screen, conn.last(t))
	}
}

func TestNameEntrySendsChallenge(t *testing.T) {
	conn := newFakeConn("alice")
	c := newTestClient(conn)
	c.State().cursor = itemChallenge

	press(c, "\r")
	if c.State().Screen != ScreenName {
		t.Fatalf("screen = %v, want name", c.State().Screen)
	}
	press(c, "bo b!\x7fb\r")
	req, ok := conn.last(t).payload.(protocol.ChallengeRequest)
	if !ok || req.To != "bob" {
		t.Fatalf("sent %+v, want challenge to bob", conn.last(t))
	}
	if c.State().Screen != ScreenWaiting {
		t.Fatalf("screen = %v, want waiting", c.State().Screen)
	}

	c.handleMessage(network.Message{T: protocol.MsgError, P: protocol.Error{Code: protocol.CodeNotFound, Message: "bob is offline"}})
	if c.State().Screen != ScreenMenu || !c.State().statusErr {
		t.Fatalf("screen = %v, statusErr = %v", c.State().Screen, c.State().statusErr)
	}
}

func TestIncomingChallengeToGameOver(t *testing.T) {
	conn := newFakeConn("bob")
	c := newTestClient(conn)
	s := c.State()
	players := [2]string{"alice", "bob"}

	c.handleEvent(protocol.Event{Type: protocol.EventChallengeIssued, Challenge: "c1", Game: "pong", From: "alice", Players: players})
	if s.Screen != ScreenPrompt {
		t.Fatalf("screen = %v, want prompt", s.Screen)
	}
	press(c, "y")
	if got := conn.last(t); got.t != protocol.MsgChallengeAccept || got.payload != (protocol.Ref{ID: "c1"}) {
		t.Fatalf("sent %+v", got)
	}

	c.handleEvent(protocol.Event{Type: protocol.EventGameGo, Session: "s1", Game: "pong", Players: players})
	if s.Screen != ScreenPlaying || s.arena == nil {
		t.Fatalf("screen = %v, arena = %v", s.Screen, s.arena)
	}
	if got := conn.last(t); got.t != protocol.MsgRoomJoin || got.payload != (protocol.Ref{ID: "s1"}) {
		t.Fatalf("sent %+v", got)
	}

	c.handleMessage(network.Message{T: protocol.MsgState, P: &protocol.Snapshot{Session: "other", GameOver: true}})
	if s.Screen != ScreenPlaying || s.last != nil {
		t.Fatal("snapshot of another session applied")
	}

	entities := []protocol.EntityState{{ID: 1, Kind: "paddle", X: 2, Y: 30, W: 2, H: 14}}
	c.handleMessage(network.Message{T: protocol.MsgState, P: &protocol.Snapshot{Session: "s1", Players: players, Entities: entities}})
	if n := len(s.arena.World().Objects); n != 1 {
		t.Fatalf("arena has %d objects after snapshot, want 1", n)
	}

	c.handleMessage(network.Message{T: protocol.MsgState, P: &protocol.Snapshot{
		Session: "s1", Players: players, GameOver: true, Winner: "bob",
		Scores: map[string]int{"alice": 3, "bob": 7},
	}})
	if s.Screen != ScreenOver || s.over.Winner != "bob" {
		t.Fatalf("screen = %v, over = %+v", s.Screen, s.over)
	}

	press(c, "\r")
	if s.Screen != ScreenMenu || s.arena != nil {
		t.Fatalf("screen = %v after enter on the result", s.Screen)
	}
}

func TestOwnChallengeWaitsAndWithdraws(t *testing.T) {
	conn := newFakeConn("alice")
	c := newTestClient(conn)
	s := c.State()

	c.handleEvent(protocol.Event{Type: protocol.EventChallengeIssued, Challenge: "c1", From: "alice", Players: [2]string{"alice", "bob"}})
	if s.Screen != ScreenWaiting {
		t.Fatalf("screen = %v, want waiting", s.Screen)
	}
	press(c, "\x1b")
	if got := conn.last(t); got.t != protocol.MsgChallengeCancel || s.Screen != ScreenMenu {
		t.Fatalf("sent %+v, screen %v", got, s.Screen)
	}

	// The cancellation echo must not disturb the menu.
	c.handleEvent(protocol.Event{Type: protocol.EventChallengeCancelled, Challenge: "c1"})
	if s.status != "" {
		t.Fatalf("stale event produced status %q", s.status)
	}
}

func TestMatchCancelled(t *testing.T) {
	found := protocol.Event{Type: protocol.EventMatchFound, Challenge: "m1", Game: "volley", Players: [2]string{"alice", "bob"}}

	t.Run("opponent declined", func(t *testing.T) {
		c := newTestClient(newFakeConn("alice"))
		c.handleEvent(found)
		press(c, "y")
		if c.State().Screen != ScreenWaiting {
			t.Fatalf("screen = %v, want waiting", c.State().Screen)
		}
		c.handleEvent(protocol.Event{Type: protocol.EventMatchCancelled, Challenge: "m1"})
		if c.State().Screen != ScreenQueue {
			t.Fatalf("screen = %v, want queue", c.State().Screen)
		}
	})

	t.Run("we declined", func(t *testing.T) {
		conn := newFakeConn("bob")
		c := newTestClient(conn)
		c.handleEvent(found)
		press(c, "n")
		if conn.last(t).t != protocol.MsgMatchDecline {
			t.Fatalf("sent %+v", conn.last(t))
		}
		c.handleEvent(protocol.Event{Type: protocol.EventMatchCancelled, Challenge: "m1"})
		if c.State().Screen != ScreenMenu {
			t.Fatalf("screen = %v, want menu", c.State().Screen)
		}
	})

	t.Run("pending session", func(t *testing.T) {
		c := newTestClient(newFakeConn("alice"))
		c.handleEvent(protocol.Event{Type: protocol.EventGameGo, Session: "s1", Game: "volley", Players: found.Players})
		c.handleEvent(protocol.Event{Type: protocol.EventMatchCancelled, Session: "s1"})
		if c.State().Screen != ScreenMenu {
			t.Fatalf("screen = %v, want menu", c.State().Screen)
		}
	})
}

func TestSendControlsOnChangeAndResend(t *testing.T) {
	conn := newFakeConn("alice")
	c := newTestClient(conn)
	s := c.State()
	s.Screen = ScreenPlaying
	s.session = "s1"
	s.Input = input.Input{Up: true}

	c.sendControls()
	c.sendControls()
	if len(conn.sent) != 1 {
		t.Fatalf("sent %d inputs, want 1", len(conn.sent))
	}
	in := conn.last(t).payload.(protocol.InputPayload)
	if in.Session != "s1" || !in.Flags.Up {
		t.Fatalf("input = %+v", in)
	}

	s.sentAt = time.Now().Add(-2 * config.InputResend)
	c.sendControls()
	s.Input = input.Input{Down: true}
	c.sendControls()
	if len(conn.sent) != 3 {
		t.Fatalf("sent %d inputs, want 3", len(conn.sent))
	}
}

func TestShutdownCountdown(t *testing.T) {
	c := newTestClient(newFakeConn("alice"))
	c.handleEvent(protocol.Event{Type: protocol.EventServerShutdown})
	s := c.State()
	if s.Screen != ScreenShutdown {
		t.Fatalf("screen = %v", s.Screen)
	}
	s.delta = time.Duration(config.ShutdownDisplaySeconds+1) * time.Second
	c.update()
	if s.Running {
		t.Fatal("client still running after the shutdown countdown")
	}
}

func TestDrawFrameRendersEveryScreen(t *testing.T) {
	var out bytes.Buffer
	c := NewClient(newFakeConn("alice"), bufio.NewReader(strings.NewReader("")), &out, ClientOptions{
		TermSizeFunc: func() (int, int, error) { return 100, 40, nil },
	})
	c.handleEvent(protocol.Event{Type: protocol.EventGameGo, Session: "s1", Game: "runner", Players: [2]string{"alice", "bob"}})
	for _, screen := range []Screen{ScreenMenu, ScreenName, ScreenQueue, ScreenWaiting, ScreenPrompt, ScreenPlaying, ScreenOver, ScreenShutdown} {
		c.State().Screen = screen
		out.Reset()
		if err := c.drawFrame(); err != nil {
			t.Fatalf("%v: %v", screen, err)
		}
		if out.Len() == 0 {
			t.Fatalf("%v: nothing drawn", screen)
		}
	}
}

func TestDrawArenaDrawsHazardTether(t *testing.T) {
	var out bytes.Buffer
	// 120x40 cells map the field one unit per pixel.
	c := NewClient(newFakeConn("alice"), bufio.NewReader(strings.NewReader("")), &out, ClientOptions{
		TermSizeFunc: func() (int, int, error) { return 120, 40, nil },
	})
	c.handleEvent(protocol.Event{Type: protocol.EventGameGo, Session: "s1", Game: "runner", Players: [2]string{"alice", "bob"}})
	if err := c.drawFrame(); err != nil {
		t.Fatal(err)
	}

	// The hazard hangs straight down from (60, 0) with its head at y=30, so
	// column 61 is solid from the pivot down to the head.
	frame := out.String()
	for row := 1; row <= 15; row++ {
		if cell := fmt.Sprintf("\033[%d;61H█", row); !strings.Contains(frame, cell) {
			t.Fatalf("tether cell at row %d not drawn", row)
		}
	}
}

func TestHotSeatPlaysAGame(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHotSeat(ctx, nil, nil)
	defer h.Close()

	next := func(want string) network.Message {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case m := <-h.Messages():
				if m.T == want {
					return m
				}
			case <-deadline:
				t.Fatalf("no %s message", want)
			}
		}
	}

	if err := h.Send(protocol.MsgChallenge, protocol.ChallengeRequest{To: "bob"}); err == nil {
		t.Fatal("challenge accepted in hot seat mode")
	}
	if err := h.Send(protocol.MsgQueueJoin, protocol.QueueRequest{Game: "pong"}); err != nil {
		t.Fatal(err)
	}
	ev := next(protocol.MsgEvent).P.(protocol.Event)
	if ev.Type != protocol.EventGameGo || ev.Players != [2]string{"P1", "P2"} {
		t.Fatalf("event = %+v", ev)
	}
	if err := h.Send(protocol.MsgRoomJoin, protocol.Ref{ID: ev.Session}); err != nil {
		t.Fatal(err)
	}
	h.Control(0, input.Flags{Down: true})
	snap := next(protocol.MsgState).P.(*protocol.Snapshot)
	if snap.Session != ev.Session {
		t.Fatalf("snapshot of %s, want %s", snap.Session, ev.Session)
	}

	if err := h.Send(protocol.MsgRoomLeave, protocol.Ref{ID: ev.Session}); err != nil {
		t.Fatal(err)
	}
	for {
		m := next(protocol.MsgEvent)
		if over := m.P.(protocol.Event); over.Type == protocol.EventGameOver {
			if over.Winner != "" {
				t.Fatalf("leaving a hot seat game should abort it, winner %q", over.Winner)
			}
			return
		}
	}
}
