package input

import (
	"bufio"
	"strings"
	"testing"
	"time"
)

func TestSeatsSplitKeyboard(t *testing.T) {
	s := &Stream{ch: make(chan byte)}

	seats := s.Seats([]byte("w d \x1b[Bj\r"))
	want := [2]Flags{
		{Up: true, Right: true, Jump: true},
		{Down: true, Left: true, Jump: true},
	}
	if seats != want {
		t.Fatalf("Seats = %+v, want %+v", seats, want)
	}
}

func TestSeatsIgnoreArrowsOnLeftSeat(t *testing.T) {
	s := &Stream{ch: make(chan byte)}
	// ESC [ D must not be read as the letter D of seat 0.
	seats := s.Seats([]byte("\x1b[D"))
	if seats[0] != (Flags{}) || seats[1] != (Flags{Left: true}) {
		t.Fatalf("Seats = %+v", seats)
	}
}

func TestSeatsReleaseAfterHold(t *testing.T) {
	s := &Stream{ch: make(chan byte)}
	s.Seats([]byte("a"))
	time.Sleep(2 * keyHoldDuration)
	if seats := s.Seats(nil); seats[0].Left {
		t.Fatal("left still held after hold duration")
	}
}

func TestReadInputMergesBindings(t *testing.T) {
	s := &Stream{ch: make(chan byte, 8)}
	for _, b := range []byte("i\x1b[C ") {
		s.ch <- b
	}
	in := ReadInput(s)
	if !in.Up || !in.Right || !in.Jump || in.Left || in.Down {
		t.Fatalf("ReadInput = %+v", in)
	}
	if string(in.Pressed) != "i\x1b[C " {
		t.Fatalf("Pressed = %q", in.Pressed)
	}

	ResetKeyInput(s)
	if in := ReadInput(s); in.Flags() != (Flags{}) {
		t.Fatalf("keys held after reset: %+v", in)
	}
}

func TestReadInputEndsOnEOF(t *testing.T) {
	s := StartStream(bufio.NewReader(strings.NewReader("q")))
	deadline := time.After(time.Second)
	for !s.Closed() {
		select {
		case <-deadline:
			t.Fatal("stream never reported closed")
		default:
		}
		ReadInput(s)
		time.Sleep(time.Millisecond)
	}
}

func TestInputFlags(t *testing.T) {
	in := Input{Up: true, Jump: true, Left: true}
	if got := in.Flags(); got != (Flags{Up: true, Left: true, Jump: true}) {
		t.Fatalf("Flags = %+v", got)
	}
}
