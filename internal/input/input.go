// Package input decodes terminal key presses into per-frame controls.
package input

import (
	"bufio"
	"time"
)

// keyHoldDuration is how long a key is considered "held" after its last press.
// Terminals only report repeats, so a held key is a stream of presses.
const keyHoldDuration = 30 * time.Millisecond

// Input represents the current frame's input state.
type Input struct {
	Up      bool
	Down    bool
	Left    bool
	Right   bool
	Jump    bool
	Pressed []byte // Raw bytes read this frame
}

// Stream delivers input bytes via a channel and tracks key state for combinations.
type Stream struct {
	ch     chan byte
	solo   seatState
	seats  [2]seatState
	closed bool // Reader hit EOF or an error
}

// Closed reports whether the underlying reader has ended.
func (s *Stream) Closed() bool {
	return s.closed
}

// StartStream spawns a goroutine that reads from r and sends bytes to the stream.
func StartStream(r *bufio.Reader) *Stream {
	s := &Stream{ch: make(chan byte, 128)}
	go func() {
		for {
			b, err := r.ReadByte()
			if err != nil {
				close(s.ch)
				return
			}
			s.ch <- b
		}
	}()
	return s
}

// ReadInput drains all available bytes from the stream (non-blocking) and
// returns the controls held by a single player. Every key binding counts:
// W A S D, I J K L and the arrows move, SPACE jumps.
func ReadInput(s *Stream) Input {
	now := time.Now()
	var buf []byte

	// Drain all available bytes
	for {
		select {
		case b, ok := <-s.ch:
			if !ok {
				s.closed = true
				goto parse
			}
			buf = append(buf, b)
		default:
			goto parse
		}
	}

parse:
	soloKeys.apply(&s.solo, buf, now)
	f := s.solo.flags(now)
	return Input{
		Up:      f.Up,
		Down:    f.Down,
		Left:    f.Left,
		Right:   f.Right,
		Jump:    f.Jump,
		Pressed: buf,
	}
}

// ResetKeyInput forgets all held keys, e.g. when switching screens so the key
// that confirmed a menu does not leak into gameplay.
func ResetKeyInput(s *Stream) {
	s.solo = seatState{}
	s.seats = [2]seatState{}
}
