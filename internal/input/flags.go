package input

import "time"

// Flags is the control vector of one seat for one tick. It is what clients
// send over the wire and what the simulation consumes.
type Flags struct {
	Up    bool `json:"up,omitempty" msgpack:"up,omitempty"`
	Down  bool `json:"down,omitempty" msgpack:"down,omitempty"`
	Left  bool `json:"left,omitempty" msgpack:"left,omitempty"`
	Right bool `json:"right,omitempty" msgpack:"right,omitempty"`
	Jump  bool `json:"jump,omitempty" msgpack:"jump,omitempty"`
}

// Flags returns the control vector of the frame.
func (in Input) Flags() Flags {
	return Flags{Up: in.Up, Down: in.Down, Left: in.Left, Right: in.Right, Jump: in.Jump}
}

type control int

const (
	ctlUp control = iota
	ctlDown
	ctlLeft
	ctlRight
	ctlJump
	numControls
)

// seatState holds the last press of each control of one player.
type seatState [numControls]time.Time

func (st *seatState) flags(now time.Time) Flags {
	held := func(c control) bool { return now.Sub(st[c]) < keyHoldDuration }
	return Flags{
		Up:    held(ctlUp),
		Down:  held(ctlDown),
		Left:  held(ctlLeft),
		Right: held(ctlRight),
		Jump:  held(ctlJump),
	}
}

// keyMap binds bytes, and optionally the arrow keys, to controls.
type keyMap struct {
	keys   map[byte]control
	arrows bool
}

var (
	wasd = map[byte]control{
		'w': ctlUp, 'W': ctlUp, 's': ctlDown, 'S': ctlDown,
		'a': ctlLeft, 'A': ctlLeft, 'd': ctlRight, 'D': ctlRight,
		' ': ctlJump,
	}
	ijkl = map[byte]control{
		'i': ctlUp, 'I': ctlUp, 'k': ctlDown, 'K': ctlDown,
		'j': ctlLeft, 'J': ctlLeft, 'l': ctlRight, 'L': ctlRight,
		'\r': ctlJump, '\n': ctlJump,
	}

	soloKeys  = keyMap{keys: merge(wasd, ijkl), arrows: true}
	seatKeys  = [2]keyMap{{keys: wasd}, {keys: ijkl, arrows: true}}
	arrowKeys = map[byte]control{'A': ctlUp, 'B': ctlDown, 'C': ctlRight, 'D': ctlLeft}
)

func merge(maps ...map[byte]control) map[byte]control {
	out := make(map[byte]control)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// apply records the presses in pressed. Escape sequences (ESC [ <code>) are
// consumed whole so their bytes never count as letters.
func (m keyMap) apply(st *seatState, pressed []byte, now time.Time) {
	for i := 0; i < len(pressed); i++ {
		b := pressed[i]

		if b == '\x1b' && i+2 < len(pressed) && pressed[i+1] == '[' {
			if c, ok := arrowKeys[pressed[i+2]]; ok && m.arrows {
				st[c] = now
			}
			i += 2
			continue
		}

		if c, ok := m.keys[b]; ok {
			st[c] = now
		}
	}
}

// Seats splits the bytes pressed this frame between two players sharing one
// keyboard: seat 0 uses W A S D and SPACE, seat 1 uses the arrow keys (or
// I J K L) and ENTER. pressed is Input.Pressed from the same frame.
func (s *Stream) Seats(pressed []byte) [2]Flags {
	now := time.Now()
	var out [2]Flags
	for i, m := range seatKeys {
		m.apply(&s.seats[i], pressed, now)
		out[i] = s.seats[i].flags(now)
	}
	return out
}
