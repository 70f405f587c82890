package client

// key is one edge-triggered key press, used for menu navigation where held
// keys must not repeat every frame.
type key struct {
	code keyCode
	ch   byte // printable byte for keyChar
}

type keyCode int

const (
	keyChar keyCode = iota
	keyUp
	keyDown
	keyLeft
	keyRight
	keyEnter
	keyEscape
	keyBackspace
)

// decodeKeys turns the raw bytes of one frame into key presses.
func decodeKeys(pressed []byte) []key {
	var keys []key
	for i := 0; i < len(pressed); i++ {
		b := pressed[i]
		if b == '\x1b' && i+2 < len(pressed) && pressed[i+1] == '[' {
			code := keyEscape
			switch pressed[i+2] {
			case 'A':
				code = keyUp
			case 'B':
				code = keyDown
			case 'C':
				code = keyRight
			case 'D':
				code = keyLeft
			}
			if code != keyEscape {
				keys = append(keys, key{code: code})
				i += 2
				continue
			}
		}
		switch {
		case b == '\x1b':
			keys = append(keys, key{code: keyEscape})
		case b == '\r' || b == '\n':
			keys = append(keys, key{code: keyEnter})
		case b == '\b' || b == '\x7f':
			keys = append(keys, key{code: keyBackspace})
		case b >= ' ' && b < '\x7f':
			keys = append(keys, key{code: keyChar, ch: b})
		}
	}
	return keys
}

// nav maps letter keys onto arrows for menus.
func (k key) nav() keyCode {
	if k.code != keyChar {
		return k.code
	}
	switch k.ch {
	case 'w', 'W', 'k', 'K':
		return keyUp
	case 's', 'S', 'j', 'J':
		return keyDown
	case 'a', 'A', 'h', 'H':
		return keyLeft
	case 'd', 'D', 'l', 'L':
		return keyRight
	case ' ':
		return keyEnter
	}
	return keyChar
}

// nameByte reports whether b may appear in a user name typed in the client.
func nameByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_' || b == '-' || b == '.'
}
