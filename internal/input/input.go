// Package input implements Game Boy joypad input handling.
//
// Front ends post Events; the MMU queues them and applies them to the Joypad
// when the program reads the P1/JOYP register.
package input

import (
	"fmt"
	"strings"
)

// Key is one of the eight joypad buttons.
type Key uint8

// Joypad keys. Directions map to bits 0-3 of P1 when P14 is low, actions to
// bits 0-3 when P15 is low.
const (
	KeyRight Key = iota
	KeyLeft
	KeyUp
	KeyDown
	KeyA
	KeyB
	KeySelect
	KeyStart
)

// NumKeys is the number of joypad keys.
const NumKeys = 8

var keyNames = [NumKeys]string{"Right", "Left", "Up", "Down", "A", "B", "Select", "Start"}

func (k Key) String() string {
	if k < NumKeys {
		return keyNames[k]
	}
	return fmt.Sprintf("Key(%d)", uint8(k))
}

// ParseKey returns the key with the given name (case-insensitive).
func ParseKey(name string) (Key, error) {
	for i, n := range keyNames {
		if strings.EqualFold(n, name) {
			return Key(i), nil //nolint:gosec // G115: bounded by NumKeys
		}
	}
	return 0, fmt.Errorf("unknown joypad key %q", name)
}

// Event is a key transition posted by a front end.
type Event struct {
	Key     Key
	Pressed bool
}

func (e Event) String() string {
	if e.Pressed {
		return e.Key.String() + " down"
	}
	return e.Key.String() + " up"
}

// Joypad represents the Game Boy joypad state and P1/JOYP register.
type Joypad struct {
	// Selection bits (written by CPU)
	selectAction    bool // P15 (0=select action buttons)
	selectDirection bool // P14 (0=select direction buttons)

	// Button states (true = pressed)
	pressed [NumKeys]bool
}

// New creates a new Joypad instance.
func New() *Joypad {
	return &Joypad{
		selectAction:    true, // Not selected (1)
		selectDirection: true, // Not selected (1)
	}
}

// Read returns the P1/JOYP register value (0xFF00).
func (j *Joypad) Read() uint8 {
	result := uint8(0xC0) // Upper 2 bits always 1

	// Set selection bits
	if j.selectAction {
		result |= 0x20 // P15
	}
	if j.selectDirection {
		result |= 0x10 // P14
	}

	// Initialize button bits as all released (1)
	buttonBits := uint8(0x0F)

	for k := Key(0); k < NumKeys; k++ {
		if !j.pressed[k] {
			continue
		}
		bit := uint8(1) << (k & 0x03)
		if k >= KeyA && !j.selectAction {
			buttonBits &^= bit
		}
		if k < KeyA && !j.selectDirection {
			buttonBits &^= bit
		}
	}

	return result | buttonBits
}

// Write updates the P1/JOYP register (only bits 4-5 are writable).
func (j *Joypad) Write(value uint8) {
	j.selectAction = (value & 0x20) != 0
	j.selectDirection = (value & 0x10) != 0
}

// Press marks a key as pressed. Opposite directions cannot be held
// together; pressing one while the other is down is ignored.
func (j *Joypad) Press(k Key) {
	if k >= NumKeys {
		return
	}
	if opp, ok := opposite(k); ok && j.pressed[opp] {
		return
	}
	j.pressed[k] = true
}

// Release marks a key as released.
func (j *Joypad) Release(k Key) {
	if k < NumKeys {
		j.pressed[k] = false
	}
}

// Pressed reports whether k is held.
func (j *Joypad) Pressed(k Key) bool {
	return k < NumKeys && j.pressed[k]
}

// Apply applies an event and reports whether it should raise the joypad
// interrupt: only a key going from released to pressed does.
func (j *Joypad) Apply(e Event) bool {
	if !e.Pressed {
		j.Release(e.Key)
		return false
	}
	was := j.Pressed(e.Key)
	j.Press(e.Key)
	return !was && j.Pressed(e.Key)
}

func opposite(k Key) (Key, bool) {
	switch k {
	case KeyRight:
		return KeyLeft, true
	case KeyLeft:
		return KeyRight, true
	case KeyUp:
		return KeyDown, true
	case KeyDown:
		return KeyUp, true
	}
	return 0, false
}
