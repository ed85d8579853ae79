// Package mode holds the slider output mode and its cyclic state machine.
package mode

import "fmt"

// Mode selects what the slider controls on the host.
type Mode uint8

// Declaration order is the cycle order.
const (
	Volume Mode = iota
	Brightness
	Shortcut1
	Shortcut2
	Shortcut3
	Shortcut4

	// Count is the number of modes.
	Count = int(Shortcut4) + 1
)

var names = [Count]string{
	Volume:     "volume",
	Brightness: "brightness",
	Shortcut1:  "shortcut1",
	Shortcut2:  "shortcut2",
	Shortcut3:  "shortcut3",
	Shortcut4:  "shortcut4",
}

// String returns the mode name used in logs, templates and HUD state.
func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
	return names[m]
}

// Valid reports whether m is one of the declared modes.
func (m Mode) Valid() bool {
	return int(m) < Count
}

// IsShortcut reports whether m is one of the shortcut modes.
func (m Mode) IsShortcut() bool {
	return m >= Shortcut1 && m <= Shortcut4
}

// Slot returns the 0-based shortcut slot, or -1 for non shortcut modes.
func (m Mode) Slot() int {
	if !m.IsShortcut() {
		return -1
	}
	return int(m - Shortcut1)
}

// Parse returns the mode with the given name.
func Parse(name string) (Mode, error) {
	for i, n := range names {
		if n == name {
			return Mode(i), nil
		}
	}
	return Volume, fmt.Errorf("unknown mode %q", name)
}

// Machine cycles through the modes. The zero value starts at Volume.
type Machine struct {
	current Mode
}

// Current returns the selected mode.
func (m *Machine) Current() Mode {
	return m.current
}

// Advance moves to the next mode, wrapping after the last one, and returns it.
func (m *Machine) Advance() Mode {
	m.current = Mode((int(m.current) + 1) % Count)
	return m.current
}

// Reset selects the initial mode.
func (m *Machine) Reset() {
	m.current = Volume
}
