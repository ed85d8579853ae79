// Package packet encodes and decodes the fixed size command frame the
// slider sends to the host.
//
// Frame layout, little-endian, always FrameSize bytes:
//
//	0     command
//	1     reserved, 0x00
//	2..3  value, uint16
//	4..31 zero padding
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/itohio/goslider/pkg/mode"
)

const (
	// FrameSize is the length of every frame on the wire.
	FrameSize = 32
	// HeaderSize is the number of meaningful bytes at the start of a frame.
	HeaderSize = 4
)

// Command identifies what the host should do with the value.
type Command byte

// Wire command codes, one per mode.
const (
	SetVolume     Command = 0x01
	SetBrightness Command = 0x02
	Shortcut1     Command = 0x10
	Shortcut2     Command = 0x11
	Shortcut3     Command = 0x12
	Shortcut4     Command = 0x13
)

// ErrShortFrame is returned by Decode for buffers under HeaderSize bytes.
var ErrShortFrame = errors.New("frame too short")

var commands = [mode.Count]Command{
	mode.Volume:     SetVolume,
	mode.Brightness: SetBrightness,
	mode.Shortcut1:  Shortcut1,
	mode.Shortcut2:  Shortcut2,
	mode.Shortcut3:  Shortcut3,
	mode.Shortcut4:  Shortcut4,
}

// CommandFor maps a mode to its command. Values outside the enumeration
// map to SetVolume.
func CommandFor(m mode.Mode) Command {
	if !m.Valid() {
		return SetVolume
	}
	return commands[m]
}

// Mode returns the mode a command was encoded from.
func (c Command) Mode() (mode.Mode, bool) {
	for m, cmd := range commands {
		if cmd == c {
			return mode.Mode(m), true
		}
	}
	return mode.Volume, false
}

// Known reports whether c is one of the defined commands.
func (c Command) Known() bool {
	_, ok := c.Mode()
	return ok
}

// String returns the mode name, or the hex code for unknown commands.
func (c Command) String() string {
	if m, ok := c.Mode(); ok {
		return m.String()
	}
	return fmt.Sprintf("command(0x%02x)", byte(c))
}

// Frame is one encoded command.
type Frame [FrameSize]byte

// Encode builds the frame for value under mode m.
func Encode(m mode.Mode, value uint16) Frame {
	var f Frame
	f[0] = byte(CommandFor(m))
	binary.LittleEndian.PutUint16(f[2:4], value)
	return f
}

// Message is a decoded frame.
type Message struct {
	Command Command
	Value   uint16
	Length  int
}

// Decode parses a frame received from the device. Frames only need to carry
// the header; anything after it is ignored.
func Decode(buf []byte) (Message, error) {
	if len(buf) < HeaderSize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(buf))
	}
	return Message{
		Command: Command(buf[0]),
		Value:   binary.LittleEndian.Uint16(buf[2:4]),
		Length:  len(buf),
	}, nil
}

// Normalized returns the value scaled to [0, 1].
func (m Message) Normalized() float32 {
	return float32(m.Value) / math.MaxUint16
}

// Percent returns the value as a rounded percentage.
func (m Message) Percent() int {
	return int(math.Round(float64(m.Normalized()) * 100))
}
