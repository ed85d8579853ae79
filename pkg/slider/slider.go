// Package slider ties the smoothing engine, the mode machine and the frame
// encoder into the per scan and per key hooks of a keyboard runtime.
//
// A Controller is driven from a single thread of control: the runtime calls
// Scan once per matrix scan and ProcessKey for every key event, and never
// overlaps the two.
package slider

import (
	"errors"
	"fmt"

	"github.com/itohio/goslider/pkg/mode"
	"github.com/itohio/goslider/pkg/packet"
	"github.com/itohio/goslider/pkg/smooth"
)

// Errors returned by New for missing dependencies.
var (
	ErrNoConfig      = errors.New("smoothing config is required")
	ErrNoSource      = errors.New("sample source is required")
	ErrNoTransmitter = errors.New("transmitter is required")
)

// SampleSource returns the current raw analog reading.
type SampleSource func() uint16

// Inverted wraps a source whose sensor is wired high-to-low.
func Inverted(src SampleSource, resolution uint16) SampleSource {
	return func() uint16 {
		v := src()
		if v >= resolution {
			return 0
		}
		return resolution - v
	}
}

// Transmitter delivers one fixed size frame to the host.
type Transmitter interface {
	Transmit(frame []byte) error
}

// TransmitterFunc adapts a function to Transmitter.
type TransmitterFunc func(frame []byte) error

// Transmit calls f(frame).
func (f TransmitterFunc) Transmit(frame []byte) error { return f(frame) }

// Key identifies a key event source.
type Key uint16

// Controller is one slider with its mode button.
type Controller struct {
	axis    *smooth.Axis
	modes   mode.Machine
	source  SampleSource
	tx      Transmitter
	trigger Key
}

// New creates a controller. trigger is the key that cycles the mode.
func New(cfg *smooth.Config, source SampleSource, tx Transmitter, trigger Key) (*Controller, error) {
	if cfg == nil {
		return nil, fmt.Errorf("invalid controller: %w", ErrNoConfig)
	}
	if source == nil {
		return nil, fmt.Errorf("invalid controller: %w", ErrNoSource)
	}
	if tx == nil {
		return nil, fmt.Errorf("invalid controller: %w", ErrNoTransmitter)
	}

	return &Controller{
		axis:    smooth.New(cfg),
		source:  source,
		tx:      tx,
		trigger: trigger,
	}, nil
}

// Scan runs one scan cycle: sample, filter, and send the value if it changed.
// A pending change is consumed even when the transmitter fails.
func (c *Controller) Scan() error {
	c.axis.Update(c.source())
	if !c.axis.HasNewValue() {
		return nil
	}
	err := c.send()
	c.axis.Consume()
	return err
}

// CycleMode advances to the next mode and sends the current value under it.
func (c *Controller) CycleMode() error {
	c.modes.Advance()
	return c.send()
}

// ProcessKey handles a key event and reports whether the runtime should keep
// processing it. The trigger key is always swallowed; only its press edge
// cycles the mode.
func (c *Controller) ProcessKey(key Key, pressed bool) (bool, error) {
	if key != c.trigger {
		return true, nil
	}
	if !pressed {
		return false, nil
	}
	return false, c.CycleMode()
}

// Mode returns the selected mode.
func (c *Controller) Mode() mode.Mode {
	return c.modes.Current()
}

// Value returns the last filtered value on the 16-bit scale.
func (c *Controller) Value() uint16 {
	return c.axis.Value()
}

// Axis exposes the underlying smoothing engine.
func (c *Controller) Axis() *smooth.Axis {
	return c.axis
}

func (c *Controller) send() error {
	frame := packet.Encode(c.modes.Current(), c.axis.Value())
	if err := c.tx.Transmit(frame[:]); err != nil {
		return fmt.Errorf("failed to transmit %s frame: %w", c.modes.Current(), err)
	}
	return nil
}
