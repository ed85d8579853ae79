// Package smooth implements an exponential moving average whose weight is
// derived from the real elapsed time between updates, so the settling time
// does not depend on how often the caller polls.
package smooth

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

const (
	// DefaultTickRate matches a free running millisecond timer.
	DefaultTickRate = 1000
	// DefaultThreshold is the smallest change, in output units, that is reported.
	DefaultThreshold = 1
	// OutputMax is the top of the 16-bit output scale.
	OutputMax = 0xFFFF

	// Below this dt/tau ratio 1-exp(-x) loses all precision in float32.
	seriesLimit = 1e-4
	// Gap, in raw units, the filter closes in one step once float32 stalls.
	snapGap = 0.5
)

// Errors returned by NewConfig for invalid parameters.
var (
	// ErrResolution rejects a zero raw range.
	ErrResolution = errors.New("resolution must be positive")
	// ErrResponseTime rejects a zero, negative, NaN or infinite time constant.
	ErrResponseTime = errors.New("response time must be a positive, finite number of seconds")
	// ErrTimeSource rejects a nil tick counter.
	ErrTimeSource = errors.New("time source is required")
	// ErrTickRate rejects a zero tick rate.
	ErrTickRate = errors.New("tick rate must be positive")
	// ErrThreshold rejects a zero report threshold.
	ErrThreshold = errors.New("threshold must be at least 1")
)

// TimeSource returns a monotonically increasing 32-bit tick count.
type TimeSource func() uint32

// Config holds the immutable parameters of an Axis.
type Config struct {
	resolution   uint16
	responseTime float32
	now          TimeSource
	tickRate     uint32
	threshold    uint16

	gain float32 // output units per raw unit
}

// Option adjusts an optional Config parameter.
type Option func(*Config)

// WithTickRate sets the time source rate in ticks per second.
func WithTickRate(ticksPerSecond uint32) Option {
	return func(c *Config) {
		c.tickRate = ticksPerSecond
	}
}

// WithThreshold sets the minimum reported change in output units.
func WithThreshold(units uint16) Option {
	return func(c *Config) {
		c.threshold = units
	}
}

// NewConfig validates and stores the engine parameters. resolution is the
// largest raw value (1023 for a 10-bit ADC) and responseTime the settling
// time constant in seconds.
func NewConfig(resolution uint16, responseTime float32, now TimeSource, opts ...Option) (*Config, error) {
	if resolution == 0 {
		return nil, fmt.Errorf("invalid config: %w", ErrResolution)
	}
	if !(responseTime > 0) || math32.IsInf(responseTime, 1) {
		return nil, fmt.Errorf("invalid config: %w (got %v)", ErrResponseTime, responseTime)
	}
	if now == nil {
		return nil, fmt.Errorf("invalid config: %w", ErrTimeSource)
	}

	c := &Config{
		resolution:   resolution,
		responseTime: responseTime,
		now:          now,
		tickRate:     DefaultTickRate,
		threshold:    DefaultThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.tickRate == 0 {
		return nil, fmt.Errorf("invalid config: %w", ErrTickRate)
	}
	if c.threshold == 0 {
		return nil, fmt.Errorf("invalid config: %w", ErrThreshold)
	}

	c.gain = OutputMax / float32(resolution)
	return c, nil
}

// Resolution returns the largest raw input value.
func (c *Config) Resolution() uint16 { return c.resolution }

// ResponseTime returns the filter time constant in seconds.
func (c *Config) ResponseTime() float32 { return c.responseTime }

// TickRate returns the time source ticks per second.
func (c *Config) TickRate() uint32 { return c.tickRate }

// Threshold returns the minimum reported change in output units.
func (c *Config) Threshold() uint16 { return c.threshold }

// Alpha returns the weight given to a new sample after dt seconds for a
// filter with time constant tau. It is in (0, 1] for any dt > 0.
func Alpha(dt, tau float32) float32 {
	if !(dt > 0) {
		return 0
	}
	x := dt / tau
	if x < seriesLimit {
		return x - x*x/2
	}
	return 1 - math32.Exp(-x)
}

// Axis is a single smoothed input. It is not safe for concurrent use.
type Axis struct {
	cfg *Config

	lastTick uint32
	value    float32 // raw scale, always within [0, resolution]
	reported uint16  // output value at the last raised change
	changed  bool
}

// New binds an axis to cfg with a filtered value of 0.
func New(cfg *Config) *Axis {
	return &Axis{
		cfg:      cfg,
		lastTick: cfg.now(),
	}
}

// Seed jumps the filter to raw without reporting a change. Use it with the
// first sample to skip the initial ramp up from 0.
func (a *Axis) Seed(raw uint16) {
	a.value = a.clamp(float32(raw))
	a.reported = a.Value()
	a.changed = false
}

// Update reads the time source and filters raw over the elapsed time.
// Duplicate readings and readings that go backwards are ignored.
func (a *Axis) Update(raw uint16) {
	now := a.cfg.now()
	elapsed := int32(now - a.lastTick)
	a.lastTick = now
	if elapsed <= 0 {
		return
	}
	a.Step(raw, float32(elapsed)/float32(a.cfg.tickRate))
}

// Step filters raw over an explicit dt in seconds. dt <= 0 is a no-op.
func (a *Axis) Step(raw uint16, dt float32) {
	if !(dt > 0) {
		return
	}

	target := a.clamp(float32(raw))
	next := a.value + Alpha(dt, a.cfg.responseTime)*(target-a.value)
	if next == a.value && math32.Abs(target-next) < snapGap {
		// the step fell below one float32 ulp
		next = target
	}
	a.value = a.clamp(next)

	out := a.Value()
	if absDiff(out, a.reported) >= a.cfg.threshold {
		a.reported = out
		a.changed = true
	}
}

// HasNewValue reports whether a change is pending. It does not clear it.
func (a *Axis) HasNewValue() bool {
	return a.changed
}

// Consume clears a pending change.
func (a *Axis) Consume() {
	a.changed = false
}

// Value returns the filtered value rescaled to [0, OutputMax].
func (a *Axis) Value() uint16 {
	v := math32.Floor(a.value*a.cfg.gain + 0.5)
	if v >= OutputMax {
		return OutputMax
	}
	if v <= 0 {
		return 0
	}
	return uint16(v)
}

// Raw returns the filtered value on the raw input scale.
func (a *Axis) Raw() float32 {
	return a.value
}

// Config returns the axis configuration.
func (a *Axis) Config() *Config {
	return a.cfg
}

func (a *Axis) clamp(v float32) float32 {
	return math32.Max(0, math32.Min(v, float32(a.cfg.resolution)))
}

func absDiff(a, b uint16) uint16 {
	if a > b {
		return a - b
	}
	return b - a
}
