package link

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/itohio/goslider/pkg/config"
	"github.com/itohio/goslider/pkg/slider"
	"github.com/itohio/goslider/pkg/smooth"
)

// Emulator runs the keyboard side on the host: a slider controller fed by a
// simulated sensor that sweeps back and forth with noise.
type Emulator struct {
	cfg    *config.Config
	ctrl   *slider.Controller
	logger *slog.Logger

	startTime time.Time
}

// NewEmulator builds a controller from cfg that transmits into tx.
func NewEmulator(cfg *config.Config, tx slider.Transmitter, logger *slog.Logger) (*Emulator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Emulator{
		cfg:       cfg,
		logger:    logger,
		startTime: time.Now(),
	}

	smoothCfg, err := cfg.SmoothConfig(e.ticks)
	if err != nil {
		return nil, fmt.Errorf("failed to configure emulated slider: %w", err)
	}

	source := slider.SampleSource(e.sensor)
	if cfg.Slider.Invert {
		source = slider.Inverted(source, cfg.Slider.Resolution)
	}

	ctrl, err := slider.New(smoothCfg, source, tx, slider.Key(cfg.Slider.TriggerKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create emulated slider: %w", err)
	}
	e.ctrl = ctrl

	return e, nil
}

// Controller returns the emulated controller. Only touch it from the Run
// goroutine while Run is active.
func (e *Emulator) Controller() *slider.Controller {
	return e.ctrl
}

// Run scans every sample period and presses the mode button on presses and
// every mode period until ctx is canceled. Scans and key events never overlap.
func (e *Emulator) Run(ctx context.Context, presses <-chan struct{}) {
	rate := e.cfg.Mock.SampleRate
	if rate <= 0 {
		rate = config.Default().Mock.SampleRate
	}
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	var modeTick <-chan time.Time
	if e.cfg.Mock.ModePeriod > 0 {
		modeTicker := time.NewTicker(e.cfg.Mock.ModePeriod)
		defer modeTicker.Stop()
		modeTick = modeTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.ctrl.Scan(); err != nil {
				e.logger.Debug("value frame dropped", "error", err)
			}
		case <-modeTick:
			e.press()
		case <-presses:
			e.press()
		}
	}
}

func (e *Emulator) press() {
	trigger := slider.Key(e.cfg.Slider.TriggerKey)
	if _, err := e.ctrl.ProcessKey(trigger, true); err != nil {
		e.logger.Debug("mode frame dropped", "error", err)
	}
	_, _ = e.ctrl.ProcessKey(trigger, false)
	e.logger.Debug("mode changed", "mode", e.ctrl.Mode())
}

// ticks is a tick counter at the configured tick rate derived from the wall
// clock.
func (e *Emulator) ticks() uint32 {
	rate := e.cfg.Slider.TickRate
	if rate == 0 {
		rate = smooth.DefaultTickRate
	}
	period := time.Second / time.Duration(rate)
	if period <= 0 {
		period = 1
	}
	return uint32(time.Since(e.startTime) / period)
}

// sensor returns the simulated ADC reading, as wired.
func (e *Emulator) sensor() uint16 {
	res := float64(e.cfg.Slider.Resolution)
	pos := sweep(time.Since(e.startTime), e.cfg.Mock.SweepPeriod, res)
	pos += (rand.Float64()*2 - 1) * e.cfg.Mock.NoiseLevel
	pos = math.Max(0, math.Min(pos, res))

	if e.cfg.Slider.Invert {
		pos = res - pos
	}
	return uint16(math.Round(pos))
}

// sweep moves a slider from 0 to res and back once per period.
func sweep(elapsed, period time.Duration, res float64) float64 {
	if period <= 0 {
		return 0
	}
	phase := 2 * math.Pi * float64(elapsed%period) / float64(period)
	return res / 2 * (1 - math.Cos(phase))
}
