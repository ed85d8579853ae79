package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itohio/goslider/pkg/smooth"
)

// Config represents the application configuration.
type Config struct {
	Slider  SliderConfig  `yaml:"slider"`
	Serial  SerialConfig  `yaml:"serial"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	HUD     HUDConfig     `yaml:"hud"`
	Mock    MockConfig    `yaml:"mock"`
	Logging LoggingConfig `yaml:"logging"`
}

// SliderConfig contains the signal conditioning parameters shared by the
// firmware and the simulated device.
type SliderConfig struct {
	Resolution   uint16  `yaml:"resolution"`    // Largest raw ADC value (1023 for 10-bit)
	ResponseTime float32 `yaml:"response_time"` // Settling time constant in seconds
	TickRate     uint32  `yaml:"tick_rate"`     // Time source ticks per second
	Threshold    uint16  `yaml:"threshold"`     // Minimum reported change in 16-bit units
	Invert       bool    `yaml:"invert"`        // Sensor wired high-to-low
	TriggerKey   uint16  `yaml:"trigger_key"`   // Key code of the mode button
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// BridgeConfig contains host side action configuration.
type BridgeConfig struct {
	// Debounce is the minimum interval between two runs of the same shortcut.
	Debounce time.Duration     `yaml:"debounce"`
	Volume   VolumeCurveConfig `yaml:"volume"`
	Actions  ActionsConfig     `yaml:"actions"`
}

// VolumeCurveConfig shapes slider positions into output volume.
type VolumeCurveConfig struct {
	Gamma         float32 `yaml:"gamma"`          // Exponent applied to the slider position
	MuteThreshold float32 `yaml:"mute_threshold"` // Positions at or below this mute the output
	MinDelta      float32 `yaml:"min_delta"`      // Smallest shaped change worth applying
}

// ActionsConfig holds command templates run for each function. Templates may
// reference {value}, {percent}, {normalized} and {slot}. The volume template
// also gets {shaped}, {shaped_percent} and {muted}. Empty disables.
type ActionsConfig struct {
	Volume     []string   `yaml:"volume"`
	Brightness []string   `yaml:"brightness"`
	Shortcuts  [][]string `yaml:"shortcuts"`
}

// HUDConfig contains the HUD feed configuration.
type HUDConfig struct {
	Listen       string        `yaml:"listen"` // host:port for the WebSocket feed, empty disables
	Path         string        `yaml:"path"`
	ShowOnEvents bool          `yaml:"show_on_events"` // Pop up the desktop HUD when the slider moves
	HideAfter    time.Duration `yaml:"hide_after"`     // Desktop HUD hide delay after the last event
}

// MockConfig contains simulated device configuration.
type MockConfig struct {
	SampleRate  time.Duration `yaml:"sample_rate"`  // Scan period
	SweepPeriod time.Duration `yaml:"sweep_period"` // Period of the simulated slider sweep
	NoiseLevel  float64       `yaml:"noise_level"`  // Noise amplitude in raw units
	ModePeriod  time.Duration `yaml:"mode_period"`  // Time between simulated mode button presses, 0 disables
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Slider: SliderConfig{
			Resolution:   1023,
			ResponseTime: 1.0,
			TickRate:     smooth.DefaultTickRate,
			Threshold:    smooth.DefaultThreshold,
			Invert:       true,
			TriggerKey:   0x27, // KC_0
		},
		Serial: SerialConfig{
			Port: "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			Baud: 115200,
		},
		Bridge: BridgeConfig{
			Debounce: 250 * time.Millisecond,
			Volume: VolumeCurveConfig{
				Gamma:         1.3,
				MuteThreshold: 0.001,
				MinDelta:      0.01,
			},
		},
		HUD: HUDConfig{
			Path:         "/ws",
			ShowOnEvents: true,
			HideAfter:    500 * time.Millisecond,
		},
		Mock: MockConfig{
			SampleRate:  10 * time.Millisecond,
			SweepPeriod: 8 * time.Second,
			NoiseLevel:  4,
			ModePeriod:  20 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the slider section with the same rules the smoothing
// engine applies, and the volume curve.
func (c *Config) Validate() error {
	if _, err := c.SmoothConfig(func() uint32 { return 0 }); err != nil {
		return fmt.Errorf("invalid slider section: %w", err)
	}
	if err := c.Bridge.Volume.Validate(); err != nil {
		return fmt.Errorf("invalid bridge section: %w", err)
	}
	return nil
}

// ErrVolumeCurve is returned for a volume curve outside its domain.
var ErrVolumeCurve = errors.New("invalid volume curve")

// Validate requires a positive gamma and a mute threshold and minimum
// delta within [0, 1).
func (v VolumeCurveConfig) Validate() error {
	if !(v.Gamma > 0) || math.IsInf(float64(v.Gamma), 0) {
		return fmt.Errorf("%w: gamma %v must be positive", ErrVolumeCurve, v.Gamma)
	}
	if !(v.MuteThreshold >= 0 && v.MuteThreshold < 1) {
		return fmt.Errorf("%w: mute threshold %v must be in [0, 1)", ErrVolumeCurve, v.MuteThreshold)
	}
	if !(v.MinDelta >= 0 && v.MinDelta < 1) {
		return fmt.Errorf("%w: min delta %v must be in [0, 1)", ErrVolumeCurve, v.MinDelta)
	}
	return nil
}

// SmoothConfig builds the smoothing engine configuration for the given time source.
func (c *Config) SmoothConfig(now smooth.TimeSource) (*smooth.Config, error) {
	return smooth.NewConfig(
		c.Slider.Resolution,
		c.Slider.ResponseTime,
		now,
		smooth.WithTickRate(c.Slider.TickRate),
		smooth.WithThreshold(c.Slider.Threshold),
	)
}

// ensureDefaults ensures that all required fields have default values if missing.
// Resolution and response time are left alone so Validate rejects an explicit zero.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Slider.TickRate == 0 {
		c.Slider.TickRate = def.Slider.TickRate
	}
	if c.Slider.Threshold == 0 {
		c.Slider.Threshold = def.Slider.Threshold
	}

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}

	if c.Bridge.Debounce == 0 {
		c.Bridge.Debounce = def.Bridge.Debounce
	}
	if c.Bridge.Volume.Gamma == 0 {
		c.Bridge.Volume.Gamma = def.Bridge.Volume.Gamma
	}

	if c.HUD.Path == "" {
		c.HUD.Path = def.HUD.Path
	}
	if c.HUD.HideAfter == 0 {
		c.HUD.HideAfter = def.HUD.HideAfter
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.SweepPeriod == 0 {
		c.Mock.SweepPeriod = def.Mock.SweepPeriod
	}

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}
