package config

import (
	"os"
	"testing"
	"time"

	"github.com/itohio/goslider/pkg/smooth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	_, err = tmpfile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())
	return tmpfile.Name()
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, uint16(1023), cfg.Slider.Resolution)
	assert.Equal(t, float32(1.0), cfg.Slider.ResponseTime)
	assert.Equal(t, uint32(1000), cfg.Slider.TickRate)
	assert.Equal(t, uint16(1), cfg.Slider.Threshold)
	assert.True(t, cfg.Slider.Invert)
	assert.Equal(t, "COM3", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, 250*time.Millisecond, cfg.Bridge.Debounce)
	assert.Equal(t, "/ws", cfg.HUD.Path)
	assert.Empty(t, cfg.HUD.Listen)
	assert.True(t, cfg.HUD.ShowOnEvents)
	assert.Equal(t, 500*time.Millisecond, cfg.HUD.HideAfter)
	assert.Equal(t, VolumeCurveConfig{Gamma: 1.3, MuteThreshold: 0.001, MinDelta: 0.01}, cfg.Bridge.Volume)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	name := writeTemp(t, `
slider:
  resolution: 4095
  response_time: 0.25
  tick_rate: 1000000
  threshold: 8
  invert: false
  trigger_key: 30

serial:
  port: "/dev/ttyACM0"
  baud: 9600

bridge:
  debounce: 500ms
  volume:
    gamma: 2
    mute_threshold: 0.05
    min_delta: 0
  actions:
    volume: ["amixer", "set", "Master", "{percent}%"]
    shortcuts:
      - ["notify-send", "slot {slot}", "{normalized}"]

hud:
  listen: "127.0.0.1:8765"
  show_on_events: false
  hide_after: 1s

mock:
  sample_rate: 5ms
  sweep_period: 2s
  noise_level: 1.5
  mode_period: 0s

logging:
  level: debug
`)

	cfg, err := Load(name)
	require.NoError(t, err)

	assert.Equal(t, uint16(4095), cfg.Slider.Resolution)
	assert.Equal(t, float32(0.25), cfg.Slider.ResponseTime)
	assert.Equal(t, uint32(1000000), cfg.Slider.TickRate)
	assert.Equal(t, uint16(8), cfg.Slider.Threshold)
	assert.False(t, cfg.Slider.Invert)
	assert.Equal(t, uint16(30), cfg.Slider.TriggerKey)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.Baud)
	assert.Equal(t, 500*time.Millisecond, cfg.Bridge.Debounce)
	assert.Equal(t, []string{"amixer", "set", "Master", "{percent}%"}, cfg.Bridge.Actions.Volume)
	require.Len(t, cfg.Bridge.Actions.Shortcuts, 1)
	assert.Equal(t, VolumeCurveConfig{Gamma: 2, MuteThreshold: 0.05, MinDelta: 0}, cfg.Bridge.Volume)
	assert.Equal(t, "127.0.0.1:8765", cfg.HUD.Listen)
	assert.Equal(t, "/ws", cfg.HUD.Path)
	assert.False(t, cfg.HUD.ShowOnEvents)
	assert.Equal(t, time.Second, cfg.HUD.HideAfter)
	assert.Equal(t, 5*time.Millisecond, cfg.Mock.SampleRate)
	assert.Equal(t, 2*time.Second, cfg.Mock.SweepPeriod)
	assert.Equal(t, 1.5, cfg.Mock.NoiseLevel)
	assert.Equal(t, time.Duration(0), cfg.Mock.ModePeriod)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_InvalidYAML(t *testing.T) {
	name := writeTemp(t, "invalid: yaml: content: [")

	cfg, err := Load(name)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	name := writeTemp(t, `
serial:
  port: "/dev/ttyACM0"
`)

	cfg, err := Load(name)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)

	// Should use defaults for missing fields
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, uint16(1023), cfg.Slider.Resolution)
	assert.Equal(t, float32(1.0), cfg.Slider.ResponseTime)
	assert.Equal(t, float32(1.3), cfg.Bridge.Volume.Gamma)
	assert.True(t, cfg.HUD.ShowOnEvents)
	assert.Equal(t, 500*time.Millisecond, cfg.HUD.HideAfter)
}

func TestLoad_InvalidVolumeCurve(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative gamma", "bridge:\n  volume:\n    gamma: -1\n"},
		{"mute threshold above range", "bridge:\n  volume:\n    mute_threshold: 1\n"},
		{"negative mute threshold", "bridge:\n  volume:\n    mute_threshold: -0.1\n"},
		{"negative min delta", "bridge:\n  volume:\n    min_delta: -0.01\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeTemp(t, tt.content))
			assert.ErrorIs(t, err, ErrVolumeCurve)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoad_InvalidSlider(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"zero resolution", "slider:\n  resolution: 0\n", smooth.ErrResolution},
		{"zero response time", "slider:\n  response_time: 0\n", smooth.ErrResponseTime},
		{"negative response time", "slider:\n  response_time: -2\n", smooth.ErrResponseTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeTemp(t, tt.content))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, cfg)
		})
	}
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Slider.ResponseTime = 0.5
	cfg.Bridge.Actions.Brightness = []string{"brightnessctl", "set", "{percent}%"}

	name := writeTemp(t, "")

	require.NoError(t, cfg.Save(name))

	loaded, err := Load(name)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	assert.Equal(t, float32(0.5), loaded.Slider.ResponseTime)
	assert.Equal(t, cfg.Bridge.Actions.Brightness, loaded.Bridge.Actions.Brightness)
	assert.Equal(t, cfg.Mock.SweepPeriod, loaded.Mock.SweepPeriod)
	assert.Equal(t, cfg.Bridge.Volume, loaded.Bridge.Volume)
	assert.Equal(t, cfg.HUD, loaded.HUD)
}

func TestSmoothConfig(t *testing.T) {
	cfg := Default()
	cfg.Slider.Threshold = 4

	sc, err := cfg.SmoothConfig(func() uint32 { return 0 })
	require.NoError(t, err)
	assert.Equal(t, uint16(1023), sc.Resolution())
	assert.Equal(t, float32(1.0), sc.ResponseTime())
	assert.Equal(t, uint16(4), sc.Threshold())

	_, err = cfg.SmoothConfig(nil)
	assert.ErrorIs(t, err, smooth.ErrTimeSource)
}
