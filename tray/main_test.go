package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/goslider/pkg/config"
	"github.com/itohio/goslider/pkg/hud"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mockState(t *testing.T) *appState {
	t.Helper()
	cfg := config.Default()
	cfg.Slider.ResponseTime = 0.05
	cfg.Mock.SampleRate = time.Millisecond
	cfg.Mock.SweepPeriod = 200 * time.Millisecond
	cfg.Mock.ModePeriod = 0

	s := &appState{
		cfg:     cfg,
		path:    filepath.Join(t.TempDir(), "config.yaml"),
		logger:  discardLogger(),
		useMock: true,
	}
	t.Cleanup(s.disconnect)
	return s
}

func runHub(t *testing.T) *hud.Hub {
	t.Helper()
	hub := hud.NewHub(discardLogger(), hud.HubConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestAppState_ConnectPublishes(t *testing.T) {
	s := mockState(t)
	s.hub = runHub(t)

	require.True(t, s.setConnected(true))
	assert.True(t, s.device.IsConnected())
	assert.NoError(t, s.connect(), "second connect is a no-op")

	require.Eventually(t, func() bool {
		_, ok := s.hub.Last()
		return ok
	}, 5*time.Second, 5*time.Millisecond)
	last, _ := s.hub.Last()
	assert.Equal(t, "volume", last.Function)

	assert.False(t, s.setConnected(false))
	assert.False(t, s.device.IsConnected())
}

func TestAppState_ReconnectReusesDevice(t *testing.T) {
	s := mockState(t)

	require.True(t, s.setConnected(true))
	first := s.device
	s.disconnect()
	require.True(t, s.setConnected(true))
	assert.Same(t, first, s.device)
	assert.True(t, s.device.IsConnected())

	// Saved settings replace the device.
	s.reconnect()
	assert.NotSame(t, first, s.device)
	assert.True(t, s.device.IsConnected())
	assert.False(t, first.IsConnected())
}

func TestAppState_ReconnectWhileDisconnected(t *testing.T) {
	s := mockState(t)
	s.reconnect()
	assert.Nil(t, s.device)
	assert.Nil(t, s.cancel)
}

func TestAppState_ConnectFailure(t *testing.T) {
	s := mockState(t)
	s.cfg.Slider.ResponseTime = 0

	assert.False(t, s.setConnected(true))
	assert.Nil(t, s.cancel)
	s.disconnect()
}

func TestAppState_SaveConfig(t *testing.T) {
	s := mockState(t)
	s.cfg.HUD.ShowOnEvents = false
	s.saveConfig()

	loaded, err := config.Load(s.path)
	require.NoError(t, err)
	assert.False(t, loaded.HUD.ShowOnEvents)
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "-p", "/dev/ttyACM1", "--hud", "127.0.0.1:9000", "--log-level", "debug", "--mock"}))

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM1", cfg.Serial.Port)
	assert.Equal(t, "127.0.0.1:9000", cfg.HUD.Listen)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, flagMock)
	assert.True(t, cfg.HUD.ShowOnEvents)
}
