package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/goslider/pkg/config"
	"github.com/itohio/goslider/pkg/logging"
	"github.com/itohio/goslider/pkg/packet"
)

// stubDevice replays a fixed list of messages and then closes its stream.
type stubDevice struct {
	messages chan packet.Message
}

func newStubDevice(msgs ...packet.Message) *stubDevice {
	ch := make(chan packet.Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return &stubDevice{messages: ch}
}

func (d *stubDevice) Connect() error { return nil }
func (d *stubDevice) Close() error { return nil }
func (d *stubDevice) Messages() <-chan packet.Message { return d.messages }
func (d *stubDevice) IsConnected() bool { return true }

func TestServe_ReturnsWhenStreamEnds(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, logging.LevelDebug)

	device := newStubDevice(
		packet.Message{Command: packet.SetVolume, Value: 0x8000, Length: packet.FrameSize},
		packet.Message{Command: packet.Shortcut1, Value: 0xFFFF, Length: packet.FrameSize},
	)

	done := make(chan error, 1)
	go func() {
		done <- serve(context.Background(), config.Default(), device, logger)
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after the device stream closed")
	}
	assert.Contains(t, buf.String(), "function=shortcut1")
}

func TestServe_HUDListenError(t *testing.T) {
	cfg := config.Default()
	cfg.HUD.Listen = "invalid-address"

	device := &stubDevice{messages: make(chan packet.Message)}
	err := serve(context.Background(), cfg, device, logging.New(&bytes.Buffer{}, logging.LevelError))
	assert.ErrorContains(t, err, "hud server")
}

func TestInitCommand_WritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slider.yaml")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"init", "--config", path, "-p", "/dev/ttyACM0", "--hud", "127.0.0.1:8765"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, "127.0.0.1:8765", cfg.HUD.Listen)
	assert.Equal(t, config.Default().Slider, cfg.Slider)
}
