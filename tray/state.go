package main

import (
	"context"
	"fmt"
	"log/slog"

	"fyne.io/fyne/v2"

	"github.com/itohio/goslider/pkg/bridge"
	"github.com/itohio/goslider/pkg/config"
	"github.com/itohio/goslider/pkg/hud"
	"github.com/itohio/goslider/pkg/link"
	"github.com/itohio/goslider/pkg/overlay"
)

// appState holds the application state. Everything except the engine
// goroutine runs on the fyne main thread.
type appState struct {
	cfg     *config.Config
	path    string
	app     fyne.App
	logger  *slog.Logger
	useMock bool

	hud      *overlay.HUD
	hub      *hud.Hub
	tray     *overlay.Tray
	settings fyne.Window

	device  link.Device
	actions *bridge.Actions
	cancel  context.CancelFunc
	done    chan struct{}
}

func (s *appState) newDevice() link.Device {
	if s.useMock {
		return link.NewMock(s.cfg, s.logger)
	}
	return link.New(s.cfg.Serial.Port, s.cfg.Serial.Baud, link.DefaultBufferSize, s.logger)
}

func (s *appState) publishers() bridge.Publishers {
	var pubs bridge.Publishers
	if s.hud != nil {
		pubs = append(pubs, s.hud)
	}
	if s.hub != nil {
		pubs = append(pubs, s.hub)
	}
	return pubs
}

// connect opens the device, reusing the previous one when the settings did
// not change, and starts the engine on its stream.
func (s *appState) connect() error {
	if s.cancel != nil {
		return nil
	}
	if s.device == nil {
		s.device = s.newDevice()
	}
	if err := s.device.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	s.actions = bridge.NewActions(s.cfg.Bridge, s.logger)
	engine := bridge.NewEngine(bridge.NewRegistry(s.actions, s.actions, s.actions), s.publishers(), s.logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	messages := s.device.Messages()
	go func() {
		defer close(done)
		engine.Run(ctx, messages)
	}()

	s.cancel = cancel
	s.done = done
	s.logger.Info("bridge connected", "mock", s.useMock, "port", s.cfg.Serial.Port)
	return nil
}

// disconnect stops the engine and closes the device. It waits for running
// commands to finish.
func (s *appState) disconnect() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	if err := s.device.Close(); err != nil {
		s.logger.Warn("error closing device", "error", err)
	}
	<-s.done
	s.actions.Wait()

	s.cancel = nil
	s.done = nil
	s.actions = nil
	s.logger.Info("bridge disconnected")
}

// setConnected is the tray connect handler.
func (s *appState) setConnected(connect bool) bool {
	if !connect {
		s.disconnect()
		return false
	}
	if err := s.connect(); err != nil {
		s.logger.Error("connect failed", "error", err)
		s.notify(err.Error())
		return false
	}
	return true
}

// reconnect applies saved settings by restarting the link on a new device.
func (s *appState) reconnect() {
	wasConnected := s.cancel != nil
	s.disconnect()
	s.device = nil
	if !wasConnected {
		return
	}
	connected := s.setConnected(true)
	if s.tray != nil {
		s.tray.SetConnected(connected)
	}
}

func (s *appState) showSettings() {
	if s.settings != nil {
		s.settings.RequestFocus()
		return
	}
	s.settings = overlay.ShowSettings(s.app, s.cfg, s.path, s.reconnect)
	s.settings.SetOnClosed(func() { s.settings = nil })
}

func (s *appState) saveConfig() {
	if err := s.cfg.Save(s.path); err != nil {
		s.logger.Error("failed to save config", "error", err)
		s.notify(err.Error())
	}
}

func (s *appState) notify(msg string) {
	if s.app != nil {
		s.app.SendNotification(fyne.NewNotification("goslider", msg))
	}
}
