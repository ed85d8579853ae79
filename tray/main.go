package main

import (
	"context"
	"os"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"github.com/itohio/goslider/pkg/config"
	"github.com/itohio/goslider/pkg/hud"
	"github.com/itohio/goslider/pkg/logging"
	"github.com/itohio/goslider/pkg/overlay"
)

var (
	flagConfig   string
	flagPort     string
	flagMock     bool
	flagLogLevel string
	flagHUD      string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "goslider-tray",
		Short: "System tray bridge with an on-screen display for the keyboard slider",
		Long: `goslider-tray runs the slider bridge from the system tray. Every slider
event is applied like goslider-bridge does and shown on a small HUD window
that hides shortly after the slider stops.

The tray menu opens the settings window, connects or disconnects the
keyboard and toggles the HUD.`,
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.Flags().StringVar(&flagConfig, "config", "config.yaml", "Configuration file path")
	rootCmd.Flags().StringVarP(&flagPort, "port", "p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
	rootCmd.Flags().BoolVar(&flagMock, "mock", false, "Use a simulated keyboard instead of the serial port")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level: error, warn, info, debug (overrides config)")
	rootCmd.Flags().StringVar(&flagHUD, "hud", "", "Also serve the HUD feed over WebSocket on this address (overrides config)")

	return rootCmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagPort != "" {
		cfg.Serial.Port = flagPort
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagHUD != "" {
		cfg.HUD.Listen = flagHUD
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.FromConfig(os.Stderr, cfg.Logging.Level)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	application := app.NewWithID("com.itohio.goslider")

	state := &appState{
		cfg:     cfg,
		path:    flagConfig,
		app:     application,
		logger:  logger,
		useMock: flagMock,
	}
	state.hud = overlay.NewHUD(application, &cfg.HUD, logger)

	// The WebSocket feed keeps the address it started with.
	if cfg.HUD.Listen != "" {
		state.hub = hud.NewHub(logger, hud.HubConfig{})
		go func() {
			if err := state.hub.Serve(ctx, cfg.HUD.Listen, cfg.HUD.Path); err != nil {
				logger.Error("hud server stopped", "error", err)
			}
		}()
	}

	state.tray = overlay.NewTray(&cfg.HUD, overlay.TrayHandlers{
		Settings: state.showSettings,
		Connect:  state.setConnected,
		ShowHUD:  func(bool) { state.saveConfig() },
		Quit:     application.Quit,
	})
	if !state.tray.Install(application) {
		logger.Warn("system tray not available, keeping the settings window open")
		state.showSettings()
		state.settings.SetMaster()
	}

	state.tray.SetConnected(state.setConnected(true))

	application.Run()
	state.disconnect()
	return nil
}
