package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/itohio/goslider/pkg/bridge"
	"github.com/itohio/goslider/pkg/config"
	"github.com/itohio/goslider/pkg/hud"
	"github.com/itohio/goslider/pkg/link"
	"github.com/itohio/goslider/pkg/logging"
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
		Use:   "goslider-bridge",
		Short: "Host bridge for the keyboard slider",
		Long: `goslider-bridge reads slider frames from the keyboard's serial port and
applies them on the host: volume, brightness and four shortcut actions.

Each function runs a command template from the configuration file. Updates can
be streamed to an on-screen display over WebSocket with --hud.
Use --mock to simulate a keyboard without hardware.`,
		SilenceUsage: true,
		RunE:         runListen,
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&flagPort, "port", "p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
	rootCmd.PersistentFlags().BoolVar(&flagMock, "mock", false, "Use a simulated keyboard instead of the serial port")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: error, warn, info, debug (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagHUD, "hud", "", "HUD WebSocket listen address, e.g. 127.0.0.1:8765 (overrides config)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "listen",
			Short: "Apply slider frames until interrupted (default)",
			RunE:  runListen,
		},
		&cobra.Command{
			Use:   "ports",
			Short: "List serial ports",
			RunE:  runPorts,
		},
		&cobra.Command{
			Use:   "emulate",
			Short: "Act as the keyboard: send simulated slider frames to the serial port",
			RunE:  runEmulate,
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write the effective configuration to the --config path",
			RunE:  runInit,
		},
	)

	return rootCmd
}

// loadConfig loads the configuration file and applies flag overrides.
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

func runListen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.FromConfig(os.Stderr, cfg.Logging.Level)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var device link.Device
	if flagMock {
		device = link.NewMock(cfg, logger)
	} else {
		device = link.New(cfg.Serial.Port, cfg.Serial.Baud, link.DefaultBufferSize, logger)
	}

	if err := device.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer device.Close()

	return serve(ctx, cfg, device, logger)
}

// serve runs the bridge engine against device until ctx is canceled or the
// device stream ends.
func serve(ctx context.Context, cfg *config.Config, device link.Device, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	actions := bridge.NewActions(cfg.Bridge, logger)
	defer actions.Wait()

	var publisher bridge.Publisher
	hudErr := make(chan error, 1)
	if cfg.HUD.Listen != "" {
		hub := hud.NewHub(logger, hud.HubConfig{})
		publisher = hub
		go func() {
			hudErr <- hub.Serve(ctx, cfg.HUD.Listen, cfg.HUD.Path)
		}()
	}

	engine := bridge.NewEngine(bridge.NewRegistry(actions, actions, actions), publisher, logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		engine.Run(ctx, device.Messages())
	}()

	logger.Info("bridge running", "mock", flagMock, "port", cfg.Serial.Port, "hud", cfg.HUD.Listen)

	select {
	case <-done:
		return nil
	case err := <-hudErr:
		cancel()
		<-done
		if err != nil {
			return fmt.Errorf("hud server: %w", err)
		}
		return nil
	}
}

func runEmulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.FromConfig(os.Stderr, cfg.Logging.Level)
	if err != nil {
		return err
	}

	sink, err := link.OpenSink(cfg.Serial.Port, cfg.Serial.Baud)
	if err != nil {
		return err
	}
	defer sink.Close()

	emu, err := link.NewEmulator(cfg, sink, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("emulating keyboard", "port", cfg.Serial.Port, "baud", cfg.Serial.Baud)
	emu.Run(ctx, nil)
	return nil
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := link.Ports()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(ports) == 0 {
		fmt.Fprintln(out, "no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(out, p.Description)
	}
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Save(flagConfig); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", flagConfig)
	return nil
}
