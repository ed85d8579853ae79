package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/itohio/goslider/pkg/config"
)

// DefaultCommandTimeout bounds a single external command.
const DefaultCommandTimeout = 10 * time.Second

// Executor runs one expanded command line.
type Executor func(ctx context.Context, argv []string) error

// ExecCommand runs argv as a process and waits for it to finish.
func ExecCommand(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", argv[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Vars are the values substituted into a command template.
type Vars struct {
	Normalized float32 // slider position
	Slot       int     // 0-based shortcut slot
	Shaped     float32 // volume after the curve
	Muted      bool
}

// CommandAction runs an external command template for slider values.
//
// Templates may contain {value} (0-65535), {percent} (0-100),
// {normalized} (0.000-1.000), {slot} (1-based shortcut number),
// {shaped} (0.000-1.000), {shaped_percent} (0-100) and {muted} (1 or 0).
//
// At most one command per action runs at a time. Values arriving while a
// command runs replace each other and only the latest one is executed next.
type CommandAction struct {
	name     string
	argv     []string
	exec     Executor
	timeout  time.Duration
	logger   *slog.Logger
	mu       sync.Mutex
	pending  []string
	running  bool
	finished chan struct{}
}

// NewCommandAction returns nil for an empty template.
func NewCommandAction(name string, argv []string, logger *slog.Logger) *CommandAction {
	if len(argv) == 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandAction{
		name:    name,
		argv:    append([]string(nil), argv...),
		exec:    ExecCommand,
		timeout: DefaultCommandTimeout,
		logger:  logger.With("action", name),
	}
}

// Run schedules the command for the given values and returns immediately.
func (a *CommandAction) Run(vars Vars) {
	if a == nil {
		return
	}
	argv := expand(a.argv, vars)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = argv
	if a.running {
		return
	}
	a.running = true
	a.finished = make(chan struct{})
	go a.drain(a.finished)
}

// Wait blocks until no command is running or pending.
func (a *CommandAction) Wait() {
	if a == nil {
		return
	}
	a.mu.Lock()
	done := a.finished
	a.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (a *CommandAction) drain(done chan struct{}) {
	defer close(done)
	for {
		a.mu.Lock()
		argv := a.pending
		a.pending = nil
		if argv == nil {
			a.running = false
			a.mu.Unlock()
			return
		}
		a.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.exec(ctx, argv)
		cancel()
		if err != nil {
			a.logger.Warn("command failed", "error", err)
			continue
		}
		a.logger.Debug("command done", "argv", argv)
	}
}

func expand(argv []string, vars Vars) []string {
	normalized := clamp01(vars.Normalized)
	shaped := clamp01(vars.Shaped)
	muted := "0"
	if vars.Muted {
		muted = "1"
	}
	r := strings.NewReplacer(
		"{value}", strconv.Itoa(int(normalized*0xFFFF+0.5)),
		"{percent}", strconv.Itoa(int(normalized*100+0.5)),
		"{normalized}", strconv.FormatFloat(float64(normalized), 'f', 3, 32),
		"{slot}", strconv.Itoa(vars.Slot+1),
		"{shaped}", strconv.FormatFloat(float64(shaped), 'f', 3, 32),
		"{shaped_percent}", strconv.Itoa(int(shaped*100+0.5)),
		"{muted}", muted,
	)
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = r.Replace(arg)
	}
	return out
}

// Actions binds the configured command templates to the registry handlers.
type Actions struct {
	shaper     *VolumeShaper
	volume     *CommandAction
	brightness *CommandAction
	shortcuts  []*CommandAction
	debounce   time.Duration
	logger     *slog.Logger
	now        func() time.Time

	mu   sync.Mutex
	last map[int]time.Time
}

// NewActions builds actions from the bridge configuration.
func NewActions(cfg config.BridgeConfig, logger *slog.Logger) *Actions {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Actions{
		shaper:     NewVolumeShaper(cfg.Volume),
		volume:     NewCommandAction("volume", cfg.Actions.Volume, logger),
		brightness: NewCommandAction("brightness", cfg.Actions.Brightness, logger),
		debounce:   cfg.Debounce,
		logger:     logger,
		now:        time.Now,
		last:       make(map[int]time.Time),
	}
	for i, argv := range cfg.Actions.Shortcuts {
		a.shortcuts = append(a.shortcuts, NewCommandAction(fmt.Sprintf("shortcut%d", i+1), argv, logger))
	}
	return a
}

// SetVolume runs the volume command when the shaped level or the mute
// state changes.
func (a *Actions) SetVolume(normalized float32) {
	level, ok := a.shaper.Shape(normalized)
	if !ok {
		return
	}
	a.volume.Run(Vars{Normalized: normalized, Shaped: level.Shaped, Muted: level.Muted})
}

// SetBrightness runs the brightness command for every value.
func (a *Actions) SetBrightness(normalized float32) {
	n := clamp01(normalized)
	a.brightness.Run(Vars{Normalized: n, Shaped: n})
}

// HandleShortcut runs the shortcut at most once per debounce interval.
func (a *Actions) HandleShortcut(slot int, normalized float32) {
	now := a.now()

	a.mu.Lock()
	if last, ok := a.last[slot]; ok && now.Sub(last) < a.debounce {
		a.mu.Unlock()
		return
	}
	a.last[slot] = now
	a.mu.Unlock()

	if slot < 0 || slot >= len(a.shortcuts) || a.shortcuts[slot] == nil {
		a.logger.Debug("shortcut not bound", "slot", slot+1)
		return
	}
	n := clamp01(normalized)
	a.shortcuts[slot].Run(Vars{Normalized: n, Slot: slot, Shaped: n})
}

// Wait blocks until every scheduled command has finished.
func (a *Actions) Wait() {
	a.volume.Wait()
	a.brightness.Wait()
	for _, s := range a.shortcuts {
		s.Wait()
	}
}
