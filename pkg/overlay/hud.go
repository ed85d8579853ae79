// Package overlay is the desktop front-end of the bridge: a small HUD window
// that pops up while the slider moves, a system tray menu and a settings
// window.
package overlay

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/goslider/pkg/config"
	"github.com/itohio/goslider/pkg/hud"
	"github.com/itohio/goslider/pkg/mode"
)

// DefaultHideAfter is how long the HUD stays up after the last event.
const DefaultHideAfter = 500 * time.Millisecond

type stopper interface {
	Stop() bool
}

// HUD shows the latest slider state: an icon, a value bar and a label.
// Publish may be called from any goroutine; all widget updates run on the
// fyne main thread.
type HUD struct {
	app    fyne.App
	cfg    *config.HUDConfig
	logger *slog.Logger
	window fyne.Window

	icon  *widget.Icon
	bar   *widget.ProgressBar
	label *widget.Label

	// do runs f on the main thread, after starts the hide timer.
	do    func(f func())
	after func(d time.Duration, f func()) stopper

	timer   stopper
	seq     uint64
	visible bool
}

// NewHUD creates the HUD window. cfg is read on the main thread for every
// event, so changes made by the settings window apply immediately.
func NewHUD(a fyne.App, cfg *config.HUDConfig, logger *slog.Logger) *HUD {
	if logger == nil {
		logger = slog.Default()
	}

	h := &HUD{
		app:    a,
		cfg:    cfg,
		logger: logger.With("component", "overlay"),
		icon:   widget.NewIcon(theme.VolumeUpIcon()),
		bar:    widget.NewProgressBar(),
		label:  widget.NewLabel("0%"),
		do:     fyne.Do,
		after: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
	h.bar.TextFormatter = func() string { return "" }
	h.label.TextStyle = fyne.TextStyle{Bold: true, Monospace: true}

	h.window = newPanel(a)
	h.window.SetContent(container.NewPadded(
		container.NewBorder(nil, nil, h.icon, h.label, h.bar),
	))
	h.window.Resize(fyne.NewSize(260, 56))
	h.window.SetFixedSize(true)

	return h
}

// newPanel prefers a borderless window where the driver supports one.
func newPanel(a fyne.App) fyne.Window {
	if drv, ok := a.Driver().(desktop.Driver); ok {
		return drv.CreateSplashWindow()
	}
	return a.NewWindow("goslider")
}

// Publish shows state on the HUD.
func (h *HUD) Publish(state hud.State) {
	h.do(func() { h.apply(state) })
}

// Visible reports whether the HUD window is shown.
func (h *HUD) Visible() bool {
	return h.visible
}

func (h *HUD) apply(state hud.State) {
	res := Icon(state.Icon)
	h.icon.SetResource(res)
	h.bar.SetValue(float64(clamp01(state.Value)))
	h.label.SetText(Label(state))

	if desk, ok := h.app.(desktop.App); ok {
		desk.SetSystemTrayIcon(res)
	}

	if h.cfg == nil || !h.cfg.ShowOnEvents {
		return
	}

	if !h.visible {
		h.window.CenterOnScreen()
		h.window.Show()
		h.visible = true
		h.logger.Debug("hud shown", "function", state.Function)
	}

	// Every event restarts the hide timer. A timer that already fired
	// carries an old seq and is ignored.
	if h.timer != nil {
		h.timer.Stop()
	}
	h.seq++
	seq := h.seq
	h.timer = h.after(h.hideAfter(), func() {
		h.do(func() { h.hide(seq) })
	})
}

func (h *HUD) hide(seq uint64) {
	if seq != h.seq || !h.visible {
		return
	}
	h.window.Hide()
	h.visible = false
	h.timer = nil
}

func (h *HUD) hideAfter() time.Duration {
	if h.cfg == nil || h.cfg.HideAfter <= 0 {
		return DefaultHideAfter
	}
	return h.cfg.HideAfter
}

// Label is the HUD text for state: "S<n>" for shortcuts, the truncated
// percentage otherwise.
func Label(state hud.State) string {
	if m, err := mode.Parse(state.Function); err == nil && m.IsShortcut() {
		return fmt.Sprintf("S%d", m.Slot()+1)
	}
	return fmt.Sprintf("%d%%", int(clamp01(state.Value)*100))
}

// Icon maps the symbol names carried in hud.State to theme icons.
func Icon(name string) fyne.Resource {
	switch {
	case name == "speaker.slash.fill":
		return theme.VolumeMuteIcon()
	case name == "speaker.wave.1.fill":
		return theme.VolumeDownIcon()
	case strings.HasPrefix(name, "speaker."):
		return theme.VolumeUpIcon()
	case name == "sun.min.fill":
		return theme.VisibilityOffIcon()
	case strings.HasPrefix(name, "sun."):
		return theme.VisibilityIcon()
	case strings.HasSuffix(name, ".circle.fill"):
		return theme.MediaPlayIcon()
	default:
		return theme.InfoIcon()
	}
}

func clamp01(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v < 0:
		return 0
	default:
		return v
	}
}
