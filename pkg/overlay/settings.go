package overlay

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/goslider/pkg/config"
	"github.com/itohio/goslider/pkg/link"
)

// Settings edits the configuration in tabs. Every tab saves the whole file
// on submit and then calls onSave.
type Settings struct {
	cfg    *config.Config
	path   string
	window fyne.Window
	onSave func()

	port    *widget.Select
	portMap map[string]string // display name to port name
	baud    *widget.Entry

	showHUD   *widget.Check
	hideAfter *widget.Entry
	listen    *widget.Entry

	gamma         *widget.Entry
	muteThreshold *widget.Entry
	minDelta      *widget.Entry
	debounce      *widget.Entry

	sampleRate  *widget.Entry
	sweepPeriod *widget.Entry
	noiseLevel  *widget.Entry
	modePeriod  *widget.Entry

	tabs *container.AppTabs
}

// ShowSettings opens a settings window for cfg, saved to path.
func ShowSettings(a fyne.App, cfg *config.Config, path string, onSave func()) fyne.Window {
	w := a.NewWindow("goslider settings")
	s := NewSettings(cfg, path, w, onSave)
	w.SetContent(s.Content())
	w.Resize(fyne.NewSize(520, 380))
	w.CenterOnScreen()
	w.Show()
	return w
}

// NewSettings builds the settings tabs. Errors are shown as dialogs on
// window.
func NewSettings(cfg *config.Config, path string, window fyne.Window, onSave func()) *Settings {
	return newSettings(cfg, path, window, onSave, link.Ports)
}

func newSettings(cfg *config.Config, path string, window fyne.Window, onSave func(), ports func() ([]link.Port, error)) *Settings {
	s := &Settings{
		cfg:    cfg,
		path:   path,
		window: window,
		onSave: onSave,
	}
	s.tabs = container.NewAppTabs(
		s.serialTab(ports),
		s.hudTab(),
		s.volumeTab(),
		s.mockTab(),
	)
	return s
}

// Content returns the root object of the settings view.
func (s *Settings) Content() fyne.CanvasObject {
	return container.NewBorder(nil, nil, nil, nil, s.tabs)
}

func (s *Settings) serialTab(ports func() ([]link.Port, error)) *container.TabItem {
	var options []string
	s.portMap = make(map[string]string)

	if list, err := ports(); err == nil {
		for _, p := range list {
			options = append(options, p.Description)
			s.portMap[p.Description] = p.Name
		}
	}

	// Keep the configured port selectable even when it is not plugged in.
	current := s.cfg.Serial.Port
	display := ""
	for _, opt := range options {
		if s.portMap[opt] == current {
			display = opt
			break
		}
	}
	if display == "" && current != "" {
		options = append(options, current)
		s.portMap[current] = current
		display = current
	}

	s.port = widget.NewSelect(options, nil)
	if display != "" {
		s.port.SetSelected(display)
	}
	s.baud = entry(strconv.Itoa(s.cfg.Serial.Baud))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: s.port},
			{Text: "Baud Rate", Widget: s.baud},
		},
		OnSubmit: func() { s.report(s.submitSerial()) },
	}
	return container.NewTabItem("Serial", form)
}

func (s *Settings) hudTab() *container.TabItem {
	s.showHUD = widget.NewCheck("Show HUD when slider moves", nil)
	s.showHUD.SetChecked(s.cfg.HUD.ShowOnEvents)
	s.hideAfter = entry(s.cfg.HUD.HideAfter.String())
	s.listen = entry(s.cfg.HUD.Listen)
	s.listen.SetPlaceHolder("disabled")

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "", Widget: s.showHUD},
			{Text: "Hide After", Widget: s.hideAfter},
			{Text: "WebSocket Listen", Widget: s.listen, HintText: "host:port, empty disables"},
		},
		OnSubmit: func() { s.report(s.submitHUD()) },
	}
	return container.NewTabItem("HUD", form)
}

func (s *Settings) volumeTab() *container.TabItem {
	v := s.cfg.Bridge.Volume
	s.gamma = entry(formatFloat(v.Gamma))
	s.muteThreshold = entry(formatFloat(v.MuteThreshold))
	s.minDelta = entry(formatFloat(v.MinDelta))
	s.debounce = entry(s.cfg.Bridge.Debounce.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Volume Gamma", Widget: s.gamma},
			{Text: "Mute Threshold", Widget: s.muteThreshold},
			{Text: "Min Volume Change", Widget: s.minDelta},
			{Text: "Shortcut Debounce", Widget: s.debounce},
		},
		OnSubmit: func() { s.report(s.submitVolume()) },
	}
	return container.NewTabItem("Actions", form)
}

func (s *Settings) mockTab() *container.TabItem {
	m := s.cfg.Mock
	s.sampleRate = entry(m.SampleRate.String())
	s.sweepPeriod = entry(m.SweepPeriod.String())
	s.noiseLevel = entry(strconv.FormatFloat(m.NoiseLevel, 'f', -1, 64))
	s.modePeriod = entry(m.ModePeriod.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Sample Rate", Widget: s.sampleRate},
			{Text: "Sweep Period", Widget: s.sweepPeriod},
			{Text: "Noise Level", Widget: s.noiseLevel},
			{Text: "Mode Period (0=off)", Widget: s.modePeriod},
		},
		OnSubmit: func() { s.report(s.submitMock()) },
	}
	return container.NewTabItem("Mock", form)
}

func (s *Settings) submitSerial() error {
	baud, err := strconv.Atoi(s.baud.Text)
	if err != nil || baud <= 0 {
		return fmt.Errorf("invalid baud rate %q", s.baud.Text)
	}
	if s.port.Selected != "" {
		port := s.portMap[s.port.Selected]
		if port == "" {
			port = s.port.Selected
		}
		s.cfg.Serial.Port = port
	}
	s.cfg.Serial.Baud = baud
	return s.save()
}

func (s *Settings) submitHUD() error {
	hide, err := time.ParseDuration(s.hideAfter.Text)
	if err != nil || hide <= 0 {
		return fmt.Errorf("invalid hide delay %q", s.hideAfter.Text)
	}
	s.cfg.HUD.ShowOnEvents = s.showHUD.Checked
	s.cfg.HUD.HideAfter = hide
	s.cfg.HUD.Listen = s.listen.Text
	return s.save()
}

func (s *Settings) submitVolume() error {
	var curve config.VolumeCurveConfig
	var err error
	if curve.Gamma, err = parseFloat("gamma", s.gamma.Text); err != nil {
		return err
	}
	if curve.MuteThreshold, err = parseFloat("mute threshold", s.muteThreshold.Text); err != nil {
		return err
	}
	if curve.MinDelta, err = parseFloat("min volume change", s.minDelta.Text); err != nil {
		return err
	}
	if err := curve.Validate(); err != nil {
		return err
	}
	debounce, err := time.ParseDuration(s.debounce.Text)
	if err != nil || debounce < 0 {
		return fmt.Errorf("invalid debounce %q", s.debounce.Text)
	}

	s.cfg.Bridge.Volume = curve
	s.cfg.Bridge.Debounce = debounce
	return s.save()
}

func (s *Settings) submitMock() error {
	m := s.cfg.Mock
	var err error
	if m.SampleRate, err = time.ParseDuration(s.sampleRate.Text); err != nil || m.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %q", s.sampleRate.Text)
	}
	if m.SweepPeriod, err = time.ParseDuration(s.sweepPeriod.Text); err != nil || m.SweepPeriod <= 0 {
		return fmt.Errorf("invalid sweep period %q", s.sweepPeriod.Text)
	}
	if m.NoiseLevel, err = strconv.ParseFloat(s.noiseLevel.Text, 64); err != nil || m.NoiseLevel < 0 {
		return fmt.Errorf("invalid noise level %q", s.noiseLevel.Text)
	}
	if m.ModePeriod, err = time.ParseDuration(s.modePeriod.Text); err != nil || m.ModePeriod < 0 {
		return fmt.Errorf("invalid mode period %q", s.modePeriod.Text)
	}
	s.cfg.Mock = m
	return s.save()
}

func (s *Settings) save() error {
	if err := s.cfg.Save(s.path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	if s.onSave != nil {
		s.onSave()
	}
	return nil
}

func (s *Settings) report(err error) {
	if err != nil && s.window != nil {
		dialog.ShowError(err, s.window)
	}
}

func entry(text string) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(text)
	return e
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}

func parseFloat(name, text string) (float32, error) {
	v, err := strconv.ParseFloat(text, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, text)
	}
	return float32(v), nil
}
