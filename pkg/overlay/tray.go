package overlay

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"

	"github.com/itohio/goslider/pkg/config"
)

// TrayHandlers are called from the tray menu on the main thread. Nil
// handlers leave the item inert.
type TrayHandlers struct {
	Settings func()
	// Connect opens or closes the keyboard link and reports the new state.
	Connect func(connect bool) bool
	// ShowHUD is called after the HUD toggle changed the configuration.
	ShowHUD func(show bool)
	Quit    func()
}

// Tray is the system tray menu.
type Tray struct {
	Menu *fyne.Menu

	cfg      *config.HUDConfig
	handlers TrayHandlers

	connect *fyne.MenuItem
	showHUD *fyne.MenuItem
}

// NewTray builds the menu: Settings, Connect, the HUD toggle and Quit.
func NewTray(cfg *config.HUDConfig, handlers TrayHandlers) *Tray {
	t := &Tray{cfg: cfg, handlers: handlers}

	settings := fyne.NewMenuItem("Settings...", func() {
		if t.handlers.Settings != nil {
			t.handlers.Settings()
		}
	})
	settings.Icon = theme.SettingsIcon()

	t.connect = fyne.NewMenuItem("Connect", t.toggleConnect)
	t.connect.Icon = theme.LoginIcon()

	t.showHUD = fyne.NewMenuItem("Show HUD when slider moves", t.toggleHUD)
	t.showHUD.Checked = cfg.ShowOnEvents

	quit := fyne.NewMenuItem("Quit", func() {
		if t.handlers.Quit != nil {
			t.handlers.Quit()
		}
	})
	quit.IsQuit = true

	t.Menu = fyne.NewMenu("goslider",
		settings,
		t.connect,
		t.showHUD,
		fyne.NewMenuItemSeparator(),
		quit,
	)
	return t
}

// Install puts the menu into the system tray. It reports false when the
// platform has none.
func (t *Tray) Install(a fyne.App) bool {
	desk, ok := a.(desktop.App)
	if !ok {
		return false
	}
	desk.SetSystemTrayMenu(t.Menu)
	desk.SetSystemTrayIcon(theme.VolumeUpIcon())
	return true
}

// SetConnected updates the connect item for the link state.
func (t *Tray) SetConnected(connected bool) {
	if connected {
		t.connect.Label = "Disconnect"
		t.connect.Icon = theme.LogoutIcon()
	} else {
		t.connect.Label = "Connect"
		t.connect.Icon = theme.LoginIcon()
	}
	t.connect.Checked = connected
	t.Menu.Refresh()
}

func (t *Tray) toggleConnect() {
	if t.handlers.Connect == nil {
		return
	}
	t.SetConnected(t.handlers.Connect(!t.connect.Checked))
}

func (t *Tray) toggleHUD() {
	t.cfg.ShowOnEvents = !t.cfg.ShowOnEvents
	t.showHUD.Checked = t.cfg.ShowOnEvents
	t.Menu.Refresh()
	if t.handlers.ShowHUD != nil {
		t.handlers.ShowHUD(t.cfg.ShowOnEvents)
	}
}
