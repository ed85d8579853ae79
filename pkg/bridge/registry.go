// Package bridge turns frames received from the keyboard into host side
// effects and HUD updates.
package bridge

import (
	"fmt"

	"github.com/itohio/goslider/pkg/mode"
	"github.com/itohio/goslider/pkg/packet"
)

// VolumeController sets the output volume.
type VolumeController interface {
	SetVolume(normalized float32)
}

// BrightnessController sets the display brightness.
type BrightnessController interface {
	SetBrightness(normalized float32)
}

// ShortcutHandler runs the action bound to a shortcut slot (0-based).
type ShortcutHandler interface {
	HandleShortcut(slot int, normalized float32)
}

// Descriptor describes how one command behaves on the host.
type Descriptor struct {
	Function mode.Mode
	Apply    func(normalized float32)
	Icon     func(normalized float32) string
}

// Registry maps commands to their descriptors.
type Registry map[packet.Command]Descriptor

// NewRegistry registers every command against the given handlers.
func NewRegistry(volume VolumeController, brightness BrightnessController, shortcuts ShortcutHandler) Registry {
	reg := Registry{
		packet.SetVolume: {
			Function: mode.Volume,
			Apply:    volume.SetVolume,
			Icon:     volumeIcon,
		},
		packet.SetBrightness: {
			Function: mode.Brightness,
			Apply:    brightness.SetBrightness,
			Icon:     brightnessIcon,
		},
	}

	for _, m := range []mode.Mode{mode.Shortcut1, mode.Shortcut2, mode.Shortcut3, mode.Shortcut4} {
		slot := m.Slot()
		icon := fmt.Sprintf("%d.circle.fill", slot+1)
		reg[packet.CommandFor(m)] = Descriptor{
			Function: m,
			Apply: func(normalized float32) {
				shortcuts.HandleShortcut(slot, normalized)
			},
			Icon: func(float32) string { return icon },
		}
	}

	return reg
}

func volumeIcon(v float32) string {
	v = clamp01(v)
	switch {
	case v <= 0.001:
		return "speaker.slash.fill"
	case v < 0.3:
		return "speaker.wave.1.fill"
	case v < 0.7:
		return "speaker.wave.2.fill"
	default:
		return "speaker.wave.3.fill"
	}
}

func brightnessIcon(v float32) string {
	if clamp01(v) < 0.5 {
		return "sun.min.fill"
	}
	return "sun.max.fill"
}

func clamp01(v float32) float32 {
	return max(0, min(v, 1))
}
