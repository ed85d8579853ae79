package bridge

import (
	"sync"

	"github.com/chewxy/math32"

	"github.com/itohio/goslider/pkg/config"
)

// VolumeLevel is one volume change to apply.
type VolumeLevel struct {
	// Shaped is the output volume in [0, 1], zero while muted.
	Shaped float32
	Muted  bool
}

// VolumeShaper turns slider positions into volume changes. Positions at or
// below the mute threshold mute the output, the rest are raised to gamma.
// Shaped changes smaller than the minimum delta are dropped, but a change
// of the mute state always goes through.
type VolumeShaper struct {
	gamma         float32
	muteThreshold float32
	minDelta      float32

	mu    sync.Mutex
	last  float32 // negative until the first change
	muted bool
}

// NewVolumeShaper builds a shaper from the volume curve configuration.
func NewVolumeShaper(cfg config.VolumeCurveConfig) *VolumeShaper {
	return &VolumeShaper{
		gamma:         cfg.Gamma,
		muteThreshold: cfg.MuteThreshold,
		minDelta:      cfg.MinDelta,
		last:          -1,
	}
}

// Shape returns the change to apply for a slider position, or false when
// nothing needs to change.
func (s *VolumeShaper) Shape(normalized float32) (VolumeLevel, bool) {
	raw := clamp01(normalized)
	mute := raw <= s.muteThreshold

	var shaped float32
	if !mute {
		shaped = math32.Pow(raw, s.gamma)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case mute && s.muted:
		return VolumeLevel{}, false
	case !mute && !s.muted && s.last >= 0 && math32.Abs(shaped-s.last) < s.minDelta:
		return VolumeLevel{}, false
	}

	s.last = shaped
	s.muted = mute
	return VolumeLevel{Shaped: shaped, Muted: mute}, true
}
