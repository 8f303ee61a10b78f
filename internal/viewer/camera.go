package viewer

import (
	"fmt"

	"github.com/tour360/editor/internal/engine"
	"github.com/tour360/editor/pkg/core"
)

const (
	tinyPlanetHFOV  = 120
	tinyPlanetPitch = -90
)

// focus centers the view on a hotspot, keeping the current zoom.
func focus(eng engine.Engine, h core.HotSpot) error {
	pos, err := eng.Orientation()
	if err != nil {
		return fmt.Errorf("read orientation: %w", err)
	}
	return eng.SetOrientation(core.ViewPosition{Pitch: h.Pitch, Yaw: h.Yaw, HFOV: pos.HFOV}, true)
}

// tinyPlanet switches between the straight-down wide view and the normal view.
func tinyPlanet(eng engine.Engine, on bool, normalHFOV float64) error {
	pos, err := eng.Orientation()
	if err != nil {
		return fmt.Errorf("read orientation: %w", err)
	}
	if on {
		pos.HFOV = tinyPlanetHFOV
		pos.Pitch = tinyPlanetPitch
	} else {
		pos.HFOV = normalHFOV
		pos.Pitch = 0
	}
	return eng.SetOrientation(pos, true)
}
