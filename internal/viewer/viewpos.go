package viewer

import (
	"log/slog"

	"github.com/tour360/editor/internal/engine"
	"github.com/tour360/editor/pkg/core"
)

// ViewMemory keeps a single saved camera orientation.
type ViewMemory struct {
	live  func() engine.Engine
	log   *slog.Logger
	saved *core.ViewPosition
}

func NewViewMemory(live func() engine.Engine, log *slog.Logger) *ViewMemory {
	return &ViewMemory{live: live, log: log}
}

// Save overwrites the slot with the engine's current orientation.
func (m *ViewMemory) Save() bool {
	eng := m.live()
	if eng == nil {
		return false
	}
	pos, err := eng.Orientation()
	if err != nil {
		m.log.Warn("could not read orientation", "error", err)
		return false
	}
	m.saved = &pos
	return true
}

// Restore jumps back to the saved orientation without animation.
func (m *ViewMemory) Restore() bool {
	eng := m.live()
	if eng == nil || m.saved == nil {
		return false
	}
	if err := eng.SetOrientation(*m.saved, false); err != nil {
		m.log.Warn("could not restore orientation", "error", err)
		return false
	}
	return true
}

func (m *ViewMemory) Saved() (core.ViewPosition, bool) {
	if m.saved == nil {
		return core.ViewPosition{}, false
	}
	return *m.saved, true
}
