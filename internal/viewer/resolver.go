package viewer

import (
	"log/slog"
	"math"

	"github.com/tour360/editor/internal/engine"
	"github.com/tour360/editor/pkg/core"
)

// Resolver turns viewport pointer events into pitch/yaw using the live engine.
type Resolver struct {
	live func() engine.Engine
	log  *slog.Logger
}

// NewResolver creates a resolver. live returns the loaded engine or nil.
func NewResolver(live func() engine.Engine, log *slog.Logger) *Resolver {
	return &Resolver{live: live, log: log}
}

// ResolveClick returns ok=false when there is no live engine or the engine
// result is unusable. Callers ignore the event in that case.
func (r *Resolver) ResolveClick(ev engine.PointerEvent) (pitch, yaw float64, ok bool) {
	eng := r.live()
	if eng == nil {
		r.log.Debug("pointer ignored, no live engine")
		return 0, 0, false
	}

	coords, err := eng.PointerToCoords(ev)
	if err != nil {
		r.log.Warn("pointer to coordinates failed", "error", err)
		return 0, 0, false
	}
	if len(coords) != 2 {
		r.log.Warn("pointer ignored", "error", core.ErrInvalidCoordinates, "arity", len(coords))
		return 0, 0, false
	}
	for _, c := range coords {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			r.log.Warn("pointer ignored", "error", core.ErrInvalidCoordinates, "coords", coords)
			return 0, 0, false
		}
	}
	return coords[0], coords[1], true
}
