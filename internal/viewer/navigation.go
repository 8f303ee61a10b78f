package viewer

import (
	"log/slog"

	"github.com/tour360/editor/internal/engine"
	"github.com/tour360/editor/internal/metrics"
	"github.com/tour360/editor/internal/tour"
	"github.com/tour360/editor/pkg/core"
)

// Navigator switches the current scene after checking the target exists.
type Navigator struct {
	store *tour.Store
	live  func() engine.Engine
	shown func() string
	emit  func(core.Event)
	log   *slog.Logger
}

// NewNavigator wires a navigator to the live engine and the scene it shows.
func NewNavigator(store *tour.Store, live func() engine.Engine, shown func() string, emit func(core.Event), log *slog.Logger) *Navigator {
	return &Navigator{store: store, live: live, shown: shown, emit: emit, log: log}
}

// NavigateTo makes sceneID current and gets the engine to load it. A missing
// target returns a *core.NavigationError and changes nothing. Engine failures
// are logged and do not roll back the store.
//
// An engine showing another scene is rebuilt by the next sync, so it is not
// sent LoadScene; only the engine already showing sceneID reloads in place.
func (n *Navigator) NavigateTo(sceneID string) error {
	if _, ok := n.store.Snapshot().Scene(sceneID); !ok {
		err := &core.NavigationError{SceneID: sceneID, Err: core.ErrDanglingSceneReference}
		n.log.Error("navigation aborted", "error", err)
		n.emit(core.Event{Type: core.EventNavigationFailed, SceneID: sceneID, Message: err.Error()})
		return err
	}

	n.store.SetCurrentScene(sceneID)

	eng := n.live()
	if eng == nil {
		n.log.Debug("no live engine, scene will load on next sync", "scene", sceneID)
		return nil
	}
	if n.shown() != sceneID {
		n.log.Debug("engine will be rebuilt for scene", "scene", sceneID, "from", n.shown())
		return nil
	}
	if err := eng.LoadScene(sceneID); err != nil {
		metrics.EngineFailures.WithLabelValues("loadScene").Inc()
		n.log.Error("engine failed to load scene", "scene", sceneID, "error", err)
	}
	return nil
}
