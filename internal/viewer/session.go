// Package viewer drives one panorama viewer: it turns pointer input into
// hotspots, keeps the engine's markers in step with the tour store, and
// handles scene navigation and camera memory.
//
// A Session owns a single loop goroutine. Every exported Session method runs
// on that loop and waits for it, so the components underneath never see
// concurrent access. Event subscribers are called on the loop and must not
// call back into the Session synchronously.
package viewer

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tour360/editor/internal/engine"
	"github.com/tour360/editor/internal/metrics"
	"github.com/tour360/editor/internal/observer"
	"github.com/tour360/editor/internal/tour"
	"github.com/tour360/editor/pkg/core"
)

var (
	ErrClosed          = errors.New("viewer session closed")
	ErrHotspotNotFound = errors.New("hotspot not found in current scene")
	ErrNoLiveEngine    = errors.New("no live engine")
)

// Options configures a Session.
type Options struct {
	Store   *tour.Store
	Engines engine.Factory
	Images  ImagePreparer
	Logger  *slog.Logger

	// Engine is the base engine config; zero means engine.DefaultConfig().
	Engine       engine.Config
	DragDeadZone float64
}

// Snapshot is a read-only view of session state.
type Snapshot struct {
	CreationMode bool                 `json:"creationMode"`
	State        State                `json:"state"`
	Draft        *PendingHotspotDraft `json:"draft,omitempty"`
	Selected     string               `json:"selectedHotspotId,omitempty"`
	Status       Status               `json:"status"`
	SceneID      string               `json:"sceneId,omitempty"`
	SavedView    *core.ViewPosition   `json:"savedView,omitempty"`
	TinyPlanet   bool                 `json:"tinyPlanet"`
}

// Session is one viewer bound to a store.
type Session struct {
	opts   Options
	store  *tour.Store
	log    *slog.Logger
	loop   *loop
	ctx    context.Context
	cancel context.CancelFunc

	inflight atomic.Int64
	closed   atomic.Bool
	events   observer.Registry[core.Event]
	storeSub observer.Handle

	viewer     *Viewer
	resolver   *Resolver
	creation   *Creation
	nav        *Navigator
	view       *ViewMemory
	tinyPlanet bool
}

// NewSession starts a session and shows the store's current scene.
func NewSession(opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, errors.New("viewer: store is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Engine.Type == "" {
		opts.Engine = engine.DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		opts:   opts,
		store:  opts.Store,
		log:    opts.Logger.With("component", "viewer"),
		loop:   newLoop(),
		ctx:    ctx,
		cancel: cancel,
	}
	s.viewer = newViewer(s)
	s.resolver = NewResolver(s.viewer.Live, s.log)
	s.creation = NewCreation(s.store, s.resolver, s.emit, s.log, opts.DragDeadZone)
	s.nav = NewNavigator(s.store, s.viewer.Live, s.viewer.SceneID, s.emit, s.log)
	s.view = NewViewMemory(s.viewer.Live, s.log)

	s.storeSub = s.store.Subscribe(func(tour.Change) {
		s.loop.post(s.syncStore)
	})
	s.loop.post(s.syncStore)
	metrics.ViewerSessions.Inc()
	return s, nil
}

func (s *Session) syncStore() {
	s.viewer.Sync(s.store.Snapshot())
}

func (s *Session) emit(ev core.Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	s.events.Notify(ev)
}

// Subscribe registers fn for domain events.
func (s *Session) Subscribe(fn func(core.Event)) observer.Handle {
	return s.events.Subscribe(fn)
}

func (s *Session) do(fn func()) error {
	if s.closed.Load() || !s.loop.call(fn) {
		return ErrClosed
	}
	return nil
}

// HandlePointer feeds a viewport pointer event. A press on bare panorama
// clears the hotspot selection. A double-click on bare panorama turns
// creation mode on before capturing.
func (s *Session) HandlePointer(ev engine.PointerEvent) (captured bool) {
	s.do(func() {
		if ev.Kind == engine.PointerDown && ev.Target == engine.TargetPanorama {
			s.selectHotspot("")
		}
		if ev.Kind == engine.PointerDoubleClick && !s.creation.Enabled() && s.creation.Qualifies(ev) {
			s.setCreationMode(true)
		}
		captured = s.creation.HandlePointer(ev)
	})
	return captured
}

// SetCreationMode turns hotspot creation on or off. Entering the mode keeps
// the current camera orientation.
func (s *Session) SetCreationMode(on bool) error {
	return s.do(func() { s.setCreationMode(on) })
}

func (s *Session) setCreationMode(on bool) {
	if s.creation.Enabled() == on {
		return
	}
	if on {
		s.view.Save()
	}
	s.creation.SetEnabled(on)
	s.selectHotspot("")
	if on {
		s.loop.post(func() { s.view.Restore() })
	}
}

// ToggleCreationMode flips creation mode and returns the new value.
func (s *Session) ToggleCreationMode() (bool, error) {
	var on bool
	err := s.do(func() { on = !s.creation.Enabled() })
	if err != nil {
		return false, err
	}
	return on, s.SetCreationMode(on)
}

// Candidates returns the scenes the chooser should offer.
func (s *Session) Candidates() []core.Scene {
	var out []core.Scene
	s.do(func() { out = s.creation.Candidates() })
	return out
}

// ConfirmTarget commits the pending draft as a link to sceneID.
func (s *Session) ConfirmTarget(sceneID string) (core.HotSpot, error) {
	var (
		hs  core.HotSpot
		err error
	)
	if derr := s.do(func() { hs, err = s.creation.Confirm(sceneID) }); derr != nil {
		return core.HotSpot{}, derr
	}
	if err == nil {
		metrics.HotspotsCreated.Inc()
	}
	return hs, err
}

// CancelTarget closes the chooser and drops the pending draft.
func (s *Session) CancelTarget() bool {
	var ok bool
	s.do(func() { ok = s.creation.Cancel() })
	return ok
}

// NavigateTo switches to another scene.
func (s *Session) NavigateTo(sceneID string) error {
	var err error
	if derr := s.do(func() { err = s.nav.NavigateTo(sceneID) }); derr != nil {
		return derr
	}
	return err
}

// SelectHotspot highlights a hotspot of the current scene and centers the
// view on it. An empty id clears the selection.
func (s *Session) SelectHotspot(id string) error {
	var err error
	if derr := s.do(func() { err = s.selectAndFocus(id) }); derr != nil {
		return derr
	}
	return err
}

func (s *Session) selectAndFocus(id string) error {
	if id == "" {
		s.selectHotspot("")
		return nil
	}
	cur, ok := s.store.Snapshot().CurrentScene()
	if !ok {
		return ErrHotspotNotFound
	}
	h, ok := cur.HotSpot(id)
	if !ok {
		return ErrHotspotNotFound
	}
	s.selectHotspot(id)
	if eng := s.viewer.Live(); eng != nil {
		if err := focus(eng, h); err != nil {
			s.log.Warn("could not center view on hotspot", "hotspot", id, "error", err)
		}
	}
	return nil
}

func (s *Session) selectHotspot(id string) {
	if s.viewer.Select(id) {
		s.emit(core.Event{Type: core.EventHotspotSelected, SceneID: s.viewer.SceneID(), Message: id})
	}
}

// hotspotClicked runs when the user clicks a rendered marker.
func (s *Session) hotspotClicked(h core.HotSpot) {
	if h.Type == core.HotSpotScene && h.SceneID != "" {
		if err := s.nav.NavigateTo(h.SceneID); err != nil {
			s.log.Warn("hotspot link not followed", "hotspot", h.ID, "error", err)
		}
		return
	}
	if err := s.selectAndFocus(h.ID); err != nil {
		s.log.Debug("clicked hotspot is gone", "hotspot", h.ID)
	}
}

// DeleteSelectedHotspot removes the selected hotspot from the current scene.
func (s *Session) DeleteSelectedHotspot() bool {
	var deleted bool
	s.do(func() {
		id := s.viewer.Selected()
		sceneID := s.store.Snapshot().CurrentSceneID
		if id == "" || sceneID == "" {
			return
		}
		s.viewer.Select("")
		s.store.RemoveHotSpot(sceneID, id)
		deleted = true
		s.emit(core.Event{Type: core.EventHotspotDeleted, SceneID: sceneID, Message: id})
	})
	return deleted
}

// SaveView stores the current camera orientation.
func (s *Session) SaveView() bool {
	var ok bool
	s.do(func() { ok = s.view.Save() })
	return ok
}

// RestoreView jumps back to the saved orientation.
func (s *Session) RestoreView() bool {
	var ok bool
	s.do(func() { ok = s.view.Restore() })
	return ok
}

// SetTinyPlanet toggles the little-planet projection of the current view.
func (s *Session) SetTinyPlanet(on bool) error {
	var err error
	if derr := s.do(func() {
		eng := s.viewer.Live()
		if eng == nil {
			err = ErrNoLiveEngine
			return
		}
		if err = tinyPlanet(eng, on, s.opts.Engine.HFOV); err == nil {
			s.tinyPlanet = on
		}
	}); derr != nil {
		return derr
	}
	return err
}

// State returns a snapshot of the session.
func (s *Session) State() Snapshot {
	var snap Snapshot
	s.do(func() {
		snap = Snapshot{
			CreationMode: s.creation.Enabled(),
			State:        s.creation.State(),
			Selected:     s.viewer.Selected(),
			Status:       s.viewer.Status(),
			SceneID:      s.viewer.SceneID(),
			TinyPlanet:   s.tinyPlanet,
		}
		if d, ok := s.creation.Draft(); ok {
			snap.Draft = &d
		}
		if v, ok := s.view.Saved(); ok {
			snap.SavedView = &v
		}
	})
	return snap
}

// Engine returns the live engine, or nil. Intended for adapters and tests.
func (s *Session) Engine() engine.Engine {
	var eng engine.Engine
	s.do(func() { eng = s.viewer.Live() })
	return eng
}

// Settle blocks until pending image preparations and queued loop work have
// drained.
func (s *Session) Settle() {
	for !s.closed.Load() {
		if !s.loop.call(func() {}) {
			return
		}
		if s.inflight.Load() == 0 && s.loop.tasks.Len() == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// Close destroys the engine and stops the loop.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.storeSub.Remove()
	s.cancel()
	s.loop.call(s.viewer.Close)
	s.loop.stop()
	metrics.ViewerSessions.Dec()
}
