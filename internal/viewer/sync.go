package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/tour360/editor/internal/engine"
	"github.com/tour360/editor/internal/metrics"
	"github.com/tour360/editor/internal/tour"
	"github.com/tour360/editor/pkg/core"
)

// Status of the viewer for the current scene.
type Status string

const (
	StatusNoScene     Status = "no_scene"
	StatusLoading     Status = "loading"
	StatusReady       Status = "ready"
	StatusUnavailable Status = "unavailable"
)

const (
	classBase     = "custom-hotspot"
	classScene    = "scene-hotspot"
	classInfo     = "info-hotspot"
	classSelected = "selected-hotspot"

	defaultSceneTooltip = "Go to another scene"
	defaultInfoTooltip  = "Information"
)

// ImagePreparer turns a scene's image reference into the reference the
// engine should load. It may block.
type ImagePreparer interface {
	Prepare(ctx context.Context, ref string) (string, error)
}

// Preloader warms image preparation for scenes likely to be visited next.
type Preloader interface {
	Preload(ctx context.Context, refs []string)
}

type passthrough struct{}

func (passthrough) Prepare(_ context.Context, ref string) (string, error) { return ref, nil }

// Viewer keeps one engine instance in step with the store's current scene
// and the local hotspot selection. All methods run on the session loop.
type Viewer struct {
	store   *tour.Store
	factory engine.Factory
	images  ImagePreparer
	base    engine.Config
	log     *slog.Logger
	emit    func(core.Event)
	post    func(func()) bool
	onClick func(core.HotSpot)

	ctx      context.Context
	inflight *atomic.Int64

	eng        engine.Engine
	sceneID    string
	imageRef   string
	generation uint64
	loaded     bool
	status     Status
	selected   string
}

func newViewer(s *Session) *Viewer {
	return &Viewer{
		store:    s.store,
		factory:  s.opts.Engines,
		images:   s.opts.Images,
		base:     s.opts.Engine,
		log:      s.log,
		emit:     s.emit,
		post:     s.loop.post,
		onClick:  s.hotspotClicked,
		ctx:      s.ctx,
		inflight: &s.inflight,
		status:   StatusNoScene,
	}
}

// Live returns the engine once it has signaled load, otherwise nil.
func (v *Viewer) Live() engine.Engine {
	if v.eng == nil || !v.loaded {
		return nil
	}
	return v.eng
}

func (v *Viewer) Status() Status   { return v.status }
func (v *Viewer) Selected() string { return v.selected }
func (v *Viewer) SceneID() string  { return v.sceneID }

// Sync reacts to the latest tour snapshot.
func (v *Viewer) Sync(t core.Tour) {
	cur, ok := t.CurrentScene()
	if !ok {
		if v.sceneID != "" || v.eng != nil {
			v.generation++
			v.teardown()
			v.sceneID, v.imageRef, v.selected = "", "", ""
			v.emit(core.Event{Type: core.EventSceneChanged})
		}
		v.status = StatusNoScene
		return
	}
	if cur.ID != v.sceneID || cur.ImageURL != v.imageRef {
		v.show(cur)
		return
	}
	if v.selected != "" {
		if _, ok := cur.HotSpot(v.selected); !ok {
			v.selected = ""
		}
	}
	v.reconcile(cur)
}

// Select changes the highlighted hotspot and re-renders markers.
func (v *Viewer) Select(id string) bool {
	if v.selected == id {
		return false
	}
	v.selected = id
	if cur, ok := v.store.Snapshot().CurrentScene(); ok && cur.ID == v.sceneID {
		v.reconcile(cur)
	}
	return true
}

func (v *Viewer) show(scene core.Scene) {
	sceneChanged := scene.ID != v.sceneID

	v.teardown()
	v.generation++
	gen := v.generation
	v.sceneID = scene.ID
	v.imageRef = scene.ImageURL
	v.status = StatusLoading
	if sceneChanged {
		v.selected = ""
		v.emit(core.Event{Type: core.EventSceneChanged, SceneID: scene.ID})
	}
	v.emit(core.Event{Type: core.EventViewerLoading, SceneID: scene.ID})

	images := v.images
	if images == nil {
		images = passthrough{}
	}
	ref := scene.ImageURL
	v.inflight.Add(1)
	go func() {
		prepared, err := images.Prepare(v.ctx, ref)
		ok := v.post(func() {
			defer v.inflight.Add(-1)
			v.finishShow(gen, scene.ID, ref, prepared, err)
		})
		if !ok {
			v.inflight.Add(-1)
		}
	}()
}

func (v *Viewer) finishShow(gen uint64, sceneID, ref, prepared string, err error) {
	if gen != v.generation || v.store.Snapshot().CurrentSceneID != sceneID {
		v.log.Debug("discarding stale image preparation", "scene", sceneID)
		return
	}
	if err != nil {
		v.log.Warn("image preparation failed, using original", "scene", sceneID, "error", err)
		prepared = ref
	}

	cfg := v.base
	cfg.Panorama = prepared
	cfg.SceneID = sceneID

	if v.factory == nil {
		v.unavailable(sceneID, core.ErrEngineUnavailable)
		return
	}
	eng, err := v.factory(cfg)
	if err != nil {
		v.unavailable(sceneID, err)
		return
	}
	if eng == nil {
		v.unavailable(sceneID, core.ErrEngineUnavailable)
		return
	}

	v.eng = eng
	v.loaded = false
	eng.OnLoad(func() {
		v.post(func() { v.handleLoad(gen) })
	})
}

func (v *Viewer) unavailable(sceneID string, err error) {
	v.status = StatusUnavailable
	v.log.Error("no viewer available", "scene", sceneID, "error", err)
	v.emit(core.Event{Type: core.EventViewerUnavailable, SceneID: sceneID, Message: err.Error()})
}

func (v *Viewer) handleLoad(gen uint64) {
	if gen != v.generation || v.eng == nil || v.loaded {
		return
	}
	v.loaded = true
	v.status = StatusReady
	v.emit(core.Event{Type: core.EventViewerReady, SceneID: v.sceneID})

	t := v.store.Snapshot()
	if cur, ok := t.CurrentScene(); ok && cur.ID == v.sceneID {
		v.reconcile(cur)
		v.preload(t, cur.ID)
	}
}

func (v *Viewer) preload(t core.Tour, sceneID string) {
	p, ok := v.images.(Preloader)
	if !ok {
		return
	}
	var refs []string
	for _, id := range t.LinkedSceneIDs(sceneID) {
		if sc, ok := t.Scene(id); ok && sc.ImageURL != "" {
			refs = append(refs, sc.ImageURL)
		}
	}
	if len(refs) > 0 {
		go p.Preload(v.ctx, refs)
	}
}

// reconcile clears every marker and re-adds one per hotspot. Engine failures
// are logged per call and never stop the batch.
func (v *Viewer) reconcile(scene core.Scene) {
	if v.eng == nil || !v.loaded {
		return
	}
	if err := v.eng.ClearMarkers(); err != nil {
		v.engineFailure("clearMarkers", err)
	}
	for _, h := range scene.HotSpots {
		if err := v.eng.AddMarker(v.marker(h)); err != nil {
			v.engineFailure("addMarker", err, "hotspot", h.ID)
		}
	}
}

func (v *Viewer) marker(h core.HotSpot) engine.Marker {
	class := classBase + " " + classInfo
	text := h.Text
	if h.Type == core.HotSpotScene {
		class = classBase + " " + classScene
		if text == "" {
			text = defaultSceneTooltip
		}
	} else if text == "" {
		text = defaultInfoTooltip
	}
	if h.ID == v.selected {
		class += " " + classSelected
	}

	return engine.Marker{
		ID:       h.ID,
		Pitch:    h.Pitch,
		Yaw:      h.Yaw,
		Type:     h.Type,
		Text:     text,
		CSSClass: class,
		SceneID:  h.SceneID,
		OnClick: func() {
			v.post(func() { v.onClick(h) })
		},
	}
}

func (v *Viewer) engineFailure(op string, err error, attrs ...any) {
	metrics.EngineFailures.WithLabelValues(op).Inc()
	args := append([]any{"op", op, "error", fmt.Errorf("%w: %v", core.ErrEngineOperation, err)}, attrs...)
	v.log.Error("engine operation failed", args...)
}

func (v *Viewer) teardown() {
	if v.eng != nil {
		if err := v.eng.Destroy(); err != nil {
			v.engineFailure("destroy", err)
		}
		v.eng = nil
	}
	v.loaded = false
}

// Close destroys the engine and invalidates pending preparations.
func (v *Viewer) Close() {
	v.generation++
	v.teardown()
	v.status = StatusNoScene
}
