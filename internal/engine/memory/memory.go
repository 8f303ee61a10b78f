// Package memory implements a headless engine.Engine. It keeps markers and
// orientation in memory and maps viewport pixels to angles linearly, which is
// enough to drive the editor without a browser.
package memory

import (
	"fmt"
	"sync"

	"github.com/tour360/editor/internal/cache"
	"github.com/tour360/editor/internal/engine"
	"github.com/tour360/editor/pkg/core"
)

// Op names an engine call for fault injection.
type Op string

const (
	OpLoadScene      Op = "loadScene"
	OpAddMarker      Op = "addMarker"
	OpRemoveMarker   Op = "removeMarker"
	OpClearMarkers   Op = "clearMarkers"
	OpPointer        Op = "pointerToCoords"
	OpOrientation    Op = "orientation"
	OpSetOrientation Op = "setOrientation"
	OpDestroy        Op = "destroy"
)

// CoordsFunc converts a pointer event into a coordinate tuple.
type CoordsFunc func(ev engine.PointerEvent) []float64

// Engine is an in-memory engine instance.
type Engine struct {
	mu sync.Mutex

	cfg         engine.Config
	width       float64
	height      float64
	scene       string
	orientation core.ViewPosition
	markers     *cache.MarkerCache
	coords      CoordsFunc
	failures    map[Op]error
	failMarker  map[string]error

	loaded    bool
	autoLoad  bool
	onLoad    []func()
	destroyed bool

	loadCalls  []string
	setCalls   []SetOrientationCall
	clearCount int
}

// SetOrientationCall records one SetOrientation invocation.
type SetOrientationCall struct {
	Position core.ViewPosition
	Animated bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithViewport sets the viewport size used by the default coordinate mapping.
func WithViewport(width, height float64) Option {
	return func(e *Engine) {
		e.width = width
		e.height = height
	}
}

// WithCoords overrides the pointer-to-coordinates mapping.
func WithCoords(fn CoordsFunc) Option {
	return func(e *Engine) {
		e.coords = fn
	}
}

// WithManualLoad keeps the engine unloaded until FinishLoad is called.
func WithManualLoad() Option {
	return func(e *Engine) {
		e.autoLoad = false
	}
}

// New creates an engine for the given config.
func New(cfg engine.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		width:    1000,
		height:   500,
		scene:    cfg.SceneID,
		markers:  cache.NewMarkerCache(),
		failures: make(map[Op]error),
		autoLoad: true,
		orientation: core.ViewPosition{
			Pitch: cfg.Pitch,
			Yaw:   cfg.Yaw,
			HFOV:  cfg.HFOV,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.autoLoad {
		e.loaded = true
	}
	return e
}

// FailOn makes every subsequent call of op return err. A nil err clears it.
func (e *Engine) FailOn(op Op, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.failures, op)
		return
	}
	e.failures[op] = err
}

// FailMarker makes AddMarker fail for one marker id.
func (e *Engine) FailMarker(id string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failMarker == nil {
		e.failMarker = make(map[string]error)
	}
	e.failMarker[id] = err
}

func (e *Engine) check(op Op) error {
	if e.destroyed {
		return fmt.Errorf("%s on destroyed engine: %w", op, core.ErrEngineOperation)
	}
	if err, ok := e.failures[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (e *Engine) LoadScene(sceneID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadCalls = append(e.loadCalls, sceneID)
	if err := e.check(OpLoadScene); err != nil {
		return err
	}
	e.scene = sceneID
	return nil
}

func (e *Engine) AddMarker(m engine.Marker) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.check(OpAddMarker); err != nil {
		return err
	}
	if err, ok := e.failMarker[m.ID]; ok {
		return fmt.Errorf("add marker %s: %w", m.ID, err)
	}
	e.markers.Set(m)
	return nil
}

func (e *Engine) RemoveMarker(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.check(OpRemoveMarker); err != nil {
		return err
	}
	if !e.markers.Delete(id) {
		return fmt.Errorf("marker %s not found: %w", id, core.ErrEngineOperation)
	}
	return nil
}

func (e *Engine) ClearMarkers() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearCount++
	if err := e.check(OpClearMarkers); err != nil {
		return err
	}
	e.markers.Reset()
	return nil
}

// PointerToCoords maps x across the viewport to yaw offsets of ±hfov/2 around
// the current yaw, and y to pitch offsets scaled by the aspect ratio.
func (e *Engine) PointerToCoords(ev engine.PointerEvent) ([]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.check(OpPointer); err != nil {
		return nil, err
	}
	if e.coords != nil {
		return e.coords(ev), nil
	}
	if ev.Coords != nil {
		return ev.Coords, nil
	}
	hfov := e.orientation.HFOV
	vfov := hfov * e.height / e.width
	yaw := e.orientation.Yaw + (ev.X/e.width-0.5)*hfov
	pitch := e.orientation.Pitch - (ev.Y/e.height-0.5)*vfov
	return []float64{pitch, yaw}, nil
}

func (e *Engine) Orientation() (core.ViewPosition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.check(OpOrientation); err != nil {
		return core.ViewPosition{}, err
	}
	return e.orientation, nil
}

func (e *Engine) SetOrientation(pos core.ViewPosition, animated bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setCalls = append(e.setCalls, SetOrientationCall{Position: pos, Animated: animated})
	if err := e.check(OpSetOrientation); err != nil {
		return err
	}
	e.orientation = pos
	return nil
}

// OnLoad registers fn. If the engine already loaded, fn runs immediately.
func (e *Engine) OnLoad(fn func()) {
	e.mu.Lock()
	if !e.loaded {
		e.onLoad = append(e.onLoad, fn)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	fn()
}

// FinishLoad marks the engine loaded and fires pending load callbacks.
func (e *Engine) FinishLoad() {
	e.mu.Lock()
	if e.loaded || e.destroyed {
		e.mu.Unlock()
		return
	}
	e.loaded = true
	fns := e.onLoad
	e.onLoad = nil
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (e *Engine) Destroy() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.check(OpDestroy); err != nil {
		e.destroyed = true
		return err
	}
	e.destroyed = true
	e.markers.Reset()
	e.onLoad = nil
	return nil
}

// ClickMarker simulates the user clicking a rendered marker.
func (e *Engine) ClickMarker(id string) bool {
	e.mu.Lock()
	m, ok := e.markers.Get(id)
	e.mu.Unlock()
	if !ok || m.OnClick == nil {
		return false
	}
	m.OnClick()
	return true
}

// Markers returns the rendered markers in insertion order.
func (e *Engine) Markers() []engine.Marker {
	return e.markers.List()
}

// Config returns the config the engine was created with.
func (e *Engine) Config() engine.Config {
	return e.cfg
}

// Scene returns the last scene id loaded.
func (e *Engine) Scene() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scene
}

// Destroyed reports whether Destroy was called.
func (e *Engine) Destroyed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyed
}

// LoadCalls returns every scene id passed to LoadScene.
func (e *Engine) LoadCalls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.loadCalls...)
}

// SetOrientationCalls returns every SetOrientation invocation.
func (e *Engine) SetOrientationCalls() []SetOrientationCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]SetOrientationCall(nil), e.setCalls...)
}

// ClearCount returns how many times ClearMarkers was called.
func (e *Engine) ClearCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clearCount
}

var _ engine.Engine = (*Engine)(nil)
