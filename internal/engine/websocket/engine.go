// Package websocket drives a Pannellum viewer running in a browser shell.
// The Go side sends engine commands over the socket; the browser reports
// load, clicks, camera moves and pointer coordinates back.
package websocket

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tour360/editor/internal/cache"
	"github.com/tour360/editor/internal/engine"
	"github.com/tour360/editor/pkg/core"
	"github.com/tour360/editor/pkg/streaming"
)

// EngineInitPayload asks the browser to create a viewer.
type EngineInitPayload struct {
	Instance uint64        `json:"instance"`
	Config   engine.Config `json:"config"`
}

// AddMarkerPayload asks the browser to render one hotspot.
type AddMarkerPayload struct {
	Instance uint64        `json:"instance"`
	Marker   engine.Marker `json:"marker"`
}

// Remote creates engine instances on one browser connection. At most one
// instance is current; messages for older instances are ignored.
type Remote struct {
	conn   *Conn
	logger *slog.Logger

	mu      sync.Mutex
	next    uint64
	current *Instance
}

// NewRemote binds a Remote to conn.
func NewRemote(conn *Conn, logger *slog.Logger) *Remote {
	return &Remote{conn: conn, logger: logger}
}

// New implements engine.Factory.
func (r *Remote) New(cfg engine.Config) (engine.Engine, error) {
	select {
	case <-r.conn.Done():
		return nil, fmt.Errorf("%w: browser disconnected", core.ErrEngineUnavailable)
	default:
	}

	r.mu.Lock()
	r.next++
	inst := &Instance{
		id:      r.next,
		remote:  r,
		markers: cache.NewMarkerCache(),
		view:    core.ViewPosition{Pitch: cfg.Pitch, Yaw: cfg.Yaw, HFOV: cfg.HFOV},
	}
	r.current = inst
	r.mu.Unlock()

	if err := r.conn.Send(streaming.TypeEngineInit, EngineInitPayload{Instance: inst.id, Config: cfg}); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrEngineUnavailable, err)
	}
	return inst, nil
}

// instance returns the current instance if its id matches, else nil.
func (r *Remote) instance(id uint64) *Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.id != id {
		return nil
	}
	return r.current
}

// Loaded handles engine_loaded.
func (r *Remote) Loaded(id uint64) bool {
	inst := r.instance(id)
	if inst == nil {
		r.logger.Debug("load event for stale engine", "instance", id)
		return false
	}
	inst.finishLoad()
	return true
}

// Failed handles engine_error. The instance stays unloaded.
func (r *Remote) Failed(id uint64, msg string) {
	r.logger.Error("browser engine error", "instance", id, "error", fmt.Errorf("%w: %s", core.ErrEngineOperation, msg))
}

// ViewChanged records the camera orientation reported by the browser.
func (r *Remote) ViewChanged(id uint64, pos core.ViewPosition) bool {
	inst := r.instance(id)
	if inst == nil {
		return false
	}
	inst.mu.Lock()
	inst.view = pos
	inst.mu.Unlock()
	return true
}

// MarkerClicked runs the click handler of a rendered marker.
func (r *Remote) MarkerClicked(id uint64, markerID string) bool {
	inst := r.instance(id)
	if inst == nil {
		return false
	}
	m, ok := inst.markers.Get(markerID)
	if !ok || m.OnClick == nil {
		return false
	}
	m.OnClick()
	return true
}

func (r *Remote) release(inst *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == inst {
		r.current = nil
	}
}

// Instance is one viewer in the browser.
type Instance struct {
	id      uint64
	remote  *Remote
	markers *cache.MarkerCache

	mu        sync.Mutex
	view      core.ViewPosition
	loaded    bool
	onLoad    []func()
	destroyed bool
}

// ID returns the instance number used on the wire.
func (i *Instance) ID() uint64 { return i.id }

func (i *Instance) send(op string, payload any) error {
	i.mu.Lock()
	destroyed := i.destroyed
	i.mu.Unlock()
	if destroyed {
		return fmt.Errorf("%s on destroyed engine: %w", op, core.ErrEngineOperation)
	}
	if err := i.remote.conn.Send(op, payload); err != nil {
		return fmt.Errorf("%s: %w: %v", op, core.ErrEngineOperation, err)
	}
	return nil
}

func (i *Instance) LoadScene(sceneID string) error {
	return i.send(streaming.TypeLoadScene, streaming.LoadScenePayload{Instance: i.id, SceneID: sceneID})
}

func (i *Instance) AddMarker(m engine.Marker) error {
	if err := i.send(streaming.TypeAddMarker, AddMarkerPayload{Instance: i.id, Marker: m}); err != nil {
		return err
	}
	i.markers.Set(m)
	return nil
}

func (i *Instance) RemoveMarker(id string) error {
	if err := i.send(streaming.TypeRemoveMarker, streaming.RemoveMarkerPayload{Instance: i.id, ID: id}); err != nil {
		return err
	}
	i.markers.Delete(id)
	return nil
}

func (i *Instance) ClearMarkers() error {
	if err := i.send(streaming.TypeClearMarkers, streaming.InstancePayload{Instance: i.id}); err != nil {
		return err
	}
	i.markers.Reset()
	return nil
}

// PointerToCoords returns the coordinates the browser computed with the
// engine's own mouse mapping. The browser attaches them to every pointer
// message.
func (i *Instance) PointerToCoords(ev engine.PointerEvent) ([]float64, error) {
	if ev.Coords == nil {
		return nil, fmt.Errorf("pointer event without coordinates: %w", core.ErrInvalidCoordinates)
	}
	return ev.Coords, nil
}

func (i *Instance) Orientation() (core.ViewPosition, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.destroyed {
		return core.ViewPosition{}, fmt.Errorf("orientation on destroyed engine: %w", core.ErrEngineOperation)
	}
	return i.view, nil
}

func (i *Instance) SetOrientation(pos core.ViewPosition, animated bool) error {
	if err := i.send(streaming.TypeSetOrientation, streaming.SetOrientationPayload{Instance: i.id, Position: pos, Animated: animated}); err != nil {
		return err
	}
	i.mu.Lock()
	i.view = pos
	i.mu.Unlock()
	return nil
}

func (i *Instance) OnLoad(fn func()) {
	i.mu.Lock()
	if !i.loaded {
		i.onLoad = append(i.onLoad, fn)
		i.mu.Unlock()
		return
	}
	i.mu.Unlock()
	fn()
}

func (i *Instance) finishLoad() {
	i.mu.Lock()
	if i.loaded || i.destroyed {
		i.mu.Unlock()
		return
	}
	i.loaded = true
	fns := i.onLoad
	i.onLoad = nil
	i.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (i *Instance) Destroy() error {
	i.mu.Lock()
	if i.destroyed {
		i.mu.Unlock()
		return nil
	}
	i.destroyed = true
	i.onLoad = nil
	i.mu.Unlock()

	i.markers.Reset()
	i.remote.release(i)
	if err := i.remote.conn.Send(streaming.TypeDestroy, streaming.InstancePayload{Instance: i.id}); err != nil {
		return fmt.Errorf("destroy: %w: %v", core.ErrEngineOperation, err)
	}
	return nil
}

var _ engine.Engine = (*Instance)(nil)
