package viewer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/tour360/editor/internal/engine"
	"github.com/tour360/editor/internal/tour"
	"github.com/tour360/editor/pkg/core"
)

// DefaultDragDeadZone is the pointer travel in pixels beyond which a press
// counts as a drag rather than a click.
const DefaultDragDeadZone = 4.0

// NoticeHotspotCreated is the confirmation shown after a commit.
const NoticeHotspotCreated = "Hotspot created successfully"

var (
	ErrNoPendingDraft = errors.New("no pending hotspot draft")
	ErrInvalidTarget  = errors.New("invalid target scene")
)

// State of the hotspot creation flow.
type State int

const (
	StateIdle State = iota
	StateCaptureArmed
	StateAwaitingTarget
	StateCommitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCaptureArmed:
		return "capture_armed"
	case StateAwaitingTarget:
		return "awaiting_target"
	case StateCommitting:
		return "committing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText lets State appear by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CommitAction selects what a pending draft produces on commit.
type CommitAction string

const (
	CommitLinkScene CommitAction = "link_scene"
)

// PendingHotspotDraft holds captured coordinates until a target scene is chosen.
type PendingHotspotDraft struct {
	Pitch         float64      `json:"pitch"`
	Yaw           float64      `json:"yaw"`
	SourceSceneID string       `json:"sourceSceneId"`
	Action        CommitAction `json:"action"`
	CapturedAt    time.Time    `json:"capturedAt"`
}

// Commit builds the hotspot data for the chosen target.
func (d PendingHotspotDraft) Commit(targetID, targetTitle string) (core.HotSpotDraft, error) {
	switch d.Action {
	case CommitLinkScene:
		if targetTitle == "" {
			targetTitle = "another scene"
		}
		return core.HotSpotDraft{
			Pitch:   d.Pitch,
			Yaw:     d.Yaw,
			Type:    core.HotSpotScene,
			Text:    "Go to " + targetTitle,
			SceneID: targetID,
		}, nil
	default:
		return core.HotSpotDraft{}, fmt.Errorf("unknown commit action %q", d.Action)
	}
}

type pointerState struct {
	down     bool
	startX   float64
	startY   float64
	dragging bool
}

// Creation drives click -> capture -> target selection -> commit.
// It is not safe for concurrent use; Session runs it on its loop.
type Creation struct {
	store    *tour.Store
	resolver *Resolver
	emit     func(core.Event)
	log      *slog.Logger
	deadZone float64

	enabled bool
	state   State
	draft   *PendingHotspotDraft
	ptr     pointerState
}

// NewCreation creates the state machine in Idle.
func NewCreation(store *tour.Store, resolver *Resolver, emit func(core.Event), log *slog.Logger, deadZone float64) *Creation {
	if deadZone <= 0 {
		deadZone = DefaultDragDeadZone
	}
	return &Creation{
		store:    store,
		resolver: resolver,
		emit:     emit,
		log:      log,
		deadZone: deadZone,
	}
}

func (c *Creation) State() State  { return c.state }
func (c *Creation) Enabled() bool { return c.enabled }

// Draft returns the pending draft, if any.
func (c *Creation) Draft() (PendingHotspotDraft, bool) {
	if c.draft == nil {
		return PendingHotspotDraft{}, false
	}
	return *c.draft, true
}

// SetEnabled toggles creation mode. Any pending draft is discarded either way.
func (c *Creation) SetEnabled(on bool) bool {
	if c.enabled == on {
		return false
	}
	c.enabled = on
	c.discard()
	c.ptr = pointerState{}
	c.state = c.rest()
	c.emit(core.Event{Type: core.EventCreationModeChanged, Enabled: on})
	return true
}

// HandlePointer feeds one pointer event. It returns true when the event
// captured coordinates and opened the target chooser.
func (c *Creation) HandlePointer(ev engine.PointerEvent) bool {
	switch ev.Kind {
	case engine.PointerDown:
		if ev.Target == engine.TargetControl {
			c.ptr = pointerState{}
			return false
		}
		c.ptr = pointerState{down: true, startX: ev.X, startY: ev.Y}
	case engine.PointerMove:
		if c.ptr.down && !c.ptr.dragging && math.Hypot(ev.X-c.ptr.startX, ev.Y-c.ptr.startY) > c.deadZone {
			c.ptr.dragging = true
		}
	case engine.PointerUp:
		if c.ptr.down && !c.ptr.dragging && math.Hypot(ev.X-c.ptr.startX, ev.Y-c.ptr.startY) > c.deadZone {
			c.ptr.dragging = true
		}
		// dragging stays set so the click that follows the release is filtered
		c.ptr.down = false
	case engine.PointerClick:
		if !c.enabled {
			return false
		}
		if c.ptr.dragging {
			c.log.Debug("click ignored after drag")
			return false
		}
		return c.capture(ev)
	case engine.PointerDoubleClick:
		if !c.enabled && c.Qualifies(ev) {
			c.SetEnabled(true)
		}
		return c.capture(ev)
	}
	return false
}

// Qualifies reports whether ev lands on bare panorama while a scene is shown.
func (c *Creation) Qualifies(ev engine.PointerEvent) bool {
	if ev.Target == engine.TargetControl || ev.Target == engine.TargetHotspot {
		return false
	}
	_, ok := c.store.Snapshot().CurrentScene()
	return ok
}

func (c *Creation) capture(ev engine.PointerEvent) bool {
	if ev.Target == engine.TargetControl || ev.Target == engine.TargetHotspot {
		return false
	}
	t := c.store.Snapshot()
	src, ok := t.CurrentScene()
	if !ok {
		return false
	}
	pitch, yaw, ok := c.resolver.ResolveClick(ev)
	if !ok {
		return false
	}

	if c.draft != nil {
		c.log.Debug("discarding stale hotspot draft", "scene", c.draft.SourceSceneID)
		c.discard()
	}
	c.draft = &PendingHotspotDraft{
		Pitch:         pitch,
		Yaw:           yaw,
		SourceSceneID: src.ID,
		Action:        CommitLinkScene,
		CapturedAt:    time.Now(),
	}
	c.state = StateAwaitingTarget

	c.emit(core.Event{Type: core.EventClickRegistered, SceneID: src.ID, X: ev.X, Y: ev.Y})
	c.emit(core.Event{
		Type:            core.EventChooserOpened,
		SceneID:         src.ID,
		Candidates:      t.OtherScenes(src.ID),
		ExcludedSceneID: src.ID,
	})
	return true
}

// Candidates returns the scenes a pending draft may link to.
func (c *Creation) Candidates() []core.Scene {
	t := c.store.Snapshot()
	source := t.CurrentSceneID
	if c.draft != nil {
		source = c.draft.SourceSceneID
	}
	return t.OtherScenes(source)
}

// Confirm commits the pending draft as a link to targetID.
func (c *Creation) Confirm(targetID string) (core.HotSpot, error) {
	if c.state != StateAwaitingTarget || c.draft == nil {
		return core.HotSpot{}, ErrNoPendingDraft
	}
	draft := *c.draft
	t := c.store.Snapshot()

	if _, ok := t.Scene(draft.SourceSceneID); !ok {
		c.discard()
		c.state = c.rest()
		return core.HotSpot{}, fmt.Errorf("source scene %q: %w", draft.SourceSceneID, core.ErrDanglingSceneReference)
	}
	target, ok := t.Scene(targetID)
	if !ok || target.ID == draft.SourceSceneID {
		return core.HotSpot{}, fmt.Errorf("%w: %q", ErrInvalidTarget, targetID)
	}

	c.state = StateCommitting
	hd, err := draft.Commit(target.ID, target.Title)
	if err != nil {
		c.state = StateAwaitingTarget
		return core.HotSpot{}, err
	}
	hs, ok := c.store.AddHotSpot(draft.SourceSceneID, hd)
	c.draft = nil
	c.state = c.rest()
	if !ok {
		c.emit(core.Event{Type: core.EventChooserClosed, SceneID: draft.SourceSceneID})
		return core.HotSpot{}, fmt.Errorf("source scene %q: %w", draft.SourceSceneID, core.ErrDanglingSceneReference)
	}

	c.log.Info("hotspot created", "scene", draft.SourceSceneID, "hotspot", hs.ID, "target", target.ID)
	c.emit(core.Event{Type: core.EventChooserClosed, SceneID: draft.SourceSceneID})
	c.emit(core.Event{
		Type:    core.EventHotspotCreated,
		SceneID: draft.SourceSceneID,
		HotSpot: &hs,
		Message: NoticeHotspotCreated,
	})
	return hs, nil
}

// Cancel discards the pending draft. Creation mode is left as it was.
func (c *Creation) Cancel() bool {
	if c.draft == nil {
		return false
	}
	c.discard()
	c.state = c.rest()
	return true
}

func (c *Creation) discard() {
	if c.draft == nil {
		return
	}
	src := c.draft.SourceSceneID
	c.draft = nil
	c.emit(core.Event{Type: core.EventChooserClosed, SceneID: src})
}

func (c *Creation) rest() State {
	if c.enabled {
		return StateCaptureArmed
	}
	return StateIdle
}
