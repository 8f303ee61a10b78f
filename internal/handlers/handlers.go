// Package handlers binds browser shell messages to viewer session operations.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tour360/editor/internal/dispatcher"
	"github.com/tour360/editor/internal/engine"
	"github.com/tour360/editor/internal/observer"
	"github.com/tour360/editor/internal/viewer"
	"github.com/tour360/editor/pkg/core"
	"github.com/tour360/editor/pkg/streaming"
)

// ErrNoRemoteEngine is returned for engine_* messages on sessions that do not
// drive a browser engine.
var ErrNoRemoteEngine = errors.New("session has no remote engine")

// EngineEvents receives engine callbacks reported by the browser.
// *websocket.Remote implements it.
type EngineEvents interface {
	Loaded(instance uint64) bool
	Failed(instance uint64, msg string)
	ViewChanged(instance uint64, pos core.ViewPosition) bool
	MarkerClicked(instance uint64, markerID string) bool
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Session *viewer.Session
	Engine  EngineEvents
	Logger  *slog.Logger
}

// Service provides handler methods for browser messages.
type Service struct {
	deps Dependencies
	log  *slog.Logger
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{deps: deps, log: log.With("component", "handlers")}
}

// Register binds every browser message type to d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register(streaming.TypePointer, s.Pointer)
	d.Register(streaming.TypeMarkerClick, s.MarkerClick, dispatcher.Logged())
	d.Register(streaming.TypeEngineLoaded, s.EngineLoaded, dispatcher.Logged())
	d.Register(streaming.TypeEngineError, s.EngineError, dispatcher.Logged())
	d.Register(streaming.TypeViewChanged, s.ViewChanged, dispatcher.Buffered(64))

	d.Register(streaming.TypeChooserConfirm, s.ChooserConfirm, dispatcher.Logged())
	d.Register(streaming.TypeChooserCancel, s.ChooserCancel, dispatcher.Logged())
	d.Register(streaming.TypeToggleCreation, s.ToggleCreation, dispatcher.Logged())
	d.Register(streaming.TypeSelectHotspot, s.SelectHotspot)
	d.Register(streaming.TypeDeleteSelected, s.DeleteSelected, dispatcher.Logged())
	d.Register(streaming.TypeNavigate, s.Navigate, dispatcher.Logged())
	d.Register(streaming.TypeTinyPlanet, s.TinyPlanet)
	d.Register(streaming.TypeSaveView, s.SaveView)
	d.Register(streaming.TypeRestoreView, s.RestoreView)
	d.Register(streaming.TypeState, s.State)
}

// PointerResult tells the browser whether a pointer event opened the chooser.
type PointerResult struct {
	Captured bool `json:"captured"`
}

func (s *Service) Pointer(e dispatcher.Event) (any, error) {
	var ev engine.PointerEvent
	if err := e.Decode(&ev); err != nil {
		return nil, err
	}
	switch ev.Kind {
	case engine.PointerDown, engine.PointerMove, engine.PointerUp, engine.PointerClick, engine.PointerDoubleClick:
	default:
		return nil, fmt.Errorf("unknown pointer kind %q", ev.Kind)
	}
	if ev.Target == "" {
		ev.Target = engine.TargetPanorama
	}
	return PointerResult{Captured: s.deps.Session.HandlePointer(ev)}, nil
}

func (s *Service) MarkerClick(e dispatcher.Event) (any, error) {
	if s.deps.Engine == nil {
		return nil, ErrNoRemoteEngine
	}
	var p streaming.MarkerClickPayload
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	return s.deps.Engine.MarkerClicked(p.Instance, p.ID), nil
}

func (s *Service) EngineLoaded(e dispatcher.Event) (any, error) {
	if s.deps.Engine == nil {
		return nil, ErrNoRemoteEngine
	}
	var p streaming.InstancePayload
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	return s.deps.Engine.Loaded(p.Instance), nil
}

func (s *Service) EngineError(e dispatcher.Event) (any, error) {
	if s.deps.Engine == nil {
		return nil, ErrNoRemoteEngine
	}
	var p streaming.EngineErrorPayload
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	s.deps.Engine.Failed(p.Instance, p.Message)
	return nil, nil
}

func (s *Service) ViewChanged(e dispatcher.Event) (any, error) {
	if s.deps.Engine == nil {
		return nil, ErrNoRemoteEngine
	}
	var p streaming.ViewChangedPayload
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	return s.deps.Engine.ViewChanged(p.Instance, p.Position), nil
}

func (s *Service) ChooserConfirm(e dispatcher.Event) (any, error) {
	var p streaming.ScenePayload
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	hs, err := s.deps.Session.ConfirmTarget(p.SceneID)
	if err != nil {
		return nil, err
	}
	return hs, nil
}

func (s *Service) ChooserCancel(dispatcher.Event) (any, error) {
	return s.deps.Session.CancelTarget(), nil
}

func (s *Service) ToggleCreation(e dispatcher.Event) (any, error) {
	if len(e.Payload) == 0 {
		on, err := s.deps.Session.ToggleCreationMode()
		return streaming.TogglePayload{Enabled: on}, err
	}
	var p streaming.TogglePayload
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	if err := s.deps.Session.SetCreationMode(p.Enabled); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) SelectHotspot(e dispatcher.Event) (any, error) {
	var p streaming.HotspotPayload
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	return nil, s.deps.Session.SelectHotspot(p.ID)
}

func (s *Service) DeleteSelected(dispatcher.Event) (any, error) {
	return s.deps.Session.DeleteSelectedHotspot(), nil
}

func (s *Service) Navigate(e dispatcher.Event) (any, error) {
	var p streaming.ScenePayload
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	return nil, s.deps.Session.NavigateTo(p.SceneID)
}

func (s *Service) TinyPlanet(e dispatcher.Event) (any, error) {
	var p streaming.TogglePayload
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	return p, s.deps.Session.SetTinyPlanet(p.Enabled)
}

func (s *Service) SaveView(dispatcher.Event) (any, error) {
	return s.deps.Session.SaveView(), nil
}

func (s *Service) RestoreView(dispatcher.Event) (any, error) {
	return s.deps.Session.RestoreView(), nil
}

func (s *Service) State(dispatcher.Event) (any, error) {
	return s.deps.Session.State(), nil
}

// Reply dispatches one envelope and builds the answer for the browser.
func Reply(d *dispatcher.Dispatcher, env streaming.Envelope, session string) streaming.Reply {
	result, err := d.Dispatch(dispatcher.Event{
		Command:   env.Type,
		Payload:   env.Payload,
		Session:   session,
		Timestamp: time.Now(),
	})
	if err != nil {
		return streaming.Reply{Type: streaming.TypeError, For: env.Type, Error: err.Error()}
	}
	return streaming.Reply{Type: streaming.TypeAck, For: env.Type, Result: result}
}

// Sender pushes an outbound envelope. *websocket.Conn implements it.
type Sender interface {
	Send(msgType string, payload any) error
}

// Forward relays session events to the browser until the handle is removed.
func Forward(session *viewer.Session, out Sender, log *slog.Logger) observer.Handle {
	return session.Subscribe(func(ev core.Event) {
		if err := out.Send(streaming.TypeEvent, ev); err != nil {
			log.Debug("event not forwarded", "type", ev.Type, "error", err)
		}
	})
}
