// Package engine defines the narrow capability set the editor needs from a
// panorama rendering engine. Adapters live in sub-packages.
package engine

import (
	"github.com/tour360/editor/pkg/core"
)

// Engine is one live engine instance bound to one render container.
type Engine interface {
	LoadScene(sceneID string) error
	AddMarker(m Marker) error
	RemoveMarker(id string) error
	ClearMarkers() error

	// PointerToCoords converts a pointer event into engine coordinates.
	// A well-formed result is [pitch, yaw].
	PointerToCoords(ev PointerEvent) ([]float64, error)

	Orientation() (core.ViewPosition, error)
	SetOrientation(pos core.ViewPosition, animated bool) error

	// OnLoad registers fn for the engine's load event. Engines that are
	// already loaded call fn right away.
	OnLoad(fn func())

	Destroy() error
}

// Factory creates an engine instance from a config. It returns an error
// wrapping core.ErrEngineUnavailable when no instance can be created.
type Factory func(cfg Config) (Engine, error)

// Config is passed to the engine on creation.
type Config struct {
	Type            string  `json:"type"`
	Panorama        string  `json:"panorama"`
	SceneID         string  `json:"sceneId"`
	HFOV            float64 `json:"hfov"`
	MinHFOV         float64 `json:"minHfov"`
	MaxHFOV         float64 `json:"maxHfov"`
	Pitch           float64 `json:"pitch"`
	Yaw             float64 `json:"yaw"`
	Friction        float64 `json:"friction"`
	AutoLoad        bool    `json:"autoLoad"`
	ShowControls    bool    `json:"showControls"`
	MouseZoom       bool    `json:"mouseZoom"`
	Draggable       bool    `json:"draggable"`
	DoubleClickZoom bool    `json:"doubleClickZoom"`
}

// DefaultConfig returns the stock viewer settings for an equirectangular panorama.
func DefaultConfig() Config {
	return Config{
		Type:            "equirectangular",
		HFOV:            100,
		MinHFOV:         50,
		MaxHFOV:         120,
		Friction:        0.2,
		AutoLoad:        true,
		ShowControls:    true,
		MouseZoom:       true,
		Draggable:       true,
		DoubleClickZoom: false,
	}
}

// Marker is one rendered hotspot.
type Marker struct {
	ID       string           `json:"id"`
	Pitch    float64          `json:"pitch"`
	Yaw      float64          `json:"yaw"`
	Type     core.HotSpotType `json:"type"`
	Text     string           `json:"text"`
	CSSClass string           `json:"cssClass"`
	SceneID  string           `json:"sceneId,omitempty"`

	// OnClick runs when the user clicks the rendered marker.
	OnClick func() `json:"-"`
}

// PointerKind is the kind of pointer event.
type PointerKind string

const (
	PointerDown        PointerKind = "down"
	PointerMove        PointerKind = "move"
	PointerUp          PointerKind = "up"
	PointerClick       PointerKind = "click"
	PointerDoubleClick PointerKind = "dblclick"
)

// Target identifies what a pointer event landed on.
type Target string

const (
	TargetPanorama Target = "panorama"
	TargetControl  Target = "control"
	TargetHotspot  Target = "hotspot"
)

// PointerEvent is a pointer event in viewport pixels.
type PointerEvent struct {
	Kind     PointerKind `json:"kind"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Target   Target      `json:"target"`
	MarkerID string      `json:"markerId,omitempty"`

	// Coords carries a coordinate tuple already computed by a remote engine.
	Coords []float64 `json:"coords,omitempty"`
}
