// Package streaming defines the websocket protocol between the editor and a
// browser viewer shell.
package streaming

import (
	"encoding/json"

	"github.com/tour360/editor/pkg/core"
)

// Server -> browser commands.
const (
	TypeEngineInit     = "engine_init"
	TypeLoadScene      = "load_scene"
	TypeAddMarker      = "add_marker"
	TypeRemoveMarker   = "remove_marker"
	TypeClearMarkers   = "clear_markers"
	TypeSetOrientation = "set_orientation"
	TypeDestroy        = "destroy"
	TypeEvent          = "event"
	TypeAck            = "ack"
	TypeError          = "error"
)

// Browser -> server messages.
const (
	TypePointer        = "pointer"
	TypeMarkerClick    = "marker_click"
	TypeEngineLoaded   = "engine_loaded"
	TypeEngineError    = "engine_error"
	TypeViewChanged    = "view_changed"
	TypeChooserConfirm = "chooser_confirm"
	TypeChooserCancel  = "chooser_cancel"
	TypeToggleCreation = "toggle_creation"
	TypeSelectHotspot  = "select_hotspot"
	TypeDeleteSelected = "delete_selected"
	TypeNavigate       = "navigate"
	TypeTinyPlanet     = "tiny_planet"
	TypeSaveView       = "save_view"
	TypeRestoreView    = "restore_view"
	TypeState          = "state"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Reply answers one browser message. Type is "ack" or "error".
type Reply struct {
	Type   string `json:"type"`
	For    string `json:"for"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Engine instances are numbered per connection. Messages about a destroyed
// instance are ignored by both sides.

type InstancePayload struct {
	Instance uint64 `json:"instance"`
}

type EngineErrorPayload struct {
	Instance uint64 `json:"instance"`
	Message  string `json:"message"`
}

type LoadScenePayload struct {
	Instance uint64 `json:"instance"`
	SceneID  string `json:"sceneId"`
}

type RemoveMarkerPayload struct {
	Instance uint64 `json:"instance"`
	ID       string `json:"id"`
}

type SetOrientationPayload struct {
	Instance uint64            `json:"instance"`
	Position core.ViewPosition `json:"position"`
	Animated bool              `json:"animated"`
}

type MarkerClickPayload struct {
	Instance uint64 `json:"instance"`
	ID       string `json:"id"`
}

type ViewChangedPayload struct {
	Instance uint64            `json:"instance"`
	Position core.ViewPosition `json:"position"`
}

type ScenePayload struct {
	SceneID string `json:"sceneId"`
}

type HotspotPayload struct {
	ID string `json:"id"`
}

type TogglePayload struct {
	Enabled bool `json:"enabled"`
}
