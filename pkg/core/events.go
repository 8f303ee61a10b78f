package core

import (
	"time"
)

// EventType names a domain event emitted by a viewer session.
type EventType string

const (
	EventClickRegistered     EventType = "click_registered"
	EventChooserOpened       EventType = "chooser_opened"
	EventChooserClosed       EventType = "chooser_closed"
	EventHotspotCreated      EventType = "hotspot_created"
	EventHotspotSelected     EventType = "hotspot_selected"
	EventHotspotDeleted      EventType = "hotspot_deleted"
	EventCreationModeChanged EventType = "creation_mode_changed"
	EventViewerLoading       EventType = "viewer_loading"
	EventViewerReady         EventType = "viewer_ready"
	EventViewerUnavailable   EventType = "viewer_unavailable"
	EventNavigationFailed    EventType = "navigation_failed"
	EventSceneChanged        EventType = "scene_changed"
)

// Event is a notification for presentation layers. Only the fields relevant
// to Type are populated.
type Event struct {
	Type            EventType `json:"type"`
	SceneID         string    `json:"sceneId,omitempty"`
	HotSpot         *HotSpot  `json:"hotSpot,omitempty"`
	X               float64   `json:"x,omitempty"`
	Y               float64   `json:"y,omitempty"`
	Candidates      []Scene   `json:"candidates,omitempty"`
	ExcludedSceneID string    `json:"excludedSceneId,omitempty"`
	Enabled         bool      `json:"enabled,omitempty"`
	Message         string    `json:"message,omitempty"`
	Time            time.Time `json:"time"`
}
