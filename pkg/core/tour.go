// Package core holds the tour graph domain types shared by every layer:
// the store, the viewer session, storage backends and the wire protocol.
package core

// HotSpotType distinguishes informational markers from scene links.
type HotSpotType string

const (
	HotSpotInfo  HotSpotType = "info"
	HotSpotScene HotSpotType = "scene"
)

// Valid reports whether t is a known hotspot type.
func (t HotSpotType) Valid() bool {
	return t == HotSpotInfo || t == HotSpotScene
}

// HotSpot is a positioned marker on a scene.
// SceneID is only meaningful for scene-type hotspots and may dangle.
type HotSpot struct {
	ID      string      `json:"id"`
	Pitch   float64     `json:"pitch"`
	Yaw     float64     `json:"yaw"`
	Type    HotSpotType `json:"type"`
	Text    string      `json:"text,omitempty"`
	SceneID string      `json:"sceneId,omitempty"`
}

// HotSpotDraft is a hotspot that has not been assigned an id yet.
type HotSpotDraft struct {
	Pitch   float64     `json:"pitch"`
	Yaw     float64     `json:"yaw"`
	Type    HotSpotType `json:"type"`
	Text    string      `json:"text,omitempty"`
	SceneID string      `json:"sceneId,omitempty"`
}

// WithID turns the draft into a hotspot.
func (d HotSpotDraft) WithID(id string) HotSpot {
	return HotSpot{
		ID:      id,
		Pitch:   d.Pitch,
		Yaw:     d.Yaw,
		Type:    d.Type,
		Text:    d.Text,
		SceneID: d.SceneID,
	}
}

// Scene is one panoramic image plus its hotspots.
type Scene struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	ImageURL string    `json:"imageUrl"`
	HotSpots []HotSpot `json:"hotSpots"`
}

// HotSpot returns the hotspot with the given id.
func (s Scene) HotSpot(id string) (HotSpot, bool) {
	for _, h := range s.HotSpots {
		if h.ID == id {
			return h, true
		}
	}
	return HotSpot{}, false
}

// Tour is the ordered scene collection plus the one currently displayed.
// CurrentSceneID is either empty (no scenes) or the id of a scene in Scenes.
type Tour struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Scenes         []Scene `json:"scenes"`
	CurrentSceneID string  `json:"currentSceneId"`
}

// Scene looks up a scene by id.
func (t Tour) Scene(id string) (Scene, bool) {
	if id == "" {
		return Scene{}, false
	}
	for _, s := range t.Scenes {
		if s.ID == id {
			return s, true
		}
	}
	return Scene{}, false
}

// CurrentScene returns the scene referenced by CurrentSceneID.
func (t Tour) CurrentScene() (Scene, bool) {
	return t.Scene(t.CurrentSceneID)
}

// OtherScenes returns every scene except the one with the given id, in tour order.
func (t Tour) OtherScenes(excludeID string) []Scene {
	out := make([]Scene, 0, len(t.Scenes))
	for _, s := range t.Scenes {
		if s.ID != excludeID {
			out = append(out, s)
		}
	}
	return out
}

// LinkedSceneIDs returns the distinct scene ids referenced by scene-type
// hotspots of the given scene. Dangling references are included.
func (t Tour) LinkedSceneIDs(sceneID string) []string {
	s, ok := t.Scene(sceneID)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, h := range s.HotSpots {
		if h.Type != HotSpotScene || h.SceneID == "" {
			continue
		}
		if _, dup := seen[h.SceneID]; dup {
			continue
		}
		seen[h.SceneID] = struct{}{}
		out = append(out, h.SceneID)
	}
	return out
}

// Clone returns a deep copy of the tour.
func (t Tour) Clone() Tour {
	out := t
	if t.Scenes != nil {
		out.Scenes = make([]Scene, len(t.Scenes))
		for i, s := range t.Scenes {
			out.Scenes[i] = s.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the scene.
func (s Scene) Clone() Scene {
	out := s
	if s.HotSpots != nil {
		out.HotSpots = make([]HotSpot, len(s.HotSpots))
		copy(out.HotSpots, s.HotSpots)
	}
	return out
}

// ViewPosition is a snapshot of camera orientation.
type ViewPosition struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	HFOV  float64 `json:"hfov"`
}
