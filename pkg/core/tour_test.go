package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTour() Tour {
	return Tour{
		ID:   "t1",
		Name: "Sample",
		Scenes: []Scene{
			{ID: "a", Title: "Lobby", HotSpots: []HotSpot{
				{ID: "h1", Type: HotSpotScene, SceneID: "b"},
				{ID: "h2", Type: HotSpotScene, SceneID: "b"},
				{ID: "h3", Type: HotSpotInfo, Text: "Desk"},
				{ID: "h4", Type: HotSpotScene, SceneID: "gone"},
			}},
			{ID: "b", Title: "Garden", HotSpots: []HotSpot{}},
		},
		CurrentSceneID: "a",
	}
}

func TestTour_SceneLookup(t *testing.T) {
	tour := sampleTour()

	s, ok := tour.Scene("b")
	require.True(t, ok)
	assert.Equal(t, "Garden", s.Title)

	_, ok = tour.Scene("")
	assert.False(t, ok)

	cur, ok := tour.CurrentScene()
	require.True(t, ok)
	assert.Equal(t, "a", cur.ID)
}

func TestTour_OtherScenes(t *testing.T) {
	tour := sampleTour()

	others := tour.OtherScenes("a")
	require.Len(t, others, 1)
	assert.Equal(t, "b", others[0].ID)

	single := Tour{Scenes: []Scene{{ID: "only"}}}
	assert.Empty(t, single.OtherScenes("only"))
}

func TestTour_LinkedSceneIDs(t *testing.T) {
	tour := sampleTour()
	assert.Equal(t, []string{"b", "gone"}, tour.LinkedSceneIDs("a"))
	assert.Nil(t, tour.LinkedSceneIDs("missing"))
}

func TestTour_CloneIsDeep(t *testing.T) {
	tour := sampleTour()
	clone := tour.Clone()
	require.Equal(t, tour, clone)

	clone.Scenes[0].HotSpots[0].Pitch = 42
	clone.Scenes[1].Title = "changed"
	assert.Equal(t, 0.0, tour.Scenes[0].HotSpots[0].Pitch)
	assert.Equal(t, "Garden", tour.Scenes[1].Title)
}

func TestHotSpotDraft_WithID(t *testing.T) {
	d := HotSpotDraft{Pitch: 1, Yaw: 2, Type: HotSpotScene, Text: "Go to B", SceneID: "b"}
	h := d.WithID("x")
	assert.Equal(t, HotSpot{ID: "x", Pitch: 1, Yaw: 2, Type: HotSpotScene, Text: "Go to B", SceneID: "b"}, h)
}

func TestErrors_Unwrap(t *testing.T) {
	nav := &NavigationError{SceneID: "b", Err: ErrDanglingSceneReference}
	assert.True(t, errors.Is(nav, ErrDanglingSceneReference))
	assert.Contains(t, nav.Error(), `"b"`)

	pe := &ParseError{Reason: "invalid json", Err: errors.New("boom")}
	var target *ParseError
	assert.True(t, errors.As(pe, &target))
	assert.Equal(t, "parse tour document: invalid json: boom", pe.Error())
	assert.Equal(t, "parse tour document: duplicate", (&ParseError{Reason: "duplicate"}).Error())
}
