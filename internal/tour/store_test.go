package tour

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tour360/editor/pkg/core"
)

// seqIDs returns a deterministic id generator: id-1, id-2, ...
func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func assertCurrentSceneInvariant(t *testing.T, tr core.Tour) {
	t.Helper()
	if tr.CurrentSceneID == "" {
		assert.Empty(t, tr.Scenes, "empty current scene with scenes present")
		return
	}
	_, ok := tr.Scene(tr.CurrentSceneID)
	assert.True(t, ok, "current scene %q not in tour", tr.CurrentSceneID)
}

func TestNew_EmptyTour(t *testing.T) {
	s := New(WithIDGenerator(seqIDs()))
	tr := s.Snapshot()

	assert.Equal(t, "id-1", tr.ID)
	assert.Equal(t, DefaultName, tr.Name)
	assert.NotNil(t, tr.Scenes)
	assert.Empty(t, tr.Scenes)
	assert.Empty(t, tr.CurrentSceneID)
	assert.Equal(t, uint64(0), s.Version())
}

func TestAddScene_FirstBecomesCurrent(t *testing.T) {
	s := New(WithIDGenerator(seqIDs()), WithName("Campus"))

	a := s.AddScene("Lobby", "/media/a.jpg")
	b := s.AddScene("Garden", "/media/b.jpg")

	tr := s.Snapshot()
	assert.Equal(t, "Campus", tr.Name)
	require.Len(t, tr.Scenes, 2)
	assert.Equal(t, a.ID, tr.CurrentSceneID)
	assert.Equal(t, "Garden", tr.Scenes[1].Title)
	assert.NotNil(t, b.HotSpots)
	assert.Empty(t, b.HotSpots)
	assert.Equal(t, uint64(2), s.Version())
}

func TestRemoveScene_ReassignsCurrent(t *testing.T) {
	s := New(WithIDGenerator(seqIDs()))
	a := s.AddScene("A", "a.jpg")
	b := s.AddScene("B", "b.jpg")
	c := s.AddScene("C", "c.jpg")

	s.SetCurrentScene(b.ID)
	s.RemoveScene(b.ID)
	assert.Equal(t, a.ID, s.Snapshot().CurrentSceneID)

	s.RemoveScene(c.ID)
	assert.Equal(t, a.ID, s.Snapshot().CurrentSceneID, "removing a non-current scene keeps current")

	s.RemoveScene(a.ID)
	assert.Equal(t, "", s.Snapshot().CurrentSceneID)
	assert.Empty(t, s.Snapshot().Scenes)
}

func TestRemoveScene_AbsentIsNoop(t *testing.T) {
	s := New()
	s.AddScene("A", "a.jpg")
	v := s.Version()

	s.RemoveScene("missing")
	assert.Equal(t, v, s.Version())
}

func TestRemoveScene_KeepsDanglingHotspots(t *testing.T) {
	s := New(WithIDGenerator(seqIDs()))
	a := s.AddScene("A", "a.jpg")
	b := s.AddScene("B", "b.jpg")
	hs, ok := s.AddHotSpot(a.ID, core.HotSpotDraft{Type: core.HotSpotScene, SceneID: b.ID})
	require.True(t, ok)

	s.RemoveScene(b.ID)

	scene, ok := s.Snapshot().Scene(a.ID)
	require.True(t, ok)
	got, ok := scene.HotSpot(hs.ID)
	require.True(t, ok)
	assert.Equal(t, b.ID, got.SceneID)
}

func TestUpdateScene(t *testing.T) {
	s := New(WithIDGenerator(seqIDs()))
	a := s.AddScene("A", "a.jpg")
	before := s.Snapshot()

	a.Title = "Atrium"
	a.HotSpots = nil
	s.UpdateScene(a)

	got, _ := s.Snapshot().Scene(a.ID)
	assert.Equal(t, "Atrium", got.Title)
	assert.NotNil(t, got.HotSpots)
	assert.Equal(t, "A", before.Scenes[0].Title, "earlier snapshot must not change")

	v := s.Version()
	s.UpdateScene(core.Scene{ID: "missing", Title: "x"})
	assert.Equal(t, v, s.Version())
}

func TestSetCurrentScene_Unconditional(t *testing.T) {
	s := New()
	s.AddScene("A", "a.jpg")

	s.SetCurrentScene("nowhere")
	assert.Equal(t, "nowhere", s.Snapshot().CurrentSceneID)
}

func TestAddHotSpot(t *testing.T) {
	s := New(WithIDGenerator(seqIDs()))
	a := s.AddScene("A", "a.jpg")

	hs, ok := s.AddHotSpot(a.ID, core.HotSpotDraft{Pitch: 10, Yaw: 20, Type: core.HotSpotInfo, Text: "Desk"})
	require.True(t, ok)
	assert.NotEmpty(t, hs.ID)
	assert.Equal(t, 10.0, hs.Pitch)

	_, ok = s.AddHotSpot("missing", core.HotSpotDraft{Type: core.HotSpotInfo})
	assert.False(t, ok)

	scene, _ := s.Snapshot().Scene(a.ID)
	assert.Equal(t, []core.HotSpot{hs}, scene.HotSpots)
}

func TestAddHotSpot_UniqueIDsWithCollidingGenerator(t *testing.T) {
	// Generator that keeps returning ids already in use.
	ids := []string{"tour", "scene"}
	i := 0
	gen := func() string {
		defer func() { i++ }()
		if i < len(ids) {
			return ids[i]
		}
		return "dup"
	}
	s := New(WithIDGenerator(gen))
	a := s.AddScene("A", "a.jpg")

	seen := map[string]bool{}
	for n := 0; n < 5; n++ {
		hs, ok := s.AddHotSpot(a.ID, core.HotSpotDraft{Type: core.HotSpotInfo})
		require.True(t, ok)
		assert.False(t, seen[hs.ID], "duplicate hotspot id %q", hs.ID)
		seen[hs.ID] = true
	}
}

func TestRemoveHotSpot(t *testing.T) {
	s := New()
	a := s.AddScene("A", "a.jpg")
	h1, _ := s.AddHotSpot(a.ID, core.HotSpotDraft{Type: core.HotSpotInfo})
	h2, _ := s.AddHotSpot(a.ID, core.HotSpotDraft{Type: core.HotSpotInfo})

	s.RemoveHotSpot(a.ID, h1.ID)
	scene, _ := s.Snapshot().Scene(a.ID)
	assert.Equal(t, []core.HotSpot{h2}, scene.HotSpots)

	v := s.Version()
	s.RemoveHotSpot(a.ID, "missing")
	s.RemoveHotSpot("missing", h2.ID)
	assert.Equal(t, v, s.Version())
}

func TestSubscribe_ReceivesVersions(t *testing.T) {
	s := New()
	var got []uint64
	h := s.Subscribe(func(c Change) { got = append(got, c.Version) })

	s.AddScene("A", "a.jpg")
	s.SetName("Renamed")
	s.SetName("Renamed")
	h.Remove()
	s.AddScene("B", "b.jpg")

	assert.Equal(t, []uint64{1, 2}, got)
}

func TestSubscribe_CanReadStoreDuringNotify(t *testing.T) {
	s := New()
	var seen core.Tour
	s.Subscribe(func(c Change) { seen = s.Snapshot() })

	s.AddScene("A", "a.jpg")
	assert.Len(t, seen.Scenes, 1)
}

func TestCurrentSceneInvariant_RandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(360))

	for run := 0; run < 50; run++ {
		s := New()
		for step := 0; step < 200; step++ {
			tr := s.Snapshot()
			switch op := rng.Intn(3); {
			case op == 0 || len(tr.Scenes) == 0:
				s.AddScene(fmt.Sprintf("scene %d", step), "img.jpg")
			case op == 1:
				s.RemoveScene(tr.Scenes[rng.Intn(len(tr.Scenes))].ID)
			default:
				// removing an unknown id must not disturb the invariant either
				s.RemoveScene(fmt.Sprintf("unknown-%d", step))
			}
			assertCurrentSceneInvariant(t, s.Snapshot())
		}
	}
}
