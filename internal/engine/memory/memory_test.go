package memory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tour360/editor/internal/engine"
	"github.com/tour360/editor/pkg/core"
)

func TestEngine_DefaultCoordsCenterIsCurrentOrientation(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.Pitch, cfg.Yaw = 5, 30
	e := New(cfg, WithViewport(800, 400))

	coords, err := e.PointerToCoords(engine.PointerEvent{X: 400, Y: 200})
	require.NoError(t, err)
	require.Len(t, coords, 2)
	assert.InDelta(t, 5, coords[0], 1e-9)
	assert.InDelta(t, 30, coords[1], 1e-9)

	coords, err = e.PointerToCoords(engine.PointerEvent{X: 800, Y: 0})
	require.NoError(t, err)
	assert.InDelta(t, 5+25, coords[0], 1e-9)
	assert.InDelta(t, 30+50, coords[1], 1e-9)
}

func TestEngine_RemoteCoordsAndOverride(t *testing.T) {
	e := New(engine.DefaultConfig())
	coords, err := e.PointerToCoords(engine.PointerEvent{Coords: []float64{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, coords)

	e = New(engine.DefaultConfig(), WithCoords(func(engine.PointerEvent) []float64 { return []float64{7} }))
	coords, err = e.PointerToCoords(engine.PointerEvent{})
	require.NoError(t, err)
	assert.Equal(t, []float64{7}, coords)
}

func TestEngine_Markers(t *testing.T) {
	e := New(engine.DefaultConfig())
	clicked := false

	require.NoError(t, e.AddMarker(engine.Marker{ID: "a", OnClick: func() { clicked = true }}))
	require.NoError(t, e.AddMarker(engine.Marker{ID: "b"}))
	assert.Len(t, e.Markers(), 2)

	assert.True(t, e.ClickMarker("a"))
	assert.True(t, clicked)
	assert.False(t, e.ClickMarker("b"), "marker without handler")
	assert.False(t, e.ClickMarker("zzz"))

	require.NoError(t, e.RemoveMarker("b"))
	assert.Error(t, e.RemoveMarker("b"))

	require.NoError(t, e.ClearMarkers())
	assert.Empty(t, e.Markers())
	assert.Equal(t, 1, e.ClearCount())
}

func TestEngine_FailOn(t *testing.T) {
	e := New(engine.DefaultConfig())
	boom := errors.New("boom")

	e.FailOn(OpAddMarker, boom)
	assert.ErrorIs(t, e.AddMarker(engine.Marker{ID: "a"}), boom)

	e.FailOn(OpAddMarker, nil)
	assert.NoError(t, e.AddMarker(engine.Marker{ID: "a"}))

	e.FailMarker("b", boom)
	assert.ErrorIs(t, e.AddMarker(engine.Marker{ID: "b"}), boom)
}

func TestEngine_ManualLoad(t *testing.T) {
	e := New(engine.DefaultConfig(), WithManualLoad())
	calls := 0
	e.OnLoad(func() { calls++ })
	assert.Equal(t, 0, calls)

	e.FinishLoad()
	e.FinishLoad()
	assert.Equal(t, 1, calls)

	e.OnLoad(func() { calls++ })
	assert.Equal(t, 2, calls, "already loaded engines call back immediately")
}

func TestEngine_DestroyRejectsFurtherCalls(t *testing.T) {
	e := New(engine.DefaultConfig())
	require.NoError(t, e.Destroy())
	assert.True(t, e.Destroyed())
	assert.ErrorIs(t, e.LoadScene("a"), core.ErrEngineOperation)
}

func TestEngine_OrientationRoundTrip(t *testing.T) {
	e := New(engine.DefaultConfig())
	pos := core.ViewPosition{Pitch: -10, Yaw: 45, HFOV: 80}

	require.NoError(t, e.SetOrientation(pos, false))
	got, err := e.Orientation()
	require.NoError(t, err)
	assert.Equal(t, pos, got)
	assert.Equal(t, []SetOrientationCall{{Position: pos}}, e.SetOrientationCalls())
}

func TestFactory(t *testing.T) {
	f := NewFactory()
	var factory engine.Factory = f.New

	e1, err := factory(engine.DefaultConfig())
	require.NoError(t, err)
	_, err = factory(engine.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, e1.Destroy())

	assert.Len(t, f.Created(), 2)
	assert.Len(t, f.Live(), 1)
	assert.Same(t, f.Created()[1], f.Last())

	f.Fail(errors.New("no webgl"))
	_, err = factory(engine.DefaultConfig())
	assert.ErrorIs(t, err, core.ErrEngineUnavailable)
}
