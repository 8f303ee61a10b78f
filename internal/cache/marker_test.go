package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tour360/editor/internal/engine"
)

func TestMarkerCache_NewMarkerCache(t *testing.T) {
	cache := NewMarkerCache()

	require.NotNil(t, cache)
	assert.NotNil(t, cache.markers)
	assert.Equal(t, 0, cache.Len())
}

func TestMarkerCache_SetAndGet(t *testing.T) {
	cache := NewMarkerCache()

	cache.Set(engine.Marker{ID: "m1", Pitch: 4, Yaw: 2})

	m, ok := cache.Get("m1")
	require.True(t, ok, "expected to find m1")
	assert.Equal(t, 4.0, m.Pitch)
}

func TestMarkerCache_Get_NotFound(t *testing.T) {
	cache := NewMarkerCache()

	_, ok := cache.Get("nonexistent")
	assert.False(t, ok, "expected not to find nonexistent marker")
}

func TestMarkerCache_OrderAndReplace(t *testing.T) {
	cache := NewMarkerCache()

	cache.Set(engine.Marker{ID: "a"})
	cache.Set(engine.Marker{ID: "b"})
	cache.Set(engine.Marker{ID: "a", Text: "updated"})

	list := cache.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "updated", list[0].Text)
	assert.Equal(t, "b", list[1].ID)
}

func TestMarkerCache_Delete(t *testing.T) {
	cache := NewMarkerCache()

	cache.Set(engine.Marker{ID: "a"})
	cache.Set(engine.Marker{ID: "b"})

	assert.True(t, cache.Delete("a"))
	assert.False(t, cache.Delete("a"))

	_, ok := cache.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []engine.Marker{{ID: "b"}}, cache.List())
}

func TestMarkerCache_Reset(t *testing.T) {
	cache := NewMarkerCache()

	cache.Set(engine.Marker{ID: "a"})
	cache.Reset()

	assert.Equal(t, 0, cache.Len())
	assert.Empty(t, cache.List())
}

func TestMarkerCache_ConcurrentAccess(t *testing.T) {
	cache := NewMarkerCache()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			cache.Set(engine.Marker{ID: fmt.Sprintf("m%d", n)})
		}(i)
		go func(n int) {
			defer wg.Done()
			cache.Get(fmt.Sprintf("m%d", n))
		}(i)
	}

	wg.Wait()
	assert.Equal(t, 100, cache.Len())
}

func TestImageCache(t *testing.T) {
	cache := NewImageCache()

	_, ok := cache.Get("a.jpg")
	assert.False(t, ok)

	cache.Set("a.jpg", "/media/small.jpg")
	got, ok := cache.Get("a.jpg")
	require.True(t, ok)
	assert.Equal(t, "/media/small.jpg", got)
	assert.Equal(t, 1, cache.Len())

	cache.Reset()
	assert.Equal(t, 0, cache.Len())
}
