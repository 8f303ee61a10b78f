package cache

import (
	"sync"

	"github.com/tour360/editor/internal/engine"
)

// MarkerCache holds the markers currently rendered by an engine instance,
// keyed by marker id and kept in insertion order.
type MarkerCache struct {
	mu      sync.RWMutex
	markers map[string]engine.Marker
	order   []string
}

// NewMarkerCache creates a new MarkerCache
func NewMarkerCache() *MarkerCache {
	return &MarkerCache{
		markers: make(map[string]engine.Marker),
	}
}

// Get retrieves a marker by id
func (c *MarkerCache) Get(id string) (engine.Marker, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.markers[id]
	return m, ok
}

// Set stores a marker, replacing any marker with the same id in place
func (c *MarkerCache) Set(m engine.Marker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.markers[m.ID]; !exists {
		c.order = append(c.order, m.ID)
	}
	c.markers[m.ID] = m
}

// Delete removes a marker by id. Returns false if it was not present.
func (c *MarkerCache) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.markers[id]; !ok {
		return false
	}
	delete(c.markers, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns all markers in insertion order
func (c *MarkerCache) List() []engine.Marker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]engine.Marker, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.markers[id])
	}
	return out
}

// Len returns the number of cached markers
func (c *MarkerCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.markers)
}

// Reset clears all markers from the cache
func (c *MarkerCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markers = make(map[string]engine.Marker)
	c.order = nil
}
