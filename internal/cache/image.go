package cache

import "sync"

// ImageCache maps an original image reference to its prepared reference so
// each panorama is only downscaled once per process.
type ImageCache struct {
	mu   sync.RWMutex
	refs map[string]string
}

func NewImageCache() *ImageCache {
	return &ImageCache{
		refs: make(map[string]string),
	}
}

func (c *ImageCache) Get(ref string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	prepared, ok := c.refs[ref]
	return prepared, ok
}

func (c *ImageCache) Set(ref, prepared string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs[ref] = prepared
}

func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.refs)
}

func (c *ImageCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs = make(map[string]string)
}
