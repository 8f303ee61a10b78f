// Package memory keeps tour slots in a map and mirrors them to JSON files.
package memory

import (
	"fmt"
	"sync"

	"github.com/tour360/editor/internal/config"
	"github.com/tour360/editor/internal/storage"
)

// Backend stores slots in memory. With an output directory configured every
// Save is also exported to disk and Init reloads what was exported.
type Backend struct {
	cfg   config.MemoryConfig
	slots map[string][]byte
	mu    sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:   cfg,
		slots: make(map[string][]byte),
	}
}

// Init reloads previously exported slots.
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	loaded, err := b.importDir()
	if err != nil {
		return fmt.Errorf("reload %s: %w", b.cfg.OutputDir, err)
	}
	for slot, data := range loaded {
		b.slots[slot] = data
	}
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// Save stores a copy of data under slot.
func (b *Backend) Save(slot string, data []byte) error {
	if slot == "" {
		return fmt.Errorf("empty slot name")
	}
	cp := append([]byte(nil), data...)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots[slot] = cp

	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.export(slot, cp)
}

// Load returns a copy of the data saved under slot.
func (b *Backend) Load(slot string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.slots[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrSlotEmpty, slot)
	}
	return append([]byte(nil), data...), nil
}

// Slots returns the names of all stored slots.
func (b *Backend) Slots() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.slots))
	for name := range b.slots {
		names = append(names, name)
	}
	return names
}

var _ storage.Backend = (*Backend)(nil)
