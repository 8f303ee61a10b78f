// Package storage persists tour documents into named slots.
package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tour360/editor/internal/observer"
	"github.com/tour360/editor/internal/tour"
	"github.com/tour360/editor/pkg/core"
)

const (
	// DefaultSlot holds the last saved tour.
	DefaultSlot = "tour360_data"
	// VisitedSlot holds the first-visit flag.
	VisitedSlot = "tour360_hasVisited"
)

// ErrSlotEmpty is returned by Load when nothing was saved under a slot.
var ErrSlotEmpty = errors.New("storage slot is empty")

// Backend stores opaque documents by slot name.
type Backend interface {
	Init() error
	Close() error

	Save(slot string, data []byte) error
	Load(slot string) ([]byte, error)
}

// SaveTour writes the store's current tour into slot.
func SaveTour(b Backend, slot string, store *tour.Store) error {
	data, err := tour.Marshal(store.Snapshot())
	if err != nil {
		return err
	}
	if err := b.Save(slot, data); err != nil {
		return fmt.Errorf("save slot %q: %w", slot, err)
	}
	return nil
}

// LoadTour replaces the store's tour with the one saved in slot. The store is
// left untouched when the slot is empty or holds an invalid document.
func LoadTour(b Backend, slot string, store *tour.Store) (core.Tour, error) {
	data, err := b.Load(slot)
	if err != nil {
		return core.Tour{}, err
	}
	return store.Deserialize(string(data))
}

// HasVisited reports whether MarkVisited was ever called on b.
func HasVisited(b Backend) (bool, error) {
	data, err := b.Load(VisitedSlot)
	if errors.Is(err, ErrSlotEmpty) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return string(data) == "true", nil
}

// MarkVisited records the first-visit flag.
func MarkVisited(b Backend) error {
	return b.Save(VisitedSlot, []byte("true"))
}

// Autosave writes every published store version into slot until the
// returned handle is removed. Failures are logged and retried on the next
// change.
func Autosave(b Backend, slot string, store *tour.Store, log *slog.Logger) observer.Handle {
	return store.Subscribe(func(c tour.Change) {
		data, err := tour.Marshal(c.Tour)
		if err == nil {
			err = b.Save(slot, data)
		}
		if err != nil {
			log.Error("autosave failed", "slot", slot, "version", c.Version, "error", err)
			return
		}
		log.Debug("autosaved tour", "slot", slot, "version", c.Version)
	})
}
