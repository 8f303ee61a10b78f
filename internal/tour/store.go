// Package tour owns the canonical tour graph: tour -> scenes -> hotspots.
//
// Every mutation replaces the stored snapshot with a freshly built one and bumps
// the version, so observers can detect change by comparing versions. Snapshots
// handed out by the store share no mutable state with later snapshots.
package tour

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tour360/editor/internal/observer"
	"github.com/tour360/editor/pkg/core"
)

// DefaultName is used for a new tour when no name option is given.
const DefaultName = "My 360 Tour"

// maxIDAttempts bounds regeneration when the id generator collides.
const maxIDAttempts = 8

// Change is delivered to subscribers after every effective mutation.
type Change struct {
	Tour    core.Tour
	Version uint64
}

// Store holds the tour graph.
type Store struct {
	mu      sync.RWMutex
	tour    core.Tour
	version uint64

	newID     func() string
	log       *slog.Logger
	listeners observer.Registry[Change]
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the id generator (uuid v4 by default).
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// WithName sets the initial tour name.
func WithName(name string) Option {
	return func(s *Store) {
		s.tour.Name = name
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// New creates a store holding an empty tour.
func New(opts ...Option) *Store {
	s := &Store{
		tour:  core.Tour{Name: DefaultName, Scenes: []core.Scene{}},
		newID: uuid.NewString,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tour.ID = s.newID()
	return s
}

// Snapshot returns the current tour. The returned value must be treated as read-only.
func (s *Store) Snapshot() core.Tour {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tour
}

// Version returns the number of effective mutations applied so far.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe registers fn to be called after each effective mutation.
// fn runs in the mutating goroutine, outside the store lock.
func (s *Store) Subscribe(fn func(Change)) observer.Handle {
	return s.listeners.Subscribe(fn)
}

// mutate applies fn to a working copy of the scene slice. fn returns false
// when nothing changed, in which case no version is published.
func (s *Store) mutate(fn func(t *core.Tour) bool) {
	s.mu.Lock()
	next := s.tour
	if !fn(&next) {
		s.mu.Unlock()
		return
	}
	s.tour = next
	s.version++
	change := Change{Tour: next, Version: s.version}
	s.mu.Unlock()

	s.listeners.Notify(change)
}

// AddScene appends a new scene with an empty hotspot list. The first scene
// added to a tour without a current scene becomes current.
func (s *Store) AddScene(title, imageRef string) core.Scene {
	var scene core.Scene
	s.mutate(func(t *core.Tour) bool {
		scene = core.Scene{
			ID:       s.uniqueID(func(id string) bool { _, ok := t.Scene(id); return ok }),
			Title:    title,
			ImageURL: imageRef,
			HotSpots: []core.HotSpot{},
		}
		scenes := make([]core.Scene, 0, len(t.Scenes)+1)
		scenes = append(scenes, t.Scenes...)
		t.Scenes = append(scenes, scene)
		if t.CurrentSceneID == "" {
			t.CurrentSceneID = scene.ID
		}
		return true
	})
	s.log.Debug("scene added", "scene", scene.ID, "title", title)
	return scene
}

// RemoveScene drops a scene. Hotspots elsewhere that link to it are kept.
// If it was current, the first remaining scene becomes current.
func (s *Store) RemoveScene(id string) {
	s.mutate(func(t *core.Tour) bool {
		scenes := make([]core.Scene, 0, len(t.Scenes))
		for _, sc := range t.Scenes {
			if sc.ID != id {
				scenes = append(scenes, sc)
			}
		}
		if len(scenes) == len(t.Scenes) {
			return false
		}
		t.Scenes = scenes
		if t.CurrentSceneID == id {
			t.CurrentSceneID = ""
			if len(scenes) > 0 {
				t.CurrentSceneID = scenes[0].ID
			}
		}
		return true
	})
}

// UpdateScene replaces the scene with the same id. No-op if absent.
func (s *Store) UpdateScene(scene core.Scene) {
	scene = scene.Clone()
	if scene.HotSpots == nil {
		scene.HotSpots = []core.HotSpot{}
	}
	s.mutate(func(t *core.Tour) bool {
		idx := indexOf(t.Scenes, scene.ID)
		if idx < 0 {
			return false
		}
		scenes := make([]core.Scene, len(t.Scenes))
		copy(scenes, t.Scenes)
		scenes[idx] = scene
		t.Scenes = scenes
		return true
	})
}

// SetCurrentScene sets the current scene id without validating it.
// Navigation goes through the viewer's validating wrapper instead.
func (s *Store) SetCurrentScene(id string) {
	s.mutate(func(t *core.Tour) bool {
		if t.CurrentSceneID == id {
			return false
		}
		t.CurrentSceneID = id
		return true
	})
}

// SetName renames the tour.
func (s *Store) SetName(name string) {
	s.mutate(func(t *core.Tour) bool {
		if t.Name == name {
			return false
		}
		t.Name = name
		return true
	})
}

// AddHotSpot appends a hotspot to the named scene with a fresh id that is
// not already used in that scene. Returns false if the scene is absent.
func (s *Store) AddHotSpot(sceneID string, draft core.HotSpotDraft) (core.HotSpot, bool) {
	var (
		hs    core.HotSpot
		added bool
	)
	s.mutate(func(t *core.Tour) bool {
		idx := indexOf(t.Scenes, sceneID)
		if idx < 0 {
			return false
		}
		scene := t.Scenes[idx]
		hs = draft.WithID(s.uniqueID(func(id string) bool { _, ok := scene.HotSpot(id); return ok }))

		hotSpots := make([]core.HotSpot, 0, len(scene.HotSpots)+1)
		hotSpots = append(hotSpots, scene.HotSpots...)
		scene.HotSpots = append(hotSpots, hs)

		scenes := make([]core.Scene, len(t.Scenes))
		copy(scenes, t.Scenes)
		scenes[idx] = scene
		t.Scenes = scenes
		added = true
		return true
	})
	if !added {
		s.log.Warn("hotspot not added, scene not found", "scene", sceneID)
	}
	return hs, added
}

// RemoveHotSpot drops a hotspot from a scene. No-op if either is absent.
func (s *Store) RemoveHotSpot(sceneID, hotSpotID string) {
	s.mutate(func(t *core.Tour) bool {
		idx := indexOf(t.Scenes, sceneID)
		if idx < 0 {
			return false
		}
		scene := t.Scenes[idx]
		hotSpots := make([]core.HotSpot, 0, len(scene.HotSpots))
		for _, h := range scene.HotSpots {
			if h.ID != hotSpotID {
				hotSpots = append(hotSpots, h)
			}
		}
		if len(hotSpots) == len(scene.HotSpots) {
			return false
		}
		scene.HotSpots = hotSpots

		scenes := make([]core.Scene, len(t.Scenes))
		copy(scenes, t.Scenes)
		scenes[idx] = scene
		t.Scenes = scenes
		return true
	})
}

// Replace swaps in a whole tour. Callers are expected to have validated it.
func (s *Store) Replace(t core.Tour) {
	t = t.Clone()
	s.mutate(func(cur *core.Tour) bool {
		*cur = t
		return true
	})
}

func (s *Store) uniqueID(taken func(string) bool) string {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.newID()
		if !taken(id) {
			return id
		}
	}
	base := s.newID()
	for n := 1; ; n++ {
		id := fmt.Sprintf("%s-%d", base, n)
		if !taken(id) {
			return id
		}
	}
}

func indexOf(scenes []core.Scene, id string) int {
	for i := range scenes {
		if scenes[i].ID == id {
			return i
		}
	}
	return -1
}
