package tour

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tour360/editor/pkg/core"
)

const schemaURL = "https://tour360.local/schema/tour.schema.json"

//go:embed tour.schema.json
var schemaDoc []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func documentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaDoc)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Serialize returns the full tour snapshot as JSON text.
func (s *Store) Serialize() (string, error) {
	data, err := Marshal(s.Snapshot())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Deserialize parses a tour document and, on success, replaces the whole
// in-memory tour with it. On failure the current state is left untouched and
// a *core.ParseError is returned.
func (s *Store) Deserialize(data string) (core.Tour, error) {
	t, repaired, err := parse([]byte(data))
	if err != nil {
		return core.Tour{}, err
	}
	if repaired != "" {
		s.log.Warn("imported tour referenced a missing current scene",
			"currentSceneId", repaired, "replacement", t.CurrentSceneID)
	}
	s.Replace(t)
	s.log.Info("tour imported", "tour", t.ID, "scenes", len(t.Scenes))
	return t, nil
}

// Marshal encodes a tour document.
func Marshal(t core.Tour) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal tour: %w", err)
	}
	return data, nil
}

// Parse decodes and validates a tour document without touching any store.
func Parse(data []byte) (core.Tour, error) {
	t, _, err := parse(data)
	return t, err
}

// parse returns the decoded tour and, when the document's currentSceneId named
// no scene, the original value that was replaced.
func parse(data []byte) (core.Tour, string, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return core.Tour{}, "", &core.ParseError{Reason: "invalid json", Err: err}
	}

	sch, err := documentSchema()
	if err != nil {
		return core.Tour{}, "", &core.ParseError{Reason: "schema unavailable", Err: err}
	}
	if err := sch.Validate(raw); err != nil {
		return core.Tour{}, "", &core.ParseError{Reason: "schema violation", Err: err}
	}

	var t core.Tour
	if err := json.Unmarshal(data, &t); err != nil {
		return core.Tour{}, "", &core.ParseError{Reason: "decode", Err: err}
	}

	if t.Scenes == nil {
		t.Scenes = []core.Scene{}
	}
	sceneIDs := make(map[string]struct{}, len(t.Scenes))
	for i := range t.Scenes {
		sc := &t.Scenes[i]
		if _, dup := sceneIDs[sc.ID]; dup {
			return core.Tour{}, "", &core.ParseError{Reason: fmt.Sprintf("duplicate scene id %q", sc.ID)}
		}
		sceneIDs[sc.ID] = struct{}{}

		if sc.HotSpots == nil {
			sc.HotSpots = []core.HotSpot{}
		}
		hotSpotIDs := make(map[string]struct{}, len(sc.HotSpots))
		for _, h := range sc.HotSpots {
			if _, dup := hotSpotIDs[h.ID]; dup {
				return core.Tour{}, "", &core.ParseError{Reason: fmt.Sprintf("duplicate hotspot id %q in scene %q", h.ID, sc.ID)}
			}
			hotSpotIDs[h.ID] = struct{}{}
		}
	}

	var repaired string
	if _, ok := sceneIDs[t.CurrentSceneID]; !ok {
		if t.CurrentSceneID != "" || len(t.Scenes) > 0 {
			repaired = t.CurrentSceneID
			if repaired == "" {
				repaired = "(empty)"
			}
		}
		t.CurrentSceneID = ""
		if len(t.Scenes) > 0 {
			t.CurrentSceneID = t.Scenes[0].ID
		}
	}
	return t, repaired, nil
}
