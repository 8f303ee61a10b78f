package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tour360/editor/internal/config"
	"github.com/tour360/editor/internal/storage/memory"
	sqlitestorage "github.com/tour360/editor/internal/storage/sqlite"
	"github.com/tour360/editor/pkg/core"
)

const demoTour = `{"id":"t1","name":"Demo","currentSceneId":"a","scenes":[
  {"id":"a","title":"Lobby","imageUrl":"a.jpg","hotSpots":[{"id":"h1","pitch":1,"yaw":2,"type":"scene","text":"Go to Garden","sceneId":"b"}]},
  {"id":"b","title":"Garden","imageUrl":"b.jpg","hotSpots":[]}
]}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setup writes a config file pointing the memory backend at a temp dir.
func setup(t *testing.T) (configDir, dataDir string) {
	t.Helper()
	t.Cleanup(viper.Reset)

	configDir = t.TempDir()
	dataDir = filepath.Join(t.TempDir(), "data")
	cfg := map[string]any{
		"logLevel": "error",
		"storage": map[string]any{
			"type":   "memory",
			"slot":   "current",
			"memory": map[string]any{"outputDir": dataDir},
		},
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(configDir, config.FileName), data, 0644))
	return configDir, dataDir
}

func writeDoc(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tour.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestCheck_Valid(t *testing.T) {
	dir, _ := setup(t)
	var out bytes.Buffer

	err := run([]string{"-config", dir, "check", writeDoc(t, demoTour)}, &out, io.Discard)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "ok, 2 scenes, 1 hotspots")
}

func TestCheck_InvalidIsParseError(t *testing.T) {
	dir, _ := setup(t)

	err := run([]string{"-config", dir, "check", writeDoc(t, `{"scenes": 3}`)}, io.Discard, io.Discard)
	require.Error(t, err)
	var pe *core.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestCheck_MissingFile(t *testing.T) {
	dir, _ := setup(t)
	err := run([]string{"-config", dir, "check", filepath.Join(t.TempDir(), "nope.json")}, io.Discard, io.Discard)
	assert.Error(t, err)
}

func TestImportThenExport(t *testing.T) {
	dir, dataDir := setup(t)

	require.NoError(t, run([]string{"-config", dir, "import", writeDoc(t, demoTour)}, io.Discard, io.Discard))
	assert.FileExists(t, filepath.Join(dataDir, "current.json"))

	var out bytes.Buffer
	require.NoError(t, run([]string{"-config", dir, "export"}, &out, io.Discard))

	var got core.Tour
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, "a", got.CurrentSceneID)
	require.Len(t, got.Scenes, 2)
	assert.Equal(t, "b", got.Scenes[0].HotSpots[0].SceneID)
}

func TestImport_RejectsInvalidDocument(t *testing.T) {
	dir, dataDir := setup(t)

	err := run([]string{"-config", dir, "import", writeDoc(t, `{"id":"t","scenes":[{"id":"a"}]}`)}, io.Discard, io.Discard)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dataDir, "current.json"))
}

func TestExport_EmptySlot(t *testing.T) {
	dir, _ := setup(t)
	err := run([]string{"-config", dir, "export"}, io.Discard, io.Discard)
	assert.Error(t, err)
}

func TestRun_UsageErrors(t *testing.T) {
	dir, _ := setup(t)

	err := run([]string{"-config", dir, "teleport"}, io.Discard, io.Discard)
	assert.ErrorContains(t, err, `unknown command "teleport"`)

	err = run([]string{"-config", dir, "import"}, io.Discard, io.Discard)
	assert.ErrorContains(t, err, "usage:")

	err = run([]string{"-nope"}, io.Discard, io.Discard)
	assert.Error(t, err)
}

func TestCreateStorageBackend(t *testing.T) {
	log := quietLogger()

	b, err := createStorageBackend(config.StorageConfig{Type: "memory"}, log)
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	b, err = createStorageBackend(config.StorageConfig{Type: "sqlite"}, log)
	require.NoError(t, err)
	assert.IsType(t, &sqlitestorage.Backend{}, b)
	require.NoError(t, b.Close())

	_, err = createStorageBackend(config.StorageConfig{Type: "redis"}, log)
	assert.ErrorContains(t, err, "unknown storage type")
}

func TestWatchPath(t *testing.T) {
	dir := t.TempDir()
	b := memory.New(config.MemoryConfig{OutputDir: dir})
	assert.Equal(t, filepath.Join(dir, "current.json"), watchPath(b, "current"))

	assert.Empty(t, watchPath(memory.New(config.MemoryConfig{}), "current"))
}

func TestTourContext(t *testing.T) {
	tc := &tourContext{}
	assert.Nil(t, tc.attrs())

	tc.update(core.Tour{Name: "Demo", CurrentSceneID: "a"})
	attrs := tc.attrs()
	require.Len(t, attrs, 2)
	assert.Equal(t, "Demo", attrs[0].Value.String())
	assert.Equal(t, "a", attrs[1].Value.String())
}
