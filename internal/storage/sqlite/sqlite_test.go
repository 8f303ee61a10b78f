package sqlitestorage

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tour360/editor/internal/config"
	"github.com/tour360/editor/internal/storage"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tour.db")
	b, err := New(config.SQLiteConfig{Path: path}, quiet())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.Save("current", []byte(`{"a":1}`)))
	require.NoError(t, b.Close())

	again, err := New(config.SQLiteConfig{Path: path}, quiet())
	require.NoError(t, err)
	require.NoError(t, again.Init())
	defer again.Close()
	got, err := again.Load("current")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))
}

func TestInMemory_DumpOnCloseAndRestore(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "dump.db")
	cfg := config.SQLiteConfig{DumpPath: dump}

	b, err := New(cfg, quiet())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.Save("current", []byte(`{"b":2}`)))
	require.NoError(t, b.Close())
	assert.NoError(t, b.Close(), "close is idempotent")

	_, err = os.Stat(dump)
	require.NoError(t, err)

	restored, err := New(cfg, quiet())
	require.NoError(t, err)
	require.NoError(t, restored.Init())
	defer restored.Close()
	got, err := restored.Load("current")
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":2}`, string(got))
}

func TestInMemory_DumpLoop(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "dump.db")
	b, err := New(config.SQLiteConfig{DumpPath: dump, DumpInterval: 10 * time.Millisecond}, quiet())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()
	require.NoError(t, b.Save("current", []byte(`{}`)))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(dump)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInMemory_NoDumpPath(t *testing.T) {
	b, err := New(config.SQLiteConfig{}, quiet())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.Save("current", []byte(`{}`)))
	assert.NoError(t, b.Close())
	assert.Error(t, b.Dump())
}
