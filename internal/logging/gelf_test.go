package logging

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	msgs []*gelf.Message
	err  error
}

func (c *captureWriter) WriteMessage(m *gelf.Message) error {
	c.msgs = append(c.msgs, m)
	return c.err
}

func TestGELFHandler_Message(t *testing.T) {
	w := &captureWriter{}
	logger := slog.New(NewGELFHandler(w, slog.LevelDebug))

	logger.With("component", "viewer").WithGroup("hotspot").Warn("marker failed", "id", "h1", "pitch", 10.5, "retry", false, "count", 3)

	require.Len(t, w.msgs, 1)
	m := w.msgs[0]
	assert.Equal(t, "marker failed", m.Short)
	assert.Equal(t, "1.1", m.Version)
	assert.Equal(t, gelfWarning, m.Level)
	assert.Equal(t, ServiceName, m.Facility)
	assert.Equal(t, "viewer", m.Extra["_component"])
	assert.Equal(t, "h1", m.Extra["_hotspot_id"])
	assert.Equal(t, 10.5, m.Extra["_hotspot_pitch"])
	assert.Equal(t, false, m.Extra["_hotspot_retry"])
	assert.Equal(t, int64(3), m.Extra["_hotspot_count"])
}

func TestGELFHandler_LevelFilter(t *testing.T) {
	w := &captureWriter{}
	logger := slog.New(NewGELFHandler(w, slog.LevelWarn))

	logger.Info("dropped")
	logger.Error("kept", "error", errors.New("boom"))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, gelfError, w.msgs[0].Level)
	assert.Equal(t, "boom", w.msgs[0].Extra["_error"])
}

func TestGELFHandler_TimeAndNestedGroups(t *testing.T) {
	w := &captureWriter{}
	h := NewGELFHandler(w, nil)

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "saved", 0)
	r.AddAttrs(slog.Group("tour", slog.String("id", "t1"), slog.Int("scenes", 2)))
	require.NoError(t, h.Handle(context.Background(), r))

	m := w.msgs[0]
	assert.InDelta(t, float64(ts.Unix()), m.TimeUnix, 0.001)
	assert.Equal(t, "t1", m.Extra["_tour_id"])
	assert.Equal(t, int64(2), m.Extra["_tour_scenes"])
}

func TestGELFHandler_InMultiHandler(t *testing.T) {
	w := &captureWriter{err: errors.New("udp down")}
	multi := NewMultiHandler(NewGELFHandler(w, slog.LevelInfo))
	assert.NoError(t, multi.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "x", 0)))
	assert.Len(t, w.msgs, 1)
}

func TestGELFLevel(t *testing.T) {
	assert.Equal(t, gelfDebug, gelfLevel(slog.LevelDebug))
	assert.Equal(t, gelfInfo, gelfLevel(slog.LevelInfo))
	assert.Equal(t, gelfWarning, gelfLevel(slog.LevelWarn))
	assert.Equal(t, gelfError, gelfLevel(slog.LevelError+4))
}
