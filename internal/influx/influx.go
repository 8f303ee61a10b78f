// Package influx records viewer domain events as InfluxDB points. Without a
// reachable server the points go to a gzip line-protocol backup file.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"

	"github.com/tour360/editor/internal/config"
	"github.com/tour360/editor/pkg/core"
)

const (
	// Measurement is the measurement every event point is written to.
	Measurement = "tour_events"
	// BackupFile is the backup file name inside the backup directory.
	BackupFile = "tour_events.lp.gz"

	retentionSeconds = 60 * 60 * 24 * 90
)

// Manager handles InfluxDB connections and writes.
type Manager struct {
	cfg    config.InfluxConfig
	log    *slog.Logger
	client influxdb2.Client
	writer influxdb2_api.WriteAPI

	mu           sync.Mutex
	valid        bool
	backupFile   *os.File
	backupWriter *gzip.Writer
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{cfg: cfg, log: log.With("component", "influx")}
}

// Connect establishes a connection to InfluxDB and falls back to the backup
// file when it is disabled or cannot be reached.
func (m *Manager) Connect(ctx context.Context) error {
	if m.cfg.Enabled {
		m.client = influxdb2.NewClientWithOptions(m.cfg.URL(), m.cfg.Token,
			influxdb2.DefaultOptions().
				SetBatchSize(500).
				SetFlushInterval(1000))

		running, err := m.client.Ping(ctx)
		if err == nil && running {
			if err := m.setupOrganizationAndBucket(ctx); err != nil {
				return err
			}
			m.createWriter()
			m.valid = true
			m.log.Info("InfluxDB client initialized", "url", m.cfg.URL(), "bucket", m.cfg.Bucket)
			return nil
		}
		m.log.Warn("InfluxDB unreachable, writing to backup file", "url", m.cfg.URL(), "error", err)
		m.client.Close()
		m.client = nil
	}
	return m.openBackup()
}

func (m *Manager) openBackup() error {
	dir := m.cfg.BackupDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating backup directory: %w", err)
	}
	path := filepath.Join(dir, BackupFile)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backupWriter = gzip.NewWriter(file)
	m.log.Info("Writing event points to backup file", "path", path)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgs := m.client.OrganizationsAPI()

	// ensure org exists
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.log.Info("Organization not found, creating", "org", m.cfg.Org)
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("create organization %s: %w", m.cfg.Org, err)
		}
	}

	// ensure bucket exists with 90 day retention
	if _, err := m.client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err != nil {
		m.log.Info("Bucket not found, creating", "bucket", m.cfg.Bucket)
		rule := domain.RetentionRuleTypeExpire
		_, err = m.client.BucketsAPI().CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retentionSeconds,
		})
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", m.cfg.Bucket, err)
		}
	}
	return nil
}

func (m *Manager) createWriter() {
	m.writer = m.client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.log.Error("Error sending data to InfluxDB", "error", writeErr)
		}
	}(m.writer.Errors())
}

// EventPoint converts a domain event into a point.
func EventPoint(ev core.Event) *influxdb2_write.Point {
	tags := map[string]string{"type": string(ev.Type)}
	if ev.SceneID != "" {
		tags["scene"] = ev.SceneID
	}

	fields := map[string]any{"count": 1}
	switch ev.Type {
	case core.EventClickRegistered:
		fields["x"] = ev.X
		fields["y"] = ev.Y
	case core.EventCreationModeChanged:
		fields["enabled"] = ev.Enabled
	case core.EventChooserOpened:
		fields["candidates"] = len(ev.Candidates)
	}
	if ev.HotSpot != nil {
		fields["hotspot"] = ev.HotSpot.ID
		fields["hotspotType"] = string(ev.HotSpot.Type)
	}
	if ev.Message != "" {
		fields["message"] = ev.Message
	}

	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return influxdb2_write.NewPoint(Measurement, tags, fields, ts)
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid {
		m.writer.WritePoint(point)
		return nil
	}
	if m.backupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.backupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Record is an event sink for viewer sessions. Failures are logged.
func (m *Manager) Record(ev core.Event) {
	if err := m.WritePoint(EventPoint(ev)); err != nil {
		m.log.Debug("Event point dropped", "type", ev.Type, "error", err)
	}
}

// Close flushes pending points and releases the client or backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writer != nil {
		m.writer.Flush()
	}
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	m.valid = false

	var err error
	if m.backupWriter != nil {
		err = m.backupWriter.Close()
		if cerr := m.backupFile.Close(); err == nil {
			err = cerr
		}
		m.backupWriter = nil
		m.backupFile = nil
	}
	return err
}
