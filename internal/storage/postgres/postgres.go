// Package postgres implements the storage.Backend interface on PostgreSQL.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/tour360/editor/internal/config"
	"github.com/tour360/editor/internal/database"
	gormstorage "github.com/tour360/editor/internal/storage/gorm"
)

// Backend wraps the GORM backend with a Postgres connection.
type Backend struct {
	*gormstorage.Backend
	cfg config.PostgresConfig
	log *slog.Logger
}

// New connects to the database described by cfg.
func New(cfg config.PostgresConfig, log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "postgres")
	log.Debug("Connecting to Postgres", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)

	db, err := database.GetPostgresDB(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres DB: %w", err)
	}
	return &Backend{Backend: gormstorage.New(db), cfg: cfg, log: log}, nil
}

// Init migrates the slot table.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	b.log.Info("Connected to database", "database", b.cfg.Database)
	return nil
}
