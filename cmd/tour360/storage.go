package main

import (
	"fmt"
	"log/slog"

	"github.com/tour360/editor/internal/config"
	"github.com/tour360/editor/internal/storage"
	"github.com/tour360/editor/internal/storage/memory"
	pgstorage "github.com/tour360/editor/internal/storage/postgres"
	sqlitestorage "github.com/tour360/editor/internal/storage/sqlite"
)

func createStorageBackend(cfg config.StorageConfig, log *slog.Logger) (storage.Backend, error) {
	switch cfg.Type {
	case "postgres":
		backend, err := pgstorage.New(cfg.Postgres, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres backend: %w", err)
		}
		log.Info("Postgres storage backend initialized")
		return backend, nil

	case "sqlite":
		backend, err := sqlitestorage.New(cfg.SQLite, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		log.Info("SQLite storage backend initialized")
		return backend, nil

	case "memory", "":
		log.Info("Memory storage backend initialized", "dir", cfg.Memory.OutputDir)
		return memory.New(cfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// openBackend creates and initializes the configured backend.
func openBackend(cfg config.StorageConfig, log *slog.Logger) (storage.Backend, error) {
	backend, err := createStorageBackend(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.Type, err)
	}
	return backend, nil
}

// watchPath returns the slot file behind backend, or "" when the backend
// keeps slots somewhere the watcher cannot follow.
func watchPath(backend storage.Backend, slot string) string {
	if m, ok := backend.(*memory.Backend); ok {
		return m.Path(slot)
	}
	return ""
}
