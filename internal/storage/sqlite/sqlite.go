// Package sqlitestorage implements the storage.Backend interface on SQLite.
// With no database path it keeps an in-memory database, seeds it from the
// last dump and writes periodic dumps via VACUUM INTO.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tour360/editor/internal/config"
	"github.com/tour360/editor/internal/database"
	gormstorage "github.com/tour360/editor/internal/storage/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	log      *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// New opens the database described by cfg.
func New(cfg config.SQLiteConfig, log *slog.Logger) (*Backend, error) {
	db, err := database.GetSqliteDB(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		Backend:  gormstorage.New(db),
		db:       db,
		cfg:      cfg,
		log:      log.With("component", "sqlite"),
		stopChan: make(chan struct{}),
	}, nil
}

func (b *Backend) inMemory() bool {
	return b.cfg.Path == ""
}

// Init migrates the schema, restores the last dump and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if !b.inMemory() || b.cfg.DumpPath == "" {
		return nil
	}

	if err := b.restore(); err != nil {
		return fmt.Errorf("restore %s: %w", b.cfg.DumpPath, err)
	}
	if b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine, writes a final dump and closes the database.
func (b *Backend) Close() error {
	var err error
	b.once.Do(func() {
		close(b.stopChan)
		b.wg.Wait()
		if b.inMemory() && b.cfg.DumpPath != "" {
			if derr := b.Dump(); derr != nil {
				b.log.Error("Final dump failed", "error", derr)
			}
		}
		err = b.Backend.Close()
	})
	return err
}

// Dump writes the in-memory database to the dump path.
func (b *Backend) Dump() error {
	return database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath)
}

// restore copies every slot of an earlier dump into the in-memory database.
func (b *Backend) restore() error {
	if _, err := os.Stat(b.cfg.DumpPath); os.IsNotExist(err) {
		return nil
	}
	src, err := database.GetSqliteDB(b.cfg.DumpPath)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := src.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	if !src.Migrator().HasTable(&gormstorage.Slot{}) {
		return nil
	}
	var rows []gormstorage.Slot
	if err := src.Find(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		if err := b.Save(row.Name, row.Document); err != nil {
			return err
		}
	}
	b.log.Info("Restored slots from dump", "path", b.cfg.DumpPath, "slots", len(rows))
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			} else {
				b.log.Debug("Dumped to disk", "duration", time.Since(start))
			}
		}
	}
}
