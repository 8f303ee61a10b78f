// Package gormstorage implements storage.Backend on any gorm dialect. The
// sqlite and postgres backends wrap it and only differ in how they open the
// connection.
package gormstorage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tour360/editor/internal/storage"
)

// Slot is one saved document.
type Slot struct {
	Name      string         `gorm:"primaryKey;size:128"`
	Document  datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName pins the table name.
func (Slot) TableName() string { return "tour_slots" }

// Backend stores slots in a single table.
type Backend struct {
	db *gorm.DB
}

// New wraps an open connection.
func New(db *gorm.DB) *Backend {
	return &Backend{db: db}
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB { return b.db }

// Init migrates the slot table.
func (b *Backend) Init() error {
	if err := b.db.AutoMigrate(&Slot{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save upserts data under slot. Documents must be valid JSON.
func (b *Backend) Save(slot string, data []byte) error {
	if slot == "" {
		return fmt.Errorf("empty slot name")
	}
	if !json.Valid(data) {
		return fmt.Errorf("slot %q: document is not valid JSON", slot)
	}
	row := Slot{Name: slot, Document: datatypes.JSON(data), UpdatedAt: time.Now()}
	return b.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"document", "updated_at"}),
	}).Create(&row).Error
}

// Load returns the document saved under slot.
func (b *Backend) Load(slot string) ([]byte, error) {
	var row Slot
	err := b.db.Where("name = ?", slot).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrSlotEmpty, slot)
	}
	if err != nil {
		return nil, err
	}
	return []byte(row.Document), nil
}

// Slots lists every saved slot, most recently updated first.
func (b *Backend) Slots() ([]string, error) {
	var names []string
	err := b.db.Model(&Slot{}).Order("updated_at desc").Pluck("name", &names).Error
	return names, err
}

var _ storage.Backend = (*Backend)(nil)
