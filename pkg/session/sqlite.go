package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/userdeck/userdeck/pkg/errors"
	"github.com/userdeck/userdeck/pkg/types"
)

// pendingRow is the single-row table backing the sqlite session slot
type pendingRow struct {
	ID        int    `gorm:"primaryKey"`
	Blob      string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName sets the table name for the pending row
func (pendingRow) TableName() string {
	return "pending_deletions"
}

// SQLiteSlot persists the pending-deletion blob in a sqlite database
type SQLiteSlot struct {
	db *gorm.DB
}

// NewSQLiteSlot creates a sqlite-backed session slot at the given path
func NewSQLiteSlot(path string) (*SQLiteSlot, error) {
	if path == "" {
		return nil, fmt.Errorf("session database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if err := db.AutoMigrate(&pendingRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}

	return &SQLiteSlot{db: db}, nil
}

// Write persists the blob, replacing any prior content
func (s *SQLiteSlot) Write(blob *types.PendingBlob) error {
	data, err := json.Marshal(blob)
	if err != nil {
		return errors.NewSlotError("failed to encode pending blob", err)
	}

	row := pendingRow{ID: 1, Blob: string(data), UpdatedAt: time.Now()}
	if err := s.db.Save(&row).Error; err != nil {
		return errors.NewSlotError("failed to write session slot", err)
	}
	return nil
}

// Read returns the persisted blob, or nil if the slot is empty
func (s *SQLiteSlot) Read() (*types.PendingBlob, error) {
	var row pendingRow
	result := s.db.First(&row, 1)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, errors.NewSlotError("failed to read session slot", result.Error)
	}

	var blob types.PendingBlob
	if err := json.Unmarshal([]byte(row.Blob), &blob); err != nil {
		return nil, errors.NewSlotCorruptedError(err)
	}
	if err := blob.Validate(); err != nil {
		return nil, errors.NewSlotCorruptedError(err)
	}
	return &blob, nil
}

// Clear erases the slot
func (s *SQLiteSlot) Clear() error {
	if err := s.db.Delete(&pendingRow{}, 1).Error; err != nil {
		return errors.NewSlotError("failed to clear session slot", err)
	}
	return nil
}

// Close releases the database connection
func (s *SQLiteSlot) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
