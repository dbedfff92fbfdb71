package gateway

import (
	"context"
	"errors"
	"time"

	"schedboard/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MySQLBackend stores slot documents as JSON rows in MySQL via GORM.
type MySQLBackend struct {
	db *gorm.DB
}

// NewMySQLBackend creates a backend over an open GORM handle.
func NewMySQLBackend(db *gorm.DB) *MySQLBackend {
	return &MySQLBackend{db: db}
}

func (b *MySQLBackend) Write(ctx context.Context, slot string, doc []byte) error {
	rec := models.SlotRecord{
		Slot:      slot,
		Document:  models.JSON(doc),
		UpdatedAt: time.Now().UTC(),
	}
	return b.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot"}},
			DoUpdates: clause.AssignmentColumns([]string{"document", "updated_at"}),
		}).
		Create(&rec).Error
}

func (b *MySQLBackend) Read(ctx context.Context, slot string) ([]byte, error) {
	var rec models.SlotRecord
	err := b.db.WithContext(ctx).First(&rec, "slot = ?", slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if rec.Document.IsNull() {
		return nil, models.ErrNotFound
	}
	return []byte(rec.Document), nil
}
