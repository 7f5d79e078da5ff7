package journal

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"wager-escrow-backend/internal/models"
)

// EventRecord is the persisted form of one engine event. The journal is the
// query-friendly mirror the off-chain collaborators (dashboard, indexer)
// read; the engines never read it back.
type EventRecord struct {
	ID        uint   `gorm:"primaryKey"`
	EventID   string `gorm:"uniqueIndex;size:64"`
	Type      string `gorm:"index;size:64"`
	RefID     string `gorm:"index;size:80"`
	Payload   string `gorm:"type:jsonb"`
	CreatedAt int64  `gorm:"index"`
}

type Journal struct {
	db  *gorm.DB
	log *logrus.Logger
}

func Open(dsn string, log *logrus.Logger) (*Journal, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("migrate event journal: %w", err)
	}
	return &Journal{db: db, log: log}, nil
}

// Publish implements services.EventSink. Journal writes are best-effort:
// a failed insert is logged, never allowed to fail the settlement that
// produced the event.
func (j *Journal) Publish(event *models.Event) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		j.log.WithError(err).WithField("event", event.Type).Error("journal payload marshal failed")
		return
	}

	record := &EventRecord{
		EventID:   event.ID,
		Type:      string(event.Type),
		RefID:     event.RefID,
		Payload:   string(payload),
		CreatedAt: event.CreatedAt,
	}
	if err := j.db.Create(record).Error; err != nil {
		j.log.WithError(err).WithField("event", event.Type).Error("journal insert failed")
	}
}

// Recent returns the latest events for a record id, newest first.
func (j *Journal) Recent(refID string, limit int) ([]EventRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var records []EventRecord
	err := j.db.Where("ref_id = ?", refID).Order("created_at desc").Limit(limit).Find(&records).Error
	return records, err
}
