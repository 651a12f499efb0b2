package outbox

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

// ErrNotDeadLettered is returned by RequeueTx for an event with no DLQ entry.
var ErrNotDeadLettered = errors.New("event is not dead-lettered")

// DLQRepository stores events the publisher gave up on and lets operators
// push them back once the cause is fixed.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		msg := clip(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns nil without error when the event was never dead-lettered.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var entry models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByReason returns the newest entries first. An empty reason lists all.
func (r *DLQRepository) ListByReason(ctx context.Context, reason enums.OutboxDLQErrorReason, limit int) ([]models.OutboxDLQ, error) {
	q := r.db.WithContext(ctx).Order("failed_at DESC").Limit(limit)
	if reason != "" {
		q = q.Where("error_reason = ?", reason)
	}
	var entries []models.OutboxDLQ
	return entries, q.Find(&entries).Error
}

// RequeueTx resets the outbox row so the publisher picks it up again with a
// fresh attempt budget and drops its DLQ entries. Rows already removed by
// retention are rebuilt from the DLQ copy.
func (r *DLQRepository) RequeueTx(tx *gorm.DB, eventID uuid.UUID) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	var entry models.OutboxDLQ
	err := tx.Where("event_id = ?", eventID).Order("failed_at DESC").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotDeadLettered
	}
	if err != nil {
		return err
	}

	res := tx.Model(&models.OutboxEvent{}).
		Where("id = ? AND published_at IS NULL", eventID).
		Updates(map[string]any{"attempt_count": 0, "last_error": nil})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		restored := models.OutboxEvent{
			ID:            entry.EventID,
			EventType:     entry.EventType,
			AggregateType: entry.AggregateType,
			AggregateID:   entry.AggregateID,
			Payload:       entry.Payload,
		}
		if err := tx.Create(&restored).Error; err != nil {
			return err
		}
	}
	return tx.Where("event_id = ?", eventID).Delete(&models.OutboxDLQ{}).Error
}
