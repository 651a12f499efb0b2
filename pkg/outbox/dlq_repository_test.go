package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-backend/pkg/db/dbtest"
	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

func exhaustedEvent(t *testing.T, db *gorm.DB) models.OutboxEvent {
	t.Helper()
	msg := "topic not found"
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventWithdrawalCompleted,
		AggregateType: enums.AggregateWithdrawal,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		AttemptCount:  10,
		LastError:     &msg,
	}
	require.NoError(t, NewRepository(db).Insert(db, event))
	return event
}

func deadLetter(t *testing.T, db *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, failedAt time.Time) {
	t.Helper()
	msg := "publish failed"
	require.NoError(t, NewDLQRepository(db).InsertTx(db, models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      failedAt,
	}))
}

func TestRequeueResetsAttemptBudget(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	dlq := NewDLQRepository(db)
	repo := NewRepository(db)

	event := exhaustedEvent(t, db)
	deadLetter(t, db, event, enums.OutboxDLQReasonMaxAttempts, time.Now().UTC())

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return dlq.RequeueTx(tx, event.ID)
	}))

	row, err := repo.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Zero(t, row.AttemptCount)
	assert.Nil(t, row.LastError)

	entry, err := dlq.FindByEventID(ctx, event.ID)
	require.NoError(t, err)
	assert.Nil(t, entry)

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, event.ID, rows[0].ID)
}

func TestRequeueRestoresRowRemovedByRetention(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	dlq := NewDLQRepository(db)

	event := exhaustedEvent(t, db)
	deadLetter(t, db, event, enums.OutboxDLQReasonNonRetryable, time.Now().UTC())
	require.NoError(t, db.Delete(&models.OutboxEvent{}, "id = ?", event.ID).Error)

	require.NoError(t, dlq.RequeueTx(db, event.ID))

	row, err := NewRepository(db).FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.AggregateID, row.AggregateID)
	assert.Equal(t, event.EventType, row.EventType)
	assert.JSONEq(t, string(event.Payload), string(row.Payload))
}

func TestRequeueUnknownEvent(t *testing.T) {
	db := dbtest.Open(t)
	assert.ErrorIs(t, NewDLQRepository(db).RequeueTx(db, uuid.New()), ErrNotDeadLettered)
}

func TestListByReasonNewestFirst(t *testing.T) {
	db := dbtest.Open(t)
	dlq := NewDLQRepository(db)
	now := time.Now().UTC()

	older := exhaustedEvent(t, db)
	newer := exhaustedEvent(t, db)
	other := exhaustedEvent(t, db)
	deadLetter(t, db, older, enums.OutboxDLQReasonMaxAttempts, now.Add(-time.Hour))
	deadLetter(t, db, newer, enums.OutboxDLQReasonMaxAttempts, now)
	deadLetter(t, db, other, enums.OutboxDLQReasonNonRetryable, now)

	entries, err := dlq.ListByReason(context.Background(), enums.OutboxDLQReasonMaxAttempts, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, newer.ID, entries[0].EventID)
	assert.Equal(t, older.ID, entries[1].EventID)

	all, err := dlq.ListByReason(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestInsertClipsLongErrors(t *testing.T) {
	db := dbtest.Open(t)
	dlq := NewDLQRepository(db)
	event := exhaustedEvent(t, db)

	long := make([]byte, maxLastErrorLen*2)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	require.NoError(t, dlq.InsertTx(db, models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &msg,
		FailedAt:      time.Now().UTC(),
	}))

	entry, err := dlq.FindByEventID(context.Background(), event.ID)
	require.NoError(t, err)
	require.NotNil(t, entry.ErrorMessage)
	assert.Len(t, *entry.ErrorMessage, maxLastErrorLen)
}
