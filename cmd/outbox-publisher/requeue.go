package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-backend/pkg/logger"
)

type dlqRequeuer interface {
	RequeueTx(tx *gorm.DB, eventID uuid.UUID) error
}

// requeue moves each listed event out of the DLQ in its own transaction, so
// one unknown id does not hold back the rest. All ids are parsed up front.
func requeue(ctx context.Context, logg *logger.Logger, db dbClient, dlq dlqRequeuer, rawIDs string) error {
	ids, err := parseEventIDs(rawIDs)
	if err != nil {
		return err
	}

	var failed []string
	for _, id := range ids {
		err := db.WithTx(ctx, func(tx *gorm.DB) error {
			return dlq.RequeueTx(tx, id)
		})
		entryCtx := logg.WithField(ctx, "event_id", id.String())
		if err != nil {
			logg.Error(entryCtx, "outbox.requeue_failed", err)
			failed = append(failed, id.String())
			continue
		}
		logg.Info(entryCtx, "outbox.requeued")
	}
	if len(failed) > 0 {
		return fmt.Errorf("requeue failed for %d of %d events: %s", len(failed), len(ids), strings.Join(failed, ","))
	}
	return nil
}

func parseEventIDs(raw string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("invalid event id %q: %w", part, err)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no event ids given")
	}
	return ids, nil
}
