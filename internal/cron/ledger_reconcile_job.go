package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/talentbridge/talentbridge-backend/internal/ledger"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	"github.com/talentbridge/talentbridge-backend/pkg/logger"
	"github.com/talentbridge/talentbridge-backend/pkg/outbox"
	"github.com/talentbridge/talentbridge-backend/pkg/outbox/payloads"
)

const defaultReconcileBatch = 200

// ledgerVerifier is the slice of the ledger service reconciliation needs.
type ledgerVerifier interface {
	AccountIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
	Verify(ctx context.Context, accountID uuid.UUID) (*ledger.ReplayReport, error)
	SetStatus(ctx context.Context, owner ledger.Owner, status enums.AccountStatus) (*ledger.Balance, error)
}

// LedgerReconcileJobParams configures the ledger replay job.
type LedgerReconcileJobParams struct {
	Logger        *logger.Logger
	Ledger        ledgerVerifier
	Notifier      outbox.Notifier
	FreezeOnDrift bool
	BatchSize     int
	Now           func() time.Time
}

// NewLedgerReconcileJob builds the job that replays every virtual account and
// reports accounts whose stored balance cannot be reproduced.
func NewLedgerReconcileJob(params LedgerReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &ledgerReconcileJob{
		logg:     params.Logger,
		ledger:   params.Ledger,
		notifier: params.Notifier,
		freeze:   params.FreezeOnDrift,
		batch:    batch,
		now:      now,
	}, nil
}

type ledgerReconcileJob struct {
	logg     *logger.Logger
	ledger   ledgerVerifier
	notifier outbox.Notifier
	freeze   bool
	batch    int
	now      func() time.Time
}

func (j *ledgerReconcileJob) Name() string { return "ledger-reconcile" }

func (j *ledgerReconcileJob) Run(ctx context.Context) error {
	var (
		errs    error
		scanned int
		drifted int
		after   = uuid.Nil
	)
	for {
		ids, err := j.ledger.AccountIDs(ctx, after, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list accounts: %w", err))
		}
		for _, id := range ids {
			scanned++
			ok, err := j.reconcile(ctx, id)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("account %s: %w", id, err))
				continue
			}
			if !ok {
				drifted++
			}
		}
		if len(ids) < j.batch {
			break
		}
		after = ids[len(ids)-1]
	}

	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"accounts": scanned,
		"drifted":  drifted,
		"freeze":   j.freeze,
	})
	j.logg.Info(reportCtx, "ledger reconcile loop complete")
	return errs
}

// reconcile returns false when the account drifted.
func (j *ledgerReconcileJob) reconcile(ctx context.Context, accountID uuid.UUID) (bool, error) {
	report, err := j.ledger.Verify(ctx, accountID)
	if err != nil {
		return true, err
	}
	if !report.Drifted {
		return true, nil
	}

	frozen := false
	if j.freeze {
		owner := ledger.Owner{Type: report.OwnerType, ID: report.OwnerID}
		if _, err := j.ledger.SetStatus(ctx, owner, enums.AccountStatusFrozen); err != nil {
			return false, fmt.Errorf("freeze drifted account: %w", err)
		}
		frozen = true
	}

	logCtx := j.logg.WithOwner(ctx, string(report.OwnerType), report.OwnerID.String())
	logCtx = j.logg.WithFields(logCtx, map[string]any{
		"account_id":       accountID.String(),
		"stored_balance":   report.StoredBalance.StringFixed(2),
		"replayed_balance": report.ReplayedBalance.StringFixed(2),
		"sequence_gaps":    len(report.SequenceGaps),
		"frozen":           frozen,
	})
	j.logg.Warn(logCtx, "ledger drift detected")

	if j.notifier != nil {
		detected := j.now().UTC()
		j.notifier.Notify(ctx, outbox.DomainEvent{
			EventType:     enums.EventLedgerDriftDetected,
			AggregateType: enums.AggregateVirtualAccount,
			AggregateID:   accountID,
			Data: payloads.LedgerDriftEvent{
				AccountID:       accountID,
				OwnerType:       report.OwnerType,
				OwnerID:         report.OwnerID,
				StoredBalance:   report.StoredBalance,
				ReplayedBalance: report.ReplayedBalance,
				Mismatches:      len(report.Mismatches),
				Frozen:          frozen,
				DetectedAt:      detected,
			},
			OccurredAt: detected,
		})
	}
	return false, nil
}
