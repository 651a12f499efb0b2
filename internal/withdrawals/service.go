package withdrawals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-backend/internal/commissions"
	"github.com/talentbridge/talentbridge-backend/internal/ledger"
	"github.com/talentbridge/talentbridge-backend/internal/lockset"
	"github.com/talentbridge/talentbridge-backend/pkg/db"
	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	dbtypes "github.com/talentbridge/talentbridge-backend/pkg/db/types"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
	"github.com/talentbridge/talentbridge-backend/pkg/logger"
	"github.com/talentbridge/talentbridge-backend/pkg/metrics"
	"github.com/talentbridge/talentbridge-backend/pkg/outbox"
	"github.com/talentbridge/talentbridge-backend/pkg/outbox/payloads"
	pkgpagination "github.com/talentbridge/talentbridge-backend/pkg/pagination"
)

// maxCommissionsPerWithdrawal bounds the FOR UPDATE set of one request.
const maxCommissionsPerWithdrawal = 200

// Service runs the payout workflow for consultants and sales agents alike.
type Service interface {
	CalculateBalance(ctx context.Context, owner ledger.Owner) (*BalanceSummary, error)
	Request(ctx context.Context, owner ledger.Owner, input RequestInput) (*Withdrawal, error)
	Cancel(ctx context.Context, id uuid.UUID, owner ledger.Owner) (*Withdrawal, error)
	Approve(ctx context.Context, id uuid.UUID) (*Withdrawal, error)
	Execute(ctx context.Context, id uuid.UUID, owner ledger.Owner) (*Withdrawal, error)
	Complete(ctx context.Context, id uuid.UUID) (*Withdrawal, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*Withdrawal, error)
	Get(ctx context.Context, id uuid.UUID, owner *ledger.Owner) (*Withdrawal, error)
	ListByOwner(ctx context.Context, params ListParams) (*ListResult, error)
}

type ServiceParams struct {
	Repo            Repository
	Commissions     commissions.Repository
	Locks           lockset.Repository
	Ledger          ledger.Service
	Sealer          Sealer
	TxRunner        db.TxRunner
	Notifier        outbox.Notifier
	Logger          *logger.Logger
	Metrics         *metrics.WorkflowMetrics
	DefaultCurrency string
}

type service struct {
	repo            Repository
	commissions     commissions.Repository
	locks           lockset.Repository
	ledger          ledger.Service
	sealer          Sealer
	tx              db.TxRunner
	notifier        outbox.Notifier
	logg            *logger.Logger
	metrics         *metrics.WorkflowMetrics
	defaultCurrency string
}

type transition struct {
	noop    bool
	updates map[string]any
	event   enums.OutboxEventType
	reason  string
	posting *ledger.Posting
}

// NewService wires the withdrawal workflow with its collaborators.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("withdrawals repository required")
	}
	if params.Commissions == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Sealer == nil {
		return nil, fmt.Errorf("payment details sealer required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.DefaultCurrency))
	if len(currency) != 3 {
		return nil, fmt.Errorf("default currency must be a 3-letter code")
	}
	return &service{
		repo:            params.Repo,
		commissions:     params.Commissions,
		locks:           params.Locks,
		ledger:          params.Ledger,
		sealer:          params.Sealer,
		tx:              params.TxRunner,
		notifier:        params.Notifier,
		logg:            params.Logger,
		metrics:         params.Metrics,
		defaultCurrency: currency,
	}, nil
}

// CalculateBalance summarises what the owner can withdraw. Available means
// CONFIRMED and not held by an in-flight withdrawal. The three reads share one
// snapshot so a withdrawal landing between them cannot be counted twice.
func (s *service) CalculateBalance(ctx context.Context, owner ledger.Owner) (*BalanceSummary, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	var (
		rows      []models.Commission
		locks     lockset.Set
		completed []models.CommissionWithdrawal
	)
	err := s.tx.WithReadTx(ctx, func(tx *gorm.DB) error {
		var err error
		if rows, err = s.commissions.WithTx(tx).ListAllByOwner(ctx, owner.Type, owner.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commissions")
		}
		if locks, err = s.locks.WithTx(tx).Load(ctx, owner.Type, owner.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal locks")
		}
		if completed, err = s.repo.WithTx(tx).ListByStatus(ctx, owner.Type, owner.ID, enums.WithdrawalStatusCompleted); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list completed withdrawals")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary := &BalanceSummary{
		OwnerType:            owner.Type,
		OwnerID:              owner.ID,
		Currency:             balanceCurrency(rows, s.defaultCurrency),
		AvailableBalance:     decimal.Zero,
		PendingBalance:       decimal.Zero,
		LockedBalance:        decimal.Zero,
		TotalEarned:          decimal.Zero,
		TotalWithdrawn:       decimal.Zero,
		AvailableCommissions: []commissions.Commission{},
	}
	var foreign []string
	for _, row := range rows {
		if row.Currency != summary.Currency {
			foreign = append(foreign, row.ID.String())
			continue
		}
		if row.Status != enums.CommissionStatusCancelled {
			summary.TotalEarned = summary.TotalEarned.Add(row.Amount)
		}
		switch row.Status {
		case enums.CommissionStatusPending:
			summary.PendingBalance = summary.PendingBalance.Add(row.Amount)
		case enums.CommissionStatusConfirmed:
			if locks.Contains(row.ID) {
				summary.LockedBalance = summary.LockedBalance.Add(row.Amount)
				continue
			}
			summary.AvailableBalance = summary.AvailableBalance.Add(row.Amount)
			summary.AvailableCommissions = append(summary.AvailableCommissions, commissions.FromModel(row, locks))
		}
	}
	for _, w := range completed {
		if w.Currency == summary.Currency {
			summary.TotalWithdrawn = summary.TotalWithdrawn.Add(w.Amount)
		}
	}
	if len(foreign) > 0 && s.logg != nil {
		logCtx := s.logg.WithOwner(ctx, string(owner.Type), owner.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"currency": summary.Currency, "commission_ids": foreign})
		s.logg.Warn(logCtx, "balance excludes commissions in another currency")
	}
	return summary, nil
}

// balanceCurrency is the currency of the owner's ledger account. Credited
// commissions carry it by construction, so the oldest of those decides; an
// owner with nothing credited yet falls back to the oldest live commission.
func balanceCurrency(rows []models.Commission, fallback string) string {
	for _, row := range rows {
		if row.ConfirmedAt != nil {
			return row.Currency
		}
	}
	for _, row := range rows {
		if row.Status != enums.CommissionStatusCancelled {
			return row.Currency
		}
	}
	return fallback
}

// Request creates a PENDING withdrawal over CONFIRMED, unlocked commissions.
// The commission rows stay locked from the eligibility check until the insert
// commits, so a concurrent request for the same commissions waits and then
// sees this withdrawal in its lock set.
func (s *service) Request(ctx context.Context, owner ledger.Owner, input RequestInput) (*Withdrawal, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if err := ledger.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	ids, err := validateCommissionIDs(input.CommissionIDs)
	if err != nil {
		return nil, err
	}
	details := input.PaymentDetails.normalize()
	if err := details.validate(input.PaymentMethod); err != nil {
		return nil, err
	}
	sealed, err := sealDetails(s.sealer, details)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seal payment details")
	}

	now := time.Now().UTC()
	var created *models.CommissionWithdrawal
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.commissions.WithTx(tx).LockForOwner(ctx, owner.Type, owner.ID, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock commissions")
		}
		eligible := confirmedOnly(rows)
		if len(eligible) != len(ids) {
			return ineligible("commissions must be yours and confirmed", missingIDs(ids, eligible))
		}

		locks, err := s.locks.WithTx(tx).Load(ctx, owner.Type, owner.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal locks")
		}
		if held := locks.Intersect(ids); len(held) > 0 {
			return pkgerrors.New(pkgerrors.CodeIneligibleCommissions, "commissions are held by another withdrawal").
				WithDetails(map[string]any{"reason": "locked", "commission_ids": held})
		}

		total := decimal.Zero
		currency := eligible[0].Currency
		for _, c := range eligible {
			if c.Currency != currency {
				return pkgerrors.New(pkgerrors.CodeValidation, "commissions span more than one currency")
			}
			total = total.Add(c.Amount)
		}

		created = &models.CommissionWithdrawal{
			ConsultantID:    owner.ID,
			OwnerType:       owner.Type,
			Amount:          total,
			RequestedAmount: input.Amount,
			Currency:        currency,
			CommissionIDs:   dbtypes.UUIDArray(ids),
			PaymentMethod:   input.PaymentMethod,
			PaymentDetails:  sealed,
			Status:          enums.WithdrawalStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if note := strings.TrimSpace(input.Notes); note != "" {
			line := appendNote(nil, "requested", note, now)
			created.Notes = &line
		}
		if err := s.repo.WithTx(tx).Create(ctx, created); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdrawal")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOwner(ctx, string(owner.Type), owner.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"withdrawal_id":    created.ID.String(),
			"requested_amount": input.Amount.StringFixed(2),
			"amount":           created.Amount.StringFixed(2),
			"payment_fields":   details.keys(),
		})
		if !created.Amount.Equal(input.Amount) {
			s.logg.Warn(logCtx, "withdrawal amount differs from requested amount")
		} else {
			s.logg.Debug(logCtx, "withdrawal payment details sealed")
		}
	}
	s.afterTransition(ctx, *created, "", &transition{event: enums.EventWithdrawalRequested})
	out := fromModel(*created, details.Masked())
	return &out, nil
}

// Cancel lets the owner drop a PENDING withdrawal. Its commissions are released
// because lock membership follows status.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, owner ledger.Owner) (*Withdrawal, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	return s.apply(ctx, id, &owner, func(_ *gorm.DB, w *models.CommissionWithdrawal, now time.Time) (*transition, error) {
		if w.Status != enums.WithdrawalStatusPending {
			return nil, invalidState(w, "only pending withdrawals can be cancelled")
		}
		return &transition{
			updates: map[string]any{
				"status":       enums.WithdrawalStatusCancelled,
				"cancelled_at": now,
				"notes":        appendNote(w.Notes, "cancelled by owner", "", now),
			},
			event: enums.EventWithdrawalCancelled,
		}, nil
	})
}

func (s *service) Approve(ctx context.Context, id uuid.UUID) (*Withdrawal, error) {
	return s.apply(ctx, id, nil, func(_ *gorm.DB, w *models.CommissionWithdrawal, _ time.Time) (*transition, error) {
		if w.Status != enums.WithdrawalStatusPending {
			return nil, invalidState(w, "only pending withdrawals can be approved")
		}
		return &transition{
			updates: map[string]any{"status": enums.WithdrawalStatusApproved},
			event:   enums.EventWithdrawalApproved,
		}, nil
	})
}

// Execute moves an APPROVED withdrawal to PROCESSING and debits the ledger in
// the same transaction. Every referenced commission must still be CONFIRMED.
func (s *service) Execute(ctx context.Context, id uuid.UUID, owner ledger.Owner) (*Withdrawal, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	return s.apply(ctx, id, &owner, func(tx *gorm.DB, w *models.CommissionWithdrawal, now time.Time) (*transition, error) {
		if w.Status != enums.WithdrawalStatusApproved {
			return nil, invalidState(w, "only approved withdrawals can be executed")
		}
		ids := w.CommissionIDs.UUIDs()
		rows, err := s.commissions.WithTx(tx).LockForOwner(ctx, w.OwnerType, w.ConsultantID, ids)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock commissions")
		}
		if eligible := confirmedOnly(rows); len(eligible) != len(ids) {
			return nil, ineligible("commissions changed since the withdrawal was requested", missingIDs(ids, eligible))
		}

		posting, err := s.ledger.DebitTx(ctx, tx, ledger.Entry{
			Owner:       ledger.Owner{Type: w.OwnerType, ID: w.ConsultantID},
			Amount:      w.Amount,
			Type:        enums.TransactionCommissionWithdrawal,
			Reference:   &ledger.Reference{Type: enums.ReferenceWithdrawal, ID: w.ID},
			Description: fmt.Sprintf("withdrawal via %s", w.PaymentMethod),
			Currency:    w.Currency,
		})
		if err != nil {
			return nil, err
		}
		return &transition{
			updates: map[string]any{
				"status":       enums.WithdrawalStatusProcessing,
				"processed_at": now,
			},
			event:   enums.EventWithdrawalProcessing,
			posting: posting,
		}, nil
	})
}

// Complete applies the payout rail's confirmation. The debit already happened
// at execute; the referenced commissions become PAID so they never re-enter the
// available set once the lock is released.
func (s *service) Complete(ctx context.Context, id uuid.UUID) (*Withdrawal, error) {
	return s.apply(ctx, id, nil, func(tx *gorm.DB, w *models.CommissionWithdrawal, now time.Time) (*transition, error) {
		switch w.Status {
		case enums.WithdrawalStatusCompleted:
			return &transition{noop: true}, nil
		case enums.WithdrawalStatusProcessing:
		default:
			return nil, invalidState(w, "only processing withdrawals can be completed")
		}
		if _, err := s.commissions.WithTx(tx).MarkPaid(ctx, w.CommissionIDs.UUIDs(), now); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark commissions paid")
		}
		return &transition{
			updates: map[string]any{
				"status":       enums.WithdrawalStatusCompleted,
				"completed_at": now,
			},
			event: enums.EventWithdrawalCompleted,
		}, nil
	})
}

// Reject is the admin cancellation of a withdrawal that has not been executed.
func (s *service) Reject(ctx context.Context, id uuid.UUID, reason string) (*Withdrawal, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}
	return s.apply(ctx, id, nil, func(_ *gorm.DB, w *models.CommissionWithdrawal, now time.Time) (*transition, error) {
		if w.Status != enums.WithdrawalStatusPending && w.Status != enums.WithdrawalStatusApproved {
			return nil, invalidState(w, "only pending or approved withdrawals can be rejected")
		}
		return &transition{
			updates: map[string]any{
				"status":       enums.WithdrawalStatusCancelled,
				"cancelled_at": now,
				"notes":        appendNote(w.Notes, "rejected", reason, now),
			},
			event:  enums.EventWithdrawalRejected,
			reason: reason,
		}, nil
	})
}

// Get returns a withdrawal. A non-nil owner restricts it to that owner.
func (s *service) Get(ctx context.Context, id uuid.UUID, owner *ledger.Owner) (*Withdrawal, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal")
	}
	if owner != nil && !ownedBy(row, *owner) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "withdrawal belongs to another owner")
	}
	out := s.view(ctx, *row)
	return &out, nil
}

func (s *service) ListByOwner(ctx context.Context, params ListParams) (*ListResult, error) {
	if err := validateOwner(params.Owner); err != nil {
		return nil, err
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid withdrawal status")
	}
	cursor, err := pkgpagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pkgpagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.ListByOwner(ctx, Filter{
		OwnerType: params.Owner.Type,
		OwnerID:   params.Owner.ID,
		Status:    params.Status,
		Cursor:    cursor,
	}, pkgpagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list withdrawals")
	}

	rows, nextCursor := pkgpagination.Trim(rows, limit, func(row models.CommissionWithdrawal) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	items := make([]Withdrawal, len(rows))
	for i, row := range rows {
		items[i] = s.view(ctx, row)
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

type decideFunc func(tx *gorm.DB, w *models.CommissionWithdrawal, now time.Time) (*transition, error)

// apply locks the withdrawal, checks ownership when owner is set and writes the
// decided transition in one transaction. Notifications go out after commit.
func (s *service) apply(ctx context.Context, id uuid.UUID, owner *ledger.Owner, decide decideFunc) (*Withdrawal, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id is required")
	}

	var (
		updated  *models.CommissionWithdrawal
		previous enums.WithdrawalStatus
		decided  *transition
	)
	now := time.Now().UTC()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.LockByID(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock withdrawal")
		}
		if owner != nil && !ownedBy(current, *owner) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "withdrawal belongs to another owner")
		}
		previous = current.Status

		decided, err = decide(tx, current, now)
		if err != nil {
			return err
		}
		if decided.noop {
			updated = current
			return nil
		}
		if err := repo.Update(ctx, id, decided.updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update withdrawal")
		}
		updated, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload withdrawal")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !decided.noop {
		s.afterTransition(ctx, *updated, previous, decided)
	}
	out := s.view(ctx, *updated)
	return &out, nil
}

// view unseals payment details for the masked summary. A blob that no longer
// opens is logged and left out rather than failing the read.
func (s *service) view(ctx context.Context, w models.CommissionWithdrawal) Withdrawal {
	details, err := openDetails(s.sealer, w.PaymentDetails)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "withdrawal_id", w.ID.String()), "open payment details", err)
		}
		return fromModel(w, nil)
	}
	return fromModel(w, details.Masked())
}

func (s *service) afterTransition(ctx context.Context, w models.CommissionWithdrawal, previous enums.WithdrawalStatus, t *transition) {
	amount := 0.0
	var entryID *uuid.UUID
	if t.posting != nil {
		amount = t.posting.Transaction.Amount.InexactFloat64()
		id := t.posting.Transaction.ID
		entryID = &id
	}
	s.metrics.ObserveTransition(string(enums.AggregateWithdrawal), string(previous), string(w.Status), amount)

	if s.logg != nil {
		logCtx := s.logg.WithOwner(ctx, string(w.OwnerType), w.ConsultantID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"withdrawal_id":   w.ID.String(),
			"previous_status": string(previous),
			"status":          string(w.Status),
			"amount":          w.Amount.StringFixed(2),
			"commissions":     len(w.CommissionIDs),
		})
		s.logg.Info(logCtx, "withdrawal transition applied")
	}

	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, outbox.DomainEvent{
		EventType:     t.event,
		AggregateType: enums.AggregateWithdrawal,
		AggregateID:   w.ID,
		Data: payloads.WithdrawalEvent{
			WithdrawalID:   w.ID,
			ConsultantID:   w.ConsultantID,
			OwnerType:      w.OwnerType,
			Status:         w.Status,
			PreviousStatus: previous,
			Amount:         w.Amount,
			Currency:       w.Currency,
			CommissionIDs:  w.CommissionIDs.UUIDs(),
			PaymentMethod:  w.PaymentMethod,
			LedgerEntryID:  entryID,
			Reason:         t.reason,
		},
		OccurredAt: time.Now().UTC(),
	})
}

func validateOwner(owner ledger.Owner) error {
	if !owner.Type.Earns() || owner.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner must be a consultant or sales agent")
	}
	return nil
}

func validateCommissionIDs(ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one commission id is required")
	}
	if len(ids) > maxCommissionsPerWithdrawal {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many commissions in one withdrawal").
			WithDetails(map[string]any{"max": maxCommissionsPerWithdrawal})
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission id must not be empty")
		}
		if _, dup := seen[id]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission ids must be unique").
				WithDetails(map[string]any{"commission_id": id})
		}
		seen[id] = struct{}{}
	}
	return ids, nil
}

func confirmedOnly(rows []models.Commission) []models.Commission {
	out := make([]models.Commission, 0, len(rows))
	for _, row := range rows {
		if row.Status == enums.CommissionStatusConfirmed {
			out = append(out, row)
		}
	}
	return out
}

func missingIDs(requested []uuid.UUID, found []models.Commission) []uuid.UUID {
	have := make(map[uuid.UUID]struct{}, len(found))
	for _, c := range found {
		have[c.ID] = struct{}{}
	}
	var missing []uuid.UUID
	for _, id := range requested {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func ineligible(message string, ids []uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeIneligibleCommissions, message).
		WithDetails(map[string]any{"reason": "ineligible", "commission_ids": ids})
}

func ownedBy(w *models.CommissionWithdrawal, owner ledger.Owner) bool {
	return w.ConsultantID == owner.ID && w.OwnerType == owner.Type
}

func invalidState(w *models.CommissionWithdrawal, message string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidState, message).
		WithDetails(map[string]any{"withdrawal_id": w.ID, "status": string(w.Status)})
}

func appendNote(existing *string, label, text string, at time.Time) string {
	line := fmt.Sprintf("[%s] %s", at.Format(time.RFC3339), label)
	if text != "" {
		line += ": " + text
	}
	if existing == nil || *existing == "" {
		return line
	}
	return *existing + "\n" + line
}
