package commissions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-backend/internal/consultants"
	"github.com/talentbridge/talentbridge-backend/internal/ledger"
	"github.com/talentbridge/talentbridge-backend/internal/lockset"
	"github.com/talentbridge/talentbridge-backend/internal/pricing"
	"github.com/talentbridge/talentbridge-backend/pkg/db"
	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
	"github.com/talentbridge/talentbridge-backend/pkg/logger"
	"github.com/talentbridge/talentbridge-backend/pkg/metrics"
	"github.com/talentbridge/talentbridge-backend/pkg/outbox"
	"github.com/talentbridge/talentbridge-backend/pkg/outbox/payloads"
	pkgpagination "github.com/talentbridge/talentbridge-backend/pkg/pagination"
)

var errDuplicateLinkage = errors.New("commission already exists for earning event")

// Service runs the commission state machine. Every transition that credits or
// debits the ledger does so in the same transaction as the status change.
type Service interface {
	Award(ctx context.Context, input AwardInput) (*Commission, bool, error)
	Request(ctx context.Context, input RequestInput) (*Commission, bool, error)
	Confirm(ctx context.Context, id uuid.UUID) (*Commission, error)
	MarkAsPaid(ctx context.Context, id uuid.UUID) (*Commission, error)
	ProcessPayments(ctx context.Context, ids []uuid.UUID) ([]PaymentResult, error)
	Dispute(ctx context.Context, id uuid.UUID, reason string) (*Commission, error)
	ResolveDispute(ctx context.Context, id uuid.UUID, resolution enums.DisputeResolution, notes string) (*Commission, error)
	Clawback(ctx context.Context, id uuid.UUID, reason string) (*Commission, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*Commission, error)
	Get(ctx context.Context, id uuid.UUID) (*Commission, error)
	ListByOwner(ctx context.Context, params ListParams) (*ListResult, error)
}

type ServiceParams struct {
	Repo            Repository
	Ledger          ledger.Service
	Pricing         pricing.Resolver
	Consultants     consultants.Repository
	Locks           lockset.Repository
	TxRunner        db.TxRunner
	Notifier        outbox.Notifier
	Logger          *logger.Logger
	Metrics         *metrics.WorkflowMetrics
	DefaultCurrency string
}

type service struct {
	repo            Repository
	ledger          ledger.Service
	pricing         pricing.Resolver
	consultants     consultants.Repository
	locks           lockset.Repository
	tx              db.TxRunner
	notifier        outbox.Notifier
	logg            *logger.Logger
	metrics         *metrics.WorkflowMetrics
	defaultCurrency string
}

// change is what a transition decided: the columns to write, the event to
// raise after commit and the ledger posting made on the way, if any.
type change struct {
	noop    bool
	updates map[string]any
	event   enums.OutboxEventType
	reason  string
	posting *ledger.Posting
}

// NewService wires the commission service with its collaborators.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("pricing resolver required")
	}
	if params.Consultants == nil {
		return nil, fmt.Errorf("consultants repository required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock repository required")
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
		ledger:          params.Ledger,
		pricing:         params.Pricing,
		consultants:     params.Consultants,
		locks:           params.Locks,
		tx:              params.TxRunner,
		notifier:        params.Notifier,
		logg:            params.Logger,
		metrics:         params.Metrics,
		defaultCurrency: currency,
	}, nil
}

// Award records a system-initiated commission as CONFIRMED and credits the
// owner's ledger. A second award for the same earning event returns the
// existing commission with created=false and no credit.
func (s *service) Award(ctx context.Context, input AwardInput) (*Commission, bool, error) {
	if err := validateInput(input); err != nil {
		return nil, false, err
	}
	link := linkageOf(input)
	if existing, err := s.findExisting(ctx, link); err != nil || existing != nil {
		return existing, false, err
	}

	profile, err := s.profile(ctx, input.ConsultantID, input.OwnerType)
	if err != nil {
		return nil, false, err
	}
	draft, err := s.price(ctx, input, profile)
	if err != nil {
		return nil, false, err
	}
	now := time.Now().UTC()
	draft.Status = enums.CommissionStatusConfirmed
	draft.ConfirmedAt = &now
	draft.CreatedAt = now
	draft.UpdatedAt = now

	var posting *ledger.Posting
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := s.guardLinkage(ctx, repo, link); err != nil {
			return err
		}
		if err := repo.Create(ctx, draft); err != nil {
			if db.IsUniqueViolation(err, "") {
				return errDuplicateLinkage
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commission")
		}
		var err error
		posting, err = s.credit(ctx, tx, *draft)
		return err
	})
	if errors.Is(err, errDuplicateLinkage) {
		existing, findErr := s.findExisting(ctx, link)
		if findErr != nil {
			return nil, false, findErr
		}
		if existing == nil {
			return nil, false, pkgerrors.New(pkgerrors.CodeConflict, "commission changed concurrently")
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	s.afterTransition(ctx, *draft, "", &change{event: enums.EventCommissionAwarded, posting: posting})
	out := FromModel(*draft, nil)
	return &out, true, nil
}

// Request records a consultant-initiated claim as PENDING. Nothing reaches the
// ledger until an admin confirms it.
func (s *service) Request(ctx context.Context, input RequestInput) (*Commission, bool, error) {
	award := AwardInput(input)
	if err := validateInput(award); err != nil {
		return nil, false, err
	}
	profile, err := s.profile(ctx, award.ConsultantID, award.OwnerType)
	if err != nil {
		return nil, false, err
	}
	if profile == nil || profile.RegionID == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeMissingRegion, "consultant has no region assigned").
			WithDetails(map[string]any{"consultant_id": award.ConsultantID})
	}

	link := linkageOf(award)
	if existing, err := s.findExisting(ctx, link); err != nil || existing != nil {
		return existing, false, err
	}
	draft, err := s.price(ctx, award, profile)
	if err != nil {
		return nil, false, err
	}
	now := time.Now().UTC()
	draft.Status = enums.CommissionStatusPending
	draft.CreatedAt = now
	draft.UpdatedAt = now

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := s.guardLinkage(ctx, repo, link); err != nil {
			return err
		}
		if err := repo.Create(ctx, draft); err != nil {
			if db.IsUniqueViolation(err, "") {
				return errDuplicateLinkage
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commission")
		}
		return nil
	})
	if errors.Is(err, errDuplicateLinkage) {
		existing, findErr := s.findExisting(ctx, link)
		if findErr != nil || existing != nil {
			return existing, false, findErr
		}
		return nil, false, pkgerrors.New(pkgerrors.CodeConflict, "commission changed concurrently")
	}
	if err != nil {
		return nil, false, err
	}

	s.afterTransition(ctx, *draft, "", &change{event: enums.EventCommissionRequested})
	out := FromModel(*draft, nil)
	return &out, true, nil
}

// Confirm credits a commission the first time it becomes CONFIRMED. A
// commission that was already credited only gets its status restored.
func (s *service) Confirm(ctx context.Context, id uuid.UUID) (*Commission, error) {
	return s.apply(ctx, id, func(tx *gorm.DB, c *models.Commission, _ lockset.Set, now time.Time) (*change, error) {
		switch c.Status {
		case enums.CommissionStatusConfirmed, enums.CommissionStatusPaid:
			return &change{noop: true}, nil
		case enums.CommissionStatusClawback, enums.CommissionStatusCancelled:
			return nil, invalidState(c, "commission is already reversed")
		}
		return s.restore(ctx, tx, c, now, enums.EventCommissionConfirmed, "")
	})
}

// MarkAsPaid labels a CONFIRMED commission as paid out. It has no balance effect.
func (s *service) MarkAsPaid(ctx context.Context, id uuid.UUID) (*Commission, error) {
	return s.apply(ctx, id, func(_ *gorm.DB, c *models.Commission, locks lockset.Set, now time.Time) (*change, error) {
		if c.Status == enums.CommissionStatusPaid {
			return &change{noop: true}, nil
		}
		if c.Status != enums.CommissionStatusConfirmed {
			return nil, invalidState(c, "only confirmed commissions can be marked paid")
		}
		if holder, ok := locks.HeldBy(c.ID); ok {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "commission is held by a withdrawal").
				WithDetails(map[string]any{"reason": "locked", "withdrawal_id": holder})
		}
		return &change{
			updates: map[string]any{"status": enums.CommissionStatusPaid, "paid_at": now},
			event:   enums.EventCommissionPaid,
		}, nil
	})
}

// ProcessPayments marks each commission paid independently and reports a
// result per distinct id.
func (s *service) ProcessPayments(ctx context.Context, ids []uuid.UUID) ([]PaymentResult, error) {
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one commission id is required")
	}
	if len(ids) > pkgpagination.MaxLimit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many commission ids").
			WithDetails(map[string]any{"max": pkgpagination.MaxLimit})
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	results := make([]PaymentResult, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		result := PaymentResult{CommissionID: id, Status: paymentStatusPaid}
		commission, err := s.MarkAsPaid(ctx, id)
		if err != nil {
			result.Status = paymentStatusFailed
			result.Code = pkgerrors.CodeInternal
			result.Message = err.Error()
			if typed := pkgerrors.As(err); typed != nil {
				result.Code = typed.Code()
				result.Message = typed.Message()
			}
		} else {
			result.Commission = commission
		}
		results = append(results, result)
	}
	return results, nil
}

// Dispute flags a live commission. Disputing an already disputed commission
// only appends the reason.
func (s *service) Dispute(ctx context.Context, id uuid.UUID, reason string) (*Commission, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute reason is required")
	}
	return s.apply(ctx, id, func(_ *gorm.DB, c *models.Commission, _ lockset.Set, now time.Time) (*change, error) {
		if c.Status.Reversed() {
			return nil, invalidState(c, "commission is already reversed")
		}
		return &change{
			updates: map[string]any{
				"status": enums.CommissionStatusDisputed,
				"notes":  appendNote(c.Notes, "dispute", reason, now),
			},
			event:  enums.EventCommissionDisputed,
			reason: reason,
		}, nil
	})
}

// ResolveDispute closes a dispute. VALID always restores CONFIRMED; INVALID
// takes the clawback path.
func (s *service) ResolveDispute(ctx context.Context, id uuid.UUID, resolution enums.DisputeResolution, notes string) (*Commission, error) {
	if !resolution.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolution must be valid or invalid")
	}
	notes = strings.TrimSpace(notes)
	return s.apply(ctx, id, func(tx *gorm.DB, c *models.Commission, _ lockset.Set, now time.Time) (*change, error) {
		if c.Status != enums.CommissionStatusDisputed {
			return nil, invalidState(c, "commission is not disputed")
		}
		if resolution == enums.DisputeResolutionInvalid {
			reason := notes
			if reason == "" {
				reason = "dispute resolved as invalid"
			}
			return s.reverse(ctx, tx, c, reason, now)
		}
		ch, err := s.restore(ctx, tx, c, now, enums.EventCommissionDisputeResolved, notes)
		if err != nil {
			return nil, err
		}
		ch.updates["notes"] = appendNote(c.Notes, "resolved valid", notes, now)
		return ch, nil
	})
}

// Clawback reverses a commission. A commission that was credited is debited by
// its original amount and becomes CLAWBACK; one that never was is CANCELLED.
func (s *service) Clawback(ctx context.Context, id uuid.UUID, reason string) (*Commission, error) {
	reason = strings.TrimSpace(reason)
	return s.apply(ctx, id, func(tx *gorm.DB, c *models.Commission, _ lockset.Set, now time.Time) (*change, error) {
		return s.reverse(ctx, tx, c, reason, now)
	})
}

// Cancel withdraws a PENDING commission.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Commission, error) {
	reason = strings.TrimSpace(reason)
	return s.apply(ctx, id, func(_ *gorm.DB, c *models.Commission, _ lockset.Set, now time.Time) (*change, error) {
		if c.Status != enums.CommissionStatusPending {
			return nil, invalidState(c, "only pending commissions can be cancelled")
		}
		return &change{
			updates: map[string]any{
				"status": enums.CommissionStatusCancelled,
				"notes":  appendNote(c.Notes, "cancelled", reason, now),
			},
			event:  enums.EventCommissionCancelled,
			reason: reason,
		}, nil
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Commission, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "commission not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission")
	}
	locks, err := s.locks.Load(ctx, row.OwnerType, row.ConsultantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal locks")
	}
	out := FromModel(*row, locks)
	return &out, nil
}

func (s *service) ListByOwner(ctx context.Context, params ListParams) (*ListResult, error) {
	if !params.Owner.Type.Earns() || params.Owner.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid owner")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid commission status")
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commissions")
	}
	locks, err := s.locks.Load(ctx, params.Owner.Type, params.Owner.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal locks")
	}

	rows, nextCursor := pkgpagination.Trim(rows, limit, func(row models.Commission) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	items := make([]Commission, len(rows))
	for i, row := range rows {
		items[i] = FromModel(row, locks)
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

type decideFunc func(tx *gorm.DB, c *models.Commission, locks lockset.Set, now time.Time) (*change, error)

// apply locks the commission, lets decide pick the transition and writes it in
// one transaction. Notifications go out only after commit.
func (s *service) apply(ctx context.Context, id uuid.UUID, decide decideFunc) (*Commission, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission id is required")
	}

	var (
		updated  *models.Commission
		previous enums.CommissionStatus
		locks    lockset.Set
		decided  *change
	)
	now := time.Now().UTC()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.LockByID(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "commission not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock commission")
		}
		previous = current.Status
		locks, err = s.locks.WithTx(tx).Load(ctx, current.OwnerType, current.ConsultantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal locks")
		}

		decided, err = decide(tx, current, locks, now)
		if err != nil {
			return err
		}
		if decided.noop {
			updated = current
			return nil
		}
		if err := repo.Update(ctx, id, decided.updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update commission")
		}
		updated, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload commission")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !decided.noop {
		s.afterTransition(ctx, *updated, previous, decided)
	}
	out := FromModel(*updated, locks)
	return &out, nil
}

// restore moves a commission to CONFIRMED, crediting it if it was never credited.
func (s *service) restore(ctx context.Context, tx *gorm.DB, c *models.Commission, now time.Time, event enums.OutboxEventType, reason string) (*change, error) {
	ch := &change{
		updates: map[string]any{"status": enums.CommissionStatusConfirmed},
		event:   event,
		reason:  reason,
	}
	if c.ConfirmedAt == nil {
		posting, err := s.credit(ctx, tx, *c)
		if err != nil {
			return nil, err
		}
		ch.posting = posting
		ch.updates["confirmed_at"] = now
	}
	return ch, nil
}

// reverse is the clawback decision shared by Clawback and an invalid dispute.
func (s *service) reverse(ctx context.Context, tx *gorm.DB, c *models.Commission, reason string, now time.Time) (*change, error) {
	if c.Status.Reversed() {
		return nil, invalidState(c, "commission is already reversed")
	}
	if c.ConfirmedAt == nil {
		return &change{
			updates: map[string]any{
				"status": enums.CommissionStatusCancelled,
				"notes":  appendNote(c.Notes, "cancelled", reason, now),
			},
			event:  enums.EventCommissionCancelled,
			reason: reason,
		}, nil
	}

	posting, err := s.ledger.DebitTx(ctx, tx, ledger.Entry{
		Owner:       ledger.Owner{Type: c.OwnerType, ID: c.ConsultantID},
		Amount:      c.Amount,
		Type:        enums.TransactionCommissionClawback,
		Reference:   &ledger.Reference{Type: enums.ReferenceCommission, ID: c.ID},
		Description: fmt.Sprintf("clawback of %s commission", c.Type),
		Currency:    c.Currency,
	})
	if err != nil {
		return nil, err
	}
	return &change{
		updates: map[string]any{
			"status": enums.CommissionStatusClawback,
			"notes":  appendNote(c.Notes, "clawback", reason, now),
		},
		event:   enums.EventCommissionClawedBack,
		reason:  reason,
		posting: posting,
	}, nil
}

func (s *service) credit(ctx context.Context, tx *gorm.DB, c models.Commission) (*ledger.Posting, error) {
	return s.ledger.CreditTx(ctx, tx, ledger.Entry{
		Owner:       ledger.Owner{Type: c.OwnerType, ID: c.ConsultantID},
		Amount:      c.Amount,
		Type:        enums.TransactionCommissionEarned,
		Reference:   &ledger.Reference{Type: enums.ReferenceCommission, ID: c.ID},
		Description: fmt.Sprintf("%s commission earned", c.Type),
		Currency:    c.Currency,
	})
}

// guardLinkage re-checks the linkage inside the transaction; the unique
// indexes catch the remaining race.
func (s *service) guardLinkage(ctx context.Context, repo Repository, link Linkage) error {
	if link.JobID == nil && link.SubscriptionID == nil {
		return nil
	}
	_, err := repo.FindActiveByLinkage(ctx, link)
	switch {
	case err == nil:
		return errDuplicateLinkage
	case db.IsNotFound(err):
		return nil
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing commission")
	}
}

func (s *service) findExisting(ctx context.Context, link Linkage) (*Commission, error) {
	if link.JobID == nil && link.SubscriptionID == nil {
		return nil, nil
	}
	row, err := s.repo.FindActiveByLinkage(ctx, link)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing commission")
	}
	locks, err := s.locks.Load(ctx, row.OwnerType, row.ConsultantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal locks")
	}
	out := FromModel(*row, locks)
	return &out, nil
}

// profile returns the consultant's attribution record, or nil when none exists.
func (s *service) profile(ctx context.Context, id uuid.UUID, ownerType enums.OwnerType) (*models.Consultant, error) {
	profile, err := s.consultants.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load consultant")
	}
	if profile.OwnerType != ownerType {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner type does not match consultant profile").
			WithDetails(map[string]any{"owner_type": string(ownerType), "profile_owner_type": string(profile.OwnerType)})
	}
	return profile, nil
}

// price builds the unsaved commission: a caller amount is taken as is,
// otherwise the resolver prices it from the linked payment.
func (s *service) price(ctx context.Context, input AwardInput, profile *models.Consultant) (*models.Commission, error) {
	draft := &models.Commission{
		ConsultantID:   input.ConsultantID,
		OwnerType:      input.OwnerType,
		JobID:          input.JobID,
		SubscriptionID: input.SubscriptionID,
		Type:           input.Type,
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if profile != nil {
		draft.RegionID = profile.RegionID
		if currency == "" {
			currency = profile.Currency
		}
	}

	if input.Amount != nil {
		draft.Amount = *input.Amount
	} else {
		quote, err := s.pricing.Resolve(ctx, pricing.Query{
			ConsultantID:   input.ConsultantID,
			JobID:          input.JobID,
			SubscriptionID: input.SubscriptionID,
			OverrideRate:   input.OverrideRate,
		})
		if err != nil {
			return nil, err
		}
		if err := ledger.ValidateAmount(quote.Amount); err != nil {
			return nil, err
		}
		draft.Amount = quote.Amount
		draft.Rate.Decimal, draft.Rate.Valid = quote.Rate, true
		draft.BaseAmount.Decimal, draft.BaseAmount.Valid = quote.BaseAmount, true
		if strings.TrimSpace(input.Currency) == "" && quote.Currency != "" {
			currency = strings.ToUpper(quote.Currency)
		}
	}
	if currency == "" {
		currency = s.defaultCurrency
	}
	draft.Currency = currency
	if note := strings.TrimSpace(input.Notes); note != "" {
		created := appendNote(nil, "created", note, time.Now().UTC())
		draft.Notes = &created
	}
	return draft, nil
}

func (s *service) afterTransition(ctx context.Context, c models.Commission, previous enums.CommissionStatus, ch *change) {
	amount := 0.0
	var entryID *uuid.UUID
	if ch.posting != nil {
		amount = ch.posting.Transaction.Amount.InexactFloat64()
		id := ch.posting.Transaction.ID
		entryID = &id
	}
	s.metrics.ObserveTransition(string(enums.AggregateCommission), string(previous), string(c.Status), amount)

	if s.logg != nil {
		logCtx := s.logg.WithOwner(ctx, string(c.OwnerType), c.ConsultantID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"commission_id":   c.ID.String(),
			"previous_status": string(previous),
			"status":          string(c.Status),
			"amount":          c.Amount.StringFixed(2),
			"credited":        ch.posting != nil,
		})
		s.logg.Info(logCtx, "commission transition applied")
	}

	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, outbox.DomainEvent{
		EventType:     ch.event,
		AggregateType: enums.AggregateCommission,
		AggregateID:   c.ID,
		Data: payloads.CommissionEvent{
			CommissionID:   c.ID,
			ConsultantID:   c.ConsultantID,
			OwnerType:      c.OwnerType,
			Type:           c.Type,
			Status:         c.Status,
			PreviousStatus: previous,
			Amount:         c.Amount,
			Currency:       c.Currency,
			JobID:          c.JobID,
			SubscriptionID: c.SubscriptionID,
			LedgerEntryID:  entryID,
			Reason:         ch.reason,
		},
		OccurredAt: time.Now().UTC(),
	})
}

func validateInput(input AwardInput) error {
	if input.ConsultantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "consultant id is required")
	}
	if !input.OwnerType.Earns() {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner type cannot earn commissions").
			WithDetails(map[string]any{"owner_type": string(input.OwnerType)})
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid commission type").
			WithDetails(map[string]any{"type": string(input.Type)})
	}
	if input.JobID != nil && input.SubscriptionID != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "a commission links to a job or a subscription, not both")
	}
	if (input.JobID != nil && *input.JobID == uuid.Nil) || (input.SubscriptionID != nil && *input.SubscriptionID == uuid.Nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "linked id must not be empty")
	}
	if input.Amount != nil {
		if err := ledger.ValidateAmount(*input.Amount); err != nil {
			return err
		}
	} else if input.JobID == nil && input.SubscriptionID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount is required when no job or subscription is linked")
	}
	if input.OverrideRate != nil {
		if err := pricing.ValidateRate(*input.OverrideRate); err != nil {
			return err
		}
	}
	if currency := strings.TrimSpace(input.Currency); currency != "" && len(currency) != 3 {
		return pkgerrors.New(pkgerrors.CodeValidation, "currency must be a 3-letter code")
	}
	return nil
}

func linkageOf(input AwardInput) Linkage {
	return Linkage{
		ConsultantID:   input.ConsultantID,
		Type:           input.Type,
		JobID:          input.JobID,
		SubscriptionID: input.SubscriptionID,
	}
}

func invalidState(c *models.Commission, message string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidState, message).
		WithDetails(map[string]any{"commission_id": c.ID, "status": string(c.Status)})
}

// appendNote adds a timestamped line; notes are never rewritten.
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
