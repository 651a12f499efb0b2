// Package pricing derives commission amounts from the payment recorded for the
// earning event and the applicable rate.
package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/talentbridge/talentbridge-backend/internal/consultants"
	"github.com/talentbridge/talentbridge-backend/internal/ledger"
	"github.com/talentbridge/talentbridge-backend/pkg/db"
	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
)

var one = decimal.NewFromInt(1)

// Query identifies the earning event a commission is priced against. Exactly
// one of JobID and SubscriptionID is set.
type Query struct {
	ConsultantID   uuid.UUID
	JobID          *uuid.UUID
	SubscriptionID *uuid.UUID
	OverrideRate   *decimal.Decimal
}

// Quote is the priced commission. Amount is BaseAmount x Rate rounded to cents.
type Quote struct {
	BaseAmount decimal.Decimal
	Rate       decimal.Decimal
	Amount     decimal.Decimal
	Currency   string
}

// Resolver prices a commission for an earning event.
type Resolver interface {
	Resolve(ctx context.Context, q Query) (*Quote, error)
}

type ResolverParams struct {
	Consultants     consultants.Repository
	Ledger          ledger.Repository
	DefaultRate     decimal.Decimal
	DefaultCurrency string
}

// ledgerResolver reads the payment figure from the company-side ledger entry
// referencing the job or subscription.
type ledgerResolver struct {
	consultants     consultants.Repository
	ledger          ledger.Repository
	defaultRate     decimal.Decimal
	defaultCurrency string
}

// NewResolver wires the ledger-backed resolver.
func NewResolver(params ResolverParams) (Resolver, error) {
	if params.Consultants == nil {
		return nil, fmt.Errorf("consultants repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.DefaultRate.IsNegative() || params.DefaultRate.GreaterThan(one) {
		return nil, fmt.Errorf("default rate must be between 0 and 1")
	}
	return &ledgerResolver{
		consultants:     params.Consultants,
		ledger:          params.Ledger,
		defaultRate:     params.DefaultRate,
		defaultCurrency: params.DefaultCurrency,
	}, nil
}

func (r *ledgerResolver) Resolve(ctx context.Context, q Query) (*Quote, error) {
	if q.ConsultantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "consultant id is required")
	}
	if (q.JobID == nil) == (q.SubscriptionID == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of job_id or subscription_id is required to derive an amount")
	}
	if q.OverrideRate != nil {
		if err := ValidateRate(*q.OverrideRate); err != nil {
			return nil, err
		}
	}

	var consultant *models.Consultant
	found, err := r.consultants.FindByID(ctx, q.ConsultantID)
	switch {
	case err == nil:
		consultant = found
	case db.IsNotFound(err):
		// earners without a profile fall back to the configured defaults
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load consultant")
	}

	rate := r.defaultRate
	currency := r.defaultCurrency
	if consultant != nil {
		if consultant.DefaultCommissionRate.IsPositive() {
			rate = consultant.DefaultCommissionRate
		}
		if consultant.Currency != "" {
			currency = consultant.Currency
		}
	}
	if q.OverrideRate != nil {
		rate = *q.OverrideRate
	}

	base, err := r.paymentFigure(ctx, q)
	if err != nil {
		return nil, err
	}

	return &Quote{
		BaseAmount: base,
		Rate:       rate,
		Amount:     base.Mul(rate).Round(2),
		Currency:   currency,
	}, nil
}

func (r *ledgerResolver) paymentFigure(ctx context.Context, q Query) (decimal.Decimal, error) {
	txType := enums.TransactionJobPostingDeduction
	ref := ledger.Reference{Type: enums.ReferenceJob}
	if q.JobID != nil {
		ref.ID = *q.JobID
	} else {
		txType = enums.TransactionSubscriptionPurchase
		ref = ledger.Reference{Type: enums.ReferenceSubscription, ID: *q.SubscriptionID}
	}

	rows, err := r.ledger.FindByReference(ctx, txType, ref)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment figure")
	}
	if len(rows) == 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "no payment recorded for the earning event").
			WithDetails(map[string]any{"reference_type": string(ref.Type), "reference_id": ref.ID})
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total, nil
}

// ValidateRate accepts fractions in (0, 1].
func ValidateRate(rate decimal.Decimal) error {
	if !rate.IsPositive() || rate.GreaterThan(one) {
		return pkgerrors.New(pkgerrors.CodeValidation, "rate must be a fraction between 0 and 1").
			WithDetails(map[string]any{"rate": rate.String()})
	}
	return nil
}
