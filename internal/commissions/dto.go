package commissions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/talentbridge/talentbridge-backend/internal/ledger"
	"github.com/talentbridge/talentbridge-backend/internal/lockset"
	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
	pkgpagination "github.com/talentbridge/talentbridge-backend/pkg/pagination"
)

// AwardInput describes an earning. Amount wins over pricing; without it the
// amount is derived from the job or subscription payment and the rate.
type AwardInput struct {
	ConsultantID   uuid.UUID
	OwnerType      enums.OwnerType
	Type           enums.CommissionType
	JobID          *uuid.UUID
	SubscriptionID *uuid.UUID
	Amount         *decimal.Decimal
	OverrideRate   *decimal.Decimal
	Currency       string
	Notes          string
}

// RequestInput is a consultant-initiated claim; it carries the same fields as an award.
type RequestInput AwardInput

// ListParams filters an owner's commissions.
type ListParams struct {
	Owner  ledger.Owner
	Status *enums.CommissionStatus
	pkgpagination.Params
}

type ListResult struct {
	Items  []Commission `json:"items"`
	Cursor string       `json:"cursor,omitempty"`
}

// Commission is the API view of a commission. Locked is set when an in-flight
// withdrawal holds it.
type Commission struct {
	ID             uuid.UUID              `json:"id"`
	ConsultantID   uuid.UUID              `json:"consultant_id"`
	OwnerType      enums.OwnerType        `json:"owner_type"`
	RegionID       *uuid.UUID             `json:"region_id,omitempty"`
	JobID          *uuid.UUID             `json:"job_id,omitempty"`
	SubscriptionID *uuid.UUID             `json:"subscription_id,omitempty"`
	Type           enums.CommissionType   `json:"type"`
	Amount         decimal.Decimal        `json:"amount"`
	Rate           *decimal.Decimal       `json:"rate,omitempty"`
	BaseAmount     *decimal.Decimal       `json:"base_amount,omitempty"`
	Currency       string                 `json:"currency"`
	Status         enums.CommissionStatus `json:"status"`
	Notes          *string                `json:"notes,omitempty"`
	Locked         bool                   `json:"locked"`
	WithdrawalID   *uuid.UUID             `json:"withdrawal_id,omitempty"`
	ConfirmedAt    *time.Time             `json:"confirmed_at,omitempty"`
	PaidAt         *time.Time             `json:"paid_at,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// PaymentResult is the outcome of marking one commission paid in a batch.
type PaymentResult struct {
	CommissionID uuid.UUID      `json:"commission_id"`
	Status       string         `json:"status"`
	Code         pkgerrors.Code `json:"code,omitempty"`
	Message      string         `json:"message,omitempty"`
	Commission   *Commission    `json:"commission,omitempty"`
}

const (
	paymentStatusPaid   = "paid"
	paymentStatusFailed = "failed"
)

// FromModel converts a stored commission, marking it locked when locks holds it.
func FromModel(m models.Commission, locks lockset.Set) Commission {
	out := Commission{
		ID:             m.ID,
		ConsultantID:   m.ConsultantID,
		OwnerType:      m.OwnerType,
		RegionID:       m.RegionID,
		JobID:          m.JobID,
		SubscriptionID: m.SubscriptionID,
		Type:           m.Type,
		Amount:         m.Amount,
		Currency:       m.Currency,
		Status:         m.Status,
		Notes:          m.Notes,
		ConfirmedAt:    m.ConfirmedAt,
		PaidAt:         m.PaidAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.Rate.Valid {
		rate := m.Rate.Decimal
		out.Rate = &rate
	}
	if m.BaseAmount.Valid {
		base := m.BaseAmount.Decimal
		out.BaseAmount = &base
	}
	if holder, ok := locks.HeldBy(m.ID); ok {
		out.Locked = true
		out.WithdrawalID = &holder
	}
	return out
}
