package withdrawals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/talentbridge/talentbridge-backend/internal/commissions"
	"github.com/talentbridge/talentbridge-backend/internal/ledger"
	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	pkgpagination "github.com/talentbridge/talentbridge-backend/pkg/pagination"
)

// RequestInput is an owner's payout request. Amount is only sanity checked;
// the stored amount is the sum of the referenced commissions.
type RequestInput struct {
	Amount         decimal.Decimal
	CommissionIDs  []uuid.UUID
	PaymentMethod  enums.PaymentMethod
	PaymentDetails PaymentDetails
	Notes          string
}

// BalanceSummary is derived from commission and withdrawal state, never from
// the ledger balance.
type BalanceSummary struct {
	OwnerType            enums.OwnerType          `json:"owner_type"`
	OwnerID              uuid.UUID                `json:"owner_id"`
	Currency             string                   `json:"currency"`
	AvailableBalance     decimal.Decimal          `json:"available_balance"`
	PendingBalance       decimal.Decimal          `json:"pending_balance"`
	LockedBalance        decimal.Decimal          `json:"locked_balance"`
	TotalEarned          decimal.Decimal          `json:"total_earned"`
	TotalWithdrawn       decimal.Decimal          `json:"total_withdrawn"`
	AvailableCommissions []commissions.Commission `json:"available_commissions"`
}

type Withdrawal struct {
	ID              uuid.UUID              `json:"id"`
	ConsultantID    uuid.UUID              `json:"consultant_id"`
	OwnerType       enums.OwnerType        `json:"owner_type"`
	Amount          decimal.Decimal        `json:"amount"`
	RequestedAmount decimal.Decimal        `json:"requested_amount"`
	Currency        string                 `json:"currency"`
	CommissionIDs   []uuid.UUID            `json:"commission_ids"`
	PaymentMethod   enums.PaymentMethod    `json:"payment_method"`
	PaymentDetails  map[string]string      `json:"payment_details,omitempty"`
	Status          enums.WithdrawalStatus `json:"status"`
	Notes           *string                `json:"notes,omitempty"`
	ProcessedAt     *time.Time             `json:"processed_at,omitempty"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
	CancelledAt     *time.Time             `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

type ListParams struct {
	Owner  ledger.Owner
	Status *enums.WithdrawalStatus
	pkgpagination.Params
}

type ListResult struct {
	Items  []Withdrawal `json:"items"`
	Cursor string       `json:"cursor,omitempty"`
}

// fromModel converts a stored withdrawal; masked is the already masked view of
// its payment details.
func fromModel(m models.CommissionWithdrawal, masked map[string]string) Withdrawal {
	return Withdrawal{
		ID:              m.ID,
		ConsultantID:    m.ConsultantID,
		OwnerType:       m.OwnerType,
		Amount:          m.Amount,
		RequestedAmount: m.RequestedAmount,
		Currency:        m.Currency,
		CommissionIDs:   m.CommissionIDs.UUIDs(),
		PaymentMethod:   m.PaymentMethod,
		PaymentDetails:  masked,
		Status:          m.Status,
		Notes:           m.Notes,
		ProcessedAt:     m.ProcessedAt,
		CompletedAt:     m.CompletedAt,
		CancelledAt:     m.CancelledAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
