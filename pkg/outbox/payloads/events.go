package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

// CommissionEvent describes a commission status change. PreviousStatus is empty
// for newly created commissions.
type CommissionEvent struct {
	CommissionID   uuid.UUID              `json:"commission_id"`
	ConsultantID   uuid.UUID              `json:"consultant_id"`
	OwnerType      enums.OwnerType        `json:"owner_type"`
	Type           enums.CommissionType   `json:"type"`
	Status         enums.CommissionStatus `json:"status"`
	PreviousStatus enums.CommissionStatus `json:"previous_status,omitempty"`
	Amount         decimal.Decimal        `json:"amount"`
	Currency       string                 `json:"currency"`
	JobID          *uuid.UUID             `json:"job_id,omitempty"`
	SubscriptionID *uuid.UUID             `json:"subscription_id,omitempty"`
	LedgerEntryID  *uuid.UUID             `json:"ledger_entry_id,omitempty"`
	Reason         string                 `json:"reason,omitempty"`
}

// WithdrawalEvent describes a withdrawal status change.
type WithdrawalEvent struct {
	WithdrawalID   uuid.UUID              `json:"withdrawal_id"`
	ConsultantID   uuid.UUID              `json:"consultant_id"`
	OwnerType      enums.OwnerType        `json:"owner_type"`
	Status         enums.WithdrawalStatus `json:"status"`
	PreviousStatus enums.WithdrawalStatus `json:"previous_status,omitempty"`
	Amount         decimal.Decimal        `json:"amount"`
	Currency       string                 `json:"currency"`
	CommissionIDs  []uuid.UUID            `json:"commission_ids"`
	PaymentMethod  enums.PaymentMethod    `json:"payment_method"`
	LedgerEntryID  *uuid.UUID             `json:"ledger_entry_id,omitempty"`
	Reason         string                 `json:"reason,omitempty"`
}

// LedgerDriftEvent is raised by reconciliation when replaying an account's
// history does not reproduce its stored balance.
type LedgerDriftEvent struct {
	AccountID       uuid.UUID       `json:"account_id"`
	OwnerType       enums.OwnerType `json:"owner_type"`
	OwnerID         uuid.UUID       `json:"owner_id"`
	StoredBalance   decimal.Decimal `json:"stored_balance"`
	ReplayedBalance decimal.Decimal `json:"replayed_balance"`
	Mismatches      int             `json:"mismatches"`
	Frozen          bool            `json:"frozen"`
	DetectedAt      time.Time       `json:"detected_at"`
}
