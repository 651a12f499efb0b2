package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/talentbridge/talentbridge-backend/pkg/db/types"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

// CommissionWithdrawal is a payout request over a fixed set of commissions.
// Amount is always recomputed server-side; RequestedAmount keeps the caller's
// figure for audit.
type CommissionWithdrawal struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConsultantID    uuid.UUID              `gorm:"column:consultant_id;type:uuid;not null"`
	OwnerType       enums.OwnerType        `gorm:"column:owner_type;type:owner_type;not null"`
	Amount          decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	RequestedAmount decimal.Decimal        `gorm:"column:requested_amount;type:numeric(12,2);not null"`
	Currency        string                 `gorm:"column:currency;type:char(3);not null"`
	CommissionIDs   dbtypes.UUIDArray      `gorm:"column:commission_ids;type:uuid[];not null"`
	PaymentMethod   enums.PaymentMethod    `gorm:"column:payment_method;type:payment_method;not null"`
	PaymentDetails  []byte                 `gorm:"column:payment_details;type:bytea"`
	Status          enums.WithdrawalStatus `gorm:"column:status;type:withdrawal_status;not null"`
	Notes           *string                `gorm:"column:notes"`
	ProcessedAt     *time.Time             `gorm:"column:processed_at"`
	CompletedAt     *time.Time             `gorm:"column:completed_at"`
	CancelledAt     *time.Time             `gorm:"column:cancelled_at"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (CommissionWithdrawal) TableName() string {
	return "commission_withdrawals"
}

func (w *CommissionWithdrawal) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}
