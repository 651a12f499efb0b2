package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

// VirtualTransaction is an immutable ledger entry. Sequence equals the account
// version after the append and is unique per account.
type VirtualTransaction struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID     uuid.UUID                  `gorm:"column:account_id;type:uuid;not null"`
	Sequence      int64                      `gorm:"column:sequence;not null"`
	Type          enums.TransactionType      `gorm:"column:type;type:transaction_type;not null"`
	Direction     enums.TransactionDirection `gorm:"column:direction;type:transaction_direction;not null"`
	Amount        decimal.Decimal            `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceAfter  decimal.Decimal            `gorm:"column:balance_after;type:numeric(12,2);not null"`
	Status        enums.TransactionStatus    `gorm:"column:status;type:transaction_status;not null"`
	ReferenceType *enums.ReferenceType       `gorm:"column:reference_type;type:reference_type"`
	ReferenceID   *uuid.UUID                 `gorm:"column:reference_id;type:uuid"`
	Description   string                     `gorm:"column:description;not null"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime"`
}

func (t *VirtualTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// Signed returns the amount with the direction applied.
func (t VirtualTransaction) Signed() decimal.Decimal {
	if t.Direction == enums.DirectionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
