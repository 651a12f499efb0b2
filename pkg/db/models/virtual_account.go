package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

// VirtualAccount holds the running balance for one owner. Only the ledger
// package mutates it; every mutation bumps Version.
type VirtualAccount struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerType    enums.OwnerType     `gorm:"column:owner_type;type:owner_type;not null"`
	OwnerID      uuid.UUID           `gorm:"column:owner_id;type:uuid;not null"`
	Currency     string              `gorm:"column:currency;type:char(3);not null"`
	Balance      decimal.Decimal     `gorm:"column:balance;type:numeric(12,2);not null"`
	TotalCredits decimal.Decimal     `gorm:"column:total_credits;type:numeric(12,2);not null"`
	TotalDebits  decimal.Decimal     `gorm:"column:total_debits;type:numeric(12,2);not null"`
	Status       enums.AccountStatus `gorm:"column:status;type:account_status;not null"`
	Version      int64               `gorm:"column:version;not null"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *VirtualAccount) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
