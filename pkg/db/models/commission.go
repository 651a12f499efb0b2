package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

// Commission is a single earning owed to a consultant or sales agent.
type Commission struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConsultantID   uuid.UUID              `gorm:"column:consultant_id;type:uuid;not null"`
	OwnerType      enums.OwnerType        `gorm:"column:owner_type;type:owner_type;not null"`
	RegionID       *uuid.UUID             `gorm:"column:region_id;type:uuid"`
	JobID          *uuid.UUID             `gorm:"column:job_id;type:uuid"`
	SubscriptionID *uuid.UUID             `gorm:"column:subscription_id;type:uuid"`
	Type           enums.CommissionType   `gorm:"column:type;type:commission_type;not null"`
	Amount         decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	Rate           decimal.NullDecimal    `gorm:"column:rate;type:numeric(5,4)"`
	BaseAmount     decimal.NullDecimal    `gorm:"column:base_amount;type:numeric(12,2)"`
	Currency       string                 `gorm:"column:currency;type:char(3);not null"`
	Status         enums.CommissionStatus `gorm:"column:status;type:commission_status;not null"`
	Notes          *string                `gorm:"column:notes"`
	ConfirmedAt    *time.Time             `gorm:"column:confirmed_at"`
	PaidAt         *time.Time             `gorm:"column:paid_at"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Commission) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
