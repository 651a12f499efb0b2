package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

// Consultant is the attribution read model for earners: region and default rate.
type Consultant struct {
	ID                    uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OwnerType             enums.OwnerType `gorm:"column:owner_type;type:owner_type;not null"`
	RegionID              *uuid.UUID      `gorm:"column:region_id;type:uuid"`
	DefaultCommissionRate decimal.Decimal `gorm:"column:default_commission_rate;type:numeric(5,4);not null"`
	Currency              string          `gorm:"column:currency;type:char(3);not null"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
