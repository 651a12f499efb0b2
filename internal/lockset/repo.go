package lockset

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-backend/internal/repo"
	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

// Repository loads the withdrawals that can hold an owner's commissions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Load(ctx context.Context, ownerType enums.OwnerType, ownerID uuid.UUID) (Set, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.WithTx(tx)}
}

// Load resolves the owner's lock set from withdrawals still in flight.
func (r *repository) Load(ctx context.Context, ownerType enums.OwnerType, ownerID uuid.UUID) (Set, error) {
	var rows []models.CommissionWithdrawal
	err := r.DB(ctx).
		Select("id", "status", "commission_ids").
		Where("consultant_id = ? AND owner_type = ?", ownerID, ownerType).
		Where("status IN ?", enums.LockingWithdrawalStatuses).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return Resolve(rows), nil
}
