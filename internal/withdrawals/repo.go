package withdrawals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-backend/internal/repo"
	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	pkgpagination "github.com/talentbridge/talentbridge-backend/pkg/pagination"
)

// Filter narrows an owner listing.
type Filter struct {
	OwnerType enums.OwnerType
	OwnerID   uuid.UUID
	Status    *enums.WithdrawalStatus
	Cursor    *pkgpagination.Cursor
}

// Repository manages commission withdrawal persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, withdrawal *models.CommissionWithdrawal) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CommissionWithdrawal, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.CommissionWithdrawal, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListByOwner(ctx context.Context, filter Filter, limit int) ([]models.CommissionWithdrawal, error)
	ListByStatus(ctx context.Context, ownerType enums.OwnerType, ownerID uuid.UUID, statuses ...enums.WithdrawalStatus) ([]models.CommissionWithdrawal, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a withdrawals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, withdrawal *models.CommissionWithdrawal) error {
	return r.DB(ctx).Create(withdrawal).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CommissionWithdrawal, error) {
	var withdrawal models.CommissionWithdrawal
	if err := r.DB(ctx).Where("id = ?", id).Take(&withdrawal).Error; err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

// LockByID reads the withdrawal with SELECT ... FOR UPDATE.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.CommissionWithdrawal, error) {
	var withdrawal models.CommissionWithdrawal
	err := r.Locked(ctx).
		Where("id = ?", id).
		Take(&withdrawal).Error
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return r.DB(ctx).Model(&models.CommissionWithdrawal{}).Where("id = ?", id).Updates(updates).Error
}

// ListByOwner pages newest first. The cursor is the last row of the previous page.
func (r *repository) ListByOwner(ctx context.Context, filter Filter, limit int) ([]models.CommissionWithdrawal, error) {
	query := r.DB(ctx).
		Where("consultant_id = ? AND owner_type = ?", filter.OwnerID, filter.OwnerType)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID)
	}
	var rows []models.CommissionWithdrawal
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByStatus(ctx context.Context, ownerType enums.OwnerType, ownerID uuid.UUID, statuses ...enums.WithdrawalStatus) ([]models.CommissionWithdrawal, error) {
	query := r.DB(ctx).Where("consultant_id = ? AND owner_type = ?", ownerID, ownerType)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var rows []models.CommissionWithdrawal
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
