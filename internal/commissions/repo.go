package commissions

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

// Linkage is the earning event a commission is tied to. At most one id is set.
type Linkage struct {
	ConsultantID   uuid.UUID
	Type           enums.CommissionType
	JobID          *uuid.UUID
	SubscriptionID *uuid.UUID
}

// Filter narrows an owner listing.
type Filter struct {
	OwnerType enums.OwnerType
	OwnerID   uuid.UUID
	Status    *enums.CommissionStatus
	Cursor    *pkgpagination.Cursor
}

// Repository manages commission persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, commission *models.Commission) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Commission, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Commission, error)
	FindActiveByLinkage(ctx context.Context, link Linkage) (*models.Commission, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListByOwner(ctx context.Context, filter Filter, limit int) ([]models.Commission, error)
	ListAllByOwner(ctx context.Context, ownerType enums.OwnerType, ownerID uuid.UUID) ([]models.Commission, error)
	LockForOwner(ctx context.Context, ownerType enums.OwnerType, ownerID uuid.UUID, ids []uuid.UUID) ([]models.Commission, error)
	MarkPaid(ctx context.Context, ids []uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a commissions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) Create(ctx context.Context, commission *models.Commission) error {
	return r.DB(ctx).Create(commission).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	var commission models.Commission
	if err := r.DB(ctx).Where("id = ?", id).Take(&commission).Error; err != nil {
		return nil, err
	}
	return &commission, nil
}

// LockByID reads the commission with SELECT ... FOR UPDATE.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	var commission models.Commission
	err := r.Locked(ctx).
		Where("id = ?", id).
		Take(&commission).Error
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

// FindActiveByLinkage mirrors the partial unique indexes: same consultant, type
// and job or subscription, not cancelled.
func (r *repository) FindActiveByLinkage(ctx context.Context, link Linkage) (*models.Commission, error) {
	query := r.DB(ctx).
		Where("consultant_id = ? AND type = ?", link.ConsultantID, link.Type).
		Where("status <> ?", enums.CommissionStatusCancelled)
	switch {
	case link.JobID != nil:
		query = query.Where("job_id = ?", *link.JobID)
	case link.SubscriptionID != nil:
		query = query.Where("subscription_id = ?", *link.SubscriptionID)
	default:
		return nil, gorm.ErrRecordNotFound
	}
	var commission models.Commission
	if err := query.Order("created_at ASC").Take(&commission).Error; err != nil {
		return nil, err
	}
	return &commission, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return r.DB(ctx).Model(&models.Commission{}).Where("id = ?", id).Updates(updates).Error
}

// ListByOwner pages newest first. The cursor is the last row of the previous page.
func (r *repository) ListByOwner(ctx context.Context, filter Filter, limit int) ([]models.Commission, error) {
	query := r.DB(ctx).
		Where("consultant_id = ? AND owner_type = ?", filter.OwnerID, filter.OwnerType)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID)
	}
	var rows []models.Commission
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListAllByOwner(ctx context.Context, ownerType enums.OwnerType, ownerID uuid.UUID) ([]models.Commission, error) {
	var rows []models.Commission
	err := r.DB(ctx).
		Where("consultant_id = ? AND owner_type = ?", ownerID, ownerType).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// LockForOwner locks the listed commissions that belong to the owner, in id
// order so concurrent requests take row locks in the same sequence.
func (r *repository) LockForOwner(ctx context.Context, ownerType enums.OwnerType, ownerID uuid.UUID, ids []uuid.UUID) ([]models.Commission, error) {
	if len(ids) == 0 {
		return []models.Commission{}, nil
	}
	var rows []models.Commission
	err := r.Locked(ctx).
		Where("id IN ? AND consultant_id = ? AND owner_type = ?", ids, ownerID, ownerType).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkPaid moves the listed CONFIRMED commissions to PAID and reports how many
// rows changed.
func (r *repository) MarkPaid(ctx context.Context, ids []uuid.UUID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).
		Model(&models.Commission{}).
		Where("id IN ? AND status = ?", ids, enums.CommissionStatusConfirmed).
		Updates(map[string]any{
			"status":     enums.CommissionStatusPaid,
			"paid_at":    at,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}
