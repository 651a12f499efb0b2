package consultants

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-backend/internal/repo"
	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
)

// Repository reads the attribution profile of earners.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Consultant, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a consultants repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.WithTx(tx)}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Consultant, error) {
	var consultant models.Consultant
	if err := r.DB(ctx).Where("id = ?", id).Take(&consultant).Error; err != nil {
		return nil, err
	}
	return &consultant, nil
}
