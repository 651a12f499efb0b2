package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/talentbridge/talentbridge-backend/internal/repo"
	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

// errVersionConflict is returned when the guarded balance update matched no row.
var errVersionConflict = errors.New("virtual account version conflict")

// Repository manages persistence for virtual accounts and their transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	EnsureAccount(ctx context.Context, owner Owner, currency string) error
	LockAccount(ctx context.Context, owner Owner) (*models.VirtualAccount, error)
	FindAccount(ctx context.Context, owner Owner) (*models.VirtualAccount, error)
	FindAccountByID(ctx context.Context, id uuid.UUID) (*models.VirtualAccount, error)
	AppendTransaction(ctx context.Context, txn *models.VirtualTransaction) error
	UpdateBalance(ctx context.Context, account *models.VirtualAccount, expectedVersion int64) error
	UpdateStatus(ctx context.Context, accountID uuid.UUID, status enums.AccountStatus) error
	ListTransactions(ctx context.Context, accountID uuid.UUID, beforeID *uuid.UUID, limit int) ([]models.VirtualTransaction, error)
	History(ctx context.Context, accountID uuid.UUID) ([]models.VirtualTransaction, error)
	ListAccountIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
	FindByReference(ctx context.Context, txType enums.TransactionType, ref Reference) ([]models.VirtualTransaction, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Base.WithTx(tx)}
}

// EnsureAccount inserts an empty active account unless one already exists.
func (r *repository) EnsureAccount(ctx context.Context, owner Owner, currency string) error {
	account := models.VirtualAccount{
		OwnerType:    owner.Type,
		OwnerID:      owner.ID,
		Currency:     currency,
		Balance:      decimal.Zero,
		TotalCredits: decimal.Zero,
		TotalDebits:  decimal.Zero,
		Status:       enums.AccountStatusActive,
	}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_type"}, {Name: "owner_id"}},
			DoNothing: true,
		}).
		Create(&account).Error
}

// LockAccount reads the owner's account with SELECT ... FOR UPDATE.
func (r *repository) LockAccount(ctx context.Context, owner Owner) (*models.VirtualAccount, error) {
	var account models.VirtualAccount
	err := r.Locked(ctx).
		Where("owner_type = ? AND owner_id = ?", owner.Type, owner.ID).
		Take(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindAccount(ctx context.Context, owner Owner) (*models.VirtualAccount, error) {
	var account models.VirtualAccount
	err := r.DB(ctx).
		Where("owner_type = ? AND owner_id = ?", owner.Type, owner.ID).
		Take(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindAccountByID(ctx context.Context, id uuid.UUID) (*models.VirtualAccount, error) {
	var account models.VirtualAccount
	if err := r.DB(ctx).Where("id = ?", id).Take(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) AppendTransaction(ctx context.Context, txn *models.VirtualTransaction) error {
	return r.DB(ctx).Create(txn).Error
}

// UpdateBalance persists balance, totals and version only if nobody bumped the
// version since the row was read.
func (r *repository) UpdateBalance(ctx context.Context, account *models.VirtualAccount, expectedVersion int64) error {
	now := time.Now().UTC()
	res := r.DB(ctx).
		Model(&models.VirtualAccount{}).
		Where("id = ? AND version = ?", account.ID, expectedVersion).
		Updates(map[string]any{
			"balance":       account.Balance,
			"total_credits": account.TotalCredits,
			"total_debits":  account.TotalDebits,
			"version":       account.Version,
			"updated_at":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errVersionConflict
	}
	account.UpdatedAt = now
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, accountID uuid.UUID, status enums.AccountStatus) error {
	return r.DB(ctx).
		Model(&models.VirtualAccount{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

// ListTransactions pages newest-first by sequence. beforeID is the last row of
// the previous page.
func (r *repository) ListTransactions(ctx context.Context, accountID uuid.UUID, beforeID *uuid.UUID, limit int) ([]models.VirtualTransaction, error) {
	query := r.DB(ctx).Model(&models.VirtualTransaction{}).Where("account_id = ?", accountID)
	if beforeID != nil {
		query = query.Where("sequence < (SELECT sequence FROM virtual_transactions WHERE id = ? AND account_id = ?)", *beforeID, accountID)
	}

	var rows []models.VirtualTransaction
	if err := query.Order("sequence DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// History returns every transaction of the account in replay order.
func (r *repository) History(ctx context.Context, accountID uuid.UUID) ([]models.VirtualTransaction, error) {
	var rows []models.VirtualTransaction
	if err := r.DB(ctx).
		Where("account_id = ?", accountID).
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAccountIDs walks accounts in id order for batch jobs.
func (r *repository) ListAccountIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := r.DB(ctx).Model(&models.VirtualAccount{})
	if after != uuid.Nil {
		query = query.Where("id > ?", after)
	}
	var ids []uuid.UUID
	if err := query.Order("id ASC").Limit(limit).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) FindByReference(ctx context.Context, txType enums.TransactionType, ref Reference) ([]models.VirtualTransaction, error) {
	var rows []models.VirtualTransaction
	if err := r.DB(ctx).
		Where("type = ? AND reference_type = ? AND reference_id = ?", txType, ref.Type, ref.ID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
