package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-backend/pkg/db"
	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
	"github.com/talentbridge/talentbridge-backend/pkg/logger"
	"github.com/talentbridge/talentbridge-backend/pkg/metrics"
	pkgpagination "github.com/talentbridge/talentbridge-backend/pkg/pagination"
)

// maxAmount is the largest value numeric(12,2) can hold.
var maxAmount = decimal.RequireFromString("9999999999.99")

// Service is the only writer of virtual account balances.
type Service interface {
	Credit(ctx context.Context, entry Entry) (*Posting, error)
	Debit(ctx context.Context, entry Entry) (*Posting, error)
	CreditTx(ctx context.Context, tx *gorm.DB, entry Entry) (*Posting, error)
	DebitTx(ctx context.Context, tx *gorm.DB, entry Entry) (*Posting, error)
	GetBalance(ctx context.Context, owner Owner) (*Balance, error)
	ListTransactions(ctx context.Context, owner Owner, params pkgpagination.Params) (*TransactionList, error)
	Verify(ctx context.Context, accountID uuid.UUID) (*ReplayReport, error)
	VerifyOwner(ctx context.Context, owner Owner) (*ReplayReport, error)
	SetStatus(ctx context.Context, owner Owner, status enums.AccountStatus) (*Balance, error)
	AccountIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

type ServiceParams struct {
	Repo            Repository
	TxRunner        db.TxRunner
	Logger          *logger.Logger
	Metrics         *metrics.LedgerMetrics
	DefaultCurrency string
}

type service struct {
	repo            Repository
	tx              db.TxRunner
	logg            *logger.Logger
	metrics         *metrics.LedgerMetrics
	defaultCurrency string
}

// NewService wires a ledger service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.DefaultCurrency))
	if len(currency) != 3 {
		return nil, fmt.Errorf("default currency must be a 3-letter code")
	}
	return &service{
		repo:            params.Repo,
		tx:              params.TxRunner,
		logg:            params.Logger,
		metrics:         params.Metrics,
		defaultCurrency: currency,
	}, nil
}

func (s *service) Credit(ctx context.Context, entry Entry) (*Posting, error) {
	var posting *Posting
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		posting, err = s.post(ctx, tx, enums.DirectionCredit, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	return posting, nil
}

func (s *service) Debit(ctx context.Context, entry Entry) (*Posting, error) {
	var posting *Posting
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		posting, err = s.post(ctx, tx, enums.DirectionDebit, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	return posting, nil
}

// CreditTx applies a credit inside the caller's transaction.
func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, entry Entry) (*Posting, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	return s.post(ctx, tx, enums.DirectionCredit, entry)
}

// DebitTx applies a debit inside the caller's transaction.
func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, entry Entry) (*Posting, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	return s.post(ctx, tx, enums.DirectionDebit, entry)
}

// post is the read-modify-append unit: lock the account row, derive the next
// balance, append the transaction and write the balance back under the version
// guard. The caller owns the transaction.
func (s *service) post(ctx context.Context, tx *gorm.DB, direction enums.TransactionDirection, entry Entry) (*Posting, error) {
	currency, err := s.validateEntry(entry)
	if err != nil {
		s.reject(err)
		return nil, err
	}
	amount := entry.Amount

	repo := s.repo.WithTx(tx)
	if err := repo.EnsureAccount(ctx, entry.Owner, currency); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create virtual account")
	}
	account, err := repo.LockAccount(ctx, entry.Owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock virtual account")
	}

	if account.Currency != currency {
		err := pkgerrors.New(pkgerrors.CodeValidation, "currency does not match account").
			WithDetails(map[string]any{"account_currency": account.Currency, "currency": currency})
		s.reject(err)
		return nil, err
	}
	if account.Status == enums.AccountStatusFrozen && entry.Type == enums.TransactionCommissionWithdrawal {
		err := pkgerrors.New(pkgerrors.CodeInvalidState, "account is frozen").
			WithDetails(map[string]any{"account_id": account.ID})
		s.reject(err)
		return nil, err
	}

	next := account.Balance
	switch direction {
	case enums.DirectionCredit:
		next = next.Add(amount)
		account.TotalCredits = account.TotalCredits.Add(amount)
	default:
		next = next.Sub(amount)
		if next.IsNegative() {
			err := pkgerrors.New(pkgerrors.CodeInsufficientBalance, "debit exceeds balance").
				WithDetails(map[string]any{
					"balance": account.Balance.StringFixed(2),
					"amount":  amount.StringFixed(2),
				})
			s.reject(err)
			return nil, err
		}
		account.TotalDebits = account.TotalDebits.Add(amount)
	}

	expectedVersion := account.Version
	account.Balance = next
	account.Version = expectedVersion + 1

	txn := models.VirtualTransaction{
		AccountID:    account.ID,
		Sequence:     account.Version,
		Type:         entry.Type,
		Direction:    direction,
		Amount:       amount,
		BalanceAfter: next,
		Status:       enums.TransactionStatusCompleted,
		Description:  strings.TrimSpace(entry.Description),
	}
	if entry.Reference != nil {
		refType := entry.Reference.Type
		refID := entry.Reference.ID
		txn.ReferenceType = &refType
		txn.ReferenceID = &refID
	}

	if err := repo.AppendTransaction(ctx, &txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger transaction")
	}
	if err := repo.UpdateBalance(ctx, account, expectedVersion); err != nil {
		if errors.Is(err, errVersionConflict) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "virtual account changed concurrently")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update virtual account")
	}

	s.metrics.IncPosting(string(entry.Type), string(direction))
	if s.logg != nil {
		logCtx := s.logg.WithOwner(ctx, string(entry.Owner.Type), entry.Owner.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"account_id":    account.ID.String(),
			"sequence":      txn.Sequence,
			"type":          string(entry.Type),
			"direction":     string(direction),
			"amount":        amount.StringFixed(2),
			"balance_after": next.StringFixed(2),
		})
		s.logg.Info(logCtx, "ledger transaction appended")
	}

	return &Posting{Account: *account, Transaction: txn}, nil
}

func (s *service) validateEntry(entry Entry) (string, error) {
	if !entry.Owner.Type.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid owner type")
	}
	if entry.Owner.ID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	if !entry.Type.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type").
			WithDetails(map[string]any{"type": string(entry.Type)})
	}
	if entry.Reference != nil {
		if !entry.Reference.Type.IsValid() || entry.Reference.ID == uuid.Nil {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction reference")
		}
	}
	if err := ValidateAmount(entry.Amount); err != nil {
		return "", err
	}
	currency := strings.ToUpper(strings.TrimSpace(entry.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if len(currency) != 3 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "currency must be a 3-letter code")
	}
	return currency, nil
}

// ValidateAmount enforces a positive value with at most two decimals that fits
// numeric(12,2).
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be greater than zero").
			WithDetails(map[string]any{"amount": amount.String()})
	}
	if !amount.Equal(amount.Round(2)) {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount has more than two decimal places").
			WithDetails(map[string]any{"amount": amount.String()})
	}
	if amount.GreaterThan(maxAmount) {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount exceeds maximum").
			WithDetails(map[string]any{"amount": amount.String()})
	}
	return nil
}

func (s *service) reject(err error) {
	if typed := pkgerrors.As(err); typed != nil {
		s.metrics.IncRejection(string(typed.Code()))
	}
}

func (s *service) GetBalance(ctx context.Context, owner Owner) (*Balance, error) {
	if !owner.Type.IsValid() || owner.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid owner")
	}
	var account *models.VirtualAccount
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		account, err = s.repo.WithTx(tx).FindAccount(ctx, owner)
		return err
	})
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "virtual account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load virtual account")
	}
	return toBalance(*account), nil
}

func (s *service) ListTransactions(ctx context.Context, owner Owner, params pkgpagination.Params) (*TransactionList, error) {
	if !owner.Type.IsValid() || owner.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid owner")
	}
	limit := pkgpagination.NormalizeLimit(params.Limit)
	var before *uuid.UUID
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		before = &cursor.ID
	}

	var rows []models.VirtualTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		account, err := repo.FindAccount(ctx, owner)
		if err != nil {
			return err
		}
		rows, err = repo.ListTransactions(ctx, account.ID, before, pkgpagination.LimitWithBuffer(params.Limit))
		return err
	})
	if err != nil {
		if db.IsNotFound(err) {
			return &TransactionList{Items: []TransactionItem{}}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger transactions")
	}

	rows, nextCursor := pkgpagination.Trim(rows, limit, func(row models.VirtualTransaction) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})

	items := make([]TransactionItem, len(rows))
	for i, row := range rows {
		items[i] = toTransactionItem(row)
	}
	return &TransactionList{Items: items, Cursor: nextCursor}, nil
}

// SetStatus freezes or unfreezes an existing account. Status changes are not
// ledger postings and leave version untouched.
func (s *service) SetStatus(ctx context.Context, owner Owner, status enums.AccountStatus) (*Balance, error) {
	if !owner.Type.IsValid() || owner.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid owner")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid account status")
	}

	var account *models.VirtualAccount
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		account, err = repo.LockAccount(ctx, owner)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "virtual account not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock virtual account")
		}
		if account.Status == status {
			return nil
		}
		if err := repo.UpdateStatus(ctx, account.ID, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update account status")
		}
		account.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOwner(ctx, string(owner.Type), owner.ID.String())
		s.logg.Info(s.logg.WithField(logCtx, "status", string(status)), "virtual account status set")
	}
	return toBalance(*account), nil
}

func (s *service) AccountIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = pkgpagination.MaxLimit
	}
	var ids []uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		ids, err = s.repo.WithTx(tx).ListAccountIDs(ctx, after, limit)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list virtual accounts")
	}
	return ids, nil
}
