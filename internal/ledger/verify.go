package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-backend/pkg/db"
	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
	pkgerrors "github.com/talentbridge/talentbridge-backend/pkg/errors"
)

// Verify replays the account's transactions in sequence order from a zero
// balance and compares every snapshot, the totals and the version.
func (s *service) Verify(ctx context.Context, accountID uuid.UUID) (*ReplayReport, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	var (
		account *models.VirtualAccount
		history []models.VirtualTransaction
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		account, err = repo.FindAccountByID(ctx, accountID)
		if err != nil {
			return err
		}
		history, err = repo.History(ctx, accountID)
		return err
	})
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "virtual account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger history")
	}

	report := Replay(*account, history)
	s.metrics.ObserveVerification(report.Drifted)
	if report.Drifted && s.logg != nil {
		logCtx := s.logg.WithOwner(ctx, string(account.OwnerType), account.OwnerID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"account_id":       account.ID.String(),
			"replayed_balance": report.ReplayedBalance.StringFixed(2),
			"stored_balance":   report.StoredBalance.StringFixed(2),
			"mismatches":       len(report.Mismatches),
		})
		s.logg.Warn(logCtx, "ledger replay drift detected")
	}
	return report, nil
}

func (s *service) VerifyOwner(ctx context.Context, owner Owner) (*ReplayReport, error) {
	balance, err := s.GetBalance(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.Verify(ctx, balance.AccountID)
}

// Replay is the pure replay check over an account and its ordered history.
func Replay(account models.VirtualAccount, history []models.VirtualTransaction) *ReplayReport {
	report := &ReplayReport{
		AccountID:     account.ID,
		OwnerType:     account.OwnerType,
		OwnerID:       account.OwnerID,
		Transactions:  len(history),
		StoredBalance: account.Balance,
		StoredCredits: account.TotalCredits,
		StoredDebits:  account.TotalDebits,
	}

	running := decimal.Zero
	credits := decimal.Zero
	debits := decimal.Zero
	for i, txn := range history {
		if want := int64(i + 1); txn.Sequence != want {
			report.SequenceGaps = append(report.SequenceGaps, want)
		}
		running = running.Add(txn.Signed())
		if txn.Direction == enums.DirectionCredit {
			credits = credits.Add(txn.Amount)
		} else {
			debits = debits.Add(txn.Amount)
		}
		if !running.Equal(txn.BalanceAfter) {
			report.Mismatches = append(report.Mismatches, Mismatch{
				TransactionID: txn.ID,
				Sequence:      txn.Sequence,
				Expected:      running,
				Stored:        txn.BalanceAfter,
			})
		}
	}

	report.ReplayedBalance = running
	report.ReplayedCredits = credits
	report.ReplayedDebits = debits
	report.VersionMismatch = account.Version != int64(len(history))
	report.Drifted = len(report.Mismatches) > 0 ||
		len(report.SequenceGaps) > 0 ||
		report.VersionMismatch ||
		!running.Equal(account.Balance) ||
		!credits.Equal(account.TotalCredits) ||
		!debits.Equal(account.TotalDebits)
	return report
}
