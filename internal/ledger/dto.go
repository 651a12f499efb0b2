package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

// Owner identifies the holder of a virtual account.
type Owner struct {
	Type enums.OwnerType
	ID   uuid.UUID
}

// Reference links a ledger entry back to the record that caused it.
type Reference struct {
	Type enums.ReferenceType
	ID   uuid.UUID
}

// Entry is one requested credit or debit. Currency falls back to the service
// default when empty.
type Entry struct {
	Owner       Owner
	Amount      decimal.Decimal
	Type        enums.TransactionType
	Reference   *Reference
	Description string
	Currency    string
}

// Posting is the outcome of an applied entry.
type Posting struct {
	Account     models.VirtualAccount
	Transaction models.VirtualTransaction
}

type Balance struct {
	AccountID    uuid.UUID           `json:"account_id"`
	OwnerType    enums.OwnerType     `json:"owner_type"`
	OwnerID      uuid.UUID           `json:"owner_id"`
	Currency     string              `json:"currency"`
	Balance      decimal.Decimal     `json:"balance"`
	TotalCredits decimal.Decimal     `json:"total_credits"`
	TotalDebits  decimal.Decimal     `json:"total_debits"`
	Status       enums.AccountStatus `json:"status"`
	Version      int64               `json:"version"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

type TransactionItem struct {
	ID            uuid.UUID                  `json:"id"`
	Sequence      int64                      `json:"sequence"`
	Type          enums.TransactionType      `json:"type"`
	Direction     enums.TransactionDirection `json:"direction"`
	Amount        decimal.Decimal            `json:"amount"`
	BalanceAfter  decimal.Decimal            `json:"balance_after"`
	Status        enums.TransactionStatus    `json:"status"`
	ReferenceType *enums.ReferenceType       `json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID                 `json:"reference_id,omitempty"`
	Description   string                     `json:"description"`
	CreatedAt     time.Time                  `json:"created_at"`
}

type TransactionList struct {
	Items  []TransactionItem `json:"items"`
	Cursor string            `json:"cursor"`
}

// Mismatch describes one transaction whose stored snapshot disagrees with replay.
type Mismatch struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Sequence      int64           `json:"sequence"`
	Expected      decimal.Decimal `json:"expected_balance_after"`
	Stored        decimal.Decimal `json:"stored_balance_after"`
}

// ReplayReport is the result of replaying an account's history from zero.
type ReplayReport struct {
	AccountID       uuid.UUID       `json:"account_id"`
	OwnerType       enums.OwnerType `json:"owner_type"`
	OwnerID         uuid.UUID       `json:"owner_id"`
	Transactions    int             `json:"transactions"`
	ReplayedBalance decimal.Decimal `json:"replayed_balance"`
	StoredBalance   decimal.Decimal `json:"stored_balance"`
	ReplayedCredits decimal.Decimal `json:"replayed_credits"`
	StoredCredits   decimal.Decimal `json:"stored_credits"`
	ReplayedDebits  decimal.Decimal `json:"replayed_debits"`
	StoredDebits    decimal.Decimal `json:"stored_debits"`
	SequenceGaps    []int64         `json:"sequence_gaps,omitempty"`
	VersionMismatch bool            `json:"version_mismatch"`
	Mismatches      []Mismatch      `json:"mismatches,omitempty"`
	Drifted         bool            `json:"drifted"`
}

func toBalance(a models.VirtualAccount) *Balance {
	return &Balance{
		AccountID:    a.ID,
		OwnerType:    a.OwnerType,
		OwnerID:      a.OwnerID,
		Currency:     a.Currency,
		Balance:      a.Balance,
		TotalCredits: a.TotalCredits,
		TotalDebits:  a.TotalDebits,
		Status:       a.Status,
		Version:      a.Version,
		UpdatedAt:    a.UpdatedAt,
	}
}

func toTransactionItem(t models.VirtualTransaction) TransactionItem {
	return TransactionItem{
		ID:            t.ID,
		Sequence:      t.Sequence,
		Type:          t.Type,
		Direction:     t.Direction,
		Amount:        t.Amount,
		BalanceAfter:  t.BalanceAfter,
		Status:        t.Status,
		ReferenceType: t.ReferenceType,
		ReferenceID:   t.ReferenceID,
		Description:   t.Description,
		CreatedAt:     t.CreatedAt,
	}
}

// PostingView is the API shape of an applied entry.
type PostingView struct {
	Balance     Balance         `json:"balance"`
	Transaction TransactionItem `json:"transaction"`
}

func (p Posting) View() PostingView {
	return PostingView{Balance: *toBalance(p.Account), Transaction: toTransactionItem(p.Transaction)}
}
