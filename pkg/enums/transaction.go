package enums

import "fmt"

// TransactionType classifies a virtual ledger entry.
type TransactionType string

const (
	TransactionCommissionEarned     TransactionType = "commission_earned"
	TransactionCommissionClawback   TransactionType = "commission_clawback"
	TransactionCommissionWithdrawal TransactionType = "commission_withdrawal"
	TransactionSubscriptionPurchase TransactionType = "subscription_purchase"
	TransactionJobPostingDeduction  TransactionType = "job_posting_deduction"
	TransactionAccountTopup         TransactionType = "account_topup"
	TransactionManualAdjustment     TransactionType = "manual_adjustment"
)

var validTransactionTypes = []TransactionType{
	TransactionCommissionEarned,
	TransactionCommissionClawback,
	TransactionCommissionWithdrawal,
	TransactionSubscriptionPurchase,
	TransactionJobPostingDeduction,
	TransactionAccountTopup,
	TransactionManualAdjustment,
}

// String implements fmt.Stringer.
func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransactionType.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}

// TransactionDirection is the sign of a ledger entry.
type TransactionDirection string

const (
	DirectionCredit TransactionDirection = "credit"
	DirectionDebit  TransactionDirection = "debit"
)

func (d TransactionDirection) IsValid() bool {
	return d == DirectionCredit || d == DirectionDebit
}

// TransactionStatus is always completed today; the column exists for pending rails.
type TransactionStatus string

const TransactionStatusCompleted TransactionStatus = "completed"

// ReferenceType names the entity a ledger entry points at.
type ReferenceType string

const (
	ReferenceCommission   ReferenceType = "commission"
	ReferenceWithdrawal   ReferenceType = "withdrawal"
	ReferenceJob          ReferenceType = "job"
	ReferenceSubscription ReferenceType = "subscription"
	ReferenceManual       ReferenceType = "manual"
)

var validReferenceTypes = []ReferenceType{
	ReferenceCommission,
	ReferenceWithdrawal,
	ReferenceJob,
	ReferenceSubscription,
	ReferenceManual,
}

// IsValid reports whether the value is a known ReferenceType.
func (r ReferenceType) IsValid() bool {
	for _, candidate := range validReferenceTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReferenceType converts raw input into a ReferenceType.
func ParseReferenceType(value string) (ReferenceType, error) {
	for _, candidate := range validReferenceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reference type %q", value)
}
