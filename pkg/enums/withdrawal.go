package enums

import "fmt"

// WithdrawalStatus maps to the withdrawal_status enum in Postgres.
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusApproved   WithdrawalStatus = "approved"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusCancelled  WithdrawalStatus = "cancelled"
)

var validWithdrawalStatuses = []WithdrawalStatus{
	WithdrawalStatusPending,
	WithdrawalStatusApproved,
	WithdrawalStatusProcessing,
	WithdrawalStatusCompleted,
	WithdrawalStatusCancelled,
}

// LockingWithdrawalStatuses lists the statuses whose withdrawals hold their commissions.
var LockingWithdrawalStatuses = []WithdrawalStatus{
	WithdrawalStatusPending,
	WithdrawalStatusApproved,
	WithdrawalStatusProcessing,
}

// String implements fmt.Stringer.
func (w WithdrawalStatus) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WithdrawalStatus.
func (w WithdrawalStatus) IsValid() bool {
	for _, candidate := range validWithdrawalStatuses {
		if candidate == w {
			return true
		}
	}
	return false
}

// Locks reports whether a withdrawal in this status keeps its commissions out of
// the available balance.
func (w WithdrawalStatus) Locks() bool {
	for _, candidate := range LockingWithdrawalStatuses {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWithdrawalStatus converts raw input into a WithdrawalStatus.
func ParseWithdrawalStatus(value string) (WithdrawalStatus, error) {
	for _, candidate := range validWithdrawalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid withdrawal status %q", value)
}
