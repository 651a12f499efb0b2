package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateCommission     OutboxAggregateType = "commission"
	AggregateWithdrawal     OutboxAggregateType = "withdrawal"
	AggregateVirtualAccount OutboxAggregateType = "virtual_account"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateCommission,
	AggregateWithdrawal,
	AggregateVirtualAccount,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventCommissionAwarded         OutboxEventType = "commission_awarded"
	EventCommissionRequested       OutboxEventType = "commission_requested"
	EventCommissionConfirmed       OutboxEventType = "commission_confirmed"
	EventCommissionPaid            OutboxEventType = "commission_paid"
	EventCommissionDisputed        OutboxEventType = "commission_disputed"
	EventCommissionDisputeResolved OutboxEventType = "commission_dispute_resolved"
	EventCommissionClawedBack      OutboxEventType = "commission_clawed_back"
	EventCommissionCancelled       OutboxEventType = "commission_cancelled"
	EventWithdrawalRequested       OutboxEventType = "withdrawal_requested"
	EventWithdrawalCancelled       OutboxEventType = "withdrawal_cancelled"
	EventWithdrawalApproved        OutboxEventType = "withdrawal_approved"
	EventWithdrawalRejected        OutboxEventType = "withdrawal_rejected"
	EventWithdrawalProcessing      OutboxEventType = "withdrawal_processing"
	EventWithdrawalCompleted       OutboxEventType = "withdrawal_completed"
	EventLedgerDriftDetected       OutboxEventType = "ledger_drift_detected"
)

var validOutboxEventTypes = []OutboxEventType{
	EventCommissionAwarded,
	EventCommissionRequested,
	EventCommissionConfirmed,
	EventCommissionPaid,
	EventCommissionDisputed,
	EventCommissionDisputeResolved,
	EventCommissionClawedBack,
	EventCommissionCancelled,
	EventWithdrawalRequested,
	EventWithdrawalCancelled,
	EventWithdrawalApproved,
	EventWithdrawalRejected,
	EventWithdrawalProcessing,
	EventWithdrawalCompleted,
	EventLedgerDriftDetected,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
