package enums

import "fmt"

// AccountStatus maps to the account_status enum in Postgres.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusFrozen AccountStatus = "frozen"
)

var validAccountStatuses = []AccountStatus{
	AccountStatusActive,
	AccountStatusFrozen,
}

func (a AccountStatus) IsValid() bool {
	for _, candidate := range validAccountStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAccountStatus converts raw input into an AccountStatus.
func ParseAccountStatus(value string) (AccountStatus, error) {
	for _, candidate := range validAccountStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account status %q", value)
}
