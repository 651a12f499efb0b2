package enums

import "fmt"

// CommissionType maps to the commission_type enum in Postgres.
type CommissionType string

const (
	CommissionTypePlacement          CommissionType = "placement"
	CommissionTypeRecruitmentService CommissionType = "recruitment_service"
	CommissionTypeSubscriptionSale   CommissionType = "subscription_sale"
	CommissionTypeCustom             CommissionType = "custom"
)

var validCommissionTypes = []CommissionType{
	CommissionTypePlacement,
	CommissionTypeRecruitmentService,
	CommissionTypeSubscriptionSale,
	CommissionTypeCustom,
}

// String implements fmt.Stringer.
func (c CommissionType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommissionType.
func (c CommissionType) IsValid() bool {
	for _, candidate := range validCommissionTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommissionType converts raw input into a CommissionType.
func ParseCommissionType(value string) (CommissionType, error) {
	for _, candidate := range validCommissionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission type %q", value)
}

// CommissionStatus maps to the commission_status enum in Postgres.
type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusConfirmed CommissionStatus = "confirmed"
	CommissionStatusPaid      CommissionStatus = "paid"
	CommissionStatusDisputed  CommissionStatus = "disputed"
	CommissionStatusClawback  CommissionStatus = "clawback"
	CommissionStatusCancelled CommissionStatus = "cancelled"
)

var validCommissionStatuses = []CommissionStatus{
	CommissionStatusPending,
	CommissionStatusConfirmed,
	CommissionStatusPaid,
	CommissionStatusDisputed,
	CommissionStatusClawback,
	CommissionStatusCancelled,
}

// String implements fmt.Stringer.
func (c CommissionStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommissionStatus.
func (c CommissionStatus) IsValid() bool {
	for _, candidate := range validCommissionStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// Reversed reports whether the commission was already taken back (clawback or cancelled).
func (c CommissionStatus) Reversed() bool {
	return c == CommissionStatusClawback || c == CommissionStatusCancelled
}

// ParseCommissionStatus converts raw input into a CommissionStatus.
func ParseCommissionStatus(value string) (CommissionStatus, error) {
	for _, candidate := range validCommissionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission status %q", value)
}

// DisputeResolution is the admin verdict on a disputed commission.
type DisputeResolution string

const (
	DisputeResolutionValid   DisputeResolution = "valid"
	DisputeResolutionInvalid DisputeResolution = "invalid"
)

func (d DisputeResolution) IsValid() bool {
	return d == DisputeResolutionValid || d == DisputeResolutionInvalid
}

// ParseDisputeResolution converts raw input into a DisputeResolution.
func ParseDisputeResolution(value string) (DisputeResolution, error) {
	switch DisputeResolution(value) {
	case DisputeResolutionValid, DisputeResolutionInvalid:
		return DisputeResolution(value), nil
	}
	return "", fmt.Errorf("invalid dispute resolution %q", value)
}
