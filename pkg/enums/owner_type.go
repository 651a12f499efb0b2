package enums

import "fmt"

// OwnerType identifies who a virtual account or commission belongs to.
type OwnerType string

const (
	OwnerTypeConsultant OwnerType = "consultant"
	OwnerTypeSalesAgent OwnerType = "sales_agent"
	OwnerTypeCompany    OwnerType = "company"
	OwnerTypePlatform   OwnerType = "platform"
)

var validOwnerTypes = []OwnerType{
	OwnerTypeConsultant,
	OwnerTypeSalesAgent,
	OwnerTypeCompany,
	OwnerTypePlatform,
}

// String implements fmt.Stringer.
func (o OwnerType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OwnerType.
func (o OwnerType) IsValid() bool {
	for _, candidate := range validOwnerTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// Earns reports whether the owner type can hold commissions and request withdrawals.
func (o OwnerType) Earns() bool {
	return o == OwnerTypeConsultant || o == OwnerTypeSalesAgent
}

// ParseOwnerType converts raw input into an OwnerType.
func ParseOwnerType(value string) (OwnerType, error) {
	for _, candidate := range validOwnerTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid owner type %q", value)
}
