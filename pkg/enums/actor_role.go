package enums

import "fmt"

// ActorRole is the role carried in access tokens.
type ActorRole string

const (
	ActorRoleConsultant ActorRole = "consultant"
	ActorRoleSalesAgent ActorRole = "sales_agent"
	ActorRoleAdmin      ActorRole = "admin"
	ActorRoleCompany    ActorRole = "company"
)

var validActorRoles = []ActorRole{
	ActorRoleConsultant,
	ActorRoleSalesAgent,
	ActorRoleAdmin,
	ActorRoleCompany,
}

// String implements fmt.Stringer.
func (a ActorRole) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActorRole.
func (a ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == a {
			return true
		}
	}
	return false
}

// OwnerType maps an earning role onto the owner type its ledger account uses.
func (a ActorRole) OwnerType() (OwnerType, bool) {
	switch a {
	case ActorRoleConsultant:
		return OwnerTypeConsultant, true
	case ActorRoleSalesAgent:
		return OwnerTypeSalesAgent, true
	case ActorRoleCompany:
		return OwnerTypeCompany, true
	}
	return "", false
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
