package enums

import "fmt"

// AccountRole represents an account-level permissions role. Roles form a
// total order; comparisons go through Rank, never string comparison.
type AccountRole string

const (
	AccountRoleMember AccountRole = "member"
	AccountRoleAdmin  AccountRole = "admin"
	AccountRoleOwner  AccountRole = "owner"
)

var validAccountRoles = []AccountRole{
	AccountRoleMember,
	AccountRoleAdmin,
	AccountRoleOwner,
}

var accountRoleRanks = map[AccountRole]int{
	AccountRoleMember: 1,
	AccountRoleAdmin:  2,
	AccountRoleOwner:  3,
}

// String implements fmt.Stringer.
func (r AccountRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known AccountRole.
func (r AccountRole) IsValid() bool {
	_, ok := accountRoleRanks[r]
	return ok
}

// Rank returns the position of the role in the hierarchy. Unknown roles
// rank below every valid role.
func (r AccountRole) Rank() int {
	return accountRoleRanks[r]
}

// AtLeast reports whether the role ranks equal to or above other.
func (r AccountRole) AtLeast(other AccountRole) bool {
	return r.IsValid() && other.IsValid() && r.Rank() >= other.Rank()
}

// CanGrant reports whether a holder of the role may assign target to
// someone else. A role can grant roles of equal or lower rank.
func (r AccountRole) CanGrant(target AccountRole) bool {
	return r.IsValid() && target.IsValid() && r.Rank() >= target.Rank()
}

// ParseAccountRole converts raw input into an AccountRole.
func ParseAccountRole(value string) (AccountRole, error) {
	for _, candidate := range validAccountRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account role %q", value)
}
