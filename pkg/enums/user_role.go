package enums

import "fmt"

// UserRole partitions accounts into the three marketplace populations.
// The role is fixed at registration and never changes afterwards.
type UserRole string

const (
	UserRolePurchaser UserRole = "purchaser"
	UserRoleSupplier  UserRole = "supplier"
	UserRoleAdmin     UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRolePurchaser,
	UserRoleSupplier,
	UserRoleAdmin,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
