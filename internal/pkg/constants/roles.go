package constants

const (
	Customer = "customer"
	Agent    = "agent"
	Admin    = "admin"
)

// ValidRoles is the set of allowed values for the Users.role column.
var ValidRoles = []string{Customer, Agent, Admin}

// IsValidRole returns true if role is one of the allowed enum values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
