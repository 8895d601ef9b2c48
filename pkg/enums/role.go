package enums

// Role identifies which table an authenticated principal came from.
type Role string

const (
	RoleShopper Role = "shopper"
	RoleHost    Role = "host"
)

// IsValid reports whether the role is one of the known values.
func (r Role) IsValid() bool {
	switch r {
	case RoleShopper, RoleHost:
		return true
	}
	return false
}
