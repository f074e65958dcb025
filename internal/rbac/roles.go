package rbac

// Role names. Keep these stable; they are part of auth contracts and are
// stored on user rows.
const (
	RoleAdmin        = "admin"
	RoleAgent        = "agent"
	RoleTelemarketer = "telemarketer"
)

func IsAdmin(role string) bool { return role == RoleAdmin }
