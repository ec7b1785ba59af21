package domain

// Role is the coarse permission carried by an identity token.
type Role string

const (
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Identity is the caller as asserted by the external authentication collaborator.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

// IsAdmin reports whether the identity may manage SLA policies.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
