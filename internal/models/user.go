package models

// Role represents what a façade caller may do
type Role string

const (
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// Operator is an account allowed to drive the simulation over HTTP
type Operator struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	Role      Role   `json:"role"`
}

// Claims represents JWT claims
type Claims struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Exp      int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleOperator, RoleViewer:
		return true
	default:
		return false
	}
}

// HasPermission checks if the role may perform a façade action
func (r Role) HasPermission(action string) bool {
	switch r {
	case RoleOperator:
		return true
	case RoleViewer:
		return action == "view_agents" || action == "view_stats"
	default:
		return false
	}
}
