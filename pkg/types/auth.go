package types

// UserRole represents staff roles in the practice
type UserRole string

const (
	RoleProvider  UserRole = "provider"
	RoleAssistant UserRole = "assistant"
	RoleAdmin     UserRole = "admin"
)

// AuthContext resolves the acting staff member for the current request.
// Every mutating scheduling call requires one; its absence is a hard
// failure, never a silent no-op.
type AuthContext struct {
	ActorID string   `json:"actor_id"`
	IsAdmin bool     `json:"is_admin"`
	Role    UserRole `json:"role"`
}

// UserClaims represents the validated claims of a staff token
type UserClaims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
}
