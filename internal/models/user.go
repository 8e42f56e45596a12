package models

// Role represents a user's privilege level
type Role int

// Role constants
const (
	RoleUser  Role = 1
	RoleAdmin Role = 2
)

// Valid reports whether the role is one of the known values
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a user account in the system
type User struct {
	ID           int    `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"` // Never serialize password hash
	IsActive     bool   `json:"is_active"`
	Role         Role   `json:"role"` // 1=User, 2=Admin, default=1
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse represents a successful login response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UpdateUserRequest represents a partial user update.
// Only non-nil fields overwrite the stored record.
type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	Name     *string `json:"name,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *Role   `json:"role,omitempty"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
	Role     Role   `json:"role"`
}

// ToResponse maps a User to its API representation
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		IsActive: u.IsActive,
		Role:     u.Role,
	}
}
