package model

import "time"

// User is a parent or an organiser account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone"`
	IsStaff      bool      `json:"is_staff"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Player is a child registered under a parent account.
type Player struct {
	ID           string     `json:"id"`
	ParentID     string     `json:"parent_id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	BirthDate    *time.Time `json:"birth_date,omitempty"`
	Position     string     `json:"position"`
	JerseyNumber *int       `json:"jersey_number,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
}

// FullName joins first and last name.
func (p *Player) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Principal identifies the authenticated caller of a request.
type Principal struct {
	UserID  string
	IsStaff bool
}

// CanAccess reports whether the principal owns ownerID or is staff.
func (p Principal) CanAccess(ownerID string) bool {
	return p.IsStaff || (p.UserID != "" && p.UserID == ownerID)
}

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Phone     string `json:"phone" validate:"max=32"`
}

// LoginRequest is the payload for exchanging credentials for a token.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        *User     `json:"user"`
}

// PlayerRequest is the payload for creating or updating a player.
type PlayerRequest struct {
	FirstName    string `json:"first_name" validate:"required,max=100"`
	LastName     string `json:"last_name" validate:"max=100"`
	BirthDate    string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Position     string `json:"position" validate:"max=50"`
	JerseyNumber *int   `json:"jersey_number" validate:"omitempty,min=0,max=99"`
	Active       *bool  `json:"active"`
}
