package models

import (
	"time"

	"github.com/jackc/pgx/v5"
)

// User roles
const (
	RoleAdmin  = "admin"
	RoleMentor = "mentor"
	RoleMentee = "mentee"
)

// User represents a registered platform user
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	PasswordHash string    `json:"-"`
	Bio          *string   `json:"bio"`
	Expertise    *string   `json:"expertise"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsMentor reports whether the user holds the mentor role
func (u *User) IsMentor() bool { return u.Role == RoleMentor }

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// RegisterRequest is the payload for registering a new user
type RegisterRequest struct {
	Email     string  `json:"email" binding:"required,email,max=254"`
	Name      string  `json:"name" binding:"required,min=2,max=100"`
	Password  string  `json:"password" binding:"required,min=8,max=72"`
	Role      string  `json:"role" binding:"required,oneof=admin mentor mentee"`
	Bio       *string `json:"bio" binding:"omitempty,max=2000"`
	Expertise *string `json:"expertise" binding:"omitempty,max=500"`
}

// LoginRequest is the payload for logging in
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserSession contains the authenticated user data stored in the request context
type UserSession struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// UsersResponse is the response for listing users
type UsersResponse struct {
	Users []*User `json:"users"`
	Total int     `json:"total"`
}

// ScanUser scans a single PostgreSQL row into a User struct
// Expected columns: id, email, name, role, is_active, password_hash, bio,
// expertise, created_at, updated_at
func ScanUser(row pgx.Row) (*User, error) {
	var u User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Role,
		&u.IsActive,
		&u.PasswordHash,
		&u.Bio,
		&u.Expertise,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &u, nil
}

// ScanUsers scans multiple PostgreSQL rows into a slice of User structs
func ScanUsers(rows pgx.Rows) ([]*User, error) {
	defer rows.Close()

	users := []*User{}
	for rows.Next() {
		user, err := ScanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}
