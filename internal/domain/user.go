package domain

import "time"

// User represents a registered patient
type User struct {
	ID           string // UUID
	Name         string
	Email        string // Unique email address
	PasswordHash string // Bcrypt hashed password (not returned in API)
	Conditions   []string
	CreatedAt    time.Time
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(user *User) error
	GetByID(id string) (*User, error)
	GetByEmail(email string) (*User, error)
}
