package models

import (
	"fmt"
	"time"
)

// User represents a row in the "users" table.
// The zero value is a valid, unsaved user: no ID, no creation time, inactive.
type User struct {
	// ID is assigned by storage on first save. Zero means not yet persisted.
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`
}

// NewUser returns an active user stamped with clock.Now().
func NewUser(clock Clock, name, email string) *User {
	return &User{
		Name:      name,
		Email:     email,
		CreatedAt: clock.Now(),
		Active:    true,
	}
}

// HasID reports whether the user has been persisted.
func (u *User) HasID() bool { return u.ID != 0 }

// DisplayName returns the name, or "Unknown User" when it is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return "Unknown User"
}

// Activate marks the user active.
func (u *User) Activate() { u.Active = true }

// Deactivate marks the user inactive.
func (u *User) Deactivate() { u.Active = false }

// String renders the ID, name and email for logs.
func (u *User) String() string {
	return fmt.Sprintf("User{id=%d, name='%s', email='%s'}", u.ID, u.Name, u.Email)
}

// CreateUserParams holds the fields required to create a new user.
type CreateUserParams struct {
	Name  string
	Email string
}
