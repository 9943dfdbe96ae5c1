// Package users holds accounts, credential checks, and the header-based
// identity middleware.
package users

import "time"

// User is an account row. PasswordHash never leaves the package boundary;
// handlers serialize the Public view.
type User struct {
	ID           int64
	Username     string
	Name         string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public is the wire shape of a user.
type Public struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func (u User) Public() Public {
	return Public{ID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role}
}
