package models

import "time"

// User is an account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Public returns a copy safe to send to clients.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
