// Package models defines the server-side records persisted in PostgreSQL
// and the shapes returned to API clients.
package models

import "time"

// User is an account row. PasswordHash is a bcrypt digest, never plaintext.
type User struct {
	ID           int64
	FullName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// PublicUser is the subset of User that is safe to return to clients.
type PublicUser struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Public strips the password digest.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// AuthResult is returned by register and login.
type AuthResult struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	User        PublicUser `json:"user"`
}
