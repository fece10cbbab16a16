package models

import "time"

// User is a registered account. PasswordHash is a vault hash, never the
// plaintext password.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// PublicUser is the part of a User that may leave the server.
type PublicUser struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// Public strips the password hash.
func (u *User) Public() *PublicUser {
	return &PublicUser{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}
