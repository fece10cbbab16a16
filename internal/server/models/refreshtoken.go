package models

import "time"

// RefreshToken is the persisted half of an issued refresh token. ID equals
// the token's jti claim; SecretHash is a vault hash of the full token string.
type RefreshToken struct {
	ID         string
	UserID     string
	SecretHash string
	CreatedAt  time.Time
}
