package models

import "time"

// Session is the locally cached sign-in state. Only the refresh token is
// persisted; access tokens are short lived and obtained again on demand.
type Session struct {
	Email        string
	UserID       string
	RefreshToken string
}

type Identity struct {
	ID        string
	Email     string
	CreatedAt time.Time
}
