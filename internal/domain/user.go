package domain

import "time"

// AuthProvider enumerates how an account was created.
type AuthProvider string

const (
	AuthProviderPassword AuthProvider = "password"
	AuthProviderGoogle   AuthProvider = "google"
)

// User represents an authenticated account within the platform.
//
// IsPro comes from the profile row, not from the session token, so it can
// lag the billing backend by one page load.
type User struct {
	ID         string
	Email      string
	Name       string
	Picture    string
	Provider   AuthProvider
	IsPro      bool
	LastSeenAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
