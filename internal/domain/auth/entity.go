package auth

import (
	"errors"
	"time"
)

// Error kinds surfaced to clients. Each maps to one stable HTTP status.
var (
	// ErrMissingFields indicates a required input field was empty.
	ErrMissingFields = errors.New("missing required fields")
	// ErrInvalidEmail indicates the email does not look like local@domain.tld.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrDuplicateEmail signals a duplicate email registration.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials indicates a login failure. Unknown email and wrong
	// password both collapse to this error.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingToken means no bearer token was presented.
	ErrMissingToken = errors.New("token missing")
	// ErrInvalidToken means a supplied token is malformed or its signature does not verify.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken means the token's expiry has passed.
	ErrExpiredToken = errors.New("token expired")
	// ErrRevokedToken means the token was blacklisted by a logout.
	ErrRevokedToken = errors.New("token revoked")
	// ErrStorageFailure means the credential store was unreachable or did not
	// confirm a write.
	ErrStorageFailure = errors.New("storage failure")
	// ErrUnknown is the catch-all for unexpected faults.
	ErrUnknown = errors.New("unknown error")
)

// ErrUserNotFound indicates a missing user record. It never leaves the service
// layer; login converts it to ErrInvalidCredentials.
var ErrUserNotFound = errors.New("user not found")

// User models the credential record persisted under users/{email}.
type User struct {
	Name         string
	Surname      string
	Email        string
	PasswordHash string
	CompanyName  string
}

// BlacklistEntry records a revoked token under blacklist/{token}.
type BlacklistEntry struct {
	Token         string
	BlacklistedOn time.Time
}

// Identity is the decoded, verified content of a session token.
type Identity struct {
	Email     string
	ExpiresAt time.Time
}

// Registration captures raw sign-up input.
type Registration struct {
	Name        string
	Surname     string
	Email       string
	Password    string
	CompanyName string
}

// Credentials captures raw credential input for login.
type Credentials struct {
	Email    string
	Password string
}
