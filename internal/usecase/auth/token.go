package auth

import domain "doccrm/backend/internal/domain/auth"

// TokenManager abstracts token signing and verification. Validate checks
// signature and expiry only.
type TokenManager interface {
	Generate(email string) (string, error)
	Validate(token string) (domain.Identity, error)
}

// PasswordHasher wraps a salted one-way hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns nil only when password matches hash.
	Compare(hash, password string) error
}
