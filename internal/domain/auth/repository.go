package auth

import "context"

// UserRepository defines persistence operations for user records keyed by email.
type UserRepository interface {
	// GetByEmail returns ErrUserNotFound when no record exists.
	GetByEmail(ctx context.Context, email string) (*User, error)
	Exists(ctx context.Context, email string) (bool, error)
	// Create never overwrites; an existing record yields ErrDuplicateEmail.
	Create(ctx context.Context, user *User) error
}

// BlacklistRepository persists revoked tokens.
type BlacklistRepository interface {
	// Put inserts or overwrites the entry keyed by its token.
	Put(ctx context.Context, entry BlacklistEntry) error
	Contains(ctx context.Context, token string) (bool, error)
}
