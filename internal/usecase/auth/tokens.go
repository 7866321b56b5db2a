package auth

import (
	"context"
	"fmt"
	"time"

	domain "doccrm/backend/internal/domain/auth"
)

// TokenService owns the session token lifecycle: issue, validate, revoke.
// Validation and revocation lookups are separate calls; the HTTP gate runs
// both.
type TokenService struct {
	tokens    TokenManager
	blacklist domain.BlacklistRepository
	nowFunc   func() time.Time
}

// NewTokenService constructs a token service.
func NewTokenService(tokens TokenManager, blacklist domain.BlacklistRepository) *TokenService {
	return &TokenService{
		tokens:    tokens,
		blacklist: blacklist,
		nowFunc:   time.Now,
	}
}

// Issue signs a token for email.
func (s *TokenService) Issue(email string) (string, error) {
	tok, err := s.tokens.Generate(email)
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %w", domain.ErrUnknown, err)
	}
	return tok, nil
}

// Validate verifies signature and expiry. It does not consult the blacklist.
func (s *TokenService) Validate(token string) (domain.Identity, error) {
	return s.tokens.Validate(token)
}

// Revoke blacklists the exact token string. The token is not parsed, so any
// presented string can be revoked; revoking twice refreshes the timestamp.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	return s.blacklist.Put(ctx, domain.BlacklistEntry{
		Token:         token,
		BlacklistedOn: s.nowFunc().UTC(),
	})
}

// IsRevoked reports whether the token has been blacklisted.
func (s *TokenService) IsRevoked(ctx context.Context, token string) (bool, error) {
	return s.blacklist.Contains(ctx, token)
}

// Authenticate runs the full gate check: Validate, then the blacklist lookup.
func (s *TokenService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	id, err := s.Validate(token)
	if err != nil {
		return domain.Identity{}, err
	}
	revoked, err := s.IsRevoked(ctx, token)
	if err != nil {
		return domain.Identity{}, err
	}
	if revoked {
		return domain.Identity{}, domain.ErrRevokedToken
	}
	return id, nil
}
