package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	domain "doccrm/backend/internal/domain/auth"
)

// emailPattern is anchored at the start only; anything after a matching
// local@domain.tld prefix is accepted.
var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+`)

// Service coordinates the register, login and logout flows.
type Service struct {
	users  domain.UserRepository
	tokens *TokenService
	hasher PasswordHasher
}

// NewService constructs an auth service.
func NewService(users domain.UserRepository, tokens *TokenService, hasher PasswordHasher) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		hasher: hasher,
	}
}

// Register validates input and stores a new user. Emails are used exactly as
// given. Checks run in order and the first failure is returned.
func (s *Service) Register(ctx context.Context, in domain.Registration) error {
	if in.Name == "" || in.Surname == "" || in.Email == "" || in.Password == "" {
		return domain.ErrMissingFields
	}
	if !emailPattern.MatchString(in.Email) {
		return domain.ErrInvalidEmail
	}

	exists, err := s.users.Exists(ctx, in.Email)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrDuplicateEmail
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("%w: hash password: %w", domain.ErrUnknown, err)
	}

	// Create refuses to overwrite, so a concurrent registration that slipped
	// past Exists still ends in ErrDuplicateEmail.
	return s.users.Create(ctx, &domain.User{
		Name:         in.Name,
		Surname:      in.Surname,
		Email:        in.Email,
		PasswordHash: hashed,
		CompanyName:  in.CompanyName,
	})
}

// Login checks credentials and issues a session token. Unknown email and
// wrong password both return domain.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	if creds.Email == "" || creds.Password == "" {
		return "", domain.ErrMissingFields
	}

	user, err := s.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}

	if err := s.hasher.Compare(user.PasswordHash, creds.Password); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	return s.tokens.Issue(creds.Email)
}

// Logout revokes the presented token without validating it.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrMissingToken
	}
	return s.tokens.Revoke(ctx, token)
}
