package token

import (
	"errors"
	"strings"
	"time"

	domain "doccrm/backend/internal/domain/auth"
	usecase "doccrm/backend/internal/usecase/auth"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptySecret is returned when no signing secret is configured.
var ErrEmptySecret = errors.New("jwt secret is empty")

// JWTManager issues and validates HS256 session tokens.
type JWTManager struct {
	secret     []byte
	expiration time.Duration
	issuer     string
	nowFunc    func() time.Time
}

// Option customises a JWTManager.
type Option func(*JWTManager)

// WithClock replaces time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *JWTManager) { m.nowFunc = now }
}

// NewJWTManager constructs a manager with the provided secret and expiration.
// It refuses an empty secret so a misconfigured process fails at startup.
func NewJWTManager(secret string, expiration time.Duration, issuer string, opts ...Option) (*JWTManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrEmptySecret
	}
	m := &JWTManager{
		secret:     []byte(secret),
		expiration: expiration,
		issuer:     issuer,
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Ensure JWTManager implements the TokenManager interface.
var _ usecase.TokenManager = (*JWTManager)(nil)

// Claims represents token claims.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Generate creates a signed JWT carrying the email and an absolute expiry.
func (m *JWTManager) Generate(email string) (string, error) {
	now := m.nowFunc().UTC()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate checks signature and expiry. It returns domain.ErrExpiredToken once
// now >= exp and domain.ErrInvalidToken for every other failure.
func (m *JWTManager) Validate(tokenString string) (domain.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.nowFunc),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return domain.Identity{}, domain.ErrExpiredToken
		}
		return domain.Identity{}, domain.ErrInvalidToken
	}
	if !token.Valid || claims.Email == "" || claims.ExpiresAt == nil {
		return domain.Identity{}, domain.ErrInvalidToken
	}
	return domain.Identity{
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
