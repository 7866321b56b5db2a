// Package credstore maps user and blacklist records onto a document store.
//
// Users live at users/{email} and revoked tokens at blacklist/{token}, keyed
// by the exact strings the caller supplies. Every call runs under its own
// deadline; any backend failure, including a deadline hit, is reported as
// auth.ErrStorageFailure.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "doccrm/backend/internal/domain/auth"
	"doccrm/backend/internal/infrastructure/docstore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	usersCollection     = "users"
	blacklistCollection = "blacklist"
)

// DefaultTimeout bounds a single store call when none is configured.
const DefaultTimeout = 5 * time.Second

// Client implements the auth repositories over a docstore.Store.
type Client struct {
	store   docstore.Store
	timeout time.Duration
	tracer  trace.Tracer
}

var (
	_ domain.UserRepository      = (*Client)(nil)
	_ domain.BlacklistRepository = (*Client)(nil)
)

// New wraps store. A non-positive timeout falls back to DefaultTimeout.
func New(store docstore.Store, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		store:   store,
		timeout: timeout,
		tracer:  otel.Tracer("doccrm/backend/credstore"),
	}
}

type userDocument struct {
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name,omitempty"`
}

type blacklistDocument struct {
	Token         string    `json:"token"`
	BlacklistedOn time.Time `json:"blacklisted_on"`
}

// call runs fn under the per-call deadline inside a client span.
func (c *Client) call(ctx context.Context, op, collection string, fn func(ctx context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "credstore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("doccrm.collection", collection)),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := fn(ctx)
	if err != nil && !isDomainOutcome(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
	}
	return err
}

func isDomainOutcome(err error) bool {
	return errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrAlreadyExists)
}

func storageFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageFailure, op, err)
}

// GetByEmail loads the user stored under users/{email}.
func (c *Client) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var raw []byte
	err := c.call(ctx, "GetUser", usersCollection, func(ctx context.Context) error {
		var err error
		raw, err = c.store.Get(ctx, usersCollection, email)
		return err
	})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storageFailure("get user", err)
	}

	var doc userDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, storageFailure("decode user", err)
	}
	return &domain.User{
		Name:         doc.Name,
		Surname:      doc.Surname,
		Email:        doc.Email,
		PasswordHash: doc.Password,
		CompanyName:  doc.CompanyName,
	}, nil
}

// Exists reports whether users/{email} is taken.
func (c *Client) Exists(ctx context.Context, email string) (bool, error) {
	var ok bool
	err := c.call(ctx, "UserExists", usersCollection, func(ctx context.Context) error {
		var err error
		ok, err = c.store.Exists(ctx, usersCollection, email)
		return err
	})
	if err != nil {
		return false, storageFailure("check user", err)
	}
	return ok, nil
}

// Create stores a new user. It never replaces an existing record.
func (c *Client) Create(ctx context.Context, user *domain.User) error {
	raw, err := json.Marshal(userDocument{
		Name:        user.Name,
		Surname:     user.Surname,
		Email:       user.Email,
		Password:    user.PasswordHash,
		CompanyName: user.CompanyName,
	})
	if err != nil {
		return storageFailure("encode user", err)
	}

	err = c.call(ctx, "CreateUser", usersCollection, func(ctx context.Context) error {
		return c.store.Create(ctx, usersCollection, user.Email, raw)
	})
	if err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return domain.ErrDuplicateEmail
		}
		return storageFailure("create user", err)
	}
	return nil
}

// Put writes blacklist/{token}, replacing an earlier entry.
func (c *Client) Put(ctx context.Context, entry domain.BlacklistEntry) error {
	raw, err := json.Marshal(blacklistDocument{
		Token:         entry.Token,
		BlacklistedOn: entry.BlacklistedOn.UTC(),
	})
	if err != nil {
		return storageFailure("encode blacklist entry", err)
	}

	err = c.call(ctx, "PutBlacklist", blacklistCollection, func(ctx context.Context) error {
		return c.store.Set(ctx, blacklistCollection, entry.Token, raw)
	})
	if err != nil {
		return storageFailure("put blacklist entry", err)
	}
	return nil
}

// Contains reports whether blacklist/{token} exists.
func (c *Client) Contains(ctx context.Context, token string) (bool, error) {
	var ok bool
	err := c.call(ctx, "CheckBlacklist", blacklistCollection, func(ctx context.Context) error {
		var err error
		ok, err = c.store.Exists(ctx, blacklistCollection, token)
		return err
	})
	if err != nil {
		return false, storageFailure("check blacklist", err)
	}
	return ok, nil
}

// Ping checks the backing store when it supports reachability checks.
func (c *Client) Ping(ctx context.Context) error {
	p, ok := c.store.(docstore.Pinger)
	if !ok {
		return nil
	}
	return c.call(ctx, "Ping", "", p.Ping)
}
