// Package restdoc implements the document store as an HTTP client for a
// REST document proxy.
//
// Documents live at {base}/{collection}/{key}. GET returns {"fields": {...}};
// PUT stores {"fields": {...}} and must answer with an acknowledgement that
// names the written document, {"name": "{collection}/{key}", ...}. A PUT
// carrying "If-None-Match: *" only creates. 409 or 412 means the key is taken.
package restdoc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"doccrm/backend/internal/infrastructure/docstore"
)

const maxBodyBytes = 1 << 20

// StatusError reports an unexpected HTTP status from the proxy.
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("restdoc %s: unexpected status %d", e.Op, e.Status)
}

// Client talks to the REST document proxy.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

var _ docstore.Store = (*Client)(nil)

// NewClient validates baseURL and constructs a client. A nil httpClient uses
// http.DefaultClient; per-call deadlines come from the caller's context.
func NewClient(baseURL, apiKey string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("store url must be http or https, got %q", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("store url has no host: %q", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		base:   strings.TrimRight(u.String(), "/"),
		apiKey: apiKey,
		http:   httpClient,
	}, nil
}

type envelope struct {
	Fields json.RawMessage `json:"fields"`
}

type writeAck struct {
	Name       string `json:"name"`
	UpdateTime string `json:"updateTime"`
}

func (c *Client) documentURL(collection, key string) string {
	return c.base + "/" + url.PathEscape(collection) + "/" + url.PathEscape(key)
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// Get fetches the fields of a document.
func (c *Client) Get(ctx context.Context, collection, key string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.documentURL(collection, key), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, docstore.ErrNotFound
	default:
		return nil, &StatusError{Op: "get", Status: resp.StatusCode}
	}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env); err != nil {
		return nil, fmt.Errorf("restdoc get: decode: %w", err)
	}
	if len(env.Fields) == 0 || bytes.Equal(env.Fields, []byte("null")) {
		return nil, errors.New("restdoc get: response has no fields")
	}
	return env.Fields, nil
}

// Exists reports whether the proxy holds the document.
func (c *Client) Exists(ctx context.Context, collection, key string) (bool, error) {
	_, err := c.Get(ctx, collection, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Set stores the document, replacing any existing one.
func (c *Client) Set(ctx context.Context, collection, key string, doc []byte) error {
	return c.put(ctx, collection, key, doc, false)
}

// Create stores the document only if the key is free.
func (c *Client) Create(ctx context.Context, collection, key string, doc []byte) error {
	return c.put(ctx, collection, key, doc, true)
}

func (c *Client) put(ctx context.Context, collection, key string, doc []byte, createOnly bool) error {
	body, err := json.Marshal(envelope{Fields: doc})
	if err != nil {
		return fmt.Errorf("restdoc put: encode: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPut, c.documentURL(collection, key), bytes.NewReader(body))
	if err != nil {
		return err
	}
	if createOnly {
		req.Header.Set("If-None-Match", "*")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict, http.StatusPreconditionFailed:
		if createOnly {
			return docstore.ErrAlreadyExists
		}
		return &StatusError{Op: "put", Status: resp.StatusCode}
	default:
		return &StatusError{Op: "put", Status: resp.StatusCode}
	}

	// A 2xx alone only proves the request was accepted.
	var ack writeAck
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&ack); err != nil {
		return fmt.Errorf("%w: %s/%s: %v", docstore.ErrUnconfirmedWrite, collection, key, err)
	}
	if ack.Name != collection+"/"+key {
		return fmt.Errorf("%w: %s/%s: acknowledged %q", docstore.ErrUnconfirmedWrite, collection, key, ack.Name)
	}
	return nil
}

// Ping reports whether the proxy answers at all. Any non-5xx status counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.base+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode >= http.StatusInternalServerError {
		return &StatusError{Op: "ping", Status: resp.StatusCode}
	}
	return nil
}
