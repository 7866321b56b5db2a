package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"doccrm/backend/internal/config"
	"doccrm/backend/internal/infrastructure/credstore"
	"doccrm/backend/internal/infrastructure/docstore"
	"doccrm/backend/internal/infrastructure/memory"
	"doccrm/backend/internal/infrastructure/password"
	"doccrm/backend/internal/infrastructure/token"
	"doccrm/backend/internal/logging"
	authusecase "doccrm/backend/internal/usecase/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

type harness struct {
	server *Server
	clock  *testClock
	logs   *bytes.Buffer
}

func newHarness(t *testing.T, store docstore.Store) *harness {
	t.Helper()
	clock := &testClock{now: time.Now().UTC().Truncate(time.Second)}

	var logs bytes.Buffer
	logger, err := logging.New("debug", "json", &logs)
	require.NoError(t, err)

	creds := credstore.New(store, time.Second)
	jwtManager, err := token.NewJWTManager("handler-secret", time.Hour, "doccrm", token.WithClock(clock.Now))
	require.NoError(t, err)
	hasher, err := password.NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)

	tokens := authusecase.NewTokenService(jwtManager, creds)
	svc := authusecase.NewService(creds, tokens, hasher)

	cfg := config.Config{
		HTTPPort:        "0",
		AllowedOrigins:  []string{"*"},
		ReadTimeoutSec:  5,
		WriteTimeoutSec: 5,
		IdleTimeoutSec:  5,
	}
	return &harness{
		server: NewServer(cfg, logger, svc, tokens, creds),
		clock:  clock,
		logs:   &logs,
	}
}

func (h *harness) do(t *testing.T, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func bearer(tok string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + tok}}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

const registerBody = `{"name":"A","surname":"B","email":"a@b.com","password":"pw123","companyName":"Acme"}`

func (h *harness) login(t *testing.T) string {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/api/register", registerBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/api/login", `{"email":"a@b.com","password":"pw123"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok, _ := decodeBody(t, rec)["token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func TestEndToEnd_LogoutRevokesToken(t *testing.T) {
	h := newHarness(t, memory.NewStore())
	tok := h.login(t)

	rec := h.do(t, http.MethodGet, "/api/me", "", bearer(tok))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decodeBody(t, rec)
	assert.Equal(t, "a@b.com", me["email"])
	assert.Equal(t, h.clock.now.Add(time.Hour).Format(time.RFC3339), me["expiresAt"])

	rec = h.do(t, http.MethodPost, "/api/logout", "", bearer(tok))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Logout successful"}`, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/me", "", bearer(tok))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Token has been invalidated"}`, rec.Body.String())
}

func TestRegister_Responses(t *testing.T) {
	h := newHarness(t, memory.NewStore())

	rec := h.do(t, http.MethodPost, "/api/register", registerBody, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"message":"User registered successfully"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	cases := []struct {
		name string
		body string
		want string
	}{
		{"duplicate", registerBody, `{"message":"Email already registered"}`},
		{"missing surname", `{"name":"A","email":"x@y.com","password":"p"}`, `{"message":"Missing required fields"}`},
		{"null body", `null`, `{"message":"Missing required fields"}`},
		{"bad email", `{"name":"A","surname":"B","email":"nope","password":"p"}`, `{"message":"Invalid email address"}`},
		{"invalid json", `{"name":`, `{"message":"Invalid JSON payload"}`},
		{"wrong field type", `{"name":1}`, `{"message":"Invalid JSON payload"}`},
		{"trailing garbage", registerBody + `garbage`, `{"message":"Invalid JSON payload"}`},
		{"second object", registerBody + `{}`, `{"message":"Invalid JSON payload"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, "/api/register", tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, tc.want, rec.Body.String())
		})
	}
}

func TestLogin_FailuresAreIdentical(t *testing.T) {
	h := newHarness(t, memory.NewStore())
	h.login(t)

	wrongPassword := h.do(t, http.MethodPost, "/api/login", `{"email":"a@b.com","password":"nope"}`, nil)
	unknownEmail := h.do(t, http.MethodPost, "/api/login", `{"email":"x@y.com","password":"pw123"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.Bytes(), unknownEmail.Body.Bytes())
	assert.JSONEq(t, `{"message":"Invalid email or password"}`, unknownEmail.Body.String())

	trailing := h.do(t, http.MethodPost, "/api/login", `{"email":"a@b.com","password":"pw123"}garbage`, nil)
	assert.Equal(t, http.StatusBadRequest, trailing.Code)
	assert.JSONEq(t, `{"message":"Invalid JSON payload"}`, trailing.Body.String())

	padded := h.do(t, http.MethodPost, "/api/login", "{\"email\":\"a@b.com\",\"password\":\"pw123\"}\n  ", nil)
	assert.Equal(t, http.StatusOK, padded.Code)

	missing := h.do(t, http.MethodPost, "/api/login", `{"email":"a@b.com"}`, nil)
	assert.Equal(t, http.StatusBadRequest, missing.Code)
	assert.JSONEq(t, `{"message":"Missing required fields"}`, missing.Body.String())
}

func TestLogout_Headers(t *testing.T) {
	h := newHarness(t, memory.NewStore())

	rec := h.do(t, http.MethodPost, "/api/logout", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Token missing"}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/api/logout", "", http.Header{"Authorization": []string{"Bearer"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid token"}`, rec.Body.String())

	// Any presented string is revoked without validation.
	rec = h.do(t, http.MethodPost, "/api/logout", "", bearer("garbage"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGate(t *testing.T) {
	h := newHarness(t, memory.NewStore())
	tok := h.login(t)

	cases := []struct {
		name   string
		header http.Header
		status int
		want   string
	}{
		{"no header", nil, http.StatusUnauthorized, `{"message":"Token missing"}`},
		{"single field", http.Header{"Authorization": []string{"Bearer"}}, http.StatusUnauthorized, `{"message":"Invalid token"}`},
		{"whitespace only", http.Header{"Authorization": []string{"   "}}, http.StatusUnauthorized, `{"message":"Invalid token"}`},
		{"garbage token", bearer("abc.def.ghi"), http.StatusUnauthorized, `{"message":"Invalid token"}`},
		{"tampered", bearer(tok + "x"), http.StatusUnauthorized, `{"message":"Invalid token"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(t, http.MethodGet, "/api/me", "", tc.header)
			assert.Equal(t, tc.status, rec.Code)
			assert.JSONEq(t, tc.want, rec.Body.String())
		})
	}

	// The scheme word is not checked.
	rec := h.do(t, http.MethodGet, "/api/me", "", http.Header{"Authorization": []string{"Token " + tok}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGate_ExpiredToken(t *testing.T) {
	h := newHarness(t, memory.NewStore())
	tok := h.login(t)

	h.clock.now = h.clock.now.Add(time.Hour)
	rec := h.do(t, http.MethodGet, "/api/me", "", bearer(tok))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Token has expired"}`, rec.Body.String())
}

func TestGate_PublicRoutesIgnoreHeader(t *testing.T) {
	h := newHarness(t, memory.NewStore())

	rec := h.do(t, http.MethodGet, "/health", "", bearer("garbage"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/api/register", registerBody, bearer("garbage"))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHarness(t, memory.NewStore())

	for _, path := range []string{"/api/register", "/api/login", "/api/logout"} {
		rec := h.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
		assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"), path)
		assert.JSONEq(t, `{"message":"method not allowed"}`, rec.Body.String(), path)
	}

	rec := h.do(t, http.MethodPost, "/api/me", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}

func TestUnknownPath(t *testing.T) {
	h := newHarness(t, memory.NewStore())

	rec := h.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"not found"}`, rec.Body.String())

	// The gate still runs first.
	rec = h.do(t, http.MethodGet, "/nope", "", bearer("garbage"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStoreHealth(t *testing.T) {
	h := newHarness(t, memory.NewStore())
	rec := h.do(t, http.MethodGet, "/health/store", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	h = newHarness(t, brokenStore{})
	rec = h.do(t, http.MethodGet, "/health/store", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type brokenStore struct{}

var errBackendDown = errors.New("dial tcp 10.0.0.1:5432: connection refused")

func (brokenStore) Get(context.Context, string, string) ([]byte, error)  { return nil, errBackendDown }
func (brokenStore) Set(context.Context, string, string, []byte) error    { return errBackendDown }
func (brokenStore) Create(context.Context, string, string, []byte) error { return errBackendDown }
func (brokenStore) Exists(context.Context, string, string) (bool, error) { return false, errBackendDown }
func (brokenStore) Ping(context.Context) error                           { return errBackendDown }

func TestStorageFailure_HidesInternalError(t *testing.T) {
	h := newHarness(t, brokenStore{})

	for _, tc := range []struct {
		method, path, body string
		header             http.Header
	}{
		{http.MethodPost, "/api/register", registerBody, nil},
		{http.MethodPost, "/api/login", `{"email":"a@b.com","password":"pw"}`, nil},
		{http.MethodPost, "/api/logout", "", bearer("tok")},
	} {
		rec := h.do(t, tc.method, tc.path, tc.body, tc.header)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, tc.path)
		assert.JSONEq(t, `{"message":"An error occurred","error":"storage failure"}`, rec.Body.String(), tc.path)
		assert.NotContains(t, rec.Body.String(), "10.0.0.1")
	}
	assert.Contains(t, h.logs.String(), "connection refused")
}

func TestGate_BlacklistLookupFailure(t *testing.T) {
	healthy := newHarness(t, memory.NewStore())
	tok := healthy.login(t)

	// Same signing secret, but every store call fails.
	h := newHarness(t, brokenStore{})
	rec := h.do(t, http.MethodGet, "/api/me", "", bearer(tok))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"An error occurred","error":"storage failure"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
}

func TestRecovery(t *testing.T) {
	h := newHarness(t, memory.NewStore())
	h.server.gated.HandleFunc("/panic", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := h.do(t, http.MethodGet, "/panic", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"An error occurred","error":"unknown error"}`, rec.Body.String())
	assert.Contains(t, h.logs.String(), "boom")
}

func TestRequestID(t *testing.T) {
	h := newHarness(t, memory.NewStore())

	rec := h.do(t, http.MethodGet, "/health", "", http.Header{"X-Request-ID": []string{"abc-123"}})
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = h.do(t, http.MethodGet, "/health", "", nil)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
	assert.Contains(t, h.logs.String(), `"request_id":"abc-123"`)
}

func TestCORS_Preflight(t *testing.T) {
	h := newHarness(t, memory.NewStore())

	rec := h.do(t, http.MethodOptions, "/api/login", "", http.Header{"Origin": []string{"https://app.example"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		token   string
		present bool
		wantErr bool
	}{
		{"", "", false, false},
		{"Bearer abc", "abc", true, false},
		{"  Bearer\tabc  ", "abc", true, false},
		{"Bearer abc extra", "abc", true, false},
		{"Bearer", "", true, true},
		{" ", "", true, true},
	}
	for _, tc := range cases {
		tok, present, err := bearerToken(tc.header)
		assert.Equal(t, tc.token, tok, tc.header)
		assert.Equal(t, tc.present, present, tc.header)
		assert.Equal(t, tc.wantErr, err != nil, tc.header)
	}
}
