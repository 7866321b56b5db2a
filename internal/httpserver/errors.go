package httpserver

import (
	"errors"
	"net/http"

	authdomain "doccrm/backend/internal/domain/auth"
)

type errorMapping struct {
	err     error
	status  int
	message string
	detail  string
}

// errorTable is checked in order; the first errors.Is match wins.
var errorTable = []errorMapping{
	{authdomain.ErrMissingFields, http.StatusBadRequest, "Missing required fields", ""},
	{authdomain.ErrInvalidEmail, http.StatusBadRequest, "Invalid email address", ""},
	{authdomain.ErrDuplicateEmail, http.StatusBadRequest, "Email already registered", ""},
	{authdomain.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password", ""},
	{authdomain.ErrMissingToken, http.StatusUnauthorized, "Token missing", ""},
	{authdomain.ErrInvalidToken, http.StatusUnauthorized, "Invalid token", ""},
	{authdomain.ErrExpiredToken, http.StatusUnauthorized, "Token has expired", ""},
	{authdomain.ErrRevokedToken, http.StatusUnauthorized, "Token has been invalidated", ""},
	{authdomain.ErrStorageFailure, http.StatusInternalServerError, "An error occurred", "storage failure"},
}

var unknownMapping = errorMapping{authdomain.ErrUnknown, http.StatusInternalServerError, "An error occurred", "unknown error"}

func mapError(err error) errorMapping {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m
		}
	}
	return unknownMapping
}

func messageFor(err error) string {
	return mapError(err).message
}

// writeDomainError renders err as a client response. Server faults are logged
// with the full error; the client only sees the fixed detail string.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	m := mapError(err)
	if m.status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestIDFromContext(r.Context()),
		)
	}
	writeJSON(w, m.status, messageResponse{Message: m.message, Error: m.detail})
}
