package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	authdomain "doccrm/backend/internal/domain/auth"
)

const maxBodyBytes = 1 << 20

const storePingTimeout = 2 * time.Second

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/api/register", s.handleRegister)
	s.router.HandleFunc("/api/login", s.handleLogin)
	s.router.HandleFunc("/api/logout", s.handleLogout)

	// Everything else passes the auth gate first.
	s.gated.HandleFunc("/api/me", s.handleMe)
	s.gated.HandleFunc("/health/store", s.handleStoreHealth)
	s.gated.HandleFunc("/", s.handleNotFound)
	s.router.Handle("/", s.authMiddleware(s.gated))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, "not found")
}

func (s *Server) handleStoreHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storePingTimeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn(ctx, "store health check failed", "error", err, "request_id", requestIDFromContext(ctx))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Name        string `json:"name"`
		Surname     string `json:"surname"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		CompanyName string `json:"companyName"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	err := s.authService.Register(r.Context(), authdomain.Registration{
		Name:        payload.Name,
		Surname:     payload.Surname,
		Email:       payload.Email,
		Password:    payload.Password,
		CompanyName: payload.CompanyName,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeMessage(w, http.StatusCreated, "User registered successfully")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	token, err := s.authService.Login(r.Context(), authdomain.Credentials{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Login successful", Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	token, present, err := bearerToken(r.Header.Get("Authorization"))
	if !present {
		writeMessage(w, http.StatusBadRequest, messageFor(authdomain.ErrMissingToken))
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if err := s.authService.Logout(r.Context(), token); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Logout successful")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	id, ok := identityFromContext(r.Context())
	if !ok {
		s.writeDomainError(w, r, authdomain.ErrMissingToken)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"email":     id.Email,
		"expiresAt": id.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// decodeJSON reads exactly one JSON value from the body into dst, answering
// 400 on failure. Anything after the value other than whitespace is rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(dst)
	if err == nil {
		if extra := dec.Decode(&struct{}{}); !errors.Is(extra, io.EOF) {
			err = errTrailingData
			if extra != nil {
				err = extra
			}
		}
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeMessage(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}
	return true
}

var errTrailingData = errors.New("trailing data after JSON body")
