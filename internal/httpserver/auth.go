package httpserver

import (
	"context"
	"net/http"
	"strings"

	authdomain "doccrm/backend/internal/domain/auth"
)

type ctxKeyIdentity struct{}

// authMiddleware admits requests without an Authorization header untouched.
// A header that is present must carry a valid, unrevoked token in its second
// field; the scheme word is not checked.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, present, err := bearerToken(r.Header.Get("Authorization"))
		if !present {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		id, err := s.tokenService.Authenticate(r.Context(), token)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyIdentity{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFromContext(ctx context.Context) (authdomain.Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity{}).(authdomain.Identity)
	return id, ok
}

// bearerToken splits an Authorization header into fields and returns the
// second one. present is false only for an empty header.
func bearerToken(header string) (token string, present bool, err error) {
	if header == "" {
		return "", false, nil
	}
	fields := strings.Fields(header)
	if len(fields) < 2 {
		return "", true, authdomain.ErrInvalidToken
	}
	return fields[1], true, nil
}
