package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gatherly/apiserver/internal/auth"
	"github.com/gatherly/apiserver/internal/services"
	"github.com/gatherly/apiserver/internal/store"
)

// Authenticate resolves the bearer token to a live user with its materialized
// role set on every protected request. The user is re-fetched from the store
// rather than trusted from the token, so role changes take effect without
// re-issuing tokens.
func Authenticate(tokens *auth.TokenService, users *services.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized - Token missing")
				return
			}

			claims, err := tokens.Parse(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized - Invalid token")
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "Unauthorized - User not found")
					return
				}
				writeError(w, http.StatusInternalServerError, "Failed to authenticate")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithUser(r.Context(), user)))
		})
	}
}

// RequireRole allows the request through iff the authenticated user holds the
// required role. Denial is 401, preserving the documented contract.
func RequireRole(required auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := UserFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized - Token missing")
				return
			}
			if !auth.HasRole(user.Roles, required) {
				writeError(w, http.StatusUnauthorized, "Unauthorized - Role not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
