package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"memorial-service/internal/httputil"
)

type contextKey string

const adminKey contextKey = "admin"

// RequireAdmin rejects requests without a valid "Authorization: Bearer" token
// and stores the resolved admin in the request context.
func RequireAdmin(service Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			admin, err := service.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, ErrUnauthorized) {
					logger.WarnContext(r.Context(), "rejected admin token", "path", r.URL.Path, "error", err)
					httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				logger.ErrorContext(r.Context(), "failed to authenticate admin", "error", err)
				httputil.RespondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), adminKey, admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminFromContext returns the admin stored by RequireAdmin.
func AdminFromContext(ctx context.Context) (*Admin, bool) {
	admin, ok := ctx.Value(adminKey).(*Admin)
	return admin, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
