package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"investment-calculator/internal/models"
	"investment-calculator/internal/respond"
	"investment-calculator/internal/storage"
)

type contextKey string

const userIDKey = contextKey("userID")

// Middleware rejects requests without a valid bearer token and stores the
// caller's user id in the request context.
func Middleware(issuer *Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respond.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				respond.Error(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			claims, err := issuer.ParseToken(parts[1])
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
		})
	}
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}

// RequireFeature lets the request through only when the caller's tier unlocks
// f. It must run after Middleware.
func RequireFeature(users *storage.UserStore, f models.Feature) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				respond.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			user, err := users.ByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					respond.Error(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				slog.ErrorContext(r.Context(), "failed to load user", "user_id", userID, "err", err)
				respond.Error(w, http.StatusInternalServerError, "internal error")
				return
			}
			if !user.Tier.Allows(f) {
				respond.Error(w, http.StatusForbidden, fmt.Sprintf("%s: %v", f, models.ErrFeatureLocked))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
