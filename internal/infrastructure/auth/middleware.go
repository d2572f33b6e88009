package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mkarpov/adboard-backend/internal/infrastructure/redis"
)

type contextKey string

// UserIDKey is the request context key carrying the authenticated user id.
const UserIDKey contextKey = "user_id"

// UserRoleKey is the request context key carrying the authenticated role.
const UserRoleKey contextKey = "user_role"

func AuthMiddleware(redisClient redis.RedisClient, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "authorization header missing", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}

			tokenStr := parts[1]
			claims, err := ParseClaims(tokenStr, jwtSecret)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			// Tokens are revoked by deleting the redis copy on logout.
			storedToken, err := redisClient.Get(r.Context(), redis.UserTokenKey(claims.UserID.String()))
			if err != nil || storedToken != tokenStr {
				slog.Error("invalid or revoked token", "user_id", claims.UserID, "error", err)
				http.Error(w, "invalid or revoked token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
