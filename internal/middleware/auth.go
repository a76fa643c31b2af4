package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/socialchef/chef/internal/config"
	apperrors "github.com/socialchef/chef/internal/errors"
)

type contextKey string

const UserIDKey contextKey = "userID"

// AuthMiddleware validates HS256/384/512 bearer tokens signed with AUTH_JWT_SECRET.
// Without a secret the API is open and requests pass through unauthenticated.
// Tokens must carry exp and sub; when AUTH_ISSUER is set, iss must match it.
func AuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	if cfg.AuthJWTSecret == "" {
		return func(next http.Handler) http.Handler { return next }
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.AuthIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.AuthIssuer))
	}
	parser := jwt.NewParser(opts...)
	secret := []byte(cfg.AuthJWTSecret)
	keyFunc := func(*jwt.Token) (interface{}, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				writeUnauthorized(w, err)
				return
			}

			claims := jwt.MapClaims{}
			if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
				code := "INVALID_TOKEN"
				if errors.Is(err, jwt.ErrTokenExpired) {
					code = "TOKEN_EXPIRED"
				}
				writeUnauthorized(w, apperrors.NewUnauthorizedError("invalid token", code))
				return
			}

			userID, err := claims.GetSubject()
			if err != nil || userID == "" {
				writeUnauthorized(w, apperrors.NewUnauthorizedError("token has no subject", "MISSING_SUBJECT"))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", apperrors.NewUnauthorizedError("missing Authorization header", "MISSING_TOKEN")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", apperrors.NewUnauthorizedError("Authorization header must be \"Bearer <token>\"", "INVALID_AUTH_HEADER")
	}
	return strings.TrimSpace(token), nil
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	appErr, _ := apperrors.As(err)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="socialchef"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": appErr})
}

// GetUserID extracts the user ID from request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}
