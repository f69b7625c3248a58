package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"payment-gateway-backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type contextKey int

const (
	userIDKey contextKey = iota
	userEmailKey
	serviceCallKey
	requestIDKey
)

// UserID returns the authenticated user id from the request context.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// UserEmail returns the email claim of the authenticated user, if any.
func UserEmail(ctx context.Context) string {
	email, _ := ctx.Value(userEmailKey).(string)
	return email
}

// IsServiceCall reports whether the request authenticated with the
// shared service token rather than an end-user JWT.
func IsServiceCall(ctx context.Context) bool {
	ok, _ := ctx.Value(serviceCallKey).(bool)
	return ok
}

// RequestID returns the correlation id assigned to the request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestIDMiddleware assigns a correlation id to every request and
// echoes it in the response headers.
func RequestIDMiddleware(log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", id)
			log.WithFields(logrus.Fields{
				"request_id": id,
				"method":     r.Method,
				"path":       r.URL.Path,
			}).Debug("request received")
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func authenticate(ctx context.Context, cfg *config.Config, token string) (context.Context, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return ctx, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return ctx, fmt.Errorf("invalid token claims")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ctx, fmt.Errorf("invalid token subject: %w", err)
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return ctx, fmt.Errorf("invalid token subject: %w", err)
	}

	ctx = context.WithValue(ctx, userIDKey, userID)
	if email, ok := claims["email"].(string); ok {
		ctx = context.WithValue(ctx, userEmailKey, email)
	}
	return ctx, nil
}

func isServiceToken(cfg *config.Config, token string) bool {
	return cfg.ServiceToken != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(cfg.ServiceToken)) == 1
}

// AuthMiddleware requires a valid end-user bearer JWT.
func AuthMiddleware(cfg *config.Config) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "Authorization required", http.StatusUnauthorized)
				return
			}
			ctx, err := authenticate(r.Context(), cfg, token)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware authenticates a bearer JWT when one is
// presented but lets anonymous requests through. A malformed token is
// still rejected; absence of one is a valid anonymous-caller state for
// read-only status queries. The service token is accepted too.
func OptionalAuthMiddleware(cfg *config.Config) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			if isServiceToken(cfg, token) {
				ctx := context.WithValue(r.Context(), serviceCallKey, true)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			ctx, err := authenticate(r.Context(), cfg, token)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ServiceAuthMiddleware accepts the shared service token or an
// end-user JWT. Anonymous requests are rejected: status transitions
// must come from an authenticated caller.
func ServiceAuthMiddleware(cfg *config.Config) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "Authorization required", http.StatusUnauthorized)
				return
			}
			if isServiceToken(cfg, token) {
				ctx := context.WithValue(r.Context(), serviceCallKey, true)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			ctx, err := authenticate(r.Context(), cfg, token)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
