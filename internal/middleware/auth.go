// Package middleware carries the teacher's chi-based request logging
// and JWT auth, the latter generalized from per-user claims to a single
// shared service token guarding the destructive debug endpoint
// (DELETE /conversations — see SPEC_FULL.md supplemental feature 2).
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/saisudhir14/voiceproxy/internal/logger"
)

// ServiceClaims is the minimal claim set for the operator token — this
// proxy has no per-user accounts, so there is no user/email/role to carry.
type ServiceClaims struct {
	jwt.RegisteredClaims
}

// AdminAuth validates a bearer JWT signed with secret. It is only wired
// in when JWT_SECRET is configured (spec is otherwise silent on auth);
// when secret is empty the caller should skip this middleware entirely.
func AdminAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.WithComponent("auth")
			requestID := middleware.GetReqID(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Warn().Str("request_id", requestID).Msg("Missing authorization header")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Warn().Str("request_id", requestID).Msg("Invalid authorization header format")
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.ParseWithClaims(parts[1], &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				log.Warn().Str("request_id", requestID).Err(err).Msg("Invalid or expired token")
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs each completed HTTP request via zerolog.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.WithComponent("http")
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("Request completed")
		}()

		next.ServeHTTP(ww, r)
	})
}
