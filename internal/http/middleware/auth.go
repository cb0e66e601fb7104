// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides bearer-token authentication for protected routes. The
// middleware validates a JWT from the Authorization header and stores the
// authenticated identity in the Gin context so downstream handlers, loggers,
// and rate limiters can key on it.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avramid/go-medcab-backend/internal/auth"
)

const (
	// userIDKey is the Gin context key holding the authenticated user ID.
	userIDKey = "userID"
	// userEmailKey is the Gin context key holding the authenticated email.
	userEmailKey = "userEmail"
)

// AuthRequired returns a Gin middleware that rejects requests lacking a
// valid "Authorization: Bearer <token>" header.
//
// On success the authenticated user ID and email are stored in the Gin
// context under "userID" and "userEmail". On failure the request is aborted
// with a 401 JSON body in the standard error envelope:
//
//	{ "request_id": "...", "code": "unauthorized", "message": "..." }
//
// Place this after RequestID() so rejections carry the correlation ID, and
// before the rate limiter so authenticated users are keyed by identity
// rather than IP.
func AuthRequired(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		claims, err := tokens.Validate(strings.TrimSpace(token))
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(userEmailKey, claims.Email)
		c.Next()
	}
}

// UserIDFrom returns the authenticated user ID stored by AuthRequired,
// or "" when the request is unauthenticated.
func UserIDFrom(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// UserEmailFrom returns the authenticated email stored by AuthRequired,
// or "" when the request is unauthenticated.
func UserEmailFrom(c *gin.Context) string {
	if v, ok := c.Get(userEmailKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	LoggerFrom(c).Warn().Str("reason", msg).Msg("unauthorized request")
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
