// Package middleware provides the HTTP middleware for Banquet: request
// tracing, auth, tenant routing, and centralized error rendering.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"venuehq.io/banquet/internal/config"
	"venuehq.io/banquet/internal/store"
)

// authAllowlist names the paths that never require credentials. The Q&A
// endpoint is public so a website widget can call it directly.
var authAllowlist = map[string]bool{
	"/":        true,
	"/health":  true,
	"/docs":    true,
	"/api/qna": true,
}

// Auth returns the middleware for the configured auth scheme. Modes:
// api_key (X-Api-Key header), bearer (Authorization: Bearer <key>), jwt
// (HS256 manager token signed with the API key as secret).
//
// An unrecognized mode fails every request with 500 AUTH_MODE_INVALID
// instead of failing boot; operators see the misconfiguration on the
// first call rather than a crash loop.
func Auth(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled || authAllowlist[c.FullPath()] || authAllowlist[c.Request.URL.Path] {
			c.Next()
			return
		}

		switch cfg.Mode {
		case "api_key":
			if c.GetHeader("X-Api-Key") != cfg.APIKey {
				abortUnauthorized(c, "invalid api key")
				return
			}
		case "bearer":
			if bearerToken(c) != cfg.APIKey {
				abortUnauthorized(c, "invalid bearer token")
				return
			}
		case "jwt":
			claims, err := parseManagerToken([]byte(cfg.APIKey), bearerToken(c))
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					msg = "token expired"
				}
				abortUnauthorized(c, msg)
				return
			}
			ctx := store.WithManager(c.Request.Context(), claims.ManagerID)
			if claims.TeamID != "" {
				ctx = store.WithTeam(ctx, claims.TeamID)
			}
			c.Request = c.Request.WithContext(ctx)
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    "AUTH_MODE_INVALID",
				"message": "auth.mode must be one of: api_key, bearer, jwt",
			})
			return
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    "UNAUTHORIZED",
		"message": msg,
	})
}
