// Package middleware holds the gin middleware of the HTTP API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"copro-smart-go/internal/model"
	"copro-smart-go/internal/repository"
	"copro-smart-go/pkg/log"
	"copro-smart-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// Context keys written by AuthMiddleware.
const (
	ContextUserKey   = "user"
	ContextClaimsKey = "claims"
)

// UserLoader fetches the user named by a token.
type UserLoader interface {
	Get(ctx context.Context, id string) (*model.User, error)
}

// abort writes the API envelope and stops the chain.
func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    status,
		"message": message,
		"data":    nil,
	})
}

// AuthMiddleware validates "Authorization: Bearer <jwt>", rejects tokens
// revoked at logout and stores the user and claims in the context.
func AuthMiddleware(jwtManager *token.JWTManager, blacklist repository.TokenBlacklist, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "missing authorization header")
			return
		}
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			abort(c, http.StatusUnauthorized, "invalid authorization header format")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		if claims.ID != "" {
			revoked, err := blacklist.Contains(c.Request.Context(), claims.ID)
			if err != nil {
				// Redis being down must not lock every user out.
				log.Warnf("[AuthMiddleware] blacklist lookup failed for %s: %v", claims.ID, err)
			} else if revoked {
				abort(c, http.StatusUnauthorized, "token has been revoked")
				return
			}
		}

		user, err := users.Get(c.Request.Context(), claims.UserID)
		if err != nil {
			abort(c, http.StatusUnauthorized, "user not found")
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextClaimsKey, claims)
		c.Next()
	}
}
