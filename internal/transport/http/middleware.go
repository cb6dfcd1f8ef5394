package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/adepetun22/shopapp/internal/domain"
)

const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
	ctxRole   = "role"
)

// AuthRequired проверяет Bearer-токен и кладёт identity в контекст gin.
// Все приватные маршруты проходят через этот middleware.
func AuthRequired(tokens *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			respondError(c, http.StatusUnauthorized, "authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			respondError(c, http.StatusUnauthorized, "authorization header must be a bearer token")
			c.Abort()
			return
		}

		identity, err := tokens.Parse(parts[1])
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ctxUserID, identity.UserID)
		c.Set(ctxEmail, identity.Email)
		c.Set(ctxRole, string(identity.Role))
		c.Next()
	}
}

// RequireAdmin пропускает дальше только запросы с ролью admin.
// Ставится после AuthRequired.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != "admin" {
			respondError(c, http.StatusForbidden, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// identityFromContext восстанавливает identity, положенную AuthRequired.
func identityFromContext(c *gin.Context) Identity {
	return Identity{
		UserID: c.GetString(ctxUserID),
		Email:  c.GetString(ctxEmail),
		Role:   domain.Role(c.GetString(ctxRole)),
	}
}
