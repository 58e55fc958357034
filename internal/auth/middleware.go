package auth

import (
	"net/http"
	"strings"

	"callscribe/internal/utils"

	"github.com/gin-gonic/gin"
)

// usernameKey is the gin context key the middleware stores the
// authenticated username under.
const usernameKey = "auth.username"

// Middleware enforces a valid bearer token before any pipeline or
// store work begins.
func (g *Gateway) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Header("WWW-Authenticate", "Bearer")
			utils.Error(c, http.StatusUnauthorized, "missing Authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.Header("WWW-Authenticate", "Bearer")
			utils.Error(c, http.StatusUnauthorized, "malformed Authorization header")
			c.Abort()
			return
		}

		username, err := g.ValidateToken(parts[1])
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			utils.Error(c, http.StatusUnauthorized, err.Error())
			c.Abort()
			return
		}

		c.Set(usernameKey, username)
		c.Next()
	}
}

// Username returns the authenticated username set by the middleware.
func Username(c *gin.Context) string {
	return c.GetString(usernameKey)
}
