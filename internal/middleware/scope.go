package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/nccrd-api/pkg/errors"
	"github.com/noah-isme/nccrd-api/pkg/response"
)

// RequireScope gates a route on a token scope. It must run after JWT.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !claims.HasScope(scope) {
			response.Error(c, appErrors.Clone(appErrors.ErrAuthorizationDenied, "missing required scope "+scope))
			c.Abort()
			return
		}
		c.Next()
	}
}
