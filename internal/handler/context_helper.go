package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/nccrd-api/internal/middleware"
)

// actorFromContext returns the token subject recorded in audit fields, or "" on unauthenticated routes.
func actorFromContext(c *gin.Context) string {
	claims := middleware.Claims(c)
	if claims == nil {
		return ""
	}
	return claims.Subject
}
