package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campushub/timetable-api/internal/middleware"
	"github.com/campushub/timetable-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requesterID returns the authenticated person id, or "" when unauthenticated.
func requesterID(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	return claims.Subject
}
