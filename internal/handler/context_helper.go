package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kitahub/kita-api/internal/middleware"
	"github.com/kitahub/kita-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.ActorClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.ActorClaims)
	if !ok {
		return nil
	}
	return claims
}
