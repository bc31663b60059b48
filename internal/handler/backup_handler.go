package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kitahub/kita-api/internal/models"
	appErrors "github.com/kitahub/kita-api/pkg/errors"
	"github.com/kitahub/kita-api/pkg/response"
)

type backupService interface {
	Verify(ctx context.Context, actor *models.ActorClaims) (*models.BackupVerification, error)
}

// BackupHandler serves backup verification.
type BackupHandler struct {
	service backupService
}

// NewBackupHandler constructs the handler.
func NewBackupHandler(service backupService) *BackupHandler {
	return &BackupHandler{service: service}
}

// Verify godoc
// @Summary Verify that restorable backups exist
// @Tags Backups
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /gdpr/verify-backup [post]
func (h *BackupHandler) Verify(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	verification, err := h.service.Verify(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verification, nil)
}
