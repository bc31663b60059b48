package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kitahub/kita-api/internal/models"
	appErrors "github.com/kitahub/kita-api/pkg/errors"
	"github.com/kitahub/kita-api/pkg/response"
)

type privacyExportService interface {
	Build(ctx context.Context, actor *models.ActorClaims, userID string) (*models.PrivacyExport, error)
	RenderCSV(bundle *models.PrivacyExport) ([]byte, error)
	RenderPDF(bundle *models.PrivacyExport) ([]byte, error)
}

// ExportHandler serves personal-data exports.
type ExportHandler struct {
	service privacyExportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service privacyExportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export godoc
// @Summary Export all personal data held for a user
// @Tags GDPR
// @Produce json
// @Param userId path string true "User id"
// @Param format query string false "json, csv or pdf (default json)"
// @Param mode query string false "inline or attachment (default inline)"
// @Success 200 {object} response.Envelope
// @Router /gdpr/export/{userId} [get]
func (h *ExportHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	userID := c.Param("userId")
	bundle, err := h.service.Build(c.Request.Context(), claims, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	disposition := "inline"
	if c.DefaultQuery("mode", "inline") == "attachment" {
		disposition = "attachment"
	}

	switch c.DefaultQuery("format", "json") {
	case "json":
		response.JSON(c, http.StatusOK, bundle, nil)
	case "csv":
		raw, err := h.service.RenderCSV(bundle)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("%s; filename=export-%s.csv", disposition, userID))
		c.Data(http.StatusOK, "text/csv", raw)
	case "pdf":
		raw, err := h.service.RenderPDF(bundle)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("%s; filename=export-%s.pdf", disposition, userID))
		c.Data(http.StatusOK, "application/pdf", raw)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be json, csv or pdf"))
	}
}
