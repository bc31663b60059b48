package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kitahub/kita-api/internal/dto"
	"github.com/kitahub/kita-api/internal/models"
	appErrors "github.com/kitahub/kita-api/pkg/errors"
	"github.com/kitahub/kita-api/pkg/response"
)

type gdprService interface {
	SoftDelete(ctx context.Context, actor *models.ActorClaims, t models.EntityType, id, reason string) (*models.CascadeResult, error)
}

type retentionView interface {
	Periods() []dto.RetentionPeriod
	PendingDeletions(ctx context.Context, types []models.EntityType, institutionID *string, limit int) ([]models.PendingDeletion, error)
}

type auditQueryService interface {
	Query(ctx context.Context, filter models.AuditLogFilter) ([]models.PrivacyAuditLog, error)
	RecordComplaint(ctx context.Context, actor *models.ActorClaims, detail string) error
}

type purgeRunner interface {
	Run(ctx context.Context, actor *models.ActorClaims, overrideMonths *int) (*models.PurgeResult, error)
}

// GDPRHandler serves the personal-data lifecycle endpoints.
type GDPRHandler struct {
	gdpr      gdprService
	retention retentionView
	audit     auditQueryService
	purge     purgeRunner
}

// NewGDPRHandler constructs the handler.
func NewGDPRHandler(gdpr gdprService, retention retentionView, audit auditQueryService, purge purgeRunner) *GDPRHandler {
	return &GDPRHandler{gdpr: gdpr, retention: retention, audit: audit, purge: purge}
}

// SoftDelete godoc
// @Summary Soft-delete a record and its dependents
// @Tags GDPR
// @Accept json
// @Produce json
// @Param entity path string true "Entity type (user, child, group, institution)"
// @Param id path string true "Record id"
// @Param payload body dto.SoftDeleteRequest true "Deletion reason"
// @Success 200 {object} response.Envelope
// @Router /gdpr/soft-delete/{entity}/{id} [post]
func (h *GDPRHandler) SoftDelete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	entityType, ok := models.ParseEntityType(c.Param("entity"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown entity type"))
		return
	}

	var req dto.SoftDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "reason is required"))
		return
	}

	result, err := h.gdpr.SoftDelete(c.Request.Context(), claims, entityType, c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// PendingDeletions godoc
// @Summary List soft-deleted records awaiting permanent erasure
// @Tags GDPR
// @Produce json
// @Param types query string false "Comma-separated entity types"
// @Param limit query int false "Per-type limit"
// @Success 200 {object} response.Envelope
// @Router /gdpr/pending-deletions [get]
func (h *GDPRHandler) PendingDeletions(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var types []models.EntityType
	if raw := c.Query("types"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			t, ok := models.ParseEntityType(part)
			if !ok {
				response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown entity type "+part))
				return
			}
			types = append(types, t)
		}
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	// Admins only see their own institution's backlog.
	var scope *string
	if claims.Role == models.RoleAdmin {
		scope = claims.InstitutionID
	}

	pending, err := h.retention.PendingDeletions(c.Request.Context(), types, scope, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pending, nil)
}

// AuditLogs godoc
// @Summary Query the privacy audit trail
// @Tags GDPR
// @Produce json
// @Param limit query int false "Max entries"
// @Param action query string false "Action code filter"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param actor query string false "Actor name contains"
// @Success 200 {object} response.Envelope
// @Router /gdpr/audit-logs [get]
func (h *GDPRHandler) AuditLogs(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.AuditLogFilter{
		Action:            c.Query("action"),
		ActorNameContains: c.Query("actor"),
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	if raw := c.Query("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be RFC3339"))
			return
		}
		filter.DateFrom = &ts
	}
	if raw := c.Query("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be RFC3339"))
			return
		}
		filter.DateTo = &ts
	}
	if claims.Role == models.RoleAdmin {
		filter.InstitutionID = claims.InstitutionID
	}

	entries, err := h.audit.Query(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Cleanup godoc
// @Summary Run a retention purge
// @Tags GDPR
// @Accept json
// @Produce json
// @Param payload body dto.CleanupRequest false "Optional retention override"
// @Success 200 {object} response.Envelope
// @Router /gdpr/cleanup [post]
func (h *GDPRHandler) Cleanup(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CleanupRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "retention_months must be a positive integer"))
			return
		}
	}

	result, err := h.purge.Run(c.Request.Context(), claims, req.RetentionMonths)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RetentionPeriods godoc
// @Summary Dump the effective retention policy table
// @Tags GDPR
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /gdpr/retention-periods [get]
func (h *GDPRHandler) RetentionPeriods(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.retention.Periods(), nil)
}

// Complaint godoc
// @Summary File a privacy complaint
// @Tags GDPR
// @Accept json
// @Produce json
// @Param payload body dto.SoftDeleteRequest true "Complaint detail"
// @Success 201 {object} response.Envelope
// @Router /gdpr/complaints [post]
func (h *GDPRHandler) Complaint(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SoftDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "reason is required"))
		return
	}
	if err := h.audit.RecordComplaint(c.Request.Context(), claims, req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{"status": "recorded"}, nil)
}
