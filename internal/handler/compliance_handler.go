package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kitahub/kita-api/internal/models"
	appErrors "github.com/kitahub/kita-api/pkg/errors"
	"github.com/kitahub/kita-api/pkg/response"
)

type complianceService interface {
	Report(ctx context.Context, actor *models.ActorClaims, periodDays int, institutionID *string) (*models.ComplianceReport, error)
}

// ComplianceHandler serves derived compliance views. Every endpoint is a
// projection of the same report, so they share the cache underneath.
type ComplianceHandler struct {
	service complianceService
}

// NewComplianceHandler constructs the handler.
func NewComplianceHandler(service complianceService) *ComplianceHandler {
	return &ComplianceHandler{service: service}
}

func (h *ComplianceHandler) report(c *gin.Context) (*models.ComplianceReport, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	periodDays, _ := strconv.Atoi(c.DefaultQuery("periodDays", "30"))

	var institutionID *string
	if raw := c.Query("institutionId"); raw != "" {
		institutionID = &raw
	}
	return h.service.Report(c.Request.Context(), claims, periodDays, institutionID)
}

// Report godoc
// @Summary Full compliance report for the trailing period
// @Tags Compliance
// @Produce json
// @Param periodDays query int false "Period in days, default 30"
// @Param institutionId query string false "Institution scope"
// @Success 200 {object} response.Envelope
// @Router /gdpr/compliance-report [get]
func (h *ComplianceHandler) Report(c *gin.Context) {
	report, err := h.report(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Anomalies godoc
// @Summary Activity anomalies detected in the audit trail
// @Tags Compliance
// @Produce json
// @Param periodDays query int false "Period in days, default 30"
// @Success 200 {object} response.Envelope
// @Router /gdpr/anomaly-detection [get]
func (h *ComplianceHandler) Anomalies(c *gin.Context) {
	report, err := h.report(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report.Anomalies, nil)
}

// Recommendations godoc
// @Summary Operator recommendations derived from the compliance report
// @Tags Compliance
// @Produce json
// @Param periodDays query int false "Period in days, default 30"
// @Success 200 {object} response.Envelope
// @Router /gdpr/recommendations [get]
func (h *ComplianceHandler) Recommendations(c *gin.Context) {
	report, err := h.report(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report.Recommendations, nil)
}

// Score godoc
// @Summary Compliance score only
// @Tags Compliance
// @Produce json
// @Param periodDays query int false "Period in days, default 30"
// @Success 200 {object} response.Envelope
// @Router /gdpr/compliance-score [get]
func (h *ComplianceHandler) Score(c *gin.Context) {
	report, err := h.report(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"compliance_score": report.ComplianceScore,
		"generated_at":     report.GeneratedAt,
	}, nil)
}
