package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kitahub/kita-api/internal/dto"
	"github.com/kitahub/kita-api/internal/models"
	appErrors "github.com/kitahub/kita-api/pkg/errors"
	"github.com/kitahub/kita-api/pkg/response"
)

type deletionRequestService interface {
	Create(ctx context.Context, actor *models.ActorClaims, targetUserID, reason string) (*models.DeletionRequest, error)
	Get(ctx context.Context, actor *models.ActorClaims, id string) (*models.DeletionRequest, error)
	List(ctx context.Context, actor *models.ActorClaims, filter models.DeletionRequestFilter) ([]models.DeletionRequest, *models.Pagination, error)
	Approve(ctx context.Context, actor *models.ActorClaims, id string) (*models.DeletionRequest, error)
	Reject(ctx context.Context, actor *models.ActorClaims, id, note string) (*models.DeletionRequest, error)
}

// DeletionRequestHandler serves the reviewed account-deletion workflow.
type DeletionRequestHandler struct {
	service deletionRequestService
}

// NewDeletionRequestHandler constructs the handler.
func NewDeletionRequestHandler(service deletionRequestService) *DeletionRequestHandler {
	return &DeletionRequestHandler{service: service}
}

// Create godoc
// @Summary Request deletion of a user account
// @Tags DeletionRequests
// @Accept json
// @Produce json
// @Param userId path string true "Target user id"
// @Param payload body dto.CreateDeletionRequest true "Request reason"
// @Success 201 {object} response.Envelope
// @Router /gdpr/request-delete/{userId} [post]
func (h *DeletionRequestHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateDeletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "reason is required"))
		return
	}

	created, err := h.service.Create(c.Request.Context(), claims, c.Param("userId"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Get godoc
// @Summary Load one deletion request
// @Tags DeletionRequests
// @Produce json
// @Param id path string true "Request id"
// @Success 200 {object} response.Envelope
// @Router /gdpr/requests/{id} [get]
func (h *DeletionRequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	req, err := h.service.Get(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req, nil)
}

// List godoc
// @Summary List deletion requests
// @Tags DeletionRequests
// @Produce json
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /gdpr/requests [get]
func (h *DeletionRequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.DeletionRequestFilter{
		Status: models.DeletionRequestStatus(c.Query("status")),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	requests, pagination, err := h.service.List(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Approve godoc
// @Summary Approve a pending deletion request
// @Tags DeletionRequests
// @Produce json
// @Param id path string true "Request id"
// @Success 200 {object} response.Envelope
// @Router /gdpr/requests/{id}/approve [post]
func (h *DeletionRequestHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	req, err := h.service.Approve(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req, nil)
}

// Reject godoc
// @Summary Reject a pending deletion request
// @Tags DeletionRequests
// @Accept json
// @Produce json
// @Param id path string true "Request id"
// @Param payload body dto.ReviewDeletionRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /gdpr/requests/{id}/reject [post]
func (h *DeletionRequestHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ReviewDeletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "reason is required"))
		return
	}

	decided, err := h.service.Reject(c.Request.Context(), claims, c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decided, nil)
}
