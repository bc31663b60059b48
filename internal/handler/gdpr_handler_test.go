package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitahub/kita-api/internal/dto"
	"github.com/kitahub/kita-api/internal/middleware"
	"github.com/kitahub/kita-api/internal/models"
	appErrors "github.com/kitahub/kita-api/pkg/errors"
)

type gdprServiceMock struct {
	result     *models.CascadeResult
	err        error
	lastType   models.EntityType
	lastID     string
	lastReason string
}

func (m *gdprServiceMock) SoftDelete(ctx context.Context, actor *models.ActorClaims, t models.EntityType, id, reason string) (*models.CascadeResult, error) {
	m.lastType = t
	m.lastID = id
	m.lastReason = reason
	return m.result, m.err
}

type retentionViewMock struct {
	periods   []dto.RetentionPeriod
	pending   []models.PendingDeletion
	err       error
	lastScope *string
}

func (m *retentionViewMock) Periods() []dto.RetentionPeriod {
	return m.periods
}

func (m *retentionViewMock) PendingDeletions(ctx context.Context, types []models.EntityType, institutionID *string, limit int) ([]models.PendingDeletion, error) {
	m.lastScope = institutionID
	return m.pending, m.err
}

type auditServiceMock struct {
	entries    []models.PrivacyAuditLog
	lastFilter models.AuditLogFilter
	complaints []string
}

func (m *auditServiceMock) Query(ctx context.Context, filter models.AuditLogFilter) ([]models.PrivacyAuditLog, error) {
	m.lastFilter = filter
	return m.entries, nil
}

func (m *auditServiceMock) RecordComplaint(ctx context.Context, actor *models.ActorClaims, detail string) error {
	m.complaints = append(m.complaints, detail)
	return nil
}

type purgeRunnerMock struct {
	result       *models.PurgeResult
	err          error
	lastOverride *int
}

func (m *purgeRunnerMock) Run(ctx context.Context, actor *models.ActorClaims, overrideMonths *int) (*models.PurgeResult, error) {
	m.lastOverride = overrideMonths
	return m.result, m.err
}

func testContext(t *testing.T, method, target string, body []byte, claims *models.ActorClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func superAdmin() *models.ActorClaims {
	return &models.ActorClaims{UserID: "root-1", Role: models.RoleSuperAdmin, FullName: "Root"}
}

func TestGDPRHandlerSoftDelete(t *testing.T) {
	mockSvc := &gdprServiceMock{result: &models.CascadeResult{}}
	handler := NewGDPRHandler(mockSvc, &retentionViewMock{}, &auditServiceMock{}, &purgeRunnerMock{})

	c, w := testContext(t, http.MethodPost, "/gdpr/soft-delete/user/user-1", []byte(`{"reason":"closure"}`), superAdmin())
	c.Params = gin.Params{{Key: "entity", Value: "user"}, {Key: "id", Value: "user-1"}}

	handler.SoftDelete(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.EntityUser, mockSvc.lastType)
	assert.Equal(t, "user-1", mockSvc.lastID)
	assert.Equal(t, "closure", mockSvc.lastReason)
}

func TestGDPRHandlerSoftDeleteUnknownEntity(t *testing.T) {
	handler := NewGDPRHandler(&gdprServiceMock{}, &retentionViewMock{}, &auditServiceMock{}, &purgeRunnerMock{})

	c, w := testContext(t, http.MethodPost, "/gdpr/soft-delete/dragon/x", []byte(`{"reason":"r"}`), superAdmin())
	c.Params = gin.Params{{Key: "entity", Value: "dragon"}, {Key: "id", Value: "x"}}

	handler.SoftDelete(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGDPRHandlerSoftDeleteMissingReason(t *testing.T) {
	handler := NewGDPRHandler(&gdprServiceMock{}, &retentionViewMock{}, &auditServiceMock{}, &purgeRunnerMock{})

	c, w := testContext(t, http.MethodPost, "/gdpr/soft-delete/user/user-1", []byte(`{}`), superAdmin())
	c.Params = gin.Params{{Key: "entity", Value: "user"}, {Key: "id", Value: "user-1"}}

	handler.SoftDelete(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGDPRHandlerSoftDeleteConflictPassesThrough(t *testing.T) {
	handler := NewGDPRHandler(&gdprServiceMock{err: appErrors.ErrAlreadyDeleted}, &retentionViewMock{}, &auditServiceMock{}, &purgeRunnerMock{})

	c, w := testContext(t, http.MethodPost, "/gdpr/soft-delete/user/user-1", []byte(`{"reason":"r"}`), superAdmin())
	c.Params = gin.Params{{Key: "entity", Value: "user"}, {Key: "id", Value: "user-1"}}

	handler.SoftDelete(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestGDPRHandlerPendingDeletionsRejectsUnknownType(t *testing.T) {
	handler := NewGDPRHandler(&gdprServiceMock{}, &retentionViewMock{}, &auditServiceMock{}, &purgeRunnerMock{})

	c, w := testContext(t, http.MethodGet, "/gdpr/pending-deletions?types=user,dragon", nil, superAdmin())

	handler.PendingDeletions(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGDPRHandlerPendingDeletionsAdminScoped(t *testing.T) {
	view := &retentionViewMock{}
	handler := NewGDPRHandler(&gdprServiceMock{}, view, &auditServiceMock{}, &purgeRunnerMock{})

	inst := "inst-1"
	admin := &models.ActorClaims{UserID: "admin-1", Role: models.RoleAdmin, InstitutionID: &inst}
	c, w := testContext(t, http.MethodGet, "/gdpr/pending-deletions", nil, admin)

	handler.PendingDeletions(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, view.lastScope)
	assert.Equal(t, "inst-1", *view.lastScope)
}

func TestGDPRHandlerPendingDeletionsSuperAdminUnscoped(t *testing.T) {
	view := &retentionViewMock{}
	handler := NewGDPRHandler(&gdprServiceMock{}, view, &auditServiceMock{}, &purgeRunnerMock{})

	c, w := testContext(t, http.MethodGet, "/gdpr/pending-deletions", nil, superAdmin())

	handler.PendingDeletions(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, view.lastScope)
}

func TestGDPRHandlerAuditLogsAdminScoped(t *testing.T) {
	audit := &auditServiceMock{}
	handler := NewGDPRHandler(&gdprServiceMock{}, &retentionViewMock{}, audit, &purgeRunnerMock{})

	inst := "inst-1"
	admin := &models.ActorClaims{UserID: "admin-1", Role: models.RoleAdmin, InstitutionID: &inst}
	c, w := testContext(t, http.MethodGet, "/gdpr/audit-logs?action=DATA_EXPORTED&limit=5", nil, admin)

	handler.AuditLogs(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, audit.lastFilter.InstitutionID)
	assert.Equal(t, "inst-1", *audit.lastFilter.InstitutionID)
	assert.Equal(t, "DATA_EXPORTED", audit.lastFilter.Action)
	assert.Equal(t, 5, audit.lastFilter.Limit)
}

func TestGDPRHandlerAuditLogsBadTimestamp(t *testing.T) {
	handler := NewGDPRHandler(&gdprServiceMock{}, &retentionViewMock{}, &auditServiceMock{}, &purgeRunnerMock{})

	c, w := testContext(t, http.MethodGet, "/gdpr/audit-logs?from=yesterday", nil, superAdmin())

	handler.AuditLogs(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGDPRHandlerCleanupWithOverride(t *testing.T) {
	runner := &purgeRunnerMock{result: &models.PurgeResult{TotalPurged: 9}}
	handler := NewGDPRHandler(&gdprServiceMock{}, &retentionViewMock{}, &auditServiceMock{}, runner)

	c, w := testContext(t, http.MethodPost, "/gdpr/cleanup", []byte(`{"retention_months":6}`), superAdmin())

	handler.Cleanup(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, runner.lastOverride)
	assert.Equal(t, 6, *runner.lastOverride)

	var envelope struct {
		Data models.PurgeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, int64(9), envelope.Data.TotalPurged)
}

func TestGDPRHandlerRetentionPeriods(t *testing.T) {
	view := &retentionViewMock{periods: []dto.RetentionPeriod{{EntityType: "user", RetentionMonths: 36}}}
	handler := NewGDPRHandler(&gdprServiceMock{}, view, &auditServiceMock{}, &purgeRunnerMock{})

	c, w := testContext(t, http.MethodGet, "/gdpr/retention-periods", nil, superAdmin())

	handler.RetentionPeriods(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"retention_months":36`)
}

func TestGDPRHandlerComplaint(t *testing.T) {
	audit := &auditServiceMock{}
	handler := NewGDPRHandler(&gdprServiceMock{}, &retentionViewMock{}, audit, &purgeRunnerMock{})

	c, w := testContext(t, http.MethodPost, "/gdpr/complaints", []byte(`{"reason":"unwanted mail"}`), superAdmin())

	handler.Complaint(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"unwanted mail"}, audit.complaints)
}
