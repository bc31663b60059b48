package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kitahub/kita-api/internal/models"
	appErrors "github.com/kitahub/kita-api/pkg/errors"
	"github.com/kitahub/kita-api/pkg/export"
)

type exportStore interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	CollectOwnedRecords(ctx context.Context, userID string, export *models.PrivacyExport) error
}

type exportAuditStore interface {
	Append(ctx context.Context, entry *models.PrivacyAuditLog) error
}

// PrivacyExportService assembles the full personal-data export for a user.
// Every successful export leaves a DATA_EXPORTED entry in the audit trail.
type PrivacyExportService struct {
	store  exportStore
	audit  exportAuditStore
	policy *Policy
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewPrivacyExportService creates a new instance of PrivacyExportService.
func NewPrivacyExportService(store exportStore, audit exportAuditStore, policy *Policy, logger *zap.Logger) *PrivacyExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrivacyExportService{
		store:  store,
		audit:  audit,
		policy: policy,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// Build collects every personal record held for the user. Users export
// their own data; admitted roles export anyone's.
func (s *PrivacyExportService) Build(ctx context.Context, actor *models.ActorClaims, userID string) (*models.PrivacyExport, error) {
	if err := s.policy.AuthorizeExport(actor, userID); err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	bundle := &models.PrivacyExport{User: user, GeneratedAt: time.Now().UTC()}
	if err := s.store.CollectOwnedRecords(ctx, userID, bundle); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}

	entry := &models.PrivacyAuditLog{
		ActorID:       actor.UserID,
		ActorName:     actor.FullName,
		Action:        models.AuditActionDataExported,
		EntityType:    models.EntityUser,
		EntityID:      userID,
		Detail:        fmt.Sprintf("exported %d notes, %d messages, %d notifications, %d tasks", len(bundle.Notes), len(bundle.Messages), len(bundle.Notifications), len(bundle.PersonalTasks)),
		InstitutionID: user.InstitutionID,
		CreatedAt:     bundle.GeneratedAt,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "export assembled but audit write failed")
	}

	s.logger.Info("personal data exported",
		zap.String("user_id", userID),
		zap.String("actor_id", actor.UserID))
	return bundle, nil
}

// RenderCSV flattens the export into one table with a record_type column.
func (s *PrivacyExportService) RenderCSV(bundle *models.PrivacyExport) ([]byte, error) {
	return s.csv.Render(exportDataset(bundle))
}

// RenderPDF renders the export as a printable document.
func (s *PrivacyExportService) RenderPDF(bundle *models.PrivacyExport) ([]byte, error) {
	title := fmt.Sprintf("Personal data export for %s", bundle.User.FullName)
	return s.pdf.Render(exportDataset(bundle), title)
}

func exportDataset(bundle *models.PrivacyExport) export.Dataset {
	data := export.Dataset{Headers: []string{"record_type", "id", "created_at", "content"}}
	row := func(recordType, id string, createdAt time.Time, content string) {
		data.Rows = append(data.Rows, map[string]string{
			"record_type": recordType,
			"id":          id,
			"created_at":  createdAt.Format(time.RFC3339),
			"content":     content,
		})
	}

	row("user", bundle.User.ID, bundle.User.CreatedAt, fmt.Sprintf("%s <%s> role=%s", bundle.User.FullName, bundle.User.Email, bundle.User.Role))
	for _, n := range bundle.Notes {
		row("note", n.ID, n.CreatedAt, n.Body)
	}
	for _, m := range bundle.Messages {
		row("message", m.ID, m.CreatedAt, m.Body)
	}
	for _, n := range bundle.Notifications {
		row("notification", n.ID, n.CreatedAt, n.Title)
	}
	for _, t := range bundle.PersonalTasks {
		row("personal_task", t.ID, t.CreatedAt, t.Title)
	}
	return data
}
