package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kitahub/kita-api/internal/models"
	appErrors "github.com/kitahub/kita-api/pkg/errors"
)

type exportStoreStub struct {
	user  *models.User
	notes []models.Note
}

func (s *exportStoreStub) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.user, nil
}

func (s *exportStoreStub) CollectOwnedRecords(ctx context.Context, userID string, export *models.PrivacyExport) error {
	export.Notes = s.notes
	return nil
}

func TestPrivacyExportServiceBuildAuditsExport(t *testing.T) {
	store := &exportStoreStub{
		user: &models.User{ID: "user-1", FullName: "Mara Muster", Email: "mara@example.org", Role: models.RoleParent},
		notes: []models.Note{
			{ID: "note-1", AuthorID: "user-1", Body: "observation", CreatedAt: time.Now().UTC()},
		},
	}
	audit := &auditStoreStub{}
	svc := NewPrivacyExportService(store, audit, NewPolicy(), nil)

	bundle, err := svc.Build(context.Background(), parentActor("user-1"), "user-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", bundle.User.ID)
	require.Len(t, bundle.Notes, 1)
	require.Len(t, audit.entries, 1)
	require.Equal(t, models.AuditActionDataExported, audit.entries[0].Action)
	require.Contains(t, audit.entries[0].Detail, "1 notes")
}

func TestPrivacyExportServiceBuildForbiddenForStrangers(t *testing.T) {
	svc := NewPrivacyExportService(&exportStoreStub{}, &auditStoreStub{}, NewPolicy(), nil)

	_, err := svc.Build(context.Background(), parentActor("user-2"), "user-1")
	require.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestPrivacyExportServiceRenderCSV(t *testing.T) {
	bundle := &models.PrivacyExport{
		User: &models.User{ID: "user-1", FullName: "Mara Muster", Email: "mara@example.org", Role: models.RoleParent},
		Notes: []models.Note{
			{ID: "note-1", Body: "observation", CreatedAt: time.Now().UTC()},
		},
		GeneratedAt: time.Now().UTC(),
	}
	svc := NewPrivacyExportService(&exportStoreStub{}, &auditStoreStub{}, NewPolicy(), nil)

	raw, err := svc.RenderCSV(bundle)
	require.NoError(t, err)
	require.Contains(t, string(raw), "record_type,id,created_at,content")
	require.Contains(t, string(raw), "note,note-1")
}

func TestPrivacyExportServiceRenderPDF(t *testing.T) {
	bundle := &models.PrivacyExport{
		User:        &models.User{ID: "user-1", FullName: "Mara Muster"},
		GeneratedAt: time.Now().UTC(),
	}
	svc := NewPrivacyExportService(&exportStoreStub{}, &auditStoreStub{}, NewPolicy(), nil)

	raw, err := svc.RenderPDF(bundle)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	require.Equal(t, "%PDF", string(raw[:4]))
}
