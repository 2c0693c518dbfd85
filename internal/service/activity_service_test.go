package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduwork-api/internal/dto"
	"github.com/noah-isme/eduwork-api/internal/models"
	"github.com/noah-isme/eduwork-api/internal/repository"
)

type memoryActivityRepo struct {
	entries []models.ActivityLog
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func TestActivityServiceRecordMasksEmail(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    1,
		ActorRole:  "Director",
		Action:     "Evaluation.Corrected",
		EntityType: "evaluation",
		EntityID:   ptrUint(5),
		Metadata: map[string]interface{}{
			"email":  "student@example.com",
			"reason": "clerical error",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["email"])
	require.Equal(t, "clerical error", entry.Metadata["reason"])
	require.Equal(t, "director", entry.ActorRole)
	require.Equal(t, "evaluation.corrected", entry.Action)
}

func TestActivityServiceListRequiresDirector(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())
	recordActivity(context.Background(), svc, testLogger(), trainer, "work.created", "work", 3, nil)

	_, err := svc.List(context.Background(), trainer, dto.ActivityListRequest{})
	requireKind(t, err, KindNotAuthorized)

	list, err := svc.List(context.Background(), director, dto.ActivityListRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, int64(1), list.Pagination.TotalItems)
	require.Equal(t, "trainer", list.Items[0].ActorRole)
}

func ptrUint(v uint) *uint {
	return &v
}

func TestActivityServiceListRejectsInvertedWindow(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, testLogger())

	since := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	until := since.Add(-time.Hour)
	_, err := svc.List(context.Background(), director, dto.ActivityListRequest{Since: &since, Until: &until})
	requireKind(t, err, KindInvalidInput)
}
