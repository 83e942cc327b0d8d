package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docbatch/constants"
	"github.com/joseph-ayodele/docbatch/internal/common"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{Driver: DriverSQLite, DSN: "file:" + filepath.Join(t.TempDir(), "test.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.HealthCheck(ctx, time.Second, nil))
	return db
}

func sampleReport(at time.Time) *entity.Report {
	return &entity.Report{
		ID:      uuid.New(),
		Prompt:  "extract totals",
		Outcome: constants.RunStateCompleted,
		Items: []entity.ProcessingItem{{
			ID:     uuid.New(),
			File:   entity.FileRef{Name: "a.pdf", Size: 10},
			Status: constants.ItemStatusSucceeded,
			Result: &entity.ExtractionResult{FileName: "a.pdf", Data: []map[string]any{{"total": 3.5}}, ProcessedAt: at},
		}},
		SuccessCount:  1,
		TotalSelected: 1,
		GeneratedAt:   at,
	}
}

func TestSaveAndGet(t *testing.T) {
	repo := NewReportRepository(openTestDB(t), nil)
	ctx := context.Background()
	rep := sampleReport(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	require.NoError(t, repo.Save(ctx, rep))
	got, err := repo.Get(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, rep, got)

	// saving again replaces
	rep.Outcome = constants.RunStateAborted
	require.NoError(t, repo.Save(ctx, rep))
	got, err = repo.Get(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.RunStateAborted, got.Outcome)
}

func TestGetMissing(t *testing.T) {
	repo := NewReportRepository(openTestDB(t), nil)
	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	repo := NewReportRepository(openTestDB(t), nil)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		rep := sampleReport(base.Add(time.Duration(i) * time.Hour))
		if i == 1 {
			rep.Template = "invoice"
		}
		require.NoError(t, repo.Save(ctx, rep))
		ids = append(ids, rep.ID)
	}

	list, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[1], list[1].ID)
	assert.Equal(t, "invoice", list[1].Template)
	assert.Equal(t, 1, list[0].SuccessCount)
	assert.True(t, list[0].GeneratedAt.Equal(base.Add(2*time.Hour)))
}

func TestDelete(t *testing.T) {
	repo := NewReportRepository(openTestDB(t), nil)
	ctx := context.Background()
	rep := sampleReport(time.Now().UTC())
	require.NoError(t, repo.Save(ctx, rep))

	require.NoError(t, repo.Delete(ctx, rep.ID))
	assert.ErrorIs(t, repo.Delete(ctx, rep.ID), common.ErrNotFound)
}

func TestSaveRequiresID(t *testing.T) {
	repo := NewReportRepository(openTestDB(t), nil)
	assert.ErrorIs(t, repo.Save(context.Background(), &entity.Report{}), common.ErrInvalidInput)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:x.db?_pragma=foreign_keys(1)", sqliteDSN("file:x.db"))
	assert.Equal(t, "file:x.db?a=b&_pragma=foreign_keys(1)", sqliteDSN("file:x.db?a=b"))
	assert.Equal(t, "file:x.db?_fk=1", sqliteDSN("file:x.db?_fk=1"))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"}, nil)
	assert.Error(t, err)
}
