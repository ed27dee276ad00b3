package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/worklist-service/internal/domain"
	"github.com/spec-kit/worklist-service/internal/persistence"
	"github.com/spec-kit/worklist-service/internal/repository"
)

func newPostgresStore(t *testing.T) (repository.Store, context.Context) {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, persistence.RunMigrations(ctx, pool, zap.NewNop()))
	return repository.NewPostgresStore(pool), ctx
}

func uniqueNumber() string {
	return "PG_" + uuid.NewString()[:8]
}

func TestPostgresStoreLifecycle(t *testing.T) {
	store, ctx := newPostgresStore(t)

	item := &domain.WorkItem{
		ItemNumber:        uniqueNumber(),
		Location:          "Engine room",
		Description:       "Replace pump",
		Detail:            "Seal leaks",
		SubmitterName:     "Mark",
		OriginalSubmitter: "Mark",
		Status:            domain.StatusSubmitted,
	}
	require.NoError(t, store.WorkItems().Create(ctx, item))
	t.Cleanup(func() { _ = store.WorkItems().Delete(context.Background(), item.ID) })
	require.NotZero(t, item.ID)

	dup := *item
	assert.ErrorIs(t, store.WorkItems().Create(ctx, &dup), repository.ErrDuplicate)

	err := store.WithinTx(ctx, func(tx repository.Store) error {
		locked, err := tx.WorkItems().GetByIDForUpdate(ctx, item.ID)
		if err != nil {
			return err
		}
		old := locked.Status
		dp := "DP"
		locked.Status = domain.StatusNeedsRevision
		locked.NeedsRevision = true
		locked.AssignedTo = &dp
		if err := tx.WorkItems().Update(ctx, locked); err != nil {
			return err
		}
		if err := tx.Photos().Create(ctx, &domain.Photo{WorkItemID: locked.ID, Filename: "a.png", Caption: "one"}); err != nil {
			return err
		}
		return tx.History().Create(ctx, &domain.StatusHistory{
			WorkItemID: locked.ID,
			OldStatus:  &old,
			NewStatus:  locked.Status,
			ChangedBy:  "admin",
		})
	})
	require.NoError(t, err)

	got, err := store.WorkItems().GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNeedsRevision, got.Status)
	assert.True(t, got.IsAssignedTo("DP"))

	assigned, err := store.WorkItems().ListAssigned(ctx, "DP", []domain.WorkItemStatus{domain.StatusNeedsRevision})
	require.NoError(t, err)
	found := false
	for _, a := range assigned {
		found = found || a.ID == item.ID
	}
	assert.True(t, found)

	count, err := store.Photos().CountByWorkItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	history, err := store.History().ListByWorkItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.StatusSubmitted, *history[0].OldStatus)

	require.NoError(t, store.WorkItems().Delete(ctx, item.ID))
	count, err = store.Photos().CountByWorkItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	_, err = store.WorkItems().GetByID(ctx, item.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPostgresStoreRollsBack(t *testing.T) {
	store, ctx := newPostgresStore(t)
	number := uniqueNumber()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.WorkItems().Create(ctx, &domain.WorkItem{
			ItemNumber:    number,
			Description:   "d",
			Detail:        "x",
			SubmitterName: "AL",
			Status:        domain.StatusSubmitted,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = store.WithinTx(ctx, func(tx repository.Store) error {
		_, err := tx.WorkItems().GetByItemNumberForUpdate(ctx, number)
		return err
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
