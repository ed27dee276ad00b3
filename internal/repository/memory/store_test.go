package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/worklist-service/internal/domain"
	"github.com/spec-kit/worklist-service/internal/repository"
)

func newItem(number string) *domain.WorkItem {
	return &domain.WorkItem{
		ItemNumber:        number,
		Location:          "Engine room",
		Description:       "Replace pump seal",
		Detail:            "Port side pump leaks",
		SubmitterName:     "DP",
		OriginalSubmitter: "DP",
		Status:            domain.StatusSubmitted,
	}
}

func TestCreateRejectsDuplicateItemNumber(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.WorkItems().Create(ctx, newItem("DRAFT_0020")))
	err := store.WorkItems().Create(ctx, newItem("DRAFT_0020"))
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.WorkItems().Create(ctx, newItem("0101")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	items, err := store.WorkItems().List(ctx, repository.WorkItemFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestWithinTxCommits(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	var id int64
	err := store.WithinTx(ctx, func(tx repository.Store) error {
		item := newItem("0101")
		if err := tx.WorkItems().Create(ctx, item); err != nil {
			return err
		}
		id = item.ID
		return tx.Photos().Create(ctx, &domain.Photo{WorkItemID: item.ID, Filename: "a.jpg", Caption: "before"})
	})
	require.NoError(t, err)

	got, err := store.WorkItems().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "0101", got.ItemNumber)

	count, err := store.Photos().CountByWorkItem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNestedTxFailureKeepsOuterWork(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.WithinTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.WorkItems().Create(ctx, newItem("A1")))
		inner := tx.WithinTx(ctx, func(tx2 repository.Store) error {
			require.NoError(t, tx2.WorkItems().Create(ctx, newItem("A2")))
			return errors.New("inner failure")
		})
		assert.Error(t, inner)
		return nil
	})
	require.NoError(t, err)

	_, err = store.WorkItems().GetByItemNumberForUpdate(ctx, "A1")
	assert.NoError(t, err)
	_, err = store.WorkItems().GetByItemNumberForUpdate(ctx, "A2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	item := newItem("0110")
	require.NoError(t, store.WorkItems().Create(ctx, item))
	require.NoError(t, store.Photos().Create(ctx, &domain.Photo{WorkItemID: item.ID, Filename: "a.jpg"}))
	require.NoError(t, store.History().Create(ctx, &domain.StatusHistory{
		WorkItemID: item.ID,
		NewStatus:  domain.StatusInReviewDP,
		ChangedBy:  "admin",
	}))

	require.NoError(t, store.WorkItems().Delete(ctx, item.ID))

	photos, err := store.Photos().ListByWorkItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, photos)
	entries, err := store.History().ListByWorkItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.ErrorIs(t, store.WorkItems().Delete(ctx, item.ID), repository.ErrNotFound)
}

func TestPhotoRequiresExistingItem(t *testing.T) {
	store := NewStore()
	err := store.Photos().Create(context.Background(), &domain.Photo{WorkItemID: 42, Filename: "x.png"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReturnedItemsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	item := newItem("0120")
	require.NoError(t, store.WorkItems().Create(ctx, item))

	got, err := store.WorkItems().GetByID(ctx, item.ID)
	require.NoError(t, err)
	got.Description = "mutated"

	again, err := store.WorkItems().GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Replace pump seal", again.Description)
}

func TestListSortsAndFilters(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	store := NewStore()

	for i, tc := range []struct {
		number    string
		submitter string
		status    domain.WorkItemStatus
	}{
		{"0300", "Mark", domain.StatusSubmitted},
		{"0100", "Art", domain.StatusNeedsRevision},
		{"0200", "DP", domain.StatusSubmitted},
	} {
		item := newItem(tc.number)
		item.SubmitterName = tc.submitter
		item.Status = tc.status
		item.SubmittedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.WorkItems().Create(ctx, item))
	}

	numbers := func(items []domain.WorkItem) []string {
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = it.ItemNumber
		}
		return out
	}

	items, err := store.WorkItems().List(ctx, repository.WorkItemFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"0200", "0100", "0300"}, numbers(items))

	items, err = store.WorkItems().List(ctx, repository.WorkItemFilter{Sort: repository.SortDateAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"0300", "0100", "0200"}, numbers(items))

	items, err = store.WorkItems().List(ctx, repository.WorkItemFilter{Sort: repository.SortItemNumber})
	require.NoError(t, err)
	assert.Equal(t, []string{"0100", "0200", "0300"}, numbers(items))

	items, err = store.WorkItems().List(ctx, repository.WorkItemFilter{Sort: repository.SortSubmitter})
	require.NoError(t, err)
	assert.Equal(t, []string{"0100", "0200", "0300"}, numbers(items))

	status := domain.StatusSubmitted
	items, err = store.WorkItems().List(ctx, repository.WorkItemFilter{Status: &status, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"0200"}, numbers(items))
}

func TestListAssignedFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	dp := "DP"

	open := newItem("0101")
	open.AssignedTo = &dp
	open.Status = domain.StatusNeedsRevision
	require.NoError(t, store.WorkItems().Create(ctx, open))

	reviewing := newItem("0102")
	reviewing.AssignedTo = &dp
	reviewing.Status = domain.StatusInReviewDP
	require.NoError(t, store.WorkItems().Create(ctx, reviewing))

	items, err := store.WorkItems().ListAssigned(ctx, "DP", []domain.WorkItemStatus{domain.StatusNeedsRevision, domain.StatusAwaitingPhotos})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "0101", items[0].ItemNumber)
}

func TestMaxDraftNumber(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	got, err := store.WorkItems().MaxDraftNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", got)

	for _, n := range []string{"DRAFT_0021", "DRAFT_9999", "DRAFT_10000", "0101 Windows", "DRAFT_x"} {
		require.NoError(t, store.WorkItems().Create(ctx, newItem(n)))
	}
	got, err = store.WorkItems().MaxDraftNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "DRAFT_10000", got)
}

func TestConcurrentTransactionsSerialize(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	item := newItem("0130")
	require.NoError(t, store.WorkItems().Create(ctx, item))

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithinTx(ctx, func(tx repository.Store) error {
				current, err := tx.WorkItems().GetByIDForUpdate(ctx, item.ID)
				if err != nil {
					return err
				}
				current.Detail += "x"
				return tx.WorkItems().Update(ctx, current)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.WorkItems().GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, got.Detail, len("Port side pump leaks")+workers)
}
