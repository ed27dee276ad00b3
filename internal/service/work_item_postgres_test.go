package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/worklist-service/internal/config"
	"github.com/spec-kit/worklist-service/internal/domain"
	"github.com/spec-kit/worklist-service/internal/persistence"
	"github.com/spec-kit/worklist-service/internal/repository"
)

func TestPostgresConcurrentBlankSubmitsCreateDistinctItems(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, persistence.RunMigrations(ctx, pool, zap.NewNop()))

	store := repository.NewPostgresStore(pool)
	svc := NewWorkItemService(WorkItemDependencies{
		Store:    store,
		Workflow: config.WorkflowConfig{PhotoMaxCount: 6},
	})

	crew := []domain.Actor{dp, al, mark, {ID: "Art", Role: domain.RoleCrew}}
	const perMember = 3

	var (
		mu      sync.Mutex
		created []*domain.WorkItem
		wg      sync.WaitGroup
	)
	for _, actor := range crew {
		for i := 0; i < perMember; i++ {
			wg.Add(1)
			go func(actor domain.Actor) {
				defer wg.Done()
				c := content()
				c.Detail = "submitted by " + actor.ID
				res, err := svc.Submit(ctx, actor, SubmitInput{Content: c})
				if !assert.NoError(t, err) {
					return
				}
				assert.True(t, res.Created)
				mu.Lock()
				created = append(created, res.Item)
				mu.Unlock()
			}(actor)
		}
	}
	wg.Wait()
	t.Cleanup(func() {
		for _, item := range created {
			_ = store.WorkItems().Delete(context.Background(), item.ID)
		}
	})

	require.Len(t, created, len(crew)*perMember)
	numbers := map[string]bool{}
	for _, item := range created {
		assert.False(t, numbers[item.ItemNumber], "number %s handed out twice", item.ItemNumber)
		numbers[item.ItemNumber] = true

		stored, err := store.WorkItems().GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, item.SubmitterName, stored.SubmitterName)
		assert.Equal(t, "submitted by "+item.SubmitterName, stored.Detail)
		assert.Nil(t, stored.LastModifiedBy)
	}
}
