package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/worklist-service/internal/domain"
)

func TestPublishRunsAllHandlersDespiteErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewInMemoryDispatcher(zap.New(core))

	var calls []string
	d.Subscribe(EventWorkItemAssigned, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventWorkItemAssigned, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventWorkItemDeleted, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	item := &domain.WorkItem{ID: 7, ItemNumber: "DRAFT_0020"}
	ev := NewEvent(EventWorkItemAssigned, item, domain.Actor{ID: "admin", Role: domain.RoleAdmin}, WorkItemAssignedPayload{Assignee: "DP"})
	require.NoError(t, d.Publish(context.Background(), ev))

	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, 1, logs.FilterMessage("event handler failed").Len())
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, int64(7), ev.WorkItemID)
}

func TestPublishRecoversHandlerPanic(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewInMemoryDispatcher(zap.New(core))

	reached := false
	d.Subscribe(EventWorkItemRevised, func(context.Context, Event) error {
		panic("bad handler")
	})
	d.Subscribe(EventWorkItemRevised, func(context.Context, Event) error {
		reached = true
		return nil
	})

	ev := NewEvent(EventWorkItemRevised, &domain.WorkItem{ID: 3}, domain.Actor{ID: "DP", Role: domain.RoleCrew}, WorkItemRevisedPayload{})
	require.NotPanics(t, func() {
		require.NoError(t, d.Publish(context.Background(), ev))
	})
	assert.True(t, reached)
	entries := logs.FilterMessage("event handler failed").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "bad handler")
}
