package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/worklist-service/internal/config"
	"github.com/spec-kit/worklist-service/internal/domain"
	"github.com/spec-kit/worklist-service/internal/events"
	"github.com/spec-kit/worklist-service/internal/notification"
	"github.com/spec-kit/worklist-service/internal/observability"
	"github.com/spec-kit/worklist-service/internal/queue"
	"github.com/spec-kit/worklist-service/internal/repository/memory"
)

func notificationFixture(t *testing.T, enabled bool) (*WorkItemService, *queue.MemoryQueue, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	roster := []domain.CrewMember{
		{Name: "DP", Phone: "+1 555 0100"},
		{Name: "AL"},
	}
	dispatcher := events.NewInMemoryDispatcher(logger)
	q := queue.NewMemoryQueue(8)
	NewNotificationService(dispatcher, q,
		notification.NewResolver(roster, "generic://sms.example.com/send?to={phone}"),
		nil, logger,
		config.NotificationConfig{Enabled: enabled, CrewLoginURL: "https://worklist.example.com/crew"},
	).RegisterHandlers()

	svc := NewWorkItemService(WorkItemDependencies{
		Store:      memory.NewStore(),
		Photos:     newMemPhotos(),
		Dispatcher: dispatcher,
		Logger:     logger,
		Workflow:   config.WorkflowConfig{PhotoMaxCount: 6, Crew: roster},
	})
	return svc, q, logs
}

func TestAssignmentQueuesNotification(t *testing.T) {
	svc, q, _ := notificationFixture(t, true)
	ctx := context.Background()

	res, err := svc.Submit(ctx, al, SubmitInput{Content: content()})
	require.NoError(t, err)
	_, err = svc.Assign(ctx, admin, res.Item.ID, AssignInput{
		Status:        domain.StatusNeedsRevision,
		Assignee:      "DP",
		RevisionNotes: "more photos",
	})
	require.NoError(t, err)

	require.Equal(t, 1, q.Len())
	dequeueCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	job, err := q.Dequeue(dequeueCtx)
	require.NoError(t, err)
	assert.Equal(t, "DP", job.Recipient)
	assert.Equal(t, "generic://sms.example.com/send?to=15550100", job.Destination)
	assert.Equal(t, "DRAFT_0020", job.ItemNumber)
	assert.Contains(t, job.Message, "Work Item Assigned: DRAFT_0020")
	assert.Contains(t, job.Message, "Notes: more photos")
	assert.Contains(t, job.Message, "https://worklist.example.com/crew")
}

func TestAssignmentWithoutDestinationIsSkipped(t *testing.T) {
	svc, q, logs := notificationFixture(t, true)
	ctx := context.Background()

	res, err := svc.Submit(ctx, dp, SubmitInput{Content: content()})
	require.NoError(t, err)
	_, err = svc.Assign(ctx, admin, res.Item.ID, AssignInput{Status: domain.StatusAwaitingPhotos, Assignee: "AL"})
	require.NoError(t, err, "notification problems never fail the assignment")

	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 1, logs.FilterMessage("no notification destination for crew member").Len())
}

func TestDisabledNotificationsAreCounted(t *testing.T) {
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(nil)
	q := queue.NewMemoryQueue(1)
	NewNotificationService(dispatcher, q, nil, metrics, nil, config.NotificationConfig{}).RegisterHandlers()

	item := &domain.WorkItem{ID: 1, ItemNumber: "0101"}
	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(
		events.EventWorkItemAssigned, item, admin,
		events.WorkItemAssignedPayload{Assignee: "DP", Status: domain.StatusNeedsRevision},
	)))

	assert.Equal(t, 0, q.Len())
	count, err := testutil.GatherAndCount(metrics.Registry(), "notifications_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// stallingQueue blocks every enqueue until its context ends.
type stallingQueue struct {
	deadline  time.Time
	parentErr error
}

func (q *stallingQueue) Enqueue(ctx context.Context, _ queue.Job) error {
	q.deadline, _ = ctx.Deadline()
	q.parentErr = ctx.Err()
	<-ctx.Done()
	return ctx.Err()
}

func (q *stallingQueue) Dequeue(ctx context.Context) (queue.Job, error) {
	<-ctx.Done()
	return queue.Job{}, ctx.Err()
}

func (q *stallingQueue) Close() error { return nil }

func TestEnqueueIsBoundedAndDetachedFromRequest(t *testing.T) {
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(nil)
	q := &stallingQueue{}
	roster := []domain.CrewMember{{Name: "DP", NotifyURL: "generic://sms.example.com/send?to=1"}}
	NewNotificationService(dispatcher, q, notification.NewResolver(roster, ""), metrics, nil,
		config.NotificationConfig{Enabled: true}).RegisterHandlers()

	requestCtx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	item := &domain.WorkItem{ID: 1, ItemNumber: "0101"}
	require.NoError(t, dispatcher.Publish(requestCtx, events.NewEvent(
		events.EventWorkItemAssigned, item, admin,
		events.WorkItemAssignedPayload{Assignee: "DP", Status: domain.StatusNeedsRevision},
	)))
	elapsed := time.Since(start)

	assert.NoError(t, q.parentErr, "enqueue context must not inherit request cancellation")
	require.False(t, q.deadline.IsZero())
	assert.WithinDuration(t, start.Add(enqueueTimeout), q.deadline, time.Second)
	assert.Less(t, elapsed, enqueueTimeout+time.Second)

	expected := `
# HELP notifications_total Assignment notification outcomes
# TYPE notifications_total counter
notifications_total{result="dropped"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected), "notifications_total"))
}
