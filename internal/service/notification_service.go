package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/worklist-service/internal/config"
	"github.com/spec-kit/worklist-service/internal/events"
	"github.com/spec-kit/worklist-service/internal/notification"
	"github.com/spec-kit/worklist-service/internal/observability"
	"github.com/spec-kit/worklist-service/internal/queue"
)

const enqueueTimeout = 2 * time.Second

// NotificationService turns assignment events into queued crew messages.
// Delivery is best-effort and never fails the originating operation.
type NotificationService struct {
	dispatcher events.Dispatcher
	queue      queue.Queue
	resolver   *notification.Resolver
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, q queue.Queue, resolver *notification.Resolver, metrics *observability.Metrics, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		queue:      q,
		resolver:   resolver,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventWorkItemAssigned, n.handleWorkItemAssigned)
	n.dispatcher.Subscribe(events.EventWorkItemStatusChanged, n.logEvent)
	n.dispatcher.Subscribe(events.EventWorkItemRevised, n.logEvent)
}

func (n *NotificationService) handleWorkItemAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.WorkItemAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if !n.cfg.Enabled || n.queue == nil || n.resolver == nil {
		n.metrics.RecordNotification(observability.NotificationSkipped)
		n.logger.Debug("notifications disabled, skipping assignment message",
			zap.Int64("work_item_id", event.WorkItemID),
			zap.String("assignee", payload.Assignee))
		return nil
	}

	destination, err := n.resolver.Resolve(payload.Assignee)
	if err != nil {
		n.metrics.RecordNotification(observability.NotificationSkipped)
		if errors.Is(err, notification.ErrNoDestination) {
			n.logger.Info("no notification destination for crew member",
				zap.String("assignee", payload.Assignee),
				zap.Int64("work_item_id", event.WorkItemID))
			return nil
		}
		return err
	}

	job := queue.Job{
		ID:          uuid.NewString(),
		EventID:     event.ID,
		WorkItemID:  event.WorkItemID,
		ItemNumber:  event.ItemNumber,
		Recipient:   payload.Assignee,
		Destination: destination,
		Message:     notification.AssignmentMessage(event.ItemNumber, payload.Status, payload.RevisionNotes, n.cfg.CrewLoginURL),
		EnqueuedAt:  time.Now().UTC(),
	}
	// The handler runs inside the request that changed the item. Enqueueing
	// must neither outlive a short bound nor die with the request.
	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()
	if err := n.queue.Enqueue(enqueueCtx, job); err != nil {
		n.metrics.RecordNotification(observability.NotificationDropped)
		return fmt.Errorf("enqueue notification: %w", err)
	}
	n.logger.Info("assignment notification queued",
		zap.String("job_id", job.ID),
		zap.Int64("work_item_id", job.WorkItemID),
		zap.String("recipient", job.Recipient))
	return nil
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Debug("work item event",
		zap.String("event_type", string(event.Type)),
		zap.Int64("work_item_id", event.WorkItemID),
		zap.Any("payload", event.Payload))
	return nil
}
