package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/worklist-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventWorkItemSubmitted     EventType = "work_item_submitted"
	EventWorkItemAssigned      EventType = "work_item_assigned"
	EventWorkItemStatusChanged EventType = "work_item_status_changed"
	EventWorkItemRevised       EventType = "work_item_revised"
	EventWorkItemDeleted       EventType = "work_item_deleted"
)

// Event represents a committed work-item change.
type Event struct {
	ID         string       `json:"id"`
	Type       EventType    `json:"type"`
	WorkItemID int64        `json:"work_item_id"`
	ItemNumber string       `json:"item_number"`
	Actor      domain.Actor `json:"actor"`
	Timestamp  time.Time    `json:"timestamp"`
	Payload    interface{}  `json:"payload"`
}

// NewEvent stamps an event for item with a fresh ID.
func NewEvent(eventType EventType, item *domain.WorkItem, actor domain.Actor, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		WorkItemID: item.ID,
		ItemNumber: item.ItemNumber,
		Actor:      actor,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
}

// WorkItemSubmittedPayload payload.
type WorkItemSubmittedPayload struct {
	Created    bool `json:"created"`
	PhotoCount int  `json:"photo_count"`
}

// WorkItemAssignedPayload payload.
type WorkItemAssignedPayload struct {
	Assignee      string                `json:"assignee"`
	OldStatus     domain.WorkItemStatus `json:"old_status"`
	Status        domain.WorkItemStatus `json:"status"`
	RevisionNotes *string               `json:"revision_notes,omitempty"`
}

// WorkItemStatusChangedPayload payload.
type WorkItemStatusChangedPayload struct {
	OldStatus domain.WorkItemStatus `json:"old_status"`
	NewStatus domain.WorkItemStatus `json:"new_status"`
}

// WorkItemRevisedPayload payload.
type WorkItemRevisedPayload struct {
	OldStatus   domain.WorkItemStatus `json:"old_status"`
	PhotosAdded int                   `json:"photos_added"`
}

// WorkItemDeletedPayload payload.
type WorkItemDeletedPayload struct {
	PhotoFiles []string `json:"photo_files"`
}
