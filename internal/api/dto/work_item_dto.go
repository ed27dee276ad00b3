package dto

import (
	"time"

	"github.com/spec-kit/worklist-service/internal/domain"
)

// AssignRequest payload for admin assignment.
type AssignRequest struct {
	Status        domain.WorkItemStatus `json:"status"`
	AssignedTo    string                `json:"assigned_to"`
	RevisionNotes string                `json:"revision_notes"`
}

// StatusRequest payload for a bare status change.
type StatusRequest struct {
	Status domain.WorkItemStatus `json:"status"`
}

// AdminNotesRequest payload for admin notes.
type AdminNotesRequest struct {
	AdminNotes string `json:"admin_notes"`
}

// BatchExportRequest selects items for a zip export.
type BatchExportRequest struct {
	IDs []int64 `json:"ids"`
}

// FormOptionsResponse lists the submit form choices.
type FormOptionsResponse struct {
	NextItemNumber string            `json:"next_item_number"`
	MaxPhotos      int               `json:"max_photos"`
	YardItems      []string          `json:"yard_items"`
	DraftItems     []string          `json:"draft_items"`
	Assigned       []WorkItemSummary `json:"assigned"`
}

// NextNumberResponse carries the next draft number.
type NextNumberResponse struct {
	ItemNumber string `json:"item_number"`
}

// PhotoResponse describes one photo.
type PhotoResponse struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Caption   string    `json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse describes one status change.
type HistoryResponse struct {
	OldStatus *domain.WorkItemStatus `json:"old_status"`
	NewStatus domain.WorkItemStatus  `json:"new_status"`
	ChangedBy string                 `json:"changed_by"`
	Notes     *string                `json:"notes,omitempty"`
	ChangedAt time.Time              `json:"changed_at"`
}

// WorkItemSummary is the list representation of a work item.
type WorkItemSummary struct {
	ID            int64                 `json:"id"`
	ItemNumber    string                `json:"item_number"`
	Location      string                `json:"location"`
	Description   string                `json:"description"`
	SubmitterName string                `json:"submitter_name"`
	SubmittedAt   time.Time             `json:"submitted_at"`
	Status        domain.WorkItemStatus `json:"status"`
	AssignedTo    *string               `json:"assigned_to"`
	NeedsRevision bool                  `json:"needs_revision"`
}

// WorkItemResponse is the full representation of a work item.
type WorkItemResponse struct {
	WorkItemSummary
	Detail              string            `json:"detail"`
	References          string            `json:"references"`
	OriginalSubmitter   string            `json:"original_submitter"`
	RevisionNotes       *string           `json:"revision_notes"`
	LastModifiedBy      *string           `json:"last_modified_by"`
	LastModifiedAt      *time.Time        `json:"last_modified_at"`
	AdminNotes          *string           `json:"admin_notes,omitempty"`
	AdminNotesUpdatedAt *time.Time        `json:"admin_notes_updated_at,omitempty"`
	Photos              []PhotoResponse   `json:"photos"`
	History             []HistoryResponse `json:"history"`
	CanEdit             bool              `json:"can_edit"`
}

// NewWorkItemSummary maps a domain item to its list representation.
func NewWorkItemSummary(item *domain.WorkItem) WorkItemSummary {
	return WorkItemSummary{
		ID:            item.ID,
		ItemNumber:    item.ItemNumber,
		Location:      item.Location,
		Description:   item.Description,
		SubmitterName: item.SubmitterName,
		SubmittedAt:   item.SubmittedAt,
		Status:        item.Status,
		AssignedTo:    item.AssignedTo,
		NeedsRevision: item.NeedsRevision,
	}
}

// NewWorkItemSummaries maps a slice of items.
func NewWorkItemSummaries(items []domain.WorkItem) []WorkItemSummary {
	out := make([]WorkItemSummary, 0, len(items))
	for i := range items {
		out = append(out, NewWorkItemSummary(&items[i]))
	}
	return out
}

// NewWorkItemResponse maps a loaded item.
func NewWorkItemResponse(item *domain.WorkItem, canEdit bool) WorkItemResponse {
	resp := WorkItemResponse{
		WorkItemSummary:     NewWorkItemSummary(item),
		Detail:              item.Detail,
		References:          item.References,
		OriginalSubmitter:   item.OriginalSubmitter,
		RevisionNotes:       item.RevisionNotes,
		LastModifiedBy:      item.LastModifiedBy,
		LastModifiedAt:      item.LastModifiedAt,
		AdminNotes:          item.AdminNotes,
		AdminNotesUpdatedAt: item.AdminNotesUpdatedAt,
		Photos:              make([]PhotoResponse, 0, len(item.Photos)),
		History:             make([]HistoryResponse, 0, len(item.History)),
		CanEdit:             canEdit,
	}
	for _, p := range item.Photos {
		resp.Photos = append(resp.Photos, PhotoResponse{
			ID:        p.ID,
			Filename:  p.Filename,
			Caption:   p.Caption,
			CreatedAt: p.CreatedAt,
		})
	}
	for _, h := range item.History {
		resp.History = append(resp.History, HistoryResponse{
			OldStatus: h.OldStatus,
			NewStatus: h.NewStatus,
			ChangedBy: h.ChangedBy,
			Notes:     h.Notes,
			ChangedAt: h.ChangedAt,
		})
	}
	return resp
}
