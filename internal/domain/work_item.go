package domain

import "time"

// WorkItemStatus enumerates lifecycle states for work items.
type WorkItemStatus string

const (
	StatusSubmitted       WorkItemStatus = "Submitted"
	StatusInReviewDP      WorkItemStatus = "In Review by DP"
	StatusInReviewAL      WorkItemStatus = "In Review by AL"
	StatusNeedsRevision   WorkItemStatus = "Needs Revision"
	StatusAwaitingPhotos  WorkItemStatus = "Awaiting Photos"
	StatusCompletedReview WorkItemStatus = "Completed Review"
)

// WorkItem is the aggregate for a reported maintenance task.
type WorkItem struct {
	ID                  int64
	ItemNumber          string
	Location            string
	Description         string
	Detail              string
	References          string
	SubmitterName       string
	OriginalSubmitter   string
	SubmittedAt         time.Time
	Status              WorkItemStatus
	AssignedTo          *string
	NeedsRevision       bool
	RevisionNotes       *string
	LastModifiedBy      *string
	LastModifiedAt      *time.Time
	AdminNotes          *string
	AdminNotesUpdatedAt *time.Time
	Photos              []Photo
	History             []StatusHistory
}

// Photo is an image attached to a work item. Photos keep insertion order.
type Photo struct {
	ID         int64
	WorkItemID int64
	Filename   string
	Caption    string
	CreatedAt  time.Time
}

// WorkItemContent holds the operator-supplied text of a work item.
type WorkItemContent struct {
	Location    string
	Description string
	Detail      string
	References  string
}

// Content returns the item's editable text fields.
func (w *WorkItem) Content() WorkItemContent {
	return WorkItemContent{
		Location:    w.Location,
		Description: w.Description,
		Detail:      w.Detail,
		References:  w.References,
	}
}

// ApplyContent overwrites the item's editable text fields.
func (w *WorkItem) ApplyContent(c WorkItemContent) {
	w.Location = c.Location
	w.Description = c.Description
	w.Detail = c.Detail
	w.References = c.References
}

// IsAssignedTo reports whether crewID is the current assignee.
func (w *WorkItem) IsAssignedTo(crewID string) bool {
	return w.AssignedTo != nil && *w.AssignedTo == crewID
}

// Clone returns a deep copy, including photos and history.
func (w *WorkItem) Clone() *WorkItem {
	if w == nil {
		return nil
	}
	out := *w
	out.AssignedTo = cloneString(w.AssignedTo)
	out.RevisionNotes = cloneString(w.RevisionNotes)
	out.LastModifiedBy = cloneString(w.LastModifiedBy)
	out.AdminNotes = cloneString(w.AdminNotes)
	out.LastModifiedAt = cloneTime(w.LastModifiedAt)
	out.AdminNotesUpdatedAt = cloneTime(w.AdminNotesUpdatedAt)
	if w.Photos != nil {
		out.Photos = append([]Photo(nil), w.Photos...)
	}
	if w.History != nil {
		out.History = make([]StatusHistory, len(w.History))
		for i, h := range w.History {
			out.History[i] = h.Clone()
		}
	}
	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
