package domain

import "time"

// StatusHistory is an immutable audit trail entry for one status change.
type StatusHistory struct {
	ID         int64
	WorkItemID int64
	OldStatus  *WorkItemStatus
	NewStatus  WorkItemStatus
	ChangedBy  string
	Notes      *string
	ChangedAt  time.Time
}

// Clone returns a deep copy of the entry.
func (h StatusHistory) Clone() StatusHistory {
	out := h
	if h.OldStatus != nil {
		old := *h.OldStatus
		out.OldStatus = &old
	}
	out.Notes = cloneString(h.Notes)
	return out
}
