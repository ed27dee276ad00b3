// Package workflow contains the pure rules of the work-item lifecycle.
// Guards evaluate preconditions from item state and actor identity without side effects.
package workflow

import (
	"fmt"

	"github.com/spec-kit/worklist-service/internal/domain"
	apperrors "github.com/spec-kit/worklist-service/pkg/util/errorutil"
)

var allStatuses = []domain.WorkItemStatus{
	domain.StatusSubmitted,
	domain.StatusInReviewDP,
	domain.StatusInReviewAL,
	domain.StatusNeedsRevision,
	domain.StatusAwaitingPhotos,
	domain.StatusCompletedReview,
}

// AllStatuses returns the status enum in workflow order.
func AllStatuses() []domain.WorkItemStatus {
	return append([]domain.WorkItemStatus(nil), allStatuses...)
}

// ParseStatus validates a raw status value against the enum.
func ParseStatus(raw string) (domain.WorkItemStatus, bool) {
	for _, s := range allStatuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

// NeedsRevision is true for the statuses that send an item back to crew.
func NeedsRevision(status domain.WorkItemStatus) bool {
	return status == domain.StatusNeedsRevision || status == domain.StatusAwaitingPhotos
}

// RevisionStatuses lists the statuses for which NeedsRevision is true.
func RevisionStatuses() []domain.WorkItemStatus {
	return []domain.WorkItemStatus{domain.StatusNeedsRevision, domain.StatusAwaitingPhotos}
}

// IsCrewEditable reports whether crew-side edits are legal in status.
func IsCrewEditable(status domain.WorkItemStatus) bool {
	switch status {
	case domain.StatusSubmitted, domain.StatusNeedsRevision, domain.StatusAwaitingPhotos:
		return true
	default:
		return false
	}
}

// IsInvolved reports whether actorID submitted the item or is assigned to it.
func IsInvolved(item *domain.WorkItem, actorID string) bool {
	if item == nil || actorID == "" {
		return false
	}
	return item.SubmitterName == actorID || item.IsAssignedTo(actorID)
}

// CanEdit is the crew edit predicate. It is used both to gate mutations and to
// decide whether an edit affordance is shown.
func CanEdit(item *domain.WorkItem, actorID string) bool {
	return IsInvolved(item, actorID) && IsCrewEditable(item.Status)
}

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
	Code    string
}

// Error converts the guard result to a classified error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	switch r.Code {
	case apperrors.CodePermissionDenied:
		return apperrors.NewPermissionDenied(r.Reason)
	case apperrors.CodeInvalidState:
		return apperrors.NewInvalidState(r.Reason, nil)
	case apperrors.CodeConflict:
		return apperrors.NewConflict(r.Reason, nil)
	default:
		return apperrors.NewValidationError(r.Reason, nil)
	}
}

func allow() GuardResult { return GuardResult{Allowed: true} }

func deny(code, format string, args ...any) GuardResult {
	return GuardResult{Allowed: false, Code: code, Reason: fmt.Sprintf(format, args...)}
}

// CanResubmit evaluates whether a crew submission may update an existing item.
// Rules:
// - Approved items are frozen against re-submission
func CanResubmit(item *domain.WorkItem) GuardResult {
	if item.Status == domain.StatusCompletedReview {
		return deny(apperrors.CodeConflict,
			"item %s has already been approved; contact an admin to modify it", item.ItemNumber)
	}
	return allow()
}

// CanResolveRevision evaluates whether actorID may fix and resubmit the item.
// Rules:
// - Actor must be the submitter or the assignee
// - Status must be crew-editable
func CanResolveRevision(item *domain.WorkItem, actorID string) GuardResult {
	if !IsInvolved(item, actorID) {
		return deny(apperrors.CodePermissionDenied,
			"you do not have permission to edit item %s", item.ItemNumber)
	}
	if !IsCrewEditable(item.Status) {
		return deny(apperrors.CodeInvalidState,
			"item %s cannot be edited in status %q", item.ItemNumber, item.Status)
	}
	return allow()
}

// CanModifyPhotos evaluates whether actor may add or remove photos of the item.
// Rules:
// - Admins may always modify photos
// - Crew follow the CanEdit predicate
func CanModifyPhotos(item *domain.WorkItem, actor domain.Actor) GuardResult {
	if actor.IsAdmin() {
		return allow()
	}
	return CanResolveRevision(item, actor.ID)
}

// CheckPhotoLimit fails when the item would hold more than max photos.
func CheckPhotoLimit(existing, incoming, max int) error {
	if max > 0 && existing+incoming > max {
		return apperrors.NewValidationError(
			fmt.Sprintf("maximum %d photos allowed", max),
			map[string]any{"existing": existing, "incoming": incoming, "max": max},
		)
	}
	return nil
}
