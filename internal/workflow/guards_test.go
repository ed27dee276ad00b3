package workflow

import (
	"testing"

	"github.com/spec-kit/worklist-service/internal/domain"
	apperrors "github.com/spec-kit/worklist-service/pkg/util/errorutil"
)

func strPtr(s string) *string { return &s }

func TestParseStatus(t *testing.T) {
	for _, s := range AllStatuses() {
		got, ok := ParseStatus(string(s))
		if !ok || got != s {
			t.Errorf("ParseStatus(%q) = %q, %v", s, got, ok)
		}
	}
	for _, raw := range []string{"", "submitted", "Approved", "Completed"} {
		if _, ok := ParseStatus(raw); ok {
			t.Errorf("ParseStatus(%q) accepted an unknown status", raw)
		}
	}
}

func TestNeedsRevision(t *testing.T) {
	want := map[domain.WorkItemStatus]bool{
		domain.StatusSubmitted:       false,
		domain.StatusInReviewDP:      false,
		domain.StatusInReviewAL:      false,
		domain.StatusNeedsRevision:   true,
		domain.StatusAwaitingPhotos:  true,
		domain.StatusCompletedReview: false,
	}
	for status, expected := range want {
		if got := NeedsRevision(status); got != expected {
			t.Errorf("NeedsRevision(%q) = %v, want %v", status, got, expected)
		}
	}
}

func TestCanEdit(t *testing.T) {
	tests := []struct {
		name   string
		item   domain.WorkItem
		actor  string
		expect bool
	}{
		{
			name:   "submitter can edit submitted item",
			item:   domain.WorkItem{SubmitterName: "DP", Status: domain.StatusSubmitted},
			actor:  "DP",
			expect: true,
		},
		{
			name:   "assignee can edit item needing revision",
			item:   domain.WorkItem{SubmitterName: "Mark", AssignedTo: strPtr("DP"), Status: domain.StatusNeedsRevision},
			actor:  "DP",
			expect: true,
		},
		{
			name:   "assignee can edit item awaiting photos",
			item:   domain.WorkItem{SubmitterName: "Mark", AssignedTo: strPtr("DP"), Status: domain.StatusAwaitingPhotos},
			actor:  "DP",
			expect: true,
		},
		{
			name:   "submitter cannot edit item in review",
			item:   domain.WorkItem{SubmitterName: "DP", Status: domain.StatusInReviewAL},
			actor:  "DP",
			expect: false,
		},
		{
			name:   "submitter cannot edit approved item",
			item:   domain.WorkItem{SubmitterName: "DP", Status: domain.StatusCompletedReview},
			actor:  "DP",
			expect: false,
		},
		{
			name:   "empty actor never matches unassigned item",
			item:   domain.WorkItem{SubmitterName: "DP", Status: domain.StatusSubmitted},
			actor:  "",
			expect: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanEdit(&tt.item, tt.actor); got != tt.expect {
				t.Errorf("CanEdit = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestCanEditFalseForStrangersInEveryStatus(t *testing.T) {
	for _, status := range AllStatuses() {
		item := domain.WorkItem{SubmitterName: "DP", AssignedTo: strPtr("Mark"), Status: status}
		if CanEdit(&item, "AL") {
			t.Errorf("stranger allowed to edit item in status %q", status)
		}
	}
}

func TestCanResubmit(t *testing.T) {
	open := domain.WorkItem{ItemNumber: "DRAFT_0020", Status: domain.StatusInReviewDP}
	if r := CanResubmit(&open); !r.Allowed {
		t.Fatalf("expected resubmission of item in review to be allowed, got %q", r.Reason)
	}

	approved := domain.WorkItem{ItemNumber: "DRAFT_0020", Status: domain.StatusCompletedReview}
	r := CanResubmit(&approved)
	if r.Allowed {
		t.Fatal("expected approved item to reject resubmission")
	}
	if !apperrors.HasCode(r.Error(), apperrors.CodeConflict) {
		t.Errorf("expected conflict, got %v", r.Error())
	}
}

func TestCanResolveRevision(t *testing.T) {
	tests := []struct {
		name     string
		item     domain.WorkItem
		actor    string
		wantCode string
	}{
		{
			name:  "assignee on needs revision",
			item:  domain.WorkItem{ItemNumber: "X1", SubmitterName: "Mark", AssignedTo: strPtr("DP"), Status: domain.StatusNeedsRevision},
			actor: "DP",
		},
		{
			name:     "stranger is denied before status is checked",
			item:     domain.WorkItem{ItemNumber: "X1", SubmitterName: "Mark", Status: domain.StatusCompletedReview},
			actor:    "AL",
			wantCode: apperrors.CodePermissionDenied,
		},
		{
			name:     "submitter on item in review is invalid state",
			item:     domain.WorkItem{ItemNumber: "X1", SubmitterName: "DP", Status: domain.StatusInReviewDP},
			actor:    "DP",
			wantCode: apperrors.CodeInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := CanResolveRevision(&tt.item, tt.actor)
			if tt.wantCode == "" {
				if !r.Allowed {
					t.Fatalf("expected allowed, got %q", r.Reason)
				}
				if r.Error() != nil {
					t.Fatalf("allowed result returned error %v", r.Error())
				}
				return
			}
			if r.Allowed {
				t.Fatal("expected denial")
			}
			if !apperrors.HasCode(r.Error(), tt.wantCode) {
				t.Errorf("error = %v, want code %s", r.Error(), tt.wantCode)
			}
		})
	}
}

func TestCanModifyPhotosAdminOverride(t *testing.T) {
	item := domain.WorkItem{SubmitterName: "DP", Status: domain.StatusCompletedReview}
	if r := CanModifyPhotos(&item, domain.Actor{ID: "admin", Role: domain.RoleAdmin}); !r.Allowed {
		t.Errorf("admin should modify photos of any item, got %q", r.Reason)
	}
	if r := CanModifyPhotos(&item, domain.Actor{ID: "DP", Role: domain.RoleCrew}); r.Allowed {
		t.Error("crew should not modify photos of an approved item")
	}
}

func TestCheckPhotoLimit(t *testing.T) {
	if err := CheckPhotoLimit(0, 6, 6); err != nil {
		t.Errorf("six photos at limit six rejected: %v", err)
	}
	if err := CheckPhotoLimit(4, 2, 6); err != nil {
		t.Errorf("existing plus new at limit rejected: %v", err)
	}
	if err := CheckPhotoLimit(0, 7, 6); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("seventh photo error = %v, want validation error", err)
	}
	if err := CheckPhotoLimit(5, 2, 6); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("overflow through existing photos error = %v, want validation error", err)
	}
}
