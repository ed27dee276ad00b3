package notification

import (
	"fmt"
	"strings"

	"github.com/spec-kit/worklist-service/internal/domain"
)

// AssignmentMessage renders the text sent to an assignee.
func AssignmentMessage(itemNumber string, status domain.WorkItemStatus, notes *string, loginURL string) string {
	parts := []string{
		fmt.Sprintf("Work Item Assigned: %s", itemNumber),
		fmt.Sprintf("Status: %s", status),
	}
	if notes != nil && strings.TrimSpace(*notes) != "" {
		parts = append(parts, fmt.Sprintf("Notes: %s", *notes))
	}
	if loginURL != "" {
		parts = append(parts, fmt.Sprintf("View at: %s", loginURL))
	}
	return strings.Join(parts, "\n\n")
}
