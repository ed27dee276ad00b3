package workflow

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/worklist-service/internal/domain"
	apperrors "github.com/spec-kit/worklist-service/pkg/util/errorutil"
)

// Field length bounds enforced at the boundary.
const (
	MaxItemNumberLen  = 50
	MaxLocationLen    = 200
	MaxDescriptionLen = 2000
	MaxDetailLen      = 10000
	MaxReferencesLen  = 5000
	MaxCaptionLen     = 500
	MaxNotesLen       = 5000
)

var itemNumberPattern = regexp.MustCompile(`^[A-Za-z0-9 _-]+$`)

// NormalizeItemNumber trims and validates an operator-supplied item number.
func NormalizeItemNumber(raw string) (string, error) {
	number := strings.TrimSpace(raw)
	if number == "" {
		return "", apperrors.NewValidationError("item number is required", nil)
	}
	if utf8.RuneCountInString(number) > MaxItemNumberLen {
		return "", apperrors.NewValidationError(
			fmt.Sprintf("item number too long (max %d characters)", MaxItemNumberLen), nil)
	}
	if !itemNumberPattern.MatchString(number) {
		return "", apperrors.NewValidationError("item number contains invalid characters", nil)
	}
	return number, nil
}

// NormalizeContent trims the content fields and checks required fields and
// length bounds. All violations are reported together.
func NormalizeContent(c domain.WorkItemContent, requireLocation bool) (domain.WorkItemContent, error) {
	out := domain.WorkItemContent{
		Location:    strings.TrimSpace(c.Location),
		Description: strings.TrimSpace(c.Description),
		Detail:      strings.TrimSpace(c.Detail),
		References:  strings.TrimSpace(c.References),
	}

	problems := map[string]any{}
	checkText(problems, "location", out.Location, requireLocation, MaxLocationLen)
	checkText(problems, "description", out.Description, true, MaxDescriptionLen)
	checkText(problems, "detail", out.Detail, true, MaxDetailLen)
	checkText(problems, "references", out.References, false, MaxReferencesLen)
	if len(problems) > 0 {
		return out, apperrors.NewValidationError("invalid work item content", problems)
	}
	return out, nil
}

// NormalizeNotes trims free-text notes, returning nil for blank input.
func NormalizeNotes(field, raw string) (*string, error) {
	notes := strings.TrimSpace(raw)
	if notes == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(notes) > MaxNotesLen {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("%s must not exceed %d characters", field, MaxNotesLen), nil)
	}
	return &notes, nil
}

// NormalizeCaption trims a photo caption and enforces its bound.
func NormalizeCaption(raw string) (string, error) {
	caption := strings.TrimSpace(raw)
	if utf8.RuneCountInString(caption) > MaxCaptionLen {
		return "", apperrors.NewValidationError(
			fmt.Sprintf("photo caption must not exceed %d characters", MaxCaptionLen), nil)
	}
	return caption, nil
}

func checkText(problems map[string]any, field, value string, required bool, max int) {
	if value == "" {
		if required {
			problems[field] = "required"
		}
		return
	}
	if utf8.RuneCountInString(value) > max {
		problems[field] = fmt.Sprintf("must not exceed %d characters", max)
	}
}
