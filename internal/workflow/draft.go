package workflow

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	draftPrefix = "DRAFT_"
	// FirstDraftNumber is handed out when no draft items exist yet. Lower
	// numbers belong to the planned drafts listed in the item catalogue.
	FirstDraftNumber = "DRAFT_0020"
)

// IsDraftNumber reports whether number follows the DRAFT_NNNN pattern.
func IsDraftNumber(number string) bool {
	_, ok := parseDraft(number)
	return ok
}

// NextDraftNumber returns the number following maxExisting, the highest draft
// number currently stored. Unparseable or empty input restarts at FirstDraftNumber.
func NextDraftNumber(maxExisting string) string {
	n, ok := parseDraft(maxExisting)
	if !ok {
		return FirstDraftNumber
	}
	return fmt.Sprintf("%s%04d", draftPrefix, n+1)
}

func parseDraft(number string) (int, bool) {
	if !strings.HasPrefix(number, draftPrefix) {
		return 0, false
	}
	digits := strings.TrimPrefix(number, draftPrefix)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
