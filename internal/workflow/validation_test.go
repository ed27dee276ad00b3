package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/worklist-service/internal/domain"
	apperrors "github.com/spec-kit/worklist-service/pkg/util/errorutil"
)

func TestNextDraftNumber(t *testing.T) {
	tests := []struct {
		max  string
		want string
	}{
		{"", FirstDraftNumber},
		{"DRAFT_0020", "DRAFT_0021"},
		{"DRAFT_0099", "DRAFT_0100"},
		{"DRAFT_9999", "DRAFT_10000"},
		{"DRAFT_abc", FirstDraftNumber},
		{"0101 - Pilot House Windows", FirstDraftNumber},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NextDraftNumber(tt.max), "max=%q", tt.max)
	}
	assert.True(t, IsDraftNumber("DRAFT_0042"))
	assert.False(t, IsDraftNumber("DRAFT_"))
}

func TestNormalizeItemNumber(t *testing.T) {
	got, err := NormalizeItemNumber("  0113 Main-Deck_1 ")
	require.NoError(t, err)
	assert.Equal(t, "0113 Main-Deck_1", got)

	for _, bad := range []string{"", "   ", "DRAFT/0020", strings.Repeat("A", MaxItemNumberLen+1)} {
		_, err := NormalizeItemNumber(bad)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "input %q", bad)
	}
}

func TestNormalizeContent(t *testing.T) {
	out, err := NormalizeContent(domain.WorkItemContent{
		Location:    " Engine room ",
		Description: "Replace pump ",
		Detail:      " Seal is leaking",
	}, true)
	require.NoError(t, err)
	assert.Equal(t, "Engine room", out.Location)
	assert.Equal(t, "Replace pump", out.Description)
	assert.Equal(t, "Seal is leaking", out.Detail)

	_, err = NormalizeContent(domain.WorkItemContent{Description: "x", Detail: "y"}, true)
	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, apperrors.CodeValidation, de.Code)
	assert.Equal(t, "required", de.Details["location"])

	_, err = NormalizeContent(domain.WorkItemContent{Description: "x", Detail: "y"}, false)
	assert.NoError(t, err, "location is optional when not required")

	_, err = NormalizeContent(domain.WorkItemContent{
		Location:    "deck",
		Description: strings.Repeat("d", MaxDescriptionLen+1),
		Detail:      "y",
	}, true)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestNormalizeNotes(t *testing.T) {
	notes, err := NormalizeNotes("revision notes", "   ")
	require.NoError(t, err)
	assert.Nil(t, notes)

	notes, err = NormalizeNotes("revision notes", " add more photos ")
	require.NoError(t, err)
	require.NotNil(t, notes)
	assert.Equal(t, "add more photos", *notes)

	_, err = NormalizeNotes("admin notes", strings.Repeat("n", MaxNotesLen+1))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}
