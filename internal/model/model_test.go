package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/letieu/goldmines/internal/apperror"
)

func draft(name, analysis string) Draft {
	return Draft{IdeaFields: IdeaFields{IdeaName: name, FullAnalysis: analysis}}
}

func TestValidateDraftBoundaries(t *testing.T) {
	analysis50 := strings.Repeat("a", 50)

	tests := []struct {
		name    string
		draft   Draft
		wantErr bool
	}{
		{"name length 4 rejected", draft("abcd", analysis50), true},
		{"name length 5 accepted", draft("abcde", analysis50), false},
		{"analysis length 49 rejected", draft("abcde", strings.Repeat("a", 49)), true},
		{"analysis length 50 accepted", draft("abcde", analysis50), false},
		{"whitespace does not count", draft("  ab  ", analysis50), true},
		{"multibyte runes counted once", draft("ééééé", strings.Repeat("é", 50)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDraft(tt.draft)
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperror.ErrValidation), "want validation error, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestItemTypeTable(t *testing.T) {
	assert.Equal(t, "business_ideas", ItemBusiness.Table())
	assert.Equal(t, "marketing_ideas", ItemMarketing.Table())
	assert.False(t, ItemType("invalid").Valid())
}

func TestAnalysisStatusValid(t *testing.T) {
	for _, s := range []AnalysisStatus{StatusPending, StatusCompleted, StatusFailed} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, AnalysisStatus("done").Valid())
	assert.False(t, AnalysisStatus("").Valid())
}
