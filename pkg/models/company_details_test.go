package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func statusPtr(s Status) *Status { return &s }

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    Status
		wantErr bool
	}{
		{"a_faire", StatusPending, false},
		{"pending", StatusPending, false},
		{"EN_COURS", StatusInProgress, false},
		{"in_progress", StatusInProgress, false},
		{" termine ", StatusDone, false},
		{"done", StatusDone, false},
		{"archived", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStatus(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_Label(t *testing.T) {
	assert.Equal(t, "À faire", StatusPending.Label())
	assert.Equal(t, "En cours", StatusInProgress.Label())
	assert.Equal(t, "Terminé", StatusDone.Label())
	assert.Equal(t, "other", Status("other").Label())
	assert.Len(t, Statuses, 3)
}

func TestStatusFilter_Matches(t *testing.T) {
	done := &CompanyDetails{SIREN: "111111111", Status: statusPtr(StatusDone)}
	pending := &CompanyDetails{SIREN: "222222222", Status: statusPtr(StatusPending)}
	noStatus := &CompanyDetails{SIREN: "333333333"}

	doneFilter, err := ParseStatusFilter("termine")
	require.NoError(t, err)
	assert.True(t, doneFilter.Matches(done))
	assert.False(t, doneFilter.Matches(pending))
	assert.False(t, doneFilter.Matches(noStatus))
	assert.False(t, doneFilter.Matches(nil))

	all, err := ParseStatusFilter("all")
	require.NoError(t, err)
	assert.True(t, all.Matches(done))
	assert.True(t, all.Matches(pending))
	assert.True(t, all.Matches(noStatus))

	empty, err := ParseStatusFilter("")
	require.NoError(t, err)
	assert.Equal(t, StatusFilterAll, empty)

	_, err = ParseStatusFilter("archived")
	assert.Error(t, err)
}

func TestCompanyDetails_Normalize(t *testing.T) {
	d := &CompanyDetails{
		SIREN:         " 111111111 ",
		Phone:         strPtr(" 0102030405 "),
		Email:         strPtr(""),
		Website:       strPtr("   "),
		InternalNotes: nil,
		Status:        statusPtr(""),
	}

	d.Normalize()

	assert.Equal(t, "111111111", d.SIREN)
	require.NotNil(t, d.Phone)
	assert.Equal(t, "0102030405", *d.Phone)
	assert.Nil(t, d.Email, "empty string must become NULL")
	assert.Nil(t, d.Website, "blank string must become NULL")
	assert.Nil(t, d.InternalNotes)
	assert.Nil(t, d.Status)
}
