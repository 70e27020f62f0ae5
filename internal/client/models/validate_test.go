package models

import (
	"testing"

	"github.com/dmitrijs2005/worklog/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDateAndClock(t *testing.T) {
	require.NoError(t, ValidateDate("2024-05-01"))
	require.ErrorIs(t, ValidateDate("2024-5-1"), common.ErrInvalidInput)
	require.ErrorIs(t, ValidateDate("2024-02-30"), common.ErrInvalidInput)

	require.NoError(t, ValidateClock("08:00"))
	require.ErrorIs(t, ValidateClock("8am"), common.ErrInvalidInput)
	require.ErrorIs(t, ValidateClock("25:00"), common.ErrInvalidInput)
}

func TestHoursBetween(t *testing.T) {
	tests := []struct {
		in, out string
		want    float64
	}{
		{"08:00", "17:00", 9},
		{"08:00", "08:20", 0.33},
		{"22:00", "06:30", 8.5},
		{"09:15", "09:15", 0},
	}
	for _, tt := range tests {
		got, err := HoursBetween(tt.in, tt.out)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s-%s", tt.in, tt.out)
	}

	_, err := HoursBetween("xx", "10:00")
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestValidateThemeAndDescription(t *testing.T) {
	require.NoError(t, ValidateTheme("dark"))
	require.ErrorIs(t, ValidateTheme("blue"), common.ErrInvalidInput)
	require.ErrorIs(t, ValidateDescription("  "), common.ErrInvalidInput)
}

func TestDataURL(t *testing.T) {
	s := EncodeDataURL("image/png", []byte{1, 2, 3})
	assert.Equal(t, "data:image/png;base64,AQID", s)
	assert.True(t, IsDataURL(s))

	ct, data, err := DecodeDataURL(s)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, []byte{1, 2, 3}, data)

	for _, bad := range []string{"https://x/y.png", "data:image/png;base64", "data:image/png,AQID", "data:image/png;base64,!!"} {
		_, _, err := DecodeDataURL(bad)
		require.ErrorIs(t, err, common.ErrLocalStoreCorruption, bad)
	}
}
