package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-01-06", "2024-01-06", true},
		{" 2024-01-06 ", "2024-01-06", true},
		{"2024-01-06 13:45:00", "2024-01-06", true},
		{"2024-01-06T13:45:00Z", "2024-01-06", true},
		{"01/06/2024", "2024-01-06", true}, // month first
		{"1/6/2024", "2024-01-06", true},
		{"01-06-24", "2024-01-06", true},
		{"06-Jan-2024", "2024-01-06", true},
		{"45296", "2024-01-05", true},
		{"45296.75", "2024-01-05", true},
		{"0", "", false},
		{"-3", "", false},
		{"", "", false},
		{"yesterday", "", false},
		{"NaN", "", false},
		{"2024-13-01", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.in, false)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got.String(), tc.in)
		}
	}
}

func TestParseDate1904(t *testing.T) {
	_, ok := ParseDate("0.5", true)
	assert.False(t, ok)
	d1900, ok := ParseDate("45296", false)
	assert.True(t, ok)
	d1904, ok := ParseDate("45296", true)
	assert.True(t, ok)
	// the 1904 system is 1462 days ahead of the 1900 one
	assert.Equal(t, 1462, int(d1904.Sub(d1900.Time).Hours()/24))
}

func TestParseHour(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00:00", 0, true},
		{"09:05:00", 9, true},
		{"23:59:59", 23, true},
		{"7:30:00", 7, true},
		{"0.5", 12, true},
		{"0.458333333", 11, true},
		{"0.99999", 23, true},
		{"24:00:00", 0, false},
		{"10:15", 0, false},
		{"1.5", 0, false},
		{"", 0, false},
		{"noon", 0, false},
		{"NaN", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseHour(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got, tc.in)
		}
	}
}
