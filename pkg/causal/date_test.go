package causal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in        string
		precision Precision
		iso       string
		display   string
	}{
		{"2021", PrecisionYear, "2021-01-01", "2021"},
		{"2021-06", PrecisionMonth, "2021-06-01", "June 2021"},
		{"2021-06-15", PrecisionDay, "2021-06-15", "15 June 2021"},
		{"2021-06-15T08:30:00Z", PrecisionDay, "2021-06-15", "15 June 2021"},
		{" 1999 ", PrecisionYear, "1999-01-01", "1999"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.precision, d.Precision)
			assert.Equal(t, tt.iso, d.ISO())
			assert.Equal(t, tt.display, d.Display())
		})
	}
}

func TestParseDate_Empty(t *testing.T) {
	d, err := ParseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())
	assert.Equal(t, "", d.ISO())
}

func TestParseDate_Malformed(t *testing.T) {
	for _, in := range []string{"21", "2021-13", "2021/06/01", "June"} {
		_, err := ParseDate(in)
		assert.Error(t, err, in)
	}
}

func TestNormalized(t *testing.T) {
	d, err := ParseDate("2021-06")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC), d.Normalized())
}
