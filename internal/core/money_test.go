package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.005", true},
		{" 2.50 ", "2.5", true},
		{"-1", "-1", true},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1,2,3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			assert.Error(t, err, "%q expected error", tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.out)), "%q expected %s, got %s", tc.in, tc.out, got)
	}
}

func TestNormalizeAmount(t *testing.T) {
	_, err := NormalizeAmount(decimal.Zero)
	assert.True(t, IsValidation(err))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NormalizeAmount(decimal.NewFromInt(-5))
	assert.True(t, IsValidation(err))

	got, err := NormalizeAmount(decimal.NewFromInt(1_000_000_000))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(999_999_999)))

	got, err = NormalizeAmount(decimal.RequireFromString("12.345"))
	require.NoError(t, err)
	assert.Equal(t, "12.345", got.String())
}

func TestFormatAmount(t *testing.T) {
	d := decimal.RequireFromString("1500.005")
	assert.Equal(t, "1500.01", FormatAmount(d, "."))
	assert.Equal(t, "1500,01", FormatAmount(d, ","))
	assert.Equal(t, "0,00", FormatAmount(decimal.Zero, ","))
	assert.Equal(t, "-3,50", FormatAmount(decimal.RequireFromString("-3.5"), ","))
}
