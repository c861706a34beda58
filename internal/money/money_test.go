package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"$1,249.00", 124900},
		{"", 0},
		{"   ", 0},
		{"abc", 0},
		{"-5", -500},
		{"10", 1000},
		{"10.00", 1000},
		{"0.015", 2},
		{"19.999", 2000},
		{"1.2.3", 0},
		{"-", 0},
		{" USD 249 ", 24900},
		{"0.005", 1},
		{"-0.005", 0},
		{"-0.015", -1},
		{"-0.016", -2},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, ParseCents(tt.in), "ParseCents(%q)", tt.in)
	}
}

func TestFormatCents(t *testing.T) {
	require.Equal(t, "$1,249.00", FormatCents(124900))
	require.Equal(t, "$0.00", FormatCents(0))
	require.Equal(t, "$0.05", FormatCents(5))
}

func TestFormatInput(t *testing.T) {
	require.Equal(t, "1249.00", FormatInput(124900))
	require.Equal(t, "0.50", FormatInput(50))
}
