package price

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFreeAndEmpty(t *testing.T) {
	for _, raw := range []string{"", "free", "FREE", "Бесплатно", "бесплатно", "Н/Д", "   "} {
		assert.True(t, Normalize(raw).IsZero(), "raw=%q", raw)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"$19.99", "19.99"},
		{"19,99", "19.99"},
		{"1 999,99 ₸", "1999.99"},
		{"1.999,99", "1999.99"},
		{"49.99 USD", "49.99"},
		{"2 300,5₸", "2300.5"},
		{"какой-то мусор", "0"},
		{"...", "0"},
	}
	for _, tt := range tests {
		got := Normalize(tt.raw)
		assert.Equal(t, tt.want, got.String(), "raw=%q", tt.raw)
	}
}

func TestNormalizeLastSeparatorWins(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		// US locale: comma is thousands, period decides
		{"$1,999.99", "1999.99"},
		// Nintendo tile prices arrive in this exact shape
		{"$1,299.99", "1299.99"},
		// EU locale: period is thousands, comma decides
		{"1.999,99", "1999.99"},
		{"19,99", "19.99"},
		{"$59.99", "59.99"},
	}
	for _, tt := range tests {
		got := NormalizeWith(tt.raw, LastSeparatorWins)
		assert.Equal(t, tt.want, got.String(), "raw=%q", tt.raw)
	}
}

func TestNormalizeNeverPanicsOnGarbage(t *testing.T) {
	for _, raw := range []string{",", ".", ",,..", "₸₸₸", "12,34,56.78"} {
		assert.NotPanics(t, func() { _ = Normalize(raw) }, "raw=%q", raw)
	}
}
