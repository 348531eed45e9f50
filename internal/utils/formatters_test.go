package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "already normalized", in: "2025-01-06", want: "2025-01-06"},
		{name: "iso timestamp", in: "2025-01-06T00:00:00Z", want: "2025-01-06"},
		{name: "space separated timestamp", in: "2025-01-06 15:04:05", want: "2025-01-06"},
		{name: "surrounding whitespace", in: "  2025-01-06  ", want: "2025-01-06"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDate(tt.in); got != tt.want {
				t.Errorf("NormalizeDate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeDateIdempotent(t *testing.T) {
	once := NormalizeDate("2025-01-06T12:30:00")
	twice := NormalizeDate(once)
	if once != twice {
		t.Errorf("NormalizeDate is not idempotent: %q != %q", once, twice)
	}
}

func TestDefaultPeriodEnd(t *testing.T) {
	tests := []struct {
		name  string
		start string
		want  string
	}{
		{name: "monday to sunday", start: "2025-01-06", want: "2025-01-12"},
		{name: "month boundary", start: "2025-01-28", want: "2025-02-03"},
		{name: "timestamp start", start: "2025-01-06T00:00:00", want: "2025-01-12"},
		{name: "invalid start", start: "not-a-date", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultPeriodEnd(tt.start); got != tt.want {
				t.Errorf("DefaultPeriodEnd(%q) = %q, want %q", tt.start, got, tt.want)
			}
		})
	}
}

func TestJoinNonEmpty(t *testing.T) {
	got := JoinNonEmpty([]string{"Alpha LLC", "", "  ", "Beta Inc"}, ", ")
	want := "Alpha LLC, Beta Inc"
	if got != want {
		t.Errorf("JoinNonEmpty = %q, want %q", got, want)
	}
}

func TestFormatMoney(t *testing.T) {
	d := decimal.NewFromFloat(1500.5)
	if got := FormatMoney(d); got != "1500.50" {
		t.Errorf("FormatMoney = %q, want %q", got, "1500.50")
	}
	if got := FormatMoney(decimal.NewFromInt(-40)); got != "-40.00" {
		t.Errorf("FormatMoney = %q, want %q", got, "-40.00")
	}
}
