package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParsePeriodKind(t *testing.T) {
	tests := []struct {
		input   string
		want    PeriodKind
		wantErr bool
	}{
		{"", DefaultPeriod, false},
		{"week", PeriodWeek, false},
		{"month", PeriodMonth, false},
		{"quarter", PeriodQuarter, false},
		{"year", PeriodYear, false},
		{"day", "", true},
		{"Month", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePeriodKind(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidPeriod) {
				t.Errorf("ParsePeriodKind(%q) error = %v, want ErrInvalidPeriod", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePeriodKind(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePeriodKind(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestResolvePeriod(t *testing.T) {
	now := time.Date(2024, time.May, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		kind      PeriodKind
		wantStart time.Time
	}{
		{PeriodWeek, time.Date(2024, time.May, 8, 10, 30, 0, 0, time.UTC)},
		{PeriodMonth, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodQuarter, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodYear, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			p, err := ResolvePeriod(tt.kind, now)
			if err != nil {
				t.Fatalf("ResolvePeriod(%q) unexpected error: %v", tt.kind, err)
			}
			if !p.Start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", p.Start, tt.wantStart)
			}
			if !p.End.Equal(now) {
				t.Errorf("end = %v, want %v", p.End, now)
			}
		})
	}
}

func TestResolvePeriod_QuarterBoundaries(t *testing.T) {
	// 季度起点：1月、4月、7月、10月
	cases := []struct {
		month     time.Month
		wantStart time.Month
	}{
		{time.January, time.January},
		{time.March, time.January},
		{time.April, time.April},
		{time.June, time.April},
		{time.July, time.July},
		{time.September, time.July},
		{time.October, time.October},
		{time.December, time.October},
	}

	for _, c := range cases {
		now := time.Date(2024, c.month, 20, 0, 0, 0, 0, time.UTC)
		p, err := ResolvePeriod(PeriodQuarter, now)
		if err != nil {
			t.Fatalf("ResolvePeriod(quarter) unexpected error: %v", err)
		}
		if p.Start.Month() != c.wantStart {
			t.Errorf("quarter start for %s = %s, want %s", c.month, p.Start.Month(), c.wantStart)
		}
	}
}

func TestResolvePeriod_InvalidKind(t *testing.T) {
	_, err := ResolvePeriod("fortnight", time.Now())
	if !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("ResolvePeriod(invalid) error = %v, want ErrInvalidPeriod", err)
	}
}

func TestPeriod_Previous(t *testing.T) {
	// 上一区间是滚动等长窗口：[start-len, start)
	start := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC)
	p := Period{Kind: PeriodMonth, Start: start, End: end}

	prev := p.Previous()
	wantStart := time.Date(2024, time.April, 17, 0, 0, 0, 0, time.UTC)
	if !prev.Start.Equal(wantStart) {
		t.Errorf("Previous().Start = %v, want %v", prev.Start, wantStart)
	}
	if !prev.End.Equal(start) {
		t.Errorf("Previous().End = %v, want %v", prev.End, start)
	}
	if prev.Kind != PeriodMonth {
		t.Errorf("Previous().Kind = %q, want %q", prev.Kind, PeriodMonth)
	}
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		input    string
		fallback Currency
		want     Currency
		wantErr  bool
	}{
		{"", CurrencyGBP, CurrencyGBP, false},
		{"", CurrencyEUR, CurrencyEUR, false},
		{"GBP", CurrencyUSD, CurrencyGBP, false},
		{"USD", CurrencyGBP, CurrencyUSD, false},
		{"EUR", CurrencyGBP, CurrencyEUR, false},
		{"gbp", CurrencyGBP, "", true},
		{"JPY", CurrencyGBP, "", true},
	}

	for _, tt := range tests {
		got, err := ParseCurrency(tt.input, tt.fallback)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidCurrency) {
				t.Errorf("ParseCurrency(%q) error = %v, want ErrInvalidCurrency", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCurrency(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCurrency(%q, %q) = %q, want %q", tt.input, tt.fallback, got, tt.want)
		}
	}
}
