package ledger

import (
	"testing"
	"time"

	"github.com/avolkov/finledger/internal/apperr"
	"github.com/avolkov/finledger/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextRecurringDate(t *testing.T) {
	tests := []struct {
		name     string
		anchor   time.Time
		interval models.RecurringInterval
		want     time.Time
	}{
		{"daily", date(2024, time.March, 10), models.RecurringDaily, date(2024, time.March, 11)},
		{"daily across month end", date(2024, time.January, 31), models.RecurringDaily, date(2024, time.February, 1)},
		{"weekly", date(2024, time.March, 10), models.RecurringWeekly, date(2024, time.March, 17)},
		{"weekly across year end", date(2023, time.December, 28), models.RecurringWeekly, date(2024, time.January, 4)},
		{"monthly mid-month", date(2024, time.January, 15), models.RecurringMonthly, date(2024, time.February, 15)},
		{"monthly jan 31 leap year", date(2024, time.January, 31), models.RecurringMonthly, date(2024, time.February, 29)},
		{"monthly jan 31 non-leap year", date(2023, time.January, 31), models.RecurringMonthly, date(2023, time.February, 28)},
		{"monthly keeps month-end anchor", date(2024, time.April, 30), models.RecurringMonthly, date(2024, time.May, 31)},
		{"yearly", date(2024, time.June, 15), models.RecurringYearly, date(2025, time.June, 15)},
		{"yearly from leap day", date(2024, time.February, 29), models.RecurringYearly, date(2025, time.February, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextRecurringDate(tt.anchor, tt.interval)
			if err != nil {
				t.Fatalf("NextRecurringDate() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextRecurringDate(%v, %s) = %v, want %v", tt.anchor, tt.interval, got, tt.want)
			}
		})
	}
}

// A yearly schedule anchored on a leap day stays on the last day of February
// and lands back on February 29th when the next leap year comes around.
func TestNextRecurringDate_YearlyLeapDayChain(t *testing.T) {
	current := date(2024, time.February, 29)
	for i := 0; i < 4; i++ {
		next, err := NextRecurringDate(current, models.RecurringYearly)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		current = next
	}
	if want := date(2028, time.February, 29); !current.Equal(want) {
		t.Errorf("after 4 yearly steps from 2024-02-29 got %v, want %v", current, want)
	}
}

func TestNextRecurringDate_UnrecognizedInterval(t *testing.T) {
	_, err := NextRecurringDate(date(2024, time.March, 10), models.RecurringInterval("FORTNIGHTLY"))
	if err == nil {
		t.Fatal("expected error for unrecognized interval")
	}
	if !apperr.IsKind(err, apperr.Validation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestNextRecurringDate_PreservesTimeOfDay(t *testing.T) {
	anchor := time.Date(2024, time.January, 31, 13, 45, 0, 0, time.UTC)
	got, err := NextRecurringDate(anchor, models.RecurringMonthly)
	if err != nil {
		t.Fatalf("NextRecurringDate() error = %v", err)
	}
	want := time.Date(2024, time.February, 29, 13, 45, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
