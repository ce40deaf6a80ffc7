package ledger

import (
	"time"

	"github.com/avolkov/finledger/internal/apperr"
	"github.com/avolkov/finledger/internal/models"
)

// NextRecurringDate returns the next occurrence of a recurring transaction
// after its anchor date. An unrecognized interval is a caller bug and fails
// immediately rather than defaulting.
func NextRecurringDate(anchor time.Time, interval models.RecurringInterval) (time.Time, error) {
	switch interval {
	case models.RecurringDaily:
		return anchor.AddDate(0, 0, 1), nil
	case models.RecurringWeekly:
		return anchor.AddDate(0, 0, 7), nil
	case models.RecurringMonthly:
		return addMonths(anchor, 1), nil
	case models.RecurringYearly:
		return addMonths(anchor, 12), nil
	}
	return time.Time{}, apperr.Newf(apperr.Validation, "unrecognized recurring interval %q", interval)
}

// addMonths adds calendar months, clamping the day to the length of the
// target month. A month-end anchor stays on the month end, so a January 31st
// schedule runs on the last day of February and a leap-day yearly schedule
// lands back on February 29th in the next leap year.
func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	target := time.Date(year, month, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()).AddDate(0, months, 0)
	last := daysIn(target.Month(), target.Year())
	if day == daysIn(month, year) || day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
