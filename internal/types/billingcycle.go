package types

import "time"

// NextBillingCycleDate returns the next occurrence of the bill cycle day
// strictly after from, in UTC. The bill cycle day is clamped to the last day
// of the candidate month (a BCD of 31 bills on Feb 28). The time of day is
// carried over from the caller so notifications spread across the day instead
// of piling up at midnight.
func NextBillingCycleDate(from time.Time, billCycleDayUTC int) time.Time {
	from = from.UTC()

	proposed := billingCycleDateInMonth(from, billCycleDayUTC)
	if proposed.After(from) {
		return proposed
	}

	nextMonth := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return billingCycleDateInMonth(
		time.Date(nextMonth.Year(), nextMonth.Month(), 1,
			from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), time.UTC),
		billCycleDayUTC)
}

func billingCycleDateInMonth(ref time.Time, billCycleDay int) time.Time {
	day := billCycleDay
	if last := lastDayOfMonth(ref.Year(), ref.Month()); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(ref.Year(), ref.Month(), day,
		ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), time.UTC)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}
