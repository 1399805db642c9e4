package attendance

import "time"

// MonthlyCycleWindow returns the billing-cycle window containing now.
// Cycles are anchored to the subscription start date and roll monthly: the
// n-th cycle starts on the start date shifted by n months, with the day of
// month clamped to the target month's length (a Jan 31 anchor yields Feb 28
// or 29). The windows form a contiguous, non-overlapping partition of
// [start, end); ok is false when now lies outside that range.
func MonthlyCycleWindow(start, end, now time.Time) (cycleStart, cycleEnd time.Time, ok bool) {
	if now.Before(start) || !now.Before(end) {
		return time.Time{}, time.Time{}, false
	}

	n := (now.Year()-start.Year())*12 + int(now.Month()) - int(start.Month())
	for addMonthsClamped(start, n).After(now) {
		n--
	}
	for !addMonthsClamped(start, n+1).After(now) {
		n++
	}
	return addMonthsClamped(start, n), addMonthsClamped(start, n+1), true
}

// addMonthsClamped shifts t by n months keeping the anchor day, clamped to
// the target month's last day. Unlike time.AddDate it never spills into the
// following month.
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	months := int(m) - 1 + n
	y += months / 12
	months %= 12
	if months < 0 {
		months += 12
		y--
	}
	month := time.Month(months + 1)
	if last := daysIn(y, month); d > last {
		d = last
	}
	return time.Date(y, month, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
