package leave

import "time"

// Workdays counts the chargeable days in the inclusive range
// [startDate, endDate]. Only Monday through Friday are chargeable.
// A half-day request subtracts one whole day, never a fraction; the
// result is clamped at zero. Returns 0 if startDate is after endDate.
func Workdays(startDate, endDate time.Time, isHalfDay bool) int {
	days := 0
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		wd := d.Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	if isHalfDay {
		days--
	}
	if days < 0 {
		return 0
	}
	return days
}
