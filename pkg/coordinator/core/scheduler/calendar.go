package scheduler

import (
	"time"
)

// Calendar context windows. Peak hours reflect when generated content is most
// consumed; business hours reflect when operators are watching.
const (
	businessHourStart = 9
	businessHourEnd   = 18
	peakNoonStart     = 12
	peakNoonEnd       = 14
	peakEveningStart  = 20
	peakEveningEnd    = 23
)

// isWeekend reports whether t falls on Saturday or Sunday.
func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// isBusinessHours reports whether t falls inside weekday business hours.
func isBusinessHours(t time.Time) bool {
	if isWeekend(t) {
		return false
	}
	h := t.Hour()
	return h >= businessHourStart && h < businessHourEnd
}

// isPeakHours reports whether t falls inside a consumption peak window.
func isPeakHours(t time.Time) bool {
	h := t.Hour()
	return (h >= peakNoonStart && h < peakNoonEnd) || (h >= peakEveningStart && h < peakEveningEnd)
}
