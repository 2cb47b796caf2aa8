package schedule

import "time"

// CalendarFlags says which tiers above hourly should be promoted this run.
type CalendarFlags struct {
	DoDailies   bool
	DoWeeklies  bool
	DoMonthlies bool
}

// Calendar derives promotion flags from the previous hourly slot-0 mtime
// against the wall clock, both interpreted in local time. A zero mtime
// (no prior slot) always yields DoDailies.
func Calendar(slot0MTime, now time.Time) CalendarFlags {
	slot0MTime = slot0MTime.Local()
	now = now.Local()

	doDailies := slot0MTime.YearDay() != now.YearDay() || slot0MTime.Year() != now.Year()
	if slot0MTime.IsZero() {
		doDailies = true
	}

	return CalendarFlags{
		DoDailies:   doDailies,
		DoWeeklies:  doDailies && now.Weekday() == time.Sunday,
		DoMonthlies: doDailies && now.Day() == 1,
	}
}
