// Package countdown derives the short "time until next meeting" label.
package countdown

import (
	"time"

	"galopen/internal/locale"
	"galopen/internal/model"
	"galopen/internal/parse"
)

// Next returns the earliest timed event starting strictly after now.
func Next(now time.Time, events []model.CalendarEvent) (model.CalendarEvent, time.Time, bool) {
	var (
		best      model.CalendarEvent
		bestStart time.Time
		found     bool
	)
	for _, ev := range events {
		if ev.IsAllDay {
			continue
		}
		start, ok := parse.StartTime(ev)
		if !ok || !start.After(now) {
			continue
		}
		if !found || start.Before(bestStart) {
			best, bestStart, found = ev, start, true
		}
	}
	return best, bestStart, found
}

// Label formats the countdown to the next event. It returns false when there is no
// future event or it is further away than thresholdMinutes. A threshold of 0 means
// always show.
func Label(now time.Time, events []model.CalendarEvent, thresholdMinutes int, loc locale.Locale) (string, bool) {
	_, start, ok := Next(now, events)
	if !ok {
		return "", false
	}
	secs := int64(start.Sub(now) / time.Second)
	minutes := (secs + 59) / 60
	if minutes <= 0 {
		return "", false
	}
	if thresholdMinutes != 0 && minutes > int64(thresholdMinutes) {
		return "", false
	}
	return Format(minutes, loc), true
}

// Format renders a positive number of minutes: minutes-only below an hour, otherwise
// hours plus a minutes component when nonzero.
func Format(minutes int64, loc locale.Locale) string {
	if minutes < 60 {
		return loc.Minutes(minutes)
	}
	h, m := minutes/60, minutes%60
	if m == 0 {
		return loc.Hours(h)
	}
	return loc.HoursMinutes(h, m)
}
