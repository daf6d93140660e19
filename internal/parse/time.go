package parse

import (
	"time"

	"galopen/internal/model"
)

// StartTime resolves the absolute start of an event. All-day events and events
// whose provider did not report an instant cannot be resolved.
func StartTime(ev model.CalendarEvent) (time.Time, bool) {
	return instant(ev.Start)
}

// EndTime is the counterpart of StartTime for the end of an event.
func EndTime(ev model.CalendarEvent) (time.Time, bool) {
	return instant(ev.End)
}

func instant(t model.EventTime) (time.Time, bool) {
	if t.DateTime == nil || t.DateTime.IsZero() {
		return time.Time{}, false
	}
	return *t.DateTime, true
}

// SortKey orders an EventTime on the timeline. A date-time takes priority; a bare
// date sorts at local midnight of that day in loc.
func SortKey(t model.EventTime, loc *time.Location) (time.Time, bool) {
	if at, ok := instant(t); ok {
		return at, true
	}
	if t.Date == "" {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(model.DateLayout, t.Date, loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
