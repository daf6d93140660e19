package calendar

import (
	"cmp"
	"slices"
	"time"

	"galopen/internal/model"
	"galopen/internal/parse"
)

// NormalizeEvents drops cancelled occurrences and orders the rest by start time.
// Events without any resolvable start sort last, in provider order.
func NormalizeEvents(events []model.CalendarEvent, loc *time.Location) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if ev.Status == model.StatusCancelled {
			continue
		}
		out = append(out, ev)
	}
	slices.SortStableFunc(out, func(a, b model.CalendarEvent) int {
		ka, oka := parse.SortKey(a.Start, loc)
		kb, okb := parse.SortKey(b.Start, loc)
		switch {
		case !oka && !okb:
			return 0
		case !oka:
			return 1
		case !okb:
			return -1
		}
		return ka.Compare(kb)
	})
	return out
}

// SortCalendars orders calendars by source name, then title.
func SortCalendars(cals []model.CalendarInfo) []model.CalendarInfo {
	out := slices.Clone(cals)
	slices.SortStableFunc(out, func(a, b model.CalendarInfo) int {
		if c := cmp.Compare(a.SourceName, b.SourceName); c != 0 {
			return c
		}
		return cmp.Compare(a.Title, b.Title)
	})
	return out
}
