// Package calendar wraps a calendar provider behind a single serialized worker.
package calendar

import (
	"context"
	"time"

	"galopen/internal/model"
)

// Provider is a calendar backend. Implementations need not be safe for concurrent
// use; the Gateway never calls one from more than one goroutine at a time.
type Provider interface {
	CheckPermission(ctx context.Context) (model.Permission, error)
	// RequestPermission blocks until the user answers.
	RequestPermission(ctx context.Context) (bool, error)
	ListCalendars(ctx context.Context) ([]model.CalendarInfo, error)
	// FetchEvents returns the occurrences overlapping [start, end].
	FetchEvents(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error)
}

// TodayWindow spans today 00:00 through tomorrow 23:59:59 in loc.
func TodayWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := time.Date(local.Year(), local.Month(), local.Day()+1, 23, 59, 59, 0, loc)
	return start, end
}
