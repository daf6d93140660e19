package model

import "time"

// DateLayout is the layout of an all-day EventTime.Date.
const DateLayout = "2006-01-02"

// EventStatus is the provider-reported status of an occurrence.
type EventStatus string

const (
	StatusConfirmed EventStatus = "confirmed"
	StatusTentative EventStatus = "tentative"
	StatusCancelled EventStatus = "cancelled"
)

// EventTime is one side of an occurrence. Exactly one of DateTime and Date is set:
// DateTime for timed events (absolute instant), Date (YYYY-MM-DD) for all-day events.
type EventTime struct {
	DateTime *time.Time `json:"dateTime"`
	Date     string     `json:"date,omitempty"`
}

// At returns an EventTime for a precise instant.
func At(t time.Time) EventTime {
	t = t.UTC()
	return EventTime{DateTime: &t}
}

// OnDate returns an all-day EventTime for the calendar day of t.
func OnDate(t time.Time) EventTime {
	return EventTime{Date: t.Format(DateLayout)}
}

// CalendarEvent is an immutable snapshot of one occurrence as reported by a provider.
type CalendarEvent struct {
	ID           string      `json:"id"`
	Summary      string      `json:"summary"`
	Start        EventTime   `json:"start"`
	End          EventTime   `json:"end"`
	Location     string      `json:"location,omitempty"`
	Description  string      `json:"description,omitempty"`
	URL          string      `json:"url,omitempty"`
	IsAllDay     bool        `json:"isAllDay"`
	Status       EventStatus `json:"status,omitempty"`
	CalendarID   string      `json:"calendarId,omitempty"`
	CalendarName string      `json:"calendarName,omitempty"`
	ExternalID   string      `json:"externalId,omitempty"`
}

// CalendarInfo describes one calendar exposed by a provider.
type CalendarInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	SourceName string `json:"sourceName"`
}

// Permission is the provider's authorization state.
type Permission string

const (
	PermissionGranted       Permission = "granted"
	PermissionDenied        Permission = "denied"
	PermissionRestricted    Permission = "restricted"
	PermissionNotDetermined Permission = "not_determined"
)
