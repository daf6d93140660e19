package ical

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	goical "github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"galopen/config"
	"galopen/internal/model"
)

// occurrence is one VEVENT, or one expanded instance of a recurring VEVENT.
type occurrence struct {
	uid     string
	start   time.Time
	end     time.Time
	allDay  bool
	summary string
	desc    string
	loc     string
	url     string
	status  model.EventStatus
}

// parseFeed decodes every VCALENDAR in body and returns the occurrences that
// overlap [winStart, winEnd].
func parseFeed(body []byte, src config.ICalSource, winStart, winEnd time.Time, loc *time.Location) ([]model.CalendarEvent, error) {
	if err := validateFeed(body); err != nil {
		return nil, err
	}

	var (
		masters   []*goical.Component
		overrides = make(map[string]occurrence)
		singles   []occurrence
	)

	dec := goical.NewDecoder(bytes.NewReader(body))
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}
		for _, comp := range cal.Children {
			if comp.Name != goical.CompEvent {
				continue
			}
			occ, ok := parseOccurrence(comp, loc)
			if !ok {
				continue
			}
			switch {
			case comp.Props.Get(goical.PropRecurrenceID) != nil:
				rid, err := parseTime(comp.Props.Get(goical.PropRecurrenceID), loc)
				if err != nil {
					continue
				}
				overrides[instanceID(occ.uid, rid.t)] = occ
			case comp.Props.Get(goical.PropRecurrenceRule) != nil:
				masters = append(masters, comp)
			default:
				singles = append(singles, occ)
			}
		}
	}

	var out []model.CalendarEvent
	emit := func(id string, occ occurrence) {
		if !overlaps(occ, winStart, winEnd) {
			return
		}
		out = append(out, toEvent(id, occ, src))
	}

	for _, occ := range singles {
		id := occ.uid
		if id == "" {
			id = fallbackID(src, occ)
		}
		emit(id, occ)
	}
	for _, comp := range masters {
		base, _ := parseOccurrence(comp, loc)
		starts, err := expand(comp, base, winStart, winEnd, loc)
		if err != nil {
			// An unparseable rule still yields its first occurrence.
			emit(instanceID(base.uid, base.start), base)
			continue
		}
		duration := base.end.Sub(base.start)
		for _, s := range starts {
			id := instanceID(base.uid, s)
			if ov, ok := overrides[id]; ok {
				emit(id, ov)
				delete(overrides, id)
				continue
			}
			inst := base
			inst.start, inst.end = s, s.Add(duration)
			emit(id, inst)
		}
	}
	// Overrides moved into the window from an instance outside of it.
	for id, ov := range overrides {
		emit(id, ov)
	}
	return out, nil
}

type propTime struct {
	t      time.Time
	allDay bool
}

func parseOccurrence(comp *goical.Component, loc *time.Location) (occurrence, bool) {
	startProp := comp.Props.Get(goical.PropDateTimeStart)
	if startProp == nil {
		return occurrence{}, false
	}
	start, err := parseTime(startProp, loc)
	if err != nil {
		return occurrence{}, false
	}

	occ := occurrence{
		uid:     text(comp, goical.PropUID),
		start:   start.t,
		allDay:  start.allDay,
		summary: text(comp, goical.PropSummary),
		desc:    text(comp, goical.PropDescription),
		loc:     text(comp, goical.PropLocation),
		url:     text(comp, goical.PropURL),
		status:  mapStatus(text(comp, goical.PropStatus)),
	}

	occ.end = occ.start
	if p := comp.Props.Get(goical.PropDateTimeEnd); p != nil {
		if end, err := parseTime(p, loc); err == nil {
			occ.end = end.t
		}
	} else if occ.allDay {
		occ.end = occ.start.AddDate(0, 0, 1)
	}
	return occ, true
}

func text(comp *goical.Component, name string) string {
	p := comp.Props.Get(name)
	if p == nil {
		return ""
	}
	if v, err := p.Text(); err == nil {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(p.Value)
}

// parseTime resolves a DTSTART-like property. VALUE=DATE (or a bare 8-digit
// value) is an all-day date at local midnight. An unknown TZID falls back to loc.
func parseTime(p *goical.Prop, loc *time.Location) (propTime, error) {
	if p.ValueType() == goical.ValueDate || len(strings.TrimSpace(p.Value)) == len("20060102") {
		d, err := time.ParseInLocation("20060102", strings.TrimSpace(p.Value), loc)
		if err != nil {
			return propTime{}, err
		}
		return propTime{t: d, allDay: true}, nil
	}
	t, err := p.DateTime(loc)
	if err == nil {
		return propTime{t: t}, nil
	}
	if p.Params.Get(goical.ParamTimezoneID) == "" {
		return propTime{}, err
	}
	floating := *p
	floating.Params = make(goical.Params)
	for k, v := range p.Params {
		if k != goical.ParamTimezoneID {
			floating.Params[k] = v
		}
	}
	t, err = floating.DateTime(loc)
	if err != nil {
		return propTime{}, err
	}
	return propTime{t: t}, nil
}

// expand lists the rule's starts that can overlap the window, minus EXDATEs.
func expand(comp *goical.Component, base occurrence, winStart, winEnd time.Time, loc *time.Location) ([]time.Time, error) {
	opt, err := rrule.StrToROption(comp.Props.Get(goical.PropRecurrenceRule).Value)
	if err != nil {
		return nil, fmt.Errorf("parse rrule: %w", err)
	}
	opt.Dtstart = base.start
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}

	excluded := make(map[int64]struct{})
	for _, ex := range comp.Props.Values(goical.PropExceptionDates) {
		for _, v := range strings.Split(ex.Value, ",") {
			single := ex
			single.Value = strings.TrimSpace(v)
			if t, err := parseTime(&single, loc); err == nil {
				excluded[t.t.Unix()] = struct{}{}
			}
		}
	}

	// Reach back by the event's length so instances already underway are kept.
	duration := base.end.Sub(base.start)
	var starts []time.Time
	for _, s := range rule.Between(winStart.Add(-duration), winEnd, true) {
		if _, skip := excluded[s.Unix()]; skip {
			continue
		}
		starts = append(starts, s)
	}
	return starts, nil
}

func overlaps(occ occurrence, winStart, winEnd time.Time) bool {
	if occ.start.After(winEnd) {
		return false
	}
	if occ.end.Equal(occ.start) {
		return !occ.start.Before(winStart)
	}
	return occ.end.After(winStart)
}

func toEvent(id string, occ occurrence, src config.ICalSource) model.CalendarEvent {
	ev := model.CalendarEvent{
		ID:           id,
		Summary:      occ.summary,
		Location:     occ.loc,
		Description:  occ.desc,
		URL:          occ.url,
		IsAllDay:     occ.allDay,
		Status:       occ.status,
		CalendarID:   src.ID,
		CalendarName: src.Name,
		ExternalID:   occ.uid,
	}
	if occ.allDay {
		ev.Start, ev.End = model.OnDate(occ.start), model.OnDate(occ.end)
	} else {
		ev.Start, ev.End = model.At(occ.start), model.At(occ.end)
	}
	return ev
}

func instanceID(uid string, start time.Time) string {
	return uid + "-" + start.UTC().Format(time.RFC3339)
}

// fallbackID is stable across fetches for a VEVENT without a UID.
func fallbackID(src config.ICalSource, occ occurrence) string {
	name := src.ID + "|" + occ.start.UTC().Format(time.RFC3339) + "|" + occ.summary
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func mapStatus(s string) model.EventStatus {
	switch strings.ToUpper(s) {
	case "CONFIRMED":
		return model.StatusConfirmed
	case "TENTATIVE":
		return model.StatusTentative
	case "CANCELLED":
		return model.StatusCancelled
	}
	return ""
}
