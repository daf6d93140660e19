// Package ical is a calendar.Provider over iCalendar feeds.
package ical

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"galopen/config"
	"galopen/internal/model"
)

// Provider reads events from a fixed list of iCalendar sources. It has no
// authorization step: it is granted as soon as a source is configured.
type Provider struct {
	sources []config.ICalSource
	client  *http.Client
	loc     *time.Location
	log     *logrus.Entry
}

// New creates a Provider. A nil client uses a client with a 30s timeout; floating
// times are interpreted in loc.
func New(sources []config.ICalSource, client *http.Client, loc *time.Location) *Provider {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Provider{
		sources: sources,
		client:  client,
		loc:     loc,
		log:     logrus.WithField("component", "ical"),
	}
}

// CheckPermission implements calendar.Provider.
func (p *Provider) CheckPermission(ctx context.Context) (model.Permission, error) {
	if len(p.sources) == 0 {
		return model.PermissionNotDetermined, nil
	}
	return model.PermissionGranted, nil
}

// RequestPermission implements calendar.Provider. There is nothing to prompt for;
// access follows from configuration.
func (p *Provider) RequestPermission(ctx context.Context) (bool, error) {
	return len(p.sources) > 0, nil
}

// ListCalendars implements calendar.Provider, one calendar per source.
func (p *Provider) ListCalendars(ctx context.Context) ([]model.CalendarInfo, error) {
	cals := make([]model.CalendarInfo, 0, len(p.sources))
	for _, src := range p.sources {
		cals = append(cals, model.CalendarInfo{ID: src.ID, Title: src.Name, SourceName: sourceName(src.URL)})
	}
	return cals, nil
}

// FetchEvents implements calendar.Provider. Any failing source fails the whole fetch.
func (p *Provider) FetchEvents(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error) {
	var events []model.CalendarEvent
	seen := make(map[string]struct{})
	for _, src := range p.sources {
		body, err := p.read(ctx, src.URL)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.ID, err)
		}
		evs, err := parseFeed(body, src, start, end, p.loc)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.ID, err)
		}
		p.log.WithFields(logrus.Fields{"source": src.ID, "events": len(evs)}).Debug("fetched source")
		// Ids must be unique per fetch. The same invite subscribed through two
		// sources is one meeting; the first source listed keeps it.
		for _, ev := range evs {
			if _, dup := seen[ev.ID]; dup {
				p.log.WithFields(logrus.Fields{"source": src.ID, "event_id": ev.ID}).Debug("skipping duplicate event")
				continue
			}
			seen[ev.ID] = struct{}{}
			events = append(events, ev)
		}
	}
	return events, nil
}

func (p *Provider) read(ctx context.Context, raw string) ([]byte, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid source url: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "webcal":
	case "file":
		return os.ReadFile(u.Path)
	case "":
		return os.ReadFile(raw)
	default:
		return nil, fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
	if u.Scheme == "webcal" {
		u.Scheme = "https"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func sourceName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "local"
	}
	return u.Hostname()
}

// validateFeed rejects HTML login pages served in place of a feed.
func validateFeed(body []byte) error {
	trimmed := strings.TrimSpace(string(body))
	upper := strings.ToUpper(trimmed)
	if strings.HasPrefix(upper, "<!DOCTYPE") || strings.HasPrefix(upper, "<HTML") {
		return fmt.Errorf("received HTML instead of iCalendar data")
	}
	if !strings.HasPrefix(upper, "BEGIN:VCALENDAR") {
		return fmt.Errorf("invalid iCalendar data: missing BEGIN:VCALENDAR")
	}
	return nil
}
