// Package google is a calendar.Provider over the Google Calendar API.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"galopen/config"
	"galopen/internal/model"
)

const (
	sourceName   = "Google"
	retrySleep   = 5 * time.Second
	maxRetries   = 3
	callbackPath = "/oauth2/callback"
)

// Provider reads events from the configured Google calendars with an OAuth token
// stored on disk.
type Provider struct {
	cfg     config.GoogleConfig
	openURL func(string) error
	log     *logrus.Entry

	// endpoint overrides the API base URL in tests.
	endpoint string
}

// New creates a Provider. openURL shows the consent page to the user.
func New(cfg config.GoogleConfig, openURL func(string) error) *Provider {
	return &Provider{
		cfg:     cfg,
		openURL: openURL,
		log:     logrus.WithField("component", "google"),
	}
}

func (p *Provider) oauthConfig() (*oauth2.Config, error) {
	credJSON, err := os.ReadFile(p.cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("google: reading credentials file: %w", err)
	}
	oauthCfg, err := google.ConfigFromJSON(credJSON, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("google: parsing credentials file: %w", err)
	}
	return oauthCfg, nil
}

func (p *Provider) loadToken() (*oauth2.Token, error) {
	b, err := os.ReadFile(p.cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("google: parsing token file: %w", err)
	}
	return &tok, nil
}

func (p *Provider) saveToken(tok *oauth2.Token) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(p.cfg.TokenFile, b, 0o600)
}

// CheckPermission implements calendar.Provider.
func (p *Provider) CheckPermission(ctx context.Context) (model.Permission, error) {
	if _, err := p.oauthConfig(); err != nil {
		p.log.WithError(err).Debug("no usable client credentials")
		return model.PermissionRestricted, nil
	}
	tok, err := p.loadToken()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return model.PermissionNotDetermined, nil
	case err != nil:
		p.log.WithError(err).Warn("unreadable token file")
		return model.PermissionDenied, nil
	}
	if tok.RefreshToken == "" && !tok.Valid() {
		return model.PermissionDenied, nil
	}
	return model.PermissionGranted, nil
}

func (p *Provider) service(ctx context.Context) (*calendar.Service, error) {
	oauthCfg, err := p.oauthConfig()
	if err != nil {
		return nil, err
	}
	tok, err := p.loadToken()
	if err != nil {
		return nil, fmt.Errorf("google: not authorized: %w", err)
	}
	opts := []option.ClientOption{option.WithHTTPClient(oauthCfg.Client(ctx, tok))}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}
	return calendar.NewService(ctx, opts...)
}

// ListCalendars implements calendar.Provider.
func (p *Provider) ListCalendars(ctx context.Context) ([]model.CalendarInfo, error) {
	svc, err := p.service(ctx)
	if err != nil {
		return nil, err
	}

	var (
		cals          []model.CalendarInfo
		nextPageToken string
	)
	for {
		var list *calendar.CalendarList
		err := retry(ctx, func() error {
			var err error
			list, err = svc.CalendarList.List().PageToken(nextPageToken).Context(ctx).Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("google: listing calendars: %w", err)
		}
		for _, item := range list.Items {
			title := item.SummaryOverride
			if title == "" {
				title = item.Summary
			}
			cals = append(cals, model.CalendarInfo{ID: item.Id, Title: title, SourceName: sourceName})
		}
		nextPageToken = list.NextPageToken
		if nextPageToken == "" {
			break
		}
	}
	return cals, nil
}

// FetchEvents implements calendar.Provider. Recurring events are expanded by the API.
func (p *Provider) FetchEvents(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error) {
	svc, err := p.service(ctx)
	if err != nil {
		return nil, err
	}

	var out []model.CalendarEvent
	for _, calID := range p.cfg.CalendarIDs {
		call := svc.Events.
			List(calID).
			Context(ctx).
			TimeMin(start.Format(time.RFC3339)).
			TimeMax(end.Format(time.RFC3339)).
			SingleEvents(true).
			ShowDeleted(false).
			OrderBy("startTime")

		var nextPageToken string
		for {
			var events *calendar.Events
			err := retry(ctx, func() error {
				var err error
				events, err = call.PageToken(nextPageToken).Do()
				return err
			})
			if err != nil {
				return nil, fmt.Errorf("google: listing events of %s: %w", calID, err)
			}
			for _, item := range events.Items {
				out = append(out, newEvent(calID, events.Summary, item))
			}
			nextPageToken = events.NextPageToken
			if nextPageToken == "" {
				break
			}
		}
	}
	return out, nil
}

func newEvent(calID, calName string, item *calendar.Event) model.CalendarEvent {
	ev := model.CalendarEvent{
		ID:           calID + ":" + item.Id,
		Summary:      item.Summary,
		Location:     item.Location,
		Description:  item.Description,
		URL:          meetingURL(item),
		Status:       model.EventStatus(item.Status),
		CalendarID:   calID,
		CalendarName: calName,
		ExternalID:   item.ICalUID,
	}
	ev.Start, ev.IsAllDay = eventTime(item.Start)
	ev.End, _ = eventTime(item.End)
	return ev
}

func eventTime(t *calendar.EventDateTime) (model.EventTime, bool) {
	if t == nil {
		return model.EventTime{}, false
	}
	if t.DateTime != "" {
		if at, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
			return model.At(at), false
		}
	}
	if t.Date != "" {
		return model.EventTime{Date: t.Date}, true
	}
	return model.EventTime{}, false
}

func meetingURL(item *calendar.Event) string {
	if item.ConferenceData != nil {
		for _, ep := range item.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" && ep.Uri != "" {
				return ep.Uri
			}
		}
	}
	return item.HangoutLink
}

func retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err = fn(); err == nil || !shouldRetry(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retrySleep):
		}
	}
	return err
}

func shouldRetry(err error) bool {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return false
	}
	for _, e := range gErr.Errors {
		if e.Reason == "rateLimitExceeded" {
			return true
		}
	}
	return false
}
