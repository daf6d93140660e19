package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"galopen/config"
	"galopen/internal/model"
)

func writeCredentials(t *testing.T, dir, tokenURL string) string {
	t.Helper()
	path := filepath.Join(dir, "credentials.json")
	body := fmt.Sprintf(`{"installed":{"client_id":"client","client_secret":"secret","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.example.com/auth","token_uri":%q}}`, tokenURL)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func writeToken(t *testing.T, path string, tok *oauth2.Token) {
	t.Helper()
	b, err := json.Marshal(tok)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
}

func TestProvider_CheckPermission(t *testing.T) {
	dir := t.TempDir()
	creds := writeCredentials(t, dir, "https://oauth.example.com/token")
	tokenFile := filepath.Join(dir, "token.json")
	ctx := context.Background()

	p := New(config.GoogleConfig{CredentialsFile: filepath.Join(dir, "missing.json"), TokenFile: tokenFile}, nil)
	status, err := p.CheckPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PermissionRestricted, status)

	p = New(config.GoogleConfig{CredentialsFile: creds, TokenFile: tokenFile}, nil)
	status, err = p.CheckPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PermissionNotDetermined, status)

	writeToken(t, tokenFile, &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(-time.Hour)})
	status, err = p.CheckPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PermissionDenied, status, "expired and no refresh token")

	writeToken(t, tokenFile, &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(-time.Hour)})
	status, err = p.CheckPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PermissionGranted, status)
}

func TestProvider_FetchEvents(t *testing.T) {
	var pageTokens []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/calendars/primary/events"):
			q := r.URL.Query()
			assert.Equal(t, "true", q.Get("singleEvents"))
			assert.Equal(t, "startTime", q.Get("orderBy"))
			assert.Equal(t, "2024-01-01T00:00:00Z", q.Get("timeMin"))
			pageTokens = append(pageTokens, q.Get("pageToken"))
			if q.Get("pageToken") == "" {
				fmt.Fprint(w, `{"summary":"Work","nextPageToken":"p2","items":[
					{"id":"e1","summary":"Standup","status":"confirmed","iCalUID":"e1@google.com",
					 "start":{"dateTime":"2024-01-01T10:00:00Z"},"end":{"dateTime":"2024-01-01T10:15:00Z"},
					 "hangoutLink":"https://meet.google.com/abc-defg-hij"}]}`)
				return
			}
			fmt.Fprint(w, `{"summary":"Work","items":[
				{"id":"e2","summary":"Offsite","start":{"date":"2024-01-01"},"end":{"date":"2024-01-02"},
				 "conferenceData":{"entryPoints":[{"entryPointType":"phone","uri":"tel:+1"},{"entryPointType":"video","uri":"https://zoom.us/j/1"}]}}]}`)
		case strings.HasSuffix(r.URL.Path, "/users/me/calendarList"):
			fmt.Fprint(w, `{"items":[{"id":"primary@example.com","summary":"Me","summaryOverride":"Mine"},{"id":"team","summary":"Team"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token.json")
	writeToken(t, tokenFile, &oauth2.Token{AccessToken: "access", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)})
	p := New(config.GoogleConfig{
		CredentialsFile: writeCredentials(t, dir, server.URL+"/token"),
		TokenFile:       tokenFile,
		CalendarIDs:     []string{"primary"},
	}, nil)
	p.endpoint = server.URL + "/"

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	events, err := p.FetchEvents(context.Background(), start, start.Add(48*time.Hour-time.Second))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, []string{"", "p2"}, pageTokens)

	standup := events[0]
	assert.Equal(t, "primary:e1", standup.ID)
	assert.Equal(t, "e1@google.com", standup.ExternalID)
	assert.Equal(t, model.StatusConfirmed, standup.Status)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", standup.URL)
	assert.Equal(t, "Work", standup.CalendarName)
	assert.False(t, standup.IsAllDay)
	require.NotNil(t, standup.Start.DateTime)
	assert.True(t, standup.Start.DateTime.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))

	offsite := events[1]
	assert.True(t, offsite.IsAllDay)
	assert.Equal(t, "2024-01-01", offsite.Start.Date)
	assert.Equal(t, "https://zoom.us/j/1", offsite.URL)

	cals, err := p.ListCalendars(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.CalendarInfo{
		{ID: "primary@example.com", Title: "Mine", SourceName: "Google"},
		{ID: "team", Title: "Team", SourceName: "Google"},
	}, cals)
}

func TestProvider_RequestPermission(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"fresh","token_type":"Bearer","refresh_token":"refresh","expires_in":3600}`)
	}))
	defer tokenServer.Close()

	testCases := []struct {
		name     string
		query    func(state string) url.Values
		expected bool
		saved    bool
	}{
		{
			name: "User grants access",
			query: func(state string) url.Values {
				return url.Values{"state": {state}, "code": {"auth-code"}}
			},
			expected: true,
			saved:    true,
		},
		{
			name: "User denies access",
			query: func(state string) url.Values {
				return url.Values{"state": {state}, "error": {"access_denied"}}
			},
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			tokenFile := filepath.Join(dir, "token.json")

			openURL := func(authURL string) error {
				u, err := url.Parse(authURL)
				if err != nil {
					return err
				}
				q := u.Query()
				go func() {
					resp, err := http.Get(q.Get("redirect_uri") + "?" + tc.query(q.Get("state")).Encode())
					if err == nil {
						resp.Body.Close()
					}
				}()
				return nil
			}

			p := New(config.GoogleConfig{
				CredentialsFile: writeCredentials(t, dir, tokenServer.URL),
				TokenFile:       tokenFile,
				CallbackAddr:    "127.0.0.1:0",
			}, openURL)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			granted, err := p.RequestPermission(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, granted)

			_, statErr := os.Stat(tokenFile)
			assert.Equal(t, tc.saved, statErr == nil)
		})
	}
}
