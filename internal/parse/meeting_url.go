package parse

import (
	"net/url"
	"regexp"
	"strings"

	"galopen/internal/model"
)

// urlTail runs to the next space. RE2's \S only excludes ASCII whitespace, so
// Unicode separators (NBSP, U+3000) and NEL end a link too.
const urlTail = `[^\s\p{Z}\x{85}]+`

// Provider patterns in priority order. Within one pattern the leftmost match wins.
var meetingURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https?://[\w-]*\.?zoom\.us/j/` + urlTail),
	regexp.MustCompile(`https?://meet\.google\.com/[\w-]+`),
	regexp.MustCompile(`https?://teams\.microsoft\.com/l/meetup-join/` + urlTail),
	regexp.MustCompile(`https?://[\w-]+\.webex\.com/` + urlTail),
}

// meetingHosts is the allow-list for an event's declared URL. A leading dot also
// matches any subdomain.
var meetingHosts = []string{
	"zoom.us", ".zoom.us",
	"meet.google.com",
	"teams.microsoft.com",
	"webex.com", ".webex.com",
}

// MeetingURL finds the videoconferencing link of an event. The declared URL is
// checked first, then the location, then the description; the first hit wins.
func MeetingURL(ev model.CalendarEvent) (string, bool) {
	if ev.URL != "" && IsMeetingURL(ev.URL) {
		return ev.URL, true
	}
	if u, ok := FindMeetingURL(ev.Location); ok {
		return u, true
	}
	if u, ok := FindMeetingURL(ev.Description); ok {
		return u, true
	}
	return "", false
}

// IsMeetingURL reports whether raw is an absolute URL on a known meeting host.
func IsMeetingURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range meetingHosts {
		if strings.HasPrefix(h, ".") {
			if strings.HasSuffix(host, h) {
				return true
			}
			continue
		}
		if host == h {
			return true
		}
	}
	return false
}

// FindMeetingURL scans free text with the provider patterns.
func FindMeetingURL(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, re := range meetingURLPatterns {
		if m := re.FindString(text); m != "" {
			return m, true
		}
	}
	return "", false
}
