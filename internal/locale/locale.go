// Package locale picks the display language and holds the two text variants
// used for countdown labels and notifications.
package locale

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
)

// Locale is a supported display language.
type Locale string

const (
	English  Locale = "en"
	Japanese Locale = "ja"
)

var matcher = language.NewMatcher([]language.Tag{language.English, language.Japanese})

// Resolve maps a configured locale ("auto", "en", "ja") to a Locale. "auto" inspects
// the usual POSIX locale variables and falls back to English.
func Resolve(setting string) Locale {
	switch strings.ToLower(setting) {
	case "en":
		return English
	case "ja":
		return Japanese
	}
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return FromTag(v)
		}
	}
	return English
}

// FromTag matches a POSIX ("ja_JP.UTF-8") or BCP 47 ("ja-JP") tag.
func FromTag(raw string) Locale {
	raw, _, _ = strings.Cut(raw, ".")
	raw = strings.ReplaceAll(raw, "_", "-")
	tag, err := language.Parse(raw)
	if err != nil {
		return English
	}
	_, idx, conf := matcher.Match(tag)
	if idx == 1 && conf != language.No {
		return Japanese
	}
	return English
}

// Minutes renders a minutes-only duration.
func (l Locale) Minutes(m int64) string {
	if l == Japanese {
		return fmt.Sprintf("%d分", m)
	}
	return fmt.Sprintf("%dm", m)
}

// Hours renders a whole number of hours.
func (l Locale) Hours(h int64) string {
	if l == Japanese {
		return fmt.Sprintf("%d時間", h)
	}
	return fmt.Sprintf("%dh", h)
}

// HoursMinutes renders hours with a minutes remainder.
func (l Locale) HoursMinutes(h, m int64) string {
	if l == Japanese {
		return fmt.Sprintf("%d時間%d分", h, m)
	}
	return fmt.Sprintf("%dh%dm", h, m)
}

// Opening is the notification body announcing that a meeting link is being opened.
func (l Locale) Opening(title string) string {
	if l == Japanese {
		return "開始: " + title
	}
	return "Opening: " + title
}
