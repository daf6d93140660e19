// Package opener hands meeting links to the desktop's default browser.
package opener

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pkg/browser"
)

// Browser opens http(s) URLs with the system handler.
type Browser struct {
	openURL func(string) error
}

// New returns a Browser backed by github.com/pkg/browser.
func New() *Browser {
	return &Browser{openURL: browser.OpenURL}
}

// Open launches rawURL. Only absolute http and https URLs are accepted.
func (b *Browser) Open(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("refusing to open %q: not an http(s) url", rawURL)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.openURL(u.String()); err != nil {
		return fmt.Errorf("opening %s: %w", rawURL, err)
	}
	return nil
}

// OpenURL is the plain function form, for callers that only need a func(string) error.
func (b *Browser) OpenURL(rawURL string) error {
	return b.Open(context.Background(), rawURL)
}
