// Package browser opens loan pages in headless Chrome via chromedp. A session
// keeps its tab open after the snapshot is taken so the rendered DOM can be
// queried again, and it handles the anti-bot interstitials government data
// portals put in front of their pages.
package browser

import (
	"time"

	"github.com/jmylchreest/pppscrape/pkg/fetcher"
)

// Config holds configuration for the browser fetcher.
type Config struct {
	UserAgent string
	Timeout   time.Duration

	// Stealth injects anti-detection patches and uses stealthier Chrome flags.
	Stealth bool

	// FlareSolverrURL, when set, is asked to clear Cloudflare challenges
	// before the browser navigates. Its cookies are handed to the browser.
	FlareSolverrURL string

	// SettleWait is slept after the page is ready so late scripts can render.
	SettleWait time.Duration

	// ChallengeWait is slept once when a challenge page is detected before
	// checking again.
	ChallengeWait time.Duration

	// DismissOverlays closes newsletter modals and similar overlays before
	// the snapshot is taken.
	DismissOverlays bool

	// ChromePath overrides the Chrome binary lookup.
	ChromePath string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent:       fetcher.DefaultUserAgent,
		Timeout:         60 * time.Second,
		SettleWait:      2 * time.Second,
		ChallengeWait:   3 * time.Second,
		DismissOverlays: true,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.SettleWait == 0 {
		c.SettleWait = d.SettleWait
	}
	if c.ChallengeWait == 0 {
		c.ChallengeWait = d.ChallengeWait
	}
	return c
}
