// Package fetcher defines how loan pages are obtained. A Fetcher opens a
// Session for one URL; the session holds the captured HTML and, for browser
// backed fetchers, a live view of the rendered page until it is closed.
package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/jmylchreest/pppscrape/pkg/dom"
)

// Fetcher opens page sessions.
type Fetcher interface {
	// Open loads url and returns a session over it. The caller must Close
	// the session.
	Open(ctx context.Context, url string, opts Options) (Session, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Type returns a string identifying the fetcher type (e.g., "static", "dynamic").
	Type() string
}

// Session is one loaded page.
type Session interface {
	// Content returns the captured page.
	Content() Content

	// Live returns a surface over the rendered page, or nil when the
	// session has no live page.
	Live() dom.Surface

	// Close releases the page.
	Close() error
}

// Screenshotter is implemented by sessions that can capture the rendered page.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// Options controls fetching behavior.
type Options struct {
	UserAgent       string
	Timeout         time.Duration
	WaitForSelector string        // CSS selector to wait for (dynamic fetchers)
	WaitDuration    time.Duration // Additional wait after load
	Headers         map[string]string
	Cookies         []Cookie
}

// Cookie represents an HTTP cookie.
type Cookie struct {
	Name   string
	Value  string
	Domain string
}

// Content represents fetched page data.
type Content struct {
	URL         string
	HTML        string
	Title       string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

// Error types for distinguishing failure reasons.
// Check with errors.Is(err, fetcher.ErrCaptchaChallenge).
var (
	// ErrCaptchaChallenge indicates the site has an interactive CAPTCHA.
	ErrCaptchaChallenge = errors.New("captcha challenge detected")
	// ErrAntiBot indicates the site's anti-bot protection blocked the request.
	ErrAntiBot = errors.New("anti-bot protection detected")
	// ErrChallengeTimeout indicates a timeout while waiting for challenge to resolve.
	ErrChallengeTimeout = errors.New("challenge timeout")
	// ErrEmptyPage indicates the page loaded but had no content.
	ErrEmptyPage = errors.New("empty page")
)

// snapshotSession is a session with captured HTML and no live page.
type snapshotSession struct {
	content Content
}

// NewSnapshotSession wraps already captured content in a Session.
func NewSnapshotSession(c Content) Session {
	return &snapshotSession{content: c}
}

func (s *snapshotSession) Content() Content  { return s.content }
func (s *snapshotSession) Live() dom.Surface { return nil }
func (s *snapshotSession) Close() error      { return nil }
