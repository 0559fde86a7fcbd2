// Package pppscrape is the public entry point: it scrapes one PPP loan page
// into a record.
package pppscrape

import (
	"time"

	"github.com/spf13/afero"

	"github.com/jmylchreest/pppscrape/pkg/artifact"
	"github.com/jmylchreest/pppscrape/pkg/assembler"
	"github.com/jmylchreest/pppscrape/pkg/fetcher"
)

// Config holds Scraper configuration.
type Config struct {
	// Fetching
	Fetcher         fetcher.Fetcher
	UserAgent       string
	Timeout         time.Duration `validate:"gte=0"`
	WaitForSelector string
	WaitDuration    time.Duration `validate:"gte=0"`

	// DebugDir enables debug artifacts: the raw HTML whenever the fallback
	// strategy fires, and a screenshot of every browser session.
	DebugDir string
	Fs       afero.Fs
	Sink     artifact.Sink

	Refiner assembler.Refiner
	Clock   func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent: fetcher.DefaultUserAgent,
		Timeout:   60 * time.Second,
		Fs:        afero.NewOsFs(),
		Clock:     time.Now,
	}
}

// Option configures a Scraper.
type Option func(*Config)

// WithFetcher sets the fetcher. The default is a static HTTP fetcher.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *Config) {
		c.Fetcher = f
	}
}

// WithUserAgent sets the user agent sent by the fetcher.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

// WithTimeout bounds how long opening a page may take.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithWaitFor makes browser fetchers wait for selector, then for d, before
// capturing the page.
func WithWaitFor(selector string, d time.Duration) Option {
	return func(c *Config) {
		c.WaitForSelector = selector
		c.WaitDuration = d
	}
}

// WithDebugDir writes debug artifacts under dir.
func WithDebugDir(dir string) Option {
	return func(c *Config) {
		c.DebugDir = dir
	}
}

// WithFs sets the filesystem debug artifacts are written to.
func WithFs(fs afero.Fs) Option {
	return func(c *Config) {
		c.Fs = fs
	}
}

// WithSink sets the artifact sink directly, overriding WithDebugDir.
func WithSink(s artifact.Sink) Option {
	return func(c *Config) {
		c.Sink = s
	}
}

// WithRefiner enables refinement of records without a draw amount.
func WithRefiner(r assembler.Refiner) Option {
	return func(c *Config) {
		c.Refiner = r
	}
}

// WithClock overrides the time source for scrapedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Clock = now
	}
}
