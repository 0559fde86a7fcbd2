package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/pppscrape/internal/logger"
)

// StaticConfig holds configuration for the static fetcher.
type StaticConfig struct {
	UserAgent string
	Timeout   time.Duration
	// Stealth routes requests through a transport that mimics a browser's
	// TLS and header fingerprint.
	Stealth bool
}

// DefaultStaticConfig returns sensible defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		UserAgent: DefaultUserAgent,
		Timeout:   30 * time.Second,
	}
}

// DefaultUserAgent is a desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// StaticFetcher uses Colly for plain HTTP fetching. Pages that need
// JavaScript to render their loan figures come back without them.
type StaticFetcher struct {
	config StaticConfig
}

// NewStatic creates a new static fetcher.
func NewStatic(cfg StaticConfig) *StaticFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultStaticConfig().UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultStaticConfig().Timeout
	}
	return &StaticFetcher{config: cfg}
}

// Open fetches the page and returns a snapshot session.
func (f *StaticFetcher) Open(ctx context.Context, targetURL string, opts Options) (Session, error) {
	logger.Debug("static fetch starting", "url", targetURL, "stealth", f.config.Stealth)

	result := Content{
		URL:       targetURL,
		FetchedAt: time.Now(),
	}

	userAgent := coalesce(opts.UserAgent, f.config.UserAgent)
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.StdlibContext(ctx),
		colly.DetectCharset(),
	)

	if f.config.Stealth {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		c.WithTransport(cloudflarebp.AddCloudFlareByPass(transport))
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.config.Timeout
	}
	c.SetRequestTimeout(timeout)

	if len(opts.Headers) > 0 || len(opts.Cookies) > 0 {
		c.OnRequest(func(r *colly.Request) {
			for k, v := range opts.Headers {
				r.Headers.Set(k, v)
			}
			for _, ck := range opts.Cookies {
				r.Headers.Add("Cookie", ck.Name+"="+ck.Value)
			}
		})
	}

	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.ContentType = r.Headers.Get("Content-Type")
		result.HTML = string(r.Body)
		logger.Debug("static fetch response received",
			"status", r.StatusCode,
			"content_type", result.ContentType,
			"body_size", len(r.Body))
	})

	c.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
			result.StatusCode = statusCode
		}
		fetchErr = fmt.Errorf("fetch error: %w", err)
		logger.Debug("static fetch error", "status", statusCode, "error", err)
	})

	if err := c.Visit(targetURL); err != nil {
		if fetchErr != nil {
			return nil, classifyStatus(result.StatusCode, fetchErr)
		}
		return nil, fmt.Errorf("failed to visit URL: %w", err)
	}
	if fetchErr != nil {
		return nil, classifyStatus(result.StatusCode, fetchErr)
	}
	if strings.TrimSpace(result.HTML) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPage, targetURL)
	}

	result.Title = pageTitle(result.HTML)
	if challenge := DetectChallenge(result.Title, result.HTML); challenge != "" {
		logger.Warn("challenge page detected", "url", targetURL, "type", challenge)
		return nil, ChallengeError(challenge)
	}

	logger.Debug("static fetch complete", "url", targetURL, "title", result.Title)
	return NewSnapshotSession(result), nil
}

// classifyStatus maps the status codes anti-bot services answer with onto
// ErrAntiBot.
func classifyStatus(status int, err error) error {
	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: status %d: %v", ErrAntiBot, status, err)
	}
	return err
}

// Close releases resources.
func (f *StaticFetcher) Close() error {
	return nil
}

// Type returns the fetcher type.
func (f *StaticFetcher) Type() string {
	return "static"
}

func pageTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
