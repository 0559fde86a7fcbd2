package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/pppscrape/internal/logger"
	"github.com/jmylchreest/pppscrape/pkg/dom"
	"github.com/jmylchreest/pppscrape/pkg/fetcher"
)

// Fetcher opens pages in headless Chrome. It implements fetcher.Fetcher.
type Fetcher struct {
	config      Config
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	solver      *Solver
}

// New creates a browser fetcher. Chrome itself is started lazily on the
// first Open.
func New(cfg Config) *Fetcher {
	cfg = cfg.withDefaults()
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)

	var solver *Solver
	if cfg.FlareSolverrURL != "" {
		solver = NewSolver(cfg.FlareSolverrURL, cfg.Timeout)
	}

	logger.Debug("browser fetcher created",
		"stealth", cfg.Stealth,
		"flaresolverr", solver != nil,
		"timeout", cfg.Timeout)

	return &Fetcher{
		config:      cfg,
		allocCtx:    allocCtx,
		cancelAlloc: cancel,
		solver:      solver,
	}
}

// Open navigates a new tab to targetURL and captures its HTML. The tab stays
// open until the returned session is closed.
func (f *Fetcher) Open(ctx context.Context, targetURL string, opts fetcher.Options) (fetcher.Session, error) {
	cookies := opts.Cookies
	if f.solver != nil {
		if sol, err := f.solver.Solve(ctx, targetURL); err != nil {
			// The browser may still get through on its own.
			logger.Warn("FlareSolverr pre-solve failed", "url", targetURL, "error", err)
		} else {
			cookies = append(cookies, sol.BrowserCookies()...)
		}
	}

	tab, closeTab := chromedp.NewContext(f.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)
	// Allocate the tab on its own context so the load timeout below does
	// not own it.
	if err := chromedp.Run(tab); err != nil {
		closeTab()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	s := &Session{tab: tab, close: closeTab}
	if err := f.load(ctx, s, targetURL, cookies, opts); err != nil {
		s.closeQuietly()
		return nil, err
	}
	return s, nil
}

func (f *Fetcher) load(ctx context.Context, s *Session, targetURL string, cookies []fetcher.Cookie, opts fetcher.Options) error {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.config.Timeout
	}
	loadCtx, cancel := context.WithTimeout(s.tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	waitFor := opts.WaitForSelector
	if waitFor == "" {
		waitFor = "body"
	}
	settle := f.config.SettleWait
	if opts.WaitDuration > 0 {
		settle = opts.WaitDuration
	}

	var actions []chromedp.Action
	if len(cookies) > 0 {
		actions = append(actions, setCookies(targetURL, cookies))
	}
	if f.config.Stealth {
		actions = append(actions, injectStealth())
	}
	actions = append(actions,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady(waitFor),
		chromedp.Sleep(settle),
	)

	logger.Debug("browser loading page", "url", targetURL, "timeout", timeout, "cookies", len(cookies))
	if err := chromedp.Run(loadCtx, actions...); err != nil {
		return navigationError(ctx, loadCtx, targetURL, err)
	}

	title, html, err := capture(loadCtx)
	if err != nil {
		return navigationError(ctx, loadCtx, targetURL, err)
	}

	if challenge := fetcher.DetectChallenge(title, html); challenge != "" {
		logger.Info("challenge page detected, waiting", "url", targetURL, "type", challenge, "wait", f.config.ChallengeWait)
		if err := chromedp.Run(loadCtx, chromedp.Sleep(f.config.ChallengeWait)); err != nil {
			return fmt.Errorf("%w: %s", fetcher.ErrChallengeTimeout, challenge)
		}
		if title, html, err = capture(loadCtx); err != nil {
			return navigationError(ctx, loadCtx, targetURL, err)
		}
		if still := fetcher.DetectChallenge(title, html); still != "" {
			logger.Warn("challenge not cleared", "url", targetURL, "type", still)
			return fetcher.ChallengeError(still)
		}
	}

	if f.config.DismissOverlays {
		if n, err := dismissOverlays(loadCtx); err != nil {
			logger.Debug("overlay dismissal failed", "url", targetURL, "error", err)
		} else if n > 0 {
			logger.Debug("overlays dismissed", "url", targetURL, "count", n)
			if title, html, err = capture(loadCtx); err != nil {
				return navigationError(ctx, loadCtx, targetURL, err)
			}
		}
	}

	if strings.TrimSpace(html) == "" {
		return fmt.Errorf("%w: %s", fetcher.ErrEmptyPage, targetURL)
	}

	s.content = fetcher.Content{
		URL:        targetURL,
		HTML:       html,
		Title:      title,
		StatusCode: 200, // chromedp doesn't easily expose status codes
		FetchedAt:  time.Now(),
	}
	logger.Debug("browser page captured", "url", targetURL, "title", title, "html_size", len(html))
	return nil
}

func capture(ctx context.Context) (title, html string, err error) {
	err = chromedp.Run(ctx,
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return title, html, err
}

// navigationError turns a deadline into ErrChallengeTimeout; a stalled load is
// almost always an interstitial that never cleared.
func navigationError(parent, load context.Context, targetURL string, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("browser load cancelled: %w", parent.Err())
	}
	if errors.Is(load.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("browser timeout, possible anti-bot protection", "url", targetURL)
		return fmt.Errorf("%w: %v", fetcher.ErrChallengeTimeout, err)
	}
	return fmt.Errorf("browser navigation failed: %w", err)
}

// Close stops Chrome.
func (f *Fetcher) Close() error {
	if f.cancelAlloc != nil {
		f.cancelAlloc()
	}
	return nil
}

// Type returns the fetcher type.
func (f *Fetcher) Type() string {
	return "dynamic"
}

// setCookies returns an action that sets cookies before navigation.
func setCookies(targetURL string, cookies []fetcher.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		u, err := url.Parse(targetURL)
		if err != nil {
			return fmt.Errorf("parse URL for cookies: %w", err)
		}
		params := make([]*network.CookieParam, 0, len(cookies))
		for _, c := range cookies {
			domain := c.Domain
			if domain == "" {
				domain = u.Hostname()
			}
			params = append(params, &network.CookieParam{
				Name:   c.Name,
				Value:  c.Value,
				Domain: domain,
				Path:   "/",
				Secure: u.Scheme == "https",
			})
		}
		return network.SetCookies(params).Do(ctx)
	})
}

// Session is an open browser tab.
type Session struct {
	tab     context.Context
	close   context.CancelFunc
	content fetcher.Content
}

// Content implements fetcher.Session.
func (s *Session) Content() fetcher.Content { return s.content }

// Live implements fetcher.Session.
func (s *Session) Live() dom.Surface { return &liveSurface{tab: s.tab} }

// Screenshot captures the visible viewport.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	shotCtx, cancel := context.WithTimeout(s.tab, queryTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var buf []byte
	if err := chromedp.Run(shotCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

// Close closes the tab.
func (s *Session) Close() error {
	s.closeQuietly()
	return nil
}

func (s *Session) closeQuietly() {
	if s.close != nil {
		s.close()
		s.close = nil
	}
}

var (
	_ fetcher.Fetcher       = (*Fetcher)(nil)
	_ fetcher.Session       = (*Session)(nil)
	_ fetcher.Screenshotter = (*Session)(nil)
)
