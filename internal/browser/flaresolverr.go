package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jmylchreest/pppscrape/internal/logger"
	"github.com/jmylchreest/pppscrape/pkg/fetcher"
)

// ErrSolverUnavailable indicates the FlareSolverr service is not reachable.
var ErrSolverUnavailable = errors.New("FlareSolverr service unavailable")

// Solver is a client for a FlareSolverr instance. It is used to clear a
// Cloudflare challenge once so the browser can reuse the clearance cookies.
type Solver struct {
	endpoint   string
	client     *resty.Client
	maxTimeout time.Duration
}

type solverRequest struct {
	Cmd        string `json:"cmd"`
	URL        string `json:"url,omitempty"`
	MaxTimeout int64  `json:"maxTimeout,omitempty"`
}

type solverResponse struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	Solution *Solution `json:"solution,omitempty"`
}

// Solution is what FlareSolverr returns for a solved page.
type Solution struct {
	URL       string         `json:"url"`
	Status    int            `json:"status"`
	Response  string         `json:"response"`
	Cookies   []SolverCookie `json:"cookies"`
	UserAgent string         `json:"userAgent"`
}

// SolverCookie is a cookie set while solving the challenge.
type SolverCookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
}

// NewSolver creates a FlareSolverr client. endpoint is the full API URL,
// e.g. http://localhost:8191/v1.
func NewSolver(endpoint string, maxTimeout time.Duration) *Solver {
	if maxTimeout <= 0 {
		maxTimeout = 60 * time.Second
	}
	return &Solver{
		endpoint: endpoint,
		client: resty.New().
			SetTimeout(maxTimeout+30*time.Second).
			SetHeader("Content-Type", "application/json"),
		maxTimeout: maxTimeout,
	}
}

// Solve asks FlareSolverr to load targetURL and clear any challenge.
func (s *Solver) Solve(ctx context.Context, targetURL string) (*Solution, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(solverRequest{
			Cmd:        "request.get",
			URL:        targetURL,
			MaxTimeout: s.maxTimeout.Milliseconds(),
		}).
		Post(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSolverUnavailable, err)
	}

	// FlareSolverr answers errors with a 500 and a JSON body.
	var out solverResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("parse solver response (status %d): %w", resp.StatusCode(), err)
	}
	if out.Status != "ok" {
		return nil, classifySolverError(out.Message)
	}
	if out.Solution == nil {
		return nil, fmt.Errorf("%w: solver returned no solution", fetcher.ErrAntiBot)
	}

	logger.Debug("challenge solved by FlareSolverr",
		"url", targetURL,
		"status", out.Solution.Status,
		"cookies", len(out.Solution.Cookies))
	return out.Solution, nil
}

// BrowserCookies converts the solution's cookies for the browser.
func (s *Solution) BrowserCookies() []fetcher.Cookie {
	out := make([]fetcher.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		out = append(out, fetcher.Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain})
	}
	return out
}

// classifySolverError maps FlareSolverr failure messages onto fetcher errors.
func classifySolverError(message string) error {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return fmt.Errorf("%w: %s", fetcher.ErrChallengeTimeout, message)
	case strings.Contains(msg, "captcha") || strings.Contains(msg, "turnstile") ||
		strings.Contains(msg, "could not be solved") || strings.Contains(msg, "unable to solve"):
		return fmt.Errorf("%w: %s", fetcher.ErrCaptchaChallenge, message)
	default:
		return fmt.Errorf("%w: %s", fetcher.ErrAntiBot, message)
	}
}
