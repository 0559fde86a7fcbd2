package browser

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmylchreest/pppscrape/pkg/fetcher"
)

// --- Config Tests ---

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{Stealth: true}.withDefaults()
	if cfg.Timeout != 60*time.Second || cfg.ChallengeWait != 3*time.Second || cfg.SettleWait != 2*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.UserAgent == "" || !cfg.Stealth {
		t.Errorf("explicit values must survive defaults: %+v", cfg)
	}
}

func TestJSString_Escapes(t *testing.T) {
	got := jsString(`div[aria-label="x"]`)
	if got != `"div[aria-label=\"x\"]"` {
		t.Errorf("unexpected literal %s", got)
	}
}

// --- Solver Tests ---

func solverServer(t *testing.T, handler func(req solverRequest) (int, any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req solverRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestSolver_Solve(t *testing.T) {
	srv := solverServer(t, func(req solverRequest) (int, any) {
		if req.Cmd != "request.get" || req.URL != "https://data.sba.gov/x" || req.MaxTimeout != 5000 {
			t.Errorf("unexpected request: %+v", req)
		}
		return http.StatusOK, map[string]any{
			"status": "ok",
			"solution": map[string]any{
				"url":      req.URL,
				"status":   200,
				"response": "<html></html>",
				"cookies":  []map[string]any{{"name": "cf_clearance", "value": "abc", "domain": ".sba.gov"}},
			},
		}
	})
	defer srv.Close()

	sol, err := NewSolver(srv.URL, 5*time.Second).Solve(context.Background(), "https://data.sba.gov/x")
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	cookies := sol.BrowserCookies()
	if len(cookies) != 1 || cookies[0].Name != "cf_clearance" || cookies[0].Domain != ".sba.gov" {
		t.Errorf("unexpected cookies: %+v", cookies)
	}
}

func TestSolver_ErrorClassification(t *testing.T) {
	tests := []struct {
		message string
		want    error
	}{
		{"Error solving the challenge. Timeout after 60.0 seconds.", fetcher.ErrChallengeTimeout},
		{"Captcha detected but no automatic solver is configured.", fetcher.ErrCaptchaChallenge},
		{"Access denied", fetcher.ErrAntiBot},
	}
	for _, tt := range tests {
		srv := solverServer(t, func(solverRequest) (int, any) {
			return http.StatusInternalServerError, map[string]any{"status": "error", "message": tt.message}
		})
		_, err := NewSolver(srv.URL, time.Second).Solve(context.Background(), "https://example.com")
		srv.Close()
		if !errors.Is(err, tt.want) {
			t.Errorf("message %q: expected %v, got %v", tt.message, tt.want, err)
		}
	}
}

func TestSolver_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	_, err := NewSolver(endpoint, time.Second).Solve(context.Background(), "https://example.com")
	if !errors.Is(err, ErrSolverUnavailable) {
		t.Errorf("expected ErrSolverUnavailable, got %v", err)
	}
}

func TestSolver_InvalidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := NewSolver(srv.URL, time.Second).Solve(context.Background(), "https://example.com")
	if err == nil || !strings.Contains(err.Error(), "parse solver response") {
		t.Errorf("expected parse error, got %v", err)
	}
}
