package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

// --- DetectChallenge Tests ---

func TestDetectChallenge(t *testing.T) {
	tests := []struct {
		name  string
		title string
		html  string
		want  string
	}{
		{"normal page", "Acme Bakery - ProPublica", "<div>loan</div>", ""},
		{"cloudflare title", "Just a moment...", "", ChallengeCloudflare},
		{"cloudflare markup", "", `<div id="cf-challenge-running">`, ChallengeCloudflare},
		{"turnstile", "", `<div class="cf-turnstile">`, ChallengeTurnstile},
		{"hcaptcha", "", `<script src="https://hcaptcha.com/1/api.js">`, ChallengeHCaptcha},
		{"recaptcha", "", `<div class="g-recaptcha">`, ChallengeReCaptcha},
		{"security check", "Security Check Required", "", ChallengeAntiBot},
		{"access denied", "Access Denied", "", ChallengeAntiBot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectChallenge(tt.title, tt.html); got != tt.want {
				t.Errorf("DetectChallenge() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChallengeError(t *testing.T) {
	if err := ChallengeError(ChallengeHCaptcha); !errors.Is(err, ErrCaptchaChallenge) {
		t.Errorf("hcaptcha should map to ErrCaptchaChallenge, got %v", err)
	}
	if err := ChallengeError(ChallengeCloudflare); !errors.Is(err, ErrAntiBot) {
		t.Errorf("cloudflare should map to ErrAntiBot, got %v", err)
	}
}

// --- FileFetcher Tests ---

func TestFileFetcher_UTF8(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "page.html", []byte("<html><head><title>Acme</title></head><body>$1,000</body></html>"), 0o644)

	s, err := NewFile(fs, "page.html").Open(context.Background(), "https://example.com/acme", Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = s.Close() }()

	c := s.Content()
	if c.URL != "https://example.com/acme" || c.Title != "Acme" {
		t.Errorf("unexpected content: %+v", c)
	}
	if s.Live() != nil {
		t.Error("snapshot sessions have no live surface")
	}
}

func TestFileFetcher_DecodesLegacyCharset(t *testing.T) {
	fs := afero.NewMemMapFs()
	// 0xE9 is "é" in windows-1252.
	raw := append([]byte(`<html><head><meta charset="windows-1252"><title>Caf`), 0xE9)
	raw = append(raw, []byte(`</title></head><body></body></html>`)...)
	_ = afero.WriteFile(fs, "legacy.html", raw, 0o644)

	s, err := NewFile(fs, "legacy.html").Open(context.Background(), "u", Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := s.Content().Title; got != "Café" {
		t.Errorf("expected decoded title, got %q", got)
	}
}

func TestFileFetcher_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, err := NewFile(fs, "missing.html").Open(context.Background(), "u", Options{}); err == nil {
		t.Error("expected error for missing file")
	}
	_ = afero.WriteFile(fs, "empty.html", []byte("  \n"), 0o644)
	if _, err := NewFile(fs, "empty.html").Open(context.Background(), "u", Options{}); !errors.Is(err, ErrEmptyPage) {
		t.Errorf("expected ErrEmptyPage, got %v", err)
	}
}

// --- StaticFetcher Tests ---

func TestStaticFetcher_Open(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test") != "yes" {
			t.Errorf("custom header not sent")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><head><title>Loan</title></head><body>$5</body></html>"))
	}))
	defer srv.Close()

	f := NewStatic(StaticConfig{})
	defer func() { _ = f.Close() }()

	s, err := f.Open(context.Background(), srv.URL, Options{Headers: map[string]string{"X-Test": "yes"}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	c := s.Content()
	if c.StatusCode != http.StatusOK || c.Title != "Loan" || !strings.Contains(c.HTML, "$5") {
		t.Errorf("unexpected content: %+v", c)
	}
	if f.Type() != "static" {
		t.Errorf("unexpected type %q", f.Type())
	}
}

func TestStaticFetcher_Forbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewStatic(StaticConfig{}).Open(context.Background(), srv.URL, Options{})
	if !errors.Is(err, ErrAntiBot) {
		t.Errorf("expected ErrAntiBot for 403, got %v", err)
	}
}

func TestStaticFetcher_ChallengePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Just a moment...</title></head><body></body></html>`))
	}))
	defer srv.Close()

	_, err := NewStatic(StaticConfig{}).Open(context.Background(), srv.URL, Options{})
	if !errors.Is(err, ErrAntiBot) {
		t.Errorf("expected ErrAntiBot for challenge page, got %v", err)
	}
}
