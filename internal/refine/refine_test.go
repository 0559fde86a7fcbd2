package refine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jmylchreest/pppscrape/pkg/assembler"
	"github.com/jmylchreest/pppscrape/pkg/dom"
	"github.com/jmylchreest/pppscrape/pkg/record"
)

type fakeProvider struct {
	reply string
	err   error
	got   []Request
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, req Request) (string, error) {
	f.got = append(f.got, req)
	return f.reply, f.err
}

const page = `<html><head><title>Loan</title><style>.x{}</style></head>
<body><script>var secret = 1;</script><h1>Acme Widgets LLC</h1>
<p>Received a PPP loan of $150,000 from First Bank on 04/28/2020.</p></body></html>`

func request(t *testing.T, html string) assembler.RefineRequest {
	t.Helper()
	doc, err := dom.ParseString(html)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return assembler.RefineRequest{
		URL:          "https://example.com/acme",
		BusinessName: "Acme Widgets",
		Snapshot:     doc,
		Current:      record.NewPartial("Acme Widgets"),
	}
}

// --- Refiner Tests ---

func TestRefine_FillsFields(t *testing.T) {
	p := &fakeProvider{reply: "```json\n" + `{
		"businessName": "Acme Widgets LLC",
		"firstDraw": {"amount": 150000, "date": "04/28/2020", "forgiveness": null},
		"secondDraw": {"amount": null, "date": null, "forgiveness": null},
		"lender": "First Bank",
		"notes": "Forgiveness not stated."
	}` + "\n```"}

	got, err := New(p).Refine(context.Background(), request(t, page))
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}

	if got.FirstDraw.Amount == nil || got.FirstDraw.Amount.String() != "150000" {
		t.Errorf("unexpected amount: %v", got.FirstDraw.Amount)
	}
	if got.FirstDraw.Date == nil || *got.FirstDraw.Date != "04/28/2020" {
		t.Errorf("unexpected date: %v", got.FirstDraw.Date)
	}
	if got.FirstDraw.Forgiveness != nil || !got.SecondDraw.IsEmpty() {
		t.Errorf("null values must stay unset: %+v %+v", got.FirstDraw, got.SecondDraw)
	}
	if got.Lender == nil || *got.Lender != "First Bank" {
		t.Errorf("unexpected lender: %v", got.Lender)
	}
	if !got.BusinessNameSet || got.BusinessName != "Acme Widgets LLC" {
		t.Errorf("unexpected business name: %q", got.BusinessName)
	}

	notes := got.Notes.Filter(record.NoteRefine)
	if len(notes) != 2 || notes[1].Message != "Forgiveness not stated." {
		t.Errorf("unexpected notes: %+v", notes)
	}
}

func TestRefine_Prompt(t *testing.T) {
	p := &fakeProvider{reply: `{"lender": null}`}
	if _, err := New(p).Refine(context.Background(), request(t, page)); err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if len(p.got) != 1 {
		t.Fatalf("expected one call, got %d", len(p.got))
	}
	req := p.got[0]
	if !strings.Contains(req.System, `"Acme Widgets"`) {
		t.Errorf("system prompt must name the business: %s", req.System)
	}
	if !strings.Contains(req.User, "https://example.com/acme") || !strings.Contains(req.User, "$150,000") {
		t.Errorf("user prompt missing page content: %s", req.User)
	}
	if strings.Contains(req.User, "secret") || strings.Contains(req.User, ".x{}") {
		t.Errorf("script and style text must be removed: %s", req.User)
	}
	if req.MaxTokens != DefaultMaxTokens || req.Temperature != DefaultTemperature {
		t.Errorf("unexpected limits: %+v", req)
	}
}

func TestRefine_TruncatesText(t *testing.T) {
	p := &fakeProvider{reply: `{}`}
	html := "<html><body><p>" + strings.Repeat("word ", 100) + "</p></body></html>"
	if _, err := New(p, WithMaxChars(20)).Refine(context.Background(), request(t, html)); err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if !strings.HasSuffix(p.got[0].User, "\n\n"+strings.Repeat("word ", 100)[:20]) {
		t.Errorf("text not truncated: %q", p.got[0].User)
	}
}

func TestRefine_Errors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  string
	}{
		{"provider error", "", errors.New("rate limited"), "rate limited"},
		{"not json", "I could not find anything.", nil, "parse model reply"},
		{"negative amount", `{"firstDraw": {"amount": -5}}`, nil, "parse model reply"},
		{"lender too long", `{"lender": "` + strings.Repeat("x", 201) + `"}`, nil, "invalid model reply"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{reply: tt.reply, err: tt.err}
			_, err := New(p).Refine(context.Background(), request(t, page))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRefine_NoText(t *testing.T) {
	p := &fakeProvider{}
	_, err := New(p).Refine(context.Background(), request(t, "<html><body><script>x</script></body></html>"))
	if !errors.Is(err, ErrNoText) {
		t.Errorf("expected ErrNoText, got %v", err)
	}
	if len(p.got) != 0 {
		t.Error("provider must not be called without text")
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct{ in, want string }{
		{"{}", "{}"},
		{"```json\n{}\n```", "{}"},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- Provider Tests ---

func TestNewProvider(t *testing.T) {
	if _, err := NewProvider("nope", ProviderConfig{APIKey: "k"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := NewProvider("openai", ProviderConfig{}); !errors.Is(err, ErrNoProvider) {
		t.Errorf("expected ErrNoProvider without key, got %v", err)
	}
	p, err := NewProvider("anthropic", ProviderConfig{APIKey: "k"})
	if err != nil || p.Name() != "anthropic" {
		t.Errorf("unexpected provider %v, err %v", p, err)
	}
	p, err = NewProvider("openrouter", ProviderConfig{APIKey: "k"})
	if err != nil || p.Name() != "openrouter" {
		t.Errorf("unexpected provider %v, err %v", p, err)
	}
}

func TestDetectProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	if _, _, err := DetectProvider(); !errors.Is(err, ErrNoProvider) {
		t.Errorf("expected ErrNoProvider, got %v", err)
	}

	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("ANTHROPIC_API_KEY", "an-key")
	name, key, err := DetectProvider()
	if err != nil || name != "anthropic" || key != "an-key" {
		t.Errorf("got %s %s %v, want anthropic first", name, key, err)
	}
}

func TestAvailableProviders(t *testing.T) {
	got := strings.Join(AvailableProviders(), ",")
	if got != "anthropic,openai,openrouter" {
		t.Errorf("unexpected providers: %s", got)
	}
}
