package refine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-playground/validator/v10"

	"github.com/jmylchreest/pppscrape/internal/logger"
	"github.com/jmylchreest/pppscrape/pkg/assembler"
	"github.com/jmylchreest/pppscrape/pkg/dom"
	"github.com/jmylchreest/pppscrape/pkg/record"
)

const systemPrompt = `You extract structured PPP loan data from the text of a web page.

Extract:
1. Business name
2. First draw loan amount, approval date and forgiveness amount
3. Second draw loan amount, approval date and forgiveness amount (if any)
4. Lending institution

The expected business name is: %q

Return only a JSON object with this structure:
{
  "businessName": "string",
  "firstDraw": {"amount": number, "date": "string", "forgiveness": number},
  "secondDraw": {"amount": number, "date": "string", "forgiveness": number},
  "lender": "string",
  "notes": "string"
}

Use null for any value not found on the page or that you are unsure about.
Amounts are plain numbers in US dollars without symbols or separators.
Put caveats in "notes". Do not include any other text.`

const userPrompt = `Extract the PPP loan data from this page. The page is from %s.

%s`

// ErrNoText is returned when the snapshot has no visible text to send.
var ErrNoText = errors.New("no page text to refine")

// Defaults for Refiner.
const (
	DefaultMaxChars    = 12000
	DefaultMaxTokens   = 800
	DefaultTemperature = 0.1
)

type drawAnswer struct {
	Amount      *record.Amount `json:"amount"`
	Date        *string        `json:"date" validate:"omitempty,max=64"`
	Forgiveness *record.Amount `json:"forgiveness"`
}

type answer struct {
	BusinessName string     `json:"businessName" validate:"max=300"`
	FirstDraw    drawAnswer `json:"firstDraw"`
	SecondDraw   drawAnswer `json:"secondDraw"`
	Lender       *string    `json:"lender" validate:"omitempty,min=1,max=200"`
	Notes        string     `json:"notes" validate:"max=2000"`
}

// Refiner implements assembler.Refiner on top of an LLM provider.
type Refiner struct {
	provider  Provider
	validate  *validator.Validate
	maxChars  int
	maxTokens int
}

// Option configures a Refiner.
type Option func(*Refiner)

// WithMaxChars bounds how much page text is sent to the model.
func WithMaxChars(n int) Option {
	return func(r *Refiner) {
		if n > 0 {
			r.maxChars = n
		}
	}
}

// WithMaxTokens bounds the model's reply.
func WithMaxTokens(n int) Option {
	return func(r *Refiner) {
		if n > 0 {
			r.maxTokens = n
		}
	}
}

// New creates a Refiner.
func New(p Provider, opts ...Option) *Refiner {
	r := &Refiner{
		provider:  p,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		maxChars:  DefaultMaxChars,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements assembler.Refiner.
func (r *Refiner) Name() string { return r.provider.Name() }

// Refine implements assembler.Refiner. The returned partial only carries
// what the model reported; the assembler merges it under the usual rules so
// fields the strategies found are kept.
func (r *Refiner) Refine(ctx context.Context, req assembler.RefineRequest) (*record.Partial, error) {
	text := pageText(req.Snapshot, r.maxChars)
	if text == "" {
		return nil, ErrNoText
	}

	reply, err := r.provider.Complete(ctx, Request{
		System:      fmt.Sprintf(systemPrompt, req.BusinessName),
		User:        fmt.Sprintf(userPrompt, req.URL, text),
		MaxTokens:   r.maxTokens,
		Temperature: DefaultTemperature,
	})
	if err != nil {
		return nil, err
	}

	var a answer
	if err := json.Unmarshal([]byte(stripFences(reply)), &a); err != nil {
		logger.Debug("unparseable refine reply", "provider", r.provider.Name(), "reply", reply)
		return nil, fmt.Errorf("parse model reply: %w", err)
	}
	if err := r.validate.Struct(a); err != nil {
		return nil, fmt.Errorf("invalid model reply: %w", err)
	}

	p := record.NewPartial(req.BusinessName)
	if name := strings.TrimSpace(a.BusinessName); name != "" {
		p.SetBusinessName(name)
	}
	p.FirstDraw = a.FirstDraw.draw()
	p.SecondDraw = a.SecondDraw.draw()
	if a.Lender != nil {
		if lender := strings.TrimSpace(*a.Lender); lender != "" {
			p.SetLender(lender)
		}
	}
	p.Notef(record.NoteRefine, "Missing fields completed by %s.", r.provider.Name())
	p.Note(record.NoteRefine, a.Notes)

	logger.Debug("refine complete",
		"provider", r.provider.Name(),
		"amount", p.FirstDraw.Amount != nil,
		"lender", p.Lender != nil)
	return p, nil
}

func (d drawAnswer) draw() record.Draw {
	out := record.Draw{Amount: d.Amount, Forgiveness: d.Forgiveness}
	if d.Date != nil {
		if s := strings.TrimSpace(*d.Date); s != "" {
			out.Date = &s
		}
	}
	return out
}

// pageText renders the snapshot's body as Markdown, which keeps table rows
// and headings apart, truncated to maxChars.
func pageText(doc *dom.Document, maxChars int) string {
	if doc == nil {
		return ""
	}
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, svg, iframe").Remove()

	var text string
	if html, err := goquery.OuterHtml(body); err == nil {
		text, err = md.ConvertString(html)
		if err != nil {
			logger.Debug("markdown conversion failed, using plain text", "error", err)
			text = ""
		}
	}
	if strings.TrimSpace(text) == "" {
		text = strings.Join(strings.Fields(body.Text()), " ")
	}
	text = strings.TrimSpace(text)
	if len(text) > maxChars {
		text = strings.ToValidUTF8(text[:maxChars], "")
	}
	return text
}

// stripFences removes a Markdown code fence around a JSON reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
