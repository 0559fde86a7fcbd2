// Package assembler drives the extraction strategies for one page and folds
// their partial results into a single finalized record.
package assembler

import (
	"context"
	"errors"
	"time"

	"github.com/jmylchreest/pppscrape/internal/logger"
	"github.com/jmylchreest/pppscrape/pkg/artifact"
	"github.com/jmylchreest/pppscrape/pkg/dom"
	"github.com/jmylchreest/pppscrape/pkg/record"
	"github.com/jmylchreest/pppscrape/pkg/strategy"
)

// ErrNoContent is returned when Assemble is called without a snapshot.
var ErrNoContent = errors.New("no page content to assemble from")

// Input is one page to assemble a record from.
type Input struct {
	BusinessName string
	URL          string

	// Snapshot is the HTML captured for the page. Required.
	Snapshot *dom.Document

	// Live is the rendered page, when the session still has it open.
	Live dom.Surface
}

// RefineRequest is passed to a Refiner when the strategies found no amount.
type RefineRequest struct {
	URL          string
	BusinessName string
	Snapshot     *dom.Document
	Current      *record.Partial
}

// Refiner fills fields the strategies could not, typically with an LLM.
type Refiner interface {
	Name() string
	Refine(ctx context.Context, req RefineRequest) (*record.Partial, error)
}

// Assembler turns a page into a record.
type Assembler struct {
	sink       artifact.Sink
	refiner    Refiner
	now        func() time.Time
	strategies func(url string, deps strategy.Deps) []strategy.Strategy
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithSink sets where fallback debug artifacts are written.
func WithSink(s artifact.Sink) Option {
	return func(a *Assembler) { a.sink = s }
}

// WithRefiner enables refinement of records that have no draw amount.
func WithRefiner(r Refiner) Option {
	return func(a *Assembler) { a.refiner = r }
}

// WithClock overrides the time source for scrapedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// WithStrategies overrides how strategies are chosen for a URL.
func WithStrategies(fn func(url string, deps strategy.Deps) []strategy.Strategy) Option {
	return func(a *Assembler) { a.strategies = fn }
}

// New creates an Assembler.
func New(opts ...Option) *Assembler {
	a := &Assembler{
		sink:       artifact.Nop{},
		now:        time.Now,
		strategies: strategy.ForURL,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble runs the strategies chosen for in.URL in order and returns the
// finalized record. Fields set by an earlier strategy are never overwritten
// by a later one.
func (a *Assembler) Assemble(ctx context.Context, in Input) (*record.Record, error) {
	if in.Snapshot == nil {
		return nil, ErrNoContent
	}

	log := logger.With("url", in.URL, "business", in.BusinessName)
	acc := record.NewPartial(in.BusinessName)
	snapshot := strategy.Input{
		URL:          in.URL,
		BusinessName: in.BusinessName,
		Snapshot:     in.Snapshot,
	}

	for _, s := range a.strategies(in.URL, strategy.Deps{Sink: a.sink}) {
		if g, ok := s.(strategy.Gate); ok && !g.ShouldRun(acc) {
			log.Debug("strategy skipped, record complete", "strategy", s.Name())
			continue
		}
		p, err := s.Extract(ctx, snapshot)
		if err != nil {
			log.Warn("strategy failed", "strategy", s.Name(), "error", err)
			p.Notef(record.NoteStrategyError, "Error parsing %s data: %v", s.Source(), err)
		}
		acc.Merge(p)
	}

	if in.Live != nil && !record.Complete(acc) {
		a.requeryLive(ctx, in, acc)
	}

	if a.refiner != nil && !acc.HasDrawAmount() {
		a.refine(ctx, in, acc)
	}

	rec, err := acc.Finalize(in.URL, a.now())
	if err != nil {
		return nil, err
	}

	log.Info("record assembled",
		"amount", rec.FirstDraw.Amount != nil,
		"lender", rec.Lender != nil,
		"second_draw", rec.SecondDraw.Amount != nil,
		"notes", len(rec.Notes()))
	return rec, nil
}

// requeryLive runs the structural selectors against the rendered page, which
// can hold content the HTML snapshot missed.
func (a *Assembler) requeryLive(ctx context.Context, in Input, acc *record.Partial) {
	live := strategy.NewStructural()
	p, err := live.Extract(ctx, strategy.Input{
		URL:          in.URL,
		BusinessName: in.BusinessName,
		Surface:      in.Live,
	})
	if err != nil {
		logger.Warn("live dom extraction failed", "url", in.URL, "error", err)
		acc.Notef(record.NoteStrategyError, "DOM extraction attempt failed: %v.", err)
	}

	// Notes the snapshot pass already produced are not repeated.
	seen := make(map[string]bool, len(acc.Notes))
	for _, n := range acc.Notes {
		seen[n.Message] = true
	}
	fresh := p.Notes[:0]
	for _, n := range p.Notes {
		if !seen[n.Message] {
			fresh = append(fresh, n)
		}
	}
	p.Notes = fresh

	hadAmount, hadLender := acc.FirstDraw.Amount != nil, acc.Lender != nil
	acc.Merge(p)
	logger.Debug("live dom re-query complete",
		"url", in.URL,
		"recovered_amount", !hadAmount && acc.FirstDraw.Amount != nil,
		"recovered_lender", !hadLender && acc.Lender != nil)
}

func (a *Assembler) refine(ctx context.Context, in Input, acc *record.Partial) {
	p, err := a.refiner.Refine(ctx, RefineRequest{
		URL:          in.URL,
		BusinessName: in.BusinessName,
		Snapshot:     in.Snapshot,
		Current:      acc,
	})
	if err != nil {
		logger.Warn("refinement failed", "refiner", a.refiner.Name(), "error", err)
		acc.Notef(record.NoteRefine, "Refinement with %s failed: %v.", a.refiner.Name(), err)
		return
	}
	acc.Merge(p)
}
