package pppscrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/jmylchreest/pppscrape/internal/logger"
	"github.com/jmylchreest/pppscrape/pkg/artifact"
	"github.com/jmylchreest/pppscrape/pkg/assembler"
	"github.com/jmylchreest/pppscrape/pkg/dom"
	"github.com/jmylchreest/pppscrape/pkg/fetcher"
	"github.com/jmylchreest/pppscrape/pkg/record"
)

// ErrInvalidRequest is returned for a malformed URL or business name.
var ErrInvalidRequest = errors.New("invalid scrape request")

// Request identifies the loan page to scrape.
type Request struct {
	URL          string `validate:"required,url"`
	BusinessName string `validate:"required,max=300"`
}

// Result is the outcome of one scrape: exactly one of Record and Failure is
// set.
type Result struct {
	Record  *record.Record
	Failure *record.ErrorRecord
}

// Failed reports whether no page could be obtained.
func (r *Result) Failed() bool { return r.Failure != nil }

// Document returns the output document for the result.
func (r *Result) Document() any {
	if r.Failure != nil {
		return r.Failure.Document()
	}
	return r.Record.Document()
}

// Scraper scrapes PPP loan pages.
type Scraper struct {
	config    Config
	fetcher   fetcher.Fetcher
	sink      artifact.Sink
	assembler *assembler.Assembler
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// New creates a Scraper.
func New(opts ...Option) (*Scraper, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	f := cfg.Fetcher
	if f == nil {
		f = fetcher.NewStatic(fetcher.StaticConfig{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.Timeout,
		})
	}

	sink := cfg.Sink
	switch {
	case sink != nil:
	case cfg.DebugDir != "":
		sink = artifact.NewFileSink(cfg.DebugDir, artifact.WithFs(cfg.Fs), artifact.WithClock(cfg.Clock))
	default:
		sink = artifact.Nop{}
	}

	asmOpts := []assembler.Option{assembler.WithSink(sink), assembler.WithClock(cfg.Clock)}
	if cfg.Refiner != nil {
		asmOpts = append(asmOpts, assembler.WithRefiner(cfg.Refiner))
	}

	return &Scraper{
		config:    cfg,
		fetcher:   f,
		sink:      sink,
		assembler: assembler.New(asmOpts...),
	}, nil
}

// Scrape produces the record for one page. Failing to obtain the page is
// not an error: it yields a Result whose Failure is set. The returned error
// is reserved for invalid requests.
func (s *Scraper) Scrape(ctx context.Context, req Request) (*Result, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	log := logger.With("url", req.URL, "business", req.BusinessName, "fetcher", s.fetcher.Type())

	sess, err := s.fetcher.Open(ctx, req.URL, fetcher.Options{
		UserAgent:       s.config.UserAgent,
		Timeout:         s.config.Timeout,
		WaitForSelector: s.config.WaitForSelector,
		WaitDuration:    s.config.WaitDuration,
	})
	if err != nil {
		log.Warn("scrape failed", "error", err)
		return s.failure(req, err), nil
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Debug("session close failed", "error", err)
		}
	}()

	content := sess.Content()
	snapshot, err := dom.ParseString(content.HTML)
	if err != nil {
		log.Warn("page could not be parsed", "error", err)
		return s.failure(req, fmt.Errorf("parse page: %w", err)), nil
	}

	s.screenshot(ctx, sess, req, log)

	rec, err := s.assembler.Assemble(ctx, assembler.Input{
		BusinessName: req.BusinessName,
		URL:          req.URL,
		Snapshot:     snapshot,
		Live:         sess.Live(),
	})
	if err != nil {
		return s.failure(req, err), nil
	}
	return &Result{Record: rec}, nil
}

// Close releases the fetcher.
func (s *Scraper) Close() error {
	return s.fetcher.Close()
}

func (s *Scraper) failure(req Request, err error) *Result {
	return &Result{Failure: record.NewErrorRecord(err, req.BusinessName, req.URL, s.config.Clock())}
}

func (s *Scraper) screenshot(ctx context.Context, sess fetcher.Session, req Request, log *slog.Logger) {
	if _, discard := s.sink.(artifact.Nop); discard {
		return
	}
	shooter, ok := sess.(fetcher.Screenshotter)
	if !ok {
		return
	}
	shot, err := shooter.Screenshot(ctx)
	if err != nil {
		log.Warn("screenshot failed", "error", err)
		return
	}
	path, err := s.sink.Save(ctx, artifact.Screenshot, req.BusinessName, shot)
	if err != nil {
		log.Warn("screenshot could not be saved", "error", err)
		return
	}
	log.Debug("screenshot saved", "path", path)
}
