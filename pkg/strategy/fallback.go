package strategy

import (
	"context"
	"regexp"
	"slices"

	"github.com/jmylchreest/pppscrape/internal/logger"
	"github.com/jmylchreest/pppscrape/pkg/artifact"
	"github.com/jmylchreest/pppscrape/pkg/normalize"
	"github.com/jmylchreest/pppscrape/pkg/record"
)

var dollarToken = regexp.MustCompile(`\$[\d,]+`)

// Fallback scans every visible dollar figure on an unrecognized page and
// guesses the largest is the loan amount and the second largest the
// forgiveness. It only runs when earlier strategies found neither the loan
// amount nor the lender.
type Fallback struct {
	sink artifact.Sink
}

// NewFallback returns the fallback strategy. A nil sink discards artifacts.
func NewFallback(sink artifact.Sink) *Fallback {
	if sink == nil {
		sink = artifact.Nop{}
	}
	return &Fallback{sink: sink}
}

// Name implements Strategy.
func (f *Fallback) Name() string { return string(KindFallback) }

// Source implements Strategy.
func (f *Fallback) Source() string { return "unknown source" }

// ShouldRun implements Gate.
func (f *Fallback) ShouldRun(acc *record.Partial) bool {
	return acc == nil || (acc.FirstDraw.Amount == nil && acc.Lender == nil)
}

// Extract implements Strategy.
func (f *Fallback) Extract(ctx context.Context, in Input) (p *record.Partial, err error) {
	p = record.NewPartial(in.BusinessName)
	p.Notef(record.NoteInfo, "Data extracted from unknown source: %s", in.URL)
	defer recoverPanic(&err)

	if in.Snapshot == nil {
		return p, ErrNoDocument
	}

	var amounts []*record.Amount
	for _, text := range in.Snapshot.TextNodes("$") {
		for _, token := range dollarToken.FindAllString(text, -1) {
			if a, ok := normalize.ParseCurrency(token); ok {
				amounts = append(amounts, a)
			}
		}
	}
	slices.SortStableFunc(amounts, func(a, b *record.Amount) int {
		return b.Cmp(*a)
	})

	if len(amounts) > 0 {
		p.FirstDraw.Amount = amounts[0]
		p.Notef(record.NoteHeuristic, "Largest of %d dollar figures on the page proposed as the loan amount.", len(amounts))
	}
	if len(amounts) > 1 {
		p.FirstDraw.Forgiveness = amounts[1]
		p.Note(record.NoteHeuristic, "Second largest dollar figure proposed as the forgiveness amount.")
	}

	path, saveErr := f.sink.Save(ctx, artifact.HTML, in.BusinessName, []byte(in.Snapshot.HTML()))
	switch {
	case saveErr != nil:
		logger.Warn("failed to save debug html", "url", in.URL, "error", saveErr)
		p.Notef(record.NoteArtifact, "HTML could not be saved for debug: %v.", saveErr)
	case path != "":
		p.Notef(record.NoteArtifact, "HTML saved for debug at %s.", path)
	}

	logger.Debug("fallback extraction complete", "url", in.URL, "dollar_figures", len(amounts))
	return p, nil
}
