package strategy

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/pppscrape/internal/logger"
	"github.com/jmylchreest/pppscrape/pkg/normalize"
	"github.com/jmylchreest/pppscrape/pkg/record"
)

// Table reads SBA-style pages that list loan fields as two-cell table rows.
// It never sets forgiveness; up to two amount rows fill the first and
// second draw in order.
type Table struct{}

// NewTable returns the table strategy.
func NewTable() *Table { return &Table{} }

// Name implements Strategy.
func (t *Table) Name() string { return string(KindTable) }

// Source implements Strategy.
func (t *Table) Source() string { return "SBA" }

// Extract implements Strategy.
func (t *Table) Extract(_ context.Context, in Input) (p *record.Partial, err error) {
	p = record.NewPartial(in.BusinessName)
	p.Note(record.NoteInfo, "Data extracted from SBA website")
	defer recoverPanic(&err)

	if in.Snapshot == nil {
		return p, ErrNoDocument
	}

	amounts := 0
	in.Snapshot.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(cells.Eq(0).Text()))
		value := strings.TrimSpace(cells.Eq(1).Text())

		switch {
		case strings.Contains(label, "borrower") || strings.Contains(label, "business name"):
			p.SetBusinessName(value)
		case strings.Contains(label, "lender"):
			p.SetLender(value)
		case strings.Contains(label, "loan amount") || strings.Contains(label, "approved amount"):
			a, ok := normalize.ParseCurrency(value)
			if !ok {
				return
			}
			amounts++
			switch amounts {
			case 1:
				p.FirstDraw.Amount = a
			case 2:
				p.SecondDraw.Amount = a
			}
		}
	})

	if amounts > 2 {
		p.Notef(record.NoteHeuristic, "Found %d amount rows; only the first two were used.", amounts)
	}

	logger.Debug("table extraction complete", "url", in.URL, "amount_rows", amounts)
	return p, nil
}
