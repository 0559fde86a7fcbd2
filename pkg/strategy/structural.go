package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmylchreest/pppscrape/internal/logger"
	"github.com/jmylchreest/pppscrape/pkg/dom"
	"github.com/jmylchreest/pppscrape/pkg/normalize"
	"github.com/jmylchreest/pppscrape/pkg/record"
)

// Selectors for the ProPublica loan page layout.
const (
	AmountSelector             = "div.f3-l.f4-m.f5.lh-title.tiempos-text.b"
	LabelSelector              = "div.f7"
	ValueSelector              = "div.f4-l"
	AllocationRowSelector      = ".flex.bt.b--ppp-light-grey.pv1.f7"
	AllocationCategorySelector = ".tiempos-text.w-50"
	AllocationAmountSelector   = ".tiempos-text.pl0-5"
)

const (
	labelLender       = "Lender"
	labelDateApproved = "Date Approved"
)

// metadataLabels are copied into notes verbatim, in this order.
var metadataLabels = []string{"Jobs Reported", "Industry", "Business Type", "Location"}

// Structural reads the class/label layout used by ProPublica loan pages.
// It only ever fills the first draw.
type Structural struct{}

// NewStructural returns the structural strategy.
func NewStructural() *Structural { return &Structural{} }

// Name implements Strategy.
func (s *Structural) Name() string { return string(KindStructural) }

// Source implements Strategy.
func (s *Structural) Source() string { return "ProPublica" }

// Extract implements Strategy.
func (s *Structural) Extract(ctx context.Context, in Input) (p *record.Partial, err error) {
	p = record.NewPartial(in.BusinessName)
	defer recoverPanic(&err)

	surface := in.surface()
	if surface == nil {
		return p, ErrNoDocument
	}

	if err := s.amounts(ctx, surface, p); err != nil {
		return p, err
	}

	for _, label := range append([]string{labelLender, labelDateApproved}, metadataLabels...) {
		value, ok, err := surface.LabeledValue(ctx, LabelSelector, label, ValueSelector)
		if err != nil {
			return p, fmt.Errorf("read %q: %w", label, err)
		}
		if !ok || value == "" {
			continue
		}
		switch label {
		case labelLender:
			p.SetLender(value)
		case labelDateApproved:
			if date := normalize.Date(value); date != "" {
				p.FirstDraw.Date = &date
			}
		default:
			p.Notef(record.NoteMetadata, "%s: %s.", label, value)
		}
	}

	if err := s.allocations(ctx, surface, p); err != nil {
		return p, err
	}

	logger.Debug("structural extraction complete",
		"url", in.URL,
		"amount", p.FirstDraw.Amount != nil,
		"lender", p.Lender != nil)
	return p, nil
}

func (s *Structural) amounts(ctx context.Context, surface dom.Surface, p *record.Partial) error {
	texts, err := surface.Texts(ctx, AmountSelector)
	if err != nil {
		return fmt.Errorf("read amounts: %w", err)
	}
	if len(texts) > 0 {
		if a, ok := normalize.ParseCurrency(texts[0]); ok {
			p.FirstDraw.Amount = a
		} else {
			p.Note(record.NoteParseError, "Could not parse loan amount.")
		}
	}
	if len(texts) > 1 {
		if a, ok := normalize.ParseCurrency(texts[1]); ok {
			p.FirstDraw.Forgiveness = a
		} else {
			p.Note(record.NoteParseError, "Could not parse forgiveness amount.")
		}
	}
	return nil
}

// allocations summarizes the positive rows of the loan allocation table.
func (s *Structural) allocations(ctx context.Context, surface dom.Surface, p *record.Partial) error {
	rows, err := surface.Rows(ctx, AllocationRowSelector, AllocationCategorySelector, AllocationAmountSelector)
	if err != nil {
		return fmt.Errorf("read allocations: %w", err)
	}

	var parts []string
	for _, row := range rows {
		a, ok := normalize.ParseCurrency(row.Value)
		if !ok || !a.IsPositive() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", row.Key, normalize.FormatCurrency(*a)))
	}
	if len(parts) > 0 {
		p.Notef(record.NoteAllocation, "Money allocations: %s.", strings.Join(parts, ", "))
	}
	return nil
}
