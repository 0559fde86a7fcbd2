// Package strategy contains the page-layout specific extractors that turn a
// loan page into a partial record, and the classifier that chooses which of
// them to run for a URL.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmylchreest/pppscrape/pkg/artifact"
	"github.com/jmylchreest/pppscrape/pkg/dom"
	"github.com/jmylchreest/pppscrape/pkg/record"
)

// ErrNoDocument is returned when a strategy is run without page content.
var ErrNoDocument = errors.New("no document to extract from")

// Kind names an extraction strategy.
type Kind string

const (
	KindStructural Kind = "structural"
	KindTable      Kind = "table"
	KindFallback   Kind = "fallback"
)

// Input is what a strategy reads.
type Input struct {
	URL          string
	BusinessName string

	// Snapshot is the parsed HTML captured for the page.
	Snapshot *dom.Document

	// Surface overrides the surface selector-based strategies query. It is
	// set to a live browser surface when re-querying the rendered page.
	Surface dom.Surface
}

func (in Input) surface() dom.Surface {
	if in.Surface != nil {
		return in.Surface
	}
	if in.Snapshot != nil {
		return in.Snapshot
	}
	return nil
}

// Strategy extracts a partial record from a page.
//
// Extract always returns a non-nil partial holding whatever was found. A
// non-nil error means the strategy stopped early; the partial is still valid.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// Source is the human-readable origin used in failure notes,
	// e.g. "ProPublica".
	Source() string

	Extract(ctx context.Context, in Input) (*record.Partial, error)
}

// Gate is implemented by strategies that only run while the record
// accumulated so far is missing something.
type Gate interface {
	ShouldRun(acc *record.Partial) bool
}

// Classify maps a URL to the ordered list of strategies to run.
// The first matching rule wins.
func Classify(url string) []Kind {
	switch {
	case strings.Contains(url, "propublica.org"):
		return []Kind{KindStructural}
	case strings.Contains(url, "sba.gov") || strings.Contains(url, "data.sba.gov"):
		return []Kind{KindTable}
	default:
		return []Kind{KindStructural, KindFallback}
	}
}

// Deps are the collaborators strategies may need.
type Deps struct {
	Sink artifact.Sink
}

// New returns the strategy for a kind.
func New(kind Kind, deps Deps) (Strategy, error) {
	switch kind {
	case KindStructural:
		return NewStructural(), nil
	case KindTable:
		return NewTable(), nil
	case KindFallback:
		return NewFallback(deps.Sink), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", kind)
	}
}

// ForURL classifies url and resolves the resulting kinds into strategies.
func ForURL(url string, deps Deps) []Strategy {
	kinds := Classify(url)
	out := make([]Strategy, 0, len(kinds))
	for _, k := range kinds {
		s, err := New(k, deps)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

// recoverPanic converts a panic inside a strategy into an error so the
// partial built so far survives.
func recoverPanic(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("panic: %v", r)
	}
}
