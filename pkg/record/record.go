// Package record defines the PPP loan record produced by a scrape, the
// partial records that extraction strategies return, and the error record
// emitted when no page content could be obtained.
package record

import (
	"errors"
	"time"
)

// ErrFinalized is returned when a partial record is finalized twice.
var ErrFinalized = errors.New("record already finalized")

// Draw is one PPP loan draw. Nil fields were not found on the page.
type Draw struct {
	Amount      *Amount
	Date        *string
	Forgiveness *Amount
}

// IsEmpty reports whether no field of the draw is set.
func (d Draw) IsEmpty() bool {
	return d.Amount == nil && d.Date == nil && d.Forgiveness == nil
}

// merge fills every unset field of d from other.
func (d *Draw) merge(other Draw) {
	if d.Amount == nil {
		d.Amount = other.Amount
	}
	if d.Date == nil {
		d.Date = other.Date
	}
	if d.Forgiveness == nil {
		d.Forgiveness = other.Forgiveness
	}
}

// Partial is the in-progress record a strategy produces. It is owned by the
// strategy that created it until the assembler merges it.
type Partial struct {
	BusinessName string
	// BusinessNameSet is true once a strategy has taken the name from the
	// page, as opposed to the seed value supplied by the caller.
	BusinessNameSet bool
	FirstDraw       Draw
	SecondDraw      Draw
	Lender          *string
	Notes           Notes

	finalized bool
}

// NewPartial returns an empty partial seeded with the caller's business name.
func NewPartial(businessName string) *Partial {
	return &Partial{BusinessName: businessName}
}

// SetBusinessName records a business name found on the page.
func (p *Partial) SetBusinessName(name string) {
	p.BusinessName = name
	p.BusinessNameSet = true
}

// SetLender sets the lender.
func (p *Partial) SetLender(lender string) {
	p.Lender = &lender
}

// Note appends a note to the partial.
func (p *Partial) Note(kind NoteKind, message string) {
	p.Notes.Add(kind, message)
}

// Notef appends a formatted note to the partial.
func (p *Partial) Notef(kind NoteKind, format string, args ...any) {
	p.Notes.Addf(kind, format, args...)
}

// Merge folds other into p. Fields already set on p win; notes from other
// are appended after p's.
func (p *Partial) Merge(other *Partial) {
	if other == nil {
		return
	}
	if !p.BusinessNameSet && other.BusinessNameSet {
		p.BusinessName = other.BusinessName
		p.BusinessNameSet = true
	}
	p.FirstDraw.merge(other.FirstDraw)
	p.SecondDraw.merge(other.SecondDraw)
	if p.Lender == nil {
		p.Lender = other.Lender
	}
	p.Notes = append(p.Notes, other.Notes...)
}

// HasDrawAmount reports whether either draw has an amount.
func (p *Partial) HasDrawAmount() bool {
	return p.FirstDraw.Amount != nil || p.SecondDraw.Amount != nil
}

// Complete reports whether the mandatory fields are present: the first draw
// amount and the lender. The live re-query runs while this is false.
func Complete(p *Partial) bool {
	return p != nil && p.FirstDraw.Amount != nil && p.Lender != nil
}

// Finalize stamps the partial with its source and time and returns the
// immutable record. A partial can be finalized once.
func (p *Partial) Finalize(sourceLink string, scrapedAt time.Time) (*Record, error) {
	if p.finalized {
		return nil, ErrFinalized
	}
	p.finalized = true
	return &Record{
		BusinessName: p.BusinessName,
		FirstDraw:    p.FirstDraw,
		SecondDraw:   p.SecondDraw,
		Lender:       p.Lender,
		notes:        p.Notes.clone(),
		SourceLink:   sourceLink,
		ScrapedAt:    scrapedAt.UTC(),
	}, nil
}

// Record is a finalized PPP loan record.
type Record struct {
	BusinessName string
	FirstDraw    Draw
	SecondDraw   Draw
	Lender       *string
	SourceLink   string
	ScrapedAt    time.Time

	notes Notes
}

// Notes returns a copy of the record's notes.
func (r *Record) Notes() Notes {
	return r.notes.clone()
}

// ErrorRecord is emitted instead of a Record when no HTML or DOM could be
// obtained for the URL.
type ErrorRecord struct {
	Err          error
	BusinessName string
	SourceLink   string
	ScrapedAt    time.Time
}

// NewErrorRecord builds an error record for a failed scrape.
func NewErrorRecord(err error, businessName, sourceLink string, at time.Time) *ErrorRecord {
	return &ErrorRecord{
		Err:          err,
		BusinessName: businessName,
		SourceLink:   sourceLink,
		ScrapedAt:    at.UTC(),
	}
}

// Error implements error.
func (e *ErrorRecord) Error() string {
	if e.Err == nil {
		return "scrape failed"
	}
	return e.Err.Error()
}

// Unwrap exposes the underlying failure to errors.Is.
func (e *ErrorRecord) Unwrap() error { return e.Err }
