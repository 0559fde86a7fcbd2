package record

import "time"

// TimeFormat is the layout used for scrapedAt in every output format.
const TimeFormat = time.RFC3339

// DrawDocument is the serialized form of a Draw. Every key is always present.
type DrawDocument struct {
	Amount      *Amount `json:"amount" yaml:"amount" bson:"amount"`
	Date        *string `json:"date" yaml:"date" bson:"date"`
	Forgiveness *Amount `json:"forgiveness" yaml:"forgiveness" bson:"forgiveness"`
}

// Document is the serialized form of a Record.
type Document struct {
	BusinessName string       `json:"businessName" yaml:"businessName"`
	FirstDraw    DrawDocument `json:"firstDraw" yaml:"firstDraw"`
	SecondDraw   DrawDocument `json:"secondDraw" yaml:"secondDraw"`
	Lender       *string      `json:"lender" yaml:"lender"`
	Notes        string       `json:"notes" yaml:"notes"`
	SourceLink   string       `json:"sourceLink" yaml:"sourceLink"`
	ScrapedAt    string       `json:"scrapedAt" yaml:"scrapedAt"`
}

// ErrorDocument is the serialized form of an ErrorRecord.
type ErrorDocument struct {
	Error        string `json:"error" yaml:"error"`
	BusinessName string `json:"businessName" yaml:"businessName"`
	SourceLink   string `json:"sourceLink" yaml:"sourceLink"`
	ScrapedAt    string `json:"scrapedAt" yaml:"scrapedAt"`
}

func drawDocument(d Draw) DrawDocument {
	return DrawDocument{Amount: d.Amount, Date: d.Date, Forgiveness: d.Forgiveness}
}

// Document renders the record for output.
func (r *Record) Document() Document {
	return Document{
		BusinessName: r.BusinessName,
		FirstDraw:    drawDocument(r.FirstDraw),
		SecondDraw:   drawDocument(r.SecondDraw),
		Lender:       r.Lender,
		Notes:        r.notes.String(),
		SourceLink:   r.SourceLink,
		ScrapedAt:    r.ScrapedAt.Format(TimeFormat),
	}
}

// Document renders the error record for output.
func (e *ErrorRecord) Document() ErrorDocument {
	return ErrorDocument{
		Error:        e.Error(),
		BusinessName: e.BusinessName,
		SourceLink:   e.SourceLink,
		ScrapedAt:    e.ScrapedAt.Format(TimeFormat),
	}
}
