package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jmylchreest/pppscrape/internal/logger"
	"github.com/jmylchreest/pppscrape/pkg/record"
)

// ErrNoSubmission is returned when no submission matches the id.
var ErrNoSubmission = errors.New("submission not found")

// Submissions writes scrape results into the pppData field of submission
// documents.
type Submissions struct {
	provider   CollectionProvider
	collection string
}

// NewSubmissions creates a submission store. An empty collection name
// selects DefaultCollection.
func NewSubmissions(provider CollectionProvider, collection string) *Submissions {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Submissions{provider: provider, collection: collection}
}

// SaveRecord sets pppData on the submission to the record.
func (s *Submissions) SaveRecord(ctx context.Context, submissionID string, rec *record.Record) error {
	data, err := recordBSON(rec.Document())
	if err != nil {
		return err
	}
	return s.set(ctx, submissionID, data)
}

// SaveError sets pppData on the submission to the error record.
func (s *Submissions) SaveError(ctx context.Context, submissionID string, rec *record.ErrorRecord) error {
	doc := rec.Document()
	return s.set(ctx, submissionID, bson.M{
		"error":        doc.Error,
		"businessName": doc.BusinessName,
		"sourceLink":   doc.SourceLink,
		"scrapedAt":    doc.ScrapedAt,
	})
}

func (s *Submissions) set(ctx context.Context, submissionID string, data bson.M) error {
	if submissionID == "" {
		return fmt.Errorf("%w: empty submission id", ErrNoSubmission)
	}
	filter := bson.M{"submissionId": submissionID}
	update := bson.M{"$set": bson.M{"pppData": data}}

	res, err := s.provider.Collection(s.collection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update submission %s: %w", submissionID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNoSubmission, submissionID)
	}
	logger.InfoContext(ctx, "submission updated", "submission_id", submissionID, "collection", s.collection)
	return nil
}

// recordBSON stores amounts as Decimal128 so Mongo keeps them exact.
func recordBSON(doc record.Document) (bson.M, error) {
	first, err := drawBSON(doc.FirstDraw)
	if err != nil {
		return nil, err
	}
	second, err := drawBSON(doc.SecondDraw)
	if err != nil {
		return nil, err
	}
	return bson.M{
		"businessName": doc.BusinessName,
		"firstDraw":    first,
		"secondDraw":   second,
		"lender":       doc.Lender,
		"notes":        doc.Notes,
		"sourceLink":   doc.SourceLink,
		"scrapedAt":    doc.ScrapedAt,
	}, nil
}

func drawBSON(d record.DrawDocument) (bson.M, error) {
	amount, err := decimal128(d.Amount)
	if err != nil {
		return nil, err
	}
	forgiveness, err := decimal128(d.Forgiveness)
	if err != nil {
		return nil, err
	}
	return bson.M{"amount": amount, "date": d.Date, "forgiveness": forgiveness}, nil
}

func decimal128(a *record.Amount) (any, error) {
	if a == nil {
		return nil, nil
	}
	d, err := primitive.ParseDecimal128(a.String())
	if err != nil {
		return nil, fmt.Errorf("encode amount %s: %w", a, err)
	}
	return d, nil
}
