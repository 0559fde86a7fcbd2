// Package store persists scrape results onto submission documents in MongoDB.
package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jmylchreest/pppscrape/internal/logger"
)

// Defaults for the submission collection.
const (
	DefaultDatabase   = "pppscrape"
	DefaultCollection = "submissions"
)

// DataStore is the subset of collection operations the store needs.
type DataStore interface {
	UpdateOne(
		ctx context.Context,
		filter interface{},
		update interface{},
		opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// CollectionProvider hands out collections by name.
type CollectionProvider interface {
	Collection(name string) DataStore
}

// MongoCollection adapts *mongo.Collection to DataStore.
type MongoCollection struct {
	*mongo.Collection
}

// UpdateOne updates a single document.
func (c *MongoCollection) UpdateOne(
	ctx context.Context,
	filter interface{},
	update interface{},
	opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	result, err := c.Collection.UpdateOne(ctx, filter, update, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to perform UpdateOne: %w", err)
	}
	return result, nil
}

// MongoProvider adapts *mongo.Client to CollectionProvider.
type MongoProvider struct {
	client   *mongo.Client
	database string
}

// NewMongoProvider creates a MongoProvider for database. An empty name
// selects DefaultDatabase.
func NewMongoProvider(client *mongo.Client, database string) *MongoProvider {
	if database == "" {
		database = DefaultDatabase
	}
	return &MongoProvider{client: client, database: database}
}

// Collection returns a DataStore for the given collection name.
func (p *MongoProvider) Collection(name string) DataStore {
	return &MongoCollection{p.client.Database(p.database).Collection(name)}
}

// Connect establishes a connection to MongoDB and pings it.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	logger.DebugContext(ctx, "connecting to MongoDB")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.InfoContext(ctx, "connected to MongoDB")
	return client, nil
}
