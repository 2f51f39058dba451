package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/city-traffic/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	TripCollectionName      = "trips"
	TelemetryCollectionName = "telemetry"
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoCollection wraps a MongoDB collection for trip and telemetry operations.
type MongoCollection struct {
	Collection *mongo.Collection
}

// InsertTelemetry inserts a tick snapshot into the collection.
func (c *MongoCollection) InsertTelemetry(ctx context.Context, telemetry models.TickTelemetry) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if telemetry.Timestamp.IsZero() {
		telemetry.Timestamp = time.Now()
	}
	_, err := c.Collection.InsertOne(ctx, telemetry)
	return err
}

// InsertTrips inserts completed trips in one batch.
func (c *MongoCollection) InsertTrips(ctx context.Context, trips []models.Trip) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if len(trips) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]interface{}, len(trips))
	for i, trip := range trips {
		if trip.CreatedAt.IsZero() {
			trip.CreatedAt = now
		}
		docs[i] = trip
	}
	_, err := c.Collection.InsertMany(ctx, docs)
	return err
}

// FindTrips queries trip records from the collection.
func (c *MongoCollection) FindTrips(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (TripCursor, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &mongoTripCursor{cursor: cursor}, nil
}

// RunFilter selects the records of one run, oldest arrival first.
func RunFilter(runID string) (bson.M, *options.FindOptions) {
	return bson.M{"run_id": runID}, options.Find().SetSort(bson.D{{Key: "arrival_tick", Value: 1}, {Key: "vehicle_id", Value: 1}})
}

type mongoTripCursor struct {
	cursor *mongo.Cursor
}

func (c *mongoTripCursor) All(ctx context.Context, out interface{}) error {
	return c.cursor.All(ctx, out)
}

func (c *mongoTripCursor) Close(ctx context.Context) error {
	return c.cursor.Close(ctx)
}
