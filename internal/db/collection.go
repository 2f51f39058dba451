package db

import (
	"context"

	"github.com/ukydev/city-traffic/internal/models"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TelemetryCollection defines the interface for tick snapshot storage.
type TelemetryCollection interface {
	InsertTelemetry(ctx context.Context, telemetry models.TickTelemetry) error
}

// TripCollection defines the interface for completed trip storage.
type TripCollection interface {
	InsertTrips(ctx context.Context, trips []models.Trip) error
	FindTrips(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (TripCursor, error)
}

// TripCursor defines the interface for trip cursor operations.
type TripCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}
