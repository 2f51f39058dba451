package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TickTelemetry is a full snapshot of the city taken after one step.
type TickTelemetry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RunID     string             `bson:"run_id" json:"run_id"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Stats     Stats              `bson:"stats" json:"stats"`
	Vehicles  []VehiclePosition  `bson:"vehicles" json:"vehicles"`
	Lights    []LightState       `bson:"lights" json:"lights"`
}
