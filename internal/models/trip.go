package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trip records one vehicle from spawn to arrival.
type Trip struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RunID       string             `json:"run_id" bson:"run_id"`
	VehicleID   int                `json:"vehicle_id" bson:"vehicle_id"`
	Origin      Coordinate         `json:"origin" bson:"origin"`
	Destination Coordinate         `json:"destination" bson:"destination"`
	SpawnTick   int                `json:"spawn_tick" bson:"spawn_tick"`
	ArrivalTick int                `json:"arrival_tick" bson:"arrival_tick"`
	Reroutes    int                `json:"reroutes" bson:"reroutes"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
}

// Duration is the number of ticks the vehicle spent on the grid.
func (t Trip) Duration() int {
	return t.ArrivalTick - t.SpawnTick
}
