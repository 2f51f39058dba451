package models

// VehiclePosition is the externally visible state of one live vehicle.
type VehiclePosition struct {
	ID int `bson:"id" json:"id"`
	X  int `bson:"x" json:"x"`
	Y  int `bson:"y" json:"y"`
}

// LightState is the externally visible state of one traffic light.
type LightState struct {
	ID      int  `bson:"id" json:"id"`
	X       int  `bson:"x" json:"x"`
	Y       int  `bson:"y" json:"y"`
	IsGreen bool `bson:"is_green" json:"is_green"`
}

// Stats holds the city counters.
type Stats struct {
	Tick         int  `bson:"tick" json:"tick"`
	Active       int  `bson:"active_count" json:"active_count"`
	Arrived      int  `bson:"arrived_count" json:"arrived_count"`
	TotalSpawned int  `bson:"total_spawned" json:"total_spawned"`
	Halted       bool `bson:"halted" json:"halted"`
}
