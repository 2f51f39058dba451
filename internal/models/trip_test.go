package models

import (
	"testing"
)

func TestTrip_Duration(t *testing.T) {
	trip := Trip{SpawnTick: 3, ArrivalTick: 11}
	if trip.Duration() != 8 {
		t.Errorf("Duration = %d, want 8", trip.Duration())
	}
}
