// Package sink forwards what happened in a step to the configured outputs:
// trip storage, snapshot storage, the MQTT broker and the scoreboard.
package sink

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/city-traffic/internal/db"
	"github.com/ukydev/city-traffic/internal/models"
	"github.com/ukydev/city-traffic/internal/simulation"
)

// Publisher receives a snapshot per step.
type Publisher interface {
	Publish(ctx context.Context, telemetry models.TickTelemetry) error
	Close()
}

// Reporter receives periodic run summaries.
type Reporter interface {
	Due(stats models.Stats) bool
	Report(ctx context.Context, runID string, stats models.Stats) error
}

// Fanout is the set of outputs a run writes to. Every field is optional and a
// nil *Fanout is valid and does nothing.
type Fanout struct {
	Trips     db.TripCollection
	Telemetry db.TelemetryCollection
	Publisher Publisher
	Reporter  Reporter
	closers   []func()
	mu        sync.Mutex
}

// Enabled reports whether any output is configured.
func (f *Fanout) Enabled() bool {
	return f != nil && (f.Trips != nil || f.Telemetry != nil || f.Publisher != nil || f.Reporter != nil)
}

// Step is what one tick left behind, captured while the city is held.
type Step struct {
	RunID    string
	Trips    []models.Trip
	Stats    models.Stats
	Snapshot *models.TickTelemetry
}

// Capture drains the city's finished trips and snapshots its state. Trips are
// drained even when nothing is configured. The caller must hold the city.
func (f *Fanout) Capture(runID string, city *simulation.City) Step {
	step := Step{RunID: runID, Trips: city.DrainTrips(), Stats: city.Stats()}
	if f.Enabled() && (f.Telemetry != nil || f.Publisher != nil) {
		snapshot := Snapshot(runID, city)
		step.Snapshot = &snapshot
	}
	return step
}

// Deliver forwards a captured step to the outputs. It never touches the city,
// so it may run after the city is released. Deliveries are serialized. Output
// failures are logged, never returned: the simulation keeps running when a
// sink is down.
func (f *Fanout) Deliver(ctx context.Context, step Step) {
	if !f.Enabled() {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entry := log.WithField("run_id", step.RunID)

	if f.Trips != nil && len(step.Trips) > 0 {
		for i := range step.Trips {
			step.Trips[i].RunID = step.RunID
		}
		if err := f.Trips.InsertTrips(ctx, step.Trips); err != nil {
			entry.WithError(err).WithField("trips", len(step.Trips)).Error("Failed to store trips")
		}
	}

	if step.Snapshot != nil {
		if f.Telemetry != nil {
			if err := f.Telemetry.InsertTelemetry(ctx, *step.Snapshot); err != nil {
				entry.WithError(err).WithField("tick", step.Stats.Tick).Error("Failed to store telemetry")
			}
		}
		if f.Publisher != nil {
			if err := f.Publisher.Publish(ctx, *step.Snapshot); err != nil {
				entry.WithError(err).WithField("tick", step.Stats.Tick).Warn("Failed to publish telemetry")
			}
		}
	}

	if f.Reporter != nil && f.Reporter.Due(step.Stats) {
		if err := f.Reporter.Report(ctx, step.RunID, step.Stats); err != nil {
			entry.WithError(err).Warn("Failed to report score")
		}
	}
}

// AfterStep captures and delivers in one go, for callers that own the city.
func (f *Fanout) AfterStep(ctx context.Context, runID string, city *simulation.City) {
	f.Deliver(ctx, f.Capture(runID, city))
}

// Snapshot captures the city's observable state.
func Snapshot(runID string, city *simulation.City) models.TickTelemetry {
	return models.TickTelemetry{
		RunID:     runID,
		Timestamp: time.Now(),
		Stats:     city.Stats(),
		Vehicles:  city.Positions(),
		Lights:    city.LightStates(),
	}
}

// Close releases connections held by the outputs.
func (f *Fanout) Close() {
	if f == nil {
		return
	}
	if f.Publisher != nil {
		f.Publisher.Close()
	}
	for _, c := range f.closers {
		c()
	}
}
