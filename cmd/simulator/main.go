package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/city-traffic/internal/config"
	"github.com/ukydev/city-traffic/internal/models"
	"github.com/ukydev/city-traffic/internal/simulation"
	"github.com/ukydev/city-traffic/internal/sink"
)

const progressEvery = 50

// runner drives a city on a fixed interval without the HTTP façade.
type runner struct {
	city     *simulation.City
	runID    string
	fanout   *sink.Fanout
	interval time.Duration
	maxTicks int
}

// run steps until ctx ends, the city halts, or maxTicks is reached (0 means
// no limit). It returns the final counters.
func (r *runner) run(ctx context.Context) models.Stats {
	entry := log.WithField("run_id", r.runID)
	tick := time.NewTicker(r.interval)
	defer tick.Stop()

	for {
		stats := r.city.Stats()
		if stats.Halted {
			entry.WithField("tick", stats.Tick).Warn("City halted: every spawn point is blocked")
			return stats
		}
		if r.maxTicks > 0 && stats.Tick >= r.maxTicks {
			return stats
		}

		select {
		case <-ctx.Done():
			return r.city.Stats()
		case <-tick.C:
		}

		n := r.city.Step()
		r.fanout.AfterStep(ctx, r.runID, r.city)
		if n%progressEvery == 0 {
			s := r.city.Stats()
			entry.WithFields(log.Fields{
				"tick":    s.Tick,
				"active":  s.Active,
				"arrived": s.Arrived,
				"spawned": s.TotalSpawned,
			}).Info("Simulation progress")
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if err := cfg.ConfigureLogging(); err != nil {
		log.WithError(err).Fatal("Invalid logging configuration")
	}

	m, err := cfg.LoadMap()
	if err != nil {
		log.WithError(err).Fatal("Failed to load map")
	}
	city, err := simulation.New(m, cfg.Sim)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize city")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fanout, err := sink.Open(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to open outputs")
	}
	defer fanout.Close()

	r := &runner{
		city:     city,
		runID:    uuid.NewString(),
		fanout:   fanout,
		interval: cfg.TickInterval,
		maxTicks: cfg.MaxTicks,
	}

	log.WithFields(log.Fields{
		"run_id":    r.runID,
		"map":       cfg.MapFile,
		"interval":  cfg.TickInterval,
		"max_ticks": cfg.MaxTicks,
		"seed":      cfg.Sim.Seed,
	}).Info("Starting city simulation")

	stats := r.run(ctx)
	log.WithFields(log.Fields{
		"run_id":  r.runID,
		"tick":    stats.Tick,
		"arrived": stats.Arrived,
		"active":  stats.Active,
		"spawned": stats.TotalSpawned,
		"halted":  stats.Halted,
	}).Info("Simulation finished")
}
