package simulation

import (
	"errors"
	"fmt"

	"github.com/ukydev/city-traffic/internal/graph"
	"github.com/ukydev/city-traffic/internal/models"
)

var (
	ErrInvalidConfig  = errors.New("invalid simulation config")
	ErrNoDestinations = errors.New("map has no destinations")
	ErrNoSpawnPoints  = errors.New("map has no usable spawn points")
)

// Config holds the tunable parameters of one simulation run.
type Config struct {
	DiagonalFactor    float64 `json:"diagonal_factor"`
	SignalFactor      float64 `json:"signal_factor"`
	CongestionPenalty float64 `json:"congestion_penalty"`
	PatienceFloor     int     `json:"patience_floor"`
	PatienceCeiling   int     `json:"patience_ceiling"`
	// SpawnInterval is the number of ticks between spawn opportunities;
	// zero spawns only once, at initialization.
	SpawnInterval int `json:"spawn_interval"`
	// SpawnPoints overrides the default grid corners.
	SpawnPoints []models.Coordinate `json:"spawn_points,omitempty"`
	Seed        uint64              `json:"seed"`
}

// DefaultConfig returns the stock parameters.
func DefaultConfig() Config {
	w := graph.DefaultWeights()
	return Config{
		DiagonalFactor:    w.Diagonal,
		SignalFactor:      w.Signal,
		CongestionPenalty: 5,
		PatienceFloor:     5,
		PatienceCeiling:   10,
		SpawnInterval:     3,
		Seed:              1,
	}
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	switch {
	case c.DiagonalFactor < 1:
		return fmt.Errorf("%w: diagonal factor %v must be >= 1", ErrInvalidConfig, c.DiagonalFactor)
	case c.SignalFactor < 0:
		return fmt.Errorf("%w: signal factor %v must be >= 0", ErrInvalidConfig, c.SignalFactor)
	case c.CongestionPenalty < 0:
		return fmt.Errorf("%w: congestion penalty %v must be >= 0", ErrInvalidConfig, c.CongestionPenalty)
	case c.PatienceFloor < 1:
		return fmt.Errorf("%w: patience floor %d must be >= 1", ErrInvalidConfig, c.PatienceFloor)
	case c.PatienceCeiling < c.PatienceFloor:
		return fmt.Errorf("%w: patience ceiling %d below floor %d", ErrInvalidConfig, c.PatienceCeiling, c.PatienceFloor)
	case c.SpawnInterval < 0:
		return fmt.Errorf("%w: spawn interval %d must be >= 0", ErrInvalidConfig, c.SpawnInterval)
	}
	return nil
}

func (c Config) weights() graph.Weights {
	return graph.Weights{Diagonal: c.DiagonalFactor, Signal: c.SignalFactor}
}
