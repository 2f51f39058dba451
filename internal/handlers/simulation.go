package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	geojson "github.com/paulmach/go.geojson"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/city-traffic/internal/db"
	"github.com/ukydev/city-traffic/internal/models"
	"github.com/ukydev/city-traffic/internal/simulation"
	"github.com/ukydev/city-traffic/internal/sink"
)

// Builder creates a fresh city for a run.
type Builder func(cfg simulation.Config) (*simulation.City, error)

// SimulationHandler exposes one city to the renderer. Every request is
// serialized, so a step never overlaps a read.
type SimulationHandler struct {
	mu       sync.Mutex
	build    Builder
	defaults simulation.Config
	sink     *sink.Fanout

	city  *simulation.City
	runID string
}

// NewSimulationHandler creates a handler with no city; /init must be called first.
func NewSimulationHandler(build Builder, defaults simulation.Config, fanout *sink.Fanout) *SimulationHandler {
	return &SimulationHandler{
		build:    build,
		defaults: defaults,
		sink:     fanout,
	}
}

// initRequest carries the optional overrides accepted by POST /init.
type initRequest struct {
	DiagonalFactor    *float64            `json:"diagonal_factor"`
	SignalFactor      *float64            `json:"signal_factor"`
	CongestionPenalty *float64            `json:"congestion_penalty"`
	PatienceFloor     *int                `json:"patience_floor"`
	PatienceCeiling   *int                `json:"patience_ceiling"`
	SpawnInterval     *int                `json:"spawn_interval"`
	SpawnPoints       []models.Coordinate `json:"spawn_points"`
	Seed              *uint64             `json:"seed"`
}

func (req initRequest) apply(cfg simulation.Config) simulation.Config {
	if req.DiagonalFactor != nil {
		cfg.DiagonalFactor = *req.DiagonalFactor
	}
	if req.SignalFactor != nil {
		cfg.SignalFactor = *req.SignalFactor
	}
	if req.CongestionPenalty != nil {
		cfg.CongestionPenalty = *req.CongestionPenalty
	}
	if req.PatienceFloor != nil {
		cfg.PatienceFloor = *req.PatienceFloor
	}
	if req.PatienceCeiling != nil {
		cfg.PatienceCeiling = *req.PatienceCeiling
	}
	if req.SpawnInterval != nil {
		cfg.SpawnInterval = *req.SpawnInterval
	}
	if req.SpawnPoints != nil {
		cfg.SpawnPoints = req.SpawnPoints
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	return cfg
}

// Init handles GET|POST /init, replacing any running city.
func (h *SimulationHandler) Init(w http.ResponseWriter, r *http.Request) {
	cfg := h.defaults
	if r.Method == http.MethodPost {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		if len(body) > 0 {
			var req initRequest
			if err := json.Unmarshal(body, &req); err != nil {
				http.Error(w, "Invalid JSON", http.StatusBadRequest)
				return
			}
			cfg = req.apply(cfg)
		}
	}

	city, err := h.build(cfg)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, simulation.ErrInvalidConfig) || errors.Is(err, simulation.ErrNoSpawnPoints) {
			status = http.StatusBadRequest
		}
		log.WithError(err).Warn("Failed to initialize city")
		http.Error(w, err.Error(), status)
		return
	}

	h.mu.Lock()
	h.city = city
	h.runID = uuid.NewString()
	runID := h.runID
	h.mu.Unlock()

	log.WithFields(log.Fields{
		"run_id": runID,
		"seed":   cfg.Seed,
	}).Info("Model initiated")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Model initiated.",
		"run_id":  runID,
	})
}

type agentDTO struct {
	ID string `json:"id"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
	Z  int    `json:"z"`
}

type lightDTO struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Z       int    `json:"z"`
	IsGreen bool   `json:"isGreen"`
}

type agentsResponse struct {
	Positions     []agentDTO `json:"positions"`
	TrafficLights []lightDTO `json:"traffic_lights"`
}

// GetAgents handles GET /getAgents. Grid y is reported as the renderer's z
// axis; the renderer's y is always 0.
func (h *SimulationHandler) GetAgents(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.ready(w) {
		return
	}

	positions := h.city.Positions()
	resp := agentsResponse{
		Positions:     make([]agentDTO, 0, len(positions)),
		TrafficLights: []lightDTO{},
	}
	for _, p := range positions {
		resp.Positions = append(resp.Positions, agentDTO{ID: fmt.Sprintf("c_%d", p.ID), X: p.X, Z: p.Y})
	}
	for _, l := range h.city.LightStates() {
		resp.TrafficLights = append(resp.TrafficLights, lightDTO{ID: fmt.Sprintf("tl_%d", l.ID), X: l.X, Z: l.Y, IsGreen: l.IsGreen})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Update handles GET|POST /update, advancing the city one tick.
func (h *SimulationHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if !h.ready(w) {
		h.mu.Unlock()
		return
	}
	tick := h.city.Step()
	halted := h.city.Halted()
	step := h.sink.Capture(h.runID, h.city)
	h.mu.Unlock()

	// Fan out without holding the city.
	h.sink.Deliver(r.Context(), step)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      fmt.Sprintf("Model updated to step %d.", tick),
		"current_step": tick,
		"halted":       halted,
	})
}

// Stats handles GET /stats.
func (h *SimulationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.ready(w) {
		return
	}
	writeJSON(w, http.StatusOK, struct {
		RunID string `json:"run_id"`
		models.Stats
	}{h.runID, h.city.Stats()})
}

// PositionsGeoJSON handles GET /positions.geojson: vehicles and lights as
// points in grid coordinates.
func (h *SimulationHandler) PositionsGeoJSON(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if !h.ready(w) {
		h.mu.Unlock()
		return
	}
	fc := geojson.NewFeatureCollection()
	for _, p := range h.city.Positions() {
		f := geojson.NewPointFeature([]float64{float64(p.X), float64(p.Y)})
		f.SetProperty("kind", "vehicle")
		f.SetProperty("id", p.ID)
		fc.AddFeature(f)
	}
	for _, l := range h.city.LightStates() {
		f := geojson.NewPointFeature([]float64{float64(l.X), float64(l.Y)})
		f.SetProperty("kind", "traffic_light")
		f.SetProperty("id", l.ID)
		f.SetProperty("is_green", l.IsGreen)
		fc.AddFeature(f)
	}
	h.mu.Unlock()

	b, err := fc.MarshalJSON()
	if err != nil {
		http.Error(w, "Failed to encode features", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// Trips handles GET /trips, returning the stored trips of the current run.
func (h *SimulationHandler) Trips(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if !h.ready(w) {
		h.mu.Unlock()
		return
	}
	runID := h.runID
	h.mu.Unlock()

	if h.sink == nil || h.sink.Trips == nil {
		http.Error(w, "Trip storage is not configured", http.StatusNotFound)
		return
	}

	filter, opts := db.RunFilter(runID)
	cursor, err := h.sink.Trips.FindTrips(r.Context(), filter, opts)
	if err != nil {
		log.WithError(err).Error("Failed to query trips")
		http.Error(w, "Failed to query trips", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(r.Context())

	trips := []models.Trip{}
	if err := cursor.All(r.Context(), &trips); err != nil {
		log.WithError(err).Error("Failed to decode trips")
		http.Error(w, "Failed to decode trips", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

// City returns the running city and its run id, or nil before /init.
func (h *SimulationHandler) City() (*simulation.City, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.city, h.runID
}

// ready writes 409 when no city has been initialized. Caller holds h.mu.
func (h *SimulationHandler) ready(w http.ResponseWriter) bool {
	if h.city == nil {
		http.Error(w, "Model not initialized; call /init first", http.StatusConflict)
		return false
	}
	return true
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
