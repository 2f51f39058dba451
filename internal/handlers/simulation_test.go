package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ukydev/city-traffic/internal/db"
	"github.com/ukydev/city-traffic/internal/grid"
	"github.com/ukydev/city-traffic/internal/models"
	"github.com/ukydev/city-traffic/internal/simulation"
	"github.com/ukydev/city-traffic/internal/sink"
)

// One lane, a long light at x=2, a destination at the end.
const laneCity = ">>S>D\n"

func laneBuilder(cfg simulation.Config) (*simulation.City, error) {
	return simulation.Initialize(laneCity, grid.DefaultLookup(), cfg)
}

// MockTripCollection is a mock implementation of TripCollection
type MockTripCollection struct {
	mock.Mock
}

func (m *MockTripCollection) InsertTrips(ctx context.Context, trips []models.Trip) error {
	args := m.Called(ctx, trips)
	return args.Error(0)
}

func (m *MockTripCollection) FindTrips(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (db.TripCursor, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(db.TripCursor), args.Error(1)
}

type sliceCursor struct {
	trips []models.Trip
}

func (c *sliceCursor) All(ctx context.Context, out interface{}) error {
	*(out.(*[]models.Trip)) = c.trips
	return nil
}

func (c *sliceCursor) Close(ctx context.Context) error { return nil }

func newTestServer(fanout *sink.Fanout) (*SimulationHandler, http.Handler) {
	sim := NewSimulationHandler(laneBuilder, simulation.DefaultConfig(), fanout)
	return sim, NewServer(sim, RouterOptions{})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestSimulationHandler_BeforeInit(t *testing.T) {
	_, h := newTestServer(nil)

	for _, path := range []string{"/getAgents", "/update", "/stats", "/positions.geojson", "/trips"} {
		w := do(t, h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusConflict, w.Code, path)
	}
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
}

func TestSimulationHandler_Init(t *testing.T) {
	sim, h := newTestServer(nil)

	w := do(t, h, http.MethodGet, "/init", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Model initiated.", resp["message"])
	assert.NotEmpty(t, resp["run_id"])

	city, runID := sim.City()
	require.NotNil(t, city)
	assert.Equal(t, resp["run_id"], runID)
	assert.Equal(t, simulation.DefaultConfig(), city.Config())

	// a second init starts a new run
	do(t, h, http.MethodGet, "/init", "")
	_, second := sim.City()
	assert.NotEqual(t, runID, second)
}

func TestSimulationHandler_InitOverrides(t *testing.T) {
	sim, h := newTestServer(nil)

	w := do(t, h, http.MethodPost, "/init", `{"seed": 42, "spawn_interval": 0, "patience_floor": 2, "patience_ceiling": 3, "congestion_penalty": 8}`)
	require.Equal(t, http.StatusOK, w.Code)

	city, _ := sim.City()
	cfg := city.Config()
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, 0, cfg.SpawnInterval)
	assert.Equal(t, 2, cfg.PatienceFloor)
	assert.Equal(t, 3, cfg.PatienceCeiling)
	assert.Equal(t, 8.0, cfg.CongestionPenalty)
	assert.Equal(t, 1.5, cfg.DiagonalFactor)

	// empty POST body keeps the defaults
	w = do(t, h, http.MethodPost, "/init", "")
	require.Equal(t, http.StatusOK, w.Code)
	city, _ = sim.City()
	assert.Equal(t, simulation.DefaultConfig(), city.Config())
}

func TestSimulationHandler_InitRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"seed":`},
		{"floor below one", `{"patience_floor": 0}`},
		{"ceiling below floor", `{"patience_floor": 9, "patience_ceiling": 2}`},
		{"spawn on destination", `{"spawn_points": [{"x": 4, "y": 0}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, h := newTestServer(nil)
			w := do(t, h, http.MethodPost, "/init", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			city, _ := sim.City()
			assert.Nil(t, city)
		})
	}
}

func TestSimulationHandler_InitBuildFailure(t *testing.T) {
	sim := NewSimulationHandler(func(simulation.Config) (*simulation.City, error) {
		return nil, errors.New("map missing")
	}, simulation.DefaultConfig(), nil)
	w := do(t, NewServer(sim, RouterOptions{}), http.MethodGet, "/init", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSimulationHandler_GetAgents(t *testing.T) {
	_, h := newTestServer(nil)
	do(t, h, http.MethodGet, "/init", "")

	w := do(t, h, http.MethodGet, "/getAgents", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp agentsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []agentDTO{{ID: "c_0", X: 0, Y: 0, Z: 0}}, resp.Positions)
	assert.Equal(t, []lightDTO{{ID: "tl_2", X: 2, Y: 0, Z: 0, IsGreen: false}}, resp.TrafficLights)
	assert.Contains(t, w.Body.String(), `"isGreen":false`)
}

func TestSimulationHandler_Update(t *testing.T) {
	_, h := newTestServer(nil)
	do(t, h, http.MethodGet, "/init", "")

	for step := 1; step <= 2; step++ {
		method := http.MethodGet
		if step == 2 {
			method = http.MethodPost
		}
		w := do(t, h, method, "/update", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Message     string `json:"message"`
			CurrentStep int    `json:"current_step"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, step, resp.CurrentStep)
		assert.Equal(t, fmt.Sprintf("Model updated to step %d.", step), resp.Message)
	}

	var agents agentsResponse
	require.NoError(t, json.Unmarshal(do(t, h, http.MethodGet, "/getAgents", "").Body.Bytes(), &agents))
	require.NotEmpty(t, agents.Positions)
	assert.Equal(t, 1, agents.Positions[0].X, "first vehicle waits at the red light")
}

// blockingPublisher holds every Publish until release is closed.
type blockingPublisher struct {
	started chan struct{}
	release chan struct{}
}

func (p *blockingPublisher) Publish(ctx context.Context, telemetry models.TickTelemetry) error {
	p.started <- struct{}{}
	<-p.release
	return nil
}

func (p *blockingPublisher) Close() {}

func TestSimulationHandler_UpdateDoesNotBlockReadsOnOutputs(t *testing.T) {
	publisher := &blockingPublisher{started: make(chan struct{}, 1), release: make(chan struct{})}
	_, h := newTestServer(&sink.Fanout{Publisher: publisher})
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/init", "").Code)

	done := make(chan int, 1)
	go func() {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/update", nil))
		done <- w.Code
	}()

	select {
	case <-publisher.started:
	case <-time.After(5 * time.Second):
		t.Fatal("publish never started")
	}

	reads := make(chan int, 1)
	go func() { reads <- do(t, h, http.MethodGet, "/stats", "").Code }()
	select {
	case code := <-reads:
		assert.Equal(t, http.StatusOK, code)
	case <-time.After(5 * time.Second):
		t.Fatal("stats blocked behind a slow publisher")
	}

	close(publisher.release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestSimulationHandler_Stats(t *testing.T) {
	sim, h := newTestServer(nil)
	do(t, h, http.MethodGet, "/init", "")
	do(t, h, http.MethodGet, "/update", "")

	w := do(t, h, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		RunID string `json:"run_id"`
		models.Stats
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	_, runID := sim.City()
	assert.Equal(t, runID, resp.RunID)
	assert.Equal(t, 1, resp.Tick)
	assert.Equal(t, 1, resp.Active)
	assert.Equal(t, 1, resp.TotalSpawned)
	assert.False(t, resp.Halted)
}

func TestSimulationHandler_PositionsGeoJSON(t *testing.T) {
	_, h := newTestServer(nil)
	do(t, h, http.MethodGet, "/init", "")

	w := do(t, h, http.MethodGet, "/positions.geojson", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))

	fc, err := geojson.UnmarshalFeatureCollection(w.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	assert.Equal(t, "vehicle", fc.Features[0].Properties["kind"])
	assert.Equal(t, []float64{0, 0}, fc.Features[0].Geometry.Point)
	assert.Equal(t, "traffic_light", fc.Features[1].Properties["kind"])
	assert.Equal(t, []float64{2, 0}, fc.Features[1].Geometry.Point)
	assert.Equal(t, false, fc.Features[1].Properties["is_green"])
}

func TestSimulationHandler_Trips(t *testing.T) {
	trips := &MockTripCollection{}
	sim, h := newTestServer(&sink.Fanout{Trips: trips})
	do(t, h, http.MethodGet, "/init", "")
	_, runID := sim.City()

	stored := []models.Trip{{RunID: runID, VehicleID: 0, SpawnTick: 0, ArrivalTick: 19}}
	trips.On("FindTrips", mock.Anything, bson.M{"run_id": runID}).Return(&sliceCursor{trips: stored}, nil).Once()

	w := do(t, h, http.MethodGet, "/trips", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []models.Trip
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 19, got[0].ArrivalTick)
	trips.AssertExpectations(t)

	trips.On("FindTrips", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	assert.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodGet, "/trips", "").Code)
}

func TestSimulationHandler_TripsWithoutStorage(t *testing.T) {
	_, h := newTestServer(nil)
	do(t, h, http.MethodGet, "/init", "")
	w := do(t, h, http.MethodGet, "/trips", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "not configured"))
}
