package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/city-traffic/internal/models"
)

// ScoreReport is the body posted to the scoreboard.
type ScoreReport struct {
	Name    string `json:"name"`
	RunID   string `json:"run_id"`
	Tick    int    `json:"tick"`
	NumCars int    `json:"num_cars"`
}

// Scoreboard posts the arrived count to an external HTTP endpoint every N ticks.
type Scoreboard struct {
	URL       string
	Name      string
	Every     int
	AuthToken string
	client    *http.Client
	lastTick  int
}

// NewScoreboard returns a scoreboard reporter posting to url every `every` ticks.
func NewScoreboard(url, name string, every int) *Scoreboard {
	return &Scoreboard{
		URL:    url,
		Name:   name,
		Every:  every,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Due reports whether a report is owed: every Every ticks, and once more when
// the run halts.
func (s *Scoreboard) Due(stats models.Stats) bool {
	if s.Every <= 0 || stats.Tick <= 0 || stats.Tick == s.lastTick {
		return false
	}
	return stats.Tick%s.Every == 0 || stats.Halted
}

// Report posts the arrived count for a run.
func (s *Scoreboard) Report(ctx context.Context, runID string, stats models.Stats) error {
	data, err := json.Marshal(ScoreReport{
		Name:    s.Name,
		RunID:   runID,
		Tick:    stats.Tick,
		NumCars: stats.Arrived,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	resp, err := s.authorizedPost(ctx, "application/json", bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("scoreboard rejected report with status: %d", resp.StatusCode)
	}
	s.lastTick = stats.Tick
	log.WithFields(log.Fields{
		"run_id":   runID,
		"tick":     stats.Tick,
		"num_cars": stats.Arrived,
		"status":   resp.Status,
	}).Info("Sent score report")
	return nil
}

func (s *Scoreboard) authorizedPost(ctx context.Context, contentType string, body *bytes.Buffer) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if s.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.AuthToken)
	}
	return s.client.Do(req)
}
