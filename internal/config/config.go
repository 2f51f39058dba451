// Package config reads process configuration from the environment, after
// loading an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/city-traffic/internal/grid"
	"github.com/ukydev/city-traffic/internal/simulation"
)

// Config is everything the binaries need to start.
type Config struct {
	Port       string
	MapFile    string
	LookupFile string
	Sim        simulation.Config

	TickInterval time.Duration
	MaxTicks     int

	RequireAuth          bool
	OperatorUser         string
	OperatorPasswordHash string
	JWTSecret            string
	JWTExpiry            time.Duration
	RateLimit            int
	RateWindowSeconds    int
	TrustedProxies       []string

	MongoURI   string
	MongoDB    string
	MQTTBroker string
	MQTTTopic  string

	ReportURL   string
	ReportName  string
	ReportEvery int

	LogLevel  string
	LogFormat string
}

// Load reads .env (if present) and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to read .env file")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults for unset keys.
func FromEnv(getenv func(string) string) (Config, error) {
	sim := simulation.DefaultConfig()
	cfg := Config{
		Port:              "8585",
		MapFile:           "maps/base.txt",
		LookupFile:        "maps/lookup.json",
		TickInterval:      500 * time.Millisecond,
		OperatorUser:      "operator",
		JWTExpiry:         24 * time.Hour,
		RateWindowSeconds: 60,
		MongoDB:           "traffic",
		MQTTTopic:         "city-traffic/ticks",
		ReportName:        "city-traffic",
		ReportEvery:       100,
		LogLevel:          "info",
		LogFormat:         "text",
	}
	r := envReader{getenv: getenv}

	r.stringVar("PORT", &cfg.Port)
	r.stringVar("SIM_MAP_FILE", &cfg.MapFile)
	r.stringVar("SIM_LOOKUP_FILE", &cfg.LookupFile)

	r.floatVar("SIM_DIAGONAL_FACTOR", &sim.DiagonalFactor)
	r.floatVar("SIM_SIGNAL_FACTOR", &sim.SignalFactor)
	r.floatVar("SIM_CONGESTION_PENALTY", &sim.CongestionPenalty)
	r.intVar("SIM_PATIENCE_FLOOR", &sim.PatienceFloor)
	r.intVar("SIM_PATIENCE_CEILING", &sim.PatienceCeiling)
	r.intVar("SIM_SPAWN_INTERVAL", &sim.SpawnInterval)
	var seed int
	seedSet := r.intVar("SIM_SEED", &seed)
	if seedSet {
		sim.Seed = uint64(seed)
	}

	var tickMillis int
	if r.intVar("SIM_TICK_MILLIS", &tickMillis) {
		cfg.TickInterval = time.Duration(tickMillis) * time.Millisecond
	}
	r.intVar("SIM_MAX_TICKS", &cfg.MaxTicks)

	r.boolVar("SIM_REQUIRE_AUTH", &cfg.RequireAuth)
	r.stringVar("SIM_OPERATOR_USER", &cfg.OperatorUser)
	r.stringVar("SIM_OPERATOR_PASSWORD_HASH", &cfg.OperatorPasswordHash)
	r.stringVar("JWT_SECRET", &cfg.JWTSecret)
	r.durationVar("JWT_EXPIRY", &cfg.JWTExpiry)
	r.intVar("SIM_RATE_LIMIT", &cfg.RateLimit)
	r.intVar("SIM_RATE_WINDOW_SECONDS", &cfg.RateWindowSeconds)
	r.listVar("SIM_TRUSTED_PROXIES", &cfg.TrustedProxies)

	r.stringVar("MONGO_URI", &cfg.MongoURI)
	r.stringVar("MONGO_DB", &cfg.MongoDB)
	r.stringVar("MQTT_BROKER", &cfg.MQTTBroker)
	r.stringVar("MQTT_TOPIC", &cfg.MQTTTopic)

	r.stringVar("SIM_REPORT_URL", &cfg.ReportURL)
	r.stringVar("SIM_REPORT_NAME", &cfg.ReportName)
	r.intVar("SIM_REPORT_EVERY", &cfg.ReportEvery)

	r.stringVar("LOG_LEVEL", &cfg.LogLevel)
	r.stringVar("LOG_FORMAT", &cfg.LogFormat)

	if r.err != nil {
		return Config{}, r.err
	}
	if err := sim.Validate(); err != nil {
		return Config{}, err
	}
	if cfg.TickInterval <= 0 {
		return Config{}, fmt.Errorf("SIM_TICK_MILLIS must be positive")
	}
	if cfg.JWTExpiry <= 0 {
		return Config{}, fmt.Errorf("JWT_EXPIRY must be positive")
	}
	if cfg.ReportEvery <= 0 {
		return Config{}, fmt.Errorf("SIM_REPORT_EVERY must be positive")
	}
	cfg.Sim = sim
	return cfg, nil
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the standard logger.
func (c Config) ConfigureLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// LoadMap reads the symbol lookup and the city map. Without a lookup file
// the stock light periods are used.
func (c Config) LoadMap() (*grid.Map, error) {
	lookup := grid.DefaultLookup()
	if c.LookupFile != "" {
		var err error
		if lookup, err = grid.LoadLookup(c.LookupFile); err != nil {
			return nil, err
		}
	}
	return grid.LoadMap(c.MapFile, lookup)
}

// envReader records the first malformed value it meets.
type envReader struct {
	getenv func(string) string
	err    error
}

func (r *envReader) stringVar(key string, dst *string) {
	if v := r.getenv(key); v != "" {
		*dst = v
	}
}

func (r *envReader) intVar(key string, dst *int) bool {
	v := r.getenv(key)
	if v == "" {
		return false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, err)
		return false
	}
	*dst = n
	return true
}

func (r *envReader) durationVar(key string, dst *time.Duration) {
	v := r.getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = d
}

// listVar splits a comma separated value, dropping blanks.
func (r *envReader) listVar(key string, dst *[]string) {
	v := r.getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (r *envReader) floatVar(key string, dst *float64) {
	v := r.getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = f
}

func (r *envReader) boolVar(key string, dst *bool) {
	v := r.getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, err)
		return
	}
	*dst = b
}

func (r *envReader) fail(key, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s=%q: %w", key, value, err)
	}
}
