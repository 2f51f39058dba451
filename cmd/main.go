package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/city-traffic/internal/auth"
	"github.com/ukydev/city-traffic/internal/config"
	"github.com/ukydev/city-traffic/internal/handlers"
	"github.com/ukydev/city-traffic/internal/middleware"
	"github.com/ukydev/city-traffic/internal/models"
	"github.com/ukydev/city-traffic/internal/simulation"
	"github.com/ukydev/city-traffic/internal/sink"
)

// buildServer loads the map and wires the façade routes.
func buildServer(cfg config.Config, fanout *sink.Fanout) (http.Handler, *handlers.SimulationHandler, error) {
	m, err := cfg.LoadMap()
	if err != nil {
		return nil, nil, fmt.Errorf("load map: %w", err)
	}
	build := func(sc simulation.Config) (*simulation.City, error) {
		return simulation.New(m, sc)
	}
	sim := handlers.NewSimulationHandler(build, cfg.Sim, fanout)

	var opts handlers.RouterOptions
	if cfg.JWTSecret == "" {
		if cfg.RequireAuth {
			return nil, nil, errors.New("SIM_REQUIRE_AUTH needs JWT_SECRET")
		}
		log.Info("JWT_SECRET unset, operator login disabled")
	} else {
		authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
		if err != nil {
			return nil, nil, err
		}
		opts.AuthHandler = handlers.NewAuthHandler(authService)
		if cfg.OperatorPasswordHash != "" {
			if err := authService.AddOperator(models.Operator{
				Username:     cfg.OperatorUser,
				PasswordHash: cfg.OperatorPasswordHash,
				Role:         models.RoleOperator,
			}); err != nil {
				return nil, nil, fmt.Errorf("register operator: %w", err)
			}
		}
		if cfg.RequireAuth {
			if cfg.OperatorPasswordHash == "" {
				return nil, nil, errors.New("SIM_REQUIRE_AUTH needs SIM_OPERATOR_PASSWORD_HASH")
			}
			opts.Auth = middleware.NewAuthMiddleware(authService)
		}
	}
	if cfg.RateLimit > 0 {
		opts.RateLimit = middleware.NewRateLimitMiddleware(cfg.TrustedProxies...)
		opts.MaxRequests = cfg.RateLimit
		opts.WindowSeconds = cfg.RateWindowSeconds
	}

	log.WithFields(log.Fields{
		"map":          cfg.MapFile,
		"width":        m.Width,
		"height":       m.Height,
		"require_auth": cfg.RequireAuth,
	}).Info("Map loaded")
	return handlers.NewServer(sim, opts), sim, nil
}

// hashPassword writes the bcrypt hash for SIM_OPERATOR_PASSWORD_HASH.
func hashPassword(w io.Writer, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, hash)
	return err
}

func main() {
	plain := flag.String("hash-password", "", "print the bcrypt hash of this password and exit")
	flag.Parse()
	if *plain != "" {
		if err := hashPassword(os.Stdout, *plain); err != nil {
			log.WithError(err).Fatal("Failed to hash password")
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if err := cfg.ConfigureLogging(); err != nil {
		log.WithError(err).Fatal("Invalid logging configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fanout, err := sink.Open(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to open outputs")
	}
	defer fanout.Close()

	handler, sim, err := buildServer(cfg, fanout)
	if err != nil {
		log.WithError(err).Fatal("Failed to build server")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("HTTP shutdown did not complete")
		}
	}()

	log.WithField("port", cfg.Port).Info("HTTP server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("HTTP server failed")
	}

	if city, runID := sim.City(); city != nil {
		stats := city.Stats()
		log.WithFields(log.Fields{
			"run_id":  runID,
			"tick":    stats.Tick,
			"arrived": stats.Arrived,
			"active":  stats.Active,
		}).Info("Server stopped")
	}
}
