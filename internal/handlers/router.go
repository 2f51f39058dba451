package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ukydev/city-traffic/internal/middleware"
)

// RouterOptions configures access control on the façade. A nil Auth leaves
// every route open, which is what the stock renderer expects.
type RouterOptions struct {
	Auth          *middleware.AuthMiddleware
	AuthHandler   *AuthHandler
	RateLimit     *middleware.RateLimitMiddleware
	MaxRequests   int
	WindowSeconds int
}

// NewRouter builds the façade routes.
func NewRouter(sim *SimulationHandler, opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	if opts.RateLimit != nil {
		r.Use(opts.RateLimit.RateLimit(opts.MaxRequests, opts.WindowSeconds))
	}

	r.Get("/health", Health)
	if opts.AuthHandler != nil {
		r.Post("/api/auth/login", opts.AuthHandler.Login)
		r.Group(func(r chi.Router) {
			protect(r, opts.Auth, "view_agents")
			r.Get("/api/auth/me", opts.AuthHandler.Me)
		})
	}

	// Run control
	r.Group(func(r chi.Router) {
		protect(r, opts.Auth, "control")
		r.Get("/init", sim.Init)
		r.Post("/init", sim.Init)
		r.Get("/update", sim.Update)
		r.Post("/update", sim.Update)
	})

	// Renderer reads
	r.Group(func(r chi.Router) {
		protect(r, opts.Auth, "view_agents")
		r.Get("/getAgents", sim.GetAgents)
		r.Get("/positions.geojson", sim.PositionsGeoJSON)
	})

	r.Group(func(r chi.Router) {
		protect(r, opts.Auth, "view_stats")
		r.Get("/stats", sim.Stats)
		r.Get("/trips", sim.Trips)
	})

	return r
}

func protect(r chi.Router, m *middleware.AuthMiddleware, action string) {
	if m == nil {
		return
	}
	r.Use(m.Authenticate, m.RequirePermission(action))
}

// Server wraps the router as an http.Handler.
type Server struct {
	router chi.Router
}

// NewServer creates a Server with all façade routes configured.
func NewServer(sim *SimulationHandler, opts RouterOptions) *Server {
	return &Server{router: NewRouter(sim, opts)}
}

// ServeHTTP implements the http.Handler interface, delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
