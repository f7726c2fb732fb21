// Package api serves the scene builder over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"kuanb/gosm-scene/config"
	"kuanb/gosm-scene/logger"
	"kuanb/gosm-scene/metrics"
	"kuanb/gosm-scene/osm"
	"kuanb/gosm-scene/search"
)

// Geocoder resolves free text to places and places to names.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]search.Place, error)
	Reverse(ctx context.Context, point orb.Point) (search.Place, error)
}

// Options wires a Server.
type Options struct {
	// Source provides the raw map features; SourceName labels its metrics.
	Source     osm.FeatureSource
	SourceName string
	Geocoder   Geocoder
	Metrics    *metrics.Collector
	Logger     *zap.Logger
	// Defaults seed settings the client leaves out.
	Defaults    config.DefaultsConfig
	SearchLimit int
	// FetchTimeout bounds one feature fetch; zero means the request context only.
	FetchTimeout time.Duration
	// Now stamps generated scripts; nil means time.Now.
	Now func() time.Time
}

// Server holds the shared dependencies for handling requests. Every request
// builds its own scene and session.
type Server struct {
	opts   Options
	log    *zap.Logger
	router *mux.Router
}

// NewServer registers the routes.
func NewServer(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = search.DefaultLimit
	}
	s := &Server{
		opts:   opts,
		log:    logger.OrNop(opts.Logger),
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(withRequestID, accessLog(s.log))

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.opts.Metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/debug/runtime", s.handleRuntime).Methods(http.MethodGet)

	r.HandleFunc("/settings/default", s.handleDefaultSettings).Methods(http.MethodGet)
	r.HandleFunc("/view", s.handleView).Methods(http.MethodPost)
	r.HandleFunc("/radius/drag", s.handleRadiusDrag).Methods(http.MethodPost)
	r.HandleFunc("/scene", s.handleScene).Methods(http.MethodPost)
	r.HandleFunc("/script", s.handleScript).Methods(http.MethodPost)

	r.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)
	r.HandleFunc("/reverse", s.handleReverse).Methods(http.MethodGet)

	r.HandleFunc("/presets", s.handlePresets).Methods(http.MethodGet)
	r.HandleFunc("/presets/{name}", s.handlePreset).Methods(http.MethodGet)
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
