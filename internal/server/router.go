package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/landcbrown/ParticleSim/internal/dynamo"
	"github.com/landcbrown/ParticleSim/internal/engine"
)

// Controller is the part of the engine the API reads and steers.
type Controller interface {
	Snapshot() engine.Snapshot
	Temperature() float64
	SetTemperature(t float64) error
}

// Pauser is implemented by *sim.Driver.
type Pauser interface {
	SetPaused(p bool)
	Paused() bool
}

// RouterConfig holds what NewRouter wires together. Only Engine is
// required; /ws and /api/pause are mounted when Hub and Driver are set.
type RouterConfig struct {
	Engine Controller
	Driver Pauser
	Hub    *Hub

	// Registry backs /metrics. A private registry is created when nil.
	Registry *prometheus.Registry

	// RateLimiter is used as-is when set; otherwise one is built from
	// RateLimit, or DefaultRateLimitConfig when that is nil too.
	RateLimiter *IPRateLimiter
	RateLimit   *RateLimitConfig

	CORSOrigins []string
	Logger      *zap.Logger
}

type handlers struct {
	eng     Controller
	driver  Pauser
	hub     *Hub
	limiter *IPRateLimiter
}

// NewRouter builds the HTTP API. It starts no goroutines, so the result can
// go straight into httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := newServerMetrics(reg)
	if cfg.Hub != nil {
		cfg.Hub.metrics = m
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		rlc := DefaultRateLimitConfig
		if cfg.RateLimit != nil {
			rlc = *cfg.RateLimit
		}
		limiter = NewIPRateLimiter(rlc)
	}
	origins := cfg.CORSOrigins
	if origins == nil {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(m.instrument(log))
	r.Use(limiter.Middleware(func() { m.reject("rate_limit") }))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &handlers{eng: cfg.Engine, driver: cfg.Driver, hub: cfg.Hub, limiter: limiter}
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleState)
		r.Get("/stats", h.handleStats)
		r.Post("/temperature", h.handleTemperature)
		if cfg.Driver != nil {
			r.Post("/pause", h.handlePause)
		}
	})
	if cfg.Hub != nil {
		r.Get("/ws", cfg.Hub.ServeHTTP)
	}
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	return r
}

func (h *handlers) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, frameOf(h.eng.Snapshot()))
}

type statsResponse struct {
	Engine        engine.Stats `json:"engine"`
	Bodies        int          `json:"bodies"`
	KineticEnergy float64      `json:"kinetic_energy"`
	Temperature   float64      `json:"temperature"`
	Paused        bool         `json:"paused"`
	Clients       int          `json:"clients"`
	RateLimit     LimiterStats `json:"rate_limit"`
}

func (h *handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	s := h.eng.Snapshot()
	resp := statsResponse{
		Engine:        s.Stats,
		Bodies:        len(s.Bodies),
		KineticEnergy: engine.KineticEnergy(s.Bodies),
		Temperature:   h.eng.Temperature(),
		RateLimit:     h.limiter.Stats(),
	}
	if h.driver != nil {
		resp.Paused = h.driver.Paused()
	}
	if h.hub != nil {
		resp.Clients = h.hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

type temperatureRequest struct {
	Temperature *float64 `json:"temperature"`
}

// handleTemperature queues the change; it lands on the next tick, hence 202.
func (h *handlers) handleTemperature(w http.ResponseWriter, r *http.Request) {
	var req temperatureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Temperature == nil {
		writeError(w, "temperature is required", http.StatusBadRequest)
		return
	}
	if err := h.eng.SetTemperature(*req.Temperature); err != nil {
		if errors.Is(err, dynamo.ErrInvalidTemperature) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]float64{"temperature": *req.Temperature})
}

type pauseRequest struct {
	Paused *bool `json:"paused"`
}

func (h *handlers) handlePause(w http.ResponseWriter, r *http.Request) {
	// An empty body toggles.
	var req pauseRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	paused := !h.driver.Paused()
	if req.Paused != nil {
		paused = *req.Paused
	}
	h.driver.SetPaused(paused)
	writeJSON(w, http.StatusOK, map[string]bool{"paused": paused})
}

const maxBody = 1 << 12

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}
