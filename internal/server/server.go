// Package server exposes a running engine over HTTP: JSON state and stats,
// temperature and pause control, a websocket frame stream and Prometheus
// metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/landcbrown/ParticleSim/internal/engine"
	"github.com/landcbrown/ParticleSim/internal/metrics"
	"github.com/landcbrown/ParticleSim/internal/sim"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Addr         string
	Dt           float64
	TickInterval time.Duration
	// BroadcastEvery sends one websocket frame per this many ticks.
	BroadcastEvery int
	CORSOrigins    []string
	RateLimit      RateLimitConfig
}

// Server owns the realtime driver, the websocket hub and the router.
// Nothing runs until Run.
type Server struct {
	cfg      Config
	driver   *sim.Driver
	hub      *Hub
	limiter  *IPRateLimiter
	registry *prometheus.Registry
	router   *chi.Mux
	log      *zap.Logger
}

func New(eng *engine.Engine, cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := metrics.NewPrometheus(reg)

	hub := NewHub(cfg.BroadcastEvery, cfg.CORSOrigins, log.Named("ws"))
	driver := sim.New(prom.Instrument(eng), sim.WithLogger(log.Named("driver")))
	driver.AddObserver(prom)
	driver.AddObserver(hub)

	if cfg.RateLimit.RequestsPerSecond <= 0 || cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit = DefaultRateLimitConfig
	}
	limiter := NewIPRateLimiter(cfg.RateLimit)
	s := &Server{
		cfg:      cfg,
		driver:   driver,
		hub:      hub,
		limiter:  limiter,
		registry: reg,
		log:      log,
	}
	s.router = NewRouter(RouterConfig{
		Engine:      eng,
		Driver:      driver,
		Hub:         hub,
		Registry:    reg,
		RateLimiter: limiter,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      log.Named("http"),
	})
	return s
}

func (s *Server) Handler() http.Handler          { return s.router }
func (s *Server) Driver() *sim.Driver            { return s.driver }
func (s *Server) Registry() *prometheus.Registry { return s.registry }

// Run serves HTTP and steps the engine until ctx ends or something fails.
// A cancelled ctx is a clean shutdown and returns nil.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		s.limiter.Run(ctx)
		return nil
	})
	g.Go(func() error {
		err := s.driver.RunRealtime(ctx, s.cfg.Dt, s.cfg.TickInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err := g.Wait()
	s.log.Info("server stopped", zap.Error(err))
	return err
}
