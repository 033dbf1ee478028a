package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"lifo-parking/internal/garage"
)

type Server struct {
	httpServer *http.Server
	handler    *Handler
	log        zerolog.Logger
}

type Options struct {
	Port        string
	ServiceName string
	PlateStrict bool

	// Tracing is the provider request spans are opened on. Defaults to the
	// global provider.
	Tracing trace.TracerProvider
}

func NewServer(opts Options, service *garage.Service, logger zerolog.Logger) *Server {
	handler := NewHandler(service, opts.ServiceName, opts.PlateStrict)
	logger = logger.With().Str("component", "http").Logger()

	tracing := opts.Tracing
	if tracing == nil {
		tracing = otel.GetTracerProvider()
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + opts.Port,
			Handler:      NewRouter(handler, NewRegistry(service), tracing.Tracer(tracerName), logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		handler: handler,
		log:     logger,
	}
}

func NewRouter(handler *Handler, registry prometheus.Gatherer, tracer trace.Tracer, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RecoveryMiddleware(logger))
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TracingMiddleware(tracer))
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Get("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP)

	r.Route("/api/facility", func(r chi.Router) {
		r.Post("/enter", handler.Enter)
		r.Post("/exit", handler.Exit)
		r.Get("/status", handler.GetStatus)
		r.Get("/stats", handler.GetStats)
		r.Post("/save", handler.Save)
		r.Post("/load", handler.Load)
		r.Get("/receipts", handler.Receipts)
	})

	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://localhost%s", s.httpServer.Addr)
}
