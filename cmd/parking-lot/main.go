package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"lifo-parking/internal/config"
	"lifo-parking/internal/events"
	"lifo-parking/internal/garage"
	"lifo-parking/internal/logging"
	"lifo-parking/internal/parking"
	"lifo-parking/internal/server"
	"lifo-parking/internal/store"
)

var (
	mode  = flag.String("mode", "", "Mode to run: cli, server, or both (overrides MODE)")
	port  = flag.String("port", "", "Port for HTTP server (overrides PORT)")
	state = flag.String("state", "", "State file path for the file backend (overrides STATE_PATH)")
)

func main() {
	flag.Parse()

	cfg := config.FromEnv()
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *state != "" {
		cfg.StatePath = *state
	}

	// The shell owns stdout in cli and both modes.
	logOut := os.Stdout
	if cfg.Mode != "server" {
		logOut = os.Stderr
	}
	logger := logging.New(logOut, cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryProvider, err := newTelemetry(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize telemetry")
	}

	svc, err := newService(ctx, cfg, telemetryProvider, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize parking service")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch cfg.Mode {
	case "cli":
		runCLI(ctx, cancel, cfg, svc, telemetryProvider, logger, sigChan)
	case "server":
		runServer(ctx, cancel, cfg, svc, telemetryProvider, logger, sigChan)
	case "both":
		runBoth(ctx, cancel, cfg, svc, telemetryProvider, logger, sigChan)
	}

	closeService(svc, logger)
	shutdownTelemetry(telemetryProvider, logger)
}

func newTelemetry(ctx context.Context, cfg *config.Config) (*parking.TelemetryProvider, error) {
	if cfg.OTelDisabled {
		return parking.NewInMemoryTelemetryProvider(nil), nil
	}
	return parking.NewTelemetryProvider(ctx, cfg.OTelServiceName, cfg.OTelEndpoint)
}

func newService(ctx context.Context, cfg *config.Config, telemetryProvider *parking.TelemetryProvider, logger zerolog.Logger) (*garage.Service, error) {
	st, journal, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			st.Close()
			return nil, err
		}
		publisher = amqpPublisher
	}

	facility, err := parking.NewInstrumentedFacility(
		parking.NewFacility(cfg.Capacity, parking.WithHourlyRate(cfg.HourlyRate)),
		telemetryProvider,
	)
	if err != nil {
		return nil, err
	}

	svc, err := garage.NewService(facility, st, telemetryProvider,
		garage.WithJournal(journal),
		garage.WithPublisher(publisher),
		garage.WithPersistPolicy(cfg.PersistPolicy),
		garage.WithLogger(logger.With().Str("component", "garage").Logger()),
	)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int("capacity", cfg.Capacity).
		Float64("hourly_rate", cfg.HourlyRate).
		Str("backend", cfg.StateBackend).
		Str("persist_policy", string(cfg.PersistPolicy)).
		Msg("parking facility ready")

	if _, err := svc.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("saved state ignored, starting empty")
	}

	return svc, nil
}

func newServer(cfg *config.Config, svc *garage.Service, telemetryProvider *parking.TelemetryProvider, logger zerolog.Logger) *server.Server {
	return server.NewServer(server.Options{
		Port:        cfg.Port,
		ServiceName: cfg.OTelServiceName,
		PlateStrict: cfg.PlateStrict,
		Tracing:     telemetryProvider.TracerProvider(),
	}, svc, logger)
}

func newShell(cfg *config.Config, svc *garage.Service, telemetryProvider *parking.TelemetryProvider) *garage.Shell {
	return garage.NewShell(svc, telemetryProvider, os.Stdin, os.Stdout, cfg.PlateStrict)
}

func runCLI(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, svc *garage.Service, telemetryProvider *parking.TelemetryProvider, logger zerolog.Logger, sigChan chan os.Signal) {
	cliDone := make(chan struct{})
	go func() {
		newShell(cfg, svc, telemetryProvider).Run(ctx)
		close(cliDone)
	}()

	select {
	case <-cliDone:
	case <-sigChan:
		logger.Info().Msg("shutting down")
	}

	cancel()
}

func runServer(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, svc *garage.Service, telemetryProvider *parking.TelemetryProvider, logger zerolog.Logger, sigChan chan os.Signal) {
	srv := newServer(cfg, svc, telemetryProvider, logger)

	go func() {
		<-sigChan
		logger.Info().Msg("received shutdown signal")
		shutdownServer(srv, logger)
		cancel()
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server error")
		return
	}
	<-ctx.Done()
}

func runBoth(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, svc *garage.Service, telemetryProvider *parking.TelemetryProvider, logger zerolog.Logger, sigChan chan os.Signal) {
	srv := newServer(cfg, svc, telemetryProvider, logger)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	cliDone := make(chan struct{})
	go func() {
		newShell(cfg, svc, telemetryProvider).Run(ctx)
		close(cliDone)
	}()

	select {
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-cliDone:
		logger.Info().Msg("CLI exited")
		shutdownServer(srv, logger)
	case <-sigChan:
		logger.Info().Msg("received shutdown signal")
		shutdownServer(srv, logger)
	}

	cancel()
}

func shutdownServer(srv *server.Server, logger zerolog.Logger) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
}

func closeService(svc *garage.Service, logger zerolog.Logger) {
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer closeCancel()

	if err := svc.Close(closeCtx); err != nil {
		logger.Error().Err(err).Msg("failed to close parking service")
		return
	}
	logger.Info().Msg("state saved, facility closed")
}

func shutdownTelemetry(telemetryProvider *parking.TelemetryProvider, logger zerolog.Logger) {
	logger.Info().Msg("shutting down telemetry")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := telemetryProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error shutting down telemetry")
	}
}
