/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires configuration into the running service: playlist,
// resolver, scheduler, control API and metrics listener.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/friendsincode/medley/internal/api"
	"github.com/friendsincode/medley/internal/artwork"
	"github.com/friendsincode/medley/internal/catalog"
	"github.com/friendsincode/medley/internal/config"
	"github.com/friendsincode/medley/internal/events"
	"github.com/friendsincode/medley/internal/logbuffer"
	"github.com/friendsincode/medley/internal/nowplaying"
	"github.com/friendsincode/medley/internal/player"
	"github.com/friendsincode/medley/internal/playlist"
	"github.com/friendsincode/medley/internal/prefetch"
	"github.com/friendsincode/medley/internal/resolver"
	"github.com/friendsincode/medley/internal/scheduler"
	"github.com/friendsincode/medley/internal/telemetry"
	"github.com/friendsincode/medley/internal/version"
)

// Server bundles the HTTP control surface and the playback stack.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	metricsSrv *http.Server
	closers    []func() error

	bus       *events.Bus
	logBuffer *logbuffer.Buffer
	playlist  *playlist.Store
	scheduler *scheduler.Scheduler
	tracing   *telemetry.TracerProvider
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.TracingMiddleware("medley-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    router,
		bus:       events.NewBus(),
		logBuffer: logBuf,
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func (s *Server) initDependencies() error {
	cfg := s.cfg

	tracing, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "medley",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	s.tracing = tracing
	s.DeferClose(func() error {
		return tracing.Shutdown(context.Background())
	})

	lookup, err := catalog.NewHTTPClient(cfg.CatalogURL, cfg.CatalogAPIKey, cfg.RequestTimeout)
	if err != nil {
		return fmt.Errorf("catalog client: %w", err)
	}

	remote, err := player.NewHTTPPlayer(cfg.PlayerURL, cfg.RequestTimeout, s.logger)
	if err != nil {
		return fmt.Errorf("player client: %w", err)
	}

	var snapshots *resolver.SnapshotStore
	if cfg.RedisEnabled {
		snapCfg := resolver.DefaultSnapshotConfig()
		snapCfg.RedisAddr = cfg.RedisAddr
		snapCfg.RedisPassword = cfg.RedisPassword
		snapCfg.RedisDB = cfg.RedisDB
		snapshots, err = resolver.NewSnapshotStore(snapCfg, s.logger)
		if err != nil {
			return fmt.Errorf("resolver snapshots: %w", err)
		}
		s.DeferClose(snapshots.Close)
	}

	res := resolver.New(lookup, snapshots, s.logger)
	art := artwork.NewFetcher(cfg.RequestTimeout, s.logger)
	pre := prefetch.New(res, art, s.bus, s.logger)

	s.playlist = playlist.NewStore("Medley", s.logger)
	if cfg.PlaylistPath != "" {
		if err := s.playlist.LoadFile(cfg.PlaylistPath); err != nil {
			return fmt.Errorf("load playlist: %w", err)
		}
	}

	sinks := []nowplaying.Publisher{nowplaying.NewBusPublisher(s.bus)}
	if cfg.RedisEnabled {
		redisPub := nowplaying.NewRedisPublisher(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, s.logger)
		sinks = append(sinks, redisPub)
	}
	if cfg.NATSURL != "" {
		natsCfg := nowplaying.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		natsPub, err := nowplaying.NewNATSPublisher(natsCfg, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("NATS unavailable, continuing without it")
		} else {
			sinks = append(sinks, natsPub)
		}
	}
	publisher := nowplaying.NewFanout(s.logger, sinks...)
	s.DeferClose(publisher.Close)

	snap := s.playlist.Snapshot()
	s.scheduler = scheduler.New(scheduler.Options{
		Player:       remote,
		Focus:        remote,
		Resolver:     res,
		Prefetcher:   pre,
		NowPlaying:   publisher,
		Artwork:      art,
		Bus:          s.bus,
		PollInterval: cfg.PollInterval,
		PlaylistID:   snap.ID,
		PlaylistName: snap.Name,
		Logger:       s.logger,
	})
	s.DeferClose(func() error {
		s.scheduler.Stop(context.Background())
		return nil
	})

	updates := version.NewChecker(s.logger)
	updates.Start(context.Background())
	s.DeferClose(func() error {
		updates.Stop()
		return nil
	})

	apiHandler := api.New(s.scheduler, s.playlist, s.logBuffer, updates, s.logger)
	apiHandler.Routes(s.router)

	return nil
}

// Start runs the control API and, on its own listener, the metrics endpoint.
// Blocks until ctx is cancelled, then shuts both down gracefully.
func (s *Server) Start(ctx context.Context) error {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", telemetry.Handler())
	s.metricsSrv = &http.Server{
		Addr:              s.cfg.MetricsBind,
		Handler:           metricsMux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		s.logger.Info().Str("addr", s.metricsSrv.Addr).Msg("metrics listener started")
		if err := s.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics listener: %w", err)
		}
	}()
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Str("version", version.Version).Msg("control API started")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("control API: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("control API shutdown error")
	}
	if err := s.metricsSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("metrics listener shutdown error")
	}
	return nil
}

// Scheduler exposes the playback scheduler, mainly for tests.
func (s *Server) Scheduler() *scheduler.Scheduler {
	return s.scheduler
}

// Playlist exposes the playlist store.
func (s *Server) Playlist() *playlist.Store {
	return s.playlist
}

// LogBuffer returns the server's log buffer for attaching to zerolog.
func (s *Server) LogBuffer() *logbuffer.Buffer {
	return s.logBuffer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}
