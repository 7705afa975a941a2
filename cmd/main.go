package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	grpcapi "speech-session-service/internal/api/grpc"
	"speech-session-service/internal/api/ws"
	"speech-session-service/internal/app"
	"speech-session-service/internal/config"
	httpapi "speech-session-service/internal/http"
	"speech-session-service/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	application := app.New(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs := observability.NewServer(":"+cfg.Service.MetricsPort, prometheus.DefaultGatherer)
	grpcServer := grpcapi.NewServer()

	if err := application.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	defer application.Shutdown()

	g, gctx := errgroup.WithContext(ctx)
	sessions := ws.NewHandler(application.Model, application.WSConfig())

	httpServer := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           httpapi.NewRouter(application, sessions),
		ReadHeaderTimeout: 5 * time.Second,
		// Open sessions end when the group context is canceled.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.Service.GRPCPort).Msg("Failed to listen")
	}

	obs.SetReady(true)
	grpcServer.SetServing(true)

	g.Go(obs.ListenAndServe)
	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("Speech session service listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server listening")
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")

		obs.SetReady(false)
		grpcServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP server shutdown")
		}
		// Hijacked WebSocket connections outlive httpServer.Shutdown.
		if err := sessions.Wait(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Sessions still open at shutdown")
		}
		return obs.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server exited with error")
		application.Shutdown()
		os.Exit(1)
	}
}
